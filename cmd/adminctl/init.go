package main

import (
	"fmt"

	"github.com/pu-ac-cn/admin-console/internal/database"
	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/spf13/cobra"
)

var initSecret string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "初始化系统",
	Long: `清空全部用户和用户组，重建默认用户组、权限和超级管理员。
--secret 必须与配置中的 bootstrap.secret 一致，未配置时拒绝执行。`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initSecret, "secret", "", "初始化密码")
	_ = initCmd.MarkFlagRequired("secret")
}

func runInit(cmd *cobra.Command, _ []string) error {
	if err := database.AutoMigrate(&model.Permission{}, &model.Group{}, &model.User{}); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	result, err := newBootstrapService().Initialize(cmd.Context(), initSecret)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "系统初始化成功")
	fmt.Fprintf(out, "管理员用户名: %s\n", result.AdminUsername)
	fmt.Fprintf(out, "管理员密码: %s\n", result.AdminPassword)
	return nil
}
