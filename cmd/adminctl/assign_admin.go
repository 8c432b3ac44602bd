package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var assignAdminCmd = &cobra.Command{
	Use:     "assign-admin <username>",
	Short:   "将用户设为超级管理员",
	Long:    `将指定用户加入超级管理员组并标记为超级用户，需先执行 init 创建默认用户组。`,
	Example: "  adminctl assign-admin alice",
	Args:    cobra.ExactArgs(1),
	RunE:    runAssignAdmin,
}

func init() {
	rootCmd.AddCommand(assignAdminCmd)
}

func runAssignAdmin(cmd *cobra.Command, args []string) error {
	user, err := newBootstrapService().PromoteSuperuser(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "成功为用户 %s (%s) 分配超级管理员权限\n", user.Username, user.Email)
	return nil
}
