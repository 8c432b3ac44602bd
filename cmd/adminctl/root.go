package main

import (
	"fmt"

	"github.com/pu-ac-cn/admin-console/internal/config"
	"github.com/pu-ac-cn/admin-console/internal/database"
	"github.com/pu-ac-cn/admin-console/internal/logging"
	"github.com/pu-ac-cn/admin-console/internal/repository"
	"github.com/pu-ac-cn/admin-console/internal/service"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	logs    *logging.Pipeline
)

var rootCmd = &cobra.Command{
	Use:   "adminctl",
	Short: "用户与用户组管理控制台运维工具",
	Long: `adminctl 用于在命令行完成系统初始化和管理员授权。
配置读取方式与服务端一致，可通过 CONSOLE_ 前缀的环境变量覆盖。`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	cobra.OnFinalize(teardown)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"配置文件路径 (默认: ./configs/config.yaml)")
}

// setup 加载配置，初始化日志和数据库
func setup(_ *cobra.Command, _ []string) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	if logs, err = logging.New(&cfg.Log); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	if err := database.Init(&cfg.Database, logs.Logger()); err != nil {
		return fmt.Errorf("初始化数据库失败: %w", err)
	}
	return nil
}

func teardown() {
	_ = database.Close()
	if logs != nil {
		_ = logs.Close()
		logs = nil
	}
}

func newBootstrapService() service.BootstrapService {
	db := database.GetDB()
	return service.NewBootstrapService(service.BootstrapConfig{
		Secret:        cfg.Bootstrap.Secret,
		AdminUsername: cfg.Bootstrap.AdminUsername,
		AdminPassword: cfg.Bootstrap.AdminPassword,
		AdminEmail:    cfg.Bootstrap.AdminEmail,
	},
		repository.NewUserRepository(db),
		repository.NewGroupRepository(db),
		repository.NewPermissionRepository(db),
		logs,
	)
}
