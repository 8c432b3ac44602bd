// Package main 数据库迁移工具
package main

import (
	"context"
	"flag"
	"log"

	"github.com/pu-ac-cn/admin-console/internal/config"
	"github.com/pu-ac-cn/admin-console/internal/database"
	"github.com/pu-ac-cn/admin-console/internal/model"
	"github.com/pu-ac-cn/admin-console/internal/repository"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// 加载配置
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化数据库连接
	if err := database.Init(&cfg.Database, nil); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()
	log.Println("数据库连接成功")

	log.Println("开始执行数据库迁移...")

	// 关联表 user_groups、group_permissions 随模型一起创建
	models := []any{
		&model.Permission{},
		&model.Group{},
		&model.User{},
	}
	for _, m := range models {
		if err := database.AutoMigrate(m); err != nil {
			log.Fatalf("迁移失败: %v", err)
		}
	}

	perms, err := repository.NewPermissionRepository(database.GetDB()).EnsureDefaults(context.Background())
	if err != nil {
		log.Fatalf("初始化默认权限失败: %v", err)
	}

	log.Println("数据库迁移完成！")
	log.Println("已创建/更新的表:")
	log.Println("  - permissions (权限表)")
	log.Println("  - auth_groups (用户组表)")
	log.Println("  - group_permissions (用户组权限关联表)")
	log.Println("  - users (用户表)")
	log.Println("  - user_groups (用户-用户组关联表)")
	log.Printf("默认权限 %d 项已就绪", len(perms))
}
