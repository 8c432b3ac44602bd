package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/pu-ac-cn/admin-console/internal/config"
	"github.com/pu-ac-cn/admin-console/internal/database"
	"github.com/pu-ac-cn/admin-console/internal/model"
)

// 只清理控制台相关表的重置工具：
// - 默认按依赖顺序 Drop 表，然后可选地 AutoMigrate 重建。
// - 不会删除数据库或其它表。
// 用法：
//   go run ./cmd/resetdb -force
// 可选参数：
//   -recreate  重建表（默认 true）
//   -force     必须为 true 才会执行（安全开关）
func main() {
	recreate := flag.Bool("recreate", true, "是否在清空后重建表")
	force := flag.Bool("force", false, "确认执行清空操作")
	flag.Parse()

	if !*force {
		log.Fatal("为避免误操作，请加上 -force 参数：go run ./cmd/resetdb -force")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := database.Init(&cfg.Database, nil); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()

	m := database.GetDB().Migrator()

	// 先删关联表再删主表
	dropOrder := []any{"user_groups", "group_permissions", &model.User{}, &model.Group{}, &model.Permission{}}

	fmt.Println("开始清空控制台相关表...")
	for _, t := range dropOrder {
		if m.HasTable(t) {
			if err := m.DropTable(t); err != nil {
				log.Fatalf("删除表失败: %v", err)
			}
			fmt.Printf("已删除表: %v\n", tableName(t))
		}
	}

	if *recreate {
		for _, t := range []any{&model.Permission{}, &model.Group{}, &model.User{}} {
			if err := m.AutoMigrate(t); err != nil {
				log.Fatalf("创建表失败: %v", err)
			}
			fmt.Printf("已创建/更新表: %v\n", tableName(t))
		}
	}

	fmt.Println("完成。")
}

func tableName(t any) string {
	if tn, ok := t.(interface{ TableName() string }); ok {
		return tn.TableName()
	}
	return fmt.Sprint(t)
}
