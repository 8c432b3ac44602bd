// Package repository 数据访问层
package repository

import (
	"errors"

	"gorm.io/gorm"
)

// Pagination 分页参数
type Pagination struct {
	Page     int // 页码，从 1 开始
	PageSize int // 每页数量
}

// apply 为查询追加分页条件，参数无效时不分页
func (p *Pagination) apply(query *gorm.DB) *gorm.DB {
	if p == nil || p.Page <= 0 || p.PageSize <= 0 {
		return query
	}
	return query.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize)
}

// isDuplicate 判断是否为唯一索引冲突
// 需要开启 gorm.Config.TranslateError
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
