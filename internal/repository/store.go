package repository

import (
	"sync"

	"gorm.io/gorm"

	"BitePoints/storage/database"
)

// Store 基于 gorm 的数据访问层，按聚合拆分方法文件
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var (
	defaultStore *Store
	storeOnce    sync.Once
)

// Default 进程级单例，使用全局数据库连接
func Default() *Store {
	storeOnce.Do(func() {
		defaultStore = New(database.DB())
	})
	return defaultStore
}
