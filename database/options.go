package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Options 数据库配置
type Options struct {
	Name         string
	Dialector    gorm.Dialector
	GormConfig   *gorm.Config
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
	// SlowThreshold 超过该耗时的 SQL 以 Warn 级别记录
	SlowThreshold time.Duration
	// AutoMigrate 打开后立即迁移的模型
	AutoMigrate []any
}

func NewDefaultOptions(name string, dialector gorm.Dialector) *Options {
	return &Options{
		Name:          name,
		Dialector:     dialector,
		GormConfig:    &gorm.Config{},
		MaxIdleConns:  10,
		MaxOpenConns:  100,
		MaxLifetime:   time.Hour,
		SlowThreshold: 200 * time.Millisecond,
	}
}

func (o *Options) Validate() error {
	switch {
	case o.Name == "":
		return errors.New("database: 名称不能为空")
	case o.Dialector == nil:
		return errors.New("database: 缺少 dialector")
	case o.MaxOpenConns < 0, o.MaxIdleConns < 0:
		return errors.New("database: 连接池大小不能为负数")
	}
	return nil
}
