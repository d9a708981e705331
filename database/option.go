package database

import (
	"github.com/gocrud/ioc/core"
	"gorm.io/gorm"
)

type BuilderOption func(*Builder)

// WithDatabase 添加数据库，多个配置函数按顺序应用
func WithDatabase(name string, dialector gorm.Dialector, opts ...func(*Options)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, dialector, func(o *Options) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// New 启用数据库：工厂由根容器拥有，*gorm.DB 按名称注册
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		b := NewBuilder()
		for _, opt := range opts {
			opt(b)
		}
		factory, err := b.Build(rt.Logger.WithCategory("database"))
		if err != nil || factory == nil {
			return err
		}
		rt.Features.Set(factory)
		return core.RegisterClients[*gorm.DB](rt, factory)
	}
}
