package redis

import (
	"context"

	"github.com/gocrud/ioc/core"
	"github.com/redis/go-redis/v9"
)

// BuilderOption 配置 Redis Builder
type BuilderOption func(*Builder)

// WithClient 添加客户端，多个配置函数按顺序应用
func WithClient(name string, opts ...func(*ClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.AddClient(name, func(o *ClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// New 启用 Redis：工厂由根容器拥有，客户端按名称注册
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		b := NewBuilder()
		for _, opt := range opts {
			opt(b)
		}
		factory, err := b.Build(context.Background(), rt.Logger.WithCategory("redis"))
		if err != nil || factory == nil {
			return err
		}
		rt.Features.Set(factory)
		return core.RegisterClients[*redis.Client](rt, factory)
	}
}
