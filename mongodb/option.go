package mongodb

import (
	"context"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/mgo"
)

type BuilderOption func(*Builder)

func WithClient(name, uri string, opts ...func(*Options)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, uri, func(o *Options) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// New 启用 MongoDB：工厂由根容器拥有，客户端按名称注册
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		b := NewBuilder()
		for _, opt := range opts {
			opt(b)
		}
		factory, err := b.Build(context.Background(), rt.Logger.WithCategory("mongodb"))
		if err != nil || factory == nil {
			return err
		}
		rt.Features.Set(factory)
		return core.RegisterClients[*mgo.Client](rt, factory)
	}
}
