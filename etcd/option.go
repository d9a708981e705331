package etcd

import (
	"github.com/gocrud/ioc/core"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type BuilderOption func(*Builder)

func WithClient(name string, opts ...func(*ClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.AddClient(name, func(o *ClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// New 启用 etcd：工厂由根容器拥有，客户端按名称注册
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		b := NewBuilder()
		for _, opt := range opts {
			opt(b)
		}
		factory, err := b.Build(rt.Logger.WithCategory("etcd"))
		if err != nil || factory == nil {
			return err
		}
		rt.Features.Set(factory)
		return core.RegisterClients[*clientv3.Client](rt, factory)
	}
}
