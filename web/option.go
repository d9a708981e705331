package web

import (
	"errors"

	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/core"
)

var errNoScope = errors.New("web: 请求没有容器，需要 RequestScope 中间件")

// BuilderOption 配置 Web Builder
type BuilderOption func(*Builder)

func WithPort(port int) BuilderOption {
	return func(b *Builder) {
		b.UsePort(port)
	}
}

func WithControllers(ctors ...any) BuilderOption {
	return func(b *Builder) {
		b.AddControllers(ctors...)
	}
}

// WithRequestScope 启用请求级子容器
func WithRequestScope() BuilderOption {
	return func(b *Builder) {
		b.UseRequestScope()
	}
}

// Configure 直接操作 Builder，例如注册路由
func Configure(fn func(b *Builder)) BuilderOption {
	return fn
}

// New 启用 Web 能力：注册控制器和 Host，Host 作为托管服务启动
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		b := NewBuilder().UseLogger(rt.Logger)
		for _, opt := range opts {
			opt(b)
		}
		rt.Features.Set(b)

		if err := b.RegisterServices(rt.Container); err != nil {
			return err
		}

		return core.WithHostedService(func(c *container.Container) *Host {
			host := b.Build(c)
			rt.Features.Set(host)
			return host
		})(rt)
	}
}
