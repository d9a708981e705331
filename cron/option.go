package cron

import (
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/core"
)

// BuilderOption 配置 Cron Builder
type BuilderOption func(*Builder)

func WithSeconds() BuilderOption {
	return func(b *Builder) {
		b.WithSeconds()
	}
}

func WithLocation(location string) BuilderOption {
	return func(b *Builder) {
		b.WithLocation(location)
	}
}

func EnableCronLogger() BuilderOption {
	return func(b *Builder) {
		b.EnableCronLogger()
	}
}

// AddJob 添加任务，参见 Builder.AddJob
func AddJob(spec, name string, handler any) BuilderOption {
	return func(b *Builder) {
		b.AddJob(spec, name, handler)
	}
}

// New 启用 Cron：服务作为托管服务启动，任务依赖从根容器的子容器解析
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		b := NewBuilder()
		for _, opt := range opts {
			opt(b)
		}
		svc, err := b.Build(rt.Logger)
		if err != nil {
			return err
		}
		rt.Features.Set(svc)

		return core.WithHostedService(func(c *container.Container) *Service {
			svc.Bind(c)
			return svc
		})(rt)
	}
}
