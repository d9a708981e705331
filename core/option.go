package core

import (
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/hosting"
	"github.com/gocrud/ioc/logging"
)

// Option 修改 Runtime 的函数，是框架唯一的扩展点
type Option func(rt *Runtime) error

// WithLogger 设置运行时日志，并把 logging.Logger 注册到容器
func WithLogger(logger logging.Logger) Option {
	return func(rt *Runtime) error {
		rt.Logger = logger
		rt.Hosted = hosting.NewHostedServiceManager(logger)
		return container.RegisterInstance(rt.Container, logger, container.WithExternal())
	}
}

// WithLogging 用 LoggingBuilder 配置日志，工厂在容器释放时关闭
func WithLogging(configure func(b *logging.LoggingBuilder)) Option {
	return func(rt *Runtime) error {
		b := logging.NewLoggingBuilder()
		configure(b)
		factory := b.Build()
		if err := container.RegisterInstance(rt.Container, factory); err != nil {
			return err
		}
		return WithLogger(factory.CreateLogger("app"))(rt)
	}
}

// WithContainerExtension 向根容器添加扩展
func WithContainerExtension(ext container.Extension) Option {
	return func(rt *Runtime) error {
		return rt.Container.AddExtension(ext)
	}
}

// WithServices 在根容器上执行注册
func WithServices(register func(c *container.Container) error) Option {
	return func(rt *Runtime) error {
		return register(rt.Container)
	}
}
