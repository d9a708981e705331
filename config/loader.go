package config

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/logging"
)

// LoadOptions 配置加载选项
type LoadOptions struct {
	Optional       bool
	EnvPrefix      string
	Etcd           *EtcdOptions
	ReloadInterval time.Duration
	InMemory       map[string]any

	containerSection string
	types            *TypeRegistry
}

type LoadOption func(*LoadOptions)

// Optional 配置文件不存在时不报错
func Optional() LoadOption {
	return func(o *LoadOptions) {
		o.Optional = true
	}
}

// WithEnv 叠加带前缀的环境变量，例如 "APP_"
func WithEnv(prefix string) LoadOption {
	return func(o *LoadOptions) {
		o.EnvPrefix = prefix
	}
}

// WithEtcd 在文件之后叠加 etcd 配置
func WithEtcd(opts EtcdOptions) LoadOption {
	return func(o *LoadOptions) {
		o.Etcd = &opts
	}
}

// WithDefaults 最先加载的默认值
func WithDefaults(data map[string]any) LoadOption {
	return func(o *LoadOptions) {
		o.InMemory = data
	}
}

// WithReloadInterval 按间隔重新加载，Option 监视器随之更新
func WithReloadInterval(d time.Duration) LoadOption {
	return func(o *LoadOptions) {
		o.ReloadInterval = d
	}
}

// WithContainerSection 加载后把 section 中声明的注册应用到根容器
func WithContainerSection(section string, types *TypeRegistry) LoadOption {
	return func(o *LoadOptions) {
		o.containerSection = section
		o.types = types
	}
}

// Load 加载配置文件（按扩展名选择 JSON 或 YAML），
// 并把 Configuration 注册到根容器。
func Load(path string, opts ...LoadOption) core.Option {
	return func(rt *core.Runtime) error {
		options := &LoadOptions{}
		for _, opt := range opts {
			opt(options)
		}

		b := NewConfigurationBuilder()
		if options.InMemory != nil {
			b.AddInMemory(options.InMemory)
		}
		if path != "" {
			switch strings.ToLower(filepath.Ext(path)) {
			case ".json":
				b.AddJsonFile(path, options.Optional)
			default:
				b.AddYamlFile(path, options.Optional)
			}
		}
		if options.Etcd != nil {
			b.AddEtcd(*options.Etcd)
		}
		if options.EnvPrefix != "" {
			b.AddEnvironmentVariables(options.EnvPrefix)
		}

		root, err := b.Build()
		if err != nil {
			return err
		}
		rt.Features.Set(root)
		if err := container.RegisterInstance[Configuration](rt.Container, root, container.WithExternal()); err != nil {
			return err
		}
		rt.Logger.Info("配置已加载", logging.F("sources", root.Sources()))

		if options.containerSection != "" {
			if err := ApplyContainerSection(rt.Container, root, options.containerSection, options.types); err != nil {
				return err
			}
		}

		if options.ReloadInterval > 0 {
			logger := rt.Logger.WithCategory("config")
			return core.WithTimer("config-reload", options.ReloadInterval, func(context.Context) error {
				if err := root.Reload(); err != nil {
					logger.Warn("重新加载配置失败", logging.Err(err))
				}
				return nil
			})(rt)
		}
		return nil
	}
}

// Bind 把配置节注册为 Option[T] 和 OptionMonitor[T]，需要先 Load
func Bind[T any](section string) core.Option {
	return func(rt *core.Runtime) error {
		cfg, err := container.Resolve[Configuration](rt.Container)
		if err != nil {
			return err
		}
		return Configure[T](rt.Container, cfg, section)
	}
}
