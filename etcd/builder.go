package etcd

import (
	"errors"
	"fmt"

	"github.com/gocrud/ioc/logging"
)

// Builder etcd 客户端配置构建器
type Builder struct {
	configs []ClientOptions
	names   map[string]struct{}
	errors  []error
}

func NewBuilder() *Builder {
	return &Builder{names: make(map[string]struct{})}
}

func (b *Builder) AddClient(name string, configure func(*ClientOptions)) *Builder {
	if _, exists := b.names[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("etcd: 客户端 %q 重复配置", name))
		return b
	}
	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("客户端 %q: %w", name, err))
		return b
	}
	b.names[name] = struct{}{}
	b.configs = append(b.configs, *opts)
	return b
}

// Build 创建工厂；没有配置客户端时返回 nil
func (b *Builder) Build(logger logging.Logger) (*Factory, error) {
	if len(b.errors) > 0 {
		return nil, errors.Join(b.errors...)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Nop()
	}

	factory := NewFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			_ = factory.Close()
			return nil, err
		}
		logger.Info("etcd 客户端已注册",
			logging.F("name", opts.Name),
			logging.F("endpoints", opts.Endpoints))
	}
	return factory, nil
}
