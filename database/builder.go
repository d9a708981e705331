package database

import (
	"errors"
	"fmt"

	"github.com/gocrud/ioc/logging"
	"gorm.io/gorm"
)

// Builder 数据库配置构建器
type Builder struct {
	configs []Options
	names   map[string]struct{}
	errors  []error
}

func NewBuilder() *Builder {
	return &Builder{names: make(map[string]struct{})}
}

// Add 添加数据库，dialector 例如 sqlite.Open(dsn)
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*Options)) *Builder {
	if _, exists := b.names[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("database: %q 重复配置", name))
		return b
	}
	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("数据库 %q: %w", name, err))
		return b
	}
	b.names[name] = struct{}{}
	b.configs = append(b.configs, *opts)
	return b
}

// Build 打开所有连接；任何一个失败时关闭已打开的连接
func (b *Builder) Build(logger logging.Logger) (*Factory, error) {
	if len(b.errors) > 0 {
		return nil, errors.Join(b.errors...)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewFactory(logger)
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			_ = factory.Close()
			return nil, err
		}
		factory.logger.Info("数据库已注册",
			logging.F("name", opts.Name),
			logging.F("dialector", opts.Dialector.Name()))
	}
	return factory, nil
}
