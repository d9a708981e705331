package config

import (
	"fmt"
	"sync"

	"github.com/gocrud/ioc/container"
)

// Option 启动时绑定一次的配置选项
type Option[T any] interface {
	Value() T
}

// OptionMonitor 总是返回最新配置，根配置重新加载后自动更新
type OptionMonitor[T any] interface {
	Value() T
}

// OptionsCache 缓存绑定结果，支持 OnReload 的配置重新加载后会重新绑定
type OptionsCache[T any] struct {
	config  Configuration
	section string

	mu      sync.RWMutex
	current T
}

// NewOptionsCache 创建并立即绑定一次，节不存在时保持零值
func NewOptionsCache[T any](cfg Configuration, section string) *OptionsCache[T] {
	cache := &OptionsCache[T]{config: cfg, section: section}
	_ = cache.reload()

	if rc, ok := cfg.(interface{ OnReload(func()) }); ok {
		rc.OnReload(func() {
			_ = cache.reload()
		})
	}
	return cache
}

func (c *OptionsCache[T]) reload() error {
	var value T
	if err := c.config.Bind(c.section, &value); err != nil {
		return err
	}
	c.mu.Lock()
	c.current = value
	c.mu.Unlock()
	return nil
}

// Get 当前配置值
func (c *OptionsCache[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

type option[T any] struct {
	value T
}

func (o *option[T]) Value() T {
	return o.value
}

// NewOption 创建静态配置选项
func NewOption[T any](value T) Option[T] {
	return &option[T]{value: value}
}

type optionMonitor[T any] struct {
	cache *OptionsCache[T]
}

func (o *optionMonitor[T]) Value() T {
	return o.cache.Get()
}

// NewOptionMonitor 创建监听配置选项
func NewOptionMonitor[T any](cache *OptionsCache[T]) OptionMonitor[T] {
	return &optionMonitor[T]{cache: cache}
}

// Configure 把配置节绑定为 T，并向容器注册 Option[T] 和 OptionMonitor[T]。
// 两者都是外部控制的实例，容器释放时不会处理它们。
func Configure[T any](c *container.Container, cfg Configuration, section string) error {
	value, err := Load[T](cfg, section)
	if err != nil {
		return fmt.Errorf("config: 绑定配置节 %q 失败: %w", section, err)
	}
	if err := container.RegisterInstance(c, NewOption(value), container.WithExternal()); err != nil {
		return err
	}
	return container.RegisterInstance(c, NewOptionMonitor(NewOptionsCache[T](cfg, section)), container.WithExternal())
}
