// Package container 是构建管道之上的 IoC 容器门面。
//
// 基本用法：
//
//	c := container.New()
//	c.RegisterType(builder.TypeOf[Greeter](), builder.TypeOf[*EnglishGreeter](),
//		container.WithConstructor(NewEnglishGreeter),
//		container.WithSingleton())
//
//	greeter, err := container.Resolve[Greeter](c)
package container

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/lifetime"
	"github.com/gocrud/ioc/logging"
)

// Container 依赖注入容器，可以安全地并发解析
type Container struct {
	parent     *Container
	policies   *builder.PolicyList
	lifetime   *builder.LifetimeContainer
	strategies *builder.StagedStrategyChain
	logger     logging.Logger

	mu            sync.RWMutex
	registrations map[builder.BuildKey]*Registration
	order         []builder.BuildKey
	extensions    []Extension

	disposed atomic.Bool
}

// Option 配置容器
type Option func(*Container)

// WithLogger 设置容器日志，默认不输出
func WithLogger(logger logging.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger.WithCategory("container")
		}
	}
}

// New 创建根容器，默认策略链为：类型映射 -> 生命周期 -> 构建计划
func New(opts ...Option) *Container {
	c := &Container{
		policies:      builder.NewPolicyList(nil),
		lifetime:      builder.NewLifetimeContainer(),
		strategies:    builder.NewStagedStrategyChain(nil),
		logger:        logging.Nop(),
		registrations: make(map[builder.BuildKey]*Registration),
	}
	c.policies.SetLifetime(c.lifetime)
	for _, opt := range opts {
		opt(c)
	}

	c.strategies.Add(&disposeStrategy{}, builder.StageSetup)
	c.strategies.Add(&builder.BuildKeyMappingStrategy{}, builder.StageTypeMapping)
	c.strategies.Add(&builder.LifetimeStrategy{}, builder.StageLifetime)
	c.strategies.Add(&builder.BuildPlanStrategy{}, builder.StageCreation)

	c.registerSelf()
	return c
}

// CreateChildContainer 创建子容器。
// 子容器继承父容器的注册和策略，自己的注册只对自己及其后代可见。
// 父容器释放时会先释放子容器。
func (c *Container) CreateChildContainer() *Container {
	child := &Container{
		parent:        c,
		policies:      builder.NewPolicyList(c.policies),
		lifetime:      builder.NewLifetimeContainer(),
		strategies:    builder.NewStagedStrategyChain(c.strategies),
		logger:        c.logger,
		registrations: make(map[builder.BuildKey]*Registration),
	}
	child.policies.SetLifetime(child.lifetime)
	child.registerSelf()
	c.lifetime.Add(child)
	c.logger.Trace("创建子容器")
	return child
}

// Parent 返回父容器，根容器返回 nil
func (c *Container) Parent() *Container {
	return c.parent
}

// Logger 返回容器使用的日志
func (c *Container) Logger() logging.Logger {
	return c.logger
}

// Dispose 释放容器：按注册的逆序释放子容器、扩展和拥有型生命周期管理器持有的实例。
// 重复调用是安全的。
func (c *Container) Dispose() error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}
	if c.parent != nil {
		c.parent.lifetime.Remove(c)
	}

	err := c.lifetime.Dispose()
	if err != nil {
		c.logger.Warn("释放容器时出错", logging.Err(err))
	} else {
		c.logger.Debug("容器已释放")
	}
	return err
}

// IsDisposed 容器是否已释放
func (c *Container) IsDisposed() bool {
	return c.disposed.Load()
}

func (c *Container) checkDisposed() error {
	if c.disposed.Load() {
		return fmt.Errorf("container: 容器已释放")
	}
	return nil
}

// registerSelf 让 *Container 可以作为依赖被注入，指向当前层级的容器
func (c *Container) registerSelf() {
	self := lifetime.NewExternallyControlled()
	self.SetValue(c)
	c.policies.Set(builder.LifetimePolicyKind, builder.KeyOf[*Container](""), self)
}
