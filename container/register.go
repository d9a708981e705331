package container

import (
	"fmt"
	"reflect"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/lifetime"
	"github.com/gocrud/ioc/logging"
)

// Registration 一条注册记录
type Registration struct {
	Key builder.BuildKey
	// MappedTo 映射目标，未映射时为零值
	MappedTo builder.BuildKey
	// Lifetime 生命周期管理器，为 nil 表示每次重新构建
	Lifetime lifetime.Manager
}

// RegisterOption 配置一次注册
type RegisterOption func(*registerConfig)

type registerConfig struct {
	name    string
	manager lifetime.Manager
	plan    builder.BuildPlanPolicy
	ctor    any
}

// WithName 设置注册名称，用于命名解析
func WithName(name string) RegisterOption {
	return func(c *registerConfig) {
		c.name = name
	}
}

// WithLifetime 指定生命周期管理器，同一个管理器只能用于一次注册
func WithLifetime(m lifetime.Manager) RegisterOption {
	return func(c *registerConfig) {
		c.manager = m
	}
}

// WithSingleton 容器级单例
func WithSingleton() RegisterOption {
	return WithLifetime(lifetime.NewContainerControlled())
}

// WithTransient 每次解析都重新构建
func WithTransient() RegisterOption {
	return WithLifetime(lifetime.NewTransient())
}

// WithHierarchical 每个子容器一个实例
func WithHierarchical() RegisterOption {
	return WithLifetime(lifetime.NewHierarchical())
}

// WithPerResolve 一次解析中共享一个实例
func WithPerResolve() RegisterOption {
	return WithLifetime(lifetime.NewPerResolve())
}

// WithExternal 只持有引用，不负责释放
func WithExternal() RegisterOption {
	return WithLifetime(lifetime.NewExternallyControlled())
}

// WithConstructor 使用构造函数构建实例，参数按类型从容器解析
//
// 支持 func(deps...) T 和 func(deps...) (T, error)。
func WithConstructor(fn any) RegisterOption {
	return func(c *registerConfig) {
		c.ctor = fn
	}
}

// WithFactory 使用工厂函数构建实例
func WithFactory(fn func(r builder.Resolver) (any, error)) RegisterOption {
	return func(c *registerConfig) {
		c.plan = builder.BuildPlanFunc(func(ctx *builder.Context) (any, error) {
			return fn(ctx)
		})
	}
}

// WithPlan 直接指定构建计划
func WithPlan(plan builder.BuildPlanPolicy) RegisterOption {
	return func(c *registerConfig) {
		c.plan = plan
	}
}

// RegisterType 注册 from 到 to 的映射。to 为 nil 或与 from 相同时不映射。
//
// 生命周期按 from 键缓存；构建计划登记在 to 键上。
func (c *Container) RegisterType(from, to reflect.Type, opts ...RegisterOption) error {
	if err := c.checkDisposed(); err != nil {
		return err
	}
	if from == nil {
		return fmt.Errorf("%w: 注册类型为 nil", builder.ErrArgumentNull)
	}
	if to == nil {
		to = from
	}
	if to != from && !to.AssignableTo(from) {
		return builder.NewTypeMismatchError(from, to)
	}

	cfg := registerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	key := builder.NewBuildKey(from, cfg.name)
	target := builder.NewBuildKey(to, cfg.name)

	plan := cfg.plan
	if cfg.ctor != nil {
		ctor, err := builder.NewConstructorPlan(cfg.ctor)
		if err != nil {
			return err
		}
		if !ctor.ResultType().AssignableTo(to) {
			return builder.NewTypeMismatchError(to, ctor.ResultType())
		}
		plan = ctor
	}

	if cfg.manager != nil {
		if err := cfg.manager.Attach(); err != nil {
			return fmt.Errorf("container: 注册 %s 失败: %w", key, err)
		}
	}

	reg := &Registration{Key: key, Lifetime: cfg.manager}
	if to != from {
		reg.MappedTo = target
		c.policies.Set(builder.BuildKeyMappingPolicyKind, key, builder.NewKeyMapping(target))
	} else {
		c.policies.Clear(builder.BuildKeyMappingPolicyKind, key)
	}
	if plan != nil {
		c.policies.Set(builder.BuildPlanPolicyKind, target, plan)
	}
	c.setLifetime(key, cfg.manager)
	c.addRegistration(reg)

	c.logger.Debug("注册类型", logging.F("key", key), logging.F("mapTo", to), logging.F("lifetime", lifetimeName(cfg.manager)))
	return nil
}

// RegisterInstance 注册现成的实例，解析时直接返回它而不经过构建。
// 默认使用 ContainerControlled（容器释放时释放实例），可用 WithExternal 改为不拥有。
func (c *Container) RegisterInstance(typ reflect.Type, instance any, opts ...RegisterOption) error {
	if err := c.checkDisposed(); err != nil {
		return err
	}
	if typ == nil {
		return fmt.Errorf("%w: 注册类型为 nil", builder.ErrArgumentNull)
	}
	if instance == nil {
		return fmt.Errorf("%w: 实例为 nil", builder.ErrArgumentNull)
	}
	if actual := reflect.TypeOf(instance); !actual.AssignableTo(typ) {
		return builder.NewTypeMismatchError(typ, actual)
	}

	cfg := registerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.manager == nil {
		cfg.manager = lifetime.NewContainerControlled()
	}
	key := builder.NewBuildKey(typ, cfg.name)

	if err := cfg.manager.Attach(); err != nil {
		return fmt.Errorf("container: 注册 %s 失败: %w", key, err)
	}
	cfg.manager.SetValue(instance)

	c.policies.Clear(builder.BuildKeyMappingPolicyKind, key)
	c.setLifetime(key, cfg.manager)
	c.addRegistration(&Registration{Key: key, Lifetime: cfg.manager})

	c.logger.Debug("注册实例", logging.F("key", key), logging.F("lifetime", lifetimeName(cfg.manager)))
	return nil
}

// RegisterFactory 用构造函数注册 typ
func (c *Container) RegisterFactory(typ reflect.Type, fn any, opts ...RegisterOption) error {
	return c.RegisterType(typ, typ, append([]RegisterOption{WithConstructor(fn)}, opts...)...)
}

// RegisterGeneric 为泛型定义的所有闭合类型注册生命周期工厂，plan 为 nil 时只注册生命周期。
//
// 每个闭合类型第一次解析时由 factory 创建独立的生命周期管理器。
func (c *Container) RegisterGeneric(def builder.GenericDefinition, factory *lifetime.Factory, plan builder.BuildPlanPolicy) error {
	if err := c.checkDisposed(); err != nil {
		return err
	}
	if def.Name == "" || factory == nil {
		return fmt.Errorf("%w: 泛型定义或生命周期工厂为空", builder.ErrArgumentNull)
	}
	if err := factory.Attach(); err != nil {
		return fmt.Errorf("container: 注册 %s 失败: %w", def, err)
	}
	c.policies.Set(builder.LifetimeFactoryPolicyKind, def, factory)
	if plan != nil {
		c.policies.Set(builder.BuildPlanPolicyKind, def, plan)
	}
	c.logger.Debug("注册泛型", logging.F("definition", def))
	return nil
}

// Unregister 移除注册并释放其生命周期管理器。
// 只有拥有型管理器会释放持有的实例。
func (c *Container) Unregister(key builder.BuildKey) error {
	c.mu.Lock()
	reg, ok := c.registrations[key]
	planTarget, planInUse := key, false
	if ok {
		delete(c.registrations, key)
		for i, k := range c.order {
			if k == key {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
		if !reg.MappedTo.IsZero() {
			planTarget = reg.MappedTo
		}
		// 其他注册仍指向同一目标时保留它的构建计划
		for _, other := range c.registrations {
			if other.Key == planTarget || other.MappedTo == planTarget {
				planInUse = true
				break
			}
		}
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("container: %s 未注册: %w", key, builder.ErrNotRegistered)
	}

	c.policies.Clear(builder.BuildKeyMappingPolicyKind, key)
	c.policies.Clear(builder.LifetimePolicyKind, key)
	if !planInUse {
		c.policies.Clear(builder.BuildPlanPolicyKind, planTarget)
	}
	if reg.Lifetime == nil {
		return nil
	}
	c.lifetime.Remove(reg.Lifetime)
	return reg.Lifetime.Dispose()
}

func (c *Container) setLifetime(key builder.BuildKey, m lifetime.Manager) {
	if m == nil {
		c.policies.Clear(builder.LifetimePolicyKind, key)
		return
	}
	c.policies.Set(builder.LifetimePolicyKind, key, m)
	c.lifetime.Add(m)
}

func (c *Container) addRegistration(reg *Registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.registrations[reg.Key]; exists {
		c.logger.Debug("覆盖已有注册", logging.F("key", reg.Key))
	} else {
		c.order = append(c.order, reg.Key)
	}
	c.registrations[reg.Key] = reg
}

func lifetimeName(m lifetime.Manager) string {
	switch m.(type) {
	case nil, *lifetime.Transient:
		return "transient"
	case *lifetime.ContainerControlled:
		return "singleton"
	case *lifetime.ExternallyControlled:
		return "external"
	case *lifetime.Hierarchical:
		return "hierarchical"
	case *lifetime.PerResolve:
		return "perresolve"
	default:
		return fmt.Sprintf("%T", m)
	}
}

// RegisterType 泛型版本：把 TFrom 映射到 TTo
func RegisterType[TFrom, TTo any](c *Container, opts ...RegisterOption) error {
	return c.RegisterType(builder.TypeOf[TFrom](), builder.TypeOf[TTo](), opts...)
}

// RegisterInstance 泛型版本
func RegisterInstance[T any](c *Container, instance T, opts ...RegisterOption) error {
	return c.RegisterInstance(builder.TypeOf[T](), instance, opts...)
}

// RegisterFactory 泛型版本，工厂函数不经过反射
//
// 示例：
//
//	container.RegisterFactory(c, func(r builder.Resolver) (*UserService, error) {
//		repo, err := container.Resolve[*UserRepo](r)
//		if err != nil {
//			return nil, err
//		}
//		return &UserService{repo: repo}, nil
//	}, container.WithSingleton())
func RegisterFactory[T any](c *Container, fn func(r builder.Resolver) (T, error), opts ...RegisterOption) error {
	plan := WithFactory(func(r builder.Resolver) (any, error) {
		return fn(r)
	})
	return c.RegisterType(builder.TypeOf[T](), nil, append([]RegisterOption{plan}, opts...)...)
}
