package container

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/lifetime"
	"github.com/gocrud/ioc/logging"
)

// ResolveOption 调整单次解析，只影响本次请求
type ResolveOption func(ctx *builder.Context)

// WithDependency 本次解析中 key 直接使用 value，包括间接依赖
func WithDependency(key builder.BuildKey, value any) ResolveOption {
	return func(ctx *builder.Context) {
		slot := lifetime.NewExternallyControlled()
		slot.SetValue(value)
		ctx.Policies.Set(builder.LifetimePolicyKind, key, slot)
	}
}

// WithOverride 本次解析中用 policy 覆盖 (kind, target) 上的策略
func WithOverride(kind builder.PolicyKind, target builder.PolicyTarget, policy any) ResolveOption {
	return func(ctx *builder.Context) {
		ctx.Policies.Set(kind, target, policy)
	}
}

// Resolve 实现 builder.Resolver
func (c *Container) Resolve(key builder.BuildKey) (any, error) {
	return c.ResolveWith(key)
}

// ResolveWith 解析 key，失败时返回 *builder.ResolutionFailedError
func (c *Container) ResolveWith(key builder.BuildKey, opts ...ResolveOption) (any, error) {
	if err := c.checkDisposed(); err != nil {
		return nil, err
	}
	if key.Type == nil {
		return nil, fmt.Errorf("%w: 构建键类型为 nil", builder.ErrArgumentNull)
	}

	ctx := builder.NewContext(c.strategies.MakeStrategyChain(), c.policies, c.lifetime, key)
	for _, opt := range opts {
		opt(ctx)
	}

	v, err := builder.Execute(ctx)
	if err != nil {
		c.logger.Debug("解析失败", logging.F("key", key), logging.Err(err))
		return nil, err
	}
	c.logger.Trace("解析完成", logging.F("key", key))
	return v, nil
}

// IsRegistered 当前容器或祖先容器中是否有 key 的注册
func (c *Container) IsRegistered(key builder.BuildKey) bool {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		_, ok := cur.registrations[key]
		cur.mu.RUnlock()
		if ok {
			return true
		}
	}
	return false
}

// Registrations 返回所有可见的注册：祖先在前，子容器的同名注册覆盖祖先
func (c *Container) Registrations() []Registration {
	var chain []*Container
	for cur := c; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}

	index := make(map[builder.BuildKey]int)
	var out []Registration
	for i := len(chain) - 1; i >= 0; i-- {
		cur := chain[i]
		cur.mu.RLock()
		for _, key := range cur.order {
			reg := *cur.registrations[key]
			if at, ok := index[key]; ok {
				out[at] = reg
				continue
			}
			index[key] = len(out)
			out = append(out, reg)
		}
		cur.mu.RUnlock()
	}
	return out
}

// TearDown 对实例执行拆除链：从缓存中移除并释放它（Disposable 或 io.Closer）
func (c *Container) TearDown(obj any) error {
	if obj == nil {
		return fmt.Errorf("%w: 实例为 nil", builder.ErrArgumentNull)
	}
	return c.TearDownAs(builder.NewBuildKey(reflect.TypeOf(obj), ""), obj)
}

// TearDownAs 按指定的注册键拆除实例，用于按接口注册的单例
func (c *Container) TearDownAs(key builder.BuildKey, obj any) error {
	if obj == nil {
		return fmt.Errorf("%w: 实例为 nil", builder.ErrArgumentNull)
	}
	ctx := builder.NewContext(c.strategies.MakeStrategyChain(), c.policies, c.lifetime, key)
	ctx.Existing = obj
	if err := ctx.Strategies.ExecuteTearDown(ctx); err != nil {
		return fmt.Errorf("container: 拆除 %s 失败: %w", key, err)
	}
	return nil
}

// disposeStrategy 拆除时释放实例
type disposeStrategy struct{}

func (s *disposeStrategy) PreBuildUp(*builder.Context) error  { return nil }
func (s *disposeStrategy) PostBuildUp(*builder.Context) error { return nil }

func (s *disposeStrategy) TearDown(ctx *builder.Context) error {
	return builder.DisposeValue(ctx.Existing)
}

// Resolve 解析类型 T 的默认注册
func Resolve[T any](r builder.Resolver) (T, error) {
	return ResolveNamed[T](r, "")
}

// ResolveNamed 解析类型 T 的命名注册
func ResolveNamed[T any](r builder.Resolver, name string) (T, error) {
	var zero T
	key := builder.KeyOf[T](name)
	v, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, builder.NewTypeMismatchError(key.Type, reflect.TypeOf(v))
	}
	return t, nil
}

// MustResolve 解析失败时 panic，用于启动阶段
func MustResolve[T any](r builder.Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveAll 解析类型 T 的所有注册：默认注册在前，命名注册按名称排序
func ResolveAll[T any](c *Container) ([]T, error) {
	typ := builder.TypeOf[T]()
	var names []string
	hasDefault := false
	for _, reg := range c.Registrations() {
		if reg.Key.Type != typ {
			continue
		}
		if reg.Key.Name == "" {
			hasDefault = true
			continue
		}
		names = append(names, reg.Key.Name)
	}
	sort.Strings(names)
	if hasDefault {
		names = append([]string{""}, names...)
	}

	out := make([]T, 0, len(names))
	for _, name := range names {
		v, err := ResolveNamed[T](c, name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
