package builder

import (
	"fmt"
	"reflect"
)

// Resolver 按构建键解析对象。Context 和容器都实现它。
type Resolver interface {
	Resolve(key BuildKey) (any, error)
}

// Context 单次构建请求的可变状态，贯穿整条策略链。
//
// 每次顶层解析创建一个 Context，每个递归依赖再创建一个子 Context。
// 子 Context 与父 Context 共享请求层策略、持久策略、生命周期容器和策略链，
// 但拥有自己的恢复栈。Context 不应在 goroutine 之间共享。
type Context struct {
	// OriginalBuildKey 请求的原始键，创建后不再改变
	OriginalBuildKey BuildKey
	// BuildKey 当前键，映射策略可能会替换它
	BuildKey BuildKey
	// Existing 正在构建或已经构建好的对象，nil 表示尚未构建
	Existing any
	// BuildComplete 为 true 时跳过剩余策略的 PreBuildUp
	BuildComplete bool

	RecoveryStack      *RecoveryStack
	PersistentPolicies *PolicyList
	Policies           *RequestPolicies
	Lifetime           *LifetimeContainer
	Strategies         *StrategyChain

	parent *Context
}

// NewContext 为顶层解析创建上下文
func NewContext(strategies *StrategyChain, persistent *PolicyList, lifetime *LifetimeContainer, key BuildKey) *Context {
	return &Context{
		OriginalBuildKey:   key,
		BuildKey:           key,
		RecoveryStack:      NewRecoveryStack(),
		PersistentPolicies: persistent,
		Policies:           NewRequestPolicies(persistent),
		Lifetime:           lifetime,
		Strategies:         strategies,
	}
}

// Parent 返回父上下文，顶层上下文返回 nil
func (c *Context) Parent() *Context {
	return c.parent
}

// Depth 当前上下文在解析链中的深度，顶层为 0
func (c *Context) Depth() int {
	depth := 0
	for p := c.parent; p != nil; p = p.parent {
		depth++
	}
	return depth
}

// InProgress 判断 key 是否正在这条解析链上构建
func (c *Context) InProgress(key BuildKey) bool {
	for p := c; p != nil; p = p.parent {
		if p.OriginalBuildKey == key || p.BuildKey == key {
			return true
		}
	}
	return false
}

// NewBuildUp 在子上下文中解析依赖。
// 若 key 已在当前解析链上，返回 ErrCircularDependency 而不是无限递归。
func (c *Context) NewBuildUp(key BuildKey) (any, error) {
	if key.Type == nil {
		return nil, fmt.Errorf("%w: 构建键类型为 nil", ErrArgumentNull)
	}
	if c.InProgress(key) {
		return nil, &ResolutionFailedError{OriginalKey: key, MappedKey: key, Err: circularError(c, key)}
	}
	child := &Context{
		OriginalBuildKey:   key,
		BuildKey:           key,
		RecoveryStack:      NewRecoveryStack(),
		PersistentPolicies: c.PersistentPolicies,
		Policies:           c.Policies,
		Lifetime:           c.Lifetime,
		Strategies:         c.Strategies,
		parent:             c,
	}
	return Execute(child)
}

// Resolve 实现 Resolver，等价于 NewBuildUp
func (c *Context) Resolve(key BuildKey) (any, error) {
	return c.NewBuildUp(key)
}

// Execute 对上下文执行构建链并返回结果。
// 任何失败都包装为 *ResolutionFailedError，失败时不会返回部分构建的对象。
func Execute(ctx *Context) (any, error) {
	if err := ctx.Strategies.ExecuteBuildUp(ctx); err != nil {
		return nil, &ResolutionFailedError{OriginalKey: ctx.OriginalBuildKey, MappedKey: ctx.BuildKey, Err: err}
	}
	if ctx.Existing == nil {
		return nil, &ResolutionFailedError{OriginalKey: ctx.OriginalBuildKey, MappedKey: ctx.BuildKey, Err: ErrNotRegistered}
	}
	return ctx.Existing, nil
}

// PolicyAs 查找策略并断言为 P
func PolicyAs[P any](set PolicySet, kind PolicyKind, target PolicyTarget) (P, bool) {
	var zero P
	raw, _ := set.Get(kind, target)
	if raw == nil {
		return zero, false
	}
	p, ok := raw.(P)
	return p, ok
}

// sameInstance 判断两个值是否为同一实例，不可比较的类型不会 panic
func sameInstance(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return safeEqual(a, b)
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	return false
}

// 可比较的结构体里仍可能含有不可比较的动态值
func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
