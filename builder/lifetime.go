package builder

import (
	"fmt"
)

// LifetimePolicy 实例缓存策略
type LifetimePolicy interface {
	// GetValue 返回缓存的实例，没有时返回 nil
	GetValue() any
	SetValue(v any)
	RemoveValue()
}

// LifetimeFactoryPolicy 为每个闭合泛型类型创建独立的生命周期策略
type LifetimeFactoryPolicy interface {
	CreateLifetimePolicy() (LifetimePolicy, error)
}

// TransientPolicy 标记从不缓存的生命周期策略，这类策略不会被安装到共享存储中
type TransientPolicy interface {
	IsTransient() bool
}

// HierarchicalPolicy 在容器层级中每个容器各持有一份的策略。
// 在祖先容器中找到时，会克隆一份安装到当前容器。
type HierarchicalPolicy interface {
	LifetimePolicy
	CloneForContainer() LifetimePolicy
}

// RequestScopedPolicy 每次顶层解析使用一个独立槽位的策略
type RequestScopedPolicy interface {
	LifetimePolicy
	NewRequestSlot() LifetimePolicy
}

// 请求层中固定本次解析所用的生命周期策略
const pinnedLifetimePolicyKind PolicyKind = "builder.pinnedLifetime"

type pinnedLifetime struct {
	policy    LifetimePolicy
	populated bool
}

// Recover 回滚本次请求写入的缓存，再交给策略自身的恢复逻辑
func (p *pinnedLifetime) Recover() {
	if p.populated {
		p.policy.RemoveValue()
		p.populated = false
	}
	if r, ok := p.policy.(Recoverable); ok {
		r.Recover()
	}
}

// LifetimeStrategy 按生命周期策略缓存与取回实例
type LifetimeStrategy struct{}

func (s *LifetimeStrategy) PreBuildUp(ctx *Context) error {
	if ctx.Existing != nil {
		return nil
	}

	policy, err := s.lifetimePolicyFor(ctx)
	if err != nil || policy == nil {
		return err
	}

	pin := &pinnedLifetime{policy: policy}
	ctx.Policies.Set(pinnedLifetimePolicyKind, ctx.OriginalBuildKey, pin)
	ctx.RecoveryStack.Push(pin)

	if v := policy.GetValue(); v != nil {
		ctx.Existing = v
		ctx.BuildComplete = true
	}
	return nil
}

func (s *LifetimeStrategy) PostBuildUp(ctx *Context) error {
	raw, _ := ctx.Policies.GetNoDefault(pinnedLifetimePolicyKind, ctx.OriginalBuildKey)
	pin, ok := raw.(*pinnedLifetime)
	if !ok || ctx.Existing == nil {
		return nil
	}
	if !sameInstance(pin.policy.GetValue(), ctx.Existing) {
		pin.policy.SetValue(ctx.Existing)
		pin.populated = true
	}
	return nil
}

// TearDown 从当前容器拥有的缓存中移除被拆除的对象
func (s *LifetimeStrategy) TearDown(ctx *Context) error {
	if ctx.Existing == nil {
		return nil
	}
	raw, _ := ctx.Policies.GetNoDefault(LifetimePolicyKind, ctx.OriginalBuildKey)
	if policy, ok := raw.(LifetimePolicy); ok && sameInstance(policy.GetValue(), ctx.Existing) {
		policy.RemoveValue()
	}
	return nil
}

func (s *LifetimeStrategy) lifetimePolicyFor(ctx *Context) (LifetimePolicy, error) {
	key := ctx.OriginalBuildKey

	raw, list := ctx.Policies.GetNoDefault(LifetimePolicyKind, key)
	if raw != nil {
		policy, ok := raw.(LifetimePolicy)
		if !ok {
			return nil, fmt.Errorf("builder: %s 的生命周期策略类型 %T 无效", key, raw)
		}
		// list 为 nil 表示来自请求层
		if list == nil {
			return policy, nil
		}
		if rs, ok := policy.(RequestScopedPolicy); ok {
			slot := rs.NewRequestSlot()
			ctx.Policies.Set(LifetimePolicyKind, key, slot)
			return slot, nil
		}
		if h, ok := policy.(HierarchicalPolicy); ok && list != ctx.PersistentPolicies {
			return install(ctx.PersistentPolicies, ctx.Lifetime, key, h.CloneForContainer()), nil
		}
		return policy, nil
	}

	def, ok := GenericDefinitionOf(key.Type)
	if !ok {
		return nil, nil
	}
	raw, source := ctx.Policies.GetNoDefault(LifetimeFactoryPolicyKind, def)
	if raw == nil {
		return nil, nil
	}
	factory, ok := raw.(LifetimeFactoryPolicy)
	if !ok {
		return nil, fmt.Errorf("builder: %s 的生命周期工厂类型 %T 无效", def, raw)
	}

	// 工厂可能重入解析，必须在锁外调用
	created, err := factory.CreateLifetimePolicy()
	if err != nil {
		return nil, fmt.Errorf("builder: 为 %s 创建生命周期策略失败: %w", key, err)
	}
	if created == nil {
		return nil, nil
	}
	if _, ok := created.(HierarchicalPolicy); ok {
		return install(ctx.PersistentPolicies, ctx.Lifetime, key, created), nil
	}

	// 闭合类型的策略属于注册泛型的容器，后代容器共享同一份
	lc := ctx.Lifetime
	if source == nil {
		source = ctx.PersistentPolicies
	} else if owner := source.Lifetime(); owner != nil {
		lc = owner
	}
	return install(source, lc, key, created), nil
}

// install 把新建的策略安装到 list，并由 lc 跟踪。
// 已有其他 goroutine 抢先安装时保留本地实例，本地实例只用于当前解析，
// 同样交给 lc 跟踪，使它缓存的实例随容器释放。
func install(list *PolicyList, lc *LifetimeContainer, key BuildKey, policy LifetimePolicy) LifetimePolicy {
	if t, ok := policy.(TransientPolicy); ok && t.IsTransient() {
		return policy
	}
	list.SetIfAbsent(LifetimePolicyKind, key, policy)
	lc.Add(policy)
	return policy
}
