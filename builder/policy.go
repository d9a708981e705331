package builder

import (
	"sync"
)

// PolicyKind 策略能力标签，与 PolicyTarget 一起组成查找键。
//
// 扩展可以定义自己的 PolicyKind，约定使用 "包名.名称" 的形式避免冲突。
type PolicyKind string

const (
	BuildKeyMappingPolicyKind PolicyKind = "builder.BuildKeyMapping"
	LifetimePolicyKind        PolicyKind = "builder.Lifetime"
	LifetimeFactoryPolicyKind PolicyKind = "builder.LifetimeFactory"
	BuildPlanPolicyKind       PolicyKind = "builder.BuildPlan"
)

type policyKey struct {
	kind   PolicyKind
	target PolicyTarget
}

// PolicySet 策略查询接口，持久层 PolicyList 和请求层 RequestPolicies 都实现它
type PolicySet interface {
	// Get 先查找键相关策略，找不到时返回该类别的默认策略
	Get(kind PolicyKind, target PolicyTarget) (any, *PolicyList)
	// GetNoDefault 只查找键相关策略
	GetNoDefault(kind PolicyKind, target PolicyTarget) (any, *PolicyList)
	// Set 设置键相关策略
	Set(kind PolicyKind, target PolicyTarget, policy any)
	// Clear 删除键相关策略
	Clear(kind PolicyKind, target PolicyTarget)
}

// PolicyList 持久策略存储，可链接到父容器的列表
type PolicyList struct {
	mu       sync.RWMutex
	parent   *PolicyList
	policies map[policyKey]any
	defaults map[PolicyKind]any
	lifetime *LifetimeContainer
}

// NewPolicyList 创建策略列表，parent 可以为 nil
func NewPolicyList(parent *PolicyList) *PolicyList {
	return &PolicyList{
		parent:   parent,
		policies: make(map[policyKey]any),
		defaults: make(map[PolicyKind]any),
	}
}

// Parent 返回父列表
func (l *PolicyList) Parent() *PolicyList {
	return l.parent
}

// SetLifetime 设置拥有该列表的容器的生命周期容器，
// 安装到该列表中的策略由它跟踪并随容器释放
func (l *PolicyList) SetLifetime(lc *LifetimeContainer) {
	l.mu.Lock()
	l.lifetime = lc
	l.mu.Unlock()
}

// Lifetime 返回 SetLifetime 设置的生命周期容器，未设置时为 nil
func (l *PolicyList) Lifetime() *LifetimeContainer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lifetime
}

// Get 沿父链查找策略，返回策略及其所在的列表
func (l *PolicyList) Get(kind PolicyKind, target PolicyTarget) (any, *PolicyList) {
	if p, list := l.GetNoDefault(kind, target); p != nil {
		return p, list
	}
	return l.GetDefault(kind)
}

// GetNoDefault 沿父链只查找键相关策略
func (l *PolicyList) GetNoDefault(kind PolicyKind, target PolicyTarget) (any, *PolicyList) {
	k := policyKey{kind: kind, target: target}
	for list := l; list != nil; list = list.parent {
		list.mu.RLock()
		p, ok := list.policies[k]
		list.mu.RUnlock()
		if ok {
			return p, list
		}
	}
	return nil, nil
}

// GetDefault 沿父链查找默认策略
func (l *PolicyList) GetDefault(kind PolicyKind) (any, *PolicyList) {
	for list := l; list != nil; list = list.parent {
		list.mu.RLock()
		p, ok := list.defaults[kind]
		list.mu.RUnlock()
		if ok {
			return p, list
		}
	}
	return nil, nil
}

// GetLocal 只在当前列表中查找，不访问父链
func (l *PolicyList) GetLocal(kind PolicyKind, target PolicyTarget) (any, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.policies[policyKey{kind: kind, target: target}]
	return p, ok
}

func (l *PolicyList) Set(kind PolicyKind, target PolicyTarget, policy any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.policies[policyKey{kind: kind, target: target}] = policy
}

// SetIfAbsent 仅当当前列表中不存在时写入。
// 返回最终生效的策略，以及本次是否写入成功。
func (l *PolicyList) SetIfAbsent(kind PolicyKind, target PolicyTarget, policy any) (any, bool) {
	k := policyKey{kind: kind, target: target}
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.policies[k]; ok {
		return existing, false
	}
	l.policies[k] = policy
	return policy, true
}

// SetDefault 设置某类别的默认策略
func (l *PolicyList) SetDefault(kind PolicyKind, policy any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defaults[kind] = policy
}

func (l *PolicyList) Clear(kind PolicyKind, target PolicyTarget) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.policies, policyKey{kind: kind, target: target})
}

// ClearDefault 删除某类别的默认策略
func (l *PolicyList) ClearDefault(kind PolicyKind) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.defaults, kind)
}

// Targets 返回当前列表中某类别下的所有目标（不含父链）
func (l *PolicyList) Targets(kind PolicyKind) []PolicyTarget {
	l.mu.RLock()
	defer l.mu.RUnlock()
	targets := make([]PolicyTarget, 0)
	for k := range l.policies {
		if k.kind == kind {
			targets = append(targets, k.target)
		}
	}
	return targets
}

// RequestPolicies 单次解析请求的策略视图。
//
// 覆盖层只在本次请求内可见，总是优先于持久层中相同 (kind, target) 的策略。
// 同一次解析中的所有子上下文共享同一个 RequestPolicies。
type RequestPolicies struct {
	mu         sync.Mutex
	persistent *PolicyList
	overrides  map[policyKey]any
}

// NewRequestPolicies 创建基于持久层的请求视图
func NewRequestPolicies(persistent *PolicyList) *RequestPolicies {
	return &RequestPolicies{
		persistent: persistent,
		overrides:  make(map[policyKey]any),
	}
}

// Get 覆盖层优先；覆盖层命中时返回的列表为 nil
func (r *RequestPolicies) Get(kind PolicyKind, target PolicyTarget) (any, *PolicyList) {
	if p, ok := r.override(kind, target); ok {
		return p, nil
	}
	return r.persistent.Get(kind, target)
}

func (r *RequestPolicies) GetNoDefault(kind PolicyKind, target PolicyTarget) (any, *PolicyList) {
	if p, ok := r.override(kind, target); ok {
		return p, nil
	}
	return r.persistent.GetNoDefault(kind, target)
}

// Set 只写入覆盖层，不影响持久层
func (r *RequestPolicies) Set(kind PolicyKind, target PolicyTarget, policy any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[policyKey{kind: kind, target: target}] = policy
}

// Clear 只删除覆盖层中的策略
func (r *RequestPolicies) Clear(kind PolicyKind, target PolicyTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, policyKey{kind: kind, target: target})
}

func (r *RequestPolicies) override(kind PolicyKind, target PolicyTarget) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.overrides[policyKey{kind: kind, target: target}]
	return p, ok
}
