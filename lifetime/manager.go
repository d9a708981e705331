// Package lifetime 提供可插拔的实例缓存策略（生命周期管理器）。
//
// 所有管理器都实现 builder.LifetimePolicy，并显式声明所有权：
//   - Owning：容器释放时一并释放持有的实例
//   - NonOwning：只持有引用，不负责释放
//   - SingleUse：每次解析一个实例
package lifetime

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gocrud/ioc/builder"
)

// Ownership 管理器对缓存实例的所有权
type Ownership int

const (
	Owning Ownership = iota
	NonOwning
	SingleUse
)

func (o Ownership) String() string {
	switch o {
	case Owning:
		return "Owning"
	case NonOwning:
		return "NonOwning"
	case SingleUse:
		return "SingleUse"
	default:
		return fmt.Sprintf("Ownership(%d)", int(o))
	}
}

// Manager 生命周期管理器
type Manager interface {
	builder.LifetimePolicy
	builder.Disposable

	Ownership() Ownership
	// Attach 把管理器绑定到一个注册，已绑定时返回 builder.ErrLifetimeManagerInUse
	Attach() error
	InUse() bool
}

// slot 管理器共用的状态：一个值槽位和绑定标记
type slot struct {
	mu    sync.RWMutex
	value any
	inUse atomic.Bool
}

func (s *slot) GetValue() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *slot) SetValue(v any) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}

func (s *slot) RemoveValue() {
	s.mu.Lock()
	s.value = nil
	s.mu.Unlock()
}

func (s *slot) take() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.value
	s.value = nil
	return v
}

func (s *slot) Attach() error {
	if !s.inUse.CompareAndSwap(false, true) {
		return builder.ErrLifetimeManagerInUse
	}
	return nil
}

func (s *slot) InUse() bool {
	return s.inUse.Load()
}

// Transient 从不缓存，每次解析都重新构建
type Transient struct {
	inUse atomic.Bool
}

func NewTransient() *Transient {
	return &Transient{}
}

func (*Transient) GetValue() any        { return nil }
func (*Transient) SetValue(any)         {}
func (*Transient) RemoveValue()         {}
func (*Transient) IsTransient() bool    { return true }
func (*Transient) Ownership() Ownership { return NonOwning }
func (*Transient) Dispose() error       { return nil }

func (t *Transient) Attach() error {
	if !t.inUse.CompareAndSwap(false, true) {
		return builder.ErrLifetimeManagerInUse
	}
	return nil
}

func (t *Transient) InUse() bool {
	return t.inUse.Load()
}

// ContainerControlled 单例：实例与所属容器同生命周期，容器释放时释放实例
type ContainerControlled struct {
	slot
}

func NewContainerControlled() *ContainerControlled {
	return &ContainerControlled{}
}

func (*ContainerControlled) Ownership() Ownership { return Owning }

// Dispose 释放持有的实例（实现了 builder.Disposable 或 io.Closer 时）
func (m *ContainerControlled) Dispose() error {
	return builder.DisposeValue(m.take())
}

// ExternallyControlled 只持有引用，实例的生命周期由外部负责
type ExternallyControlled struct {
	slot
}

func NewExternallyControlled() *ExternallyControlled {
	return &ExternallyControlled{}
}

func (*ExternallyControlled) Ownership() Ownership { return NonOwning }

// Dispose 只丢弃引用
func (m *ExternallyControlled) Dispose() error {
	m.RemoveValue()
	return nil
}

// Hierarchical 容器层级中每个容器持有一份实例
type Hierarchical struct {
	slot
}

func NewHierarchical() *Hierarchical {
	return &Hierarchical{}
}

func (*Hierarchical) Ownership() Ownership { return Owning }

func (m *Hierarchical) Dispose() error {
	return builder.DisposeValue(m.take())
}

// CloneForContainer 为子容器创建一份已绑定的新管理器
func (m *Hierarchical) CloneForContainer() builder.LifetimePolicy {
	clone := NewHierarchical()
	clone.inUse.Store(true)
	return clone
}

// PerResolve 在一次顶层解析中共享同一个实例，不同解析之间互不影响
type PerResolve struct {
	inUse atomic.Bool
}

func NewPerResolve() *PerResolve {
	return &PerResolve{}
}

func (*PerResolve) GetValue() any        { return nil }
func (*PerResolve) SetValue(any)         {}
func (*PerResolve) RemoveValue()         {}
func (*PerResolve) Ownership() Ownership { return SingleUse }
func (*PerResolve) Dispose() error       { return nil }

func (m *PerResolve) Attach() error {
	if !m.inUse.CompareAndSwap(false, true) {
		return builder.ErrLifetimeManagerInUse
	}
	return nil
}

func (m *PerResolve) InUse() bool {
	return m.inUse.Load()
}

// NewRequestSlot 为本次解析创建独立槽位
func (m *PerResolve) NewRequestSlot() builder.LifetimePolicy {
	return &requestSlot{}
}

type requestSlot struct {
	slot
}

// Parse 按名称创建管理器，供配置使用
func Parse(name string) (Manager, error) {
	switch name {
	case "", "transient":
		return NewTransient(), nil
	case "singleton", "container":
		return NewContainerControlled(), nil
	case "external", "externally":
		return NewExternallyControlled(), nil
	case "hierarchical":
		return NewHierarchical(), nil
	case "perresolve", "per-resolve":
		return NewPerResolve(), nil
	}
	return nil, fmt.Errorf("lifetime: 未知的生命周期 %q", name)
}
