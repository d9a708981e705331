package lifetime

import (
	"sync/atomic"

	"github.com/gocrud/ioc/builder"
)

// Factory 为每个闭合泛型类型创建独立的管理器。
//
// 示例：
//
//	// 每个 Repository[T] 各自是单例
//	c.RegisterGeneric(builder.GenericOf[*Repository[any]](), lifetime.NewFactory(func() lifetime.Manager {
//		return lifetime.NewContainerControlled()
//	}), builder.ZeroValuePlan{})
type Factory struct {
	newManager func() Manager
	inUse      atomic.Bool
}

// NewFactory 创建生命周期工厂
func NewFactory(newManager func() Manager) *Factory {
	return &Factory{newManager: newManager}
}

// SingletonFactory 每个闭合类型一个单例
func SingletonFactory() *Factory {
	return NewFactory(func() Manager { return NewContainerControlled() })
}

// TransientFactory 闭合类型不缓存
func TransientFactory() *Factory {
	return NewFactory(func() Manager { return NewTransient() })
}

// CreateLifetimePolicy 实现 builder.LifetimeFactoryPolicy。
// newManager 必须每次返回新的管理器，返回已绑定的管理器时报 builder.ErrLifetimeManagerInUse。
func (f *Factory) CreateLifetimePolicy() (builder.LifetimePolicy, error) {
	m := f.newManager()
	if m == nil {
		return nil, nil
	}
	if err := m.Attach(); err != nil {
		return nil, err
	}
	return m, nil
}

// Attach 把工厂绑定到一个泛型注册
func (f *Factory) Attach() error {
	if !f.inUse.CompareAndSwap(false, true) {
		return builder.ErrLifetimeManagerInUse
	}
	return nil
}
