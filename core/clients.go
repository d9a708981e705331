package core

import (
	"fmt"
	"reflect"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/container"
)

// DefaultClientName 同时注册为无名键的客户端名称
const DefaultClientName = "default"

// ClientFactory 按名称持有一组客户端，释放时关闭它们
type ClientFactory[T any] interface {
	Names() []string
	Get(name string) (T, error)
	Close() error
}

// RegisterClients 把客户端工厂注册到根容器（容器拥有，释放时关闭），
// 再把每个客户端注册为同名的外部实例；名为 default 的客户端也可以不带名称解析。
func RegisterClients[T any](rt *Runtime, factory ClientFactory[T]) error {
	if err := rt.Container.RegisterInstance(reflect.TypeOf(factory), factory); err != nil {
		return err
	}

	typ := builder.TypeOf[T]()
	for _, name := range factory.Names() {
		client, err := factory.Get(name)
		if err != nil {
			return err
		}
		if err := rt.Container.RegisterInstance(typ, client, container.WithName(name), container.WithExternal()); err != nil {
			return fmt.Errorf("core: 注册客户端 %q 失败: %w", name, err)
		}
		if name == DefaultClientName {
			if err := rt.Container.RegisterInstance(typ, client, container.WithExternal()); err != nil {
				return fmt.Errorf("core: 注册默认客户端失败: %w", err)
			}
		}
	}
	return nil
}
