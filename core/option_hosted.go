package core

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/hosting"
)

var hostedServiceType = reflect.TypeOf((*hosting.HostedService)(nil)).Elem()

// WithHostedService 用构造函数注册托管服务（容器单例）。
// 服务在 Runtime.Start 时从容器解析，构造函数的参数按类型注入。
func WithHostedService(constructor any) Option {
	return func(rt *Runtime) error {
		plan, err := builder.NewConstructorPlan(constructor)
		if err != nil {
			return fmt.Errorf("core: 托管服务构造函数无效: %w", err)
		}
		typ := plan.ResultType()
		if !typ.Implements(hostedServiceType) {
			return fmt.Errorf("core: %v 没有实现 hosting.HostedService", typ)
		}
		if err := rt.Container.RegisterFactory(typ, constructor, container.WithSingleton()); err != nil {
			return err
		}
		rt.hostedKeys = append(rt.hostedKeys, builder.NewBuildKey(typ, ""))
		return nil
	}
}

// WithWorker 把阻塞函数注册为托管服务，Stop 时取消它的上下文
func WithWorker(name string, fn func(ctx context.Context) error) Option {
	return func(rt *Runtime) error {
		w := hosting.NewWorker(name, fn, rt.Logger)
		return addHostedInstance(rt, name, w)
	}
}

// WithTimer 按间隔执行任务
func WithTimer(name string, interval time.Duration, task func(ctx context.Context) error) Option {
	return func(rt *Runtime) error {
		s := hosting.NewTimedHostedService(name, interval, task, rt.Logger)
		return addHostedInstance(rt, name, s)
	}
}

func addHostedInstance(rt *Runtime, name string, svc hosting.HostedService) error {
	if err := container.RegisterInstance(rt.Container, svc, container.WithName(name)); err != nil {
		return err
	}
	rt.hostedKeys = append(rt.hostedKeys, builder.KeyOf[hosting.HostedService](name))
	return nil
}
