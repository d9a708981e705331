package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/hosting"
	"github.com/gocrud/ioc/logging"
)

// Runtime 应用运行时：容器、生命周期和构建期特性
type Runtime struct {
	// Features 构建期特性（web.Builder、cron.Builder 等）
	Features FeatureCollection

	// Container 根容器，Stop 时释放
	Container *container.Container

	Lifecycle *LifecycleEvents
	Hosted    *hosting.HostedServiceManager
	Logger    logging.Logger

	// ErrorHandler 记录运行期的严重错误，默认写到标准错误
	ErrorHandler func(err error)

	hostedKeys []builder.BuildKey

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	cancelHosted context.CancelFunc
}

// NewRuntime 创建运行时，opts 用于配置根容器
func NewRuntime(opts ...container.Option) *Runtime {
	rt := &Runtime{
		Container:  container.New(opts...),
		Lifecycle:  NewLifecycle(),
		shutdownCh: make(chan struct{}),
		ErrorHandler: func(err error) {
			fmt.Fprintf(os.Stderr, "[Runtime Error] %v\n", err)
		},
	}
	rt.Logger = rt.Container.Logger()
	rt.Hosted = hosting.NewHostedServiceManager(rt.Logger)
	return rt
}

// Apply 依次应用 Option，遇到错误立即返回
func (rt *Runtime) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown 请求应用退出，可重复调用
func (rt *Runtime) Shutdown() {
	rt.shutdownOnce.Do(func() { close(rt.shutdownCh) })
}

// Done 应用需要退出时关闭
func (rt *Runtime) Done() <-chan struct{} {
	return rt.shutdownCh
}

// Start 执行启动钩子，再从容器解析并启动托管服务。
// 托管服务异常退出时调用 ErrorHandler 并触发 Shutdown。
func (rt *Runtime) Start(ctx context.Context) error {
	if err := rt.Lifecycle.Start(ctx); err != nil {
		return err
	}

	for _, key := range rt.hostedKeys {
		v, err := rt.Container.Resolve(key)
		if err != nil {
			return fmt.Errorf("core: 解析托管服务 %s 失败: %w", key, err)
		}
		svc, ok := v.(hosting.HostedService)
		if !ok {
			return fmt.Errorf("core: %s 没有实现 hosting.HostedService", key)
		}
		rt.Hosted.Add(key.String(), svc)
	}

	hostedCtx, cancel := context.WithCancel(context.Background())
	rt.cancelHosted = cancel
	errCh := rt.Hosted.StartAll(hostedCtx)
	go func() {
		select {
		case err := <-errCh:
			if rt.ErrorHandler != nil {
				rt.ErrorHandler(err)
			}
			rt.Shutdown()
		case <-hostedCtx.Done():
		}
	}()
	return nil
}

// Stop 停止托管服务，执行停止钩子，最后释放根容器
func (rt *Runtime) Stop(ctx context.Context) error {
	var errs []error
	if err := rt.Hosted.StopAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if rt.cancelHosted != nil {
		rt.cancelHosted()
	}
	if err := rt.Lifecycle.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := rt.Container.Dispose(); err != nil {
		errs = append(errs, err)
	}
	err := errors.Join(errs...)
	if err != nil {
		rt.Logger.Error("运行时停止时出错", logging.Err(err))
	}
	return err
}
