package core

import (
	"context"
	"errors"
	"sync"
)

// LifecycleEvents 启动和停止钩子
type LifecycleEvents struct {
	mu      sync.Mutex
	onStart []func(context.Context) error
	onStop  []func(context.Context) error
}

func NewLifecycle() *LifecycleEvents {
	return &LifecycleEvents{}
}

// OnStart 注册启动钩子，按注册顺序执行
func (l *LifecycleEvents) OnStart(fn func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStart = append(l.onStart, fn)
}

// OnStop 注册停止钩子，按注册的逆序执行
func (l *LifecycleEvents) OnStop(fn func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStop = append(l.onStop, fn)
}

// Start 第一个失败的钩子会中断启动
func (l *LifecycleEvents) Start(ctx context.Context) error {
	l.mu.Lock()
	hooks := append([]func(context.Context) error(nil), l.onStart...)
	l.mu.Unlock()

	for _, fn := range hooks {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop 倒序执行所有停止钩子，失败不会中断，返回合并的错误
func (l *LifecycleEvents) Stop(ctx context.Context) error {
	l.mu.Lock()
	hooks := append([]func(context.Context) error(nil), l.onStop...)
	l.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
