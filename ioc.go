// Package ioc 组合容器、配置和托管服务的应用入口。
//
//	err := ioc.Run(
//		config.Load("config.yaml", config.WithEnv("APP_")),
//		core.WithLogging(func(b *logging.LoggingBuilder) { b.AddConsole() }),
//		web.New(web.WithPort(8080), web.WithControllers(NewUserController)),
//	)
package ioc

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gocrud/ioc/core"
)

// ShutdownTimeout Run 退出时留给托管服务和容器释放的时间
var ShutdownTimeout = 5 * time.Second

// New 创建运行时并应用所有选项，出错时释放已创建的容器
func New(opts ...core.Option) (*core.Runtime, error) {
	rt := core.NewRuntime()
	if err := rt.Apply(opts...); err != nil {
		_ = rt.Container.Dispose()
		return nil, err
	}
	return rt, nil
}

// Run 启动应用并阻塞，直到收到退出信号或运行时请求退出
func Run(opts ...core.Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, opts...)
}

// RunContext 与 Run 相同，ctx 取消时退出
func RunContext(ctx context.Context, opts ...core.Option) error {
	rt, err := New(opts...)
	if err != nil {
		return err
	}
	if err := rt.Start(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		_ = rt.Stop(shutdownCtx)
		return err
	}

	select {
	case <-ctx.Done():
	case <-rt.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return rt.Stop(shutdownCtx)
}
