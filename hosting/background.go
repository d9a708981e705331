package hosting

import (
	"context"
	"sync"
	"time"

	"github.com/gocrud/ioc/logging"
)

// BackgroundService 可停止的后台服务基础实现
type BackgroundService struct {
	name   string
	logger logging.Logger

	stopOnce sync.Once
	doneOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &BackgroundService{
		name:   name,
		logger: logger.WithFields(logging.F("service", name)),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (s *BackgroundService) Name() string {
	return s.name
}

// Start 阻塞到 Stop 或 ctx 取消
func (s *BackgroundService) Start(ctx context.Context) error {
	defer s.Done()
	select {
	case <-s.stopCh:
	case <-ctx.Done():
	}
	return nil
}

// Stop 发出停止信号并等待 Start 返回
func (s *BackgroundService) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		s.logger.Warn("后台服务停止超时")
		return ctx.Err()
	}
}

func (s *BackgroundService) StopChan() <-chan struct{} {
	return s.stopCh
}

// Done 标记服务已结束，可重复调用
func (s *BackgroundService) Done() {
	s.doneOnce.Do(func() { close(s.doneCh) })
}

// Worker 把阻塞函数适配为托管服务，Stop 时取消它的上下文
type Worker struct {
	*BackgroundService
	fn func(ctx context.Context) error
}

func NewWorker(name string, fn func(ctx context.Context) error, logger logging.Logger) *Worker {
	return &Worker{BackgroundService: NewBackgroundService(name, logger), fn: fn}
}

func (w *Worker) Start(ctx context.Context) error {
	defer w.Done()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return w.fn(ctx)
}

// TimedHostedService 按固定间隔执行任务，任务失败只记录日志
type TimedHostedService struct {
	*BackgroundService
	interval time.Duration
	task     func(ctx context.Context) error
}

func NewTimedHostedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedHostedService {
	return &TimedHostedService{
		BackgroundService: NewBackgroundService(name, logger),
		interval:          interval,
		task:              task,
	}
}

func (s *TimedHostedService) Start(ctx context.Context) error {
	defer s.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error("定时任务失败", logging.Err(err))
			}
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
