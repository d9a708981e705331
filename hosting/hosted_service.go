package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gocrud/ioc/logging"
)

// HostedService 托管服务
type HostedService interface {
	// Start 在独立的 goroutine 中调用，允许阻塞到 ctx 取消
	Start(ctx context.Context) error
	// Stop 执行优雅关闭，必须遵守 ctx 的超时
	Stop(ctx context.Context) error
}

type namedService struct {
	name    string
	service HostedService
}

// HostedServiceManager 并发启动托管服务，按添加的逆序停止
type HostedServiceManager struct {
	services []namedService
	logger   logging.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

func NewHostedServiceManager(logger logging.Logger) *HostedServiceManager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &HostedServiceManager{logger: logger.WithCategory("hosting")}
}

// Add 添加托管服务，name 只用于日志
func (m *HostedServiceManager) Add(name string, service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == "" {
		name = fmt.Sprintf("%T", service)
	}
	m.services = append(m.services, namedService{name: name, service: service})
}

func (m *HostedServiceManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// StartAll 每个服务在独立的 goroutine 中启动。
// 返回的通道接收服务的异常退出，ctx 取消导致的退出不算错误。
func (m *HostedServiceManager) StartAll(ctx context.Context) <-chan error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errCh := make(chan error, len(m.services))
	m.logger.Info("启动托管服务", logging.F("count", len(m.services)))

	for _, s := range m.services {
		m.wg.Add(1)
		go func(s namedService) {
			defer m.wg.Done()
			m.logger.Debug("托管服务启动", logging.F("service", s.name))

			err := s.service.Start(ctx)
			switch {
			case err == nil:
				m.logger.Debug("托管服务已结束", logging.F("service", s.name))
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				m.logger.Debug("托管服务随上下文结束", logging.F("service", s.name))
			default:
				m.logger.Error("托管服务异常退出", logging.F("service", s.name), logging.Err(err))
				errCh <- fmt.Errorf("hosting: %s: %w", s.name, err)
			}
		}(s)
	}
	return errCh
}

// StopAll 按添加的逆序依次停止，返回所有停止错误
func (m *HostedServiceManager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.logger.Info("停止托管服务", logging.F("count", len(m.services)))

	var errs []error
	for i := len(m.services) - 1; i >= 0; i-- {
		s := m.services[i]
		if err := s.service.Stop(ctx); err != nil {
			m.logger.Error("停止托管服务失败", logging.F("service", s.name), logging.Err(err))
			errs = append(errs, fmt.Errorf("hosting: 停止 %s: %w", s.name, err))
			continue
		}
		m.logger.Debug("托管服务已停止", logging.F("service", s.name))
	}
	return errors.Join(errs...)
}

// Wait 等待所有 Start 返回
func (m *HostedServiceManager) Wait() {
	m.wg.Wait()
}
