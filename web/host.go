package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/logging"
)

// Host Web 主机，实现 hosting.HostedService
type Host struct {
	port        int
	engine      *gin.Engine
	server      *http.Server
	logger      logging.Logger
	container   *container.Container
	controllers []reflect.Type

	mapOnce sync.Once
	mapErr  error

	mu   sync.RWMutex
	addr string
}

// Address 实际监听地址，Start 之前为空
func (h *Host) Address() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.addr
}

// Handler 挂载控制器路由后返回 http.Handler，只挂载一次
func (h *Host) Handler() (http.Handler, error) {
	h.mapOnce.Do(func() {
		h.mapErr = h.mapControllers()
	})
	if h.mapErr != nil {
		return nil, h.mapErr
	}
	return h.engine, nil
}

// Start 阻塞到 Stop 被调用
func (h *Host) Start(ctx context.Context) error {
	if _, err := h.Handler(); err != nil {
		return fmt.Errorf("web: 挂载控制器失败: %w", err)
	}

	addr := fmt.Sprintf(":%d", h.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web: 监听 %s 失败: %w", addr, err)
	}

	h.mu.Lock()
	h.addr = ln.Addr().String()
	h.mu.Unlock()
	h.logger.Info("Web 主机已启动", logging.F("address", ln.Addr().String()))

	if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		h.logger.Error("Web 主机异常退出", logging.Err(err))
		return err
	}
	return nil
}

// Stop 优雅关闭，等待进行中的请求完成
func (h *Host) Stop(ctx context.Context) error {
	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("Web 主机关闭失败", logging.Err(err))
		return err
	}
	h.logger.Info("Web 主机已停止")
	return nil
}

func (h *Host) mapControllers() error {
	for _, typ := range h.controllers {
		v, err := h.container.Resolve(builder.NewBuildKey(typ, ""))
		if err != nil {
			return err
		}
		ctrl, ok := v.(Controller)
		if !ok {
			return fmt.Errorf("%v 没有实现 web.Controller", typ)
		}
		ctrl.MountRoutes(h.engine)
		h.logger.Debug("挂载控制器路由", logging.F("controller", typ.String()))
	}
	return nil
}
