package web

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/logging"
)

// Controller 控制器，Host 启动时从容器解析并挂载路由
type Controller interface {
	MountRoutes(router gin.IRouter)
}

var controllerType = reflect.TypeOf((*Controller)(nil)).Elem()

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	logger      logging.Logger
	port        int
	engine      *gin.Engine
	ctors       []any
	controllers []reflect.Type
	scoped      bool
	root        *container.Container
}

func NewBuilder() *Builder {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Builder{
		port:   8080,
		engine: engine,
		logger: logging.Nop(),
	}
}

func (b *Builder) UseLogger(logger logging.Logger) *Builder {
	if logger != nil {
		b.logger = logger.WithCategory("web")
	}
	return b
}

func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// UseRequestScope 每个请求创建一个子容器，请求结束后释放。
// 只对之后注册的路由生效，应在注册路由之前调用。
func (b *Builder) UseRequestScope() *Builder {
	if b.scoped {
		return b
	}
	b.scoped = true
	b.engine.Use(func(c *gin.Context) {
		if b.root == nil {
			c.Next()
			return
		}
		RequestScope(b.root)(c)
	})
	return b
}

// Use 全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// AddControllers 添加控制器构造函数，参数从容器注入，结果必须实现 Controller
func (b *Builder) AddControllers(ctors ...any) *Builder {
	b.ctors = append(b.ctors, ctors...)
	return b
}

func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

func (b *Builder) Put(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.PUT(path, handlers...)
	return b
}

func (b *Builder) Delete(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.DELETE(path, handlers...)
	return b
}

func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

func (b *Builder) SetMode(mode string) *Builder {
	gin.SetMode(mode)
	return b
}

// Engine 高级定制用
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// RegisterServices 把控制器注册为容器单例
func (b *Builder) RegisterServices(c *container.Container) error {
	for _, ctor := range b.ctors {
		plan, err := builder.NewConstructorPlan(ctor)
		if err != nil {
			return fmt.Errorf("web: 控制器构造函数无效: %w", err)
		}
		typ := plan.ResultType()
		if !typ.Implements(controllerType) {
			return fmt.Errorf("web: %v 没有实现 web.Controller", typ)
		}
		if err := c.RegisterFactory(typ, ctor, container.WithSingleton()); err != nil {
			return err
		}
		b.controllers = append(b.controllers, typ)
	}
	return nil
}

// Build 构建 Web 主机，c 用于解析控制器和创建请求子容器
func (b *Builder) Build(c *container.Container) *Host {
	b.root = c
	return &Host{
		port:        b.port,
		engine:      b.engine,
		container:   c,
		controllers: b.controllers,
		logger:      b.logger,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", b.port),
			Handler: b.engine,
		},
	}
}
