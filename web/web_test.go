package web

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Greeter struct{ word string }

type GreetController struct {
	greeter *Greeter
}

func NewGreetController(g *Greeter) *GreetController {
	return &GreetController{greeter: g}
}

func (c *GreetController) MountRoutes(r gin.IRouter) {
	r.GET("/greet", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, c.greeter.word)
	})
}

// 请求级对象，请求结束时关闭
type RequestInfo struct {
	id     int32
	closed *atomic.Int32
}

func (r *RequestInfo) Close() error {
	r.closed.Add(1)
	return nil
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestHost_Controllers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := container.New()
	defer c.Dispose()
	require.NoError(t, container.RegisterInstance(c, &Greeter{word: "hi"}))

	b := NewBuilder().AddControllers(NewGreetController)
	require.NoError(t, b.RegisterServices(c))
	host := b.Build(c)

	h, err := host.Handler()
	require.NoError(t, err)
	w := do(t, h, "/greet")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi", w.Body.String())

	// 控制器是容器单例
	assert.Same(t, container.MustResolve[*GreetController](c), container.MustResolve[*GreetController](c))
}

func TestBuilder_RejectsNonController(t *testing.T) {
	c := container.New()
	defer c.Dispose()
	b := NewBuilder().AddControllers(func() *Greeter { return &Greeter{} })
	assert.Error(t, b.RegisterServices(c))
}

func TestRequestScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	root := container.New()
	defer root.Dispose()

	var seq, closed atomic.Int32
	require.NoError(t, root.RegisterFactory(builder.TypeOf[*RequestInfo](), func() *RequestInfo {
		return &RequestInfo{id: seq.Add(1), closed: &closed}
	}, container.WithHierarchical()))

	b := NewBuilder().UseRequestScope()
	b.Get("/info", func(ctx *gin.Context) {
		first, err := Resolve[*RequestInfo](ctx)
		require.NoError(t, err)
		second, err := Resolve[*RequestInfo](ctx)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.NotSame(t, root, Container(ctx))
		ctx.JSON(http.StatusOK, gin.H{"id": first.id})
	})
	host := b.Build(root)
	h, err := host.Handler()
	require.NoError(t, err)

	w1 := do(t, h, "/info")
	w2 := do(t, h, "/info")
	assert.JSONEq(t, `{"id":1}`, w1.Body.String())
	assert.JSONEq(t, `{"id":2}`, w2.Body.String())
	assert.EqualValues(t, 2, closed.Load())
}

func TestHandle_WithoutScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/x", Handle(func(ctx *gin.Context, g *Greeter) {
		ctx.String(http.StatusOK, g.word)
	}))

	w := do(t, engine, "/x")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "RequestScope")
}

func TestNew_RegistersHost(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, container.RegisterInstance(rt.Container, &Greeter{word: "hey"}))
	require.NoError(t, rt.Apply(New(WithPort(0), WithControllers(NewGreetController), WithRequestScope())))

	b, ok := core.GetFeature[*Builder](rt)
	require.True(t, ok)
	assert.True(t, b.scoped)

	require.NoError(t, rt.Start(context.Background()))
	assert.Eventually(t, func() bool {
		host, ok := core.GetFeature[*Host](rt)
		return ok && host.Address() != ""
	}, 2*time.Second, 10*time.Millisecond)

	host, _ := core.GetFeature[*Host](rt)
	_, port, err := net.SplitHostPort(host.Address())
	require.NoError(t, err)
	resp, err := http.Get("http://127.0.0.1:" + port + "/greet")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, rt.Stop(context.Background()))
}
