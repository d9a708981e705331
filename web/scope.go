package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/container"
)

const containerKey = "ioc.container"

// RequestScope 中间件：为每个请求创建 root 的子容器，请求结束后释放。
// 子容器中的分层生命周期实例（container.WithHierarchical）只在本次请求内共享。
func RequestScope(root *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := root.CreateChildContainer()
		defer func() {
			if err := scope.Dispose(); err != nil {
				_ = c.Error(err)
			}
		}()
		c.Set(containerKey, scope)
		c.Next()
	}
}

// Container 返回当前请求的容器，没有使用 RequestScope 时返回 nil
func Container(c *gin.Context) *container.Container {
	v, ok := c.Get(containerKey)
	if !ok {
		return nil
	}
	scope, _ := v.(*container.Container)
	return scope
}

// Resolve 从当前请求的容器解析 T
func Resolve[T any](c *gin.Context) (T, error) {
	scope := Container(c)
	if scope == nil {
		var zero T
		return zero, errNoScope
	}
	return container.Resolve[T](scope)
}

// Handle 把依赖 T 的处理函数适配为 gin.HandlerFunc，解析失败返回 500
func Handle[T any](fn func(c *gin.Context, dep T)) gin.HandlerFunc {
	return func(c *gin.Context) {
		dep, err := Resolve[T](c)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		fn(c, dep)
	}
}
