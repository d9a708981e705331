package redis

import (
	"context"
	"testing"
	"time"

	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/core"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipPing(o *ClientOptions) { o.SkipPing = true }

func TestNew_RegistersNamedClients(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(New(
		WithClient("default", skipPing),
		WithClient("cache", skipPing, func(o *ClientOptions) {
			o.Addr = "cache:6379"
			o.DB = 2
		}),
	)))

	cache, err := container.ResolveNamed[*redis.Client](rt.Container, "cache")
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", cache.Options().Addr)
	assert.Equal(t, 2, cache.Options().DB)

	// default 客户端同时注册为无名键
	def, err := container.Resolve[*redis.Client](rt.Container)
	require.NoError(t, err)
	named, err := container.ResolveNamed[*redis.Client](rt.Container, "default")
	require.NoError(t, err)
	assert.Same(t, def, named)

	factory, ok := core.GetFeature[*Factory](rt)
	require.True(t, ok)
	assert.Equal(t, []string{"cache", "default"}, factory.Names())

	// 容器释放时关闭工厂
	require.NoError(t, rt.Container.Dispose())
	assert.ErrorIs(t, cache.Ping(context.Background()).Err(), redis.ErrClosed)
	assert.Empty(t, factory.Names())
}

func TestNew_WithoutClients(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(New()))
	_, ok := core.GetFeature[*Factory](rt)
	assert.False(t, ok)
}

func TestBuilder_Errors(t *testing.T) {
	b := NewBuilder().
		AddClient("invalid", func(o *ClientOptions) { o.Addr = "" }).
		AddClient("dup", skipPing).
		AddClient("dup", skipPing)

	_, err := b.Build(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
	assert.Contains(t, err.Error(), "重复")
}

func TestFactory_PingFailure(t *testing.T) {
	f := NewFactory()
	opts := NewDefaultOptions("down")
	opts.Addr = "127.0.0.1:1"
	opts.DialTimeout = 200 * time.Millisecond
	opts.MaxRetries = -1

	err := f.Register(context.Background(), *opts)
	require.Error(t, err)
	assert.Empty(t, f.Names())

	_, err = f.Get("down")
	assert.Error(t, err)
}
