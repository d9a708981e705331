package etcd

import (
	"context"
	"testing"

	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
)

func TestNew_RegistersNamedClients(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(New(
		WithClient("master"),
		WithClient("default", func(o *ClientOptions) {
			o.Endpoints = []string{"127.0.0.1:2379", "127.0.0.1:22379"}
		}),
	)))

	master, err := container.ResolveNamed[*clientv3.Client](rt.Container, "master")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:2379"}, master.Endpoints())

	def, err := container.Resolve[*clientv3.Client](rt.Container)
	require.NoError(t, err)
	assert.Len(t, def.Endpoints(), 2)

	factory, ok := core.GetFeature[*Factory](rt)
	require.True(t, ok)
	src, err := factory.ConfigSource("master", "/app/")
	require.NoError(t, err)
	assert.Same(t, master, src.Client)
	assert.Equal(t, "/app/", src.Options.Prefix)

	_, err = factory.ConfigSource("missing", "/")
	assert.Error(t, err)

	// 容器释放时关闭客户端
	require.NoError(t, rt.Container.Dispose())
	assert.ErrorIs(t, master.Ctx().Err(), context.Canceled)
}

func TestBuilder_Errors(t *testing.T) {
	b := NewBuilder().
		AddClient("invalid", func(o *ClientOptions) { o.Endpoints = nil }).
		AddClient("dup", nil).
		AddClient("dup", nil)

	_, err := b.Build(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
	assert.Contains(t, err.Error(), "重复")

	f, err := NewBuilder().Build(nil)
	assert.NoError(t, err)
	assert.Nil(t, f)
}
