package mongodb

import (
	"context"
	"testing"

	"github.com/gocrud/ioc/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Errors(t *testing.T) {
	_, err := NewBuilder().
		Add("no-uri", "", nil).
		Add("pool", "mongodb://localhost:27017", func(o *Options) {
			o.MinPoolSize = 10
			o.MaxPoolSize = 5
		}).
		Add("dup", "mongodb://localhost:27017", nil).
		Add("dup", "mongodb://localhost:27017", nil).
		Build(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "uri")
	assert.Contains(t, err.Error(), "最小连接数")
	assert.Contains(t, err.Error(), "重复")
}

func TestOptions_ClientOptions(t *testing.T) {
	o := NewDefaultOptions("default", "mongodb://localhost:27017")
	o.Username = "app"
	o.Password = "secret"
	assert.NoError(t, o.Validate())
	assert.NotNil(t, o.clientOptions())
}

func TestNew_WithoutClients(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(New()))

	f := NewFactory()
	_, err := f.Get("missing")
	assert.Error(t, err)
	assert.NoError(t, f.Close())
}
