package ioc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resource struct{ closed atomic.Bool }

func (r *resource) Close() error {
	r.closed.Store(true)
	return nil
}

func TestNew_DisposesOnError(t *testing.T) {
	res := &resource{}
	_, err := New(
		core.WithServices(func(c *container.Container) error {
			return container.RegisterInstance(c, res)
		}),
		func(*core.Runtime) error { return errors.New("bad option") },
	)
	require.Error(t, err)
	assert.True(t, res.closed.Load())
}

func TestRunContext_StopsOnCancel(t *testing.T) {
	res := &resource{}
	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool

	done := make(chan error, 1)
	go func() {
		done <- RunContext(ctx,
			core.WithServices(func(c *container.Container) error {
				return container.RegisterInstance(c, res)
			}),
			core.WithWorker("worker", func(ctx context.Context) error {
				ran.Store(true)
				<-ctx.Done()
				return ctx.Err()
			}),
		)
	}()

	assert.Eventually(t, ran.Load, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("RunContext 没有退出")
	}
	assert.True(t, res.closed.Load())
}

func TestRunContext_ServiceFailure(t *testing.T) {
	var handled atomic.Bool
	err := RunContext(context.Background(),
		func(rt *core.Runtime) error {
			rt.ErrorHandler = func(error) { handled.Store(true) }
			return nil
		},
		core.WithWorker("crash", func(context.Context) error {
			return errors.New("crash")
		}),
	)
	require.NoError(t, err)
	assert.True(t, handled.Load())
}
