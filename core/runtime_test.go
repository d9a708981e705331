package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Clock struct{}

type pinger struct {
	clock   *Clock
	started atomic.Bool
	stopped atomic.Bool
	fail    error
}

func (p *pinger) Start(ctx context.Context) error {
	p.started.Store(true)
	if p.fail != nil {
		return p.fail
	}
	<-ctx.Done()
	return nil
}

func (p *pinger) Stop(context.Context) error {
	p.stopped.Store(true)
	return nil
}

type closer struct{ closed atomic.Bool }

func (c *closer) Close() error {
	c.closed.Store(true)
	return nil
}

func TestRuntime_HostedServiceLifecycle(t *testing.T) {
	rt := NewRuntime()
	var order []string
	var mu sync.Mutex
	hook := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	res := &closer{}

	require.NoError(t, rt.Apply(
		WithServices(func(c *container.Container) error {
			if err := c.RegisterFactory(builder.TypeOf[*Clock](), func() *Clock { return &Clock{} }); err != nil {
				return err
			}
			return container.RegisterInstance(c, res)
		}),
		WithHostedService(func(c *Clock) *pinger { return &pinger{clock: c} }),
	))
	rt.Lifecycle.OnStart(hook("start-1"))
	rt.Lifecycle.OnStop(hook("stop-1"))
	rt.Lifecycle.OnStop(hook("stop-2"))

	require.NoError(t, rt.Start(context.Background()))
	p := container.MustResolve[*pinger](rt.Container)
	assert.NotNil(t, p.clock)
	assert.Eventually(t, p.started.Load, time.Second, time.Millisecond)

	require.NoError(t, rt.Stop(context.Background()))
	assert.True(t, p.stopped.Load())
	assert.True(t, res.closed.Load())
	assert.True(t, rt.Container.IsDisposed())
	assert.Equal(t, []string{"start-1", "stop-2", "stop-1"}, order)
}

func TestRuntime_HostedServiceFailureShutsDown(t *testing.T) {
	rt := NewRuntime()
	boom := errors.New("listen failed")
	var reported atomic.Value
	rt.ErrorHandler = func(err error) { reported.Store(err) }

	require.NoError(t, rt.Apply(WithHostedService(func() *pinger { return &pinger{fail: boom} })))
	require.NoError(t, rt.Start(context.Background()))

	select {
	case <-rt.Done():
	case <-time.After(time.Second):
		t.Fatal("runtime did not shut down")
	}
	assert.ErrorIs(t, reported.Load().(error), boom)
	require.NoError(t, rt.Stop(context.Background()))
}

func TestRuntime_WithHostedServiceValidation(t *testing.T) {
	rt := NewRuntime()
	assert.Error(t, rt.Apply(WithHostedService(func() *Clock { return &Clock{} })))
	assert.Error(t, rt.Apply(WithHostedService("not a function")))
}

func TestRuntime_WithWorker(t *testing.T) {
	rt := NewRuntime()
	var cancelled atomic.Bool
	require.NoError(t, rt.Apply(WithWorker("sync", func(ctx context.Context) error {
		<-ctx.Done()
		cancelled.Store(true)
		return nil
	})))

	require.NoError(t, rt.Start(context.Background()))
	assert.Equal(t, 1, rt.Hosted.Len())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rt.Stop(ctx))
	assert.True(t, cancelled.Load())
}

func TestRuntime_LifecycleStopCollectsErrors(t *testing.T) {
	l := NewLifecycle()
	var ran atomic.Int32
	l.OnStop(func(context.Context) error { ran.Add(1); return errors.New("first") })
	l.OnStop(func(context.Context) error { ran.Add(1); return errors.New("second") })

	err := l.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")
	assert.EqualValues(t, 2, ran.Load())

	l.OnStart(func(context.Context) error { return errors.New("no config") })
	assert.Error(t, l.Start(context.Background()))
}

func TestRuntime_WithLogging(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Apply(WithLogging(func(b *logging.LoggingBuilder) {
		b.SetMinimumLevel(logging.LogLevelNone)
	})))

	logger, err := container.Resolve[logging.Logger](rt.Container)
	require.NoError(t, err)
	assert.Same(t, rt.Logger, logger)
	require.NoError(t, rt.Stop(context.Background()))
}

func TestFeatureCollection(t *testing.T) {
	rt := NewRuntime()
	c := &Clock{}
	rt.Features.Set(c)

	got, ok := GetFeature[*Clock](rt)
	assert.True(t, ok)
	assert.Same(t, c, got)

	_, ok = GetFeature[*pinger](rt)
	assert.False(t, ok)
}
