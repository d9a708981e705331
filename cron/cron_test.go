package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Repo struct{ name string }

// 每次运行一个的会话，运行结束时关闭
type Session struct {
	closed *atomic.Int32
}

func (s *Session) Close() error {
	s.closed.Add(1)
	return nil
}

func newRoot(t *testing.T, closed *atomic.Int32) *container.Container {
	t.Helper()
	c := container.New()
	t.Cleanup(func() { _ = c.Dispose() })
	require.NoError(t, container.RegisterInstance(c, &Repo{name: "users"}))
	require.NoError(t, c.RegisterFactory(builder.TypeOf[*Session](), func() *Session {
		return &Session{closed: closed}
	}, container.WithHierarchical()))
	return c
}

func TestService_RunResolvesFromChildContainer(t *testing.T) {
	var closed atomic.Int32
	root := newRoot(t, &closed)

	var sessions []*Session
	svc, err := NewBuilder().
		AddJob("@every 1h", "sync", func(ctx context.Context, repo *Repo, s *Session) error {
			assert.NotNil(t, ctx)
			assert.Equal(t, "users", repo.name)
			sessions = append(sessions, s)
			return nil
		}).
		Build(nil)
	require.NoError(t, err)
	svc.Bind(root)

	require.NoError(t, svc.Run(context.Background(), "sync"))
	require.NoError(t, svc.Run(context.Background(), "sync"))

	require.Len(t, sessions, 2)
	assert.NotSame(t, sessions[0], sessions[1])
	assert.EqualValues(t, 2, closed.Load())
}

func TestService_RunErrors(t *testing.T) {
	boom := errors.New("sync failed")
	svc, err := NewBuilder().
		AddJob("@every 1h", "fail", func() error { return boom }).
		AddJob("@every 1h", "needs-di", func(*Repo) {}).
		Build(nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Run(context.Background(), "fail"), boom)
	assert.Error(t, svc.Run(context.Background(), "needs-di"))
	assert.Error(t, svc.Run(context.Background(), "missing"))

	var closed atomic.Int32
	type unknown struct{}
	svc2, err := NewBuilder().AddJob("@every 1h", "x", func(*unknown) {}).Build(nil)
	require.NoError(t, err)
	svc2.Bind(newRoot(t, &closed))
	assert.ErrorIs(t, svc2.Run(context.Background(), "x"), builder.ErrNotRegistered)
}

func TestBuilder_Validation(t *testing.T) {
	_, err := NewBuilder().AddJob("@every 1h", "bad", "not a func").Build(nil)
	assert.Error(t, err)

	_, err = NewBuilder().AddJob("@every 1h", "bad", func() int { return 1 }).Build(nil)
	assert.Error(t, err)

	_, err = NewBuilder().WithLocation("Mars/Olympus").Build(nil)
	assert.Error(t, err)

	svc, err := NewBuilder().AddJob("not a spec", "bad", func() {}).Build(nil)
	require.NoError(t, err)
	assert.Error(t, svc.Start(context.Background()))
}

func TestService_Schedules(t *testing.T) {
	var runs atomic.Int32
	svc, err := NewBuilder().
		WithSeconds().
		AddJob("* * * * * *", "tick", func() { runs.Add(1) }).
		Build(nil)
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, []string{"tick"}, svc.Jobs())
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))
}

func TestNew_RegistersHostedService(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(New(AddJob("@every 1h", "noop", func(*core.Runtime) {}))))

	svc, ok := core.GetFeature[*Service](rt)
	require.True(t, ok)
	require.NoError(t, rt.Start(context.Background()))
	// 托管服务在独立的 goroutine 中启动
	assert.Eventually(t, func() bool { return len(svc.Jobs()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, rt.Stop(context.Background()))

	assert.Error(t, rt.Apply(New(AddJob("@every 1h", "bad", 42))))
}
