package hosting

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	name     string
	startErr error
	stopErr  error
	record   func(string)
}

func (s *recordingService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *recordingService) Stop(context.Context) error {
	s.record(s.name)
	return s.stopErr
}

func TestHostedServiceManager_StopReverse(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	record := func(name string) {
		mu.Lock()
		stopped = append(stopped, name)
		mu.Unlock()
	}

	m := NewHostedServiceManager(nil)
	m.Add("a", &recordingService{name: "a", record: record})
	m.Add("b", &recordingService{name: "b", record: record, stopErr: errors.New("busy")})
	m.Add("c", &recordingService{name: "c", record: record})
	assert.Equal(t, 3, m.Len())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := m.StartAll(ctx)
	cancel()
	m.Wait()

	// 上下文取消不算错误
	select {
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	default:
	}

	err := m.StopAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy")
	assert.Equal(t, []string{"c", "b", "a"}, stopped)
}

func TestHostedServiceManager_StartError(t *testing.T) {
	boom := errors.New("port in use")
	m := NewHostedServiceManager(nil)
	m.Add("web", &recordingService{name: "web", startErr: boom, record: func(string) {}})

	errCh := m.StartAll(context.Background())
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "web")
	case <-time.After(time.Second):
		t.Fatal("start error not reported")
	}
}

func TestBackgroundService_Stop(t *testing.T) {
	s := NewBackgroundService("bg", nil)
	done := make(chan struct{})
	go func() {
		_ = s.Start(context.Background())
		close(done)
	}()

	require.NoError(t, s.Stop(context.Background()))
	<-done
	// 重复停止是安全的
	require.NoError(t, s.Stop(context.Background()))
}

func TestWorker_CancelledOnStop(t *testing.T) {
	var cancelled atomic.Bool
	w := NewWorker("worker", func(ctx context.Context) error {
		<-ctx.Done()
		cancelled.Store(true)
		return nil
	}, nil)

	go func() { _ = w.Start(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	assert.True(t, cancelled.Load())
}

func TestTimedHostedService_RunsTask(t *testing.T) {
	var runs atomic.Int32
	s := NewTimedHostedService("tick", 5*time.Millisecond, func(context.Context) error {
		if runs.Add(1) == 1 {
			return errors.New("first run fails")
		}
		return nil
	}, nil)

	go func() { _ = s.Start(context.Background()) }()
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}
