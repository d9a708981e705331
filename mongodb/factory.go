package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gocrud/mgo"
)

// Factory 按名称持有 mgo 客户端
type Factory struct {
	mu      sync.RWMutex
	clients map[string]*mgo.Client
	// closeTimeout 断开所有连接的总超时
	closeTimeout time.Duration
}

func NewFactory() *Factory {
	return &Factory{
		clients:      make(map[string]*mgo.Client),
		closeTimeout: 10 * time.Second,
	}
}

func (f *Factory) Register(ctx context.Context, opts Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.clients[opts.Name]; exists {
		return fmt.Errorf("mongodb: 客户端 %q 已注册", opts.Name)
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client, err := mgo.NewClient(connectCtx, opts.Uri, opts.clientOptions())
	if err != nil {
		return fmt.Errorf("mongodb: 创建客户端 %q 失败: %w", opts.Name, err)
	}
	f.clients[opts.Name] = client
	return nil
}

func (f *Factory) Get(name string) (*mgo.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	client, ok := f.clients[name]
	if !ok {
		return nil, fmt.Errorf("mongodb: 客户端 %q 不存在", name)
	}
	return client, nil
}

func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.clients))
	for name := range f.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), f.closeTimeout)
	defer cancel()

	var errs []error
	for name, client := range f.clients {
		if err := client.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb: 断开客户端 %q: %w", name, err))
		}
	}
	f.clients = make(map[string]*mgo.Client)
	return errors.Join(errs...)
}
