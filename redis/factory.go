package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Factory 按名称持有 Redis 客户端
type Factory struct {
	mu      sync.RWMutex
	clients map[string]*redis.Client
}

func NewFactory() *Factory {
	return &Factory{clients: make(map[string]*redis.Client)}
}

// Register 创建客户端；未设置 SkipPing 时先 Ping 一次，失败则关闭客户端并返回错误
func (f *Factory) Register(ctx context.Context, opts ClientOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.clients[opts.Name]; exists {
		return fmt.Errorf("redis: 客户端 %q 已注册", opts.Name)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		MaxRetries:   opts.MaxRetries,
	})

	if !opts.SkipPing {
		pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("redis: 连接 %s 失败: %w", opts.Addr, err)
		}
	}

	f.clients[opts.Name] = client
	return nil
}

func (f *Factory) Get(name string) (*redis.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	client, ok := f.clients[name]
	if !ok {
		return nil, fmt.Errorf("redis: 客户端 %q 不存在", name)
	}
	return client, nil
}

// Names 按名称排序
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

// Close 关闭所有客户端
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for name, client := range f.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: 关闭客户端 %q: %w", name, err))
		}
	}
	f.clients = make(map[string]*redis.Client)
	return errors.Join(errs...)
}
