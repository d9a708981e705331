package etcd

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gocrud/ioc/config"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Factory 按名称持有 etcd 客户端
type Factory struct {
	mu      sync.RWMutex
	clients map[string]*clientv3.Client
	options map[string]ClientOptions
}

func NewFactory() *Factory {
	return &Factory{
		clients: make(map[string]*clientv3.Client),
		options: make(map[string]ClientOptions),
	}
}

// Register 创建客户端。clientv3 不会在这里等待连接建立
func (f *Factory) Register(opts ClientOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.clients[opts.Name]; exists {
		return fmt.Errorf("etcd: 客户端 %q 已注册", opts.Name)
	}

	cfg := clientv3.Config{
		Endpoints:          opts.Endpoints,
		DialTimeout:        opts.DialTimeout,
		AutoSyncInterval:   opts.AutoSyncInterval,
		MaxCallSendMsgSize: opts.MaxCallSendMsgSize,
		MaxCallRecvMsgSize: opts.MaxCallRecvMsgSize,
	}
	if opts.Username != "" {
		cfg.Username = opts.Username
		cfg.Password = opts.Password
	}

	client, err := clientv3.New(cfg)
	if err != nil {
		return fmt.Errorf("etcd: 创建客户端 %q 失败: %w", opts.Name, err)
	}
	f.clients[opts.Name] = client
	f.options[opts.Name] = opts
	return nil
}

func (f *Factory) Get(name string) (*clientv3.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	client, ok := f.clients[name]
	if !ok {
		return nil, fmt.Errorf("etcd: 客户端 %q 不存在", name)
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

// ConfigSource 返回复用该客户端的配置源，读取 prefix 下的键
func (f *Factory) ConfigSource(name, prefix string) (*config.EtcdSource, error) {
	client, err := f.Get(name)
	if err != nil {
		return nil, err
	}
	f.mu.RLock()
	opts := f.options[name]
	f.mu.RUnlock()

	src := config.NewEtcdSource(config.EtcdOptions{
		Endpoints:   opts.Endpoints,
		Prefix:      prefix,
		DialTimeout: opts.DialTimeout,
	})
	src.Client = client
	return src, nil
}

func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for name, client := range f.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("etcd: 关闭客户端 %q: %w", name, err))
		}
	}
	f.clients = make(map[string]*clientv3.Client)
	f.options = make(map[string]ClientOptions)
	return errors.Join(errs...)
}
