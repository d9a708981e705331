package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Configuration 分层配置，键支持 "a:b:c" 或 "a.b.c"
type Configuration interface {
	// Get 获取配置值，不存在时返回空字符串
	Get(key string) string
	GetWithDefault(key, defaultValue string) string
	GetInt(key string) (int, error)
	GetBool(key string) (bool, error)
	// GetSection 获取配置节，不存在时返回空配置
	GetSection(key string) Configuration
	// Bind 绑定配置到结构体，key 为空时绑定整个配置
	Bind(key string, target any) error
	// GetAll 返回所有配置的副本
	GetAll() map[string]any
}

// ConfigurationSource 配置源
type ConfigurationSource interface {
	Load() (map[string]any, error)
	Name() string
}

// ConfigurationBuilder 按添加顺序合并配置源，后添加的覆盖先添加的
type ConfigurationBuilder struct {
	sources []ConfigurationSource
	mu      sync.RWMutex
}

func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{}
}

// Add 添加配置源
func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件配置源
func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&JsonFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddYamlFile 添加 YAML 文件配置源
func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&YamlFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddEnvironmentVariables 添加环境变量配置源，APP_SERVER_PORT 对应 server:port
func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源
func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// AddEtcd 添加 etcd 配置源
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	return b.Add(NewEtcdSource(opts))
}

// Build 加载所有配置源
func (b *ConfigurationBuilder) Build() (*Root, error) {
	b.mu.RLock()
	sources := make([]ConfigurationSource, len(b.sources))
	copy(sources, b.sources)
	b.mu.RUnlock()

	root := &Root{sources: sources}
	root.configuration.store = NewValueStore()
	if err := root.Reload(); err != nil {
		return nil, err
	}
	return root, nil
}

// Root 构建出的根配置，可以重新加载
type Root struct {
	configuration
	sources []ConfigurationSource

	mu        sync.Mutex
	callbacks []func()
}

// Reload 重新加载所有配置源并原子替换，成功后通知 OnReload 回调
func (r *Root) Reload() error {
	data := make(map[string]any)
	for _, source := range r.sources {
		loaded, err := source.Load()
		if err != nil {
			return fmt.Errorf("config: 加载配置源 %s 失败: %w", source.Name(), err)
		}
		mergeMaps(data, loaded)
	}
	r.store.Store(data)

	r.mu.Lock()
	callbacks := make([]func(), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// OnReload 注册重新加载后的回调
func (r *Root) OnReload(fn func()) {
	r.mu.Lock()
	r.callbacks = append(r.callbacks, fn)
	r.mu.Unlock()
}

// Sources 配置源名称，按加载顺序
func (r *Root) Sources() []string {
	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.Name()
	}
	return names
}

// configuration 读取无锁，数据整体替换
type configuration struct {
	store *ValueStore
}

func (c *configuration) Get(key string) string {
	switch v := c.getByPath(key).(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (c *configuration) GetWithDefault(key, defaultValue string) string {
	if value := c.Get(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *configuration) GetInt(key string) (int, error) {
	switch v := c.getByPath(key).(type) {
	case nil:
		return 0, fmt.Errorf("config: 键 %s 不存在", key)
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("config: 无法把 %v 转换为 int", v)
	}
}

func (c *configuration) GetBool(key string) (bool, error) {
	switch v := c.getByPath(key).(type) {
	case nil:
		return false, fmt.Errorf("config: 键 %s 不存在", key)
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("config: 无法把 %v 转换为 bool", v)
	}
}

func (c *configuration) GetSection(key string) Configuration {
	section := NewValueStore()
	if m, ok := c.getByPath(key).(map[string]any); ok {
		section.Store(m)
	}
	return &configuration{store: section}
}

// Bind 通过 JSON 序列化绑定，目标字段使用 json 标签
func (c *configuration) Bind(key string, target any) error {
	data := c.getByPath(key)
	if data == nil {
		return fmt.Errorf("config: 键 %s 不存在", key)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: 序列化 %s 失败: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("config: 绑定 %s 失败: %w", key, err)
	}
	return nil
}

func (c *configuration) GetAll() map[string]any {
	result := make(map[string]any)
	mergeMaps(result, c.store.Load())
	return result
}

func (c *configuration) getByPath(path string) any {
	data := c.store.Load()
	if path == "" {
		return data
	}

	var current any = data
	for _, part := range globalPathCache.GetPathSegments(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// mergeMaps 把 src 深度合并到 dst，嵌套 map 会被复制
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		if dstMap, ok := dst[k].(map[string]any); ok && srcIsMap {
			mergeMaps(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			copied := make(map[string]any, len(srcMap))
			mergeMaps(copied, srcMap)
			dst[k] = copied
			continue
		}
		dst[k] = v
	}
}
