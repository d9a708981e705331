package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// JsonFileSource JSON 文件配置源
type JsonFileSource struct {
	Path     string
	Optional bool
}

func (s *JsonFileSource) Name() string {
	return fmt.Sprintf("JsonFile(%s)", s.Path)
}

func (s *JsonFileSource) Load() (map[string]any, error) {
	data, err := readFile(s.Path, s.Optional)
	if err != nil || data == nil {
		return map[string]any{}, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}
	return result, nil
}

// YamlFileSource YAML 文件配置源
type YamlFileSource struct {
	Path     string
	Optional bool
}

func (s *YamlFileSource) Name() string {
	return fmt.Sprintf("YamlFile(%s)", s.Path)
}

func (s *YamlFileSource) Load() (map[string]any, error) {
	data, err := readFile(s.Path, s.Optional)
	if err != nil || data == nil {
		return map[string]any{}, err
	}

	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("解析 YAML 失败: %w", err)
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}

// readFile 可选文件不存在时返回 nil, nil
func readFile(path string, optional bool) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// EnvironmentVariableSource 环境变量配置源
//
// 去掉前缀后转为小写，"_" 作为层级分隔符：APP_SERVER_PORT -> server:port。
type EnvironmentVariableSource struct {
	Prefix string
}

func (s *EnvironmentVariableSource) Name() string {
	return fmt.Sprintf("EnvironmentVariables(%s)", s.Prefix)
}

func (s *EnvironmentVariableSource) Load() (map[string]any, error) {
	result := make(map[string]any)
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if s.Prefix != "" {
			if !strings.HasPrefix(key, s.Prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.Prefix)
		}
		key = strings.Trim(strings.ToLower(key), "_")
		if key == "" {
			continue
		}
		setNestedValue(result, strings.ReplaceAll(key, "_", ":"), parseScalar(value))
	}
	return result, nil
}

// InMemorySource 内存配置源
type InMemorySource struct {
	Data map[string]any
}

func (s *InMemorySource) Name() string {
	return "InMemory"
}

func (s *InMemorySource) Load() (map[string]any, error) {
	result := make(map[string]any)
	mergeMaps(result, s.Data)
	return result, nil
}

// EtcdOptions etcd 配置源选项
type EtcdOptions struct {
	Endpoints   []string
	Username    string
	Password    string
	Prefix      string        // 键前缀，默认 "/"
	Timeout     time.Duration // 读取超时，默认 5 秒
	DialTimeout time.Duration // 拨号超时，默认 5 秒
}

// EtcdSource 从 etcd 前缀下读取配置，"/" 作为层级分隔符。
// 值依次尝试按 JSON、YAML 解析，都失败时作为字符串。
type EtcdSource struct {
	Options EtcdOptions
	// Client 不为 nil 时复用该客户端，否则每次加载临时创建
	Client *clientv3.Client
}

func NewEtcdSource(opts EtcdOptions) *EtcdSource {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &EtcdSource{Options: opts}
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%v)", s.Options.Endpoints)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli := s.Client
	if cli == nil {
		var err error
		cli, err = clientv3.New(clientv3.Config{
			Endpoints:   s.Options.Endpoints,
			Username:    s.Options.Username,
			Password:    s.Options.Password,
			DialTimeout: s.Options.DialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("创建 etcd 客户端失败: %w", err)
		}
		defer cli.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Options.Timeout)
	defer cancel()

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}
	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("读取 etcd 配置失败: %w", err)
	}

	result := make(map[string]any)
	for _, kv := range resp.Kvs {
		key := strings.TrimPrefix(strings.TrimPrefix(string(kv.Key), s.Options.Prefix), "/")
		if key == "" {
			continue
		}
		setNestedValue(result, strings.ReplaceAll(key, "/", ":"), decodeEtcdValue(kv.Value))
	}
	return result, nil
}

func decodeEtcdValue(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	if err := yaml.Unmarshal(raw, &v); err == nil && v != nil {
		return v
	}
	return string(raw)
}

// setNestedValue 按 ":" 分隔的路径写入值
func setNestedValue(data map[string]any, path string, value any) {
	parts := strings.Split(path, ":")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			if _, exists := current[part]; exists {
				return
			}
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// parseScalar 环境变量按 int、float、bool 的顺序尝试转换
func parseScalar(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
