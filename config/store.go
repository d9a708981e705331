package config

import (
	"strings"
	"sync"
	"sync/atomic"
)

// ValueStore 保存合并后的配置快照，读取无锁，Reload 时整体替换
type ValueStore struct {
	snapshot atomic.Pointer[map[string]any]
}

func NewValueStore() *ValueStore {
	s := &ValueStore{}
	s.Store(map[string]any{})
	return s
}

// Load 当前快照，调用方不能修改
func (s *ValueStore) Load() map[string]any {
	if p := s.snapshot.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *ValueStore) Store(data map[string]any) {
	s.snapshot.Store(&data)
}

// PathCache 缓存键路径的切分结果，":" 和 "." 都是分隔符，空段被忽略
type PathCache struct {
	cache sync.Map
}

func (c *PathCache) GetPathSegments(path string) []string {
	if v, ok := c.cache.Load(path); ok {
		return v.([]string)
	}
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == ':' || r == '.' })
	c.cache.Store(path, parts)
	return parts
}

var globalPathCache = &PathCache{}
