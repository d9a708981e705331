package builder

import (
	"errors"
	"io"
	"sync"
)

// Disposable 需要显式释放资源的对象
type Disposable interface {
	Dispose() error
}

// DisposeValue 释放 v：支持 Disposable 和 io.Closer，其他值忽略
func DisposeValue(v any) error {
	switch d := v.(type) {
	case Disposable:
		return d.Dispose()
	case io.Closer:
		return d.Close()
	}
	return nil
}

// LifetimeContainer 跟踪容器拥有的对象（生命周期管理器、子容器等），
// Dispose 时按加入的逆序释放。
type LifetimeContainer struct {
	mu    sync.Mutex
	items []any
}

func NewLifetimeContainer() *LifetimeContainer {
	return &LifetimeContainer{}
}

// Add 加入对象，同一对象重复加入会被忽略
func (c *LifetimeContainer) Add(item any) {
	if item == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(item) >= 0 {
		return
	}
	c.items = append(c.items, item)
}

func (c *LifetimeContainer) Contains(item any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexOf(item) >= 0
}

// Remove 移除对象但不释放
func (c *LifetimeContainer) Remove(item any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(item); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

func (c *LifetimeContainer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Dispose 逆序释放所有对象，收集所有错误
func (c *LifetimeContainer) Dispose() error {
	c.mu.Lock()
	items := c.items
	c.items = nil
	c.mu.Unlock()

	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		if err := DisposeValue(items[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *LifetimeContainer) indexOf(item any) int {
	for i, it := range c.items {
		if sameInstance(it, item) {
			return i
		}
	}
	return -1
}
