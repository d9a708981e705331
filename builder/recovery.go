package builder

import "sync"

// Recoverable 可以撤销部分副作用的对象
type Recoverable interface {
	Recover()
}

// RecoverFunc 函数适配器
type RecoverFunc func()

func (f RecoverFunc) Recover() { f() }

// RecoveryStack 一次构建过程中登记的回滚对象，失败时按 LIFO 顺序展开
type RecoveryStack struct {
	mu    sync.Mutex
	items []Recoverable
}

func NewRecoveryStack() *RecoveryStack {
	return &RecoveryStack{}
}

func (s *RecoveryStack) Push(r Recoverable) {
	if r == nil {
		return
	}
	s.mu.Lock()
	s.items = append(s.items, r)
	s.mu.Unlock()
}

// Pop 弹出栈顶，栈为空时返回 nil
func (s *RecoveryStack) Pop() Recoverable {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items)
	if n == 0 {
		return nil
	}
	r := s.items[n-1]
	s.items[n-1] = nil
	s.items = s.items[:n-1]
	return r
}

func (s *RecoveryStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Unwind 逆序调用所有条目的 Recover 并清空栈
func (s *RecoveryStack) Unwind() {
	for r := s.Pop(); r != nil; r = s.Pop() {
		r.Recover()
	}
}
