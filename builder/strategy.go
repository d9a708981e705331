package builder

import "slices"

// Strategy 构建策略，在构建链中被正向调用 PreBuildUp、逆向调用 PostBuildUp。
type Strategy interface {
	PreBuildUp(ctx *Context) error
	PostBuildUp(ctx *Context) error
}

// TearDownStrategy 参与拆除链的策略（可选能力）
type TearDownStrategy interface {
	TearDown(ctx *Context) error
}

// StrategyFuncs 用函数组合出策略，nil 函数视为空操作
type StrategyFuncs struct {
	Pre  func(ctx *Context) error
	Post func(ctx *Context) error
}

func (s *StrategyFuncs) PreBuildUp(ctx *Context) error {
	if s.Pre == nil {
		return nil
	}
	return s.Pre(ctx)
}

func (s *StrategyFuncs) PostBuildUp(ctx *Context) error {
	if s.Post == nil {
		return nil
	}
	return s.Post(ctx)
}

// StrategyChain 有序策略列表，按责任链方式执行。
//
// StrategyChain 本身不加锁；容器通过 StagedStrategyChain 生成不可变快照来并发使用。
type StrategyChain struct {
	strategies []Strategy
}

// NewStrategyChain 创建策略链
func NewStrategyChain(strategies ...Strategy) *StrategyChain {
	c := &StrategyChain{strategies: make([]Strategy, 0, len(strategies))}
	c.strategies = append(c.strategies, strategies...)
	return c
}

// Add 追加策略
func (c *StrategyChain) Add(s Strategy) {
	c.strategies = append(c.strategies, s)
}

// Insert 在 index 处插入策略，index 越界时追加到末尾
func (c *StrategyChain) Insert(index int, s Strategy) {
	if index < 0 || index >= len(c.strategies) {
		c.strategies = append(c.strategies, s)
		return
	}
	c.strategies = slices.Insert(c.strategies, index, s)
}

func (c *StrategyChain) Len() int {
	return len(c.strategies)
}

// Strategies 返回策略副本
func (c *StrategyChain) Strategies() []Strategy {
	out := make([]Strategy, len(c.strategies))
	copy(out, c.strategies)
	return out
}

// ExecuteBuildUp 执行构建。
//
// 按顺序调用 PreBuildUp，某个策略将 BuildComplete 置为 true 后立即停止；
// 随后对实际执行过 PreBuildUp 的策略严格逆序调用 PostBuildUp。
// 任一步返回错误（或 panic）时展开恢复栈，然后把错误（或 panic）原样抛给调用者。
func (c *StrategyChain) ExecuteBuildUp(ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx.RecoveryStack.Unwind()
			panic(r)
		}
		if err != nil {
			ctx.RecoveryStack.Unwind()
		}
	}()

	ran := 0
	for _, s := range c.strategies {
		ran++
		if err = s.PreBuildUp(ctx); err != nil {
			return err
		}
		if ctx.BuildComplete {
			break
		}
	}

	for i := ran - 1; i >= 0; i-- {
		if err = c.strategies[i].PostBuildUp(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteTearDown 执行拆除：只逆序调用实现了 TearDownStrategy 的策略
func (c *StrategyChain) ExecuteTearDown(ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx.RecoveryStack.Unwind()
			panic(r)
		}
		if err != nil {
			ctx.RecoveryStack.Unwind()
		}
	}()

	for i := len(c.strategies) - 1; i >= 0; i-- {
		td, ok := c.strategies[i].(TearDownStrategy)
		if !ok {
			continue
		}
		if err = td.TearDown(ctx); err != nil {
			return err
		}
	}
	return nil
}
