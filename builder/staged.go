package builder

import (
	"sync"
)

// Stage 策略所在的逻辑阶段，阶段按声明顺序执行
type Stage int

const (
	StageSetup Stage = iota
	StageTypeMapping
	StageLifetime
	StagePreCreation
	StageCreation
	StageInitialization
	StagePostInitialization

	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageSetup:
		return "Setup"
	case StageTypeMapping:
		return "TypeMapping"
	case StageLifetime:
		return "Lifetime"
	case StagePreCreation:
		return "PreCreation"
	case StageCreation:
		return "Creation"
	case StageInitialization:
		return "Initialization"
	case StagePostInitialization:
		return "PostInitialization"
	default:
		return "Unknown"
	}
}

// StagedStrategyChain 按阶段分组的策略集合。
//
// 子容器的分阶段链链接到父容器：同一阶段中父容器的策略排在前面。
// 修改后 MakeStrategyChain 会重新生成快照，已经开始的解析继续使用旧快照。
type StagedStrategyChain struct {
	mu      sync.RWMutex
	parent  *StagedStrategyChain
	stages  [stageCount][]Strategy
	version uint64

	cached        *StrategyChain
	cachedVersion uint64
}

// NewStagedStrategyChain 创建分阶段策略链，parent 可以为 nil
func NewStagedStrategyChain(parent *StagedStrategyChain) *StagedStrategyChain {
	return &StagedStrategyChain{parent: parent, version: 1}
}

// Add 把策略加入指定阶段末尾
func (c *StagedStrategyChain) Add(s Strategy, stage Stage) {
	if stage < 0 || stage >= stageCount {
		stage = StagePostInitialization
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages[stage] = append(c.stages[stage], s)
	c.version++
}

// Remove 从所有阶段中移除策略，返回是否找到
func (c *StagedStrategyChain) Remove(s Strategy) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := false
	for i, list := range c.stages {
		kept := list[:0]
		for _, it := range list {
			if sameInstance(it, s) {
				found = true
				continue
			}
			kept = append(kept, it)
		}
		c.stages[i] = kept
	}
	if found {
		c.version++
	}
	return found
}

// Clear 清空本级所有策略（不影响父链）
func (c *StagedStrategyChain) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages = [stageCount][]Strategy{}
	c.version++
}

// StageOf 返回本级某阶段的策略副本
func (c *StagedStrategyChain) StageOf(stage Stage) []Strategy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Strategy, len(c.stages[stage]))
	copy(out, c.stages[stage])
	return out
}

// MakeStrategyChain 生成按阶段展开的策略链快照
func (c *StagedStrategyChain) MakeStrategyChain() *StrategyChain {
	v := c.totalVersion()

	c.mu.RLock()
	if c.cached != nil && c.cachedVersion == v {
		chain := c.cached
		c.mu.RUnlock()
		return chain
	}
	c.mu.RUnlock()

	chain := NewStrategyChain()
	for stage := Stage(0); stage < stageCount; stage++ {
		for _, s := range c.strategiesFor(stage) {
			chain.Add(s)
		}
	}

	c.mu.Lock()
	c.cached = chain
	c.cachedVersion = v
	c.mu.Unlock()
	return chain
}

func (c *StagedStrategyChain) strategiesFor(stage Stage) []Strategy {
	var out []Strategy
	if c.parent != nil {
		out = c.parent.strategiesFor(stage)
	}
	c.mu.RLock()
	out = append(out, c.stages[stage]...)
	c.mu.RUnlock()
	return out
}

func (c *StagedStrategyChain) totalVersion() uint64 {
	var v uint64
	for s := c; s != nil; s = s.parent {
		s.mu.RLock()
		v += s.version
		s.mu.RUnlock()
	}
	return v
}
