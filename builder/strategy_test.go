package builder

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStrategy 记录钩子调用顺序
type recordingStrategy struct {
	name     string
	log      *[]string
	complete bool
	preErr   error
	postErr  error
}

func (s *recordingStrategy) PreBuildUp(ctx *Context) error {
	*s.log = append(*s.log, s.name+".Pre")
	if s.preErr != nil {
		return s.preErr
	}
	if s.complete {
		ctx.Existing = s.name
		ctx.BuildComplete = true
	}
	return nil
}

func (s *recordingStrategy) PostBuildUp(ctx *Context) error {
	*s.log = append(*s.log, s.name+".Post")
	return s.postErr
}

func (s *recordingStrategy) TearDown(ctx *Context) error {
	*s.log = append(*s.log, s.name+".TearDown")
	return nil
}

type widget struct{ id int }

func newTestContext(chain *StrategyChain) *Context {
	return NewContext(chain, NewPolicyList(nil), NewLifetimeContainer(), KeyOf[*widget](""))
}

func TestStrategyChain_ShortCircuit(t *testing.T) {
	var log []string
	a := &recordingStrategy{name: "A", log: &log}
	b := &recordingStrategy{name: "B", log: &log, complete: true}
	c := &recordingStrategy{name: "C", log: &log}

	ctx := newTestContext(NewStrategyChain(a, b, c))
	require.NoError(t, ctx.Strategies.ExecuteBuildUp(ctx))

	assert.Equal(t, []string{"A.Pre", "B.Pre", "B.Post", "A.Post"}, log)
	assert.Equal(t, "B", ctx.Existing)
}

func TestStrategyChain_FullPass(t *testing.T) {
	var log []string
	chain := NewStrategyChain(
		&recordingStrategy{name: "A", log: &log},
		&recordingStrategy{name: "B", log: &log},
		&recordingStrategy{name: "C", log: &log},
	)

	ctx := newTestContext(chain)
	require.NoError(t, chain.ExecuteBuildUp(ctx))
	assert.Equal(t, []string{"A.Pre", "B.Pre", "C.Pre", "C.Post", "B.Post", "A.Post"}, log)
}

func TestStrategyChain_ErrorUnwindsRecoveryStack(t *testing.T) {
	var log []string
	boom := errors.New("boom")

	pusher := &StrategyFuncs{
		Pre: func(ctx *Context) error {
			ctx.RecoveryStack.Push(RecoverFunc(func() { log = append(log, "recover1") }))
			ctx.RecoveryStack.Push(RecoverFunc(func() { log = append(log, "recover2") }))
			return nil
		},
	}
	failing := &recordingStrategy{name: "F", log: &log, preErr: boom}

	ctx := newTestContext(NewStrategyChain(pusher, failing))
	err := ctx.Strategies.ExecuteBuildUp(ctx)

	assert.ErrorIs(t, err, boom)
	// 失败的策略之前的 PostBuildUp 不会执行，恢复栈按 LIFO 展开
	assert.Equal(t, []string{"F.Pre", "recover2", "recover1"}, log)
	assert.Equal(t, 0, ctx.RecoveryStack.Len())
}

func TestStrategyChain_PanicUnwindsRecoveryStack(t *testing.T) {
	recovered := false
	chain := NewStrategyChain(&StrategyFuncs{
		Pre: func(ctx *Context) error {
			ctx.RecoveryStack.Push(RecoverFunc(func() { recovered = true }))
			panic("factory exploded")
		},
	})

	ctx := newTestContext(chain)
	assert.PanicsWithValue(t, "factory exploded", func() {
		_ = chain.ExecuteBuildUp(ctx)
	})
	assert.True(t, recovered)
}

func TestStrategyChain_TearDownReverse(t *testing.T) {
	var log []string
	chain := NewStrategyChain(
		&recordingStrategy{name: "A", log: &log},
		&StrategyFuncs{},
		&recordingStrategy{name: "C", log: &log},
	)

	ctx := newTestContext(chain)
	require.NoError(t, chain.ExecuteTearDown(ctx))
	assert.Equal(t, []string{"C.TearDown", "A.TearDown"}, log)
}

func TestStrategyChain_Insert(t *testing.T) {
	var log []string
	chain := NewStrategyChain(&recordingStrategy{name: "A", log: &log}, &recordingStrategy{name: "C", log: &log})
	chain.Insert(1, &recordingStrategy{name: "B", log: &log})
	chain.Insert(99, &recordingStrategy{name: "D", log: &log})

	ctx := newTestContext(chain)
	require.NoError(t, chain.ExecuteBuildUp(ctx))
	assert.Equal(t, []string{"A.Pre", "B.Pre", "C.Pre", "D.Pre", "D.Post", "C.Post", "B.Post", "A.Post"}, log)
}

func TestStagedStrategyChain(t *testing.T) {
	var log []string
	parent := NewStagedStrategyChain(nil)
	parent.Add(&recordingStrategy{name: "create", log: &log}, StageCreation)
	parent.Add(&recordingStrategy{name: "setup", log: &log}, StageSetup)

	child := NewStagedStrategyChain(parent)
	extra := &recordingStrategy{name: "child-create", log: &log}
	child.Add(extra, StageCreation)
	child.Add(&recordingStrategy{name: "lifetime", log: &log}, StageLifetime)

	chain := child.MakeStrategyChain()
	require.Equal(t, 4, chain.Len())

	ctx := newTestContext(chain)
	require.NoError(t, chain.ExecuteBuildUp(ctx))
	assert.Equal(t, []string{"setup.Pre", "lifetime.Pre", "create.Pre", "child-create.Pre"}, log[:4])

	// 未修改时复用快照
	assert.Same(t, chain, child.MakeStrategyChain())

	// 父链修改后子链快照失效
	parent.Add(&recordingStrategy{name: "init", log: &log}, StageInitialization)
	assert.Equal(t, 5, child.MakeStrategyChain().Len())

	assert.True(t, child.Remove(extra))
	assert.False(t, child.Remove(extra))
	assert.Equal(t, 4, child.MakeStrategyChain().Len())
}

func TestContext_CircularDependency(t *testing.T) {
	policies := NewPolicyList(nil)
	chain := NewStrategyChain(&BuildKeyMappingStrategy{}, &BuildPlanStrategy{})

	type a struct{}
	type b struct{}
	keyA := BuildKey{Type: reflect.TypeOf(&a{})}
	keyB := BuildKey{Type: reflect.TypeOf(&b{})}

	policies.Set(BuildPlanPolicyKind, keyA, BuildPlanFunc(func(ctx *Context) (any, error) {
		return ctx.NewBuildUp(keyB)
	}))
	policies.Set(BuildPlanPolicyKind, keyB, BuildPlanFunc(func(ctx *Context) (any, error) {
		return ctx.NewBuildUp(keyA)
	}))

	_, err := Execute(NewContext(chain, policies, NewLifetimeContainer(), keyA))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircularDependency)

	var rfe *ResolutionFailedError
	require.True(t, errors.As(err, &rfe))
	assert.Equal(t, keyA, rfe.OriginalKey)
	assert.ErrorIs(t, rfe.Cause(), ErrCircularDependency)
}

func TestExecute_NotRegistered(t *testing.T) {
	chain := NewStrategyChain(&BuildKeyMappingStrategy{}, &BuildPlanStrategy{})
	_, err := Execute(newTestContext(chain))
	assert.ErrorIs(t, err, ErrNotRegistered)
}
