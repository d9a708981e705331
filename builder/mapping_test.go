package builder

import (
	"errors"
	"testing"
)

type shape interface{ Area() int }

type square struct{}

func (square) Area() int { return 4 }

func TestBuildKeyMappingStrategy_NoPolicy(t *testing.T) {
	for _, name := range []string{"", "named"} {
		key := KeyOf[shape](name)
		ctx := NewContext(NewStrategyChain(), NewPolicyList(nil), NewLifetimeContainer(), key)

		if err := (&BuildKeyMappingStrategy{}).PreBuildUp(ctx); err != nil {
			t.Fatalf("PreBuildUp failed: %v", err)
		}
		if ctx.BuildKey != key {
			t.Errorf("BuildKey changed: %v", ctx.BuildKey)
		}
		if ctx.Existing != nil || ctx.BuildComplete {
			t.Error("Existing should stay unset")
		}
	}
}

func TestBuildKeyMappingStrategy_Map(t *testing.T) {
	from := KeyOf[shape]("")
	to := KeyOf[square]("")
	policies := NewPolicyList(nil)
	policies.Set(BuildKeyMappingPolicyKind, from, NewKeyMapping(to))

	ctx := NewContext(NewStrategyChain(), policies, NewLifetimeContainer(), from)
	if err := (&BuildKeyMappingStrategy{}).PreBuildUp(ctx); err != nil {
		t.Fatalf("PreBuildUp failed: %v", err)
	}
	if ctx.BuildKey != to {
		t.Errorf("expected %v, got %v", to, ctx.BuildKey)
	}
	if ctx.OriginalBuildKey != from {
		t.Error("OriginalBuildKey must not change")
	}
	if ctx.BuildComplete {
		t.Error("plain mapping must not complete the build")
	}
}

func TestBuildKeyMappingStrategy_ResolveShortCircuits(t *testing.T) {
	from := KeyOf[shape]("")
	policies := NewPolicyList(nil)
	policies.Set(BuildKeyMappingPolicyKind, from, &ResolvingMapping{
		Resolver: func(*Context) (any, error) { return square{}, nil },
		Mapping:  NewKeyMapping(KeyOf[square]("unused")),
	})

	ctx := NewContext(NewStrategyChain(), policies, NewLifetimeContainer(), from)
	if err := (&BuildKeyMappingStrategy{}).PreBuildUp(ctx); err != nil {
		t.Fatalf("PreBuildUp failed: %v", err)
	}
	if ctx.Existing != (square{}) || !ctx.BuildComplete {
		t.Errorf("expected short circuit, got %v / %v", ctx.Existing, ctx.BuildComplete)
	}
	if ctx.BuildKey != from {
		t.Error("key must not be mapped after a direct resolve")
	}
}

func TestBuildKeyMappingStrategy_ResolveNilFallsBackToMap(t *testing.T) {
	from := KeyOf[shape]("")
	to := KeyOf[square]("")
	policies := NewPolicyList(nil)
	policies.Set(BuildKeyMappingPolicyKind, from, &ResolvingMapping{
		Resolver: func(*Context) (any, error) { return nil, nil },
		Mapping:  NewKeyMapping(to),
	})

	ctx := NewContext(NewStrategyChain(), policies, NewLifetimeContainer(), from)
	if err := (&BuildKeyMappingStrategy{}).PreBuildUp(ctx); err != nil {
		t.Fatalf("PreBuildUp failed: %v", err)
	}
	if ctx.BuildKey != to || ctx.BuildComplete {
		t.Errorf("expected mapping to %v", to)
	}
}

func TestBuildKeyMappingStrategy_UsesOriginalKey(t *testing.T) {
	from := KeyOf[shape]("")
	policies := NewPolicyList(nil)
	policies.Set(BuildKeyMappingPolicyKind, from, MappingFunc(func(key BuildKey, _ *Context) (BuildKey, error) {
		return key.WithType(TypeOf[square]()), nil
	}))

	ctx := NewContext(NewStrategyChain(), policies, NewLifetimeContainer(), from)
	ctx.BuildKey = KeyOf[shape]("already-moved")
	if err := (&BuildKeyMappingStrategy{}).PreBuildUp(ctx); err != nil {
		t.Fatalf("PreBuildUp failed: %v", err)
	}
	// 策略按原始键查找，但映射作用于当前键
	if ctx.BuildKey != KeyOf[square]("already-moved") {
		t.Errorf("unexpected key %v", ctx.BuildKey)
	}
}

func TestBuildKeyMappingStrategy_Errors(t *testing.T) {
	from := KeyOf[shape]("")
	boom := errors.New("boom")
	policies := NewPolicyList(nil)
	policies.Set(BuildKeyMappingPolicyKind, from, MappingFunc(func(BuildKey, *Context) (BuildKey, error) {
		return BuildKey{}, boom
	}))

	ctx := NewContext(NewStrategyChain(), policies, NewLifetimeContainer(), from)
	if err := (&BuildKeyMappingStrategy{}).PreBuildUp(ctx); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}

	policies.Set(BuildKeyMappingPolicyKind, from, "not a policy")
	if err := (&BuildKeyMappingStrategy{}).PreBuildUp(ctx); err == nil {
		t.Error("expected error for invalid policy type")
	}
}
