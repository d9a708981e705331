package builder

import "fmt"

// BuildKeyMappingPolicy 把一个构建键映射到另一个
type BuildKeyMappingPolicy interface {
	Map(key BuildKey, ctx *Context) (BuildKey, error)
}

// DependencyResolverPolicy 直接产生对象的策略。
// 映射策略同时实现它时，非 nil 的结果会让构建链短路。
type DependencyResolverPolicy interface {
	Resolve(ctx *Context) (any, error)
}

// KeyMapping 固定映射到 To
type KeyMapping struct {
	To BuildKey
}

// NewKeyMapping 创建固定映射策略
func NewKeyMapping(to BuildKey) *KeyMapping {
	return &KeyMapping{To: to}
}

func (m *KeyMapping) Map(BuildKey, *Context) (BuildKey, error) {
	return m.To, nil
}

// MappingFunc 函数适配器
type MappingFunc func(key BuildKey, ctx *Context) (BuildKey, error)

func (f MappingFunc) Map(key BuildKey, ctx *Context) (BuildKey, error) {
	return f(key, ctx)
}

// ResolvingMapping 先尝试 Resolver，返回 nil 时退回到 Mapping
type ResolvingMapping struct {
	Resolver func(ctx *Context) (any, error)
	Mapping  BuildKeyMappingPolicy
}

func (m *ResolvingMapping) Resolve(ctx *Context) (any, error) {
	if m.Resolver == nil {
		return nil, nil
	}
	return m.Resolver(ctx)
}

func (m *ResolvingMapping) Map(key BuildKey, ctx *Context) (BuildKey, error) {
	if m.Mapping == nil {
		return key, nil
	}
	return m.Mapping.Map(key, ctx)
}

// BuildKeyMappingStrategy 根据持久策略中为原始键注册的映射策略重定向构建键
type BuildKeyMappingStrategy struct{}

func (s *BuildKeyMappingStrategy) PreBuildUp(ctx *Context) error {
	raw, _ := ctx.PersistentPolicies.GetNoDefault(BuildKeyMappingPolicyKind, ctx.OriginalBuildKey)
	if raw == nil {
		return nil
	}
	policy, ok := raw.(BuildKeyMappingPolicy)
	if !ok {
		return fmt.Errorf("builder: %s 的映射策略类型 %T 无效", ctx.OriginalBuildKey, raw)
	}

	if resolver, ok := policy.(DependencyResolverPolicy); ok {
		v, err := resolver.Resolve(ctx)
		if err != nil {
			return err
		}
		if v != nil {
			ctx.Existing = v
			ctx.BuildComplete = true
			return nil
		}
	}

	mapped, err := policy.Map(ctx.BuildKey, ctx)
	if err != nil {
		return err
	}
	ctx.BuildKey = mapped
	return nil
}

func (s *BuildKeyMappingStrategy) PostBuildUp(*Context) error {
	return nil
}
