package builder

import (
	"fmt"
	"reflect"
)

// BuildPlanPolicy 为构建键创建对象
type BuildPlanPolicy interface {
	BuildUp(ctx *Context) (any, error)
}

// BuildPlanFunc 函数适配器
type BuildPlanFunc func(ctx *Context) (any, error)

func (f BuildPlanFunc) BuildUp(ctx *Context) (any, error) {
	return f(ctx)
}

var (
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	contextType  = reflect.TypeOf((*Context)(nil))
	resolverType = reflect.TypeOf((*Resolver)(nil)).Elem()
)

// ConstructorPlan 通过反射调用构造函数，参数按类型从容器中解析。
//
// 支持的签名：
//
//	func(deps...) T
//	func(deps...) (T, error)
//
// 参数类型为 *builder.Context 或 builder.Resolver 时注入当前上下文。
type ConstructorPlan struct {
	fn     reflect.Value
	params []reflect.Type
	result reflect.Type
}

// NewConstructorPlan 校验构造函数签名并创建构建计划
func NewConstructorPlan(fn any) (*ConstructorPlan, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: 构造函数为 nil", ErrArgumentNull)
	}
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("builder: 构造函数必须是函数，实际为 %v", t)
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("builder: 不支持可变参数构造函数 %v", t)
	}
	switch t.NumOut() {
	case 1:
		if t.Out(0) == errorType {
			return nil, fmt.Errorf("builder: 构造函数 %v 必须返回实例", t)
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("builder: 构造函数 %v 的第二个返回值必须是 error", t)
		}
	default:
		return nil, fmt.Errorf("builder: 构造函数 %v 必须返回 1 或 2 个值", t)
	}

	params := make([]reflect.Type, t.NumIn())
	for i := range params {
		params[i] = t.In(i)
	}
	return &ConstructorPlan{fn: v, params: params, result: t.Out(0)}, nil
}

// ResultType 构造函数返回的实例类型
func (p *ConstructorPlan) ResultType() reflect.Type {
	return p.result
}

// Dependencies 需要从容器中解析的依赖键
func (p *ConstructorPlan) Dependencies() []BuildKey {
	keys := make([]BuildKey, 0, len(p.params))
	for _, t := range p.params {
		if t == contextType || t == resolverType {
			continue
		}
		keys = append(keys, BuildKey{Type: t})
	}
	return keys
}

func (p *ConstructorPlan) BuildUp(ctx *Context) (any, error) {
	args := make([]reflect.Value, len(p.params))
	for i, t := range p.params {
		switch t {
		case contextType:
			args[i] = reflect.ValueOf(ctx)
		case resolverType:
			args[i] = reflect.ValueOf(Resolver(ctx))
		default:
			dep, err := ctx.NewBuildUp(BuildKey{Type: t})
			if err != nil {
				return nil, err
			}
			if !reflect.TypeOf(dep).AssignableTo(t) {
				return nil, NewTypeMismatchError(t, reflect.TypeOf(dep))
			}
			args[i] = reflect.ValueOf(dep)
		}
	}

	results := p.fn.Call(args)

	// 检查 error
	if len(results) == 2 && !results[1].IsNil() {
		return nil, fmt.Errorf("builder: 构造函数 %v 失败: %w", p.fn.Type(), results[1].Interface().(error))
	}

	// 检查 nil
	v := results[0].Interface()
	if isNil(v) {
		return nil, ErrNilInstance
	}
	return v, nil
}

// ZeroValuePlan 创建类型的零值实例：指针类型分配新的元素，其他类型返回零值。
// 适合 Repository[T] 这类零值即可用的泛型类型。
type ZeroValuePlan struct{}

func (ZeroValuePlan) BuildUp(ctx *Context) (any, error) {
	t := ctx.BuildKey.Type
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface(), nil
	}
	return reflect.Zero(t).Interface(), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// BuildPlanStrategy 在 Creation 阶段按当前（映射后的）构建键执行构建计划
type BuildPlanStrategy struct{}

func (s *BuildPlanStrategy) PreBuildUp(ctx *Context) error {
	if ctx.Existing != nil {
		return nil
	}
	raw := s.planFor(ctx)
	if raw == nil {
		return ErrNotRegistered
	}
	plan, ok := raw.(BuildPlanPolicy)
	if !ok {
		return fmt.Errorf("builder: %s 的构建计划类型 %T 无效", ctx.BuildKey, raw)
	}
	v, err := plan.BuildUp(ctx)
	if err != nil {
		return err
	}
	if isNil(v) {
		return ErrNilInstance
	}
	ctx.Existing = v
	return nil
}

// planFor 查找顺序：键相关计划 -> 泛型定义上的计划 -> 默认计划
func (s *BuildPlanStrategy) planFor(ctx *Context) any {
	if raw, _ := ctx.Policies.GetNoDefault(BuildPlanPolicyKind, ctx.BuildKey); raw != nil {
		return raw
	}
	if def, ok := GenericDefinitionOf(ctx.BuildKey.Type); ok {
		if raw, _ := ctx.Policies.GetNoDefault(BuildPlanPolicyKind, def); raw != nil {
			return raw
		}
	}
	raw, _ := ctx.PersistentPolicies.GetDefault(BuildPlanPolicyKind)
	return raw
}

func (s *BuildPlanStrategy) PostBuildUp(*Context) error {
	return nil
}
