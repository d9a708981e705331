package builder

import (
	"fmt"
	"reflect"
	"strings"
)

// PolicyTarget 策略的查找目标，只能是 BuildKey 或 GenericDefinition。
type PolicyTarget interface {
	policyTarget()
}

// BuildKey 标识"要构建什么"：类型加可选名称。
//
// BuildKey 是值类型，可直接作为 map 键。映射不会修改原键，而是产生新键。
type BuildKey struct {
	Type reflect.Type
	Name string
}

// NewBuildKey 创建构建键
func NewBuildKey(typ reflect.Type, name string) BuildKey {
	return BuildKey{Type: typ, Name: name}
}

// KeyOf 返回类型 T 的构建键
//
// 示例：
//
//	key := builder.KeyOf[UserService]("")
//	named := builder.KeyOf[*sql.DB]("reporting")
func KeyOf[T any](name string) BuildKey {
	return BuildKey{Type: TypeOf[T](), Name: name}
}

// TypeOf 获取类型 T 的 reflect.Type（支持接口类型）
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// WithType 返回保留名称、替换类型后的新键
func (k BuildKey) WithType(typ reflect.Type) BuildKey {
	return BuildKey{Type: typ, Name: k.Name}
}

// IsZero 键是否未设置类型
func (k BuildKey) IsZero() bool {
	return k.Type == nil
}

func (k BuildKey) String() string {
	if k.Type == nil {
		return "<nil>"
	}
	if k.Name == "" {
		return k.Type.String()
	}
	return fmt.Sprintf("%s(name=%s)", k.Type, k.Name)
}

func (BuildKey) policyTarget() {}

// GenericDefinition 表示泛型类型的"开放定义"。
//
// Go 运行时没有开放泛型类型，这里用包路径加去掉类型参数的名称来标识，
// 例如 Repo[app.User] 和 Repo[app.Order] 共享 GenericDefinition{PkgPath: "app", Name: "Repo"}。
// Pointer 区分 *Repo[T] 与 Repo[T]。
type GenericDefinition struct {
	PkgPath string
	Name    string
	Pointer bool
}

func (GenericDefinition) policyTarget() {}

func (d GenericDefinition) String() string {
	name := d.Name + "[...]"
	if d.PkgPath != "" {
		name = d.PkgPath + "." + name
	}
	if d.Pointer {
		return "*" + name
	}
	return name
}

// GenericDefinitionOf 返回闭合泛型类型的开放定义；非泛型类型返回 false
func GenericDefinitionOf(typ reflect.Type) (GenericDefinition, bool) {
	if typ == nil {
		return GenericDefinition{}, false
	}
	pointer := false
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
		pointer = true
	}
	name := typ.Name()
	idx := strings.IndexByte(name, '[')
	if idx <= 0 {
		return GenericDefinition{}, false
	}
	return GenericDefinition{PkgPath: typ.PkgPath(), Name: name[:idx], Pointer: pointer}, true
}

// GenericOf 通过任意一个实例化类型取得开放定义
//
// 示例：
//
//	def := builder.GenericOf[*Repository[any]]()
func GenericOf[T any]() GenericDefinition {
	def, ok := GenericDefinitionOf(TypeOf[T]())
	if !ok {
		panic(fmt.Sprintf("builder: %s 不是泛型类型", TypeOf[T]()))
	}
	return def
}
