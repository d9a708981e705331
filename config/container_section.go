package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/lifetime"
)

// TypeRegistry 配置中使用的类型别名表
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]registeredType
}

type registeredType struct {
	typ  reflect.Type
	ctor any
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]registeredType)}
}

// Register 登记别名，重复登记会覆盖
func (r *TypeRegistry) Register(name string, typ reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = registeredType{typ: typ}
}

// RegisterConstructor 以构造函数的返回类型登记别名，该别名作为映射目标时用构造函数构建
func (r *TypeRegistry) RegisterConstructor(name string, ctor any) error {
	plan, err := builder.NewConstructorPlan(ctor)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = registeredType{typ: plan.ResultType(), ctor: ctor}
	return nil
}

// Lookup 按别名查找类型
func (r *TypeRegistry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t.typ, ok
}

// Names 已登记的别名，按字母排序
func (r *TypeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *TypeRegistry) constructor(name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.types[name].ctor
}

// Alias 泛型版本的 Register
func Alias[T any](r *TypeRegistry, name string) {
	r.Register(name, builder.TypeOf[T]())
}

// ContainerSection 容器配置节
//
//	container:
//	  registrations:
//	    - type: greeter
//	      mapTo: englishGreeter
//	      lifetime: singleton
//	    - type: port
//	      name: http
//	      value: 8080
type ContainerSection struct {
	Registrations []RegistrationElement `json:"registrations"`
}

// RegistrationElement 一条配置注册。Value 不为 nil 时注册为实例。
type RegistrationElement struct {
	Type     string `json:"type"`
	MapTo    string `json:"mapTo"`
	Name     string `json:"name"`
	Lifetime string `json:"lifetime"`
	Value    any    `json:"value"`
}

func (e RegistrationElement) String() string {
	if e.Name == "" {
		return e.Type
	}
	return fmt.Sprintf("%s(name=%s)", e.Type, e.Name)
}

// ApplyContainerSection 读取 section 下的容器配置并逐条注册到 c。
// 任何一条失败都会停止并返回指明该条目的错误，之前的条目保持已注册。
func ApplyContainerSection(c *container.Container, cfg Configuration, section string, types *TypeRegistry) error {
	if types == nil {
		types = NewTypeRegistry()
	}
	var s ContainerSection
	if err := cfg.Bind(section, &s); err != nil {
		return fmt.Errorf("config: 读取容器配置节 %q 失败: %w", section, err)
	}
	for i, el := range s.Registrations {
		if err := applyElement(c, el, types); err != nil {
			return fmt.Errorf("config: 容器注册 #%d %s: %w", i, el, err)
		}
	}
	return nil
}

func applyElement(c *container.Container, el RegistrationElement, types *TypeRegistry) error {
	from, ok := types.Lookup(el.Type)
	if !ok {
		return fmt.Errorf("未知类型别名 %q", el.Type)
	}

	opts := []container.RegisterOption{container.WithName(el.Name)}
	if el.Lifetime != "" {
		m, err := lifetime.Parse(el.Lifetime)
		if err != nil {
			return err
		}
		opts = append(opts, container.WithLifetime(m))
	}

	if el.Value != nil {
		instance, err := convertValue(el.Value, from)
		if err != nil {
			return err
		}
		return c.RegisterInstance(from, instance, opts...)
	}

	to, target := from, el.Type
	if el.MapTo != "" {
		if to, ok = types.Lookup(el.MapTo); !ok {
			return fmt.Errorf("未知映射类型别名 %q", el.MapTo)
		}
		target = el.MapTo
	}
	if ctor := types.constructor(target); ctor != nil {
		opts = append(opts, container.WithConstructor(ctor))
	}
	return c.RegisterType(from, to, opts...)
}

// convertValue 把配置值转换为 typ 的实例
func convertValue(v any, typ reflect.Type) (any, error) {
	if reflect.TypeOf(v).AssignableTo(typ) {
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(typ)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("无法把 %v 转换为 %v: %w", v, typ, err)
	}
	return ptr.Elem().Interface(), nil
}
