package core

import (
	"reflect"
	"sync"
)

// FeatureCollection 按类型存放构建期特性
type FeatureCollection struct {
	features sync.Map
}

// Set 以 feature 的动态类型为键保存，同类型会覆盖
func (fc *FeatureCollection) Set(feature any) {
	fc.features.Store(reflect.TypeOf(feature), feature)
}

func (fc *FeatureCollection) Get(typ reflect.Type) (any, bool) {
	return fc.features.Load(typ)
}

// GetFeature 按类型取特性，不存在时返回零值
func GetFeature[T any](rt *Runtime) (T, bool) {
	var zero T
	v, ok := rt.Features.Get(reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
