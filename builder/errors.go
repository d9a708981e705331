package builder

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrArgumentNull 必需的参数缺失
	ErrArgumentNull = errors.New("builder: 参数不能为空")

	// ErrTypeMismatch 实例不能赋值给声明的注册类型
	ErrTypeMismatch = errors.New("builder: 类型不匹配")

	// ErrLifetimeManagerInUse 生命周期管理器已绑定到其他注册
	ErrLifetimeManagerInUse = errors.New("builder: 生命周期管理器已被使用")

	// ErrCircularDependency 构建键在同一条解析链上依赖自身
	ErrCircularDependency = errors.New("builder: 检测到循环依赖")

	// ErrNotRegistered 没有任何策略能为该键产生对象
	ErrNotRegistered = errors.New("builder: 未注册")

	// ErrNilInstance 构建计划返回了 nil
	ErrNilInstance = errors.New("builder: 构建计划返回了 nil 实例")
)

// NewTypeMismatchError 创建同时包含两个类型名的类型不匹配错误
func NewTypeMismatchError(declared, actual reflect.Type) error {
	return fmt.Errorf("%w: %v 不能赋值给 %v", ErrTypeMismatch, actual, declared)
}

// ResolutionFailedError 解析失败
//
// 解析失败时总是返回该错误。嵌套依赖失败会形成一条链：
// 外层键 -> 内层键 -> 最内层原因，可用 errors.Is / errors.As 检查。
type ResolutionFailedError struct {
	OriginalKey BuildKey
	MappedKey   BuildKey
	Err         error
}

func (e *ResolutionFailedError) Error() string {
	var b strings.Builder
	b.WriteString("builder: 解析 ")
	b.WriteString(e.OriginalKey.String())
	if e.MappedKey != e.OriginalKey && !e.MappedKey.IsZero() {
		b.WriteString(" (映射到 ")
		b.WriteString(e.MappedKey.String())
		b.WriteString(")")
	}
	b.WriteString(" 失败: ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ResolutionFailedError) Unwrap() error {
	return e.Err
}

// Cause 返回最内层的原因
func (e *ResolutionFailedError) Cause() error {
	var err error = e
	for {
		var rfe *ResolutionFailedError
		if !errors.As(err, &rfe) {
			return err
		}
		err = rfe.Err
	}
}

func circularError(ctx *Context, key BuildKey) error {
	chain := []string{key.String()}
	for p := ctx; p != nil; p = p.parent {
		chain = append(chain, p.OriginalBuildKey.String())
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(chain, " -> "))
}
