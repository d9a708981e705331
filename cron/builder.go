package cron

import (
	"fmt"
	"reflect"

	"github.com/gocrud/ioc/logging"
)

// Builder Cron 配置构建器
type Builder struct {
	enableSeconds    bool
	enableCronLogger bool
	location         string
	jobs             []jobDefinition
	errors           []error
}

type jobDefinition struct {
	spec    string
	name    string
	handler reflect.Value
}

func NewBuilder() *Builder {
	return &Builder{location: "UTC"}
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.enableSeconds = true
	return b
}

func (b *Builder) WithLocation(location string) *Builder {
	b.location = location
	return b
}

// EnableCronLogger 输出 cron 库内部的调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.enableCronLogger = true
	return b
}

// AddJob 添加任务。handler 必须是函数，返回值为空或 error。
// 每次运行都会创建一个子容器，从中按类型解析参数，运行结束后释放；
// context.Context 参数注入本次运行的上下文。
//
//	b.AddJob("0 */5 * * * *", "sync-data", func(ctx context.Context, svc *DataService) error {
//		return svc.Sync(ctx)
//	})
func (b *Builder) AddJob(spec, name string, handler any) *Builder {
	v := reflect.ValueOf(handler)
	if err := validateHandler(v); err != nil {
		b.errors = append(b.errors, fmt.Errorf("cron: 任务 %q: %w", name, err))
		return b
	}
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: v})
	return b
}

func validateHandler(v reflect.Value) error {
	if !v.IsValid() || v.Kind() != reflect.Func {
		return fmt.Errorf("处理函数必须是函数")
	}
	t := v.Type()
	switch {
	case t.IsVariadic():
		return fmt.Errorf("不支持可变参数处理函数")
	case t.NumOut() > 1, t.NumOut() == 1 && t.Out(0) != errorType:
		return fmt.Errorf("处理函数只能返回 error")
	}
	return nil
}

// Build 构建服务，有配置错误时返回
func (b *Builder) Build(logger logging.Logger) (*Service, error) {
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}
	return newService(logger, options{
		Location:         b.location,
		EnableSeconds:    b.enableSeconds,
		EnableCronLogger: b.enableCronLogger,
	}, b.jobs)
}
