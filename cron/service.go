package cron

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/logging"
	"github.com/robfig/cron/v3"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

type options struct {
	Location         string
	EnableSeconds    bool
	EnableCronLogger bool
}

// Service Cron 托管服务
type Service struct {
	cron    *cron.Cron
	logger  logging.Logger
	jobDefs []jobDefinition

	mu        sync.RWMutex
	jobs      map[string]cron.EntryID
	container *container.Container
	runCtx    context.Context
	cancel    context.CancelFunc
}

func newService(logger logging.Logger, opt options, jobs []jobDefinition) (*Service, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithCategory("cron")

	loc, err := time.LoadLocation(opt.Location)
	if err != nil {
		return nil, fmt.Errorf("cron: 时区 %q 无效: %w", opt.Location, err)
	}

	adapter := newCronLogger(logger)
	cronOpts := []cron.Option{
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(adapter)),
	}
	if opt.EnableCronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(adapter))
	}
	if opt.EnableSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	runCtx, cancel := context.WithCancel(context.Background())
	return &Service{
		cron:    cron.New(cronOpts...),
		logger:  logger,
		jobDefs: jobs,
		jobs:    make(map[string]cron.EntryID),
		runCtx:  runCtx,
		cancel:  cancel,
	}, nil
}

// Bind 设置解析任务依赖的根容器，必须在 Start 之前调用
func (s *Service) Bind(c *container.Container) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.container = c
}

// Jobs 已调度的任务名称
func (s *Service) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Start 调度所有任务后立即返回，cron 在自己的 goroutine 中运行
func (s *Service) Start(ctx context.Context) error {
	for _, def := range s.jobDefs {
		if err := s.schedule(def); err != nil {
			return err
		}
	}
	s.logger.Info("Cron 服务已启动", logging.F("jobs", len(s.jobDefs)))
	s.cron.Start()
	return nil
}

// Stop 等待运行中的任务结束或 ctx 超时
func (s *Service) Stop(ctx context.Context) error {
	s.cancel()
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.logger.Info("Cron 服务已停止")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) schedule(def jobDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[def.name]; exists {
		return fmt.Errorf("cron: 任务 %q 重复", def.name)
	}
	id, err := s.cron.AddFunc(def.spec, func() {
		if err := s.Run(s.runCtx, def.name); err != nil {
			s.logger.Error("Cron 任务失败", logging.F("job", def.name), logging.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("cron: 任务 %q 的表达式 %q 无效: %w", def.name, def.spec, err)
	}
	s.jobs[def.name] = id
	s.logger.Debug("Cron 任务已调度", logging.F("job", def.name), logging.F("spec", def.spec))
	return nil
}

// Run 立即执行一次任务：创建子容器解析参数，调用处理函数，然后释放子容器
func (s *Service) Run(ctx context.Context, name string) (err error) {
	def, ok := s.find(name)
	if !ok {
		return fmt.Errorf("cron: 任务 %q 不存在", name)
	}

	s.mu.RLock()
	root := s.container
	s.mu.RUnlock()

	t := def.handler.Type()
	if t.NumIn() > 0 && root == nil {
		return fmt.Errorf("cron: 任务 %q 需要依赖注入但没有绑定容器", name)
	}

	var scope *container.Container
	if root != nil {
		scope = root.CreateChildContainer()
		defer func() {
			if derr := scope.Dispose(); derr != nil && err == nil {
				err = derr
			}
		}()
	}

	args := make([]reflect.Value, t.NumIn())
	for i := range args {
		pt := t.In(i)
		if pt == contextType {
			args[i] = reflect.ValueOf(&ctx).Elem()
			continue
		}
		v, rerr := scope.Resolve(builder.NewBuildKey(pt, ""))
		if rerr != nil {
			return fmt.Errorf("cron: 任务 %q 解析参数 %v 失败: %w", name, pt, rerr)
		}
		args[i] = reflect.ValueOf(v)
	}

	start := time.Now()
	out := def.handler.Call(args)
	s.logger.Debug("Cron 任务完成", logging.F("job", name), logging.F("elapsed", time.Since(start)))
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

func (s *Service) find(name string) (jobDefinition, bool) {
	for _, def := range s.jobDefs {
		if def.name == name {
			return def, true
		}
	}
	return jobDefinition{}, false
}

// cronLogger 把 logging.Logger 适配为 cron.Logger
type cronLogger struct {
	logger logging.Logger
}

func newCronLogger(logger logging.Logger) cron.Logger {
	return &cronLogger{logger: logger}
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, convertToFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(convertToFields(keysAndValues), logging.Err(err))...)
}

func convertToFields(keysAndValues []any) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.F(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}
