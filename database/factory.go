package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gocrud/ioc/logging"
	"gorm.io/gorm"
)

// Factory 按名称持有 *gorm.DB
type Factory struct {
	mu     sync.RWMutex
	dbs    map[string]*gorm.DB
	logger logging.Logger
}

func NewFactory(logger logging.Logger) *Factory {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Factory{dbs: make(map[string]*gorm.DB), logger: logger}
}

// Register 打开连接、配置连接池并执行自动迁移。
// GormConfig 没有设置 Logger 时使用工厂的日志。
func (f *Factory) Register(opts Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.dbs[opts.Name]; exists {
		return fmt.Errorf("database: %q 已注册", opts.Name)
	}

	cfg := opts.GormConfig
	if cfg == nil {
		cfg = &gorm.Config{}
	}
	if cfg.Logger == nil {
		cfg.Logger = newGormLogger(f.logger.WithFields(logging.F("db", opts.Name)), opts.SlowThreshold)
	}

	db, err := gorm.Open(opts.Dialector, cfg)
	if err != nil {
		return fmt.Errorf("database: 打开 %q 失败: %w", opts.Name, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: 获取 %q 的 sql.DB 失败: %w", opts.Name, err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)

	if len(opts.AutoMigrate) > 0 {
		if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
			_ = sqlDB.Close()
			return fmt.Errorf("database: %q 自动迁移失败: %w", opts.Name, err)
		}
	}

	f.dbs[opts.Name] = db
	return nil
}

func (f *Factory) Get(name string) (*gorm.DB, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	db, ok := f.dbs[name]
	if !ok {
		return nil, fmt.Errorf("database: %q 不存在", name)
	}
	return db, nil
}

func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.dbs))
	for name := range f.dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close 关闭所有连接
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for name, db := range f.dbs {
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, fmt.Errorf("database: 获取 %q 的 sql.DB 失败: %w", name, err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: 关闭 %q 失败: %w", name, err))
		}
	}
	f.dbs = make(map[string]*gorm.DB)
	return errors.Join(errs...)
}
