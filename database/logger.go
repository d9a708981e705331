package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocrud/ioc/logging"
	gormlogger "gorm.io/gorm/logger"
)

// gormLogger 把 gorm 的日志输出到 logging.Logger
type gormLogger struct {
	logger        logging.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(logger logging.Logger, slow time.Duration) gormlogger.Interface {
	return &gormLogger{logger: logger, level: gormlogger.Warn, slowThreshold: slow}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.logger.Error("SQL 执行失败", logging.F("sql", sql), logging.F("rows", rows), logging.F("elapsed", elapsed), logging.Err(err))
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger.Warn("慢 SQL", logging.F("sql", sql), logging.F("rows", rows), logging.F("elapsed", elapsed))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger.Trace("SQL", logging.F("sql", sql), logging.F("rows", rows), logging.F("elapsed", elapsed))
	}
}
