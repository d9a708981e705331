package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
	// LogLevelNone 关闭所有日志
	LogLevelNone
)

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelFatal:
		return "FATAL"
	case LogLevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel 解析配置中的级别名称（大小写不敏感）
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LogLevelTrace, nil
	case "debug":
		return LogLevelDebug, nil
	case "", "info", "information":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "fatal", "critical":
		return LogLevelFatal, nil
	case "none", "off":
		return LogLevelNone, nil
	}
	return LogLevelInfo, fmt.Errorf("logging: 未知的日志级别 %q", s)
}

// Field 日志字段
type Field struct {
	Key   string
	Value any
}

// F 创建日志字段
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err 以 "error" 为键记录错误
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Logger 日志接口（类似于 .NET Core ILogger）
type Logger interface {
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	WithCategory(category string) Logger
}

// LoggerFactory 日志工厂接口
type LoggerFactory interface {
	CreateLogger(category string) Logger
	AddProvider(provider LoggerProvider)
	SetMinimumLevel(level LogLevel)
	// Close 关闭实现了 io.Closer 的提供者（刷新异步写入、同步 zap 等）
	Close() error
}

// LoggerProvider 日志提供者接口。
// 提供者创建的 Logger 只负责输出，级别过滤和字段合并由工厂完成。
type LoggerProvider interface {
	CreateLogger(category string) Logger
	SetMinimumLevel(level LogLevel)
}

// loggerFactory 日志工厂实现
type loggerFactory struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	mu           sync.RWMutex
}

func (f *loggerFactory) CreateLogger(category string) Logger {
	f.mu.RLock()
	defer f.mu.RUnlock()

	loggers := make([]Logger, 0, len(f.providers))
	for _, provider := range f.providers {
		loggers = append(loggers, provider.CreateLogger(category))
	}
	return NewCompositeLogger(loggers, f.minimumLevel, category)
}

func (f *loggerFactory) AddProvider(provider LoggerProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	provider.SetMinimumLevel(f.minimumLevel)
	f.providers = append(f.providers, provider)
}

func (f *loggerFactory) SetMinimumLevel(level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minimumLevel = level
	for _, provider := range f.providers {
		provider.SetMinimumLevel(level)
	}
}

func (f *loggerFactory) Close() error {
	f.mu.Lock()
	providers := f.providers
	f.providers = nil
	f.mu.Unlock()

	var errs []error
	for _, provider := range providers {
		if c, ok := provider.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// compositeLogger 组合日志记录器（将日志发送到多个提供者）
type compositeLogger struct {
	loggers      []Logger
	minimumLevel LogLevel
	category     string
	fields       []Field
}

// NewCompositeLogger 创建组合日志记录器（用于外部包构建）
func NewCompositeLogger(loggers []Logger, minimumLevel LogLevel, category string) Logger {
	return &compositeLogger{
		loggers:      loggers,
		minimumLevel: minimumLevel,
		category:     category,
	}
}

func (l *compositeLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *compositeLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *compositeLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *compositeLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *compositeLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *compositeLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *compositeLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.minimumLevel {
		return
	}

	// 合并字段，避免 append 共享底层数组
	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	for _, logger := range l.loggers {
		logger.Log(level, msg, all...)
	}
}

func (l *compositeLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &compositeLogger{
		loggers:      l.loggers,
		minimumLevel: l.minimumLevel,
		category:     l.category,
		fields:       merged,
	}
}

func (l *compositeLogger) WithCategory(category string) Logger {
	loggers := make([]Logger, len(l.loggers))
	for i, logger := range l.loggers {
		loggers[i] = logger.WithCategory(category)
	}
	return &compositeLogger{
		loggers:      loggers,
		minimumLevel: l.minimumLevel,
		category:     category,
		fields:       l.fields,
	}
}

// Nop 返回丢弃所有输出的 Logger，作为未配置日志时的默认值
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Trace(string, ...Field)          {}
func (nopLogger) Debug(string, ...Field)          {}
func (nopLogger) Info(string, ...Field)           {}
func (nopLogger) Warn(string, ...Field)           {}
func (nopLogger) Error(string, ...Field)          {}
func (nopLogger) Fatal(string, ...Field)          { os.Exit(1) }
func (nopLogger) Log(LogLevel, string, ...Field)  {}
func (n nopLogger) WithFields(...Field) Logger    { return n }
func (n nopLogger) WithCategory(string) Logger    { return n }
