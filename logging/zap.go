package logging

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLoggerProvider 把日志转发给 zap
type ZapLoggerProvider struct {
	mu           sync.RWMutex
	minimumLevel LogLevel
	logger       *zap.Logger
}

// NewZapLoggerProvider 使用已有的 zap.Logger；传入 nil 时创建 zap 生产配置
func NewZapLoggerProvider(logger *zap.Logger) (*ZapLoggerProvider, error) {
	if logger == nil {
		var err error
		if logger, err = zap.NewProduction(); err != nil {
			return nil, err
		}
	}
	return &ZapLoggerProvider{minimumLevel: LogLevelInfo, logger: logger}, nil
}

// NewZapDevelopmentProvider 使用 zap 开发配置（控制台编码，Debug 级别）
func NewZapDevelopmentProvider() (*ZapLoggerProvider, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return NewZapLoggerProvider(logger)
}

func (p *ZapLoggerProvider) CreateLogger(category string) Logger {
	return &zapLogger{provider: p, category: category}
}

func (p *ZapLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

// Close 刷新 zap 缓冲
func (p *ZapLoggerProvider) Close() error {
	// 标准输出不支持 fsync，忽略 Sync 的错误
	_ = p.logger.Sync()
	return nil
}

func (p *ZapLoggerProvider) enabled(level LogLevel) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return level >= p.minimumLevel
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelTrace, LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}

type zapLogger struct {
	provider *ZapLoggerProvider
	category string
	fields   []zap.Field
}

func (l *zapLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *zapLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *zapLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	l.provider.Close()
	os.Exit(1)
}

// Log 直接写 zapcore，Fatal 级别不会触发 zap 自身的退出逻辑
func (l *zapLogger) Log(level LogLevel, msg string, fields ...Field) {
	if !l.provider.enabled(level) {
		return
	}
	entry := zapcore.Entry{
		Level:      zapLevel(level),
		Time:       time.Now(),
		LoggerName: l.category,
		Message:    msg,
	}
	ce := l.provider.logger.Core().Check(entry, nil)
	if ce == nil {
		return
	}
	all := make([]zap.Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, toZapFields(fields)...)
	ce.Write(all...)
}

func (l *zapLogger) WithFields(fields ...Field) Logger {
	merged := make([]zap.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, toZapFields(fields)...)
	return &zapLogger{provider: l.provider, category: l.category, fields: merged}
}

func (l *zapLogger) WithCategory(category string) Logger {
	return &zapLogger{provider: l.provider, category: category, fields: l.fields}
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		if err, ok := f.Value.(error); ok {
			out[i] = zap.NamedError(f.Key, err)
			continue
		}
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}
