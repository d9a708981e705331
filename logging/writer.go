package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	Output           io.Writer
}

// FileLoggerOptions 文件日志选项
type FileLoggerOptions struct {
	Path string
	// Json 为 true 时按行输出 JSON
	Json bool
	// BufferSize 异步队列长度
	BufferSize int
}

// WriterLoggerProvider 把日志条目格式化后写入 io.Writer。
// 控制台同步写入；文件通过 AsyncWriter 异步写入。
type WriterLoggerProvider struct {
	mu           sync.RWMutex
	minimumLevel LogLevel
	formatter    Formatter
	out          io.Writer
	async        *AsyncWriter
	writeMu      sync.Mutex
}

// NewConsoleLoggerProvider 创建控制台日志提供者
func NewConsoleLoggerProvider(options ConsoleLoggerOptions) *WriterLoggerProvider {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	if options.TimestampFormat == "" {
		options.TimestampFormat = "2006-01-02 15:04:05"
	}
	return &WriterLoggerProvider{
		minimumLevel: LogLevelInfo,
		formatter: &TextFormatter{
			IncludeTimestamp: options.IncludeTimestamp,
			TimestampFormat:  options.TimestampFormat,
			ColorOutput:      options.ColorOutput,
		},
		out: options.Output,
	}
}

// NewFileLoggerProvider 创建文件日志提供者，文件以追加方式打开
func NewFileLoggerProvider(options FileLoggerOptions) (*WriterLoggerProvider, error) {
	file, err := os.OpenFile(options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: 打开日志文件 %s 失败: %w", options.Path, err)
	}
	var formatter Formatter = NewTextFormatter()
	if options.Json {
		formatter = NewJsonFormatter()
	}
	if options.BufferSize <= 0 {
		options.BufferSize = 1024
	}
	return &WriterLoggerProvider{
		minimumLevel: LogLevelInfo,
		formatter:    formatter,
		out:          file,
		async:        NewAsyncWriter(file, formatter, options.BufferSize),
	}, nil
}

func (p *WriterLoggerProvider) CreateLogger(category string) Logger {
	return &writerLogger{provider: p, category: category}
}

func (p *WriterLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

// Close 刷新并关闭异步写入器
func (p *WriterLoggerProvider) Close() error {
	if p.async != nil {
		return p.async.Close()
	}
	return nil
}

func (p *WriterLoggerProvider) write(entry *LogEntry) {
	p.mu.RLock()
	threshold := p.minimumLevel
	p.mu.RUnlock()
	if entry.Level < threshold {
		return
	}

	if p.async != nil {
		p.async.WriteLog(entry)
		return
	}

	data, err := p.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: 格式化失败: %v\n", err)
		return
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.out.Write(data)
}

// writerLogger 提供者侧的 Logger
type writerLogger struct {
	provider *WriterLoggerProvider
	category string
	fields   []Field
}

func (l *writerLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *writerLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *writerLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *writerLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *writerLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *writerLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	l.provider.Close()
	os.Exit(1)
}

func (l *writerLogger) Log(level LogLevel, msg string, fields ...Field) {
	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)
	l.provider.write(&LogEntry{
		Time:     time.Now(),
		Level:    level,
		Category: l.category,
		Message:  msg,
		Fields:   all,
	})
}

func (l *writerLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &writerLogger{provider: l.provider, category: l.category, fields: merged}
}

func (l *writerLogger) WithCategory(category string) Logger {
	return &writerLogger{provider: l.provider, category: category, fields: l.fields}
}
