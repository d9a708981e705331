package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Formatter 日志格式化接口
type Formatter interface {
	// Format 格式化日志条目，返回的切片归调用者所有
	Format(entry *LogEntry) ([]byte, error)
}

// LogEntry 日志条目
type LogEntry struct {
	Time     time.Time
	Level    LogLevel
	Category string
	Message  string
	Fields   []Field
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// TextFormatter 文本格式化器，输出形如
//
//	2024-01-02 15:04:05 INFO [container] 注册 {key=*app.Service}
type TextFormatter struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
}

// NewTextFormatter 创建文本格式化器
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
	}
}

func (f *TextFormatter) Format(entry *LogEntry) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	if f.IncludeTimestamp {
		buf.WriteString(entry.Time.Format(f.TimestampFormat))
		buf.WriteByte(' ')
	}

	if f.ColorOutput {
		buf.WriteString(colorize(entry.Level, entry.Level.String()))
	} else {
		buf.WriteString(entry.Level.String())
	}

	if entry.Category != "" {
		buf.WriteString(" [")
		buf.WriteString(entry.Category)
		buf.WriteByte(']')
	}

	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		buf.WriteString(" {")
		for i, field := range entry.Fields {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(field.Key)
			buf.WriteByte('=')
			fmt.Fprintf(buf, "%v", field.Value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('\n')

	// AsyncWriter 异步使用结果，必须复制
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// JsonFormatter JSON 格式化器，每条日志一行
type JsonFormatter struct {
	TimestampFormat string
}

// NewJsonFormatter 创建 JSON 格式化器
func NewJsonFormatter() *JsonFormatter {
	return &JsonFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

func (f *JsonFormatter) Format(entry *LogEntry) ([]byte, error) {
	data := map[string]any{
		"time":  entry.Time.Format(f.TimestampFormat),
		"level": entry.Level.String(),
		"msg":   entry.Message,
	}
	if entry.Category != "" {
		data["category"] = entry.Category
	}
	if len(entry.Fields) > 0 {
		fields := make(map[string]any, len(entry.Fields))
		for _, field := range entry.Fields {
			// error 不能直接序列化
			if err, ok := field.Value.(error); ok {
				fields[field.Key] = err.Error()
				continue
			}
			fields[field.Key] = field.Value
		}
		data["fields"] = fields
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// colorize 为日志级别添加颜色
func colorize(level LogLevel, text string) string {
	const (
		reset   = "\033[0m"
		gray    = "\033[90m"
		cyan    = "\033[36m"
		green   = "\033[32m"
		yellow  = "\033[33m"
		red     = "\033[31m"
		magenta = "\033[35m"
	)

	switch level {
	case LogLevelTrace:
		return gray + text + reset
	case LogLevelDebug:
		return cyan + text + reset
	case LogLevelInfo:
		return green + text + reset
	case LogLevelWarn:
		return yellow + text + reset
	case LogLevelError:
		return red + text + reset
	case LogLevelFatal:
		return magenta + text + reset
	default:
		return text
	}
}
