package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AsyncWriter 在后台 goroutine 中格式化并写出日志条目
type AsyncWriter struct {
	writer     io.Writer
	formatter  Formatter
	entryCh    chan *LogEntry
	wg         sync.WaitGroup
	closeOnce  sync.Once
	closed     chan struct{}
	errHandler func(error)
}

// NewAsyncWriter 创建异步写入器，bufferSize 为队列长度
func NewAsyncWriter(writer io.Writer, formatter Formatter, bufferSize int) *AsyncWriter {
	w := &AsyncWriter{
		writer:    writer,
		formatter: formatter,
		entryCh:   make(chan *LogEntry, bufferSize),
		closed:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.process()
	return w
}

// WriteLog 写入日志条目。队列满时阻塞，保证不丢日志；关闭后的写入被丢弃。
func (w *AsyncWriter) WriteLog(entry *LogEntry) {
	select {
	case <-w.closed:
		return
	default:
	}
	select {
	case w.entryCh <- entry:
	case <-w.closed:
	}
}

// Close 停止接收并等待队列中的日志全部写出
func (w *AsyncWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.closed)
	})
	w.wg.Wait()
	if c, ok := w.writer.(io.Closer); ok && w.writer != os.Stdout && w.writer != os.Stderr {
		return c.Close()
	}
	return nil
}

// SetErrorHandler 设置错误处理函数
func (w *AsyncWriter) SetErrorHandler(handler func(error)) {
	w.errHandler = handler
}

func (w *AsyncWriter) process() {
	defer w.wg.Done()
	for {
		select {
		case entry := <-w.entryCh:
			w.write(entry)
		case <-w.closed:
			// 排空剩余条目
			for {
				select {
				case entry := <-w.entryCh:
					w.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (w *AsyncWriter) write(entry *LogEntry) {
	data, err := w.formatter.Format(entry)
	if err == nil {
		_, err = w.writer.Write(data)
	}
	if err == nil {
		return
	}
	if w.errHandler != nil {
		w.errHandler(err)
		return
	}
	fmt.Fprintf(os.Stderr, "logging: 异步写入失败: %v\n", err)
}
