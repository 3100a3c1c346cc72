// Package eventlog 读写以 "timestamp,event,value" 为行格式的事件日志文件。
// 该文件是 /data 接口与仪表盘折线图的数据来源。
package eventlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrInvalidEvent 事件名为空或包含分隔符。
var ErrInvalidEvent = errors.New("invalid event name")

// Record 是事件日志中的一行。Timestamp 保持文件中的原样文本。
type Record struct {
	Timestamp string  `json:"timestamp"`
	Event     string  `json:"event"`
	Value     float64 `json:"value"`
}

// Log 是一个进程内串行化写入的事件日志文件。
type Log struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New 返回指向 path 的事件日志，文件在首次 Append 时创建。
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Path 返回日志文件路径。
func (l *Log) Path() string {
	return l.path
}

// Append 追加一条记录，时间戳为 UTC RFC3339。
func (l *Log) Append(ctx context.Context, event string, value float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event == "" || strings.ContainsAny(event, ",\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidEvent, event)
	}

	line := l.now().UTC().Format(time.RFC3339) + "," + event + "," +
		strconv.FormatFloat(value, 'f', -1, 64) + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create event log dir: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("write event log: %w", err)
	}
	return f.Close()
}

// Read 返回全部可解析的记录，文件不存在时返回空切片。
func (l *Log) Read() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Tail 返回最后 n 条记录，n <= 0 时返回全部。
func (l *Log) Tail(n int) ([]Record, error) {
	records, err := l.Read()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}

// maxLineBytes 单行长度上限，超过的行按格式错误整体丢弃。
const maxLineBytes = 64 * 1024

// Parse 逐行解析事件日志。字段数不为 3、数值无法解析为有限浮点数或超过 maxLineBytes 的行被跳过。
func Parse(r io.Reader) ([]Record, error) {
	records := []Record{}
	br := bufio.NewReaderSize(r, maxLineBytes)
	for {
		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if err := discardLine(br); err != nil {
				if errors.Is(err, io.EOF) {
					return records, nil
				}
				return records, fmt.Errorf("read event log: %w", err)
			}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return records, fmt.Errorf("read event log: %w", err)
		}
		if rec, ok := parseLine(string(line)); ok {
			records = append(records, rec)
		}
		if err != nil {
			return records, nil
		}
	}
}

// discardLine 丢弃当前行的剩余部分（含换行符）。
func discardLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func parseLine(line string) (Record, bool) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return Record{}, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Record{}, false
	}
	return Record{Timestamp: parts[0], Event: parts[1], Value: value}, true
}
