// Package logging 提供了统一的结构化日志（slog）封装，支持 OpenTelemetry 追踪上下文注入、
// 文件切割以及运行时调整日志级别。
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/wyfcoding/sortviz/contextx"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// defaultLogger 是全局默认的Logger实例，采用单例模式。
	defaultLogger *Logger
	mu            sync.Mutex
	// level 被所有由本包创建的 Handler 共享，SetLevel 修改后立即生效。
	level = new(slog.LevelVar)
)

// 日志输出目标。
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputBoth   = "both"
)

// Config 定义日志配置
type Config struct {
	Service    string
	Module     string
	Level      string
	Output     string    // stdout / file / both，默认 stdout
	File       string    // 日志文件路径，Output 包含 file 时必填
	MaxSize    int       // 每个日志文件最大尺寸 (MB)
	MaxBackups int       // 保留旧日志文件的最大个数
	MaxAge     int       // 保留旧日志文件的最大天数
	Compress   bool      // 是否压缩旧日志
	Writer     io.Writer // 非空时替代 stdout，主要用于测试
}

// Logger 结构体封装了原生的 `*slog.Logger`，并添加了服务名和模块名，方便在日志中区分来源。
type Logger struct {
	*slog.Logger
	Service string // 服务名称
	Module  string // 模块名称
}

// TraceHandler 为每条记录补充上下文里的关联字段：trace_id/span_id、request_id 与 run_id。
type TraceHandler struct {
	slog.Handler
}

// Handle 仅追加上下文中实际存在的字段。
func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if id := contextx.GetRequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if id := contextx.GetRunID(ctx); id != "" {
		r.AddAttrs(slog.String("run_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}

// teeHandler 把同一条记录写到 stdout 与滚动文件，output = both 时使用。
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return slices.ContainsFunc(t, func(h slog.Handler) bool { return h.Enabled(ctx, l) })
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

// ParseLevel 将配置中的级别字符串转换为 slog.Level，未知值按 info 处理。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel 在运行时调整全部日志器的输出级别，配置热更新时调用。
func SetLevel(s string) {
	level.Set(ParseLevel(s))
}

// NewFromConfig 创建一个新的Logger实例。
// 支持通过 Config 结构体配置输出目标与日志切割。
func NewFromConfig(cfg *Config) *Logger {
	level.Set(ParseLevel(cfg.Level))

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			return a
		},
	}

	var stdout io.Writer = os.Stdout
	if cfg.Writer != nil {
		stdout = cfg.Writer
	}

	var handler slog.Handler
	switch {
	case cfg.File != "" && cfg.Output == OutputFile:
		handler = slog.NewJSONHandler(newFileWriter(cfg), opts)
	case cfg.File != "" && cfg.Output == OutputBoth:
		handler = teeHandler{
			slog.NewJSONHandler(stdout, opts),
			slog.NewJSONHandler(newFileWriter(cfg), opts),
		}
	default:
		handler = slog.NewJSONHandler(stdout, opts)
	}

	logger := slog.New(&TraceHandler{Handler: handler}).With(
		slog.String("service", cfg.Service),
		slog.String("module", cfg.Module),
	)

	return &Logger{
		Logger:  logger,
		Service: cfg.Service,
		Module:  cfg.Module,
	}
}

// newFileWriter 使用 lumberjack 进行日志切割。
func newFileWriter(cfg *Config) io.Writer {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}
}

// SetDefault 用已构建的 Logger 替换全局默认日志记录器，并同步到 slog。
func SetDefault(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
	slog.SetDefault(l.Logger)
}

// Default 返回全局日志记录器，未经 SetDefault 时构造一个输出到 stdout 的实例。
func Default() *Logger {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewFromConfig(&Config{Service: "sortviz", Module: "default", Level: "info"})
	}
	return defaultLogger
}

// Named 派生一个指定组件名的子日志器。
func (l *Logger) Named(module string) *Logger {
	return &Logger{
		Logger:  l.Logger.With(slog.String("component", module)),
		Service: l.Service,
		Module:  module,
	}
}
