// Package tracing 提供基于 OpenTelemetry 的链路追踪基础设施.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/sortviz/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentationName = "github.com/wyfcoding/sortviz"

// InitTracer 初始化全局 TracerProvider 与传播器。
// 未启用或未配置 OTLP 地址时只设置传播器，返回空操作的 shutdown。
func InitTracer(cfg config.TracingConfig) (shutdown func(context.Context) error, err error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled || cfg.OTLPEndpoint == "" {
		slog.Info("tracing disabled, using no-op tracer provider")
		return func(context.Context) error { return nil }, nil
	}

	ctx := context.Background()
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlptracegrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("exporter", "otlp"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := NewProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res), sdktrace.WithSampler(Sampler(cfg.SamplerRatio)))
	otel.SetTracerProvider(tp)

	slog.Info("tracer provider initialized", "service", cfg.ServiceName, "endpoint", cfg.OTLPEndpoint, "ratio", cfg.SamplerRatio)

	return tp.Shutdown, nil
}

// NewProvider 创建 SDK TracerProvider，测试中可配合 tracetest.SpanRecorder 使用。
func NewProvider(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(opts...)
}

// Sampler 返回遵循父 Span 决策的比例采样器，ratio 超出 [0,1] 时截断。
func Sampler(ratio float64) sdktrace.Sampler {
	ratio = min(max(ratio, 0), 1)
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// StartSpan 创建并开始一个新的 Span，调用者负责调用 End。
//
//nolint:spancheck // 通用 Span 包装器，由调用方负责生命周期管理.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// AddTag 为当前活动的 Span 注入业务属性标签.
func AddTag(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	default:
		span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// SetError 将错误记录到当前 Span 并将其状态标记为 codes.Error.
func SetError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetTraceID 返回当前链路的追踪 ID，无 Span 时为空串.
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		return spanCtx.TraceID().String()
	}

	return ""
}
