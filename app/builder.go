package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/wyfcoding/sortviz/algorithm"
	"github.com/wyfcoding/sortviz/animation"
	"github.com/wyfcoding/sortviz/cache"
	"github.com/wyfcoding/sortviz/config"
	"github.com/wyfcoding/sortviz/eventlog"
	"github.com/wyfcoding/sortviz/idgen"
	"github.com/wyfcoding/sortviz/limiter"
	"github.com/wyfcoding/sortviz/logging"
	"github.com/wyfcoding/sortviz/metrics"
	"github.com/wyfcoding/sortviz/middleware"
	"github.com/wyfcoding/sortviz/scheduler"
	"github.com/wyfcoding/sortviz/server"
	"github.com/wyfcoding/sortviz/tracing"

	"github.com/gin-gonic/gin"
)

const (
	defaultMetricsPath = "/metrics"
	healthPath         = "/sys/health"
	samplerJobName     = "sampler"
)

func metricsPathOf(cfg *config.Config) string {
	if cfg.Metrics.Path == "" {
		return defaultMetricsPath
	}
	return cfg.Metrics.Path
}

// Builder 按配置组装排序动画服务的全部组件.
type Builder struct {
	serviceName   string
	configPath    string
	conf          *config.Config
	logWriter     io.Writer
	ginMiddleware []gin.HandlerFunc
	tracingMW     gin.HandlerFunc
	appOpts       []Option

	engine    *gin.Engine
	server    *server.GinServer
	service   *animation.Service
	scheduler *scheduler.Scheduler
	limiter   *limiter.DynamicLimiter
	metrics   *metrics.Metrics
}

// NewBuilder 创建一个新的应用构建器.
func NewBuilder(serviceName string) *Builder {
	return &Builder{serviceName: serviceName}
}

// WithConfigPath 从 TOML 文件加载配置并监听变更.
func (b *Builder) WithConfigPath(path string) *Builder {
	b.configPath = path
	return b
}

// WithConfig 直接使用给定配置，不读取文件.
func (b *Builder) WithConfig(conf *config.Config) *Builder {
	b.conf = conf
	return b
}

// WithLogWriter 替换日志的标准输出目标.
func (b *Builder) WithLogWriter(w io.Writer) *Builder {
	b.logWriter = w
	return b
}

// WithGinMiddleware 添加 Gin 中间件.
func (b *Builder) WithGinMiddleware(mw ...gin.HandlerFunc) *Builder {
	b.ginMiddleware = append(b.ginMiddleware, mw...)
	return b
}

// WithOption 透传 App 选项.
func (b *Builder) WithOption(opts ...Option) *Builder {
	b.appOpts = append(b.appOpts, opts...)
	return b
}

// Build 构建并组装完整的 App 实例.
func (b *Builder) Build() (*App, error) {
	cfg, err := b.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Server.Name != "" {
		b.serviceName = cfg.Server.Name
	}

	logger := b.initLogger(cfg)
	config.PrintWithMask(cfg)

	if err := b.initTracing(cfg, logger); err != nil {
		return nil, err
	}
	m := b.initMetrics(cfg)

	if err := idgen.Init(cfg.Snowflake); err != nil {
		return nil, fmt.Errorf("init id generator: %w", err)
	}

	svcOpts := []animation.ServiceOption{
		animation.WithMetrics(m),
		animation.WithLogger(logger),
	}
	if cfg.Cache.Enabled {
		c, err := cache.NewBigCache(cfg.Cache.LifeWindow, cfg.Cache.MaxSizeMB, m)
		if err != nil {
			return nil, fmt.Errorf("init run cache: %w", err)
		}
		b.appOpts = append(b.appOpts, WithCleanup(func() { _ = c.Close() }))
		svcOpts = append(svcOpts, animation.WithCache(c, cfg.Cache.LifeWindow))
	}
	b.service = animation.NewService(cfg.Sort, svcOpts...)
	events := eventlog.New(cfg.Events.Path)

	hub := server.NewWSManager(logger.Logger, server.WithSendBuffer(sendBufferFor(cfg)))
	b.appOpts = append(b.appOpts, WithHook(Hook{
		Name: "websocket",
		OnStart: func(ctx context.Context) error {
			go hub.Run(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-hub.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}))

	if err := b.initScheduler(cfg, logger, m, events, hub); err != nil {
		return nil, err
	}

	b.limiter = limiter.NewDynamicLocalLimiter(rateOf(cfg.RateLimit), cfg.RateLimit.Burst)
	if b.configPath != "" {
		config.RegisterReloadHook(b.onReload)
	}

	if err := b.initHTTP(cfg, logger, m, events, hub); err != nil {
		return nil, err
	}

	return New(b.serviceName, logger.Logger, b.appOpts...), nil
}

// Engine 返回组装好的 Gin 引擎，Build 之前为 nil.
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// Server 返回 HTTP 服务器，Build 之前为 nil.
func (b *Builder) Server() *server.GinServer {
	return b.server
}

// Scheduler 返回后台任务调度器，Build 之前为 nil.
func (b *Builder) Scheduler() *scheduler.Scheduler {
	return b.scheduler
}

func (b *Builder) loadConfig() (*config.Config, error) {
	if b.conf != nil {
		if err := config.Validate(b.conf); err != nil {
			return nil, err
		}
		return b.conf, nil
	}

	b.conf = config.Default()
	if b.configPath == "" {
		return b.conf, nil
	}
	if err := config.Load(b.configPath, b.conf); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return b.conf, nil
}

func (b *Builder) onReload(cfg *config.Config) {
	b.service.UpdateConfig(cfg.Sort)
	b.metrics.SetCounterMode(cfg.Sort.FastCount)
	b.limiter.UpdateLocal(rateOf(cfg.RateLimit), cfg.RateLimit.Burst)
}

// sendBufferFor 保证一次采样的突发推送不会写满客户端缓冲。
func sendBufferFor(cfg *config.Config) int {
	return max(server.DefaultSendBuffer, animation.FramesPerTick(samplerLength(cfg))+server.DefaultSendBuffer/4)
}

func samplerLength(cfg *config.Config) int {
	if cfg.Sampler.Length == 0 {
		return cfg.Sort.DefaultLength
	}
	return cfg.Sampler.Length
}

func rateOf(cfg config.RateLimitConfig) int {
	if !cfg.Enabled {
		return 0
	}
	return cfg.Rate
}

func (b *Builder) initLogger(cfg *config.Config) *logging.Logger {
	logConfig := logging.Config{
		Service:    b.serviceName,
		Module:     "app",
		Level:      cfg.Log.Level,
		Output:     cfg.Log.Output,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
		Writer:     b.logWriter,
	}

	logger := logging.NewFromConfig(&logConfig)
	logging.SetDefault(logger)
	return logger
}

func (b *Builder) initTracing(cfg *config.Config, logger *logging.Logger) error {
	tc := cfg.Tracing
	if tc.ServiceName == "" {
		tc.ServiceName = b.serviceName
	}
	shutdown, err := tracing.InitTracer(tc)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	b.appOpts = append(b.appOpts, WithCleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Error("failed to shutdown tracer", "error", err)
		}
	}))

	if tc.Enabled {
		b.tracingMW = middleware.TracingMiddleware(tc.ServiceName, metricsPathOf(cfg), healthPath)
	}
	return nil
}

func (b *Builder) initMetrics(cfg *config.Config) *metrics.Metrics {
	m := metrics.NewMetrics(b.serviceName)
	var algos []string
	for _, a := range algorithm.Algorithms() {
		algos = append(algos, string(a))
	}
	m.RegisterBuildInfo(b.serviceName, cfg.Version, algos)
	m.SetCounterMode(cfg.Sort.FastCount)
	b.metrics = m

	if cfg.Metrics.Enabled && cfg.Metrics.Port != "" {
		b.appOpts = append(b.appOpts, WithCleanup(m.ExposeHTTP(cfg.Metrics.Port)))
	}
	return m
}

func (b *Builder) initScheduler(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics,
	events *eventlog.Log, hub *server.WSManager,
) error {
	b.scheduler = scheduler.NewSchedulerWithMetrics(logger.Named("scheduler"), m)

	if cfg.Sampler.Enabled {
		sampler := animation.NewSampler(b.service, events, hub, samplerLength(cfg))
		err := b.scheduler.AddJob(scheduler.JobConfig{
			Name:    samplerJobName,
			Spec:    cfg.Sampler.Spec,
			Timeout: cfg.Sampler.Timeout,
		}, sampler.Run)
		if err != nil {
			return fmt.Errorf("register sampler job: %w", err)
		}
	}

	sched := b.scheduler
	b.appOpts = append(b.appOpts, WithHook(Hook{
		Name: "scheduler",
		OnStart: func(ctx context.Context) error {
			sched.Start(ctx)
			return nil
		},
		OnStop: sched.Stop,
	}))
	return nil
}

func (b *Builder) initHTTP(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics,
	events *eventlog.Log, hub *server.WSManager,
) error {
	metricsPath := metricsPathOf(cfg)

	// 追踪位于最外层，RequestID 与访问日志都能拿到 Span
	var chain []gin.HandlerFunc
	if b.tracingMW != nil {
		chain = append(chain, b.tracingMW)
	}
	chain = append(chain,
		middleware.RequestID(),
		middleware.Recovery(logger.Logger),
		middleware.Logger(logger.Logger, metricsPath, healthPath),
		middleware.HTTPMetricsMiddlewareWithOptions(m, middleware.MetricsOptions{
			SlowThreshold: time.Second,
			SkipPaths:     []string{metricsPath},
		}),
		middleware.CORS(),
	)
	chain = append(chain, b.ginMiddleware...)

	engine, err := server.NewDefaultGinEngine(cfg.Server.HTTP.TrustedProxies, chain...)
	if err != nil {
		return fmt.Errorf("init gin engine: %w", err)
	}

	engine.GET("/ws", hub.Handler())
	if cfg.Metrics.Enabled && cfg.Metrics.Port == "" {
		engine.GET(metricsPath, gin.WrapH(m.Handler()))
	}

	api := engine.Group("",
		middleware.RateLimitMiddleware(b.limiter),
		middleware.MaxBodyBytes(cfg.Server.HTTP.MaxBodyBytes),
		middleware.TimeoutMiddleware(cfg.Server.HTTP.WriteTimeout),
		middleware.HTTPErrorHandler(),
	)
	animation.NewHandler(b.service, events, b.serviceName).RegisterRoutes(api)

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Addr, cfg.Server.HTTP.Port)
	b.engine = engine
	b.server = server.NewGinServer(engine, addr, logger.Logger,
		server.WithTimeouts(cfg.Server.HTTP.ReadTimeout, cfg.Server.HTTP.WriteTimeout, cfg.Server.HTTP.IdleTimeout))
	b.appOpts = append(b.appOpts, WithServer(b.server))
	return nil
}
