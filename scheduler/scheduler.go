// Package scheduler 基于 cron 表达式调度后台任务，提供超时、重试、防重入与指标采集。
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/wyfcoding/sortviz/logging"
	"github.com/wyfcoding/sortviz/metrics"
	"github.com/wyfcoding/sortviz/retry"
)

var (
	// ErrJobNameEmpty 任务名称为空。
	ErrJobNameEmpty = errors.New("job name is empty")
	// ErrJobSpecInvalid 调度表达式非法。
	ErrJobSpecInvalid = errors.New("job spec is invalid")
	// ErrJobAlreadyExists 任务名称重复。
	ErrJobAlreadyExists = errors.New("job already exists")
	// ErrJobHandlerNil 任务处理函数为空。
	ErrJobHandlerNil = errors.New("job handler is nil")
	// ErrJobNotFound 任务不存在。
	ErrJobNotFound = errors.New("job not found")
	// ErrJobSkipped 上一次执行尚未结束。
	ErrJobSkipped = errors.New("job skipped, previous run still in progress")
)

// specParser 支持可选的秒字段以及 @every / @hourly 等描述符。
var specParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Job 定义定时任务函数原型。
type Job func(ctx context.Context) error

// JobConfig 定义任务调度参数。
type JobConfig struct {
	Name            string        // 任务名称（唯一）。
	Spec            string        // cron 表达式，如 "@every 30s"、"*/10 * * * * *"。
	Timeout         time.Duration // 单次执行超时。
	RetryConfig     retry.Config  // 重试策略配置。
	RunOnStart      bool          // 是否在启动时立即执行一次。
	AllowConcurrent bool          // 是否允许任务并发执行。
}

// Scheduler 负责任务的统一调度与生命周期管理。
type Scheduler struct {
	logger  *slog.Logger
	cron    *cron.Cron
	mu      sync.Mutex
	jobs    map[string]*jobRunner
	wg      sync.WaitGroup
	metrics *schedulerMetrics

	baseCtx context.Context
	cancel  context.CancelFunc
	started bool
}

type jobRunner struct {
	cfg     JobConfig
	handler Job
	entryID cron.EntryID
	running atomic.Bool
}

type schedulerMetrics struct {
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobRunning  *prometheus.GaugeVec
}

// cronLogger 将 cron 内部日志转接到 slog。
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// NewScheduler 创建任务调度器。
func NewScheduler(logger *logging.Logger) *Scheduler {
	return NewSchedulerWithMetrics(logger, nil)
}

// NewSchedulerWithMetrics 创建带指标采集的任务调度器。
func NewSchedulerWithMetrics(logger *logging.Logger, m *metrics.Metrics) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	l := logger.Named("scheduler").Logger

	var schedMetrics *schedulerMetrics
	if m != nil {
		schedMetrics = &schedulerMetrics{
			jobRuns: m.NewCounterVec(&prometheus.CounterOpts{
				Namespace: "sortviz",
				Subsystem: "scheduler",
				Name:      "job_runs_total",
				Help:      "Total number of scheduled job runs",
			}, []string{"job", "status"}),
			jobDuration: m.NewHistogramVec(&prometheus.HistogramOpts{
				Namespace: "sortviz",
				Subsystem: "scheduler",
				Name:      "job_duration_seconds",
				Help:      "Scheduled job execution duration",
				Buckets:   prometheus.DefBuckets,
			}, []string{"job", "status"}),
			jobRunning: m.NewGaugeVec(&prometheus.GaugeOpts{
				Namespace: "sortviz",
				Subsystem: "scheduler",
				Name:      "job_running",
				Help:      "Current running jobs",
			}, []string{"job"}),
		}
	}

	clog := cronLogger{logger: l}
	return &Scheduler{
		logger: l,
		cron: cron.New(
			cron.WithParser(specParser),
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog)),
		),
		jobs:    make(map[string]*jobRunner),
		metrics: schedMetrics,
	}
}

// AddJob 注册一个新的调度任务，可在 Start 之前或之后调用。
func (s *Scheduler) AddJob(cfg JobConfig, handler Job) error {
	if cfg.Name == "" {
		return ErrJobNameEmpty
	}
	if handler == nil {
		return ErrJobHandlerNil
	}
	if _, err := specParser.Parse(cfg.Spec); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrJobSpecInvalid, cfg.Spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[cfg.Name]; exists {
		return ErrJobAlreadyExists
	}

	runner := &jobRunner{cfg: cfg, handler: handler}
	id, err := s.cron.AddFunc(cfg.Spec, func() {
		s.execute(s.context(), runner)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrJobSpecInvalid, err)
	}
	runner.entryID = id
	s.jobs[cfg.Name] = runner

	if s.started && cfg.RunOnStart {
		s.runAsync(runner)
	}
	return nil
}

// RemoveJob 取消一个任务的后续调度，进行中的执行不受影响。
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runner, ok := s.jobs[name]
	if !ok {
		return ErrJobNotFound
	}
	s.cron.Remove(runner.entryID)
	delete(s.jobs, name)
	return nil
}

// Jobs 返回已注册任务的下一次触发时间。
func (s *Scheduler) Jobs() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.jobs))
	for name, runner := range s.jobs {
		out[name] = s.cron.Entry(runner.entryID).Next
	}
	return out
}

// Trigger 立即同步执行一次指定任务，遵守防重入与超时设置。
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	runner, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	return s.execute(ctx, runner)
}

// Start 启动调度器；ctx 取消后不再向任务派发新的执行上下文。
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.started = true

	for _, runner := range s.jobs {
		if runner.cfg.RunOnStart {
			s.runAsync(runner)
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop 停止调度器，取消进行中任务的上下文并等待其退出。
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	cancel()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	}
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx == nil {
		return context.Background()
	}
	return s.baseCtx
}

// runAsync 调用方需持有 s.mu。
func (s *Scheduler) runAsync(runner *jobRunner) {
	ctx := s.baseCtx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.execute(ctx, runner)
	}()
}

func (s *Scheduler) execute(ctx context.Context, runner *jobRunner) error {
	name := runner.cfg.Name
	if !runner.cfg.AllowConcurrent {
		if !runner.running.CompareAndSwap(false, true) {
			s.logger.Warn("scheduler job skipped (already running)", "job", name)
			s.observe(name, "skipped", 0)
			return ErrJobSkipped
		}
		defer runner.running.Store(false)
	}

	execCtx := ctx
	if runner.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, runner.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	if s.metrics != nil {
		s.metrics.jobRunning.WithLabelValues(name).Inc()
	}
	err := retry.If(execCtx, func() error {
		return runner.handler(execCtx)
	}, func(err error) bool {
		return execCtx.Err() == nil
	}, runner.cfg.RetryConfig)
	if s.metrics != nil {
		s.metrics.jobRunning.WithLabelValues(name).Dec()
	}

	if err != nil {
		s.observe(name, "failed", time.Since(start))
		s.logger.ErrorContext(ctx, "scheduler job failed", "job", name, "error", err)
		return err
	}

	s.observe(name, "success", time.Since(start))
	s.logger.DebugContext(ctx, "scheduler job succeeded", "job", name, "duration", time.Since(start))
	return nil
}

func (s *Scheduler) observe(job, status string, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.jobRuns.WithLabelValues(job, status).Inc()
	if status != "skipped" {
		s.metrics.jobDuration.WithLabelValues(job, status).Observe(d.Seconds())
	}
}
