// Package animation 是排序动画服务层：输入校验、Run 缓存、并发对比、
// 周期采样以及对外的 HTTP 接口。
package animation

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wyfcoding/sortviz/algorithm"
	"github.com/wyfcoding/sortviz/cache"
	"github.com/wyfcoding/sortviz/config"
	"github.com/wyfcoding/sortviz/contextx"
	"github.com/wyfcoding/sortviz/idgen"
	"github.com/wyfcoding/sortviz/logging"
	"github.com/wyfcoding/sortviz/metrics"
	"github.com/wyfcoding/sortviz/tracing"
	"github.com/wyfcoding/sortviz/xerrors"

	"golang.org/x/sync/errgroup"
)

// 随机数组的取值范围（闭区间）。
const (
	randomMin = 1
	randomMax = 100
)

// Result 是一次排序动画的对外表示，Run 的字段平铺在 JSON 顶层。
type Result struct {
	ID        string              `json:"id"`
	Algorithm algorithm.Algorithm `json:"algorithm"`
	Input     []float64           `json:"input"`
	FastCount bool                `json:"fast_count"`
	Cached    bool                `json:"cached"`
	algorithm.Run[float64]
}

// Comparison 是同一输入上两种算法的对比结果。
type Comparison struct {
	ID        string    `json:"id"`
	Input     []float64 `json:"input"`
	QuickSort *Result   `json:"quicksort"`
	MergeSort *Result   `json:"mergesort"`
	Converged bool      `json:"converged"`
}

// Service 排序动画服务，可被多个请求并发调用。
type Service struct {
	cfg      atomic.Pointer[config.SortConfig]
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *sortMetrics
	logger   *logging.Logger
}

// ServiceOption 配置 Service 的可选依赖。
type ServiceOption func(*Service)

// WithCache 启用 Run 结果缓存。
func WithCache(c cache.Cache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithMetrics 注册排序相关的 Prometheus 指标。
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = newSortMetrics(m)
	}
}

// WithLogger 指定日志器。
func WithLogger(l *logging.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService 创建排序动画服务。
func NewService(cfg config.SortConfig, opts ...ServiceOption) *Service {
	s := &Service{}
	s.cfg.Store(&cfg)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	s.logger = s.logger.Named("animation")
	return s
}

// UpdateConfig 热更新输入约束，配置重载时调用。
func (s *Service) UpdateConfig(cfg config.SortConfig) {
	s.cfg.Store(&cfg)
	s.logger.Info("sort config updated", "max_length", cfg.MaxLength, "fast_count", cfg.FastCount)
}

// Config 返回当前生效的输入约束。
func (s *Service) Config() config.SortConfig {
	return *s.cfg.Load()
}

// Validate 校验输入：长度不超过 max_length（0 表示不限制）且全部为有限数。
func (s *Service) Validate(values []float64) error {
	if limit := s.Config().MaxLength; limit > 0 && len(values) > limit {
		return xerrors.ErrInputTooLarge.WithDetail("got %d values, max %d", len(values), limit)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return xerrors.ErrNonFiniteValue.WithDetail("value at index %d is %v", i, v)
		}
	}
	return nil
}

// ParseAlgorithm 解析算法名，未知算法映射为 404 业务错误。
func ParseAlgorithm(name string) (algorithm.Algorithm, error) {
	algo, err := algorithm.ParseAlgorithm(name)
	if err != nil {
		return "", xerrors.ErrUnknownAlgorithm.WithDetail("%q is not supported, use quicksort or mergesort", name)
	}
	return algo, nil
}

// FastCount 返回请求是否使用 O(n log n) 逆序对计数，未指定时取配置默认值。
func (s *Service) FastCount(requested *bool) bool {
	if requested != nil {
		return *requested
	}
	return s.Config().FastCount
}

// Animate 校验输入并生成指定算法的动画 Run，相同输入命中缓存时直接返回。
func (s *Service) Animate(ctx context.Context, name string, values []float64, fast bool) (*Result, error) {
	algo, err := ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(values); err != nil {
		return nil, err
	}
	return s.animate(ctx, algo, values, fast)
}

func (s *Service) animate(ctx context.Context, algo algorithm.Algorithm, values []float64, fast bool) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "animation.Animate")
	defer span.End()
	tracing.AddTag(ctx, "sort.algorithm", string(algo))
	tracing.AddTag(ctx, "sort.length", len(values))

	res := &Result{
		ID:        idgen.GenRunID(),
		Algorithm: algo,
		Input:     slices.Clone(values),
		FastCount: fast,
	}
	if res.Input == nil {
		res.Input = []float64{}
	}
	ctx = contextx.WithRunID(ctx, res.ID)

	key := cache.RunKey(string(algo), fast, values)
	if s.cache != nil {
		var cached algorithm.Run[float64]
		err := s.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			res.Run = cached
			res.Cached = true
			s.metrics.observeRun(algo, "cache", res.Len(), 0)
			tracing.AddTag(ctx, "sort.cached", true)
			return res, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			s.logger.WarnContext(ctx, "run cache read failed", "key", key, "error", err)
		}
	}

	var opts []algorithm.Option
	if fast {
		opts = append(opts, algorithm.WithFastInversionCount())
	}

	start := time.Now()
	run, err := algorithm.Animate(algo, values, opts...)
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, xerrors.WrapInternal(err, "animate failed")
	}
	elapsed := time.Since(start)

	res.Run = run
	s.metrics.observeRun(algo, "compute", run.Len(), elapsed)
	tracing.AddTag(ctx, "sort.frames", run.Len())

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, run, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "run cache write failed", "key", key, "error", err)
		}
	}

	s.logger.DebugContext(ctx, "run generated",
		"algorithm", algo, "length", len(values), "frames", run.Len(), "duration", elapsed)
	return res, nil
}

// Compare 在同一输入的两份私有副本上并发执行两种算法。
func (s *Service) Compare(ctx context.Context, values []float64, fast bool) (*Comparison, error) {
	if err := s.Validate(values); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "animation.Compare")
	defer span.End()

	cmp := &Comparison{ID: idgen.GenRunID(), Input: slices.Clone(values)}
	if cmp.Input == nil {
		cmp.Input = []float64{}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.animate(gCtx, algorithm.AlgoQuickSort, values, fast)
		cmp.QuickSort = r
		return err
	})
	g.Go(func() error {
		r, err := s.animate(gCtx, algorithm.AlgoMergeSort, values, fast)
		cmp.MergeSort = r
		return err
	})
	if err := g.Wait(); err != nil {
		tracing.SetError(ctx, err)
		return nil, err
	}

	cmp.Converged = converged(values, cmp.QuickSort.Run, cmp.MergeSort.Run)
	return cmp, nil
}

// converged 判断两个 Run 的最终数组一致；没有帧时比较原始输入。
func converged(input []float64, a, b algorithm.Run[float64]) bool {
	fa, okA := a.Final()
	fb, okB := b.Final()
	if !okA {
		fa = input
	}
	if !okB {
		fb = input
	}
	return slices.Equal(fa, fb)
}

// Inversions 校验后计算逆序对数量。
func (s *Service) Inversions(_ context.Context, values []float64, fast bool) (int64, error) {
	if err := s.Validate(values); err != nil {
		return 0, err
	}
	if fast {
		return algorithm.CountInversionsFast(values), nil
	}
	return algorithm.CountInversions(values), nil
}

// Random 生成长度为 n、取值在 [1,100] 的整数数组，相同 seed 结果相同。
func (s *Service) Random(n int, seed uint64) ([]float64, error) {
	if n < 0 {
		return nil, xerrors.ErrInvalidLength.WithDetail("n=%d", n)
	}
	if limit := s.Config().MaxLength; limit > 0 && n > limit {
		return nil, xerrors.ErrInputTooLarge.WithDetail("n=%d, max %d", n, limit)
	}
	return randomValues(n, seed), nil
}

func randomValues(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(randomMin + rng.IntN(randomMax-randomMin+1))
	}
	return values
}

// ParseValues 将文本数值列表（如命令行参数 "3,1,2"）解析为 float64 切片。
func ParseValues(items []string) ([]float64, error) {
	values := make([]float64, 0, len(items))
	for i, item := range items {
		v, err := strconv.ParseFloat(strings.TrimSpace(item), 64)
		if err != nil {
			return nil, xerrors.ErrMalformedValues.WithDetail("item %d %q: %v", i, item, err)
		}
		values = append(values, v)
	}
	return values, nil
}
