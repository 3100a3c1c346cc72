package animation

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/wyfcoding/sortviz/algorithm"
	"github.com/wyfcoding/sortviz/eventlog"
	"github.com/wyfcoding/sortviz/idgen"
	"github.com/wyfcoding/sortviz/logging"
)

// TopicRuns 是采样 Run 逐帧推送的 WebSocket 主题。
const TopicRuns = "runs"

// Broadcaster 向订阅了主题的客户端推送消息。
type Broadcaster interface {
	Broadcast(topic string, payload any)
	Subscribers(topic string) int
}

// FrameEvent 是推送给仪表盘的一帧。
type FrameEvent struct {
	RunID      string              `json:"run_id"`
	Algorithm  algorithm.Algorithm `json:"algorithm"`
	Step       int                 `json:"step"`
	Total      int                 `json:"total"`
	Values     []float64           `json:"values"`
	Entropy    int64               `json:"entropy"`
	Annotation string              `json:"annotation"`
}

// Sampler 周期性地对随机数组运行两种算法，记录事件并推送帧。
type Sampler struct {
	svc    *Service
	events *eventlog.Log
	hub    Broadcaster
	length int
	seed   func() uint64
	logger *logging.Logger
}

// FramesPerTick 返回长度为 length 的一次采样最多推送的帧数。
// 两种算法各自最多产生 length-1 帧。
func FramesPerTick(length int) int {
	return 2 * max(length-1, 0)
}

// NewSampler 创建采样任务。hub 为空或无订阅者时只写事件日志。
func NewSampler(svc *Service, events *eventlog.Log, hub Broadcaster, length int) *Sampler {
	return &Sampler{
		svc:    svc,
		events: events,
		hub:    hub,
		length: length,
		seed:   func() uint64 { return uint64(time.Now().UnixNano()) },
		logger: svc.logger.Named("sampler"),
	}
}

// Run 执行一次采样，签名与 scheduler.Job 一致。
func (s *Sampler) Run(ctx context.Context) error {
	values, err := s.svc.Random(s.length, s.seed())
	if err != nil {
		return err
	}
	sampleID := idgen.GenRunID()
	entropy := float64(algorithm.CountInversions(values))

	var (
		wg      conc.WaitGroup
		results [2]*Result
		errs    [2]error
	)
	for i, algo := range algorithm.Algorithms() {
		wg.Go(func() {
			results[i], errs[i] = s.svc.animate(ctx, algo, values, s.svc.Config().FastCount)
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		return fmt.Errorf("sampler panic: %w", recovered.AsError())
	}

	for i, res := range results {
		if errs[i] != nil {
			return errs[i]
		}
		name := string(res.Algorithm)
		if err := s.events.Append(ctx, name+"_entropy", entropy); err != nil {
			return fmt.Errorf("append %s entropy: %w", name, err)
		}
		if err := s.events.Append(ctx, name+"_frames", float64(res.Len())); err != nil {
			return fmt.Errorf("append %s frames: %w", name, err)
		}
		s.publish(ctx, res)
	}

	s.logger.InfoContext(ctx, "sample recorded",
		"sample_id", sampleID, "length", len(values), "entropy", entropy)
	return nil
}

// publish 逐帧推送 Run，ctx 取消时停止。
func (s *Sampler) publish(ctx context.Context, res *Result) {
	if s.hub == nil || s.hub.Subscribers(TopicRuns) == 0 {
		return
	}
	total := res.Len()
	for _, frame := range res.Steps() {
		if ctx.Err() != nil {
			return
		}
		s.hub.Broadcast(TopicRuns, FrameEvent{
			RunID:      res.ID,
			Algorithm:  res.Algorithm,
			Step:       frame.Index,
			Total:      total,
			Values:     frame.Values,
			Entropy:    frame.Inversions,
			Annotation: frame.Annotation,
		})
	}
}
