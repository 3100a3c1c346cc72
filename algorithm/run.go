package algorithm

import (
	"fmt"
	"slices"
	"strings"
)

// Run 表示一次完整排序调用产生的动画数据。
// Frames、Inversions 与 Annotations 三个序列长度相同、按记录顺序一一对应。
type Run[T Number] struct {
	Frames      [][]T    `json:"frames"`      // 每一步的完整数组快照
	Inversions  []int64  `json:"entropy"`     // 每一步的逆序对数量（熵）
	Annotations []string `json:"annotations"` // 每一步的操作说明
}

// Frame 是 Run 中某一步的只读视图。
type Frame[T Number] struct {
	Index      int    `json:"index"`
	Values     []T    `json:"values"`
	Inversions int64  `json:"entropy"`
	Annotation string `json:"annotation"`
}

func newRun[T Number]() Run[T] {
	return Run[T]{
		Frames:      make([][]T, 0),
		Inversions:  make([]int64, 0),
		Annotations: make([]string, 0),
	}
}

// Len 返回记录的步数。
func (r Run[T]) Len() int {
	return len(r.Frames)
}

// Empty 报告该 Run 是否没有任何帧（输入长度为 0 或 1 时成立）。
func (r Run[T]) Empty() bool {
	return len(r.Frames) == 0
}

// Frame 返回第 i 步。i 越界时 panic，与切片索引语义一致。
func (r Run[T]) Frame(i int) Frame[T] {
	return Frame[T]{
		Index:      i,
		Values:     r.Frames[i],
		Inversions: r.Inversions[i],
		Annotation: r.Annotations[i],
	}
}

// Steps 按时间顺序返回全部帧。
func (r Run[T]) Steps() []Frame[T] {
	steps := make([]Frame[T], 0, r.Len())
	for i := range r.Frames {
		steps = append(steps, r.Frame(i))
	}
	return steps
}

// Final 返回最后一帧的数组快照；空 Run 返回 false。
func (r Run[T]) Final() ([]T, bool) {
	if r.Empty() {
		return nil, false
	}
	return r.Frames[len(r.Frames)-1], true
}

// Option 配置一次动画排序。
type Option func(*options)

type options struct {
	fastCount bool
}

// WithFastInversionCount 使用 O(n log n) 的归并计数代替默认的平方扫描。
// 两者结果完全一致，仅影响每一步的计算开销。
func WithFastInversionCount() Option {
	return func(o *options) {
		o.fastCount = true
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// recorder 在每次分区或归并结束后追加一帧。
type recorder[T Number] struct {
	run   Run[T]
	count func([]T) int64
}

func newRecorder[T Number](o options) *recorder[T] {
	count := CountInversions[T]
	if o.fastCount {
		count = CountInversionsFast[T]
	}
	return &recorder[T]{run: newRun[T](), count: count}
}

// record 对整个数组做快照，重新计算全局逆序对，并保存说明文本。
func (r *recorder[T]) record(a []T, annotation string) {
	r.run.Frames = append(r.run.Frames, slices.Clone(a))
	r.run.Inversions = append(r.run.Inversions, r.count(a))
	r.run.Annotations = append(r.run.Annotations, annotation)
}

func pivotAnnotation[T Number](value T, index int) string {
	return fmt.Sprintf("Pivot=%v placed at index %d", value, index)
}

func dropAnnotation[T Number](value T, position int) string {
	return fmt.Sprintf("%v dropped at %d", value, position)
}

func joinAnnotations(ops []string) string {
	return strings.Join(ops, ", ")
}
