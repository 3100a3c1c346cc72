package algorithm

import (
	"fmt"
	"strings"
)

// Algorithm 标识一种带记录的排序算法。
type Algorithm string

const (
	// AlgoQuickSort 快速排序，每次分区记录一帧。
	AlgoQuickSort Algorithm = "quicksort"
	// AlgoMergeSort 归并排序，每次归并记录一帧。
	AlgoMergeSort Algorithm = "mergesort"
)

// Algorithms 返回全部已支持的算法，顺序固定。
func Algorithms() []Algorithm {
	return []Algorithm{AlgoQuickSort, AlgoMergeSort}
}

// ParseAlgorithm 解析算法名称，大小写不敏感，支持 quick/quicksort/merge/mergesort。
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quick", "quicksort", "quick_sort":
		return AlgoQuickSort, nil
	case "merge", "mergesort", "merge_sort":
		return AlgoMergeSort, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// Animate 按算法分派到对应的动画排序实现。
func Animate[T Number](algo Algorithm, values []T, opts ...Option) (Run[T], error) {
	switch algo {
	case AlgoQuickSort:
		return AnimateQuickSort(values, opts...), nil
	case AlgoMergeSort:
		return AnimateMergeSort(values, opts...), nil
	default:
		return Run[T]{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
}
