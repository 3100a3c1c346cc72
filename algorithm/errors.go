package algorithm

import "errors"

var (
	// ErrUnknownAlgorithm 不支持的排序算法名称。
	ErrUnknownAlgorithm = errors.New("unknown sort algorithm")
)
