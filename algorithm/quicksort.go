package algorithm

import "slices"

// AnimateQuickSort 对 values 的私有副本执行带记录的快速排序（Lomuto 分区，末元素为枢轴）。
// 每完成一次分区记录一帧：完整数组快照、全数组逆序对数量以及
// "Pivot=<值> placed at index <下标>" 说明。长度为 0 或 1 的输入返回空 Run。
// 调用方的切片不会被修改。
func AnimateQuickSort[T Number](values []T, opts ...Option) Run[T] {
	rec := newRecorder[T](buildOptions(opts))
	a := slices.Clone(values)
	quickSort(a, 0, len(a)-1, rec)
	return rec.run
}

func quickSort[T Number](a []T, low, high int, rec *recorder[T]) {
	if low >= high {
		return
	}

	p := partition(a, low, high)
	rec.record(a, pivotAnnotation(a[p], p))

	// 枢轴已就位，左右子区间各自递归。
	quickSort(a, low, p-1, rec)
	quickSort(a, p+1, high, rec)
}

// partition 以 a[high] 为枢轴，把严格小于枢轴的元素移到边界 i 左侧，
// 最后将枢轴换到 i 并返回 i。
func partition[T Number](a []T, low, high int) int {
	pivot := a[high]
	i := low
	for j := low; j < high; j++ {
		if a[j] < pivot {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[high] = a[high], a[i]
	return i
}
