package algorithm

import "slices"

// AnimateMergeSort 对 values 的私有副本执行带记录的自顶向下归并排序。
// 拆分与单元素基例不产生帧；每次归并结束恰好记录一帧，说明文本由本次归并中
// 每个元素的 "<值> dropped at <位置>" 以 ", " 连接而成，位置为该元素在本次归并区间内的偏移（区间首元素为 0）。
// 帧按自底向上的顺序产生，最后一帧对应整个数组的归并。
// 调用方的切片不会被修改。
func AnimateMergeSort[T Number](values []T, opts ...Option) Run[T] {
	rec := newRecorder[T](buildOptions(opts))
	a := slices.Clone(values)
	mergeSort(a, 0, len(a), rec)
	return rec.run
}

// mergeSort 排序半开区间 a[lo:hi]。
func mergeSort[T Number](a []T, lo, hi int, rec *recorder[T]) {
	if hi-lo <= 1 {
		return
	}

	mid := lo + (hi-lo)/2
	mergeSort(a, lo, mid, rec)
	mergeSort(a, mid, hi, rec)
	merge(a, lo, mid, hi, rec)
}

// merge 将有序的 a[lo:mid] 与 a[mid:hi] 归并回原位置。
// 仅当左侧当前元素严格小于右侧时取左侧，相等时取右侧。
func merge[T Number](a []T, lo, mid, hi int, rec *recorder[T]) {
	left := slices.Clone(a[lo:mid])
	right := slices.Clone(a[mid:hi])
	ops := make([]string, 0, hi-lo)

	i, j, k := 0, 0, lo
	for i < len(left) && j < len(right) {
		if left[i] < right[j] {
			a[k] = left[i]
			i++
		} else {
			a[k] = right[j]
			j++
		}
		ops = append(ops, dropAnnotation(a[k], k-lo))
		k++
	}

	for ; i < len(left); i, k = i+1, k+1 {
		a[k] = left[i]
		ops = append(ops, dropAnnotation(a[k], k-lo))
	}

	for ; j < len(right); j, k = j+1, k+1 {
		a[k] = right[j]
		ops = append(ops, dropAnnotation(a[k], k-lo))
	}

	rec.record(a, joinAnnotations(ops))
}
