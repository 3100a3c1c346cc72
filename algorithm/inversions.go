package algorithm

// Number 约束了可被排序动画处理的数值类型。
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// CountInversions 计算序列中的逆序对数量，即满足 i < j 且 a[i] > a[j] 的下标对个数。
// 这是参考实现，时间复杂度 O(n²)，在排序动画中作为“熵”指标：0 表示完全升序。
// 不修改输入。
func CountInversions[T Number](a []T) int64 {
	var inv int64
	for i := range a {
		for j := i + 1; j < len(a); j++ {
			if a[i] > a[j] {
				inv++
			}
		}
	}
	return inv
}

// CountInversionsFast 利用归并排序的思想在 O(n log n) 内计算逆序对数量。
// 对任意输入，其返回值与 CountInversions 完全一致。
// 不修改输入，内部在副本上完成归并。
func CountInversionsFast[T Number](a []T) int64 {
	if len(a) <= 1 {
		return 0
	}

	arr := make([]T, len(a))
	copy(arr, a)
	buf := make([]T, len(a))
	return mergeSortCount(arr, buf, 0, len(arr)-1)
}

// mergeSortCount 对 arr[left..right] 做归并排序并返回区间内的逆序对数量。
func mergeSortCount[T Number](arr, buf []T, left, right int) int64 {
	if left >= right {
		return 0
	}

	mid := (left + right) / 2
	count := mergeSortCount(arr, buf, left, mid)
	count += mergeSortCount(arr, buf, mid+1, right)
	return count + mergeCount(arr, buf, left, mid, right)
}

// mergeCount 合并两个有序子数组 arr[left..mid] 与 arr[mid+1..right]，
// 返回跨越两个子数组的逆序对数量。
func mergeCount[T Number](arr, buf []T, left, mid, right int) int64 {
	copy(buf[left:right+1], arr[left:right+1])

	i, j, k := left, mid+1, left
	var count int64

	for i <= mid && j <= right {
		if buf[i] <= buf[j] {
			arr[k] = buf[i]
			i++
		} else {
			arr[k] = buf[j]
			// buf[i..mid] 均大于 buf[j]，各自与其构成一个逆序对。
			count += int64(mid - i + 1)
			j++
		}
		k++
	}

	for i <= mid {
		arr[k] = buf[i]
		i++
		k++
	}

	for j <= right {
		arr[k] = buf[j]
		j++
		k++
	}

	return count
}
