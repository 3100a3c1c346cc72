package xerrors

var (
	// ErrNonFiniteValue 输入包含 NaN 或 ±Inf。
	ErrNonFiniteValue = define(ErrInvalidArg, 400101, "non-finite value", "values must be finite numbers")
	// ErrInputTooLarge 输入长度超过上限。
	ErrInputTooLarge = define(ErrInvalidArg, 400102, "input too large", "reduce the number of values or raise sort.max_length")
	// ErrInvalidLength 随机数组长度非法。
	ErrInvalidLength = define(ErrInvalidArg, 400103, "invalid length", "n must be a non-negative integer")
	// ErrMalformedValues 数值列表无法解析。
	ErrMalformedValues = define(ErrInvalidArg, 400104, "malformed values", "values must be a list of numbers")
	// ErrUnknownAlgorithm 不支持的排序算法。
	ErrUnknownAlgorithm = define(ErrNotFound, 404101, "unknown algorithm", "supported: quicksort, mergesort")
	// ErrEventLogUnavailable 事件日志不可读写。
	ErrEventLogUnavailable = define(ErrUnavailable, 503101, "event log unavailable", "check events.path permissions")
	// ErrRateLimited 请求过于频繁。
	ErrRateLimited = define(ErrLimitExceeded, 429101, "too many requests", "access rate limit exceeded")
	// ErrRequestTimeout 请求处理超过 server.write_timeout。
	ErrRequestTimeout = define(ErrTimeout, 504101, "request timeout", "")
	// ErrHandlerPanic 处理器发生 panic。
	ErrHandlerPanic = define(ErrInternal, 500101, "internal server error", "")
)
