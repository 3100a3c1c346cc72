package animation

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/wyfcoding/sortviz/eventlog"
	"github.com/wyfcoding/sortviz/response"
	"github.com/wyfcoding/sortviz/xerrors"

	"github.com/gin-gonic/gin"
)

// SortRequest 是排序与逆序对接口的请求体。
type SortRequest struct {
	Values    []float64 `json:"values"`
	FastCount *bool     `json:"fast_count,omitempty"`
}

// Handler 暴露排序动画的 HTTP 接口。
type Handler struct {
	svc     *Service
	events  *eventlog.Log
	service string
	now     func() time.Time
}

// NewHandler 创建 HTTP 处理器，service 用于健康检查与首页文案。
func NewHandler(svc *Service, events *eventlog.Log, service string) *Handler {
	return &Handler{svc: svc, events: events, service: service, now: time.Now}
}

// RegisterRoutes 挂载全部路由。
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Index)
	r.GET("/hello", h.Hello)
	r.GET("/sys/health", h.Health)
	r.GET("/data", h.Data)
	r.GET("/dashboard", h.Dashboard)

	v1 := r.Group("/api/v1")
	v1.POST("/sort/:algorithm", h.Sort)
	v1.GET("/sort/:algorithm", h.SortRandom)
	v1.POST("/compare", h.Compare)
	v1.POST("/inversions", h.Inversions)
}

// Index GET /
func (h *Handler) Index(c *gin.Context) {
	c.String(http.StatusOK, "Welcome to %s cockpit!", h.service)
}

// Hello GET /hello
func (h *Handler) Hello(c *gin.Context) {
	c.String(http.StatusOK, "Hello! This is a test route.")
}

// Health GET /sys/health
func (h *Handler) Health(c *gin.Context) {
	response.SuccessWithRawData(c, gin.H{
		"status":    "UP",
		"service":   h.service,
		"timestamp": h.now().Unix(),
	})
}

// Sort POST /api/v1/sort/:algorithm
func (h *Handler) Sort(c *gin.Context) {
	req, err := bindSortRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.svc.Animate(c.Request.Context(), c.Param("algorithm"), req.Values, h.svc.FastCount(req.FastCount))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SortRandom GET /api/v1/sort/:algorithm?n=&seed=&fast_count=
func (h *Handler) SortRandom(c *gin.Context) {
	algo, err := ParseAlgorithm(c.Param("algorithm"))
	if err != nil {
		response.Error(c, err)
		return
	}

	n := h.svc.Config().DefaultLength
	if raw := c.Query("n"); raw != "" {
		if n, err = strconv.Atoi(raw); err != nil {
			response.Error(c, xerrors.ErrInvalidLength.WithDetail("n=%q", raw))
			return
		}
	}

	seed := uint64(h.now().UnixNano())
	if raw := c.Query("seed"); raw != "" {
		if seed, err = strconv.ParseUint(raw, 10, 64); err != nil {
			response.Error(c, xerrors.InvalidArg("seed must be an unsigned integer"))
			return
		}
	}

	var fast *bool
	if raw := c.Query("fast_count"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, xerrors.InvalidArg("fast_count must be a boolean"))
			return
		}
		fast = &b
	}

	values, err := h.svc.Random(n, seed)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.svc.Animate(c.Request.Context(), string(algo), values, h.svc.FastCount(fast))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Compare POST /api/v1/compare
func (h *Handler) Compare(c *gin.Context) {
	req, err := bindSortRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	cmp, err := h.svc.Compare(c.Request.Context(), req.Values, h.svc.FastCount(req.FastCount))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cmp)
}

// Inversions POST /api/v1/inversions
func (h *Handler) Inversions(c *gin.Context) {
	req, err := bindSortRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	count, err := h.svc.Inversions(c.Request.Context(), req.Values, h.svc.FastCount(req.FastCount))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"count": count})
}

// Data GET /data?limit=，返回事件日志中可解析的记录。
func (h *Handler) Data(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			response.Error(c, xerrors.InvalidArg("limit must be a non-negative integer"))
			return
		}
		limit = v
	}

	records, err := h.events.Tail(limit)
	if err != nil {
		response.Error(c, xerrors.ErrEventLogUnavailable.WithDetail("%v", err))
		return
	}
	response.SuccessWithRawData(c, records)
}

// Dashboard GET /dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", dashboardHTML)
}

func bindSortRequest(c *gin.Context) (*SortRequest, error) {
	var req SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, xerrors.ErrInputTooLarge.WithDetail("request body exceeds %d bytes", maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return nil, xerrors.ErrMalformedValues.WithDetail("request body is empty")
		}
		return nil, xerrors.ErrMalformedValues.WithDetail("%v", err)
	}
	return &req, nil
}
