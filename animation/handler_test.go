package animation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/sortviz/eventlog"
)

type envelope struct {
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	Detail string          `json:"detail"`
	Data   json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) (*gin.Engine, *eventlog.Log) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	events := eventlog.New(filepath.Join(t.TempDir(), "events.log"))
	h := NewHandler(newTestService(t), events, "sortviz")

	r := gin.New()
	h.RegisterRoutes(r)
	return r, events
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHandlerSort(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodPost, "/api/v1/sort/mergesort", SortRequest{Values: []float64{3, 1, 2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	assert.Equal(t, 0, env.Code)

	var res Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, [][]float64{{3, 1, 2}, {1, 2, 3}}, res.Frames)
	assert.Equal(t, []int64{2, 0}, res.Inversions)
	assert.Equal(t, []string{"1 dropped at 0, 2 dropped at 1", "1 dropped at 0, 2 dropped at 1, 3 dropped at 2"}, res.Annotations)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	for _, key := range []string{"id", "algorithm", "input", "frames", "entropy", "annotations"} {
		assert.Contains(t, raw, key)
	}
}

func TestHandlerSortEmptyInput(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodPost, "/api/v1/sort/quicksort", `{"values":[]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &raw))
	assert.JSONEq(t, `[]`, string(raw["frames"]))
	assert.JSONEq(t, `[]`, string(raw["entropy"]))
	assert.JSONEq(t, `[]`, string(raw["annotations"]))
}

func TestHandlerSortErrors(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   int
	}{
		{"unknown algorithm", "/api/v1/sort/bogosort", SortRequest{Values: []float64{1}}, http.StatusNotFound, 404101},
		{"too large", "/api/v1/sort/quicksort", SortRequest{Values: make([]float64, 51)}, http.StatusBadRequest, 400102},
		{"malformed", "/api/v1/sort/quicksort", `{"values":["a"]}`, http.StatusBadRequest, 400104},
		{"empty body", "/api/v1/sort/quicksort", "", http.StatusBadRequest, 400104},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeEnvelope(t, w).Code)
		})
	}
}

func TestHandlerSortRandom(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodGet, "/api/v1/sort/quick?n=5&seed=9", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first Result
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &first))
	assert.Len(t, first.Input, 5)

	w = do(r, http.MethodGet, "/api/v1/sort/quick?n=5&seed=9", nil)
	var second Result
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &second))
	assert.Equal(t, first.Input, second.Input)

	w = do(r, http.MethodGet, "/api/v1/sort/merge", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var def Result
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &def))
	assert.Len(t, def.Input, 8, "default_length applies when n is absent")

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/sort/quick?n=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/sort/quick?n=-3", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/sort/quick?n=500", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/sort/quick?seed=x", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/sort/heap", nil).Code)
}

func TestHandlerCompareAndInversions(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodPost, "/api/v1/compare", SortRequest{Values: []float64{4, 2, 9, 1}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cmp Comparison
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &cmp))
	assert.True(t, cmp.Converged)
	assert.Equal(t, []float64{4, 2, 9, 1}, cmp.Input)

	w = do(r, http.MethodPost, "/api/v1/inversions", SortRequest{Values: []float64{3, 1, 2}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, string(decodeEnvelope(t, w).Data))
}

func TestHandlerData(t *testing.T) {
	r, events := setupRouter(t)

	w := do(r, http.MethodGet, "/data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	require.NoError(t, events.Append(context.Background(), "quicksort_entropy", 12))
	require.NoError(t, events.Append(context.Background(), "quicksort_frames", 7))

	w = do(r, http.MethodGet, "/data?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []eventlog.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "quicksort_frames", records[0].Event)
	assert.Equal(t, float64(7), records[0].Value)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/data?limit=-1", nil).Code)
}

func TestHandlerPages(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodGet, "/", nil)
	assert.Equal(t, "Welcome to sortviz cockpit!", w.Body.String())

	w = do(r, http.MethodGet, "/hello", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/sys/health", nil)
	assert.Contains(t, w.Body.String(), `"status":"UP"`)

	w = do(r, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/ws?topic=runs")
}
