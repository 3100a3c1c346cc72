package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wyfcoding/sortviz/xerrors"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return body
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Success(c, gin.H{"count": 2})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["code"].(float64) != 0 || body["msg"] != "success" {
		t.Errorf("unexpected envelope: %v", body)
	}
	if body["data"].(map[string]any)["count"].(float64) != 2 {
		t.Errorf("unexpected data: %v", body["data"])
	}
}

func TestErrorMapsBusinessError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	err := fmt.Errorf("handler: %w", xerrors.ErrInputTooLarge.WithDetail("got 900 values"))
	Error(c, err)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decode(t, w)
	if body["code"].(float64) != 400102 {
		t.Errorf("code = %v", body["code"])
	}
	if body["msg"] != "input too large" || body["detail"] != "got 900 values" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestErrorFallsBackTo500(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, errors.New("disk on fire"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body := decode(t, w); body["msg"] != "disk on fire" {
		t.Errorf("unexpected body: %v", body)
	}
}
