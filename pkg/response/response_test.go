package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func record(handler gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/test", nil)
	handler(c)

	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name       string
		handler    gin.HandlerFunc
		wantStatus int
		wantCode   int
		wantMsg    string
	}{
		{"success", func(c *gin.Context) { Success(c, gin.H{"id": 1}) }, http.StatusOK, 0, "ok"},
		{"created", func(c *gin.Context) { Created(c, gin.H{"id": 1}) }, http.StatusCreated, 0, "created"},
		{"bad request", func(c *gin.Context) { BadRequest(c, "content is required") }, http.StatusBadRequest, 400, "content is required"},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "login") }, http.StatusUnauthorized, 401, "login"},
		{"forbidden", func(c *gin.Context) { Forbidden(c, "admin only") }, http.StatusForbidden, 403, "admin only"},
		{"not found", func(c *gin.Context) { NotFound(c, "no such project") }, http.StatusNotFound, 404, "no such project"},
		{"conflict", func(c *gin.Context) { Conflict(c, "task pool exhausted") }, http.StatusConflict, 409, "task pool exhausted"},
		{"server error", func(c *gin.Context) { ServerError(c, "boom") }, http.StatusInternalServerError, 500, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := record(tt.handler)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if resp.Code != tt.wantCode || resp.Message != tt.wantMsg {
				t.Errorf("envelope = %+v, want code %d message %q", resp, tt.wantCode, tt.wantMsg)
			}
		})
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"app error", NewConflict("already reviewed"), http.StatusConflict, 409},
		{"wrapped app error", fmt.Errorf("review: %w", NewForbidden("quota")), http.StatusForbidden, 403},
		{"rate limited", NewTooManyRequests("slow down"), http.StatusTooManyRequests, 429},
		{"plain error", errors.New("db down"), http.StatusInternalServerError, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := record(func(c *gin.Context) { Error(c, tt.err) })
			if w.Code != tt.wantStatus || resp.Code != tt.wantCode {
				t.Errorf("got status %d code %d, want %d/%d", w.Code, resp.Code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestPageEnvelope(t *testing.T) {
	w, _ := record(func(c *gin.Context) {
		Success(c, &Page[string]{Total: 3, Page: 2, PageSize: 2, Items: []string{"c"}})
	})

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"total", "page", "page_size", "items"} {
		if _, ok := body.Data[key]; !ok {
			t.Errorf("page envelope missing %q", key)
		}
	}
}

func TestAppError_Error(t *testing.T) {
	if got := NewNotFound("submission 9").Error(); got != "submission 9" {
		t.Errorf("Error() = %q", got)
	}
}
