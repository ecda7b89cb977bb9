package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/services"
)

const auditBodyLimit = 2000

var sensitiveKeys = map[string]bool{
	"password":        true,
	"old_password":    true,
	"new_password":    true,
	"api_key":         true,
	"secret":          true,
	"token":           true,
	"access_token":    true,
	"refresh_token":   true,
	"bind_password":   true,
	"payment_details": true,
}

// AuditLog records write requests to system_logs after the handler has run.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch && method != http.MethodDelete {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			body = maskSensitiveFields(raw)
			if len(body) > auditBodyLimit {
				body = body[:auditBodyLimit] + "...[truncated]"
			}
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		var uid *uint
		if id := GetUserID(c); id > 0 {
			uid = &id
		}

		extra := map[string]interface{}{
			"method":     method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"body":       body,
			"request_id": c.GetString(ContextRequestID),
			"audit":      true,
		}
		message := formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status)
		if status >= http.StatusInternalServerError {
			services.LogError(module, action, message, uid, c.ClientIP(), c.Request.UserAgent(), extra)
			return
		}
		services.LogInfo(module, action, message, uid, c.ClientIP(), c.Request.UserAgent(), extra)
	}
}

// parseRouteInfo maps a route pattern to a log module and action,
// e.g. "/api/admin/payouts/:id/review" + PUT gives ("Payouts", "Review").
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")
	path = strings.TrimPrefix(path, "admin/")

	segments := strings.Split(path, "/")
	module = "unknown"
	if segments[0] != "" {
		module = titleWords(strings.ReplaceAll(segments[0], "-", " "))
	}

	last := segments[len(segments)-1]
	switch {
	case len(segments) > 1 && last != "" && !strings.HasPrefix(last, ":"):
		action = titleWords(strings.ReplaceAll(last, "-", " "))
	case method == http.MethodPost:
		action = "Create"
	case method == http.MethodPut || method == http.MethodPatch:
		action = "Update"
	case method == http.MethodDelete:
		action = "Delete"
	default:
		action = method
	}
	return module, action
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if strings.EqualFold(w, "llm") || strings.EqualFold(w, "im") {
			words[i] = strings.ToUpper(w)
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatAuditMessage(username, method, path string, status int) string {
	outcome := "Failed"
	if status >= 200 && status < 300 {
		outcome = "OK"
	}
	if username == "" {
		username = "anonymous"
	}
	return "[Audit] " + username + " " + method + " " + path + " -> " + outcome
}

// maskSensitiveFields re-encodes a JSON body with secret values replaced.
// Non-JSON bodies are returned unchanged.
func maskSensitiveFields(raw []byte) string {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(maskValue(doc))
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func maskValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if sensitiveKeys[strings.ToLower(k)] {
				t[k] = "***"
				continue
			}
			t[k] = maskValue(val)
		}
		return t
	case []interface{}:
		for i := range t {
			t[i] = maskValue(t[i])
		}
		return t
	default:
		return v
	}
}
