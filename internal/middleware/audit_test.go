package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRouteInfo(t *testing.T) {
	cases := []struct {
		path, method   string
		module, action string
	}{
		{"/api/projects", "POST", "Projects", "Create"},
		{"/api/admin/projects/:id", "PUT", "Projects", "Update"},
		{"/api/admin/payouts/:id/review", "PUT", "Payouts", "Review"},
		{"/api/submissions/bulk-review", "POST", "Submissions", "Bulk Review"},
		{"/api/admin/llm-configs/:id", "DELETE", "LLM Configs", "Delete"},
		{"", "POST", "unknown", "Create"},
	}
	for _, tc := range cases {
		module, action := parseRouteInfo(tc.path, tc.method)
		assert.Equal(t, tc.module, module, tc.path)
		assert.Equal(t, tc.action, action, tc.path)
	}
}

func TestMaskSensitiveFields(t *testing.T) {
	out := maskSensitiveFields([]byte(`{"username":"ann","password":"hunter2","nested":{"api_key":"sk-1"},"list":[{"secret":"x"}]}`))
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "sk-1")
	assert.NotContains(t, out, `"x"`)
	assert.Contains(t, out, `"username":"ann"`)

	assert.Equal(t, "not json", maskSensitiveFields([]byte("not json")))
}

func TestFormatAuditMessage(t *testing.T) {
	assert.Equal(t, "[Audit] admin PUT /api/x -> OK", formatAuditMessage("admin", "PUT", "/api/x", 200))
	assert.Equal(t, "[Audit] anonymous POST /api/x -> Failed", formatAuditMessage("", "POST", "/api/x", 409))
}
