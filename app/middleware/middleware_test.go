package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kiwimarket/backend-go/internal/auth"
)

func newContext(method, target string, headers map[string]string) (*context.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ctx := context.NewContext()
	ctx.Reset(rec, req)
	return ctx, rec
}

func TestCORSFilter_AllowedOrigin(t *testing.T) {
	filter := CORSFilter([]string{"https://admin.kiwi.example/"})

	ctx, rec := newContext(http.MethodGet, "/api/support/search", map[string]string{"Origin": "https://admin.kiwi.example"})
	filter(ctx)
	assert.Equal(t, "https://admin.kiwi.example", rec.Header().Get("Access-Control-Allow-Origin"))

	ctx, rec = newContext(http.MethodGet, "/api/support/search", map[string]string{"Origin": "https://evil.example"})
	filter(ctx)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSFilter_Preflight(t *testing.T) {
	filter := CORSFilter(nil)

	ctx, rec := newContext(http.MethodOptions, "/api/knowledge-base/entries", map[string]string{"Origin": "http://localhost:5173"})
	filter(ctx)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestSecurityHeaders(t *testing.T) {
	ctx, rec := newContext(http.MethodGet, "/health", nil)
	SecurityHeaders(ctx)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAdminAuth(t *testing.T) {
	jwtService, err := auth.NewJWTService("secret", "kiwi-kb", time.Hour)
	require.NoError(t, err)
	adminToken, err := jwtService.GenerateToken("ops@kiwi", []string{auth.RoleAdmin})
	require.NoError(t, err)
	viewerToken, err := jwtService.GenerateToken("viewer@kiwi", []string{"viewer"})
	require.NoError(t, err)

	filter := AdminAuth(jwtService, "ko")

	tests := []struct {
		name       string
		header     string
		wantStatus int
		subject    string
	}{
		{name: "admin token", header: "Bearer " + adminToken, wantStatus: http.StatusOK, subject: "ops@kiwi"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong role", header: "Bearer " + viewerToken, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc.def.ghi", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, rec := newContext(http.MethodPost, "/api/knowledge-base/entries", map[string]string{"Authorization": tt.header})

			filter(ctx)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.subject, Subject(ctx))
			if tt.wantStatus == http.StatusUnauthorized {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, false, body["success"])
				assert.Equal(t, "UNAUTHORIZED", body["code"])
				assert.Equal(t, "관리자 인증이 필요합니다.", body["error"])
			}
		})
	}
}

func TestAdminAuth_SkipsPreflight(t *testing.T) {
	jwtService, err := auth.NewJWTService("secret", "", time.Hour)
	require.NoError(t, err)

	ctx, rec := newContext(http.MethodOptions, "/api/knowledge-base/stats", nil)
	AdminAuth(jwtService, "ko")(ctx)

	assert.False(t, ctx.ResponseWriter.Started)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditLogFilter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	filter := AuditLogFilter(zap.New(core))

	ctx, _ := newContext(http.MethodDelete, "/api/knowledge-base/entries/manual-1", map[string]string{"X-Forwarded-For": "10.0.0.7, 10.0.0.1"})
	AuditStart(ctx)
	ctx.Input.SetData(ctxKeySubject, "ops@kiwi")
	ctx.ResponseWriter.WriteHeader(http.StatusOK)
	filter(ctx)

	get, _ := newContext(http.MethodGet, "/api/knowledge-base/stats", nil)
	filter(get)

	entries := logs.FilterMessage("Admin operation").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "DELETE", fields["method"])
	assert.Equal(t, "/api/knowledge-base/entries/manual-1", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, "ops@kiwi", fields["subject"])
	assert.Equal(t, "10.0.0.7", fields["ip"])
}
