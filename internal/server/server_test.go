package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-pipeline/internal/chat"
	"github.com/sells-group/lead-pipeline/internal/metrics"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/protection"
)

// stubHandler returns a canned response and records the last request.
type stubHandler struct {
	last chat.Request
	resp *chat.Response
	err  error
}

func (s *stubHandler) HandleChatTurn(_ context.Context, req chat.Request) (*chat.Response, error) {
	s.last = req
	return s.resp, s.err
}

func post(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.7:51234"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := New(&stubHandler{}, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestChat_OK(t *testing.T) {
	stub := &stubHandler{resp: &chat.Response{
		RequestID:      "req-1",
		Reply:          "Hi Jane!",
		StructuredInfo: &model.LeadInfo{Email: "jane@acme.com", ServiceRequested: model.ServiceWebDevelopment},
		LeadCreated:    true,
	}}
	h := New(stub, Options{})

	rec := post(t, h, `{
		"message": "need a website",
		"history": [{"role":"assistant","content":"Hello!"}],
		"sessionId": "s-1",
		"pageLoadedAt": 1767225600000,
		"website": "",
		"bot_field": "filled"
	}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Hi Jane!", got["reply"])
	assert.Equal(t, true, got["leadCreated"])
	assert.Equal(t, "req-1", got["requestId"])
	assert.NotContains(t, got, "leadError")
	assert.Equal(t, "web-development", got["structuredInfo"].(map[string]any)["serviceRequested"])

	assert.Equal(t, "need a website", stub.last.Message)
	assert.Equal(t, []model.ChatTurn{{Role: model.RoleAssistant, Content: "Hello!"}}, stub.last.History)
	assert.Equal(t, "10.0.0.7:s-1", stub.last.ClientID)
	assert.Equal(t, map[string]string{"website": "", "bot_field": "filled"}, stub.last.FormFields)
	assert.True(t, stub.last.PageLoadedAt.Equal(time.UnixMilli(1767225600000)))
}

func TestChat_ClientIDFromForwardedFor(t *testing.T) {
	stub := &stubHandler{resp: &chat.Response{Reply: "ok"}}
	h := New(stub, Options{TrustProxy: true})

	post(t, h, `{"message":"hi","userId":"u-9"}`, map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"})
	assert.Equal(t, "203.0.113.5:u-9", stub.last.ClientID)
	assert.True(t, stub.last.PageLoadedAt.IsZero())
}

func TestChat_ForwardedForIgnoredWithoutTrustedProxy(t *testing.T) {
	stub := &stubHandler{resp: &chat.Response{Reply: "ok"}}
	h := New(stub, Options{})

	for _, hop := range []string{"203.0.113.5", "198.51.100.7"} {
		post(t, h, `{"message":"hi","userId":"u-9"}`, map[string]string{"X-Forwarded-For": hop})
		assert.Equal(t, "10.0.0.7:u-9", stub.last.ClientID, "spoofed hop %s must not change the key", hop)
	}
}

func TestChat_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"not json", `message=hi`, nil},
		{"array body", `["hi"]`, nil},
		{"message wrong type", `{"message": 42}`, nil},
		{"history wrong shape", `{"message":"hi","history":"nope"}`, nil},
		{"empty message", `{"message":"  "}`, chat.ErrEmptyMessage},
		{"bad role", `{"message":"hi","history":[{"role":"system","content":"x"}]}`, chat.ErrInvalidHistory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubHandler{err: tt.err}
			rec := post(t, New(stub, Options{}), tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestChat_Blocked(t *testing.T) {
	stub := &stubHandler{resp: &chat.Response{
		Blocked:           true,
		Reasons:           []string{"rate limit: more than 10 requests per minute"},
		RetryAfterSeconds: 60,
	}}
	rec := post(t, New(stub, Options{}), `{"message":"hi"}`, nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit: more than 10 requests per minute","retryAfterSeconds":60}`, rec.Body.String())
}

func TestChat_UnexpectedError(t *testing.T) {
	stub := &stubHandler{err: assert.AnError}
	rec := post(t, New(stub, Options{}), `{"message":"hi"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORS(t *testing.T) {
	h := New(&stubHandler{}, Options{AllowedOrigins: []string{"https://sellsgroup.test"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://sellsgroup.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://sellsgroup.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Verdict("allowed")

	h := New(&stubHandler{}, Options{Gatherer: reg})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `leadpipeline_protection_verdicts_total{outcome="allowed"} 1`)

	rec = httptest.NewRecorder()
	New(&stubHandler{}, Options{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat_EndToEndWithPipeline(t *testing.T) {
	gate := protection.NewGate(protection.Config{HoneypotEnabled: true}, nil)
	p := chat.NewPipeline(chat.Deps{Gate: gate})

	rec := post(t, New(p, Options{}), `{"message":"hello","homepage":"http://bot.example"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got["reply"])
	assert.Equal(t, false, got["leadCreated"])
}
