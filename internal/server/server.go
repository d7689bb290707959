// Package server exposes the chat pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/chat"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/protection"
)

const maxRequestBodySize = 64 << 10

// ChatHandler runs one chat turn. *chat.Pipeline implements it.
type ChatHandler interface {
	HandleChatTurn(ctx context.Context, req chat.Request) (*chat.Response, error)
}

// Options configures the HTTP handler.
type Options struct {
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// TrustProxy keys clients by the first X-Forwarded-For hop. Enable it
	// only behind a proxy that overwrites the header; otherwise callers can
	// rotate it to reset their rate limit.
	TrustProxy bool
}

// New returns the router serving POST /api/chat, GET /health and GET /metrics.
func New(h ChatHandler, opts Options) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)
	r.Post("/api/chat", handleChat(h, opts.TrustProxy))
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// chatRequest is the POST /api/chat body. Any other top-level string field
// is passed to the protection gate as a form field, which is how hidden
// honeypot inputs arrive.
type chatRequest struct {
	Message   string           `json:"message"`
	History   []model.ChatTurn `json:"history"`
	SessionID string           `json:"sessionId"`
	UserID    string           `json:"userId"`
	// PageLoadedAt is milliseconds since the epoch, as from Date.now().
	PageLoadedAt int64 `json:"pageLoadedAt"`
}

type errorBody struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

func handleChat(h ChatHandler, trustProxy bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close() //nolint:errcheck

		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
			return
		}
		body, fields, err := decodeChat(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
			return
		}

		forwarded := ""
		if trustProxy {
			forwarded = r.Header.Get("X-Forwarded-For")
		}
		req := chat.Request{
			Message:    body.Message,
			History:    body.History,
			ClientID:   protection.ClientID(r.RemoteAddr, forwarded, body.UserID, body.SessionID),
			FormFields: fields,
		}
		if body.PageLoadedAt > 0 {
			req.PageLoadedAt = time.UnixMilli(body.PageLoadedAt)
		}

		resp, err := h.HandleChatTurn(r.Context(), req)
		switch {
		case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrInvalidHistory):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		case err != nil:
			zap.L().Error("server: chat turn failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			return
		}

		if resp.Blocked {
			if resp.RetryAfterSeconds > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfterSeconds))
			}
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error:             strings.Join(resp.Reasons, "; "),
				RetryAfterSeconds: resp.RetryAfterSeconds,
			})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// decodeChat splits the raw body into the known request fields and the
// remaining string fields.
func decodeChat(raw map[string]json.RawMessage) (chatRequest, map[string]string, error) {
	var body chatRequest
	fields := make(map[string]string)
	for k, v := range raw {
		var err error
		switch k {
		case "message":
			err = json.Unmarshal(v, &body.Message)
		case "history":
			err = json.Unmarshal(v, &body.History)
		case "sessionId":
			err = json.Unmarshal(v, &body.SessionID)
		case "userId":
			err = json.Unmarshal(v, &body.UserID)
		case "pageLoadedAt":
			err = json.Unmarshal(v, &body.PageLoadedAt)
		default:
			var s string
			if json.Unmarshal(v, &s) == nil {
				fields[k] = s
			}
		}
		if err != nil {
			return chatRequest{}, nil, err
		}
	}
	return body, fields, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}
