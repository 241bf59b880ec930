package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"biblestudy/internal/logging"
	"biblestudy/internal/prompt"
	"biblestudy/internal/services"
)

const maxBodyBytes = 1 << 20

// SetCORSHeaders applies the headers the browser UI relies on.
func SetCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

type chatResponse struct {
	Success    bool   `json:"success"`
	Response   string `json:"response,omitempty"`
	Usage      any    `json:"usage,omitempty"`
	Error      string `json:"error,omitempty"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// ChatHandler serves POST /api/chat.
func (g *Gateway) ChatHandler() http.Handler {
	return http.HandlerFunc(g.serveChat)
}

func (g *Gateway) serveChat(w http.ResponseWriter, r *http.Request) {
	SetCORSHeaders(w.Header())
	ctx := r.Context()
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		ctx = services.WithRequestID(ctx, id)
		w.Header().Set("X-Request-ID", id)
	}
	logger := logging.WithContext(ctx, g.logger)
	logger.Debug("gateway request", logging.String("method", r.Method), logging.String("path", r.URL.Path))

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, chatResponse{Error: MsgMethodNotAllowed})
		return
	}

	var req prompt.Request
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		if !g.cfg.Configured() {
			g.writeFailure(w, newFailure(http.StatusInternalServerError, MsgConfiguration, services.ErrConfiguration))
			return
		}
		g.writeFailure(w, newFailure(http.StatusBadRequest, MsgInvalidJSON, services.ErrValidation))
		return
	}

	result, err := g.Execute(ctx, req)
	if err != nil {
		g.writeFailure(w, classify(err))
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Success: true, Response: result.Text, Usage: result.Usage})
}

func (g *Gateway) writeFailure(w http.ResponseWriter, failure *Failure) {
	body := chatResponse{Error: failure.Message, Details: failure.Details, StatusCode: failure.UpstreamStatus}
	writeJSON(w, failure.Status, body)
}

type testResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Timestamp   string          `json:"timestamp"`
	Environment testEnvironment `json:"environment"`
}

type testEnvironment struct {
	HasAPIKey     bool `json:"hasApiKey"`
	HasEndpoint   bool `json:"hasEndpoint"`
	HasDeployment bool `json:"hasDeployment"`
}

// TestHandler serves GET /api/test, a health check reporting which credentials are
// present without revealing them.
func (g *Gateway) TestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetCORSHeaders(w.Header())
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, testResponse{
			Success:   true,
			Message:   "API is working!",
			Timestamp: g.now().UTC().Format(time.RFC3339Nano),
			Environment: testEnvironment{
				HasAPIKey:     strings.TrimSpace(g.cfg.APIKey) != "",
				HasEndpoint:   strings.TrimSpace(g.cfg.Endpoint) != "",
				HasDeployment: strings.TrimSpace(g.cfg.Deployment) != "",
			},
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
