// Package webhook implements spec §4.6's inbound admission control: URL
// validation handshake, constant-time HMAC signature verification, and
// event routing to the pipeline coordinator. Routing uses
// github.com/go-chi/chi/v5, promoted from rclone-rclone's lib/http
// package, the one pack repo with a concrete chi-based router.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const (
	headerTimestamp = "X-Timestamp"
	headerSignature = "X-Signature"

	eventURLValidation      = "endpoint.url_validation"
	eventRecordingCompleted = "recording.completed"
)

// Coordinator is the pipeline's entry point for a completed-recording
// event, satisfied by internal/pipeline.Coordinator. Declared here (rather
// than imported from internal/pipeline) so this package has no dependency
// on the pipeline's own dependency graph.
type Coordinator interface {
	ProcessCompletedRecording(ctx context.Context, event Event) (map[string]any, error)
}

// Handler admits and routes conferencing-provider webhooks.
type Handler struct {
	secret           string
	disableSignature bool
	coordinator      Coordinator
	logger           *slog.Logger
}

// NewHandler builds a Handler. An empty secret forces every request to be
// ignored regardless of signature, per spec §4.6.
func NewHandler(secret string, disableSignature bool, coordinator Coordinator, logger *slog.Logger) *Handler {
	return &Handler{
		secret:           secret,
		disableSignature: disableSignature,
		coordinator:      coordinator,
		logger:           logger,
	}
}

// RegisterRoutes mounts POST /webhook on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook", h.handleWebhook)
}

// handleWebhook always responds 200 (per spec §4.6, to avoid the provider
// disabling the subscription on a non-2xx); logical status travels in the
// JSON body.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("webhook:read-body", slog.String("error", err.Error()))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "invalid-body"})

		return
	}

	if h.secret == "" {
		h.logger.Warn("webhook:no-secret-configured-ignoring-request")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ignored"})

		return
	}

	if resp, ok := h.tryURLValidation(body); ok {
		_ = json.NewEncoder(w).Encode(resp)

		return
	}

	h.logger.Debug("webhook:admission", slog.Bool("signature_bypass", h.disableSignature))

	if !h.disableSignature {
		timestamp := r.Header.Get(headerTimestamp)
		signature := r.Header.Get(headerSignature)

		if !verifySignature(h.secret, timestamp, string(body), signature) {
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "invalid-signature"})

			return
		}
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Error("webhook:decode", slog.String("error", err.Error()))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "invalid-body"})

		return
	}

	if event.Event != eventRecordingCompleted {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ignored"})

		return
	}

	result, err := h.coordinator.ProcessCompletedRecording(r.Context(), event)
	if err != nil {
		h.logger.Error("webhook:pipeline-error", slog.String("error", err.Error()))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": err.Error()})

		return
	}

	_ = json.NewEncoder(w).Encode(result)
}

// tryURLValidation handles spec §4.6's handshake event, which carries no
// signature to verify at all.
func (h *Handler) tryURLValidation(body []byte) (urlValidationResponse, bool) {
	var payload urlValidationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return urlValidationResponse{}, false
	}

	if payload.Event != eventURLValidation || payload.Payload.PlainToken == "" {
		return urlValidationResponse{}, false
	}

	return urlValidationResponse{
		PlainToken:     payload.Payload.PlainToken,
		EncryptedToken: encryptToken(h.secret, payload.Payload.PlainToken),
	}, true
}
