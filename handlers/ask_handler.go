package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/persona-relay/internal/shared"
	"github.com/upb/persona-relay/utils"
)

// maxAskBodyBytes bounds the request body; the message itself is capped by validation
const maxAskBodyBytes = 64 << 10

// AskRequest is the body of POST /api/v1/ask
type AskRequest struct {
	Message string `json:"message" validate:"required,max=4096"`
}

// AskResponse carries the persona reply. It never says which provider
// answered or whether the reply is a canned one.
type AskResponse struct {
	Reply     string `json:"reply"`
	RequestID string `json:"request_id,omitempty"`
}

// Asker answers one user message. It never fails.
type Asker interface {
	Ask(ctx context.Context, message string) string
}

// AskHandler relays user messages to the dispatcher
type AskHandler struct {
	asker  Asker
	logger *zap.Logger
}

// NewAskHandler creates a new AskHandler
func NewAskHandler(asker Asker, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		asker:  asker,
		logger: logger,
	}
}

// HandleAsk handles POST /api/v1/ask
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := shared.RequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxAskBodyBytes)
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = utils.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return
		}
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Validation failed", utils.GetValidationFields(err))
		return
	}

	reply := h.asker.Ask(ctx, req.Message)

	if err := utils.WriteOK(w, AskResponse{Reply: reply, RequestID: requestID}); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
