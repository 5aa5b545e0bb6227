package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/historyguide/apiserver/internal/enrich"
	"github.com/historyguide/apiserver/internal/llm"
	"github.com/historyguide/apiserver/internal/services"
)

const promptRequiredMessage = "Prompt is required."

// AIHandler serves the prompt relay endpoint.
type AIHandler struct {
	askService *services.AskService
	logger     *slog.Logger
}

func NewAIHandler(askService *services.AskService, logger *slog.Logger) *AIHandler {
	return &AIHandler{askService: askService, logger: logger}
}

// AIRouter registers AI routes on the given router. All of them require auth.
func AIRouter(
	r chi.Router,
	askService *services.AskService,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) {
	handler := NewAIHandler(askService, logger)

	r.With(authMiddleware).Post("/ask", handler.Ask)
}

// Ask enriches the prompt and returns the model's answer.
func (h *AIHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AskRequest
	if err := decodeJSON(r, &req); err != nil {
		var missing *missingFieldsError
		if errors.As(err, &missing) {
			writeError(w, http.StatusBadRequest, promptRequiredMessage)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	answer, err := h.askService.Ask(r.Context(), userID, req.Prompt)
	if err != nil {
		var upstream *llm.UpstreamError
		switch {
		case errors.Is(err, enrich.ErrEmptyPrompt):
			writeError(w, http.StatusBadRequest, promptRequiredMessage)
		case errors.As(err, &upstream):
			h.logger.WarnContext(r.Context(), "ai service returned an error", "status", upstream.StatusCode, "body", upstream.Body)
			writeError(w, relayStatus(upstream.StatusCode), "Error communicating with AI service.")
		case errors.Is(err, llm.ErrMalformedResponse):
			h.logger.WarnContext(r.Context(), "ai service response malformed", "error", err)
			writeError(w, http.StatusBadGateway, "Unexpected response from AI service.")
		default:
			h.logger.ErrorContext(r.Context(), "ask failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to answer prompt")
		}
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{Response: answer})
}

// relayStatus passes upstream error statuses through and maps anything else to 502.
func relayStatus(code int) int {
	if code < http.StatusBadRequest || code > 599 {
		return http.StatusBadGateway
	}
	return code
}

type AskRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type AskResponse struct {
	Response string `json:"response"`
}
