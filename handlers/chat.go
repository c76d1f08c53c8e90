package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"excursion/models"
)

const maxChatBody = 16 << 10

// Assistant answers one prompt at a time.
type Assistant interface {
	Reply(ctx context.Context, prompt string) models.ChatMessage
}

type ChatHandler struct {
	assistant Assistant
}

func NewChatHandler(assistant Assistant) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

// Ask forwards the visitor prompt to the assistant.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeError(w, "prompt is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.assistant.Reply(r.Context(), prompt))
}
