// Package chatbot exposes the prompt-engineering assistant conversation.
package chatbot

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	chatbotService "github.com/artfoundry/atelier/backend/internal/service/chatbot"
	"github.com/artfoundry/atelier/backend/pkg/utils"
)

// Handler serves the assistant conversation endpoints.
type Handler struct {
	svc *chatbotService.Service
}

// New creates the chatbot handler.
func New(svc *chatbotService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the conversation routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chatbot", func(r chi.Router) {
		r.Get("/history", h.HandleHistory)
		r.Post("/messages", h.HandleSend)
		r.Post("/reset", h.HandleReset)
	})
}

// HistoryResponse is the stored conversation.
type HistoryResponse struct {
	Turns []chatbotService.Turn `json:"turns"`
}

// SendRequest carries one user message and the conversation mode it runs
// under.
type SendRequest struct {
	Mode    string `json:"mode"`
	Message string `json:"message"`
}

// HandleHistory returns the current conversation.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, HistoryResponse{Turns: h.svc.History(r.Context())})
}

// HandleSend appends a message to the conversation and returns the
// extended conversation including the assistant's reply.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}
	mode, ok := chatbotService.ParseMode(req.Mode)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "unknown conversation mode")
		return
	}

	turns, err := h.svc.Send(r.Context(), mode, req.Message)
	if err != nil {
		if errors.Is(err, chatbotService.ErrChatInvocation) {
			utils.RespondError(w, http.StatusBadGateway, "chat model invocation failed")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	utils.RespondJSON(w, http.StatusOK, HistoryResponse{Turns: turns})
}

// HandleReset starts a fresh conversation.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to reset conversation")
		return
	}
	utils.RespondJSON(w, http.StatusOK, HistoryResponse{Turns: []chatbotService.Turn{}})
}
