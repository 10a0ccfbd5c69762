// Package editor serves the chat image editor conversation routes.
package editor

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	editorService "github.com/artfoundry/atelier/backend/internal/service/editor"
	sessionsvc "github.com/artfoundry/atelier/backend/internal/service/session"
	"github.com/artfoundry/atelier/backend/pkg/utils"
)

// Handler serves the chat-editor turn routes. Session lifecycle for the
// editor family goes through the shared family routes; only the
// conversation itself lives here.
type Handler struct {
	svc *editorService.Service
}

// New creates the editor handler.
func New(svc *editorService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the editor conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/editor/sessions/{name}", func(sr chi.Router) {
		sr.Post("/generate", h.handleGenerate)
		sr.Post("/edits", h.handleEdit)
		sr.Post("/clear", h.handleClear)
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, sessionsvc.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.Prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	rec, applied, err := h.svc.Generate(r.Context(), chi.URLParam(r, "name"), payload.Prompt)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !applied {
		utils.RespondJSON(w, http.StatusConflict, map[string]any{
			"error":   "session already has an image; use edits instead",
			"session": rec,
		})
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MaskPrompt string `json:"maskPrompt"`
		EditPrompt string `json:"editPrompt"`
		Outpaint   bool   `json:"outpaint"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.EditPrompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "editPrompt is required")
		return
	}

	rec, applied, err := h.svc.Edit(r.Context(), chi.URLParam(r, "name"), payload.MaskPrompt, payload.EditPrompt, payload.Outpaint)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !applied {
		utils.RespondJSON(w, http.StatusConflict, map[string]any{
			"error":   "session has no image to edit yet; use generate first",
			"session": rec,
		})
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.ClearChat(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}
