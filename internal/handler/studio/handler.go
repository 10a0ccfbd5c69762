// Package studio exposes the image pipeline families over HTTP. Guard
// violations surface as 409 so the frontend can resynchronize its view of
// the session instead of treating them as failures.
package studio

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	model "github.com/artfoundry/atelier/backend/internal/model/session"
	"github.com/artfoundry/atelier/backend/internal/service/genai"
	sessionsvc "github.com/artfoundry/atelier/backend/internal/service/session"
	studioService "github.com/artfoundry/atelier/backend/internal/service/studio"
	"github.com/artfoundry/atelier/backend/pkg/utils"
)

// Handler serves the session and pipeline routes for the image families.
type Handler struct {
	svc *studioService.Service
}

// New creates the studio handler.
func New(svc *studioService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the family-scoped session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/families/{family}", func(fr chi.Router) {
		fr.Get("/sessions", h.handleListSessions)
		fr.Post("/sessions", h.handleCreateSession)

		fr.Route("/sessions/{name}", func(sr chi.Router) {
			sr.Get("/", h.handleGetSession)
			sr.Delete("/", h.handleDeleteSession)

			sr.Post("/images", h.handleGenerateBase)
			sr.Post("/uploads", h.handleUploadBase)
			sr.Post("/variations", h.handleGenerateVariation)
			sr.Post("/edits", h.handleApplyEdit)

			sr.Post("/selection", h.handleSelectArtifact)
			sr.Delete("/artifacts", h.handleRemoveArtifact)

			sr.Post("/advance", h.handleAdvance)
			sr.Post("/back", h.handleBack)
			sr.Post("/keep-editing", h.handleKeepEditing)
		})
	})
}

func parseFamily(w http.ResponseWriter, r *http.Request) (model.Family, bool) {
	family, ok := model.ParseFamily(chi.URLParam(r, "family"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "unknown model family")
		return "", false
	}
	return family, true
}

// parsePipelineFamily additionally rejects the chat editor family, whose
// sessions have no pipeline stages.
func parsePipelineFamily(w http.ResponseWriter, r *http.Request) (model.Family, bool) {
	family, ok := parseFamily(w, r)
	if !ok {
		return "", false
	}
	if !family.HasPipeline() {
		utils.RespondError(w, http.StatusBadRequest, "family has no pipeline stages")
		return "", false
	}
	return family, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondServiceError maps service-level sentinel errors onto HTTP codes.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionsvc.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, sessionsvc.ErrAlreadyExists):
		utils.RespondError(w, http.StatusConflict, "session already exists")
	case errors.Is(err, studioService.ErrInvalidSessionName):
		utils.RespondError(w, http.StatusBadRequest, "invalid session name")
	case errors.Is(err, studioService.ErrFamilyUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, "model family unavailable")
	case errors.Is(err, genai.ErrModelInvocation), errors.Is(err, genai.ErrNoArtifacts):
		utils.RespondError(w, http.StatusBadGateway, "image generation failed")
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondGuard reports a pipeline guard rejection as a conflict with the
// session's current state attached.
func respondGuard(w http.ResponseWriter, rec *model.Record) {
	utils.RespondJSON(w, http.StatusConflict, map[string]any{
		"error":   "operation not allowed in current stage",
		"session": rec,
	})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}
	summaries := h.svc.ListSessions(r.Context(), family)
	utils.RespondJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	rec, err := h.svc.CreateSession(r.Context(), family, payload.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}

	rec, err := h.svc.GetSession(r.Context(), family, chi.URLParam(r, "name"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	family, ok := parseFamily(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteSession(r.Context(), family, chi.URLParam(r, "name")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGenerateBase(w http.ResponseWriter, r *http.Request) {
	family, ok := parsePipelineFamily(w, r)
	if !ok {
		return
	}

	var payload struct {
		Prompt         string  `json:"prompt"`
		NegativePrompt string  `json:"negativePrompt"`
		StylePreset    string  `json:"stylePreset"`
		Width          int     `json:"width"`
		Height         int     `json:"height"`
		CfgScale       float64 `json:"cfgScale"`
		Steps          int     `json:"steps"`
		Seed           int64   `json:"seed"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.Prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	rec, err := h.svc.GenerateBase(r.Context(), family, chi.URLParam(r, "name"), genai.TextToImageRequest{
		Prompt:         payload.Prompt,
		NegativePrompt: payload.NegativePrompt,
		StylePreset:    payload.StylePreset,
		Width:          payload.Width,
		Height:         payload.Height,
		CfgScale:       payload.CfgScale,
		Steps:          payload.Steps,
		Seed:           payload.Seed,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleUploadBase(w http.ResponseWriter, r *http.Request) {
	family, ok := parsePipelineFamily(w, r)
	if !ok {
		return
	}

	var payload struct {
		Image string `json:"image"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	data, err := base64.StdEncoding.DecodeString(payload.Image)
	if err != nil || len(data) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "image must be non-empty base64")
		return
	}

	rec, key, err := h.svc.UploadBase(r.Context(), family, chi.URLParam(r, "name"), data)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"key": key, "session": rec})
}

func (h *Handler) handleGenerateVariation(w http.ResponseWriter, r *http.Request) {
	family, ok := parsePipelineFamily(w, r)
	if !ok {
		return
	}

	var payload struct {
		Prompt         string  `json:"prompt"`
		NegativePrompt string  `json:"negativePrompt"`
		Strength       float64 `json:"strength"`
		CfgScale       float64 `json:"cfgScale"`
		Seed           int64   `json:"seed"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.Prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	rec, applied, err := h.svc.GenerateVariation(r.Context(), family, chi.URLParam(r, "name"), genai.VariationRequest{
		Prompt:         payload.Prompt,
		NegativePrompt: payload.NegativePrompt,
		Strength:       payload.Strength,
		CfgScale:       payload.CfgScale,
		Seed:           payload.Seed,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !applied {
		respondGuard(w, rec)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleApplyEdit(w http.ResponseWriter, r *http.Request) {
	family, ok := parsePipelineFamily(w, r)
	if !ok {
		return
	}

	var payload struct {
		Prompt     string  `json:"prompt"`
		Mask       string  `json:"mask"`
		MaskPrompt string  `json:"maskPrompt"`
		Outpaint   bool    `json:"outpaint"`
		CfgScale   float64 `json:"cfgScale"`
		Seed       int64   `json:"seed"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.Prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	var mask []byte
	if payload.Mask != "" {
		decoded, err := base64.StdEncoding.DecodeString(payload.Mask)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "mask must be base64")
			return
		}
		mask = decoded
	}

	rec, applied, err := h.svc.ApplyEdit(r.Context(), family, chi.URLParam(r, "name"), genai.InpaintRequest{
		Prompt:     payload.Prompt,
		MaskImage:  mask,
		MaskPrompt: payload.MaskPrompt,
		Outpaint:   payload.Outpaint,
		CfgScale:   payload.CfgScale,
		Seed:       payload.Seed,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !applied {
		respondGuard(w, rec)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleSelectArtifact(w http.ResponseWriter, r *http.Request) {
	family, ok := parsePipelineFamily(w, r)
	if !ok {
		return
	}

	var payload struct {
		Kind string `json:"kind"`
		Key  string `json:"key"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	kind, ok := model.ParseArtifactKind(payload.Kind)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "unknown artifact kind")
		return
	}

	rec, applied, err := h.svc.SelectArtifact(r.Context(), family, chi.URLParam(r, "name"), kind, payload.Key)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !applied {
		respondGuard(w, rec)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleRemoveArtifact(w http.ResponseWriter, r *http.Request) {
	family, ok := parsePipelineFamily(w, r)
	if !ok {
		return
	}

	kind, ok := model.ParseArtifactKind(r.URL.Query().Get("kind"))
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "unknown artifact kind")
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		utils.RespondError(w, http.StatusBadRequest, "key query parameter is required")
		return
	}

	rec, applied, err := h.svc.RemoveArtifact(r.Context(), family, chi.URLParam(r, "name"), kind, key)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !applied {
		respondGuard(w, rec)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	family, ok := parsePipelineFamily(w, r)
	if !ok {
		return
	}

	var payload struct {
		UseOriginal bool `json:"useOriginal"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	rec, applied, err := h.svc.Advance(r.Context(), family, chi.URLParam(r, "name"), payload.UseOriginal)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !applied {
		respondGuard(w, rec)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	family, ok := parsePipelineFamily(w, r)
	if !ok {
		return
	}

	rec, applied, err := h.svc.Back(r.Context(), family, chi.URLParam(r, "name"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !applied {
		respondGuard(w, rec)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleKeepEditing(w http.ResponseWriter, r *http.Request) {
	family, ok := parsePipelineFamily(w, r)
	if !ok {
		return
	}

	rec, applied, err := h.svc.KeepEditing(r.Context(), family, chi.URLParam(r, "name"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !applied {
		respondGuard(w, rec)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}
