// Package blobs serves stored image payloads back to the frontend.
package blobs

import (
	"errors"
	"net/http"

	"github.com/artfoundry/atelier/backend/internal/logger"
	"github.com/artfoundry/atelier/backend/internal/storage/blob"
	"github.com/artfoundry/atelier/backend/internal/storage/object"
	"github.com/artfoundry/atelier/backend/pkg/utils"
)

// Handler resolves blob keys to their stored bytes.
type Handler struct {
	store *blob.Store
}

// New creates the blob handler.
func New(store *blob.Store) *Handler {
	return &Handler{store: store}
}

// HandleGet serves the image at the key given as a query parameter. Keys
// are opaque references handed out by the session routes.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		utils.RespondError(w, http.StatusBadRequest, "key query parameter is required")
		return
	}

	data, err := h.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "blob not found")
			return
		}
		logger.Error().Err(err).Str("blob", key).Msg("failed to read blob")
		utils.RespondError(w, http.StatusInternalServerError, "failed to read blob")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
