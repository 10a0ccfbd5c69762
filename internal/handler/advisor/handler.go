// Package advisor streams prompt critiques over Server-Sent Events.
package advisor

import (
	"errors"
	"io"
	"log"
	"net/http"

	advisorService "github.com/artfoundry/atelier/backend/internal/service/advisor"
	"github.com/artfoundry/atelier/backend/pkg/utils"
)

// Handler serves the prompt review endpoint.
type Handler struct {
	svc *advisorService.Service
}

// New creates the advisor handler.
func New(svc *advisorService.Service) *Handler {
	return &Handler{svc: svc}
}

// ChunkResponse is one streamed fragment of the critique.
type ChunkResponse struct {
	Event   string `json:"event"`
	Content string `json:"content,omitempty"`
}

// EndResponse closes a successful stream.
type EndResponse struct {
	Finished bool `json:"finished"`
}

// ErrorResponse reports a failed stream.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleReview streams the review of the prompt passed as a query
// parameter. Critique fragments arrive as data-only SSE frames; the stream
// terminates with a typed "end" or "error" event.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	prompt := r.URL.Query().Get("prompt")
	if prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	stream, err := h.svc.Stream(r.Context(), prompt)
	if err != nil {
		utils.SendSSEEvent(w, flusher, "error", ErrorResponse{Error: err.Error()})
		return
	}
	defer stream.Close()

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			log.Printf("[advisor] stream failed: %v", recvErr)
			utils.SendSSEEvent(w, flusher, "error", ErrorResponse{Error: "review stream failed"})
			return
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		utils.SendSSEChunk(w, flusher, ChunkResponse{Event: "delta", Content: chunk.Content})
	}

	utils.SendSSEEvent(w, flusher, "end", EndResponse{Finished: true})
}
