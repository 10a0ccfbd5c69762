package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	advisorHandler "github.com/artfoundry/atelier/backend/internal/handler/advisor"
	blobsHandler "github.com/artfoundry/atelier/backend/internal/handler/blobs"
	chatbotHandler "github.com/artfoundry/atelier/backend/internal/handler/chatbot"
	editorHandler "github.com/artfoundry/atelier/backend/internal/handler/editor"
	studioHandler "github.com/artfoundry/atelier/backend/internal/handler/studio"
	middlewarePkg "github.com/artfoundry/atelier/backend/internal/middleware"
	advisorService "github.com/artfoundry/atelier/backend/internal/service/advisor"
	chatbotService "github.com/artfoundry/atelier/backend/internal/service/chatbot"
	editorService "github.com/artfoundry/atelier/backend/internal/service/editor"
	studioService "github.com/artfoundry/atelier/backend/internal/service/studio"
	"github.com/artfoundry/atelier/backend/internal/storage/blob"
	"github.com/artfoundry/atelier/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. The advisor and the
// assistant are optional; without chat model credentials their endpoints
// report unavailability.
func NewRouter(studioSvc *studioService.Service, editorSvc *editorService.Service, advisorSvc *advisorService.Service, chatbotSvc *chatbotService.Service, blobStore *blob.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	studio := studioHandler.New(studioSvc)
	editor := editorHandler.New(editorSvc)
	blobs := blobsHandler.New(blobStore)

	r.Route("/api", func(api chi.Router) {
		studio.RegisterRoutes(api)
		editor.RegisterRoutes(api)

		api.Get("/blobs", blobs.HandleGet)

		api.Get("/advisor/review", func(w http.ResponseWriter, r *http.Request) {
			if advisorSvc == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "prompt advisor unavailable")
				return
			}
			advisorHandler.New(advisorSvc).HandleReview(w, r)
		})

		if chatbotSvc != nil {
			chatbotHandler.New(chatbotSvc).RegisterRoutes(api)
		} else {
			api.HandleFunc("/chatbot/*", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "assistant unavailable")
			})
		}
	})

	return r
}
