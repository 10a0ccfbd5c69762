package studio

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	backend "github.com/redis/go-redis/v9"

	"github.com/artfoundry/atelier/backend/internal/logger"
	model "github.com/artfoundry/atelier/backend/internal/model/session"
	"github.com/artfoundry/atelier/backend/internal/service/genai"
	sessionsvc "github.com/artfoundry/atelier/backend/internal/service/session"
	studioService "github.com/artfoundry/atelier/backend/internal/service/studio"
	"github.com/artfoundry/atelier/backend/internal/storage/blob"
	"github.com/artfoundry/atelier/backend/internal/storage/object"
)

type stubInvoker struct {
	outputs [][]byte
	err     error
}

func (s *stubInvoker) TextToImage(_ context.Context, _ genai.TextToImageRequest) ([][]byte, error) {
	return s.outputs, s.err
}

func (s *stubInvoker) ImageVariation(_ context.Context, _ genai.VariationRequest) ([][]byte, error) {
	return s.outputs, s.err
}

func (s *stubInvoker) Inpaint(_ context.Context, _ genai.InpaintRequest) ([][]byte, error) {
	return s.outputs, s.err
}

func setupRouter(t *testing.T) (*chi.Mux, *stubInvoker) {
	t.Helper()
	if err := logger.Init("disabled", "json"); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	mr := miniredis.RunT(t)
	objects := object.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
	records := sessionsvc.NewStore(objects, blob.New(objects))
	directory := sessionsvc.NewDirectory(records)

	invoker := &stubInvoker{outputs: [][]byte{[]byte("png-bytes")}}
	svc := studioService.New(records, directory, map[model.Family]genai.Invoker{
		model.FamilyStability: invoker,
	})

	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r, invoker
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateSession(t *testing.T) {
	r, _ := setupRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/families/stability/sessions", map[string]string{"name": "demo"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
}

func TestCreateSessionDuplicateConflicts(t *testing.T) {
	r, _ := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/families/stability/sessions", map[string]string{"name": "demo"})
	resp := doJSON(t, r, http.MethodPost, "/families/stability/sessions", map[string]string{"name": "demo"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestUnknownFamilyRejected(t *testing.T) {
	r, _ := setupRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/families/dalle/sessions", map[string]string{"name": "demo"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestChatFamilyHasNoPipelineRoutes(t *testing.T) {
	r, _ := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/families/chat_image_editor/sessions", map[string]string{"name": "demo"})
	resp := doJSON(t, r, http.MethodPost, "/families/chat_image_editor/sessions/demo/images", map[string]any{"prompt": "a fox"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetMissingSession(t *testing.T) {
	r, _ := setupRouter(t)

	resp := doJSON(t, r, http.MethodGet, "/families/stability/sessions/ghost", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestGenerateRequiresPrompt(t *testing.T) {
	r, _ := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/families/stability/sessions", map[string]string{"name": "demo"})
	resp := doJSON(t, r, http.MethodPost, "/families/stability/sessions/demo/images", map[string]any{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGenerateModelFailureIsBadGateway(t *testing.T) {
	r, invoker := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/families/stability/sessions", map[string]string{"name": "demo"})
	invoker.err = genai.ErrModelInvocation

	resp := doJSON(t, r, http.MethodPost, "/families/stability/sessions/demo/images", map[string]any{"prompt": "a fox"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestAdvanceGuardRejectionIsConflict(t *testing.T) {
	r, _ := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/families/stability/sessions", map[string]string{"name": "demo"})

	// No base selection yet, so the stage transition is rejected.
	resp := doJSON(t, r, http.MethodPost, "/families/stability/sessions/demo/advance", map[string]any{})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestSelectThenAdvance(t *testing.T) {
	r, _ := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/families/stability/sessions", map[string]string{"name": "demo"})
	doJSON(t, r, http.MethodPost, "/families/stability/sessions/demo/images", map[string]any{"prompt": "a fox"})

	var rec model.Record
	getResp := doJSON(t, r, http.MethodGet, "/families/stability/sessions/demo", nil)
	if err := sonic.Unmarshal(getResp.Body.Bytes(), &rec); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if len(rec.BaseImages) != 1 {
		t.Fatalf("expected one base image, got %d", len(rec.BaseImages))
	}

	resp := doJSON(t, r, http.MethodPost, "/families/stability/sessions/demo/selection",
		map[string]string{"kind": "base_images", "key": rec.BaseImages[0]})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp = doJSON(t, r, http.MethodPost, "/families/stability/sessions/demo/advance", map[string]any{})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRemoveArtifactViaQuery(t *testing.T) {
	r, _ := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/families/stability/sessions", map[string]string{"name": "demo"})
	doJSON(t, r, http.MethodPost, "/families/stability/sessions/demo/images", map[string]any{"prompt": "a fox"})

	var rec model.Record
	getResp := doJSON(t, r, http.MethodGet, "/families/stability/sessions/demo", nil)
	if err := sonic.Unmarshal(getResp.Body.Bytes(), &rec); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}

	resp := doJSON(t, r, http.MethodDelete,
		"/families/stability/sessions/demo/artifacts?kind=base_images&key="+rec.BaseImages[0], nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp = doJSON(t, r, http.MethodDelete,
		"/families/stability/sessions/demo/artifacts?kind=base_images&key="+rec.BaseImages[0], nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for an already removed artifact, got %d", resp.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	r, _ := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/families/stability/sessions", map[string]string{"name": "demo"})
	resp := doJSON(t, r, http.MethodDelete, "/families/stability/sessions/demo", nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	resp = doJSON(t, r, http.MethodGet, "/families/stability/sessions/demo", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
