package genai_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/artfoundry/atelier/backend/internal/service/genai"
)

func stabilityServer(t *testing.T, capture *map[string]any, artifacts []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, capture))

		out := map[string]any{"artifacts": []map[string]string{}}
		for _, a := range artifacts {
			out["artifacts"] = append(out["artifacts"].([]map[string]string), map[string]string{"base64": a})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
}

func TestStabilityTextToImage(t *testing.T) {
	var captured map[string]any
	encoded := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	srv := stabilityServer(t, &captured, []string{encoded})
	defer srv.Close()

	invoker := genai.NewStability(genai.ClientConfig{Endpoint: srv.URL})
	images, err := invoker.TextToImage(context.Background(), genai.TextToImageRequest{
		Prompt:         "a red fox",
		NegativePrompt: "blurry",
		Width:          1024,
		Height:         1024,
		CfgScale:       7,
		Steps:          70,
		Sampler:        "DDIM",
		Seed:           42,
	})
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.Equal(t, []byte("png-bytes"), images[0])

	prompts := captured["text_prompts"].([]any)
	require.Len(t, prompts, 2)
	require.Equal(t, "a red fox", prompts[0].(map[string]any)["text"])
	require.Equal(t, float64(-1), prompts[1].(map[string]any)["weight"])
	require.Equal(t, float64(42), captured["seed"])
	require.NotContains(t, captured, "style_preset", "unset style preset must be omitted")
}

func TestStabilityVariationCarriesInitImage(t *testing.T) {
	var captured map[string]any
	encoded := base64.StdEncoding.EncodeToString([]byte("out"))
	srv := stabilityServer(t, &captured, []string{encoded})
	defer srv.Close()

	invoker := genai.NewStability(genai.ClientConfig{Endpoint: srv.URL})
	_, err := invoker.ImageVariation(context.Background(), genai.VariationRequest{
		InitImage: []byte("init"),
		Strength:  0.35,
	})
	require.NoError(t, err)
	require.Equal(t, "IMAGE_STRENGTH", captured["init_image_mode"])
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("init")), captured["init_image"])
	require.Equal(t, 0.35, captured["image_strength"])
}

func TestStabilityTextToImageDefaults(t *testing.T) {
	var captured map[string]any
	encoded := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	srv := stabilityServer(t, &captured, []string{encoded})
	defer srv.Close()

	invoker := genai.NewStability(genai.ClientConfig{Endpoint: srv.URL})
	_, err := invoker.TextToImage(context.Background(), genai.TextToImageRequest{Prompt: "a red fox"})
	require.NoError(t, err)

	// Omitted tuning parameters fall back to the generation defaults
	// instead of zeroes on the wire.
	require.Equal(t, float64(7), captured["cfg_scale"])
	require.Equal(t, float64(70), captured["steps"])
	require.Equal(t, float64(1024), captured["width"])
	require.Equal(t, float64(1024), captured["height"])
}

func TestStabilityVariationDefaults(t *testing.T) {
	var captured map[string]any
	encoded := base64.StdEncoding.EncodeToString([]byte("out"))
	srv := stabilityServer(t, &captured, []string{encoded})
	defer srv.Close()

	invoker := genai.NewStability(genai.ClientConfig{Endpoint: srv.URL})
	_, err := invoker.ImageVariation(context.Background(), genai.VariationRequest{
		Prompt:    "bigger",
		InitImage: []byte("init"),
	})
	require.NoError(t, err)
	require.Equal(t, 0.35, captured["image_strength"])
	require.Equal(t, float64(7), captured["cfg_scale"])
	require.Equal(t, float64(70), captured["steps"])
}

func TestStabilityInpaintDefaults(t *testing.T) {
	var captured map[string]any
	encoded := base64.StdEncoding.EncodeToString([]byte("out"))
	srv := stabilityServer(t, &captured, []string{encoded})
	defer srv.Close()

	invoker := genai.NewStability(genai.ClientConfig{Endpoint: srv.URL})
	_, err := invoker.Inpaint(context.Background(), genai.InpaintRequest{
		Prompt:    "add a moat",
		InitImage: []byte("init"),
		MaskImage: []byte("mask"),
	})
	require.NoError(t, err)

	// Editing defaults are hotter than generation's.
	require.Equal(t, float64(25), captured["cfg_scale"])
	require.Equal(t, float64(150), captured["steps"])
}

func TestStabilityEmptyArtifacts(t *testing.T) {
	var captured map[string]any
	srv := stabilityServer(t, &captured, nil)
	defer srv.Close()

	invoker := genai.NewStability(genai.ClientConfig{Endpoint: srv.URL})
	_, err := invoker.TextToImage(context.Background(), genai.TextToImageRequest{Prompt: "x"})
	require.ErrorIs(t, err, genai.ErrNoArtifacts)
}

func TestStabilityServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	invoker := genai.NewStability(genai.ClientConfig{Endpoint: srv.URL})
	_, err := invoker.TextToImage(context.Background(), genai.TextToImageRequest{Prompt: "x"})
	require.ErrorIs(t, err, genai.ErrModelInvocation)
}

func titanServer(t *testing.T, capture *map[string]any, images []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, capture))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"images": images})
	}))
}

func TestTitanTextToImage(t *testing.T) {
	var captured map[string]any
	encoded := base64.StdEncoding.EncodeToString([]byte("titan-png"))
	srv := titanServer(t, &captured, []string{encoded})
	defer srv.Close()

	invoker := genai.NewTitan(genai.ClientConfig{Endpoint: srv.URL})
	images, err := invoker.TextToImage(context.Background(), genai.TextToImageRequest{
		Prompt:   "a lighthouse",
		Width:    512,
		Height:   512,
		CfgScale: 8.0,
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("titan-png")}, images)

	require.Equal(t, "TEXT_IMAGE", captured["taskType"])
	params := captured["textToImageParams"].(map[string]any)
	require.Equal(t, "a lighthouse", params["text"])
	cfg := captured["imageGenerationConfig"].(map[string]any)
	require.Equal(t, float64(1), cfg["numberOfImages"])
	require.Equal(t, float64(512), cfg["width"])
}

func TestTitanTextToImageDefaults(t *testing.T) {
	var captured map[string]any
	encoded := base64.StdEncoding.EncodeToString([]byte("titan-png"))
	srv := titanServer(t, &captured, []string{encoded})
	defer srv.Close()

	invoker := genai.NewTitan(genai.ClientConfig{Endpoint: srv.URL})
	_, err := invoker.TextToImage(context.Background(), genai.TextToImageRequest{Prompt: "a lighthouse"})
	require.NoError(t, err)

	cfg := captured["imageGenerationConfig"].(map[string]any)
	require.Equal(t, float64(8), cfg["cfgScale"])
	require.Equal(t, float64(512), cfg["width"])
	require.Equal(t, float64(512), cfg["height"])
}

func TestTitanInpaintMaskPromptFallback(t *testing.T) {
	var captured map[string]any
	encoded := base64.StdEncoding.EncodeToString([]byte("edited"))
	srv := titanServer(t, &captured, []string{encoded})
	defer srv.Close()

	invoker := genai.NewTitan(genai.ClientConfig{Endpoint: srv.URL})
	_, err := invoker.Inpaint(context.Background(), genai.InpaintRequest{
		Prompt:    "add a sailboat",
		InitImage: []byte("init"),
	})
	require.NoError(t, err)
	require.Equal(t, "INPAINTING", captured["taskType"])
	params := captured["inPaintingParams"].(map[string]any)
	require.Equal(t, "add a sailboat", params["maskPrompt"])
}

func TestTitanOutpaintMode(t *testing.T) {
	var captured map[string]any
	encoded := base64.StdEncoding.EncodeToString([]byte("extended"))
	srv := titanServer(t, &captured, []string{encoded})
	defer srv.Close()

	invoker := genai.NewTitan(genai.ClientConfig{Endpoint: srv.URL})
	_, err := invoker.Inpaint(context.Background(), genai.InpaintRequest{
		Prompt:     "widen the valley",
		InitImage:  []byte("init"),
		MaskPrompt: "the sky",
		Outpaint:   true,
	})
	require.NoError(t, err)
	require.Equal(t, "OUTPAINTING", captured["taskType"])
	params := captured["outPaintingParams"].(map[string]any)
	require.Equal(t, "DEFAULT", params["outPaintingMode"])
	require.Equal(t, "the sky", params["maskPrompt"])
}
