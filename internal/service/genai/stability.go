package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

// ClientConfig carries the endpoint settings for an HTTP-backed invoker.
type ClientConfig struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

func (c ClientConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 120 * time.Second}
}

// StabilityInvoker talks to an SDXL-style diffusion endpoint. Request bodies
// follow the stable-diffusion-xl wire format: weighted text prompts,
// init_image with IMAGE_STRENGTH mode for variations, and a white pixel
// mask for inpainting.
type StabilityInvoker struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewStability builds the SDXL invoker.
func NewStability(cfg ClientConfig) *StabilityInvoker {
	return &StabilityInvoker{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   cfg.httpClient(),
	}
}

func textPrompts(prompt, negative string) []map[string]any {
	return []map[string]any{
		{"text": prompt, "weight": 1},
		{"text": negative, "weight": -1},
	}
}

// TextToImage generates a base image from a text prompt.
func (s *StabilityInvoker) TextToImage(ctx context.Context, req TextToImageRequest) ([][]byte, error) {
	body := map[string]any{
		"text_prompts":         textPrompts(req.Prompt, req.NegativePrompt),
		"cfg_scale":            defaultFloat(req.CfgScale, defaultCfgScale),
		"height":               defaultInt(req.Height, defaultImageSize),
		"width":                defaultInt(req.Width, defaultImageSize),
		"samples":              1,
		"steps":                defaultInt(req.Steps, defaultSteps),
		"clip_guidance_preset": req.ClipGuidancePreset,
		"seed":                 req.Seed,
		"sampler":              req.Sampler,
	}
	if req.StylePreset != "" {
		body["style_preset"] = req.StylePreset
	}
	return s.invoke(ctx, body)
}

// ImageVariation produces a variation of the init image.
func (s *StabilityInvoker) ImageVariation(ctx context.Context, req VariationRequest) ([][]byte, error) {
	body := map[string]any{
		"text_prompts":         textPrompts(req.Prompt, req.NegativePrompt),
		"init_image":           base64.StdEncoding.EncodeToString(req.InitImage),
		"init_image_mode":      "IMAGE_STRENGTH",
		"image_strength":       defaultFloat(req.Strength, defaultImageStrength),
		"cfg_scale":            defaultFloat(req.CfgScale, defaultCfgScale),
		"samples":              1,
		"steps":                defaultInt(req.Steps, defaultSteps),
		"clip_guidance_preset": req.ClipGuidancePreset,
		"seed":                 req.Seed,
		"sampler":              req.Sampler,
	}
	if req.StylePreset != "" {
		body["style_preset"] = req.StylePreset
	}
	return s.invoke(ctx, body)
}

// Inpaint regenerates the white-masked region of the init image.
func (s *StabilityInvoker) Inpaint(ctx context.Context, req InpaintRequest) ([][]byte, error) {
	body := map[string]any{
		"text_prompts":         textPrompts(req.Prompt, req.NegativePrompt),
		"init_image":           base64.StdEncoding.EncodeToString(req.InitImage),
		"mask_source":          "MASK_IMAGE_WHITE",
		"mask_image":           base64.StdEncoding.EncodeToString(req.MaskImage),
		"cfg_scale":            defaultFloat(req.CfgScale, defaultEditCfgScale),
		"samples":              1,
		"seed":                 req.Seed,
		"steps":                defaultInt(req.Steps, defaultEditSteps),
		"clip_guidance_preset": req.ClipGuidancePreset,
		"sampler":              req.Sampler,
	}
	if req.StylePreset != "" {
		body["style_preset"] = req.StylePreset
	}
	return s.invoke(ctx, body)
}

func (s *StabilityInvoker) invoke(ctx context.Context, body map[string]any) ([][]byte, error) {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrModelInvocation, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelInvocation, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelInvocation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrModelInvocation, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrModelInvocation, resp.StatusCode)
	}

	var decoded struct {
		Artifacts []struct {
			Base64 string `json:"base64"`
		} `json:"artifacts"`
	}
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrModelInvocation, err)
	}
	if len(decoded.Artifacts) == 0 {
		return nil, ErrNoArtifacts
	}

	images := make([][]byte, 0, len(decoded.Artifacts))
	for _, artifact := range decoded.Artifacts {
		data, err := base64.StdEncoding.DecodeString(artifact.Base64)
		if err != nil {
			return nil, fmt.Errorf("%w: decode artifact: %v", ErrModelInvocation, err)
		}
		images = append(images, data)
	}
	return images, nil
}
