package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

// TitanInvoker talks to a Titan-style image endpoint. Bodies are task-typed
// (TEXT_IMAGE, IMAGE_VARIATION, INPAINTING, OUTPAINTING) with a shared
// imageGenerationConfig block; responses carry a base64 "images" list.
type TitanInvoker struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewTitan builds the Titan invoker.
func NewTitan(cfg ClientConfig) *TitanInvoker {
	return &TitanInvoker{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   cfg.httpClient(),
	}
}

func (t *TitanInvoker) generationConfig(numImages int, cfgScale float64, seed int64, width, height int) map[string]any {
	if numImages < 1 {
		numImages = 1
	}
	cfg := map[string]any{
		"numberOfImages": numImages,
		"cfgScale":       defaultFloat(cfgScale, titanDefaultCfgScale),
		"seed":           seed,
	}
	if width > 0 {
		cfg["width"] = width
	}
	if height > 0 {
		cfg["height"] = height
	}
	return cfg
}

// TextToImage generates images from a text prompt.
func (t *TitanInvoker) TextToImage(ctx context.Context, req TextToImageRequest) ([][]byte, error) {
	params := map[string]any{"text": req.Prompt}
	if req.NegativePrompt != "" {
		params["negativeText"] = req.NegativePrompt
	}
	body := map[string]any{
		"taskType":          "TEXT_IMAGE",
		"textToImageParams": params,
		"imageGenerationConfig": t.generationConfig(req.NumImages, req.CfgScale, req.Seed,
			defaultInt(req.Width, titanDefaultImageSize), defaultInt(req.Height, titanDefaultImageSize)),
	}
	return t.invoke(ctx, body)
}

// ImageVariation produces similar images from the init image.
func (t *TitanInvoker) ImageVariation(ctx context.Context, req VariationRequest) ([][]byte, error) {
	params := map[string]any{
		"text":               req.Prompt,
		"images":             []string{base64.StdEncoding.EncodeToString(req.InitImage)},
		"similarityStrength": req.Strength,
	}
	if req.NegativePrompt != "" {
		params["negativeText"] = req.NegativePrompt
	}
	body := map[string]any{
		"taskType":              "IMAGE_VARIATION",
		"imageVariationParams":  params,
		"imageGenerationConfig": t.generationConfig(req.NumImages, req.CfgScale, req.Seed, 0, 0),
	}
	return t.invoke(ctx, body)
}

// Inpaint edits the masked region of the init image, or extends the frame
// when Outpaint is set. The mask is either a pixel mask or a mask prompt;
// a missing mask prompt falls back to the edit prompt itself.
func (t *TitanInvoker) Inpaint(ctx context.Context, req InpaintRequest) ([][]byte, error) {
	taskType, paramsKey := "INPAINTING", "inPaintingParams"
	if req.Outpaint {
		taskType, paramsKey = "OUTPAINTING", "outPaintingParams"
	}

	params := map[string]any{
		"text":  req.Prompt,
		"image": base64.StdEncoding.EncodeToString(req.InitImage),
	}
	switch {
	case len(req.MaskImage) > 0:
		params["maskImage"] = base64.StdEncoding.EncodeToString(req.MaskImage)
	case req.MaskPrompt != "":
		params["maskPrompt"] = req.MaskPrompt
	default:
		params["maskPrompt"] = req.Prompt
	}
	if req.NegativePrompt != "" {
		params["negativeText"] = req.NegativePrompt
	}
	if req.Outpaint {
		params["outPaintingMode"] = "DEFAULT"
	}

	body := map[string]any{
		"taskType":              taskType,
		paramsKey:               params,
		"imageGenerationConfig": t.generationConfig(req.NumImages, req.CfgScale, req.Seed, req.Width, req.Height),
	}
	return t.invoke(ctx, body)
}

func (t *TitanInvoker) invoke(ctx context.Context, body map[string]any) ([][]byte, error) {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrModelInvocation, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelInvocation, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(httpReq)
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
		Images []string `json:"images"`
	}
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrModelInvocation, err)
	}
	if len(decoded.Images) == 0 {
		return nil, ErrNoArtifacts
	}

	images := make([][]byte, 0, len(decoded.Images))
	for _, encoded := range decoded.Images {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: decode image: %v", ErrModelInvocation, err)
		}
		images = append(images, data)
	}
	return images, nil
}
