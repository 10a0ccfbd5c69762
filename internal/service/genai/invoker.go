// Package genai adapts hosted image-generation backends behind a single
// capability-typed interface. The core treats a nonempty image list as
// success and anything else as a soft failure to report to the user.
package genai

import (
	"context"
	"errors"
	"math/rand"
)

var (
	// ErrModelInvocation marks transport or provider failures. Never fatal
	// to a session; the interaction surfaces it and the user retries.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrNoArtifacts is returned when the provider answered but produced
	// no usable images.
	ErrNoArtifacts = errors.New("model returned no artifacts")
)

// Invoker is the capability surface the pipeline consumes. Implementations
// return raw PNG payloads.
type Invoker interface {
	TextToImage(ctx context.Context, req TextToImageRequest) ([][]byte, error)
	ImageVariation(ctx context.Context, req VariationRequest) ([][]byte, error)
	Inpaint(ctx context.Context, req InpaintRequest) ([][]byte, error)
}

// TextToImageRequest describes a base generation call.
type TextToImageRequest struct {
	Prompt             string  `json:"prompt"`
	NegativePrompt     string  `json:"negative_prompt,omitempty"`
	Width              int     `json:"width,omitempty"`
	Height             int     `json:"height,omitempty"`
	StylePreset        string  `json:"style_preset,omitempty"`
	ClipGuidancePreset string  `json:"clip_guidance_preset,omitempty"`
	Sampler            string  `json:"sampler,omitempty"`
	Seed               int64   `json:"seed,omitempty"`
	CfgScale           float64 `json:"cfg_scale,omitempty"`
	Steps              int     `json:"steps,omitempty"`
	NumImages          int     `json:"num_images,omitempty"`
}

// VariationRequest derives new images from an existing one. Strength maps
// to image_strength (SDXL) or similarityStrength (Titan).
type VariationRequest struct {
	Prompt             string  `json:"prompt,omitempty"`
	NegativePrompt     string  `json:"negative_prompt,omitempty"`
	InitImage          []byte  `json:"-"`
	Strength           float64 `json:"strength,omitempty"`
	StylePreset        string  `json:"style_preset,omitempty"`
	ClipGuidancePreset string  `json:"clip_guidance_preset,omitempty"`
	Sampler            string  `json:"sampler,omitempty"`
	Seed               int64   `json:"seed,omitempty"`
	CfgScale           float64 `json:"cfg_scale,omitempty"`
	Steps              int     `json:"steps,omitempty"`
	NumImages          int     `json:"num_images,omitempty"`
}

// InpaintRequest edits a region of an existing image. The masked area comes
// either from MaskImage (pixel mask, white = editable) or MaskPrompt
// (provider-side segmentation); Outpaint extends the image instead.
type InpaintRequest struct {
	Prompt             string  `json:"prompt"`
	NegativePrompt     string  `json:"negative_prompt,omitempty"`
	InitImage          []byte  `json:"-"`
	MaskImage          []byte  `json:"-"`
	MaskPrompt         string  `json:"mask_prompt,omitempty"`
	Outpaint           bool    `json:"outpaint,omitempty"`
	StylePreset        string  `json:"style_preset,omitempty"`
	ClipGuidancePreset string  `json:"clip_guidance_preset,omitempty"`
	Sampler            string  `json:"sampler,omitempty"`
	Seed               int64   `json:"seed,omitempty"`
	CfgScale           float64 `json:"cfg_scale,omitempty"`
	Steps              int     `json:"steps,omitempty"`
	NumImages          int     `json:"num_images,omitempty"`
	Width              int     `json:"width,omitempty"`
	Height             int     `json:"height,omitempty"`
}

const maxSeed = 4294967295

// Generation defaults, substituted when a request leaves a parameter at
// zero. Editing runs hotter than generation: the masked region needs more
// guidance and sampling to blend with the untouched pixels.
const (
	defaultCfgScale      = 7.0
	defaultSteps         = 70
	defaultEditCfgScale  = 25.0
	defaultEditSteps     = 150
	defaultImageStrength = 0.35
	defaultImageSize     = 1024

	titanDefaultCfgScale  = 8.0
	titanDefaultImageSize = 512
)

func defaultFloat(value, fallback float64) float64 {
	if value == 0 {
		return fallback
	}
	return value
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}

// ResolveSeed substitutes a random seed when the user left it at zero.
func ResolveSeed(seed int64) int64 {
	if seed == 0 {
		return rand.Int63n(maxSeed + 1)
	}
	return seed
}
