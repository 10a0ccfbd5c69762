// Package editor implements the chat image editor family: a conversation
// where the latest image entry decides whether the next turn generates a
// new image or edits the current one.
package editor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/artfoundry/atelier/backend/internal/logger"
	model "github.com/artfoundry/atelier/backend/internal/model/session"
	"github.com/artfoundry/atelier/backend/internal/service/genai"
	sessionsvc "github.com/artfoundry/atelier/backend/internal/service/session"
)

const family = model.FamilyChatEditor

// Default generation settings for chat-driven image turns.
const (
	defaultWidth    = 512
	defaultHeight   = 512
	defaultCfgScale = 8.0
)

const apologyGenerate = "Sorry, I couldn't generate the image. Please try again."
const apologyEdit = "Sorry, I couldn't edit the image. Please try again."

// Service drives chat-editor sessions. Model failures are conversational:
// they land in the history as an assistant apology and never corrupt the
// session.
type Service struct {
	records *sessionsvc.Store
	invoker genai.Invoker
	log     zerolog.Logger
}

// New wires the editor over the record store and a Titan-style invoker.
func New(records *sessionsvc.Store, invoker genai.Invoker) *Service {
	return &Service{
		records: records,
		invoker: invoker,
		log:     logger.With("editor"),
	}
}

func (s *Service) load(ctx context.Context, name string) (*model.Record, error) {
	sessions := s.records.Load(ctx, family)
	rec, ok := sessions[name]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", name, sessionsvc.ErrSessionNotFound)
	}
	return rec, nil
}

func entry(entryType model.EntryType, content string) model.ChatEntry {
	return model.ChatEntry{ID: uuid.NewString(), Type: entryType, Content: content}
}

// textToImage tolerates a missing backend so an unconfigured deployment
// degrades to the conversational apology instead of panicking.
func (s *Service) textToImage(ctx context.Context, req genai.TextToImageRequest) ([][]byte, error) {
	if s.invoker == nil {
		return nil, fmt.Errorf("no image backend configured: %w", genai.ErrModelInvocation)
	}
	return s.invoker.TextToImage(ctx, req)
}

func (s *Service) inpaint(ctx context.Context, req genai.InpaintRequest) ([][]byte, error) {
	if s.invoker == nil {
		return nil, fmt.Errorf("no image backend configured: %w", genai.ErrModelInvocation)
	}
	return s.invoker.Inpaint(ctx, req)
}

// Generate appends the user's prompt and a freshly generated image to the
// chat history. Only valid while the session has no image yet.
func (s *Service) Generate(ctx context.Context, name, prompt string) (*model.Record, bool, error) {
	rec, err := s.load(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if _, hasImage := rec.LatestImage(); hasImage {
		return rec, false, nil
	}

	rec.ChatHistory = append(rec.ChatHistory, entry(model.EntryUser, prompt))

	images, invokeErr := s.textToImage(ctx, genai.TextToImageRequest{
		Prompt:   prompt,
		Width:    defaultWidth,
		Height:   defaultHeight,
		CfgScale: defaultCfgScale,
		Seed:     genai.ResolveSeed(0),
	})
	if invokeErr != nil {
		s.log.Warn().Err(invokeErr).Str("session", name).Msg("image generation failed")
		rec.ChatHistory = append(rec.ChatHistory, entry(model.EntryAssistant, apologyGenerate))
	} else {
		key, err := s.storeImage(ctx, name, images[0])
		if err != nil {
			return nil, false, err
		}
		rec.ChatHistory = append(rec.ChatHistory, entry(model.EntryImage, key))
	}

	if err := s.records.Save(ctx, family, name, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Edit appends an edit turn against the latest image in the history, using
// mask-prompt inpainting or outpainting. Requires an existing image.
func (s *Service) Edit(ctx context.Context, name, maskPrompt, editPrompt string, outpaint bool) (*model.Record, bool, error) {
	rec, err := s.load(ctx, name)
	if err != nil {
		return nil, false, err
	}
	current, hasImage := rec.LatestImage()
	if !hasImage {
		return rec, false, nil
	}

	mode := "Inpainting"
	if outpaint {
		mode = "Outpainting"
	}
	rec.ChatHistory = append(rec.ChatHistory, entry(model.EntryUser,
		fmt.Sprintf("Mode: %s\nMask: %s\nEdit: %s", mode, maskPrompt, editPrompt)))

	init, err := s.records.Blobs().Get(ctx, current)
	if err != nil {
		return nil, false, err
	}

	images, invokeErr := s.inpaint(ctx, genai.InpaintRequest{
		Prompt:     editPrompt,
		InitImage:  init,
		MaskPrompt: maskPrompt,
		Outpaint:   outpaint,
		CfgScale:   defaultCfgScale,
		Seed:       genai.ResolveSeed(0),
	})
	if invokeErr != nil {
		s.log.Warn().Err(invokeErr).Str("session", name).Msg("image edit failed")
		rec.ChatHistory = append(rec.ChatHistory, entry(model.EntryAssistant, apologyEdit))
	} else {
		key, err := s.storeImage(ctx, name, images[0])
		if err != nil {
			return nil, false, err
		}
		rec.ChatHistory = append(rec.ChatHistory, entry(model.EntryImage, key))
	}

	if err := s.records.Save(ctx, family, name, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// ClearChat empties the conversation while keeping the session. Stored
// blobs are left in place; they are reclaimed when the session is deleted.
func (s *Service) ClearChat(ctx context.Context, name string) (*model.Record, error) {
	rec, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	rec.ChatHistory = []model.ChatEntry{}
	if err := s.records.Save(ctx, family, name, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) storeImage(ctx context.Context, name string, data []byte) (string, error) {
	prefix := family.Namespace() + "/" + name + "/" + string(model.KindChat)
	return s.records.Blobs().Put(ctx, data, prefix)
}
