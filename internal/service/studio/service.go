// Package studio orchestrates the image pipeline families: every user
// action is one synchronous sequence of a fresh family load, a state
// mutation, and a whole-record save. Blob writes always land before the
// record that references them.
package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artfoundry/atelier/backend/internal/logger"
	model "github.com/artfoundry/atelier/backend/internal/model/session"
	"github.com/artfoundry/atelier/backend/internal/pipeline"
	"github.com/artfoundry/atelier/backend/internal/service/genai"
	sessionsvc "github.com/artfoundry/atelier/backend/internal/service/session"
)

var (
	ErrInvalidSessionName = errors.New("invalid session name")
	ErrFamilyUnavailable  = errors.New("model family unavailable")
)

// Service drives the base → variation → editing pipeline for the image
// families. State lives entirely in per-request scope plus durable storage;
// nothing is held between interactions.
type Service struct {
	records   *sessionsvc.Store
	directory *sessionsvc.Directory
	invokers  map[model.Family]genai.Invoker
	log       zerolog.Logger
}

// New wires the studio service. invokers maps each enabled image family to
// its backend; families without an invoker can still manage sessions.
func New(records *sessionsvc.Store, directory *sessionsvc.Directory, invokers map[model.Family]genai.Invoker) *Service {
	return &Service{
		records:   records,
		directory: directory,
		invokers:  invokers,
		log:       logger.With("studio"),
	}
}

// Summary is one row of a session listing.
type Summary struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Service) invoker(family model.Family) (genai.Invoker, error) {
	invoker, ok := s.invokers[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFamilyUnavailable, family)
	}
	return invoker, nil
}

func (s *Service) load(ctx context.Context, family model.Family, name string) (map[string]*model.Record, *model.Record, error) {
	sessions := s.records.Load(ctx, family)
	rec, ok := sessions[name]
	if !ok {
		return nil, nil, fmt.Errorf("session %q: %w", name, sessionsvc.ErrSessionNotFound)
	}
	return sessions, rec, nil
}

// ListSessions returns the family's sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, family model.Family) []Summary {
	sessions := s.records.Load(ctx, family)
	names := s.directory.List(sessions)

	summaries := make([]Summary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, Summary{Name: name, CreatedAt: sessions[name].CreatedAt})
	}
	return summaries
}

// CreateSession provisions a named session within the family.
func (s *Service) CreateSession(ctx context.Context, family model.Family, name string) (*model.Record, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionName, name)
	}
	sessions := s.records.Load(ctx, family)
	rec, err := s.directory.Create(ctx, family, sessions, name)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("family", string(family)).Str("session", name).Msg("session created")
	return rec, nil
}

// DeleteSession removes the session and all of its stored objects.
func (s *Service) DeleteSession(ctx context.Context, family model.Family, name string) error {
	sessions := s.records.Load(ctx, family)
	if err := s.directory.Remove(ctx, family, sessions, name); err != nil {
		return err
	}
	s.log.Info().Str("family", string(family)).Str("session", name).Msg("session deleted")
	return nil
}

// GetSession returns the current durable state of one session.
func (s *Service) GetSession(ctx context.Context, family model.Family, name string) (*model.Record, error) {
	_, rec, err := s.load(ctx, family, name)
	return rec, err
}

// GenerateBase invokes text-to-image and appends the result to the base
// list. Model failures propagate without touching the stored record.
func (s *Service) GenerateBase(ctx context.Context, family model.Family, name string, req genai.TextToImageRequest) (*model.Record, error) {
	invoker, err := s.invoker(family)
	if err != nil {
		return nil, err
	}
	_, rec, err := s.load(ctx, family, name)
	if err != nil {
		return nil, err
	}

	req.Seed = genai.ResolveSeed(req.Seed)
	images, err := invoker.TextToImage(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, img := range images {
		rec.AttachImage(model.KindBase, img)
	}
	if err := s.records.Save(ctx, family, name, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// UploadBase stores a user-provided image as a base artifact. Uploading
// content that is already listed is a no-op thanks to content addressing.
func (s *Service) UploadBase(ctx context.Context, family model.Family, name string, data []byte) (*model.Record, string, error) {
	_, rec, err := s.load(ctx, family, name)
	if err != nil {
		return nil, "", err
	}

	prefix := family.Namespace() + "/" + name + "/" + string(model.KindBase)
	key, err := s.records.Blobs().Put(ctx, data, prefix)
	if err != nil {
		return nil, "", err
	}

	if !rec.Contains(model.KindBase, key) {
		rec.AppendImage(model.KindBase, key)
		if err := s.records.Save(ctx, family, name, rec); err != nil {
			return nil, "", err
		}
	}
	return rec, key, nil
}

// SelectArtifact marks an artifact as the stage's selection.
func (s *Service) SelectArtifact(ctx context.Context, family model.Family, name string, kind model.ArtifactKind, key string) (*model.Record, bool, error) {
	_, rec, err := s.load(ctx, family, name)
	if err != nil {
		return nil, false, err
	}

	if !pipeline.Select(rec, kind, key) {
		return rec, false, nil
	}
	if err := s.records.Save(ctx, family, name, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// RemoveArtifact deletes an artifact from its stage list and from blob
// storage. A selection pointing at the removed artifact is cleared as part
// of the same record mutation; the blob delete is best-effort.
func (s *Service) RemoveArtifact(ctx context.Context, family model.Family, name string, kind model.ArtifactKind, key string) (*model.Record, bool, error) {
	_, rec, err := s.load(ctx, family, name)
	if err != nil {
		return nil, false, err
	}

	if !pipeline.RemoveArtifact(rec, kind, key) {
		return rec, false, nil
	}
	if err := s.records.Blobs().Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("blob", key).Msg("failed to delete artifact blob")
	}
	if err := s.records.Save(ctx, family, name, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// GenerateVariation runs image-to-image against the selected base artifact.
// Without a base selection the call is rejected as a guard violation.
func (s *Service) GenerateVariation(ctx context.Context, family model.Family, name string, req genai.VariationRequest) (*model.Record, bool, error) {
	invoker, err := s.invoker(family)
	if err != nil {
		return nil, false, err
	}
	_, rec, err := s.load(ctx, family, name)
	if err != nil {
		return nil, false, err
	}
	if rec.SelectedBase == nil {
		return rec, false, nil
	}

	init, err := s.records.Blobs().Get(ctx, rec.SelectedBase.Key)
	if err != nil {
		return nil, false, err
	}
	req.InitImage = init
	req.Seed = genai.ResolveSeed(req.Seed)

	images, err := invoker.ImageVariation(ctx, req)
	if err != nil {
		return nil, false, err
	}
	for _, img := range images {
		rec.AttachImage(model.KindVariation, img)
	}
	if err := s.records.Save(ctx, family, name, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// ApplyEdit inpaints the masked region of the editing stage's working
// image. Requires the session to have entered the editing stage.
func (s *Service) ApplyEdit(ctx context.Context, family model.Family, name string, req genai.InpaintRequest) (*model.Record, bool, error) {
	invoker, err := s.invoker(family)
	if err != nil {
		return nil, false, err
	}
	_, rec, err := s.load(ctx, family, name)
	if err != nil {
		return nil, false, err
	}
	if rec.EditingImage == "" {
		return rec, false, nil
	}

	init, err := s.records.Blobs().Get(ctx, rec.EditingImage)
	if err != nil {
		return nil, false, err
	}
	req.InitImage = init
	req.Seed = genai.ResolveSeed(req.Seed)

	images, err := invoker.Inpaint(ctx, req)
	if err != nil {
		return nil, false, err
	}
	for _, img := range images {
		rec.AttachImage(model.KindEditing, img)
	}
	if err := s.records.Save(ctx, family, name, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Advance moves the session one stage forward, guarded by the current
// stage's selection; useOriginal routes editing's source to the base
// artifact instead of a variation. Guard violations report ok=false.
func (s *Service) Advance(ctx context.Context, family model.Family, name string, useOriginal bool) (*model.Record, bool, error) {
	_, rec, err := s.load(ctx, family, name)
	if err != nil {
		return nil, false, err
	}

	var ok bool
	switch rec.Step {
	case model.StageBase:
		ok = pipeline.AdvanceToVariation(rec)
	case model.StageVariation:
		ok = pipeline.AdvanceToEditing(rec, useOriginal)
	}
	if !ok {
		return rec, false, nil
	}
	if err := s.records.Save(ctx, family, name, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Back steps one stage backwards, preserving all downstream state.
func (s *Service) Back(ctx context.Context, family model.Family, name string) (*model.Record, bool, error) {
	_, rec, err := s.load(ctx, family, name)
	if err != nil {
		return nil, false, err
	}
	if !pipeline.Back(rec) {
		return rec, false, nil
	}
	if err := s.records.Save(ctx, family, name, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// KeepEditing promotes the selected editing result to the working image.
func (s *Service) KeepEditing(ctx context.Context, family model.Family, name string) (*model.Record, bool, error) {
	_, rec, err := s.load(ctx, family, name)
	if err != nil {
		return nil, false, err
	}
	if !pipeline.KeepEditing(rec) {
		return rec, false, nil
	}
	if err := s.records.Save(ctx, family, name, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}
