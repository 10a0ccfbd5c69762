// Package pipeline enforces stage transitions for the image pipeline
// families. Transition functions mutate the record in place and report
// whether the transition was taken; a guard violation is a no-op rather
// than an error, since stale state from a concurrent tab can legitimately
// attempt an invalid transition.
package pipeline

import (
	model "github.com/artfoundry/atelier/backend/internal/model/session"
)

// AdvanceToVariation moves base → variation. Requires a selected base
// artifact; the selection becomes the variation stage's source image.
func AdvanceToVariation(rec *model.Record) bool {
	if rec.Step != model.StageBase || rec.SelectedBase == nil {
		return false
	}
	rec.Step = model.StageVariation
	return true
}

// AdvanceToEditing moves variation → editing. Exactly one source must
// resolve: either the selected variation, or the original base artifact
// when useOriginal is set (bypassing variation entirely). The resolved
// source becomes the editing stage's working image.
func AdvanceToEditing(rec *model.Record, useOriginal bool) bool {
	if rec.Step != model.StageVariation {
		return false
	}

	var source string
	switch {
	case useOriginal:
		if rec.SelectedBase == nil {
			return false
		}
		source = rec.SelectedBase.Key
	case rec.SelectedVariation != nil:
		source = rec.SelectedVariation.Key
	default:
		return false
	}

	rec.EditingImage = source
	rec.Step = model.StageEditing
	return true
}

// KeepEditing is the editing self-loop: the selected result replaces the
// working image so the user can iterate without leaving the stage.
func KeepEditing(rec *model.Record) bool {
	if rec.Step != model.StageEditing || rec.SelectedEditing == nil {
		return false
	}
	rec.EditingImage = rec.SelectedEditing.Key
	return true
}

// Back steps one stage backwards. Always permitted; artifact lists and
// selections of every stage are preserved, so the user can re-descend later.
func Back(rec *model.Record) bool {
	switch rec.Step {
	case model.StageVariation:
		rec.Step = model.StageBase
		return true
	case model.StageEditing:
		rec.Step = model.StageVariation
		return true
	}
	return false
}

// Select marks the artifact with the given key as the stage's selection,
// caching its current list position. Selecting a key that is not in the
// list is rejected.
func Select(rec *model.Record, kind model.ArtifactKind, key string) bool {
	for i, existing := range rec.Images(kind) {
		if existing == key {
			*rec.Selection(kind) = &model.Selection{Key: key, Index: i}
			return true
		}
	}
	return false
}

// RemoveArtifact removes the key from the kind's list and reconciles the
// selection: removing the selected artifact clears the selection atomically
// with the list mutation, and any surviving selection has its cached index
// recomputed from the new list positions.
func RemoveArtifact(rec *model.Record, kind model.ArtifactKind, key string) bool {
	if !rec.RemoveImage(kind, key) {
		return false
	}

	slot := rec.Selection(kind)
	if *slot == nil {
		return true
	}

	if (*slot).Key == key {
		*slot = nil
		return true
	}

	for i, existing := range rec.Images(kind) {
		if existing == (*slot).Key {
			(*slot).Index = i
			return true
		}
	}

	// Selection no longer references a listed artifact; treat it as orphaned.
	*slot = nil
	return true
}
