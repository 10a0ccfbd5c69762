package session

import "time"

// Stage is one step of the base → variation → editing pipeline.
type Stage string

const (
	StageBase      Stage = "base"
	StageVariation Stage = "variation"
	StageEditing   Stage = "editing"
)

// ArtifactKind names a session's stored image lists. The value doubles as
// the storage path segment under the session prefix.
type ArtifactKind string

const (
	KindBase      ArtifactKind = "base_images"
	KindVariation ArtifactKind = "variation_images"
	KindEditing   ArtifactKind = "editing_images"
	KindChat      ArtifactKind = "images"
)

// ParseArtifactKind validates a pipeline artifact kind from the wire.
func ParseArtifactKind(raw string) (ArtifactKind, bool) {
	switch ArtifactKind(raw) {
	case KindBase, KindVariation, KindEditing:
		return ArtifactKind(raw), true
	}
	return "", false
}

// KindForStage maps a pipeline stage to its artifact list.
func KindForStage(stage Stage) ArtifactKind {
	switch stage {
	case StageVariation:
		return KindVariation
	case StageEditing:
		return KindEditing
	default:
		return KindBase
	}
}

// Selection points at one artifact in a stage's list. The blob key is
// authoritative; Index is only a cached render position and must never be
// trusted across a list mutation.
type Selection struct {
	Key   string `json:"key"`
	Index int    `json:"index"`
}

// PendingImage is raw model output that has not been written through the
// blob store yet. It only lives in memory; Save flushes it to storage and
// replaces it with a blob reference before the record itself is persisted.
type PendingImage struct {
	Kind ArtifactKind
	Data []byte
}

// Record is the durable state of one user's creative session. Unknown or
// missing fields default on deserialization so that partially populated
// legacy records keep loading.
type Record struct {
	Step Stage `json:"step,omitempty"`

	BaseImages      []string `json:"base_images,omitempty"`
	VariationImages []string `json:"variation_images,omitempty"`
	EditingImages   []string `json:"editing_images,omitempty"`

	SelectedBase      *Selection `json:"selected_base_image,omitempty"`
	SelectedVariation *Selection `json:"selected_variation_image,omitempty"`
	SelectedEditing   *Selection `json:"selected_editing_image,omitempty"`

	// EditingImage is the current working image while in the editing stage.
	EditingImage string `json:"editing_image,omitempty"`

	// ChatHistory is only populated for the chat editor family.
	ChatHistory []ChatEntry `json:"chat_history,omitempty"`

	CreatedAt time.Time `json:"timestamp"`

	Pending []PendingImage `json:"-"`
}

// NewRecord builds a fresh record for the given family with empty artifact
// lists and the creation timestamp set.
func NewRecord(family Family) *Record {
	rec := &Record{CreatedAt: time.Now().UTC()}
	if family.HasPipeline() {
		rec.Step = StageBase
		rec.BaseImages = []string{}
		rec.VariationImages = []string{}
		rec.EditingImages = []string{}
	} else {
		rec.ChatHistory = []ChatEntry{}
	}
	return rec
}

// Images returns the artifact list for the given kind.
func (r *Record) Images(kind ArtifactKind) []string {
	return *r.imagesFor(kind)
}

func (r *Record) imagesFor(kind ArtifactKind) *[]string {
	switch kind {
	case KindVariation:
		return &r.VariationImages
	case KindEditing:
		return &r.EditingImages
	default:
		return &r.BaseImages
	}
}

// Selection returns a pointer to the selection slot for the given kind.
func (r *Record) Selection(kind ArtifactKind) **Selection {
	switch kind {
	case KindVariation:
		return &r.SelectedVariation
	case KindEditing:
		return &r.SelectedEditing
	default:
		return &r.SelectedBase
	}
}

// Contains reports whether the kind's list already holds the blob key.
func (r *Record) Contains(kind ArtifactKind, key string) bool {
	for _, existing := range r.Images(kind) {
		if existing == key {
			return true
		}
	}
	return false
}

// AppendImage adds a blob reference to the kind's list, skipping duplicates
// so that re-saving identical content never doubles an entry.
func (r *Record) AppendImage(kind ArtifactKind, key string) {
	if r.Contains(kind, key) {
		return
	}
	list := r.imagesFor(kind)
	*list = append(*list, key)
}

// RemoveImage removes the first occurrence of key from the kind's list and
// reports whether anything was removed.
func (r *Record) RemoveImage(kind ArtifactKind, key string) bool {
	list := r.imagesFor(kind)
	for i, existing := range *list {
		if existing == key {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// AttachImage queues raw image bytes for persistence on the next Save.
func (r *Record) AttachImage(kind ArtifactKind, data []byte) {
	r.Pending = append(r.Pending, PendingImage{Kind: kind, Data: data})
}
