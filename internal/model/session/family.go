package session

// Family identifies one of the supported generation backends. Each family
// owns its own session namespace in durable storage.
type Family string

const (
	FamilyStability  Family = "stability"
	FamilyTitan      Family = "titan"
	FamilyChatEditor Family = "chat_image_editor"
)

// ParseFamily validates a family identifier coming from a URL or payload.
func ParseFamily(raw string) (Family, bool) {
	switch Family(raw) {
	case FamilyStability, FamilyTitan, FamilyChatEditor:
		return Family(raw), true
	}
	return "", false
}

// Namespace returns the storage prefix that scopes all of the family's
// sessions, e.g. "stability_sessions".
func (f Family) Namespace() string {
	return string(f) + "_sessions"
}

// HasPipeline reports whether the family runs the three-step image pipeline.
// The chat editor derives its state from chat history instead.
func (f Family) HasPipeline() bool {
	return f != FamilyChatEditor
}
