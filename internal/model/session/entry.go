package session

// EntryType tags one turn of the chat editor's history.
type EntryType string

const (
	EntryUser      EntryType = "user"
	EntryAssistant EntryType = "assistant"
	EntryImage     EntryType = "image"
)

// ChatEntry is one turn of the chat editor conversation. For image entries
// Content holds the blob key; otherwise it holds the message text.
type ChatEntry struct {
	ID      string    `json:"id"`
	Type    EntryType `json:"type"`
	Content string    `json:"content"`
}

// LatestImage returns the most recent image entry in the chat history.
// Its presence decides whether the editor offers generation or editing.
func (r *Record) LatestImage() (string, bool) {
	for i := len(r.ChatHistory) - 1; i >= 0; i-- {
		if r.ChatHistory[i].Type == EntryImage {
			return r.ChatHistory[i].Content, true
		}
	}
	return "", false
}
