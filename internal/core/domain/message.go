package domain

// Role identifies the author of a chat message.
type Role string

const (
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleSystem Role = "system"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleHuman, RoleAI, RoleSystem:
		return true
	}
	return false
}

// Message is a single chat message: text plus optional inline media.
type Message struct {
	Role    Role           `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent holds the text body and an ordered list of media items.
type MessageContent struct {
	Text  string      `json:"text"`
	Media []MediaItem `json:"media,omitempty"`
}

// NewTextMessage creates a message with text-only content.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Content: MessageContent{Text: text}}
}

// NewMessage creates a message with text and media content.
func NewMessage(role Role, text string, media []MediaItem) Message {
	return Message{Role: role, Content: MessageContent{Text: text, Media: media}}
}

// Clone returns a deep copy of the message. Media payloads are copied
// so mutations of the clone never reach the original.
func (m Message) Clone() Message {
	out := Message{Role: m.Role, Content: MessageContent{Text: m.Content.Text}}
	if len(m.Content.Media) > 0 {
		out.Content.Media = make([]MediaItem, len(m.Content.Media))
		for i, item := range m.Content.Media {
			out.Content.Media[i] = item.Clone()
		}
	}
	return out
}
