// internal/realtime/router/events.go
package router

import (
	"encoding/json"
	"time"
)

// Kind classifies an inbound frame by its type discriminator.
type Kind string

const (
	KindKeepalive    Kind = "ping"
	KindNotification Kind = "notification"
	KindChatMessage  Kind = "chat_message"
)

// envelope is the wire shape shared by all frames. Payload fields for the
// known kinds are inlined the way the server emits them.
type envelope struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification,omitempty"`

	// chat_message fields
	MessageID string `json:"message_id,omitempty"`
	RoomID    string `json:"room_id,omitempty"`
	AuthorID  string `json:"author_id,omitempty"`
	Content   string `json:"content,omitempty"`
	SentAt    string `json:"sent_at,omitempty"`
}

// Notification is a decoded global notification event.
type Notification struct {
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Severity string          `json:"severity,omitempty"`
	Extra    json.RawMessage `json:"extra,omitempty"`
}

// ChatMessage is a decoded room-scoped chat message event.
type ChatMessage struct {
	ID       string
	RoomID   string
	AuthorID string
	Content  string
	SentAt   time.Time
}
