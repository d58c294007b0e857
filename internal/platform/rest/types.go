// internal/platform/rest/types.go
package rest

import "time"

// Room is a chat room the authenticated user participates in.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a persisted chat message as returned by the history endpoint.
// The same shape arrives over the push channel as a chat_message frame.
type Message struct {
	ID       string    `json:"message_id"`
	RoomID   string    `json:"room_id"`
	AuthorID string    `json:"author_id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
}

// HistoryPage is one backward page of room history, ordered oldest-first.
type HistoryPage struct {
	Messages []Message `json:"messages"`
}

// NotificationItem is one entry of the notification snapshot.
type NotificationItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is the authoritative notification state. Its unread count
// overwrites any locally accumulated optimistic increments.
type Snapshot struct {
	Total       int                `json:"total"`
	UnreadCount int                `json:"unread_count"`
	Items       []NotificationItem `json:"items"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}
