// internal/realtime/connection/url.go
package connection

import "net/url"

// NotificationsKey is the logical key of the global notification channel.
const NotificationsKey = "notifications"

// ChatKey returns the logical channel key for a room.
func ChatKey(roomID string) string {
	return "chat:" + roomID
}

// NotificationsURL builds the global notification channel URL. wsBase is the
// websocket base derived from the REST base URL (https -> wss).
func NotificationsURL(wsBase string) func(token string) string {
	return func(token string) string {
		return wsBase + "/ws/notifications?token=" + url.QueryEscape(token)
	}
}

// ChatRoomURL builds a per-room chat channel URL.
func ChatRoomURL(wsBase, roomID string) func(token string) string {
	return func(token string) string {
		return wsBase + "/ws/chat/" + url.PathEscape(roomID) + "?token=" + url.QueryEscape(token)
	}
}
