// pkg/registry/schema.go
package registry

import "github.com/xeipuuv/gojsonschema"

// EventRegistry is the contract catalog for push channel frames: every
// recognized frame kind and, optionally, a JSON schema for its payload.
type EventRegistry struct {
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Events      []EventContract `json:"events"`

	compiled map[string]*gojsonschema.Schema
}

// EventContract describes one frame kind.
type EventContract struct {
	Kind          string                 `json:"kind"`
	DisplayName   string                 `json:"displayName"`
	Description   string                 `json:"description"`
	PayloadSchema map[string]interface{} `json:"payloadSchema"`
}

// Default returns the built-in contract catalog for the platform's frame
// surface. Used when no registry file is configured.
func Default() *EventRegistry {
	reg := &EventRegistry{
		Version: "1",
		Events: []EventContract{
			{
				Kind:        "ping",
				DisplayName: "Keepalive",
				Description: "Bidirectional keepalive, carries no payload",
			},
			{
				Kind:        "notification",
				DisplayName: "Notification",
				Description: "Global in-app notification",
				PayloadSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"notification"},
					"properties": map[string]interface{}{
						"notification": map[string]interface{}{
							"type":     "object",
							"required": []interface{}{"title", "message"},
						},
					},
				},
			},
			{
				Kind:        "chat_message",
				DisplayName: "Chat message",
				Description: "Room-scoped chat message broadcast, including send echoes",
				PayloadSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"message_id", "room_id"},
					"properties": map[string]interface{}{
						"message_id": map[string]interface{}{"type": "string"},
						"room_id":    map[string]interface{}{"type": "string"},
						"author_id":  map[string]interface{}{"type": "string"},
						"content":    map[string]interface{}{"type": "string"},
					},
				},
			},
		},
	}
	// Compiled from literals above, cannot fail.
	_ = reg.compile()
	return reg
}
