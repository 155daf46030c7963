package notification

import "encoding/json"

type ListFilter struct {
	UnreadOnly bool `form:"unread"`
	Page       int  `form:"-"`
	Limit      int  `form:"-"`
}

type NotificationResponse struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Title     string          `json:"title"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Read      bool            `json:"read"`
	ReadAt    *string         `json:"read_at,omitempty"`
	CreatedAt string          `json:"created_at"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
