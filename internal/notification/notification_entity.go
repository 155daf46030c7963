package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification is one marketplace event delivered to one recipient. The
// event id plus recipient is unique so a re-consumed event inserts nothing.
type Notification struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventID       string          `gorm:"type:varchar(64);not null;uniqueIndex:uq_notifications_event_recipient"`
	RecipientRole string          `gorm:"type:varchar(20);not null;uniqueIndex:uq_notifications_event_recipient;index:idx_notifications_recipient"`
	RecipientID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_notifications_event_recipient;index:idx_notifications_recipient"`
	EventType     string          `gorm:"type:varchar(64);not null"`
	Title         string          `gorm:"type:varchar(200);not null"`
	Message       string          `gorm:"type:text"`
	Data          json.RawMessage `gorm:"type:jsonb"`
	ReadAt        *time.Time
	CreatedAt     time.Time `gorm:"index:idx_notifications_recipient"`
}
