package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Webhook outcomes recorded on WebhookEvent.
const (
	WebhookOutcomeCredited = "credited"
	WebhookOutcomeSkipped  = "skipped"
)

// WebhookEvent records a processed payment provider event. The provider
// event id is the primary key, which makes redelivery a no-op.
type WebhookEvent struct {
	ID          string         `gorm:"size:255;primaryKey" json:"id"`
	Type        string         `gorm:"size:100;not null" json:"type"`
	UserID      *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Outcome     string         `gorm:"size:20;not null" json:"outcome"`
	Payload     datatypes.JSON `json:"payload,omitempty"`
	ProcessedAt time.Time      `gorm:"not null" json:"processed_at"`
}
