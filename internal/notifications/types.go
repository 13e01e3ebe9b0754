// Package notifications records operator-facing events for Parafeur.
// The core only ever appends; read and dismiss state belongs to the
// notification center UI.
package notifications

import (
	"time"
)

// NotificationType represents the kind of notification
type NotificationType string

const (
	NotifySignature NotificationType = "signature"
	NotifySystem    NotificationType = "system"
)

// Notification represents one operator notification
type Notification struct {
	ID           string           `json:"id"`
	Type         NotificationType `json:"type"`
	Message      string           `json:"message"`
	DocumentID   string           `json:"document_id,omitempty"`
	DocumentKind string           `json:"document_kind,omitempty"` // "devis" or "contrat"
	Read         bool             `json:"read"`
	Dismissed    bool             `json:"dismissed"`
	CreatedAt    time.Time        `json:"created_at"`
	ReadAt       *time.Time       `json:"read_at,omitempty"`
	DismissedAt  *time.Time       `json:"dismissed_at,omitempty"`
}

// NotificationFilter for querying notifications
type NotificationFilter struct {
	Type       NotificationType
	DocumentID string
	Read       *bool
	Dismissed  *bool
	Limit      int
	Offset     int
}

// CreateNotificationRequest for creating new notifications
type CreateNotificationRequest struct {
	Type         NotificationType `json:"type"`
	Message      string           `json:"message"`
	DocumentID   string           `json:"document_id,omitempty"`
	DocumentKind string           `json:"document_kind,omitempty"`
}

// WebSocketMessage for real-time notification delivery
type WebSocketMessage struct {
	Type    string       `json:"type"`
	Payload Notification `json:"payload"`
}
