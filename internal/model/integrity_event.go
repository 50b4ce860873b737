package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type IntegrityEventType string

const (
	EventTabHidden         IntegrityEventType = "tab_hidden"
	EventTabVisible        IntegrityEventType = "tab_visible"
	EventWindowBlur        IntegrityEventType = "window_blur"
	EventWindowFocus       IntegrityEventType = "window_focus"
	EventFullscreenExited  IntegrityEventType = "fullscreen_exited"
	EventFullscreenEntered IntegrityEventType = "fullscreen_entered"
	EventTimerDrift        IntegrityEventType = "timer_drift"
	EventSuspiciousClient  IntegrityEventType = "suspicious_client_event"
)

// KnownEventTypes is the ingestion allow-list. Unknown types in a batch are
// dropped silently, not errored.
var KnownEventTypes = map[IntegrityEventType]bool{
	EventTabHidden:         true,
	EventTabVisible:        true,
	EventWindowBlur:        true,
	EventWindowFocus:       true,
	EventFullscreenExited:  true,
	EventFullscreenEntered: true,
	EventTimerDrift:        true,
	EventSuspiciousClient:  true,
}

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// IntegrityEvent is an immutable client-reported behavioral signal.
// OccurredAt is the client's claim; CreatedAt is ours.
type IntegrityEvent struct {
	ID         uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	AttemptID  uuid.UUID          `gorm:"type:uuid;not null;index" json:"attempt_id"`
	Type       IntegrityEventType `gorm:"not null" json:"type"`
	Severity   EventSeverity      `gorm:"not null;default:'info'" json:"severity"`
	OccurredAt time.Time          `json:"occurred_at"`
	Metadata   datatypes.JSON     `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}
