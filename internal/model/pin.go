package model

import (
	"time"

	"github.com/google/uuid"
)

type PinStatus string

const (
	PinActive   PinStatus = "active"
	PinUsed     PinStatus = "used"
	PinDisabled PinStatus = "disabled"
)

// ExamPin gates starting or resuming an attempt. Only the bcrypt hash of the
// secret is ever stored; UsesConsumed is advanced exclusively through the
// conditional update in PinRepository.ConsumeUse.
type ExamPin struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	InstitutionID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"institution_id"`
	ExamID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"exam_id"`
	PinHash           string     `gorm:"not null" json:"-"`
	Status            PinStatus  `gorm:"not null;default:'active'" json:"status"`
	MaxUses           int        `gorm:"not null;default:1" json:"max_uses"`
	UsesConsumed      int        `gorm:"not null;default:0" json:"uses_consumed"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	RequiresAllowList bool       `gorm:"not null;default:false" json:"requires_allow_list"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// PinAllowListEntry whitelists one candidate identifier for one PIN.
// Identifiers are stored lowercased and whitespace-trimmed.
type PinAllowListEntry struct {
	ID                  uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	PinID               uuid.UUID `gorm:"type:uuid;not null;index:idx_allow_list_pin_identifier,unique" json:"pin_id"`
	CandidateIdentifier string    `gorm:"not null;index:idx_allow_list_pin_identifier,unique" json:"candidate_identifier"`
	CreatedAt           time.Time `json:"created_at"`
}

// PinValidationAttempt is the append-only audit row behind both rate limiting
// and forensic review. EnteredPinHash is a sha256 of the presented secret;
// the raw secret never reaches storage or logs.
type PinValidationAttempt struct {
	ID                  uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	ExamID              uuid.UUID  `gorm:"type:uuid;not null;index" json:"exam_id"`
	PinID               *uuid.UUID `gorm:"type:uuid;index" json:"pin_id,omitempty"`
	EnteredPinHash      string     `gorm:"not null" json:"-"`
	ClientIP            string     `gorm:"not null;index:idx_pin_attempt_ip_created" json:"client_ip"`
	UserAgent           string     `json:"user_agent"`
	CandidateIdentifier string     `json:"candidate_identifier"`
	Success             bool       `gorm:"not null" json:"success"`
	Reason              string     `json:"reason"`
	CreatedAt           time.Time  `gorm:"index:idx_pin_attempt_ip_created" json:"created_at"`
}
