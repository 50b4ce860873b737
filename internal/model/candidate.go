package model

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is an append-only identity record created at attempt start.
// Dedup is deliberately not done here; the resume matcher resolves identity
// at lookup time using the normalized columns.
type Candidate struct {
	ID                   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	InstitutionID        uuid.UUID `gorm:"type:uuid;not null;index" json:"institution_id"`
	ExamID               uuid.UUID `gorm:"type:uuid;not null;index" json:"exam_id"`
	Name                 string    `gorm:"not null" json:"name"`
	Identifier           string    `json:"identifier"`
	NameNormalized       string    `gorm:"not null;index" json:"-"`
	IdentifierNormalized string    `gorm:"index" json:"-"`
	CreatedAt            time.Time `json:"created_at"`
}
