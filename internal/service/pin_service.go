package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/config"
	"github.com/lshigami/examgate/internal/apperr"
	"github.com/lshigami/examgate/internal/model"
	"github.com/lshigami/examgate/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	reasonRateLimited      = "rate_limited"
	reasonPinNotFound      = "pin_not_found"
	reasonPinExpired       = "pin_expired"
	reasonUsageLimit       = "pin_usage_limit_reached"
	reasonAllowListMissing = "allow_list_identifier_required"
	reasonAllowListMiss    = "allow_list_miss"
)

// ClientInfo carries the request-scoped fields every validation try is
// audited with.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type PinValidationResult struct {
	Pin           *model.ExamPin
	UsesRemaining int
}

// PinService verifies presented PINs, throttles brute-force guessing per
// client IP and atomically spends PIN uses. Raw secrets never reach storage
// or logs; the audit rows carry a sha256 of the presented value only.
type PinService interface {
	// Validate checks the PIN and consumes one use.
	Validate(rawPin string, examID uuid.UUID, client ClientInfo, candidateIdentifier string) (*PinValidationResult, error)
	// VerifyForResume checks the PIN without consuming a use and without
	// status checks, so candidates can resume on a fully-consumed PIN.
	VerifyForResume(rawPin string, examID uuid.UUID, client ClientInfo) (*model.ExamPin, error)
}

type pinService struct {
	pinRepo repository.PinRepository
	cfg     *config.Config
}

func NewPinService(pinRepo repository.PinRepository, cfg *config.Config) PinService {
	return &pinService{pinRepo: pinRepo, cfg: cfg}
}

func (s *pinService) Validate(rawPin string, examID uuid.UUID, client ClientInfo, candidateIdentifier string) (*PinValidationResult, error) {
	if limited, err := s.rateLimited(client.IP); err != nil {
		return nil, err
	} else if limited {
		// Recording the short-circuited try keeps the window self-reinforcing.
		s.audit(examID, nil, rawPin, client, candidateIdentifier, false, reasonRateLimited)
		return nil, apperr.New(apperr.CodeRateLimited, "too many failed PIN attempts, try again later")
	}

	pin, err := s.lookup(rawPin, examID)
	if err != nil {
		return nil, err
	}
	if pin == nil {
		s.audit(examID, nil, rawPin, client, candidateIdentifier, false, reasonPinNotFound)
		return nil, invalidPin(reasonPinNotFound)
	}

	// Exhaustion is checked before status: consuming the last use flips the
	// row to "used", and the caller should hear about the limit, not the flip.
	if pin.UsesConsumed >= pin.MaxUses {
		s.audit(examID, &pin.ID, rawPin, client, candidateIdentifier, false, reasonUsageLimit)
		return nil, invalidPin(reasonUsageLimit)
	}
	if pin.Status != model.PinActive {
		reason := "pin_status_" + string(pin.Status)
		s.audit(examID, &pin.ID, rawPin, client, candidateIdentifier, false, reason)
		return nil, invalidPin(reason)
	}
	if pin.ExpiresAt != nil && time.Now().After(*pin.ExpiresAt) {
		s.audit(examID, &pin.ID, rawPin, client, candidateIdentifier, false, reasonPinExpired)
		return nil, invalidPin(reasonPinExpired)
	}

	if pin.RequiresAllowList {
		identifier := normalizeIdentity(candidateIdentifier)
		if identifier == "" {
			s.audit(examID, &pin.ID, rawPin, client, candidateIdentifier, false, reasonAllowListMissing)
			return nil, invalidPin(reasonAllowListMissing)
		}
		allowed, err := s.pinRepo.HasAllowListEntry(pin.ID, identifier)
		if err != nil {
			return nil, err
		}
		if !allowed {
			s.audit(examID, &pin.ID, rawPin, client, candidateIdentifier, false, reasonAllowListMiss)
			return nil, invalidPin(reasonAllowListMiss)
		}
	}

	// The single conditional update below is the only concurrency guard for
	// consumption; a racing duplicate observes zero rows affected here.
	consumed, err := s.pinRepo.ConsumeUse(pin.ID, pin.InstitutionID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		s.audit(examID, &pin.ID, rawPin, client, candidateIdentifier, false, reasonUsageLimit)
		return nil, invalidPin(reasonUsageLimit)
	}

	s.audit(examID, &pin.ID, rawPin, client, candidateIdentifier, true, "")

	fresh, err := s.pinRepo.FindByID(pin.ID)
	if err != nil {
		return nil, err
	}
	return &PinValidationResult{
		Pin:           fresh,
		UsesRemaining: fresh.MaxUses - fresh.UsesConsumed,
	}, nil
}

func (s *pinService) VerifyForResume(rawPin string, examID uuid.UUID, client ClientInfo) (*model.ExamPin, error) {
	if limited, err := s.rateLimited(client.IP); err != nil {
		return nil, err
	} else if limited {
		s.audit(examID, nil, rawPin, client, "", false, reasonRateLimited)
		return nil, apperr.New(apperr.CodeRateLimited, "too many failed PIN attempts, try again later")
	}

	pin, err := s.lookup(rawPin, examID)
	if err != nil {
		return nil, err
	}
	if pin == nil {
		s.audit(examID, nil, rawPin, client, "", false, reasonPinNotFound)
		return nil, invalidPin(reasonPinNotFound)
	}

	s.audit(examID, &pin.ID, rawPin, client, "", true, "resume")
	return pin, nil
}

func (s *pinService) rateLimited(clientIP string) (bool, error) {
	since := time.Now().Add(-s.cfg.Security.PinWindow)
	failures, err := s.pinRepo.CountRecentFailures(clientIP, since)
	if err != nil {
		return false, err
	}
	return failures >= int64(s.cfg.Security.PinMaxFailures), nil
}

// lookup fetches the exam's PINs and bcrypt-compares each; nil means no
// match. Raw secrets are never compared directly or indexed.
func (s *pinService) lookup(rawPin string, examID uuid.UUID) (*model.ExamPin, error) {
	pins, err := s.pinRepo.FindByExam(examID)
	if err != nil {
		return nil, err
	}
	for i := range pins {
		if bcrypt.CompareHashAndPassword([]byte(pins[i].PinHash), []byte(rawPin)) == nil {
			return &pins[i], nil
		}
	}
	return nil, nil
}

func (s *pinService) audit(examID uuid.UUID, pinID *uuid.UUID, rawPin string, client ClientInfo, identifier string, success bool, reason string) {
	attempt := &model.PinValidationAttempt{
		ExamID:              examID,
		PinID:               pinID,
		EnteredPinHash:      auditHash(rawPin),
		ClientIP:            client.IP,
		UserAgent:           client.UserAgent,
		CandidateIdentifier: identifier,
		Success:             success,
		Reason:              reason,
	}
	if err := s.pinRepo.RecordValidationAttempt(attempt); err != nil {
		// The audit row matters for rate limiting and forensics; a write
		// failure is loud but does not block the candidate.
		log.Error().Err(err).Str("client_ip", client.IP).Msg("Failed to record PIN validation attempt")
	}
	if !success {
		log.Warn().
			Str("exam_id", examID.String()).
			Str("client_ip", client.IP).
			Str("reason", reason).
			Msg("PIN validation failed")
	}
}

func invalidPin(reason string) error {
	return apperr.New(apperr.CodeInvalidPin, "invalid PIN").WithDetail("reason", reason)
}

func auditHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// normalizeIdentity lowercases and whitespace-normalizes a candidate-supplied
// name or identifier so matching is tolerant of casing and spacing.
func normalizeIdentity(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
