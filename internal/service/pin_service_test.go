package service

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/config"
	"github.com/lshigami/examgate/internal/apperr"
	"github.com/lshigami/examgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testSecurityConfig() *config.Config {
	return &config.Config{
		Security: config.Security{
			PinMaxFailures: 10,
			PinWindow:      15 * time.Minute,
		},
	}
}

func newTestPin(t *testing.T, examID uuid.UUID, rawPin string, maxUses int) *model.ExamPin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPin), bcrypt.MinCost)
	require.NoError(t, err)
	return &model.ExamPin{
		ID:            uuid.New(),
		InstitutionID: uuid.New(),
		ExamID:        examID,
		PinHash:       string(hash),
		Status:        model.PinActive,
		MaxUses:       maxUses,
	}
}

func TestPinValidateSuccessConsumesUse(t *testing.T) {
	repo := newFakePinRepo()
	examID := uuid.New()
	pin := newTestPin(t, examID, "482913", 3)
	repo.put(pin)
	svc := NewPinService(repo, testSecurityConfig())

	res, err := svc.Validate("482913", examID, ClientInfo{IP: "10.0.0.1"}, "")
	require.NoError(t, err)
	assert.Equal(t, pin.ID, res.Pin.ID)
	assert.Equal(t, 2, res.UsesRemaining)

	stored, _ := repo.FindByID(pin.ID)
	assert.Equal(t, 1, stored.UsesConsumed)
	assert.Equal(t, model.PinActive, stored.Status)

	require.Len(t, repo.attempts, 1)
	assert.True(t, repo.attempts[0].Success)
	assert.NotEqual(t, "482913", repo.attempts[0].EnteredPinHash)
}

func TestPinValidateWrongPin(t *testing.T) {
	repo := newFakePinRepo()
	examID := uuid.New()
	repo.put(newTestPin(t, examID, "482913", 1))
	svc := NewPinService(repo, testSecurityConfig())

	_, err := svc.Validate("000000", examID, ClientInfo{IP: "10.0.0.1"}, "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidPin, apperr.CodeOf(err))

	require.Len(t, repo.attempts, 1)
	assert.False(t, repo.attempts[0].Success)
	assert.Equal(t, "pin_not_found", repo.attempts[0].Reason)
}

func TestPinValidateRateLimited(t *testing.T) {
	repo := newFakePinRepo()
	examID := uuid.New()
	repo.put(newTestPin(t, examID, "482913", 5))
	svc := NewPinService(repo, testSecurityConfig())

	for i := 0; i < 10; i++ {
		_, err := svc.Validate("wrong", examID, ClientInfo{IP: "10.0.0.9"}, "")
		require.Error(t, err)
	}

	// The eleventh try short-circuits even with the correct PIN, and still
	// lands in the audit log so the window keeps reinforcing itself.
	_, err := svc.Validate("482913", examID, ClientInfo{IP: "10.0.0.9"}, "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeRateLimited, apperr.CodeOf(err))
	assert.Len(t, repo.attempts, 11)
	assert.Equal(t, "rate_limited", repo.attempts[10].Reason)

	// A different client IP is unaffected.
	_, err = svc.Validate("482913", examID, ClientInfo{IP: "10.0.0.10"}, "")
	assert.NoError(t, err)
}

func TestPinValidateExpired(t *testing.T) {
	repo := newFakePinRepo()
	examID := uuid.New()
	pin := newTestPin(t, examID, "482913", 1)
	past := time.Now().Add(-time.Hour)
	pin.ExpiresAt = &past
	repo.put(pin)
	svc := NewPinService(repo, testSecurityConfig())

	_, err := svc.Validate("482913", examID, ClientInfo{IP: "10.0.0.1"}, "")
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidPin, ae.Code)
	assert.Equal(t, "pin_expired", ae.Details["reason"])
}

func TestPinValidateDisabled(t *testing.T) {
	repo := newFakePinRepo()
	examID := uuid.New()
	pin := newTestPin(t, examID, "482913", 1)
	pin.Status = model.PinDisabled
	repo.put(pin)
	svc := NewPinService(repo, testSecurityConfig())

	_, err := svc.Validate("482913", examID, ClientInfo{IP: "10.0.0.1"}, "")
	require.Error(t, err)
	ae, _ := apperr.As(err)
	assert.Equal(t, "pin_status_disabled", ae.Details["reason"])
}

func TestPinValidateAllowList(t *testing.T) {
	repo := newFakePinRepo()
	examID := uuid.New()
	pin := newTestPin(t, examID, "482913", 5)
	pin.RequiresAllowList = true
	repo.put(pin)
	repo.allow(pin.ID, "s12345")
	svc := NewPinService(repo, testSecurityConfig())

	t.Run("missing identifier fails closed", func(t *testing.T) {
		_, err := svc.Validate("482913", examID, ClientInfo{IP: "10.0.0.1"}, "")
		require.Error(t, err)
		ae, _ := apperr.As(err)
		assert.Equal(t, "allow_list_identifier_required", ae.Details["reason"])
	})

	t.Run("identifier not provisioned", func(t *testing.T) {
		_, err := svc.Validate("482913", examID, ClientInfo{IP: "10.0.0.1"}, "s99999")
		require.Error(t, err)
		ae, _ := apperr.As(err)
		assert.Equal(t, "allow_list_miss", ae.Details["reason"])
	})

	t.Run("identifier normalized before lookup", func(t *testing.T) {
		_, err := svc.Validate("482913", examID, ClientInfo{IP: "10.0.0.1"}, "  S12345 ")
		assert.NoError(t, err)
	})
}

func TestPinValidateUsageLimit(t *testing.T) {
	repo := newFakePinRepo()
	examID := uuid.New()
	pin := newTestPin(t, examID, "482913", 3)
	repo.put(pin)
	svc := NewPinService(repo, testSecurityConfig())

	for i := 0; i < 3; i++ {
		_, err := svc.Validate("482913", examID, ClientInfo{IP: "10.0.0.1"}, "")
		require.NoError(t, err)
	}

	stored, _ := repo.FindByID(pin.ID)
	assert.Equal(t, model.PinUsed, stored.Status)
	assert.Equal(t, 3, stored.UsesConsumed)

	_, err := svc.Validate("482913", examID, ClientInfo{IP: "10.0.0.1"}, "")
	require.Error(t, err)
	ae, _ := apperr.As(err)
	assert.Equal(t, apperr.CodeInvalidPin, ae.Code)
	assert.Equal(t, "pin_usage_limit_reached", ae.Details["reason"])

	// Exhaustion is reported ahead of the status the final consumption
	// flipped the row to, whatever that status is.
	flipped := newTestPin(t, examID, "777777", 1)
	flipped.Status = model.PinDisabled
	flipped.UsesConsumed = 1
	repo.put(flipped)
	_, err = svc.Validate("777777", examID, ClientInfo{IP: "10.0.0.2"}, "")
	require.Error(t, err)
	ae, _ = apperr.As(err)
	assert.Equal(t, "pin_usage_limit_reached", ae.Details["reason"])
}

func TestPinValidateConcurrentSingleUse(t *testing.T) {
	repo := newFakePinRepo()
	examID := uuid.New()
	repo.put(newTestPin(t, examID, "482913", 1))
	svc := NewPinService(repo, testSecurityConfig())

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Distinct IPs so the rate limiter stays out of the picture.
			_, err := svc.Validate("482913", examID, ClientInfo{IP: uuid.New().String()}, "")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.Equal(t, apperr.CodeInvalidPin, apperr.CodeOf(err))
		}
	}
	assert.Equal(t, 1, successes)
}

func TestVerifyForResumeDoesNotConsume(t *testing.T) {
	repo := newFakePinRepo()
	examID := uuid.New()
	pin := newTestPin(t, examID, "482913", 1)
	pin.Status = model.PinUsed
	pin.UsesConsumed = 1
	repo.put(pin)
	svc := NewPinService(repo, testSecurityConfig())

	found, err := svc.VerifyForResume("482913", examID, ClientInfo{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, pin.ID, found.ID)

	stored, _ := repo.FindByID(pin.ID)
	assert.Equal(t, 1, stored.UsesConsumed)
}

func TestVerifyForResumeUnknownPin(t *testing.T) {
	repo := newFakePinRepo()
	svc := NewPinService(repo, testSecurityConfig())

	_, err := svc.VerifyForResume("000000", uuid.New(), ClientInfo{IP: "10.0.0.1"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidPin, apperr.CodeOf(err))
}
