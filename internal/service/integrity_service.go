package service

import (
	"encoding/json"
	"fmt"

	"github.com/lshigami/examgate/internal/model"
)

// Per-event base penalties. Recovery signals (visible/focus/entered) weigh
// zero: they exist so the event stream reads as paired intervals.
var eventTypeWeights = map[model.IntegrityEventType]float64{
	model.EventTabHidden:         3,
	model.EventTabVisible:        0,
	model.EventWindowBlur:        2,
	model.EventWindowFocus:       0,
	model.EventFullscreenExited:  10,
	model.EventFullscreenEntered: 0,
	model.EventTimerDrift:        4,
	model.EventSuspiciousClient:  8,
}

var severityWeights = map[model.EventSeverity]float64{
	model.SeverityInfo:     0,
	model.SeverityWarning:  2,
	model.SeverityCritical: 6,
}

const (
	driftHighTierSeconds   = 10.0
	driftMediumTierSeconds = 5.0
	driftHighTierPenalty   = 8
	driftMediumTierPenalty = 4

	flagScoreThreshold      = 75.0
	flagTabHiddenThreshold  = 3
	flagTimerDriftThreshold = 2
)

type IntegrityOutcome struct {
	Score        float64
	Flagged      bool
	ReviewStatus string
	Reasons      []string
}

// IntegrityService maps a sequence of client-reported behavioral events to a
// 0-100 trust score. Pure function, no I/O.
type IntegrityService interface {
	Evaluate(events []model.IntegrityEvent) IntegrityOutcome
}

type integrityService struct{}

func NewIntegrityService() IntegrityService {
	return &integrityService{}
}

func (s *integrityService) Evaluate(events []model.IntegrityEvent) IntegrityOutcome {
	var penalty float64
	typeCounts := make(map[model.IntegrityEventType]int)
	criticalCount := 0

	for _, ev := range events {
		typeCounts[ev.Type]++
		if ev.Severity == model.SeverityCritical {
			criticalCount++
		}

		penalty += eventTypeWeights[ev.Type]
		penalty += severityWeights[ev.Severity]

		if ev.Type == model.EventTimerDrift {
			drift := driftSeconds(ev.Metadata)
			switch {
			case drift >= driftHighTierSeconds:
				penalty += driftHighTierPenalty
			case drift >= driftMediumTierSeconds:
				penalty += driftMediumTierPenalty
			}
		}
	}

	score := round2(clamp(100-penalty, 0, 100))

	// The flag and the display reasons share thresholds but are computed
	// separately on purpose; keep them independent.
	flagged := score < flagScoreThreshold ||
		criticalCount > 0 ||
		typeCounts[model.EventFullscreenExited] >= 1 ||
		typeCounts[model.EventTabHidden] >= flagTabHiddenThreshold ||
		typeCounts[model.EventTimerDrift] >= flagTimerDriftThreshold

	var reasons []string
	if score < flagScoreThreshold {
		reasons = append(reasons, fmt.Sprintf("integrity score %.2f is below %.0f", score, flagScoreThreshold))
	}
	if criticalCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d critical event(s) reported", criticalCount))
	}
	if n := typeCounts[model.EventFullscreenExited]; n >= 1 {
		reasons = append(reasons, fmt.Sprintf("fullscreen exited %d time(s)", n))
	}
	if n := typeCounts[model.EventTabHidden]; n >= flagTabHiddenThreshold {
		reasons = append(reasons, fmt.Sprintf("tab hidden %d times", n))
	}
	if n := typeCounts[model.EventTimerDrift]; n >= flagTimerDriftThreshold {
		reasons = append(reasons, fmt.Sprintf("timer drift reported %d times", n))
	}

	reviewStatus := "clear"
	if flagged {
		reviewStatus = "needs_review"
	}

	return IntegrityOutcome{
		Score:        score,
		Flagged:      flagged,
		ReviewStatus: reviewStatus,
		Reasons:      reasons,
	}
}

// driftSeconds reads the client-reported drift magnitude from the event
// metadata: "drift_ms" wins over "drift_seconds".
func driftSeconds(metadata []byte) float64 {
	if len(metadata) == 0 {
		return 0
	}
	var m map[string]interface{}
	if err := json.Unmarshal(metadata, &m); err != nil {
		return 0
	}
	if ms, ok := m["drift_ms"].(float64); ok {
		return ms / 1000
	}
	if sec, ok := m["drift_seconds"].(float64); ok {
		return sec
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
