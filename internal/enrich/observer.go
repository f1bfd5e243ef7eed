package enrich

import (
	"time"

	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
)

// Observer receives processing events, typically for metrics.
type Observer interface {
	RetryScheduled(reason string, delay time.Duration)
	QualityScored(provider string, score int)
	NodeProcessed(outcome domain.Outcome, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) RetryScheduled(string, time.Duration)        {}
func (nopObserver) QualityScored(string, int)                   {}
func (nopObserver) NodeProcessed(domain.Outcome, time.Duration) {}
