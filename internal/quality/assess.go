package quality

import (
	"fmt"

	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
)

// criticalFields are counted in the assessment summary.
var criticalFields = []string{FieldHeadline, FieldAbout, FieldWorkExperience}

// Metrics describes the rendered document an Assessment was computed on.
type Metrics struct {
	TotalFields           int    `json:"total_fields"`
	PopulatedFields       int    `json:"populated_fields"`
	CriticalFieldsPresent int    `json:"critical_fields_present"`
	Provider              string `json:"provider"`
	QualityScore          int    `json:"quality_score"`
}

// Assessment combines score, validation and a one-line summary.
type Assessment struct {
	Score      int      `json:"quality_score"`
	Valid      bool     `json:"valid"`
	Report     Report   `json:"report"`
	Summary    string   `json:"quality_report"`
	Metrics    Metrics  `json:"quality_metrics"`
	Advisories []string `json:"advisories,omitempty"`
}

// Assess scores and validates p. A score already stamped in p's metadata is reused.
func Assess(p domain.Profile, provider string, rules Rules) Assessment {
	var score int
	if p.Metadata != nil {
		score = p.Metadata.QualityScore
	} else {
		score = Score(p, provider)
	}

	m := Metrics{Provider: provider, QualityScore: score}
	if doc, err := p.Document(); err == nil {
		m.TotalFields = len(doc)
		for _, v := range doc {
			if nonBlank(v) {
				m.PopulatedFields++
			}
		}
	}
	for _, field := range criticalFields {
		if _, ok := fieldScore(p, field); ok {
			m.CriticalFieldsPresent++
		}
	}

	report := Validate(p, rules)
	return Assessment{
		Score:  score,
		Valid:  report.Valid,
		Report: report,
		Summary: fmt.Sprintf("Provider: %s, Score: %d/100, Fields: %d/%d, Critical: %d/%d",
			provider, score, m.PopulatedFields, m.TotalFields, m.CriticalFieldsPresent, len(criticalFields)),
		Metrics:    m,
		Advisories: Advisories(p, rules),
	}
}
