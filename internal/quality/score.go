// Package quality scores and validates canonical profile records.
package quality

import (
	"strings"
	"unicode/utf8"

	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
)

// MaxScore is the upper bound of Score.
const MaxScore = 100

// Score computes the additive 0..100 quality score of p as returned by provider.
// Critical fields contribute up to 60, important fields 25, enhancements 15.
func Score(p domain.Profile, provider string) int {
	score := criticalScore(p) + importantScore(p) + enhancedScore(p) + providerBonus(p, provider)
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func criticalScore(p domain.Profile) int {
	score := 0
	if p.Headline != "" {
		score += 15
		if wordCount(p.Headline) >= 3 {
			score += 2
		}
	}

	if p.About != "" {
		score += 10
		n := utf8.RuneCountInString(p.About)
		if n > 100 {
			score += 3
		}
		if n > 300 {
			score += 2
		}
	}

	if n := len(p.WorkExperience); n > 0 {
		score += 12
		if n >= 2 {
			score += 3
		}
		if n >= 3 {
			score += 3
		}
		if n >= 5 {
			score += 2
		}
		score += min(3, detailedPositions(p.WorkExperience))
	}
	return score
}

func importantScore(p domain.Profile) int {
	score := 0
	if n := len(p.Education); n > 0 {
		score += 8
		if n >= 2 {
			score += 2
		}
	}

	if n := len(p.Skills); n > 0 {
		score += 5
		if n >= 5 {
			score += 2
		}
		if n >= 10 {
			score += 1
		}
	}

	if p.CurrentLocation != "" {
		score += 4
	}
	if strings.Contains(p.AvatarURL, "http") {
		score += 4
	}
	return score
}

func enhancedScore(p domain.Profile) int {
	score := 0
	if c := p.Contacts; c != nil {
		contacts := 0
		if domain.Value(c.LinkedIn) != "" {
			contacts += 3
		}
		if domain.Value(c.Email) != "" {
			contacts++
		}
		if domain.Value(c.Website) != "" {
			contacts++
		}
		score += min(5, contacts)
	}

	if p.LinkedInUsername != "" || (p.Contacts != nil && domain.Value(p.Contacts.LinkedIn) != "") {
		score += 4
	}

	if len(p.Accomplishments) > 0 {
		acc := 0
		if len(p.Accomplishments[domain.AccomplishmentCertifications]) > 0 {
			acc += 3
		}
		if len(p.Accomplishments[domain.AccomplishmentHonors]) > 0 {
			acc += 2
		}
		if len(p.Accomplishments) >= 3 {
			acc++
		}
		score += min(6, acc)
	}

	if strings.Contains(p.BackgroundImage, "http") {
		score += 3
	}
	if p.APIScraped {
		score += 2
	}
	if m := p.Metadata; m != nil {
		if m.ProcessedVia != "" {
			score++
		}
		if m.DataValidationPassed {
			score++
		}
		if m.ProcessedAt != "" || m.ExtractedAt != "" {
			score++
		}
	}
	return score
}

func providerBonus(p domain.Profile, provider string) int {
	switch strings.ToLower(provider) {
	case config.ProviderRapidAPI:
		if len(p.WorkExperience) > 0 && p.WorkExperience[0].CompanyURL != "" {
			return 1
		}
	case config.ProviderScrapfly:
		if utf8.RuneCountInString(p.About) > 200 {
			return 1
		}
	case config.ProviderProxycurl:
		if p.Contacts.Populated() > 2 {
			return 1
		}
	}
	return 0
}

// detailedPositions counts, among the first three positions, those with a title,
// a company and either a description or a duration.
func detailedPositions(items []domain.WorkExperience) int {
	n := 0
	for i, w := range items {
		if i >= 3 {
			break
		}
		if w.Title != "" && w.CompanyName != "" && (w.Description != "" || w.Duration != "") {
			n++
		}
	}
	return n
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
