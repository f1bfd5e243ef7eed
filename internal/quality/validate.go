package quality

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
)

// Canonical field names understood by Validate.
const (
	FieldHeadline       = "linkedinHeadline"
	FieldAbout          = "about"
	FieldLocation       = "currentLocation"
	FieldWorkExperience = "workExperience"
	FieldEducation      = "education"
	FieldSkills         = "skills"
	FieldAvatar         = "avatarURL"
	FieldContacts       = "contacts"
)

// MinTotalFieldScore is the floor on the summed per-field scores.
const MinTotalFieldScore = 5

// Rules configures Validate and the advisory checks.
type Rules struct {
	RequiredFields []string
	MinPopulated   int

	MinimumHeadlineWords   int
	MinimumAboutLength     int
	MinimumSkillsCount     int
	RequireWorkOrEducation bool
}

// RulesFromConfig reads validation settings from cfg.
func RulesFromConfig(cfg *config.Config) Rules {
	if cfg == nil {
		return DefaultRules()
	}
	return Rules{
		RequiredFields:         cfg.RequiredFields,
		MinPopulated:           cfg.MinPopulatedFields,
		MinimumHeadlineWords:   cfg.MinimumHeadlineWords,
		MinimumAboutLength:     cfg.MinimumAboutLength,
		MinimumSkillsCount:     cfg.MinimumSkillsCount,
		RequireWorkOrEducation: cfg.RequireWorkOrEducation,
	}
}

// DefaultRules mirrors the configuration defaults.
func DefaultRules() Rules {
	return Rules{
		RequiredFields: []string{
			FieldHeadline, FieldAbout, FieldWorkExperience, FieldEducation, FieldSkills, FieldLocation,
		},
		MinPopulated:           4,
		MinimumHeadlineWords:   3,
		MinimumAboutLength:     50,
		MinimumSkillsCount:     3,
		RequireWorkOrEducation: true,
	}
}

// Report is the outcome of Validate.
type Report struct {
	Valid           bool           `json:"valid"`
	Populated       []string       `json:"populated"`
	Missing         []string       `json:"missing"`
	FieldScores     map[string]int `json:"field_scores"`
	CriticalGroups  int            `json:"critical_groups"`
	TotalFieldScore int            `json:"total_field_score"`
	MinPopulated    int            `json:"min_populated"`
}

// String renders the report for log lines and error details.
func (r Report) String() string {
	return fmt.Sprintf("populated %d/%d (min %d), critical groups %d/2, field score %d",
		len(r.Populated), len(r.Populated)+len(r.Missing), r.MinPopulated, r.CriticalGroups, r.TotalFieldScore)
}

// Validate checks p against rules. A record is valid when it has at least
// MinPopulated of the required fields, both critical groups (headline or about,
// work or education), and a summed field score of at least MinTotalFieldScore.
func Validate(p domain.Profile, rules Rules) Report {
	fields := rules.RequiredFields
	if len(fields) == 0 {
		fields = DefaultRules().RequiredFields
	}

	r := Report{FieldScores: map[string]int{}, MinPopulated: rules.MinPopulated}
	for _, field := range fields {
		score, ok := fieldScore(p, field)
		if !ok {
			r.Missing = append(r.Missing, field)
			continue
		}
		r.Populated = append(r.Populated, field)
		r.FieldScores[field] = score
		r.TotalFieldScore += score
	}

	if p.Headline != "" || p.About != "" {
		r.CriticalGroups++
	}
	if len(p.WorkExperience) > 0 || len(p.Education) > 0 {
		r.CriticalGroups++
	}

	r.Valid = len(r.Populated) >= rules.MinPopulated &&
		r.CriticalGroups >= 2 &&
		r.TotalFieldScore >= MinTotalFieldScore
	return r
}

// fieldScore reports whether field is populated on p and its weight.
func fieldScore(p domain.Profile, field string) (int, bool) {
	switch field {
	case FieldHeadline:
		if strings.TrimSpace(p.Headline) == "" {
			return 0, false
		}
		return wordCount(p.Headline), true

	case FieldAbout:
		about := strings.TrimSpace(p.About)
		if about == "" {
			return 0, false
		}
		return min(10, utf8.RuneCountInString(about)/20), true

	case FieldLocation:
		if strings.TrimSpace(p.CurrentLocation) == "" {
			return 0, false
		}
		if strings.Contains(p.CurrentLocation, ",") {
			return 2, true
		}
		return 1, true

	case FieldWorkExperience:
		if len(p.WorkExperience) == 0 {
			return 0, false
		}
		// half points accumulate, then truncate once
		detailed := 0
		for i, w := range p.WorkExperience {
			if i >= 3 {
				break
			}
			if w.Title != "" && w.CompanyName != "" {
				detailed += 2
				if w.Description != "" || w.Duration != "" {
					detailed++
				}
			}
		}
		return min(5, len(p.WorkExperience)) + detailed/2, true

	case FieldEducation:
		if len(p.Education) == 0 {
			return 0, false
		}
		score := min(3, len(p.Education))
		for i, e := range p.Education {
			if i >= 2 {
				break
			}
			if e.School != "" && e.Degree != "" {
				score++
			}
		}
		return score, true

	case FieldSkills:
		switch n := len(p.Skills); {
		case n >= 10:
			return 5, true
		case n >= 5:
			return 3, true
		case n > 0:
			return 1, true
		}
		return 0, false

	case FieldAvatar:
		if strings.Contains(p.AvatarURL, "http") {
			return 1, true
		}
		return 0, false

	case FieldContacts:
		if n := p.Contacts.Populated(); n > 0 {
			return n, true
		}
		return 0, false

	default:
		if populatedInDocument(p, field) {
			return 1, true
		}
		return 0, false
	}
}

// populatedInDocument checks a field outside the known set through the rendered document.
func populatedInDocument(p domain.Profile, field string) bool {
	doc, err := p.Document()
	if err != nil {
		return false
	}
	return nonBlank(doc[field])
}

func nonBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// Advisories returns human-readable findings for the MINIMUM_* settings. They
// never change validity.
func Advisories(p domain.Profile, rules Rules) []string {
	var out []string
	if p.Headline != "" && rules.MinimumHeadlineWords > 0 && wordCount(p.Headline) < rules.MinimumHeadlineWords {
		out = append(out, fmt.Sprintf("headline has %d words, expected at least %d", wordCount(p.Headline), rules.MinimumHeadlineWords))
	}
	if n := utf8.RuneCountInString(p.About); p.About != "" && n < rules.MinimumAboutLength {
		out = append(out, fmt.Sprintf("about has %d characters, expected at least %d", n, rules.MinimumAboutLength))
	}
	if len(p.Skills) < rules.MinimumSkillsCount {
		out = append(out, fmt.Sprintf("%d skills, expected at least %d", len(p.Skills), rules.MinimumSkillsCount))
	}
	if rules.RequireWorkOrEducation && len(p.WorkExperience) == 0 && len(p.Education) == 0 {
		out = append(out, "neither work experience nor education present")
	}
	return out
}
