package normalize

import (
	"strings"

	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
)

// Clean returns a copy of p with whitespace collapsed in the free-text fields
// and blank skills dropped.
func Clean(p domain.Profile) domain.Profile {
	out := p.Clone()
	out.Headline = collapse(out.Headline)
	out.About = collapse(out.About)
	out.CurrentLocation = collapse(out.CurrentLocation)

	if out.Skills != nil {
		skills := out.Skills[:0]
		for _, s := range out.Skills {
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}
		if len(skills) == 0 {
			skills = nil
		}
		out.Skills = skills
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
