package quality

import (
	"strings"
	"testing"

	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func richProfile() domain.Profile {
	skills := make([]string, 0, 11)
	for i := 0; i < 11; i++ {
		skills = append(skills, "skill-"+string(rune('a'+i)))
	}
	return domain.Profile{
		LinkedInUsername: "jdoe",
		Headline:         "Senior Engineer at Acme Corp",
		About:            strings.Repeat("Builds distributed systems. ", 12),
		CurrentLocation:  "San Francisco, CA",
		AvatarURL:        "https://media.example.com/avatar.jpg",
		BackgroundImage:  "https://media.example.com/bg.jpg",
		WorkExperience: []domain.WorkExperience{
			{Title: "Senior Engineer", CompanyName: "Acme", CompanyURL: "https://www.linkedin.com/company/acme/", Duration: "Jan 2021 - Present"},
			{Title: "Engineer", CompanyName: "Globex", Duration: "Mar 2018 - Dec 2020 (2 yrs, 10 mos)"},
			{Title: "Intern", CompanyName: "Initech", Description: "Internal tools"},
		},
		Education: []domain.Education{
			{School: "State University", Degree: "BSc"},
			{School: "City College", Degree: "AA"},
		},
		Skills:   skills,
		Contacts: &domain.Contacts{LinkedIn: domain.Ptr("https://www.linkedin.com/in/jdoe")},
		Accomplishments: map[string][]domain.Accomplishment{
			domain.AccomplishmentCertifications: {{CertificateName: "CKA"}},
		},
		APIScraped: true,
	}
}

func TestScoreRichProfile(t *testing.T) {
	p := richProfile()
	assert.Equal(t, 95, Score(p, "rapidapi"))
	assert.Equal(t, 95, Score(p, "scrapfly"), "about is longer than 200 chars")
	assert.Equal(t, 94, Score(p, "proxycurl"), "only one contact populated")
}

func TestScoreScrapflyBonus(t *testing.T) {
	p := richProfile()
	p.About = strings.Repeat("x", 150)
	// about drops from 15 to 13 points, no scrapfly bonus below 200 chars
	assert.Equal(t, 92, Score(p, "scrapfly"))
}

func TestScoreMinimal(t *testing.T) {
	assert.Equal(t, 0, Score(domain.Profile{}, "rapidapi"))
	assert.Equal(t, 15, Score(domain.Profile{Headline: "Engineer"}, "rapidapi"))
	assert.Equal(t, 17, Score(domain.Profile{Headline: "Staff Software Engineer"}, "rapidapi"))
}

func TestScoreIsClamped(t *testing.T) {
	p := richProfile()
	p.WorkExperience = append(p.WorkExperience,
		domain.WorkExperience{Title: "a", CompanyName: "b"},
		domain.WorkExperience{Title: "c", CompanyName: "d"},
	)
	p.Contacts.Email = domain.Ptr("jdoe@example.com")
	p.Contacts.Website = domain.Ptr("https://jdoe.dev")
	p.Metadata = &domain.Metadata{ProcessedVia: "rapidapi", DataValidationPassed: true, ProcessedAt: "2024-01-01T00:00:00Z"}

	assert.Equal(t, MaxScore, Score(p, "rapidapi"))
}

func TestScoreContactsCap(t *testing.T) {
	p := domain.Profile{Contacts: &domain.Contacts{
		LinkedIn: domain.Ptr("https://www.linkedin.com/in/x"),
		Email:    domain.Ptr("x@example.com"),
		Website:  domain.Ptr("https://x.dev"),
		Twitter:  domain.Ptr("https://twitter.com/x"),
	}}
	// contacts capped at 5, plus 4 for the linkedin identity, plus 1 proxycurl bonus
	assert.Equal(t, 10, Score(p, "proxycurl"))
}

func TestValidateRichProfile(t *testing.T) {
	r := Validate(richProfile(), DefaultRules())
	require.True(t, r.Valid)
	assert.Empty(t, r.Missing)
	assert.Equal(t, 2, r.CriticalGroups)
	assert.Equal(t, map[string]int{
		FieldHeadline:       5,
		FieldAbout:          10,
		FieldWorkExperience: 7,
		FieldEducation:      4,
		FieldSkills:         5,
		FieldLocation:       2,
	}, r.FieldScores)
	assert.Equal(t, 33, r.TotalFieldScore)
}

func TestValidateRequiresCriticalGroups(t *testing.T) {
	p := domain.Profile{
		CurrentLocation: "Berlin, Germany",
		Skills:          []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
		Education:       []domain.Education{{School: "TU", Degree: "MSc"}},
	}
	rules := DefaultRules()
	rules.MinPopulated = 2

	r := Validate(p, rules)
	assert.False(t, r.Valid, "no headline or about")
	assert.Equal(t, 1, r.CriticalGroups)
	assert.GreaterOrEqual(t, r.TotalFieldScore, MinTotalFieldScore)
	assert.ElementsMatch(t, []string{FieldHeadline, FieldAbout, FieldWorkExperience}, r.Missing)
}

func TestValidateRejectsRecordWithoutCriticalFields(t *testing.T) {
	p := domain.Profile{
		CurrentLocation: "Pune, India",
		AvatarURL:       "https://media.example.com/avatar.jpg",
		Skills:          []string{"go", "sql", "aws", "k8s", "terraform", "kafka", "redis", "grpc", "linux", "bash"},
		Contacts:        &domain.Contacts{LinkedIn: domain.Ptr("https://www.linkedin.com/in/x"), Email: domain.Ptr("x@example.com")},
	}
	rules := Rules{
		RequiredFields: []string{FieldHeadline, FieldAbout, FieldSkills, FieldLocation, FieldAvatar, FieldContacts},
		MinPopulated:   4,
	}

	r := Validate(p, rules)
	assert.False(t, r.Valid)
	assert.Len(t, r.Populated, 4)
	assert.Zero(t, r.CriticalGroups)
	assert.GreaterOrEqual(t, r.TotalFieldScore, MinTotalFieldScore)
	assert.Less(t, Score(p, "rapidapi"), 75)

	a := Assess(p, "rapidapi", rules)
	assert.False(t, a.Valid)
}

func TestAboutLengthCountsCharacters(t *testing.T) {
	p := domain.Profile{
		Headline:       "Engineer",
		About:          strings.Repeat("क", 42),
		WorkExperience: []domain.WorkExperience{{Title: "Engineer"}},
	}
	rules := DefaultRules()
	rules.RequiredFields = []string{FieldHeadline, FieldAbout, FieldWorkExperience}
	rules.MinPopulated = 3

	r := Validate(p, rules)
	assert.Equal(t, 2, r.FieldScores[FieldAbout])
	assert.Equal(t, 4, r.TotalFieldScore)
	assert.False(t, r.Valid)

	assert.Contains(t, Advisories(p, rules), "about has 42 characters, expected at least 50")
	// 150 characters: past the 100 mark only, no scrapfly bonus
	assert.Equal(t, 13, Score(domain.Profile{About: strings.Repeat("क", 150)}, "scrapfly"))
}

func TestValidateRequiresFieldScore(t *testing.T) {
	p := domain.Profile{
		Headline:       "Engineer",
		WorkExperience: []domain.WorkExperience{{Title: "Engineer"}},
	}
	rules := DefaultRules()
	rules.MinPopulated = 2

	r := Validate(p, rules)
	assert.False(t, r.Valid)
	assert.Equal(t, 2, r.CriticalGroups)
	assert.Equal(t, 2, r.TotalFieldScore)
}

func TestValidateRequiresMinPopulated(t *testing.T) {
	p := richProfile()
	p.Skills = nil
	p.CurrentLocation = ""
	p.Education = nil

	rules := DefaultRules()
	rules.MinPopulated = 4
	r := Validate(p, rules)
	assert.False(t, r.Valid)
	assert.Len(t, r.Populated, 3)
}

func TestValidateCustomFields(t *testing.T) {
	p := domain.Profile{
		Headline:        "Principal Engineer at Initech",
		WorkExperience:  []domain.WorkExperience{{Title: "PE", CompanyName: "Initech"}},
		AvatarURL:       "https://media.example.com/a.jpg",
		Contacts:        &domain.Contacts{LinkedIn: domain.Ptr("https://www.linkedin.com/in/p"), Email: domain.Ptr("p@example.com")},
		BackgroundImage: "https://media.example.com/bg.jpg",
	}
	rules := Rules{
		RequiredFields: []string{FieldHeadline, FieldAvatar, FieldContacts, "backgroundImage", "linkedinUsername"},
		MinPopulated:   4,
	}

	r := Validate(p, rules)
	require.True(t, r.Valid)
	assert.Equal(t, 2, r.FieldScores[FieldContacts])
	assert.Equal(t, 1, r.FieldScores["backgroundImage"])
	assert.Equal(t, []string{"linkedinUsername"}, r.Missing)
}

func TestAssessSummary(t *testing.T) {
	a := Assess(richProfile(), "rapidapi", DefaultRules())
	assert.Equal(t, 95, a.Score)
	assert.True(t, a.Valid)
	assert.Contains(t, a.Summary, "Provider: rapidapi, Score: 95/100, Fields: ")
	assert.True(t, strings.HasSuffix(a.Summary, "Critical: 3/3"))
	assert.Equal(t, 3, a.Metrics.CriticalFieldsPresent)
	assert.Positive(t, a.Metrics.TotalFields)
}

func TestAssessReusesStampedScore(t *testing.T) {
	p := richProfile()
	p.Metadata = &domain.Metadata{Platform: "linkedin", QualityScore: 42}
	a := Assess(p, "rapidapi", DefaultRules())
	assert.Equal(t, 42, a.Score)
}

func TestAdvisoriesNeverAffectValidity(t *testing.T) {
	p := richProfile()
	p.Headline = "Engineer"
	p.Skills = p.Skills[:1]

	rules := DefaultRules()
	adv := Advisories(p, rules)
	assert.Len(t, adv, 2)

	a := Assess(p, "rapidapi", rules)
	assert.True(t, a.Valid)
	assert.Equal(t, adv, a.Advisories)
}
