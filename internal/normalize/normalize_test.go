package normalize

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-profile-enricher/internal/apperr"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/internal/quality"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rapidFixture = `{
  "username": "jdoe",
  "headline": "Staff Engineer at Acme Corp",
  "geo": {"full": "Bengaluru, Karnataka, India"},
  "profilePicture": "https://media.example.com/p.jpg",
  "backgroundImage": [
    {"width": 800, "height": 200, "url": "https://media.example.com/small.jpg"},
    {"width": 1584, "height": 396, "url": "https://media.example.com/large.jpg"},
    {"width": 4000, "height": 4000}
  ],
  "position": [
    {"title": "Staff Engineer", "companyName": "Acme", "companyURL": "https://www.linkedin.com/company/acme/",
     "companyUsername": "acme", "start": {"year": 2021, "month": 3}, "end": {"year": 0, "month": 0}, "description": "Platform"},
    {"title": "Senior Engineer", "companyName": "Globex", "start": {"year": 2018, "month": 1}, "end": {"year": 2021, "month": 2}},
    {"title": "Engineer", "companyName": "Initech", "start": {"year": 2016}, "end": {"year": 2017, "month": 12}}
  ],
  "educations": [
    {"schoolName": "IIT", "degree": "BTech", "fieldOfStudy": "CS", "start": {"year": 2012}, "end": {"year": 2016},
     "logo": [{"url": "https://media.example.com/iit.png"}]},
    {"schoolName": "DPS", "degree": "HSC"}
  ],
  "skills": [
    {"name": "Go"}, {"name": "Kubernetes"}, {"name": "AWS"}, {"name": "gRPC"}, {"name": "SQL"}, {"name": "Kafka"},
    {"name": "Redis"}, {"name": "Terraform"}, {"name": "Linux"}, {"name": "Python"}, {"name": "Rust"}, {"name": ""}
  ],
  "certifications": [
    {"name": "CKA", "authority": "CNCF", "start": {"year": 2022, "month": 7}, "company": {"logo": "https://media.example.com/cncf.png"}}
  ],
  "honors": [
    {"title": "Hackathon Winner", "issuer": "Acme", "issuedOn": {"year": 2020, "month": 11}}
  ]
}`

func decode(t *testing.T, raw string) providers.Payload {
	t.Helper()
	var out providers.Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func rapidPayload(t *testing.T) providers.Payload {
	p := decode(t, rapidFixture)
	p["summary"] = strings.Repeat("Builds   reliable\tsystems. ", 13)
	return p
}

func fixedNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", FormatDate(nil))
	assert.Equal(t, "", FormatDate(&DateParts{Month: 5}))
	assert.Equal(t, "Feb 2020", FormatDate(&DateParts{Year: 2020, Month: 2}))
	assert.Equal(t, "2020", FormatDate(&DateParts{Year: 2020}))
	assert.Equal(t, "2020", FormatDate(&DateParts{Year: 2020, Month: 13}))
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		name       string
		start, end *DateParts
		want       string
	}{
		{"years and months", &DateParts{Year: 2020, Month: 1}, &DateParts{Year: 2021, Month: 3}, "Jan 2020 - Mar 2021 (1 yr, 3 mos)"},
		{"open ended", &DateParts{Year: 2019, Month: 6}, nil, "Jun 2019 - Present"},
		{"zero end year", &DateParts{Year: 2019, Month: 6}, &DateParts{}, "Jun 2019 - Present"},
		{"same month", &DateParts{Year: 2020, Month: 5}, &DateParts{Year: 2020, Month: 5}, "May 2020 - May 2020 (1 mo)"},
		{"bare years", &DateParts{Year: 2018}, &DateParts{Year: 2020}, "2018 - 2020 (2 yrs, 1 mo)"},
		{"exact years", &DateParts{Year: 2016}, &DateParts{Year: 2017, Month: 12}, "2016 - Dec 2017 (2 yrs)"},
		{"end before start", &DateParts{Year: 2021, Month: 5}, &DateParts{Year: 2020, Month: 1}, "May 2021 - Jan 2020"},
		{"no start", nil, &DateParts{Year: 2020}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatDuration(tc.start, tc.end))
		})
	}
}

func TestNormalizeRapidAPI(t *testing.T) {
	raw := rapidPayload(t)
	p, err := Normalize("RapidAPI", raw)
	require.NoError(t, err)

	assert.Equal(t, "jdoe", p.LinkedInUsername)
	assert.Equal(t, "Bengaluru, Karnataka, India", p.CurrentLocation)
	assert.Equal(t, "https://media.example.com/large.jpg", p.BackgroundImage)
	assert.True(t, p.APIScraped)

	require.Len(t, p.WorkExperience, 3)
	assert.Equal(t, "Mar 2021 - Present", p.WorkExperience[0].Duration)
	assert.Equal(t, "https://www.linkedin.com/company/acme/", p.WorkExperience[0].CompanyURL)
	assert.Equal(t, "Jan 2018 - Feb 2021 (3 yrs, 2 mos)", p.WorkExperience[1].Duration)
	assert.Equal(t, "2016 - Dec 2017 (2 yrs)", p.WorkExperience[2].Duration)

	require.Len(t, p.Education, 2)
	assert.Equal(t, "https://media.example.com/iit.png", p.Education[0].SchoolLogo)
	assert.Equal(t, "2012 - 2016 (4 yrs, 1 mo)", p.Education[0].Dates)
	assert.Empty(t, p.Education[1].Dates)

	assert.Len(t, p.Skills, 11)
	assert.Equal(t, "https://www.linkedin.com/in/jdoe", domain.Value(p.Contacts.LinkedIn))
	assert.Nil(t, p.Contacts.Email)

	certs := p.Accomplishments[domain.AccomplishmentCertifications]
	require.Len(t, certs, 1)
	assert.Equal(t, domain.Accomplishment{
		CertificateName: "CKA",
		CertificateFrom: "CNCF",
		CertificateLogo: "https://media.example.com/cncf.png",
		DateRange:       "Jul 2022",
	}, certs[0])
	honors := p.Accomplishments[domain.AccomplishmentHonors]
	require.Len(t, honors, 1)
	assert.Equal(t, "Nov 2020", honors[0].DateRange)
}

func TestNormalizeScrapfly(t *testing.T) {
	src := providers.ScrapedProfile{
		Username: "asmith",
		Headline: "Data Scientist",
		Summary:  "Numbers.",
		Location: "Austin, Texas",
		Experience: []providers.ScrapedExperience{
			{Title: "Lead", Company: "Acme", CompanyURL: "https://www.linkedin.com/company/acme?trk=public", DateRange: "Jan 2020 - Present", Duration: "4 yrs"},
			{Title: "Analyst", Company: "Globex", DateRange: "2018 - 2019"},
		},
		Education:      []providers.ScrapedEducation{{School: "UT Austin", Degree: "MS", DateRange: "2016 - 2018"}},
		Skills:         []string{"Python", "", "R"},
		Certifications: []providers.ScrapedCertification{{Name: "TensorFlow Developer", Issuer: "Google", IssuedOn: "Mar 2021"}},
	}
	encoded, err := json.Marshal(src)
	require.NoError(t, err)

	p, err := Normalize("scrapfly", decode(t, string(encoded)))
	require.NoError(t, err)

	assert.Equal(t, "asmith", p.LinkedInUsername)
	assert.Equal(t, "Numbers.", p.About)
	require.Len(t, p.WorkExperience, 2)
	assert.Equal(t, "Jan 2020 - Present (4 yrs)", p.WorkExperience[0].Duration)
	assert.Equal(t, "acme", p.WorkExperience[0].CompanyUsername)
	assert.Equal(t, "2018 - 2019", p.WorkExperience[1].Duration)
	assert.Equal(t, "2016 - 2018", p.Education[0].Dates)
	assert.Equal(t, []string{"Python", "R"}, p.Skills)
	assert.Equal(t, "Google", p.Accomplishments[domain.AccomplishmentCertifications][0].CertificateFrom)
	assert.Equal(t, "https://www.linkedin.com/in/asmith", domain.Value(p.Contacts.LinkedIn))
}

func TestNormalizeProxycurl(t *testing.T) {
	raw := decode(t, `{
	  "public_identifier": "mlee",
	  "headline": "Product Manager",
	  "summary": "Ships things.",
	  "city": "Seattle", "state": "Washington", "country_full_name": "United States",
	  "profile_pic_url": "https://media.example.com/m.jpg",
	  "personal_emails": ["mlee@example.com"],
	  "extra": {"twitter_profile_id": "mlee"},
	  "experiences": [
	    {"title": "PM", "company": "Acme", "company_linkedin_profile_url": "https://www.linkedin.com/company/acme",
	     "starts_at": {"day": 1, "month": 4, "year": 2022}, "ends_at": null}
	  ],
	  "education": [
	    {"school": "UW", "degree_name": "MBA", "field_of_study": "Business",
	     "starts_at": {"year": 2019, "month": 9}, "ends_at": {"year": 2021, "month": 6}, "grade": "3.9"}
	  ],
	  "skills": ["Roadmaps", " ", "SQL"],
	  "certifications": [{"name": "PMP", "authority": "PMI", "starts_at": {"year": 2020, "month": 1}}],
	  "accomplishment_honors_awards": [{"title": "Dean's List", "issuer": "UW", "issued_on": {"year": 2020}}]
	}`)

	p, err := Normalize("proxycurl", raw)
	require.NoError(t, err)

	assert.Equal(t, "mlee", p.LinkedInUsername)
	assert.Equal(t, "Seattle, Washington, United States", p.CurrentLocation)
	assert.Equal(t, "mlee@example.com", domain.Value(p.Contacts.Email))
	assert.Equal(t, "https://twitter.com/mlee", domain.Value(p.Contacts.Twitter))
	require.Len(t, p.WorkExperience, 1)
	assert.Equal(t, "Apr 2022 - Present", p.WorkExperience[0].Duration)
	assert.Equal(t, "acme", p.WorkExperience[0].CompanyUsername)
	assert.Equal(t, "Sep 2019 - Jun 2021 (1 yr, 10 mos)", p.Education[0].Dates)
	assert.Equal(t, "3.9", p.Education[0].Grade)
	assert.Equal(t, []string{"Roadmaps", "SQL"}, p.Skills)
	assert.Equal(t, "Jan 2020", p.Accomplishments[domain.AccomplishmentCertifications][0].DateRange)
	assert.Equal(t, "2020", p.Accomplishments[domain.AccomplishmentHonors][0].DateRange)
}

func TestNormalizeUnknownProvider(t *testing.T) {
	_, err := Normalize("linkedin-scraper", providers.Payload{"username": "x"})
	var se *apperr.StructuredError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, apperr.CodeUnknownProvider, se.Code)
}

func TestNormalizeEmptyPayload(t *testing.T) {
	p, err := Normalize("rapidapi", nil)
	require.NoError(t, err)
	assert.True(t, IsEmpty(p))
}

func TestClean(t *testing.T) {
	in := domain.Profile{
		Headline: "  Staff\n Engineer  ",
		About:    "a\t\tb",
		Skills:   []string{" Go ", "", "   "},
	}
	out := Clean(in)
	assert.Equal(t, "Staff Engineer", out.Headline)
	assert.Equal(t, "a b", out.About)
	assert.Equal(t, []string{"Go"}, out.Skills)
	assert.Equal(t, []string{" Go ", "", "   "}, in.Skills, "input untouched")

	assert.Nil(t, Clean(domain.Profile{Skills: []string{" "}}).Skills)
}

func TestTransformStampsMetadata(t *testing.T) {
	raw := rapidPayload(t)
	before := rapidPayload(t)
	tr := NewTransformer(Options{Now: fixedNow}, nil)

	p, err := tr.Transform(raw, "rapidapi")
	require.NoError(t, err)
	assert.Equal(t, before, raw, "raw payload must not be mutated")

	require.NotNil(t, p.Metadata)
	assert.Equal(t, "linkedin", p.Platform)
	assert.True(t, p.Scrapped)
	assert.True(t, p.Extracted)
	assert.True(t, p.APIScraped)
	assert.Equal(t, "rapidapi", p.ProcessedVia)
	assert.Equal(t, "rapidapi_direct", p.ExtractionMethod)
	assert.Equal(t, ProcessorVersion, p.ProcessorVersion)
	assert.Equal(t, "2024-05-01T12:00:00Z", p.ProcessedAt)
	assert.Equal(t, p.ProcessedAt, p.ExtractedAt)
	assert.True(t, p.DataValidationPassed)
	assert.Equal(t, 97, p.QualityScore)
	assert.GreaterOrEqual(t, p.QualityScore, 75)
	assert.NotContains(t, p.About, "\t")
}

func TestTransformSparseRecord(t *testing.T) {
	tr := NewTransformer(Options{Now: fixedNow}, nil)
	p, err := tr.Transform(providers.Payload{"username": "jdoe", "headline": "Engineer"}, "rapidapi")
	require.NoError(t, err)
	assert.False(t, p.DataValidationPassed)

	doc, err := p.Document()
	require.NoError(t, err)
	assert.Equal(t, "jdoe", doc["linkedinUsername"])
	assert.NotContains(t, doc, "backgroundImage")
	assert.NotContains(t, doc, "workExperience")
	assert.NotContains(t, doc, "accomplishments")
	assert.Contains(t, doc, "quality_score")
	assert.Equal(t, "rapidapi", doc["processed_via"])
}

func TestTransformFailures(t *testing.T) {
	tr := NewTransformer(Options{}, nil)

	codeOf := func(err error) apperr.Code {
		var se *apperr.StructuredError
		require.True(t, errors.As(err, &se))
		return se.Code
	}

	_, err := tr.Transform(nil, "rapidapi")
	assert.Equal(t, apperr.CodeTransformFailed, codeOf(err))

	_, err = tr.Transform(providers.Payload{"foo": "bar"}, "rapidapi")
	assert.Equal(t, apperr.CodeTransformFailed, codeOf(err))

	_, err = tr.Transform(providers.Payload{"username": "x"}, "unknown")
	assert.Equal(t, apperr.CodeUnknownProvider, codeOf(err))
}

func TestTransformerDefaults(t *testing.T) {
	tr := NewTransformer(Options{}, nil)
	assert.Equal(t, quality.DefaultRules(), tr.Rules())
}
