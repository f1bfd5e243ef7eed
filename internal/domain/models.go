package domain

import "encoding/json"

// Domain contains core models shared across packages.

// Node is the persisted record the enricher reads; owned by the persistence service.
type Node struct {
	ID               string `json:"-"`
	LinkedInUsername string `json:"linkedinUsername,omitempty"`
	APIScraped       bool   `json:"apiScraped,omitempty"`
	Scrapped         bool   `json:"scrapped,omitempty"`
	LastAttemptedAt  string `json:"lastAttemptedAt,omitempty"`
	ErrorMessage     string `json:"errorMessage,omitempty"`
}

// AlreadyProcessed reports whether both enrichment flags are set.
func (n Node) AlreadyProcessed() bool { return n.APIScraped && n.Scrapped }

// Profile is the canonical, provider-agnostic profile record.
type Profile struct {
	LinkedInUsername string                      `json:"linkedinUsername,omitempty"`
	Headline         string                      `json:"linkedinHeadline,omitempty"`
	About            string                      `json:"about,omitempty"`
	CurrentLocation  string                      `json:"currentLocation,omitempty"`
	AvatarURL        string                      `json:"avatarURL,omitempty"`
	BackgroundImage  string                      `json:"backgroundImage,omitempty"`
	WorkExperience   []WorkExperience            `json:"workExperience,omitempty"`
	Education        []Education                 `json:"education,omitempty"`
	Skills           []string                    `json:"skills,omitempty"`
	Contacts         *Contacts                   `json:"contacts,omitempty"`
	Accomplishments  map[string][]Accomplishment `json:"accomplishments,omitempty"`
	APIScraped       bool                        `json:"apiScraped,omitempty"`

	*Metadata
}

// WorkExperience is one position entry.
type WorkExperience struct {
	Title                  string `json:"title,omitempty"`
	CompanyName            string `json:"companyName,omitempty"`
	CompanyURL             string `json:"companyUrl,omitempty"`
	CompanyIndustry        string `json:"companyIndustry,omitempty"`
	Location               string `json:"location,omitempty"`
	Duration               string `json:"duration,omitempty"`
	Description            string `json:"description,omitempty"`
	CompanyLogo            string `json:"companyLogo,omitempty"`
	CompanyUsername        string `json:"companyUsername,omitempty"`
	CompanyStaffCountRange string `json:"companyStaffCountRange,omitempty"`
	EmploymentType         string `json:"employmentType,omitempty"`
}

// Education is one education entry.
type Education struct {
	School       string `json:"school,omitempty"`
	SchoolURL    string `json:"schoolUrl,omitempty"`
	SchoolLogo   string `json:"schoolLogo,omitempty"`
	Degree       string `json:"degree,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	Dates        string `json:"dates,omitempty"`
	Description  string `json:"description,omitempty"`
	Activities   string `json:"activities,omitempty"`
	Grade        string `json:"grade,omitempty"`
}

// Contacts keeps the four well-known contact slots; unset slots serialize as null.
type Contacts struct {
	Email    *string `json:"email"`
	LinkedIn *string `json:"linkedin"`
	Twitter  *string `json:"twitter"`
	Website  *string `json:"website"`
}

// Keys is the number of contact slots carried by the record.
func (c *Contacts) Keys() int {
	if c == nil {
		return 0
	}
	return 4
}

// Populated counts non-blank contact values.
func (c *Contacts) Populated() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, v := range []*string{c.Email, c.LinkedIn, c.Twitter, c.Website} {
		if v != nil && *v != "" {
			n++
		}
	}
	return n
}

// Value returns the dereferenced slot or "".
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ptr returns a pointer to s, or nil when s is empty.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Accomplishment keys.
const (
	AccomplishmentCertifications = "Certifications"
	AccomplishmentHonors         = "Honors"
)

// Accomplishment is a certification or honor entry.
type Accomplishment struct {
	CertificateName string `json:"certificateName,omitempty"`
	CertificateFrom string `json:"certificateFrom,omitempty"`
	CertificateLogo string `json:"certificateLogo,omitempty"`
	Title           string `json:"title,omitempty"`
	Issuer          string `json:"issuer,omitempty"`
	IssuerLogo      string `json:"issuerLogo,omitempty"`
	DateRange       string `json:"dateRange,omitempty"`
	Description     string `json:"description,omitempty"`
}

// Metadata is the processing block merged into a transformed profile.
type Metadata struct {
	Platform             string `json:"platform,omitempty"`
	Scrapped             bool   `json:"scrapped"`
	Extracted            bool   `json:"extracted"`
	ProcessedVia         string `json:"processed_via,omitempty"`
	ExtractedAt          string `json:"extractedAt,omitempty"`
	ScrappedAt           string `json:"scrappedAt,omitempty"`
	ProcessedAt          string `json:"processedAt,omitempty"`
	ProcessorVersion     string `json:"processor_version,omitempty"`
	QualityScore         int    `json:"quality_score"`
	DataValidationPassed bool   `json:"data_validation_passed"`
	ExtractionMethod     string `json:"extraction_method,omitempty"`
}

// Clone returns a deep copy so transformations never mutate their input.
func (p Profile) Clone() Profile {
	out := p
	if p.WorkExperience != nil {
		out.WorkExperience = append([]WorkExperience(nil), p.WorkExperience...)
	}
	if p.Education != nil {
		out.Education = append([]Education(nil), p.Education...)
	}
	if p.Skills != nil {
		out.Skills = append([]string(nil), p.Skills...)
	}
	if p.Contacts != nil {
		c := *p.Contacts
		out.Contacts = &c
	}
	if p.Accomplishments != nil {
		out.Accomplishments = make(map[string][]Accomplishment, len(p.Accomplishments))
		for k, v := range p.Accomplishments {
			out.Accomplishments[k] = append([]Accomplishment(nil), v...)
		}
	}
	if p.Metadata != nil {
		m := *p.Metadata
		out.Metadata = &m
	}
	return out
}

// Document renders the profile into the generic map shape sent to persistence.
func (p Profile) Document() (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Outcome is the terminal, externally visible result of processing one node.
type Outcome struct {
	Success          bool   `json:"success"`
	NewlyScraped     bool   `json:"newly_scraped"`
	AlreadyProcessed bool   `json:"already_processed"`
	Error            string `json:"error,omitempty"`
}

// Outcome status labels.
const (
	StatusAlreadyProcessed = "already_processed"
	StatusScraped          = "scraped"
	StatusRemoved          = "removed"
	StatusFailed           = "failed"
)

// OutcomeStatuses lists every label Status can return.
var OutcomeStatuses = []string{StatusScraped, StatusAlreadyProcessed, StatusRemoved, StatusFailed}

// Status labels the outcome.
func (o Outcome) Status() string {
	switch {
	case o.AlreadyProcessed:
		return StatusAlreadyProcessed
	case o.Success && o.NewlyScraped:
		return StatusScraped
	case o.Success:
		return StatusRemoved
	default:
		return StatusFailed
	}
}

// Job identifies one unit of batch work.
type Job struct {
	NodeID string `json:"nodeId"`
	UserID string `json:"userId,omitempty"`
	// MessageID is set for queue-sourced jobs and echoed on failure.
	MessageID string `json:"-"`
}
