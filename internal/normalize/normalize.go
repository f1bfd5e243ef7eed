// Package normalize maps provider payloads into the canonical profile record.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samvad-hq/samvad-profile-enricher/internal/apperr"
	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/providers"
)

// Mapper converts one provider's raw payload into a canonical profile.
// Mappers are pure: they never mutate raw and never fail on missing fields.
type Mapper func(raw providers.Payload) (domain.Profile, error)

var mappers = map[string]Mapper{
	config.ProviderRapidAPI:  mapRapidAPI,
	config.ProviderScrapfly:  mapScrapfly,
	config.ProviderProxycurl: mapProxycurl,
}

// Providers lists the providers with a registered mapper.
func Providers() []string {
	out := make([]string, 0, len(mappers))
	for name := range mappers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Normalize maps raw from provider into a sparse canonical record. An empty
// payload yields an empty record; an unknown provider yields TRANS_002.
func Normalize(provider string, raw providers.Payload) (domain.Profile, error) {
	key := strings.ToLower(strings.TrimSpace(provider))
	mapper, ok := mappers[key]
	if !ok {
		return domain.Profile{}, apperr.New(apperr.CodeUnknownProvider,
			fmt.Sprintf("Unknown provider for transformation: %s", provider),
			apperr.Context{Provider: provider})
	}
	if len(raw) == 0 {
		return domain.Profile{}, nil
	}
	return mapper(raw)
}

// IsEmpty reports whether p carries no identifying or profile content.
func IsEmpty(p domain.Profile) bool {
	return p.LinkedInUsername == "" &&
		p.Headline == "" &&
		p.About == "" &&
		len(p.WorkExperience) == 0 &&
		len(p.Education) == 0 &&
		len(p.Skills) == 0
}

// linkedInContacts builds the contact slots with the profile URL filled in.
func linkedInContacts(username string) *domain.Contacts {
	c := &domain.Contacts{}
	if username != "" {
		c.LinkedIn = domain.Ptr(providers.ProfileURL(username))
	}
	return c
}

func mapRapidAPI(raw providers.Payload) (domain.Profile, error) {
	src := object(raw)
	username := src.str("username")

	p := domain.Profile{
		LinkedInUsername: username,
		Headline:         src.str("headline"),
		About:            src.str("summary"),
		AvatarURL:        src.str("profilePicture"),
		Contacts:         linkedInContacts(username),
		APIScraped:       true,
	}
	if geo := src.obj("geo"); geo != nil {
		p.CurrentLocation = geo.str("full")
	}
	p.BackgroundImage = bestImage(src.list("backgroundImage"))

	for _, pos := range src.list("position") {
		p.WorkExperience = append(p.WorkExperience, domain.WorkExperience{
			Title:                  pos.str("title"),
			CompanyName:            pos.str("companyName"),
			CompanyURL:             pos.str("companyURL"),
			CompanyIndustry:        pos.str("companyIndustry"),
			Location:               pos.str("location"),
			Duration:               FormatDuration(pos.date("start"), pos.date("end")),
			Description:            pos.str("description"),
			CompanyLogo:            pos.str("companyLogo"),
			CompanyUsername:        pos.str("companyUsername"),
			CompanyStaffCountRange: pos.str("companyStaffCountRange"),
			EmploymentType:         pos.str("employmentType"),
		})
	}

	for _, edu := range src.list("educations") {
		entry := domain.Education{
			School:       edu.str("schoolName"),
			SchoolURL:    edu.str("url"),
			Degree:       edu.str("degree"),
			FieldOfStudy: edu.str("fieldOfStudy"),
			Dates:        FormatDuration(edu.date("start"), edu.date("end")),
			Description:  edu.str("description"),
			Activities:   edu.str("activities"),
			Grade:        edu.str("grade"),
		}
		if logos := edu.list("logo"); len(logos) > 0 {
			entry.SchoolLogo = logos[0].str("url")
		}
		p.Education = append(p.Education, entry)
	}

	for _, skill := range src.list("skills") {
		if name := skill.str("name"); name != "" {
			p.Skills = append(p.Skills, name)
		}
	}

	acc := map[string][]domain.Accomplishment{}
	for _, cert := range src.list("certifications") {
		name := cert.str("name")
		if name == "" {
			continue
		}
		entry := domain.Accomplishment{
			CertificateName: name,
			CertificateFrom: cert.str("authority"),
			DateRange:       FormatDate(cert.date("start")),
		}
		if company := cert.obj("company"); company != nil {
			entry.CertificateLogo = company.str("logo")
		}
		acc[domain.AccomplishmentCertifications] = append(acc[domain.AccomplishmentCertifications], entry)
	}
	for _, honor := range src.list("honors") {
		title := honor.str("title")
		if title == "" {
			continue
		}
		acc[domain.AccomplishmentHonors] = append(acc[domain.AccomplishmentHonors], domain.Accomplishment{
			Title:       title,
			Issuer:      honor.str("issuer"),
			IssuerLogo:  honor.str("issuerLogo"),
			DateRange:   FormatDate(honor.date("issuedOn")),
			Description: honor.str("description"),
		})
	}
	if len(acc) > 0 {
		p.Accomplishments = acc
	}

	return p, nil
}

// bestImage picks the largest image by area that has a URL.
func bestImage(images []object) string {
	best, bestArea := "", -1
	for _, img := range images {
		u := img.str("url")
		if u == "" {
			continue
		}
		if area := img.num("width") * img.num("height"); area > bestArea {
			best, bestArea = u, area
		}
	}
	return best
}
