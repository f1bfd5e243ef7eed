package normalize

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/providers"
)

func mapScrapfly(raw providers.Payload) (domain.Profile, error) {
	var src providers.ScrapedProfile
	encoded, err := json.Marshal(raw)
	if err != nil {
		return domain.Profile{}, eris.Wrap(err, "encode scrapfly payload")
	}
	if err := json.Unmarshal(encoded, &src); err != nil {
		return domain.Profile{}, eris.Wrap(err, "decode scrapfly payload")
	}

	p := domain.Profile{
		LinkedInUsername: src.Username,
		Headline:         src.Headline,
		About:            src.Summary,
		CurrentLocation:  src.Location,
		AvatarURL:        src.ProfilePicture,
		BackgroundImage:  src.BackgroundImage,
		Contacts:         linkedInContacts(src.Username),
		APIScraped:       true,
	}

	for _, exp := range src.Experience {
		duration := exp.DateRange
		if exp.Duration != "" && duration != "" {
			duration += " (" + exp.Duration + ")"
		}
		p.WorkExperience = append(p.WorkExperience, domain.WorkExperience{
			Title:           exp.Title,
			CompanyName:     exp.Company,
			CompanyURL:      exp.CompanyURL,
			CompanyLogo:     exp.CompanyLogo,
			CompanyUsername: companySlug(exp.CompanyURL),
			Location:        exp.Location,
			Duration:        duration,
			Description:     exp.Description,
		})
	}

	for _, edu := range src.Education {
		p.Education = append(p.Education, domain.Education{
			School:       edu.School,
			SchoolURL:    edu.SchoolURL,
			SchoolLogo:   edu.SchoolLogo,
			Degree:       edu.Degree,
			FieldOfStudy: edu.FieldOfStudy,
			Dates:        edu.DateRange,
			Description:  edu.Description,
		})
	}

	for _, s := range src.Skills {
		if s != "" {
			p.Skills = append(p.Skills, s)
		}
	}

	for _, cert := range src.Certifications {
		if cert.Name == "" {
			continue
		}
		if p.Accomplishments == nil {
			p.Accomplishments = map[string][]domain.Accomplishment{}
		}
		p.Accomplishments[domain.AccomplishmentCertifications] = append(
			p.Accomplishments[domain.AccomplishmentCertifications],
			domain.Accomplishment{
				CertificateName: cert.Name,
				CertificateFrom: cert.Issuer,
				DateRange:       cert.IssuedOn,
			},
		)
	}

	return p, nil
}

func mapProxycurl(raw providers.Payload) (domain.Profile, error) {
	src := object(raw)
	username := src.str("public_identifier")

	p := domain.Profile{
		LinkedInUsername: username,
		Headline:         src.str("headline"),
		About:            src.str("summary"),
		CurrentLocation:  joinNonEmpty(", ", src.str("city"), src.str("state"), src.str("country_full_name")),
		AvatarURL:        src.str("profile_pic_url"),
		BackgroundImage:  src.str("background_cover_image_url"),
		Contacts:         linkedInContacts(username),
		APIScraped:       true,
	}

	if emails := src.strings("personal_emails"); len(emails) > 0 {
		p.Contacts.Email = domain.Ptr(emails[0])
	}
	if extra := src.obj("extra"); extra != nil {
		if handle := extra.str("twitter_profile_id"); handle != "" {
			p.Contacts.Twitter = domain.Ptr("https://twitter.com/" + handle)
		}
	}

	for _, exp := range src.list("experiences") {
		companyURL := exp.str("company_linkedin_profile_url")
		p.WorkExperience = append(p.WorkExperience, domain.WorkExperience{
			Title:           exp.str("title"),
			CompanyName:     exp.str("company"),
			CompanyURL:      companyURL,
			CompanyLogo:     exp.str("logo_url"),
			CompanyUsername: companySlug(companyURL),
			Location:        exp.str("location"),
			Duration:        FormatDuration(exp.date("starts_at"), exp.date("ends_at")),
			Description:     exp.str("description"),
		})
	}

	for _, edu := range src.list("education") {
		p.Education = append(p.Education, domain.Education{
			School:       edu.str("school"),
			SchoolURL:    edu.str("school_linkedin_profile_url"),
			SchoolLogo:   edu.str("logo_url"),
			Degree:       edu.str("degree_name"),
			FieldOfStudy: edu.str("field_of_study"),
			Dates:        FormatDuration(edu.date("starts_at"), edu.date("ends_at")),
			Description:  edu.str("description"),
			Activities:   edu.str("activities_and_societies"),
			Grade:        edu.str("grade"),
		})
	}

	p.Skills = src.strings("skills")
	if len(p.Skills) == 0 {
		p.Skills = nil
	}

	acc := map[string][]domain.Accomplishment{}
	for _, cert := range src.list("certifications") {
		name := cert.str("name")
		if name == "" {
			continue
		}
		acc[domain.AccomplishmentCertifications] = append(acc[domain.AccomplishmentCertifications], domain.Accomplishment{
			CertificateName: name,
			CertificateFrom: cert.str("authority"),
			DateRange:       FormatDate(cert.date("starts_at")),
		})
	}
	for _, honor := range src.list("accomplishment_honors_awards") {
		title := honor.str("title")
		if title == "" {
			continue
		}
		acc[domain.AccomplishmentHonors] = append(acc[domain.AccomplishmentHonors], domain.Accomplishment{
			Title:       title,
			Issuer:      honor.str("issuer"),
			DateRange:   FormatDate(honor.date("issued_on")),
			Description: honor.str("description"),
		})
	}
	if len(acc) > 0 {
		p.Accomplishments = acc
	}

	return p, nil
}
