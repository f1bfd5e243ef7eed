package providers

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxHTMLBodyBytes = 4 << 20 // 4 MiB

// ScrapedProfile is the payload produced by parsing a public profile page.
type ScrapedProfile struct {
	Username        string                 `json:"username"`
	FullName        string                 `json:"fullName,omitempty"`
	Headline        string                 `json:"headline,omitempty"`
	Summary         string                 `json:"summary,omitempty"`
	Location        string                 `json:"location,omitempty"`
	ProfilePicture  string                 `json:"profilePicture,omitempty"`
	BackgroundImage string                 `json:"backgroundImage,omitempty"`
	Experience      []ScrapedExperience    `json:"experience,omitempty"`
	Education       []ScrapedEducation     `json:"education,omitempty"`
	Skills          []string               `json:"skills,omitempty"`
	Certifications  []ScrapedCertification `json:"certifications,omitempty"`
}

// ScrapedExperience is one experience item from the page.
type ScrapedExperience struct {
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	CompanyURL  string `json:"companyUrl,omitempty"`
	CompanyLogo string `json:"companyLogo,omitempty"`
	Location    string `json:"location,omitempty"`
	DateRange   string `json:"dateRange,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

// ScrapedEducation is one education item from the page.
type ScrapedEducation struct {
	School       string `json:"school,omitempty"`
	SchoolURL    string `json:"schoolUrl,omitempty"`
	SchoolLogo   string `json:"schoolLogo,omitempty"`
	Degree       string `json:"degree,omitempty"`
	FieldOfStudy string `json:"fieldOfStudy,omitempty"`
	DateRange    string `json:"dateRange,omitempty"`
	Description  string `json:"description,omitempty"`
}

// ScrapedCertification is one certification item from the page.
type ScrapedCertification struct {
	Name     string `json:"name,omitempty"`
	Issuer   string `json:"issuer,omitempty"`
	IssuedOn string `json:"issuedOn,omitempty"`
}

// ParseProfileHTML extracts profile fields from a public LinkedIn profile page.
func ParseProfileHTML(body []byte, username string) (ScrapedProfile, error) {
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ScrapedProfile{}, fmt.Errorf("parse html: %w", err)
	}

	meta := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	p := ScrapedProfile{Username: username}
	p.FullName = firstNonEmpty(
		text(doc.Find("h1.top-card-layout__title")),
		meta(`meta[property="og:title"]`),
	)
	p.Headline = text(doc.Find("h2.top-card-layout__headline"))
	p.Summary = firstNonEmpty(
		text(doc.Find("section.summary .core-section-container__content p")),
		text(doc.Find(`section[data-section="summary"] p`)),
		meta(`meta[property="og:description"]`),
	)
	p.Location = firstNonEmpty(
		text(doc.Find(".top-card__subline-item")),
		text(doc.Find(".top-card-layout__first-subline .not-first-middot span")),
	)
	p.ProfilePicture = firstNonEmpty(
		imageURL(doc.Find("img.top-card__profile-image")),
		meta(`meta[property="og:image"]`),
	)
	p.BackgroundImage = imageURL(doc.Find("img.cover-img__image"))

	doc.Find("section.experience li.experience-item").Each(func(_ int, item *goquery.Selection) {
		exp := ScrapedExperience{
			Title:       text(item.Find(".experience-item__title")),
			Company:     text(item.Find(".experience-item__subtitle")),
			CompanyURL:  href(item.Find(".experience-item__subtitle a, a.profile-section-card__image-link")),
			CompanyLogo: imageURL(item.Find("img")),
			Location:    text(item.Find(".experience-item__location")),
			DateRange:   dateRange(item),
			Duration:    text(item.Find(".date-range__duration")),
			Description: firstNonEmpty(
				text(item.Find(".show-more-less-text__text--less")),
				text(item.Find(".experience-item__description")),
			),
		}
		if exp.Title != "" || exp.Company != "" {
			p.Experience = append(p.Experience, exp)
		}
	})

	doc.Find("section.education li.education__list-item").Each(func(_ int, item *goquery.Selection) {
		spans := item.Find("h4 span")
		edu := ScrapedEducation{
			School:       text(item.Find("h3")),
			SchoolURL:    href(item.Find("a")),
			SchoolLogo:   imageURL(item.Find("img")),
			Degree:       text(spans.Eq(0)),
			FieldOfStudy: text(spans.Eq(1)),
			DateRange:    dateRange(item),
			Description:  text(item.Find(".education__item--details p")),
		}
		if edu.School != "" {
			p.Education = append(p.Education, edu)
		}
	})

	doc.Find("section.skills li").Each(func(_ int, item *goquery.Selection) {
		if s := text(item); s != "" {
			p.Skills = append(p.Skills, s)
		}
	})

	doc.Find("section.certifications li").Each(func(_ int, item *goquery.Selection) {
		cert := ScrapedCertification{
			Name:     text(item.Find("h3")),
			Issuer:   text(item.Find("h4")),
			IssuedOn: text(item.Find("time")),
		}
		if cert.Name != "" {
			p.Certifications = append(p.Certifications, cert)
		}
	})

	return p, nil
}

func text(sel *goquery.Selection) string {
	return cleanText(sel.First().Text())
}

func href(sel *goquery.Selection) string {
	v, _ := sel.First().Attr("href")
	return strings.TrimSpace(v)
}

func imageURL(sel *goquery.Selection) string {
	node := sel.First()
	for _, attr := range []string{"data-delayed-url", "src"} {
		if v, ok := node.Attr(attr); ok && strings.HasPrefix(strings.TrimSpace(v), "http") {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// dateRange joins the <time> elements of an item as "start - end".
func dateRange(item *goquery.Selection) string {
	var parts []string
	item.Find(".date-range time").Each(func(_ int, t *goquery.Selection) {
		if s := cleanText(t.Text()); s != "" {
			parts = append(parts, s)
		}
	})
	switch len(parts) {
	case 0:
		return ""
	case 1:
		if strings.Contains(strings.ToLower(text(item.Find(".date-range"))), "present") {
			return parts[0] + " - Present"
		}
		return parts[0]
	default:
		return parts[0] + " - " + parts[1]
	}
}
