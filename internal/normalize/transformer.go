package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-profile-enricher/internal/apperr"
	"github.com/samvad-hq/samvad-profile-enricher/internal/config"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
	"github.com/samvad-hq/samvad-profile-enricher/internal/quality"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/providers"
)

// ProcessorVersion is stamped into every transformed record.
const ProcessorVersion = "2.0.0"

var extractionMethods = map[string]string{
	config.ProviderRapidAPI:  "rapidapi_direct",
	config.ProviderScrapfly:  "scrapfly_api",
	config.ProviderProxycurl: "proxycurl_api",
}

// Options configures a Transformer.
type Options struct {
	Platform         string
	ProcessorVersion string
	Rules            quality.Rules
	Now              func() time.Time
}

// Transformer turns raw provider payloads into scored, stamped canonical records.
type Transformer struct {
	opts Options
	log  logger.Logger
}

// NewTransformer fills unset options with defaults.
func NewTransformer(opts Options, log logger.Logger) *Transformer {
	if opts.Platform == "" {
		opts.Platform = "linkedin"
	}
	if opts.ProcessorVersion == "" {
		opts.ProcessorVersion = ProcessorVersion
	}
	if len(opts.Rules.RequiredFields) == 0 {
		opts.Rules = quality.DefaultRules()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Transformer{opts: opts, log: logger.Ensure(log)}
}

// Rules returns the validation rules the transformer stamps with.
func (t *Transformer) Rules() quality.Rules { return t.opts.Rules }

// Transform maps raw, cleans it, scores it and stamps processing metadata.
// raw is never mutated.
func (t *Transformer) Transform(raw providers.Payload, provider string) (domain.Profile, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if len(raw) == 0 {
		return domain.Profile{}, apperr.New(apperr.CodeTransformFailed,
			"Invalid or empty data received for transformation", apperr.Context{Provider: provider})
	}

	username, _ := raw["username"].(string)
	t.log.InfoObj("transforming profile", "transform", map[string]any{
		"username": username,
		"provider": provider,
	})

	mapped, err := Normalize(provider, raw)
	if err != nil {
		return domain.Profile{}, err
	}
	if IsEmpty(mapped) {
		return domain.Profile{}, apperr.New(apperr.CodeTransformFailed,
			fmt.Sprintf("Provider-specific transformation failed for %s", provider),
			apperr.Context{Provider: provider, Username: username})
	}

	profile := Clean(mapped)
	score := quality.Score(profile, provider)
	report := quality.Validate(profile, t.opts.Rules)

	ts := t.opts.Now().UTC().Format(time.RFC3339Nano)
	profile.APIScraped = true
	profile.Metadata = &domain.Metadata{
		Platform:             t.opts.Platform,
		Scrapped:             true,
		Extracted:            true,
		ProcessedVia:         provider,
		ExtractedAt:          ts,
		ScrappedAt:           ts,
		ProcessedAt:          ts,
		ProcessorVersion:     t.opts.ProcessorVersion,
		QualityScore:         score,
		DataValidationPassed: report.Valid,
		ExtractionMethod:     extractionMethods[provider],
	}

	if problems := schemaProblems(profile); len(problems) > 0 {
		t.log.WarnObj("transformed profile failed schema check", "transform", map[string]any{
			"username": profile.LinkedInUsername,
			"provider": provider,
			"problems": problems,
		})
	}

	t.log.InfoObj("transformed profile", "transform", map[string]any{
		"username":      profile.LinkedInUsername,
		"provider":      provider,
		"quality_score": score,
		"valid":         report.Valid,
	})
	return profile, nil
}

// schemaProblems lists structural defects. They are reported, never fatal.
func schemaProblems(p domain.Profile) []string {
	var out []string
	if !p.APIScraped {
		out = append(out, "apiScraped flag missing")
	}
	if p.Contacts == nil {
		out = append(out, "contacts missing")
	}
	for key := range p.Accomplishments {
		if key != domain.AccomplishmentCertifications && key != domain.AccomplishmentHonors {
			out = append(out, "unknown accomplishment group "+key)
		}
	}
	return out
}
