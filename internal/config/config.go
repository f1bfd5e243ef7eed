package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Known provider names accepted in the fallback chain.
const (
	ProviderRapidAPI  = "rapidapi"
	ProviderScrapfly  = "scrapfly"
	ProviderProxycurl = "proxycurl"
)

// KnownProviders lists every provider the enricher can talk to.
var KnownProviders = []string{ProviderRapidAPI, ProviderScrapfly, ProviderProxycurl}

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	Platform string `mapstructure:"platform"`

	BaseAPIURL        string `mapstructure:"base_api_url"`
	APIKey            string `mapstructure:"insights_api_key"`
	APITimeoutSeconds int    `mapstructure:"api_timeout_seconds"`
	APIMaxRetries     int    `mapstructure:"api_max_retries"`

	RapidAPIKey      string   `mapstructure:"rapidapi_key"`
	RapidAPIHost     string   `mapstructure:"rapidapi_host"`
	RapidAPIURL      string   `mapstructure:"rapidapi_url"`
	ScrapflyAPIKey   string   `mapstructure:"scrapfly_api_key"`
	ScrapflyBaseURL  string   `mapstructure:"scrapfly_base_url"`
	ProxycurlAPIKey  string   `mapstructure:"proxycurl_api_key"`
	ProxycurlBaseURL string   `mapstructure:"proxycurl_base_url"`
	ProvidersFile    string   `mapstructure:"providers_file"`
	FallbackChainRaw string   `mapstructure:"provider_fallback_chain"`
	FallbackChain    []string `mapstructure:"-"`

	RequestTimeoutSeconds       int     `mapstructure:"request_timeout"`
	RetryDelaySeconds           float64 `mapstructure:"retry_delay"`
	MaxRetries                  int     `mapstructure:"max_retries"`
	SleepBetweenRequestsSeconds float64 `mapstructure:"sleep_between_requests"`
	ProcessingTimeoutSeconds    int     `mapstructure:"processing_timeout"`
	ProviderRateLimitRPS        float64 `mapstructure:"provider_rate_limit_rps"`

	MinPopulatedFields     int      `mapstructure:"min_populated_fields_threshold"`
	RequiredFieldsRaw      string   `mapstructure:"required_fields_for_validation"`
	RequiredFields         []string `mapstructure:"-"`
	QualityScoreThreshold  int      `mapstructure:"quality_score_threshold"`
	MinimumHeadlineWords   int      `mapstructure:"minimum_headline_words"`
	MinimumAboutLength     int      `mapstructure:"minimum_about_length"`
	MinimumSkillsCount     int      `mapstructure:"minimum_skills_count"`
	RequireWorkOrEducation bool     `mapstructure:"require_work_or_education"`

	AWSRegion          string `mapstructure:"aws_region"`
	AWSEndpointURL     string `mapstructure:"aws_endpoint_url"`
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
	SQSQueueURL        string `mapstructure:"sqs_queue_url"`
	SQSWaitSeconds     int32  `mapstructure:"sqs_wait_seconds"`
	SQSMaxMessages     int32  `mapstructure:"sqs_max_messages"`

	LedgerType           string `mapstructure:"ledger_type"`
	BBoltPath            string `mapstructure:"bbolt_path"`
	RedisAddr            string `mapstructure:"redis_addr"`
	RedisPassword        string `mapstructure:"redis_password"`
	RedisDB              int    `mapstructure:"redis_db"`
	LedgerTTLSeconds     int64  `mapstructure:"ledger_ttl_seconds"`
	LedgerCleanupSeconds int64  `mapstructure:"ledger_cleanup_interval_seconds"`

	PublishersFile string `mapstructure:"publishers_file"`
	HTTPAddr       string `mapstructure:"http_addr"`

	APITimeout           time.Duration `mapstructure:"-"`
	RequestTimeout       time.Duration `mapstructure:"-"`
	RetryDelay           time.Duration `mapstructure:"-"`
	SleepBetweenRequests time.Duration `mapstructure:"-"`
	LedgerTTL            time.Duration `mapstructure:"-"`
	LedgerCleanup        time.Duration `mapstructure:"-"`

	// Warnings collects non-fatal findings from Validate for logging after logger init.
	Warnings []string `mapstructure:"-"`
}

// Load reads configuration from environment variables and .env files, then validates it.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.finalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults registers every key with its default so AutomaticEnv can resolve it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "samvad-profile-enricher")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("platform", "linkedin")

	v.SetDefault("base_api_url", "")
	v.SetDefault("insights_api_key", "")
	v.SetDefault("api_timeout_seconds", 30)
	v.SetDefault("api_max_retries", 3)

	v.SetDefault("rapidapi_key", "")
	v.SetDefault("rapidapi_host", "")
	v.SetDefault("rapidapi_url", "/")
	v.SetDefault("scrapfly_api_key", "")
	v.SetDefault("scrapfly_base_url", "https://api.scrapfly.io/scrape")
	v.SetDefault("proxycurl_api_key", "")
	v.SetDefault("proxycurl_base_url", "https://nubela.co/proxycurl/api/v2/linkedin")
	v.SetDefault("providers_file", "")
	v.SetDefault("provider_fallback_chain", "rapidapi,scrapfly,proxycurl")

	v.SetDefault("request_timeout", 30)
	v.SetDefault("retry_delay", 5)
	v.SetDefault("max_retries", 2)
	v.SetDefault("sleep_between_requests", 1.0)
	v.SetDefault("processing_timeout", 300)
	v.SetDefault("provider_rate_limit_rps", 0)

	v.SetDefault("min_populated_fields_threshold", 4)
	v.SetDefault("required_fields_for_validation", "linkedinHeadline,about,workExperience,education,skills,currentLocation")
	v.SetDefault("quality_score_threshold", 75)
	v.SetDefault("minimum_headline_words", 3)
	v.SetDefault("minimum_about_length", 50)
	v.SetDefault("minimum_skills_count", 3)
	v.SetDefault("require_work_or_education", true)

	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("aws_endpoint_url", "")
	v.SetDefault("aws_access_key_id", "")
	v.SetDefault("aws_secret_access_key", "")
	v.SetDefault("sqs_queue_url", "")
	v.SetDefault("sqs_wait_seconds", 20)
	v.SetDefault("sqs_max_messages", 10)

	v.SetDefault("ledger_type", "none")
	v.SetDefault("bbolt_path", "./data/ledger.db")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("ledger_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("ledger_cleanup_interval_seconds", int64((time.Hour)/time.Second))

	v.SetDefault("publishers_file", "")
	v.SetDefault("http_addr", ":8080")
}

// finalize derives list and duration fields from their raw forms.
func (c *Config) finalize() {
	c.BaseAPIURL = strings.TrimRight(strings.TrimSpace(c.BaseAPIURL), "/")
	c.FallbackChain = SplitList(c.FallbackChainRaw)
	c.RequiredFields = SplitList(c.RequiredFieldsRaw)

	c.APITimeout = time.Duration(c.APITimeoutSeconds) * time.Second
	c.RequestTimeout = time.Duration(c.RequestTimeoutSeconds) * time.Second
	c.RetryDelay = seconds(c.RetryDelaySeconds)
	c.SleepBetweenRequests = seconds(c.SleepBetweenRequestsSeconds)
	c.LedgerTTL = time.Duration(c.LedgerTTLSeconds) * time.Second
	c.LedgerCleanup = time.Duration(c.LedgerCleanupSeconds) * time.Second
}

// Validate enforces startup rules. Unconfigured providers in the chain only produce warnings.
func (c *Config) Validate() error {
	var missing []string
	if c.BaseAPIURL == "" {
		missing = append(missing, "BASE_API_URL")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "INSIGHTS_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	configured := c.ConfiguredProviders()
	if len(configured) == 0 {
		return fmt.Errorf("no API providers are configured; configure at least one provider credential")
	}

	var invalid []string
	for _, p := range c.FallbackChain {
		if !isKnownProvider(p) {
			invalid = append(invalid, p)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid providers in fallback chain: %v", invalid)
	}

	c.Warnings = nil
	var unconfigured []string
	for _, p := range c.FallbackChain {
		if !contains(configured, p) {
			unconfigured = append(unconfigured, p)
		}
	}
	if len(unconfigured) > 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("providers in fallback chain are not configured: %v", unconfigured))
	}

	switch {
	case c.RequestTimeoutSeconds <= 0:
		return fmt.Errorf("REQUEST_TIMEOUT must be greater than 0")
	case c.RetryDelaySeconds < 0:
		return fmt.Errorf("RETRY_DELAY must be greater than or equal to 0")
	case c.MaxRetries < 0:
		return fmt.Errorf("MAX_RETRIES must be greater than or equal to 0")
	case c.QualityScoreThreshold < 0 || c.QualityScoreThreshold > 100:
		return fmt.Errorf("QUALITY_SCORE_THRESHOLD must be between 0 and 100")
	case c.MinimumHeadlineWords < 1:
		return fmt.Errorf("MINIMUM_HEADLINE_WORDS must be at least 1")
	case c.MinimumAboutLength < 0:
		return fmt.Errorf("MINIMUM_ABOUT_LENGTH must be non-negative")
	case c.MinimumSkillsCount < 0:
		return fmt.Errorf("MINIMUM_SKILLS_COUNT must be non-negative")
	case c.SleepBetweenRequestsSeconds < 0:
		return fmt.Errorf("SLEEP_BETWEEN_REQUESTS must be non-negative")
	}
	return nil
}

// ConfiguredProviders returns providers whose credentials are present, in canonical order.
func (c *Config) ConfiguredProviders() []string {
	var out []string
	if c.RapidAPIKey != "" && c.RapidAPIHost != "" {
		out = append(out, ProviderRapidAPI)
	}
	if c.ScrapflyAPIKey != "" {
		out = append(out, ProviderScrapfly)
	}
	if c.ProxycurlAPIKey != "" {
		out = append(out, ProviderProxycurl)
	}
	return out
}

// FallbackStatus reports, per chain entry, whether the provider is configured.
func (c *Config) FallbackStatus() map[string]bool {
	configured := c.ConfiguredProviders()
	out := make(map[string]bool, len(c.FallbackChain))
	for _, p := range c.FallbackChain {
		out[p] = contains(configured, p)
	}
	return out
}

// Summary is a secret-free view used for startup logging and status endpoints.
func (c *Config) Summary() map[string]any {
	return map[string]any{
		"api": map[string]any{
			"base_url":    c.BaseAPIURL,
			"timeout":     c.APITimeoutSeconds,
			"max_retries": c.APIMaxRetries,
		},
		"processing": map[string]any{
			"retry_delay":            c.RetryDelaySeconds,
			"max_retries":            c.MaxRetries,
			"timeout":                c.ProcessingTimeoutSeconds,
			"sleep_between_requests": c.SleepBetweenRequestsSeconds,
		},
		"validation": map[string]any{
			"min_populated_fields":      c.MinPopulatedFields,
			"required_fields":           c.RequiredFields,
			"quality_score_threshold":   c.QualityScoreThreshold,
			"minimum_headline_words":    c.MinimumHeadlineWords,
			"minimum_about_length":      c.MinimumAboutLength,
			"minimum_skills_count":      c.MinimumSkillsCount,
			"require_work_or_education": c.RequireWorkOrEducation,
		},
		"providers": map[string]any{
			"configured":      c.ConfiguredProviders(),
			"fallback_chain":  c.FallbackChain,
			"fallback_status": c.FallbackStatus(),
		},
		"metadata": map[string]any{
			"platform": c.Platform,
		},
	}
}

// SplitList parses a comma separated list, dropping blanks.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func isKnownProvider(name string) bool {
	return contains(KnownProviders, name)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
