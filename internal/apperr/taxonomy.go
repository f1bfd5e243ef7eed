// Package apperr holds the closed error taxonomy used across profile processing.
package apperr

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// Category groups error codes for statistics and routing.
type Category string

const (
	CategoryAPI            Category = "api_error"
	CategoryDataQuality    Category = "data_quality"
	CategoryDatabase       Category = "database_error"
	CategoryValidation     Category = "validation_error"
	CategoryConfiguration  Category = "configuration_error"
	CategoryNetwork        Category = "network_error"
	CategoryTransformation Category = "transformation_error"
	CategoryAuthentication Category = "authentication_error"
	CategoryRateLimit      Category = "rate_limit_error"
	CategoryTimeout        Category = "timeout_error"
	CategoryBusinessLogic  Category = "business_logic_error"
	CategoryUnknown        Category = "unknown_error"
)

// Severity drives the log level an error is reported at.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Action is the recommended handling for an error.
type Action string

const (
	ActionRetry            Action = "retry"
	ActionRetryWithBackoff Action = "retry_with_backoff"
	ActionSkip             Action = "skip"
	ActionDeleteNode       Action = "delete_node"
	ActionMarkError        Action = "mark_error"
	ActionEscalate         Action = "escalate"
	ActionIgnore           Action = "ignore"
	ActionFallback         Action = "fallback"
	ActionReconfigure      Action = "reconfigure"
)

// Code is a catalogued error identifier.
type Code string

const (
	CodeAPIRequestFailed     Code = "API_001"
	CodeAPIAuth              Code = "API_002"
	CodeAPIRateLimit         Code = "API_003"
	CodeProfileInaccessible  Code = "API_004"
	CodeAPITimeout           Code = "API_005"
	CodeQualityBelowBar      Code = "DQ_001"
	CodeValidationFailed     Code = "DQ_002"
	CodeQualityThreshold     Code = "DQ_003"
	CodeDBConnection         Code = "DB_001"
	CodeDBOperation          Code = "DB_002"
	CodeNodeNotFound         Code = "DB_003"
	CodeTransformFailed      Code = "TRANS_001"
	CodeUnknownProvider      Code = "TRANS_002"
	CodeNoProviders          Code = "CONFIG_001"
	CodeInvalidConfig        Code = "CONFIG_002"
	CodeMissingUsername      Code = "BL_001"
	CodeAlreadyProcessed     Code = "BL_002"
	CodeNetwork              Code = "NET_001"
	CodeUnknown              Code = "UNK_001"
)

// Definition is the static catalogue entry for a code.
type Definition struct {
	Category          Category
	Severity          Severity
	Message           string
	Retryable         bool
	ShouldFallback    bool
	RecommendedAction Action
}

var catalogue = map[Code]Definition{
	CodeAPIRequestFailed:    {CategoryAPI, SeverityMedium, "API request failed", true, true, ActionRetryWithBackoff},
	CodeAPIAuth:             {CategoryAuthentication, SeverityHigh, "API authentication failed", false, true, ActionFallback},
	CodeAPIRateLimit:        {CategoryRateLimit, SeverityMedium, "API rate limit exceeded", true, true, ActionRetryWithBackoff},
	CodeProfileInaccessible: {CategoryAPI, SeverityLow, "Profile not found or inaccessible", false, false, ActionDeleteNode},
	CodeAPITimeout:          {CategoryTimeout, SeverityMedium, "API request timeout", true, true, ActionRetry},
	CodeQualityBelowBar:     {CategoryDataQuality, SeverityMedium, "Data quality below threshold", true, true, ActionFallback},
	CodeValidationFailed:    {CategoryValidation, SeverityHigh, "Data validation failed", false, true, ActionFallback},
	CodeQualityThreshold:    {CategoryDataQuality, SeverityLow, "Insufficient data fields populated", true, true, ActionRetry},
	CodeDBConnection:        {CategoryDatabase, SeverityHigh, "Database connection failed", true, false, ActionRetryWithBackoff},
	CodeDBOperation:         {CategoryDatabase, SeverityMedium, "Database operation failed", true, false, ActionRetry},
	CodeNodeNotFound:        {CategoryDatabase, SeverityHigh, "Node not found in database", false, false, ActionSkip},
	CodeTransformFailed:     {CategoryTransformation, SeverityMedium, "Data transformation failed", true, true, ActionFallback},
	CodeUnknownProvider:     {CategoryTransformation, SeverityHigh, "Unknown provider for transformation", false, false, ActionEscalate},
	CodeNoProviders:         {CategoryConfiguration, SeverityCritical, "No API providers configured", false, false, ActionEscalate},
	CodeInvalidConfig:       {CategoryConfiguration, SeverityHigh, "Invalid configuration detected", false, false, ActionReconfigure},
	CodeMissingUsername:     {CategoryBusinessLogic, SeverityMedium, "Missing LinkedIn username", false, false, ActionMarkError},
	CodeAlreadyProcessed:    {CategoryBusinessLogic, SeverityLow, "Profile already processed", false, false, ActionSkip},
	CodeNetwork:             {CategoryNetwork, SeverityMedium, "Network connection failed", true, true, ActionRetryWithBackoff},
	CodeUnknown:             {CategoryUnknown, SeverityHigh, "Unknown error occurred", true, false, ActionEscalate},
}

// Lookup returns the catalogue entry for code and whether it exists.
func Lookup(code Code) (Definition, bool) {
	def, ok := catalogue[code]
	return def, ok
}

// Codes returns every catalogued code.
func Codes() []Code {
	out := make([]Code, 0, len(catalogue))
	for c := range catalogue {
		out = append(out, c)
	}
	return out
}

// StructuredError is a catalogued failure enriched with processing context.
type StructuredError struct {
	Code              Code           `json:"error_code"`
	Category          Category       `json:"category"`
	Severity          Severity       `json:"severity"`
	Message           string         `json:"message"`
	Details           string         `json:"details,omitempty"`
	Provider          string         `json:"provider,omitempty"`
	NodeID            string         `json:"node_id,omitempty"`
	Username          string         `json:"linkedin_username,omitempty"`
	RecommendedAction Action         `json:"recommended_action"`
	Retryable         bool           `json:"is_retryable"`
	ShouldFallback    bool           `json:"should_fallback"`
	Metadata          map[string]any `json:"metadata"`
	Timestamp         time.Time      `json:"timestamp"`

	cause error
}

// Context carries the optional identifiers attached to an error.
type Context struct {
	Provider string
	NodeID   string
	Username string
	Metadata map[string]any
}

// New builds a StructuredError from the catalogue. Unknown codes fall back to UNK_001.
func New(code Code, details string, ctx Context) *StructuredError {
	def, ok := catalogue[code]
	if !ok {
		code = CodeUnknown
		def = catalogue[CodeUnknown]
	}
	meta := maps.Clone(ctx.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	return &StructuredError{
		Code:              code,
		Category:          def.Category,
		Severity:          def.Severity,
		Message:           def.Message,
		Details:           details,
		Provider:          ctx.Provider,
		NodeID:            ctx.NodeID,
		Username:          ctx.Username,
		RecommendedAction: def.RecommendedAction,
		Retryable:         def.Retryable,
		ShouldFallback:    def.ShouldFallback,
		Metadata:          meta,
		Timestamp:         time.Now().UTC(),
	}
}

// Error implements error using the log message form.
func (e *StructuredError) Error() string { return e.LogMessage() }

// Unwrap exposes the classified cause, if any.
func (e *StructuredError) Unwrap() error { return e.cause }

// LogMessage renders "[CODE] message (Provider: p) (User: u) - details".
func (e *StructuredError) LogMessage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Provider != "" {
		fmt.Fprintf(&b, " (Provider: %s)", e.Provider)
	}
	if e.Username != "" {
		fmt.Fprintf(&b, " (User: %s)", e.Username)
	}
	if e.Details != "" {
		fmt.Fprintf(&b, " - %s", e.Details)
	}
	return b.String()
}

// Fields returns a flat representation suitable for structured logs and JSON responses.
func (e *StructuredError) Fields() map[string]any {
	return map[string]any{
		"error_code":         string(e.Code),
		"category":           string(e.Category),
		"severity":           string(e.Severity),
		"message":            e.Message,
		"details":            e.Details,
		"provider":           e.Provider,
		"node_id":            e.NodeID,
		"linkedin_username":  e.Username,
		"recommended_action": string(e.RecommendedAction),
		"is_retryable":       e.Retryable,
		"should_fallback":    e.ShouldFallback,
		"metadata":           e.Metadata,
		"timestamp":          e.Timestamp.Format(time.RFC3339Nano),
	}
}
