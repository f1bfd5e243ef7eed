package apperr

import (
	"sync"

	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
)

const (
	// HistoryCapacity bounds the in-memory error history.
	HistoryCapacity = 100
	// DefaultRecentLimit is used when Recent is called with a non-positive limit.
	DefaultRecentLimit = 50
)

// History is a bounded, process-wide record of handled errors.
type History struct {
	mu       sync.Mutex
	capacity int
	entries  []*StructuredError
}

// NewHistory returns a history holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = HistoryCapacity
	}
	return &History{capacity: capacity}
}

// Append records err, discarding the oldest entries beyond capacity.
func (h *History) Append(err *StructuredError) {
	if h == nil || err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, err)
	if over := len(h.entries) - h.capacity; over > 0 {
		h.entries = append([]*StructuredError(nil), h.entries[over:]...)
	}
}

// Recent returns up to limit of the newest entries, oldest first.
func (h *History) Recent(limit int) []*StructuredError {
	if h == nil {
		return nil
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	start := 0
	if len(h.entries) > limit {
		start = len(h.entries) - limit
	}
	out := make([]*StructuredError, len(h.entries)-start)
	copy(out, h.entries[start:])
	return out
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear drops every entry.
func (h *History) Clear() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}

// Level overrides the severity-derived log level in Handler.Handle.
type Level string

const (
	LevelDefault Level = ""
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Handler logs structured errors and records them in a History.
type Handler struct {
	log     logger.Logger
	history *History
	onError func(*StructuredError)
}

// NewHandler wires a handler to a logger and a shared history.
func NewHandler(log logger.Logger, history *History) *Handler {
	if history == nil {
		history = NewHistory(HistoryCapacity)
	}
	return &Handler{log: logger.Ensure(log), history: history}
}

// OnError registers fn to be called for every handled error. Not safe to call concurrently with Handle.
func (h *Handler) OnError(fn func(*StructuredError)) { h.onError = fn }

// History exposes the backing history.
func (h *Handler) History() *History { return h.history }

// Handle logs err at a level derived from its severity (or the override) and records it.
func (h *Handler) Handle(err *StructuredError, level Level) *StructuredError {
	if err == nil {
		return nil
	}
	if level == LevelDefault {
		level = levelFor(err.Severity)
	}

	msg := err.LogMessage()
	fields := map[string]any{
		"error_code": string(err.Code),
		"category":   string(err.Category),
		"node_id":    err.NodeID,
		"provider":   err.Provider,
	}
	switch level {
	case LevelDebug:
		h.log.DebugObj(msg, "structured_error", fields)
	case LevelInfo:
		h.log.InfoObj(msg, "structured_error", fields)
	case LevelWarn:
		h.log.WarnObj(msg, "structured_error", fields)
	default:
		if err.Severity == SeverityCritical {
			fields["critical"] = true
		}
		h.log.ErrorObj(msg, "structured_error", fields)
	}
	h.log.DebugObj("structured error details", "structured_error_details", err.Fields())

	h.history.Append(err)
	if h.onError != nil {
		h.onError(err)
	}
	return err
}

// HandleException classifies err, then handles it.
func (h *Handler) HandleException(err error, ctx Context) *StructuredError {
	return h.Handle(Classify(err, ctx), LevelDefault)
}

// Recent returns the newest recorded errors.
func (h *Handler) Recent(limit int) []*StructuredError {
	return h.history.Recent(limit)
}

// Summary aggregates statistics over the default recent window.
func (h *Handler) Summary() Statistics {
	return Stats(h.history.Recent(DefaultRecentLimit))
}

func levelFor(s Severity) Level {
	switch s {
	case SeverityLow:
		return LevelInfo
	case SeverityMedium:
		return LevelWarn
	default:
		return LevelError
	}
}

// Statistics summarizes a set of structured errors.
type Statistics struct {
	Total               int            `json:"total"`
	ByCategory          map[string]int `json:"by_category"`
	BySeverity          map[string]int `json:"by_severity"`
	ByProvider          map[string]int `json:"by_provider"`
	Retryable           int            `json:"retryable"`
	FallbackRecommended int            `json:"fallback_recommended"`
}

// Stats computes Statistics over errs.
func Stats(errs []*StructuredError) Statistics {
	st := Statistics{
		ByCategory: map[string]int{},
		BySeverity: map[string]int{},
		ByProvider: map[string]int{},
	}
	for _, e := range errs {
		if e == nil {
			continue
		}
		st.Total++
		st.ByCategory[string(e.Category)]++
		st.BySeverity[string(e.Severity)]++
		if e.Provider != "" {
			st.ByProvider[e.Provider]++
		}
		if e.Retryable {
			st.Retryable++
		}
		if e.ShouldFallback {
			st.FallbackRecommended++
		}
	}
	return st
}
