package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueFlags(t *testing.T) {
	cases := []struct {
		code      Code
		category  Category
		severity  Severity
		retryable bool
		fallback  bool
		action    Action
	}{
		{CodeAPIRequestFailed, CategoryAPI, SeverityMedium, true, true, ActionRetryWithBackoff},
		{CodeAPIAuth, CategoryAuthentication, SeverityHigh, false, true, ActionFallback},
		{CodeProfileInaccessible, CategoryAPI, SeverityLow, false, false, ActionDeleteNode},
		{CodeQualityThreshold, CategoryDataQuality, SeverityLow, true, true, ActionRetry},
		{CodeNodeNotFound, CategoryDatabase, SeverityHigh, false, false, ActionSkip},
		{CodeNoProviders, CategoryConfiguration, SeverityCritical, false, false, ActionEscalate},
		{CodeMissingUsername, CategoryBusinessLogic, SeverityMedium, false, false, ActionMarkError},
		{CodeUnknown, CategoryUnknown, SeverityHigh, true, false, ActionEscalate},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			e := New(tc.code, "", Context{})
			assert.Equal(t, tc.category, e.Category)
			assert.Equal(t, tc.severity, e.Severity)
			assert.Equal(t, tc.retryable, e.Retryable)
			assert.Equal(t, tc.fallback, e.ShouldFallback)
			assert.Equal(t, tc.action, e.RecommendedAction)
		})
	}
	assert.Len(t, Codes(), 19)
}

func TestNewUnknownCodeFallsBack(t *testing.T) {
	e := New(Code("NOPE_9"), "details", Context{})
	assert.Equal(t, CodeUnknown, e.Code)
	assert.NotNil(t, e.Metadata)
}

func TestLogMessageFormat(t *testing.T) {
	e := New(CodeMissingUsername, "Missing linkedinUsername for node n1", Context{NodeID: "n1"})
	assert.Equal(t, "[BL_001] Missing LinkedIn username - Missing linkedinUsername for node n1", e.LogMessage())

	e = New(CodeAPIRequestFailed, "boom", Context{Provider: "rapidapi", Username: "jdoe"})
	assert.Equal(t, "[API_001] API request failed (Provider: rapidapi) (User: jdoe) - boom", e.Error())
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline hit" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"auth", errors.New("401 Unauthorized"), CodeAPIAuth},
		{"rate limit", errors.New("status 429 returned"), CodeAPIRateLimit},
		{"timeout text", errors.New("read timeout"), CodeAPITimeout},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), CodeAPITimeout},
		{"net timeout", timeoutErr{}, CodeAPITimeout},
		{"connection", errors.New("connection refused"), CodeNetwork},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, CodeNetwork},
		{"database", errors.New("database unavailable"), CodeDBOperation},
		{"other", errors.New("weird"), CodeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err, Context{NodeID: "n1"})
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got.Code)
			assert.Equal(t, "n1", got.NodeID)
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassifyUnknownIncludesType(t *testing.T) {
	got := Classify(eris.Wrap(errors.New("weird"), "outer"), Context{})
	assert.Equal(t, CodeUnknown, got.Code)
	assert.Regexp(t, `^[\w.]+: outer: weird$`, got.Details)
}

func TestClassifyKeepsStructuredErrors(t *testing.T) {
	orig := New(CodeNodeNotFound, "gone", Context{NodeID: "n1"})
	got := Classify(fmt.Errorf("wrapped: %w", orig), Context{NodeID: "other", Username: "jdoe"})
	assert.Same(t, orig, got)
	assert.Equal(t, "n1", got.NodeID)
	assert.Equal(t, "jdoe", got.Username)
}

func TestNewCopiesCallerMetadata(t *testing.T) {
	shared := map[string]any{"attempt": 1}

	first := New(CodeAPIRequestFailed, "boom", Context{NodeID: "n1", Metadata: shared})
	first.Metadata["provider_status"] = 503

	second := New(CodeNodeNotFound, "gone", Context{NodeID: "n2"})
	Classify(fmt.Errorf("wrapped: %w", second), Context{Metadata: shared})
	second.Metadata["extra"] = true

	h := NewHandler(nil, NewHistory(0))
	h.HandleException(errors.New("read timeout"), Context{Username: "jdoe", Metadata: shared})

	assert.Equal(t, map[string]any{"attempt": 1}, shared)
	assert.Equal(t, 1, first.Metadata["attempt"])
	assert.Equal(t, 1, second.Metadata["attempt"])
}

func TestHistoryIsBounded(t *testing.T) {
	h := NewHistory(HistoryCapacity)
	for i := 0; i < 150; i++ {
		h.Append(New(CodeUnknown, fmt.Sprint(i), Context{}))
	}
	require.Equal(t, HistoryCapacity, h.Len())

	recent := h.Recent(0)
	require.Len(t, recent, DefaultRecentLimit)
	assert.Equal(t, "149", recent[len(recent)-1].Details)
	assert.Equal(t, "50", h.Recent(HistoryCapacity)[0].Details)
}

func TestHistoryConcurrentAppend(t *testing.T) {
	h := NewHistory(10)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Append(New(CodeUnknown, "", Context{}))
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, h.Len())
}

type recordingLogger struct {
	mu     sync.Mutex
	levels []string
}

func (r *recordingLogger) add(level string) {
	r.mu.Lock()
	r.levels = append(r.levels, level)
	r.mu.Unlock()
}
func (r *recordingLogger) InfoObj(string, string, interface{})  { r.add("info") }
func (r *recordingLogger) DebugObj(string, string, interface{}) { r.add("debug") }
func (r *recordingLogger) WarnObj(string, string, interface{})  { r.add("warn") }
func (r *recordingLogger) ErrorObj(string, string, interface{}) { r.add("error") }

func TestHandlerLogsBySeverity(t *testing.T) {
	log := &recordingLogger{}
	h := NewHandler(log, NewHistory(0))

	h.Handle(New(CodeAlreadyProcessed, "", Context{}), LevelDefault)
	h.Handle(New(CodeAPIRequestFailed, "", Context{}), LevelDefault)
	h.Handle(New(CodeNodeNotFound, "", Context{}), LevelDefault)
	h.Handle(New(CodeNoProviders, "", Context{}), LevelDefault)
	h.Handle(New(CodeNodeNotFound, "", Context{}), LevelInfo)

	assert.Equal(t, []string{
		"info", "debug",
		"warn", "debug",
		"error", "debug",
		"error", "debug",
		"info", "debug",
	}, log.levels)
	assert.Equal(t, 5, h.History().Len())
}

func TestSummaryStatistics(t *testing.T) {
	h := NewHandler(nil, nil)
	h.Handle(New(CodeAPIRequestFailed, "", Context{Provider: "rapidapi"}), LevelDefault)
	h.Handle(New(CodeAPIAuth, "", Context{Provider: "rapidapi"}), LevelDefault)
	h.HandleException(errors.New("weird"), Context{})

	st := h.Summary()
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.ByProvider["rapidapi"])
	assert.Equal(t, 1, st.ByCategory["authentication_error"])
	assert.Equal(t, 2, st.BySeverity["high"])
	assert.Equal(t, 2, st.Retryable)
	assert.Equal(t, 2, st.FallbackRecommended)
}
