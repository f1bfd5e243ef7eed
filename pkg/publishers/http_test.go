package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPublisherSuccess(t *testing.T) {
	var got OutcomeEvent
	var eventID, status string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "1", r.Header.Get("X-Test"))
		eventID = r.Header.Get("Idempotency-Key")
		status = r.Header.Get("X-Outcome-Status")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), Target{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPTarget{
			URL:            srv.URL,
			Method:         http.MethodPost,
			Headers:        map[string]string{"X-Test": "1"},
			TimeoutSeconds: 2,
		},
	}, nil)
	require.NoError(t, err)

	evt := sampleEvent()
	require.NoError(t, pub.Publish(context.Background(), evt))
	assert.Equal(t, evt.ID, eventID)
	assert.Equal(t, "scraped", status)
	assert.Equal(t, "n1", got.NodeID)
	assert.True(t, got.NewlyScraped)
}

func TestHTTPPublisherErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), Target{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPTarget{URL: srv.URL, TimeoutSeconds: 1},
	}, nil)
	require.NoError(t, err)

	err = pub.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
