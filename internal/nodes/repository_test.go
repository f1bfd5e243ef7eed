package nodes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-profile-enricher/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Key    string
	Body   map[string]any
}

type fakeService struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  map[string]string{},
		Key:    r.Header.Get("X-API-Key"),
	}
	for k := range r.URL.Query() {
		rec.Query[k] = r.URL.Query().Get(k)
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeService) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newRepo(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Repository, *fakeService) {
	t.Helper()
	svc := &fakeService{handler: handler}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	api := NewAPIClient(srv.URL+"/", "secret", httpclient.NewRestyClient(2*time.Second), nil)
	repo := NewRepository(api)
	repo.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return repo, svc
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestURLPrefixesAPI(t *testing.T) {
	c := NewAPIClient("https://svc.example/", "k", nil, nil)
	assert.Equal(t, "https://svc.example/api/nodes/1", c.URL("/nodes/1"))
	assert.Equal(t, "https://svc.example/api/nodes/1", c.URL("api/nodes/1"))
}

func TestFetchUnwrapsData(t *testing.T) {
	repo, svc := newRepo(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"linkedinUsername":"jdoe","apiScraped":true,"scrapped":false}}`)
	})

	node, err := repo.Fetch(context.Background(), "n1")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "n1", node.ID)
	assert.Equal(t, "jdoe", node.LinkedInUsername)
	assert.True(t, node.APIScraped)
	assert.False(t, node.AlreadyProcessed())

	req := svc.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/nodes/n1", req.Path)
	assert.Equal(t, "secret", req.Key)
}

func TestFetchMissingNode(t *testing.T) {
	cases := map[string]func(w http.ResponseWriter, r *http.Request){
		"404": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"error":"not found"}`)
		},
		"null data": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"data":null}`)
		},
		"empty body": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			repo, _ := newRepo(t, h)
			node, err := repo.Fetch(context.Background(), "n1")
			require.NoError(t, err)
			assert.Nil(t, node)
		})
	}
}

func TestFetchServerErrorIsReturned(t *testing.T) {
	repo, _ := newRepo(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `boom`)
	})
	_, err := repo.Fetch(context.Background(), "n1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.False(t, IsNotFound(err))
}

func TestTouchLastAttempted(t *testing.T) {
	repo, svc := newRepo(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	ok, err := repo.TouchLastAttempted(context.Background(), "n1")
	require.NoError(t, err)
	assert.True(t, ok)

	req := svc.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/api/nodes/n1", req.Path)
	assert.Equal(t, "n1", req.Body["nodeId"])
	assert.Equal(t, "2024-03-01T12:00:00Z", req.Body["lastAttemptedAt"])
}

func TestUpdateNodeReadsSuccess(t *testing.T) {
	repo, svc := newRepo(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":false}`)
	})
	ok, err := repo.UpdateNode(context.Background(), "n1", map[string]any{"scrapped": true})
	require.NoError(t, err)
	assert.False(t, ok)

	req := svc.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, map[string]any{"scrapped": true}, req.Body["data"])
}

func TestUpdateDuplicates(t *testing.T) {
	repo, svc := newRepo(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"modifiedCount":2}`)
	})
	n, err := repo.UpdateDuplicates(context.Background(), "jdoe", "n1", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	req := svc.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/nodes/update-duplicates", req.Path)
	assert.Equal(t, "jdoe", req.Body["linkedinUsername"])
	assert.Equal(t, "n1", req.Body["excludeNodeId"])
}

func TestDeleteNotFoundIsNotAnError(t *testing.T) {
	repo, svc := newRepo(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"success":false}`)
	})
	ok, err := repo.Delete(context.Background(), "n1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, http.MethodDelete, svc.last().Method)
}

func TestMarkError(t *testing.T) {
	repo, svc := newRepo(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})
	ok, err := repo.MarkError(context.Background(), "n1", "[BL_001] Missing LinkedIn username")
	require.NoError(t, err)
	assert.True(t, ok)

	req := svc.last()
	assert.Equal(t, "/api/nodes/mark-error", req.Path)
	assert.Equal(t, "[BL_001] Missing LinkedIn username", req.Body["errorMessage"])
}

func TestListingEndpoints(t *testing.T) {
	repo, svc := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/nodes/scrape-stats":
			writeJSON(w, http.StatusOK, `{"stats":{"pending":4}}`)
		default:
			writeJSON(w, http.StatusOK, `{"nodes":[{"_id":"a","linkedinUsername":"x"},{"nodeId":"b"},"junk"]}`)
		}
	})
	ctx := context.Background()

	stats, err := repo.ScrapeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(4), stats["pending"])

	candidates, err := repo.ScrapeCandidates(ctx, 0)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "a", candidates[0].ID)
	assert.Equal(t, "x", candidates[0].LinkedInUsername)
	assert.Equal(t, "b", candidates[1].ID)
	assert.Equal(t, "5", svc.last().Query["limit"])

	recent, err := repo.RecentAttempts(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
	req := svc.last()
	assert.Equal(t, "/api/nodes/recent-attempts", req.Path)
	assert.Equal(t, "1", req.Query["hours"])
	assert.Equal(t, "100", req.Query["limit"])
}
