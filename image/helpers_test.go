package image

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/rsimage/config"
	"github.com/BaSui01/rsimage/testutil"
)

var testStart = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

// hitCounter counts requests per path.
type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (h *hitCounter) add(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hits == nil {
		h.hits = map[string]int{}
	}
	h.hits[path]++
	return h.hits[path]
}

func (h *hitCounter) get(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[path]
}

func (h *hitCounter) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, v := range h.hits {
		n += v
	}
	return n
}

// unreachableHostClient fails any request to host "x" immediately and
// sends everything else through the default transport.
func unreachableHostClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Hostname() == "x" {
				return nil, errors.New("dial tcp: lookup x: no such host")
			}
			return http.DefaultTransport.RoundTrip(r)
		}),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func testAPIConfig(baseURL string) config.ImageAPIConfig {
	c := config.DefaultImageAPIConfig()
	c.APIBase = baseURL
	c.Token = "test-token"
	c.Provider = "test"
	c.Endpoint = "/generate"
	c.AltEndpoints = []string{"/generate"}
	return c
}

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*config.ImageAPIConfig), opts ...Option) (*Client, *testutil.ManualClock) {
	t.Helper()
	c := testAPIConfig(srv.URL)
	if mutate != nil {
		mutate(&c)
	}
	clock := testutil.NewManualClock(testStart)
	all := append([]Option{
		WithHTTPClient(unreachableHostClient()),
		WithClock(clock),
		WithSleeper(clock),
	}, opts...)
	return NewClient(NewProviderConfig(c), nil, all...), clock
}

// fakeRecorder collects observability events.
type fakeRecorder struct {
	mu          sync.Mutex
	attempts    []Outcome
	polls       []Outcome
	generations []Outcome
}

func (r *fakeRecorder) RecordAttempt(_ context.Context, _ string, o Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, o)
}

func (r *fakeRecorder) RecordPoll(_ context.Context, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls = append(r.polls, o)
}

func (r *fakeRecorder) RecordGeneration(_ context.Context, _ ProviderKind, o Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations = append(r.generations, o)
}
