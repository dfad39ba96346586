package adapter

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/amishk599/jobscout/internal/classify"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingFailures collects recovered failures as "provider/kind".
type recordingFailures struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recordingFailures) ProviderFailure(provider, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, provider+"/"+kind)
}

func (r *recordingFailures) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.kinds...)
}

// testDeps points every request at srv regardless of the adapter's base URL.
func testDeps(srv *httptest.Server, rec *recordingFailures) Deps {
	return Deps{
		Client: &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				req.URL.Scheme = "http"
				req.URL.Host = srv.Listener.Addr().String()
				return http.DefaultTransport.RoundTrip(req)
			}),
		},
		Scorer:   classify.Default(),
		Failures: rec,
		Logger:   discardLogger(),
	}
}

func statusServer(status int, headers map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
	}))
}

func bodyServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}
