package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFetchReturnsBodyAndStatus(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>каталог</html>"))
	}))
	defer srv.Close()

	c := New(Options{Timeout: time.Second, Retries: 1, UserAgent: "test-agent"}, zerolog.Nop())
	status, body, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if !strings.Contains(body, "каталог") {
		t.Errorf("body = %q", body)
	}
	if gotUA != "test-agent" {
		t.Errorf("user agent = %q", gotUA)
	}
	if !strings.HasPrefix(gotLang, "ru-RU") {
		t.Errorf("accept-language = %q", gotLang)
	}
}

func TestFetchDoesNotRetryHTTPErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Options{Timeout: time.Second, Retries: 3}, zerolog.Nop())
	status, _, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("an answered request is not an error: %v", err)
	}
	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d", status)
	}
	if calls != 1 {
		t.Errorf("server answered, expected no retries, got %d calls", calls)
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately, so the port refuses connections

	c := New(Options{Timeout: time.Second, Retries: 1}, zerolog.Nop())
	if _, _, err := c.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected a transport error")
	}
}
