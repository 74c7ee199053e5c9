package ichiran

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	c := NewClient(url, 5*time.Second, nil)
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newTestClient(srv.URL).Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "dictionary not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Health(context.Background())
	if err == nil || !strings.Contains(err.Error(), "dictionary not loaded") {
		t.Errorf("expected status error with body, got %v", err)
	}
}

func TestSegment_EscapesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := strings.TrimPrefix(r.URL.Path, "/segment/"); got != "おい\nてめえ" {
			t.Errorf("unexpected text %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["、"]`))
	}))
	defer srv.Close()

	raw, err := newTestClient(srv.URL).Segment(context.Background(), "おい\nてめえ")
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if string(raw) != `["、"]` {
		t.Errorf("unexpected body %s", raw)
	}
}

func TestSegment_Empty(t *testing.T) {
	raw, err := newTestClient("http://127.0.0.1:0").Segment(context.Background(), "  ")
	if err != nil || raw != nil {
		t.Errorf("expected (nil, nil) for blank text, got %s, %v", raw, err)
	}
}

func TestSegment_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Segment(context.Background(), "あ"); err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestSegment_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Segment(context.Background(), "あ")
	if err == nil || IsRetryable(err) {
		t.Errorf("expected non-retryable error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestSegment_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Segment(context.Background(), "あ"); err == nil {
		t.Error("expected error after retries")
	}
	if calls.Load() != MaxRetries+1 {
		t.Errorf("expected %d calls, got %d", MaxRetries+1, calls.Load())
	}
}

func TestBackoff_Bounded(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := Backoff(attempt)
		if d <= 0 || d > 45*time.Second {
			t.Errorf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}
