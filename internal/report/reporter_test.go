package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/netradar/netradar/internal/domain"
)

func noSleep(r *Reporter) (sleeps *[]time.Duration) {
	var recorded []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		recorded = append(recorded, d)
		return nil
	}
	return &recorded
}

func testOutcomes() []domain.CheckOutcome {
	return []domain.CheckOutcome{{
		TargetName: "web",
		Host:       "https://example.com",
		Type:       domain.TypeHTTP,
		Status:     domain.StatusOnline,
		LatencyMS:  12.5,
		Timestamp:  time.Now().UTC(),
	}}
}

func TestSubmit_FirstAttemptSucceeds(t *testing.T) {
	var calls int32
	var gotKey string
	var gotPayload batchPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotKey = r.Header.Get("X-API-Key")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	r := New(zap.NewNop(), ts.URL, "agent-1", "secret")
	noSleep(r)

	if err := r.Submit(context.Background(), testOutcomes()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if calls != 1 {
		t.Fatalf("want 1 attempt, got %d", calls)
	}
	if gotKey != "secret" {
		t.Fatalf("shared secret header missing, got %q", gotKey)
	}
	if gotPayload.AgentID != "agent-1" || len(gotPayload.Checks) != 1 {
		t.Fatalf("payload wrong: %+v", gotPayload)
	}
}

func TestSubmit_RetriesWithPowersOfTwoBackoff(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 5 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	r := New(zap.NewNop(), ts.URL, "agent-1", "secret")
	sleeps := noSleep(r)

	if err := r.Submit(context.Background(), testOutcomes()); err != nil {
		t.Fatalf("5th attempt succeeded, submit should too: %v", err)
	}
	if calls != 5 {
		t.Fatalf("want exactly 5 attempts, got %d", calls)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("want 4 backoff sleeps, got %v", *sleeps)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Fatalf("backoff %d = %v, want %v", i, (*sleeps)[i], d)
		}
	}
}

func TestSubmit_DropsBatchAfterBudget(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	r := New(zap.NewNop(), ts.URL, "agent-1", "secret")
	noSleep(r)

	err := r.Submit(context.Background(), testOutcomes())
	if err == nil {
		t.Fatal("exhausted budget should surface an error")
	}
	if calls != 5 {
		t.Fatalf("want 5 attempts before dropping, got %d", calls)
	}
}

func TestSubmit_NonOKCountsAsFailure(t *testing.T) {
	// 202 is not 200: the collector contract is strict.
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	r := New(zap.NewNop(), ts.URL, "agent-1", "secret")
	r.Attempts = 2
	noSleep(r)

	if err := r.Submit(context.Background(), testOutcomes()); err == nil {
		t.Fatal("non-200 must be retried and eventually fail")
	}
	if calls != 2 {
		t.Fatalf("want 2 attempts, got %d", calls)
	}
}

func TestSubmit_EmptyBatchIsNoop(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	r := New(zap.NewNop(), ts.URL, "agent-1", "secret")
	if err := r.Submit(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if calls != 0 {
		t.Fatalf("empty batch should not hit the wire, got %d calls", calls)
	}
}
