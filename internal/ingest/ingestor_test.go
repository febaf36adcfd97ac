package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/netradar/netradar/internal/domain"
	"github.com/netradar/netradar/internal/store/memory"
)

func validCheck(name string, status domain.Status) domain.CheckOutcome {
	return domain.CheckOutcome{
		TargetName: name,
		Host:       "example.com",
		Type:       domain.TypePing,
		Status:     status,
		LatencyMS:  10,
		Timestamp:  time.Now().UTC(),
	}
}

func TestIngestBatch_SkipsMalformedRecords(t *testing.T) {
	st := memory.New()
	ing := New(zap.NewNop(), st, nil)

	batch := []domain.CheckOutcome{
		validCheck("a", domain.StatusOnline),
		{TargetName: "", Status: domain.StatusOnline},            // no name
		{TargetName: "b", Status: "meh"},                         // bad status
		{TargetName: "c", Status: domain.StatusOnline, LatencyMS: -1}, // negative latency
		validCheck("d", domain.StatusOffline),
	}

	n, err := ing.IngestBatch(context.Background(), "agent-1", batch)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 persisted, got %d", n)
	}

	rows, _ := st.Latest(context.Background())
	if len(rows) != 2 {
		t.Fatalf("store should hold 2 keys, got %d", len(rows))
	}
	for _, r := range rows {
		if r.AgentID != "agent-1" {
			t.Fatalf("agent id not stamped: %+v", r)
		}
	}
}

func TestIngestBatch_DefaultsMissingTimestamp(t *testing.T) {
	st := memory.New()
	ing := New(zap.NewNop(), st, nil)

	c := validCheck("a", domain.StatusOnline)
	c.Timestamp = time.Time{}
	if _, err := ing.IngestBatch(context.Background(), "agent-1", []domain.CheckOutcome{c}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	rows, _ := st.Latest(context.Background())
	if rows[0].Timestamp.IsZero() {
		t.Fatal("timestamp should be defaulted")
	}
}

type failingStore struct {
	*memory.Store
	failAfter int
	calls     int
}

func (f *failingStore) Append(ctx context.Context, out domain.CheckOutcome) (int64, error) {
	f.calls++
	if f.calls > f.failAfter {
		return 0, errors.New("disk full")
	}
	return f.Store.Append(ctx, out)
}

func TestIngestBatch_StorageFailureSurfaces(t *testing.T) {
	st := &failingStore{Store: memory.New(), failAfter: 1}
	ing := New(zap.NewNop(), st, nil)

	batch := []domain.CheckOutcome{
		validCheck("a", domain.StatusOnline),
		validCheck("b", domain.StatusOnline),
	}
	n, err := ing.IngestBatch(context.Background(), "agent-1", batch)
	if err == nil {
		t.Fatal("storage failure should surface")
	}
	if n != 1 {
		t.Fatalf("count persisted before failure should be 1, got %d", n)
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (r *recordingNotifier) Send(_ context.Context, title, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	return nil
}

func TestNotifierFiresOnlyOnTransitions(t *testing.T) {
	st := memory.New()
	rec := &recordingNotifier{}
	ing := New(zap.NewNop(), st, rec)
	ctx := context.Background()

	// First observation: silent. Same status again: silent. Flip: fires.
	ing.IngestBatch(ctx, "a", []domain.CheckOutcome{validCheck("t", domain.StatusOnline)})
	ing.IngestBatch(ctx, "a", []domain.CheckOutcome{validCheck("t", domain.StatusOnline)})
	ing.IngestBatch(ctx, "a", []domain.CheckOutcome{validCheck("t", domain.StatusOffline)})
	ing.IngestBatch(ctx, "a", []domain.CheckOutcome{validCheck("t", domain.StatusOnline)})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.titles) != 2 {
		t.Fatalf("want 2 notifications (down, up), got %v", rec.titles)
	}
}

func TestSubmit_TagsLocalAgent(t *testing.T) {
	st := memory.New()
	ing := New(zap.NewNop(), st, nil)

	if err := ing.Submit(context.Background(), []domain.CheckOutcome{validCheck("t", domain.StatusOnline)}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	rows, _ := st.Latest(context.Background())
	if rows[0].AgentID != LocalAgentID {
		t.Fatalf("want local agent id, got %q", rows[0].AgentID)
	}
}
