package query

import (
	"context"
	"testing"
	"time"

	"github.com/netradar/netradar/internal/domain"
	"github.com/netradar/netradar/internal/store/memory"
)

func seed(t *testing.T, st *memory.Store, agent, target string, status domain.Status) {
	t.Helper()
	_, err := st.Append(context.Background(), domain.CheckOutcome{
		AgentID:    agent,
		TargetName: target,
		Host:       "example.com",
		Type:       domain.TypeHTTP,
		Status:     status,
		LatencyMS:  5,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestSummaryCounts(t *testing.T) {
	st := memory.New()
	seed(t, st, "a", "one", domain.StatusOnline)
	seed(t, st, "a", "two", domain.StatusDegraded)
	seed(t, st, "a", "three", domain.StatusOffline)
	seed(t, st, "b", "one", domain.StatusOnline)
	// Supersede: three recovers. Only the latest per key counts.
	seed(t, st, "a", "three", domain.StatusOnline)

	svc := NewService(st, nil)
	sum, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Total != 4 || sum.Online != 3 || sum.Degraded != 1 || sum.Offline != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestSnapshotAssemblesViews(t *testing.T) {
	st := memory.New()
	seed(t, st, "a", "web", domain.StatusOnline)
	seed(t, st, "a", "web", domain.StatusDegraded)

	svc := NewService(st, []domain.Target{{Name: "web", Host: "example.com", Type: domain.TypeHTTP, Icon: "web.png"}})
	snap, err := svc.Snapshot(context.Background(), 1)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	view, ok := snap.Targets["a :: web"]
	if !ok {
		t.Fatalf("missing key, got %v", snap.Targets)
	}
	if view.Current.Status != domain.StatusDegraded {
		t.Fatalf("current must be the latest record: %+v", view.Current)
	}
	if view.Config.Icon != "web.png" || view.Config.Host != "example.com" {
		t.Fatalf("config not assembled: %+v", view.Config)
	}
	if len(view.History) != 2 {
		t.Fatalf("want both records in window, got %d", len(view.History))
	}
}

func TestSnapshotClampsHours(t *testing.T) {
	if clampHours(0) != 1 || clampHours(-3) != 1 {
		t.Fatal("low hours should clamp to 1")
	}
	if clampHours(25) != 24 || clampHours(1000) != 24 {
		t.Fatal("high hours should clamp to 24")
	}
	if clampHours(6) != 6 {
		t.Fatal("in-range hours should pass through")
	}
}

func TestTargetHistoryAcrossAgents(t *testing.T) {
	st := memory.New()
	seed(t, st, "a", "web", domain.StatusOnline)
	seed(t, st, "b", "web", domain.StatusOffline)
	seed(t, st, "a", "other", domain.StatusOnline)

	svc := NewService(st, nil)
	recs, err := svc.TargetHistory(context.Background(), "web", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want records from both agents, got %d", len(recs))
	}
}
