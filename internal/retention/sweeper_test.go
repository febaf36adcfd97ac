package retention

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/netradar/netradar/internal/domain"
	"github.com/netradar/netradar/internal/store/memory"
)

func seed(t *testing.T, st *memory.Store, age time.Duration) {
	t.Helper()
	_, err := st.Append(context.Background(), domain.CheckOutcome{
		AgentID:    "a",
		TargetName: "t",
		Type:       domain.TypePing,
		Status:     domain.StatusOnline,
		Timestamp:  time.Now().UTC().Add(-age),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestSweepOnce_RemovesOnlyExpired(t *testing.T) {
	st := memory.New()
	seed(t, st, 30*time.Hour)
	seed(t, st, 25*time.Hour)
	seed(t, st, time.Hour)

	s := NewSweeper(zap.NewNop(), st, 24*time.Hour)
	n, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 expired rows removed, got %d", n)
	}

	recs, _ := st.RecentWindow(context.Background(), "a", "t", 10)
	if len(recs) != 1 {
		t.Fatalf("fresh row should survive, got %d", len(recs))
	}
}

func TestSweepOnce_SecondRunIsNoop(t *testing.T) {
	st := memory.New()
	seed(t, st, 48*time.Hour)

	s := NewSweeper(zap.NewNop(), st, 24*time.Hour)
	if n, _ := s.SweepOnce(context.Background()); n != 1 {
		t.Fatalf("first sweep should remove 1, got %d", n)
	}
	if n, _ := s.SweepOnce(context.Background()); n != 0 {
		t.Fatalf("second sweep should be a no-op, got %d", n)
	}
}

func TestRun_DisabledWithoutHorizon(t *testing.T) {
	s := NewSweeper(zap.NewNop(), memory.New(), 0)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("disabled sweeper should return nil, got %v", err)
	}
}
