// Package memory is a non-durable Store for tests and single-process
// runs with no database configured. Best-effort only; a durable backend
// is the source of truth in real deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/netradar/netradar/internal/domain"
	"github.com/netradar/netradar/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu   sync.RWMutex
	seq  int64
	recs []domain.Record
}

func New() *Store {
	return &Store{recs: make([]domain.Record, 0, 128)}
}

func (m *Store) Append(_ context.Context, out domain.CheckOutcome) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.recs = append(m.recs, domain.Record{ID: m.seq, CheckOutcome: out})
	return m.seq, nil
}

func (m *Store) Latest(_ context.Context) ([]domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[string]domain.Record)
	for _, r := range m.recs {
		if cur, ok := latest[r.Key()]; !ok || r.ID > cur.ID {
			latest[r.Key()] = r
		}
	}
	out := make([]domain.Record, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	return out, nil
}

func (m *Store) RecentWindow(_ context.Context, agentID, targetName string, limit int) ([]domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}
	// Walk newest-to-oldest, then reverse to chronological order.
	var picked []domain.Record
	for i := len(m.recs) - 1; i >= 0 && len(picked) < limit; i-- {
		r := m.recs[i]
		if r.AgentID == agentID && r.TargetName == targetName {
			picked = append(picked, r)
		}
	}
	out := make([]domain.Record, 0, len(picked))
	for i := len(picked) - 1; i >= 0; i-- {
		out = append(out, picked[i])
	}
	return out, nil
}

func (m *Store) HistoryByTarget(_ context.Context, targetName string, since time.Time) ([]domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Record
	for _, r := range m.recs {
		if r.TargetName == targetName && !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	// Insertion order is not timestamp order across agents with skewed
	// clocks; history is promised chronological.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *Store) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.recs[:0]
	var removed int64
	for _, r := range m.recs {
		if r.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.recs = kept
	return removed, nil
}

func (m *Store) Close() error { return nil }
