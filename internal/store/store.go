package store

import (
	"context"
	"time"

	"github.com/netradar/netradar/internal/domain"
)

// Store is the append-only time series of check outcomes. Records are
// keyed by insertion sequence id; nothing is ever updated in place.
type Store interface {
	// Append persists one outcome and returns its sequence id.
	Append(ctx context.Context, out domain.CheckOutcome) (int64, error)

	// Latest returns, for every distinct (agent_id, target_name), the
	// record with the maximum sequence id.
	Latest(ctx context.Context) ([]domain.Record, error)

	// RecentWindow returns up to limit of the most recent records for
	// one (agent, target) key, oldest first. Recency and order are by
	// sequence id, not timestamp; within a single agent's series the
	// two agree, and id order is immune to that agent's clock jumping.
	RecentWindow(ctx context.Context, agentID, targetName string, limit int) ([]domain.Record, error)

	// HistoryByTarget returns all records for a target across agents
	// with timestamp >= since, in chronological order.
	HistoryByTarget(ctx context.Context, targetName string, since time.Time) ([]domain.Record, error)

	// DeleteBefore removes every record with timestamp < cutoff and
	// reports how many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
