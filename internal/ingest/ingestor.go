// Package ingest validates incoming check batches and persists them.
// It is the single write path into the store, whether outcomes arrive
// over the wire from remote agents or directly from a local scheduler.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/netradar/netradar/internal/domain"
	"github.com/netradar/netradar/internal/notify"
	"github.com/netradar/netradar/internal/store"
)

// LocalAgentID tags outcomes produced by the collector's own scheduler
// in standalone mode.
const LocalAgentID = "local"

type Ingestor struct {
	Logger   *zap.Logger
	Store    store.Store
	Notifier notify.Notifier

	// lastStatus caches the previously seen status per key for
	// transition detection. Best-effort; the store stays authoritative.
	mu         sync.Mutex
	lastStatus map[string]domain.Status
}

func New(logger *zap.Logger, st store.Store, notifier notify.Notifier) *Ingestor {
	return &Ingestor{
		Logger:     logger,
		Store:      st,
		Notifier:   notifier,
		lastStatus: make(map[string]domain.Status),
	}
}

// IngestBatch persists a batch under one agent identity. Malformed
// records are skipped and counted, never aborting the rest of the
// batch; a storage failure stops processing and surfaces the error
// along with the count persisted so far.
func (i *Ingestor) IngestBatch(ctx context.Context, agentID string, checks []domain.CheckOutcome) (int, error) {
	if agentID == "" {
		agentID = "unknown"
	}

	persisted := 0
	skipped := 0
	for _, c := range checks {
		c.AgentID = agentID
		if err := validate(c); err != nil {
			skipped++
			i.Logger.Warn("check_skipped",
				zap.String("agent_id", agentID),
				zap.String("target", c.TargetName),
				zap.Error(err),
			)
			continue
		}
		if c.Timestamp.IsZero() {
			c.Timestamp = time.Now().UTC()
		}

		if _, err := i.Store.Append(ctx, c); err != nil {
			return persisted, fmt.Errorf("persist check for %q: %w", c.TargetName, err)
		}
		persisted++
		i.notifyTransition(ctx, c)
	}

	if skipped > 0 {
		i.Logger.Warn("batch_partially_ingested",
			zap.String("agent_id", agentID),
			zap.Int("persisted", persisted),
			zap.Int("skipped", skipped),
		)
	}
	return persisted, nil
}

// Submit implements scheduler.Sink for standalone mode.
func (i *Ingestor) Submit(ctx context.Context, outcomes []domain.CheckOutcome) error {
	n, err := i.IngestBatch(ctx, LocalAgentID, outcomes)
	if err != nil {
		return err
	}
	i.Logger.Debug("local_batch_ingested", zap.Int("persisted", n))
	return nil
}

func validate(c domain.CheckOutcome) error {
	if c.TargetName == "" {
		return fmt.Errorf("missing target_name")
	}
	if !domain.ValidStatus(c.Status) {
		return fmt.Errorf("invalid status %q", c.Status)
	}
	if c.LatencyMS < 0 {
		return fmt.Errorf("negative latency %v", c.LatencyMS)
	}
	return nil
}

// notifyTransition fires the notifier when a key's status flips. The
// first observation of a key is recorded silently.
func (i *Ingestor) notifyTransition(ctx context.Context, c domain.CheckOutcome) {
	if i.Notifier == nil {
		return
	}
	key := c.AgentID + " :: " + c.TargetName

	i.mu.Lock()
	prev, seen := i.lastStatus[key]
	i.lastStatus[key] = c.Status
	i.mu.Unlock()

	if !seen || prev == c.Status {
		return
	}

	title := statusTitle(c.Status)
	text := fmt.Sprintf("Agent: %s\nTarget: %s (%s)\nWas: %s\nLatency: %.2f ms\nError: %s\nAt: %s",
		c.AgentID, c.TargetName, c.Host, prev, c.LatencyMS, orDash(c.Error),
		c.Timestamp.Format(time.RFC3339))

	if err := i.Notifier.Send(ctx, title, text); err != nil {
		i.Logger.Warn("notify_failed",
			zap.String("target", c.TargetName),
			zap.Error(err),
		)
	}
}

func statusTitle(s domain.Status) string {
	switch s {
	case domain.StatusOnline:
		return "🟢 Target ONLINE"
	case domain.StatusDegraded:
		return "🟡 Target DEGRADED"
	default:
		return "🔴 Target OFFLINE"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
