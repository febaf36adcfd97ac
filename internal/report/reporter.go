// Package report pushes a cycle's outcomes from an agent to the
// collector's ingestion endpoint.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/netradar/netradar/internal/domain"
)

const (
	ingestPath      = "/api/ingest"
	defaultAttempts = 5
	requestTimeout  = 10 * time.Second
)

// Reporter sends batches with a shared-secret header, retrying failed
// sends with exponential backoff. A batch that exhausts its attempt
// budget is dropped; there is no spooling across process restarts, so
// collector downtime longer than the retry window loses those cycles.
type Reporter struct {
	Logger   *zap.Logger
	Client   *http.Client
	AgentID  string
	APIKey   string
	Attempts int

	ingestURL string
	sleep     func(ctx context.Context, d time.Duration) error
}

func New(logger *zap.Logger, collectorURL, agentID, apiKey string) *Reporter {
	return &Reporter{
		Logger:    logger,
		Client:    &http.Client{Timeout: requestTimeout},
		AgentID:   agentID,
		APIKey:    apiKey,
		Attempts:  defaultAttempts,
		ingestURL: strings.TrimRight(collectorURL, "/") + ingestPath,
		sleep:     sleepCtx,
	}
}

type batchPayload struct {
	AgentID string                `json:"agent_id"`
	Checks  []domain.CheckOutcome `json:"checks"`
}

// Submit implements scheduler.Sink. Backoff between attempt n and n+1
// is 2^n seconds (1, 2, 4, 8 for the default budget of 5).
func (r *Reporter) Submit(ctx context.Context, outcomes []domain.CheckOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	body, err := json.Marshal(batchPayload{AgentID: r.AgentID, Checks: outcomes})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := r.send(ctx, body)
		if err == nil {
			r.Logger.Debug("batch_sent",
				zap.Int("checks", len(outcomes)),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}
		lastErr = err
		r.Logger.Warn("batch_send_failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		if attempt < attempts-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			if err := r.sleep(ctx, backoff); err != nil {
				return err
			}
		}
	}

	r.Logger.Error("batch_dropped",
		zap.Int("checks", len(outcomes)),
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	return fmt.Errorf("batch dropped after %d attempts: %w", attempts, lastErr)
}

func (r *Reporter) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.ingestURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", r.APIKey)

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ingest returned %s", resp.Status)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
