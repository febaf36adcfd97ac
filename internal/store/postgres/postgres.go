// Package postgres backs the Store with PostgreSQL for deployments
// where several collectors share one database.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/netradar/netradar/internal/domain"
	"github.com/netradar/netradar/internal/store"
)

var _ store.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS checks (
    id BIGSERIAL PRIMARY KEY,
    agent_id TEXT NOT NULL,
    target_name TEXT NOT NULL,
    host TEXT,
    type TEXT,
    status TEXT NOT NULL,
    latency_ms DOUBLE PRECISION NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL,
    error TEXT,
    details JSONB
);
CREATE INDEX IF NOT EXISTS idx_checks_timestamp ON checks(timestamp);
CREATE INDEX IF NOT EXISTS idx_checks_agent ON checks(agent_id);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Append(ctx context.Context, out domain.CheckOutcome) (int64, error) {
	var details any
	if out.Details != nil {
		b, err := json.Marshal(out.Details)
		if err != nil {
			return 0, fmt.Errorf("marshal details: %w", err)
		}
		details = b
	}
	var errText any
	if out.Error != "" {
		errText = out.Error
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO checks (agent_id, target_name, host, type, status, latency_ms, timestamp, error, details)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		out.AgentID, out.TargetName, out.Host, string(out.Type), string(out.Status),
		out.LatencyMS, out.Timestamp.UTC(), errText, details,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert check: %w", err)
	}
	return id, nil
}

func (s *Store) Latest(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.pool.Query(ctx, `
SELECT c.id, c.agent_id, c.target_name, c.host, c.type, c.status, c.latency_ms, c.timestamp, c.error, c.details
  FROM checks c
 INNER JOIN (
       SELECT MAX(id) AS max_id FROM checks GROUP BY agent_id, target_name
       ) m ON c.id = m.max_id`)
	if err != nil {
		return nil, fmt.Errorf("latest: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) RecentWindow(ctx context.Context, agentID, targetName string, limit int) ([]domain.Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, agent_id, target_name, host, type, status, latency_ms, timestamp, error, details
  FROM checks
 WHERE agent_id = $1 AND target_name = $2
 ORDER BY id DESC
 LIMIT $3`, agentID, targetName, limit)
	if err != nil {
		return nil, fmt.Errorf("recent window: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

func (s *Store) HistoryByTarget(ctx context.Context, targetName string, since time.Time) ([]domain.Record, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, agent_id, target_name, host, type, status, latency_ms, timestamp, error, details
  FROM checks
 WHERE target_name = $1 AND timestamp >= $2
 ORDER BY timestamp ASC`, targetName, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM checks WHERE timestamp < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete before cutoff: %w", err)
	}
	return tag.RowsAffected(), nil
}

type pgRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows pgRows) ([]domain.Record, error) {
	var out []domain.Record
	for rows.Next() {
		var (
			rec     domain.Record
			typ     string
			status  string
			ts      time.Time
			errText *string
			details []byte
		)
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.TargetName, &rec.Host,
			&typ, &status, &rec.LatencyMS, &ts, &errText, &details); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		rec.Type = domain.TargetType(typ)
		rec.Status = domain.Status(status)
		rec.Timestamp = ts.UTC()
		if errText != nil {
			rec.Error = *errText
		}
		if len(details) > 0 {
			var d domain.HTTPDetails
			if err := json.Unmarshal(details, &d); err == nil {
				rec.Details = &d
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
