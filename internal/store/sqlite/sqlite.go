// Package sqlite is the default durable Store backend, matching the
// single-file deployments this service usually runs as.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/netradar/netradar/internal/domain"
	"github.com/netradar/netradar/internal/store"
)

var _ store.Store = (*Store)(nil)

// timeLayout is fixed-width UTC so that timestamp comparisons done as
// text in SQL agree with time ordering.
const timeLayout = "2006-01-02 15:04:05.000"

const schema = `
CREATE TABLE IF NOT EXISTS checks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    agent_id TEXT NOT NULL,
    target_name TEXT NOT NULL,
    host TEXT,
    type TEXT,
    status TEXT NOT NULL,
    latency_ms REAL NOT NULL,
    timestamp TEXT NOT NULL,
    error TEXT,
    details TEXT
);
CREATE INDEX IF NOT EXISTS idx_checks_timestamp ON checks(timestamp);
CREATE INDEX IF NOT EXISTS idx_checks_agent ON checks(agent_id);
`

type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open creates or opens the database file, applying WAL mode and a
// busy timeout. A single connection serializes all writes, which is the
// locking discipline SQLite wants anyway.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, out domain.CheckOutcome) (int64, error) {
	var details any
	if out.Details != nil {
		b, err := json.Marshal(out.Details)
		if err != nil {
			return 0, fmt.Errorf("marshal details: %w", err)
		}
		details = string(b)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO checks (agent_id, target_name, host, type, status, latency_ms, timestamp, error, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.AgentID, out.TargetName, out.Host, string(out.Type), string(out.Status),
		out.LatencyMS, out.Timestamp.UTC().Format(timeLayout), nullable(out.Error), details,
	)
	if err != nil {
		return 0, fmt.Errorf("insert check: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sequence id: %w", err)
	}
	return id, nil
}

func (s *Store) Latest(ctx context.Context) ([]domain.Record, error) {
	// Group-max join: one row per (agent_id, target_name), the one with
	// the highest sequence id.
	rows, err := s.db.QueryContext(ctx, `
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
	rows, err := s.db.QueryContext(ctx, `
SELECT id, agent_id, target_name, host, type, status, latency_ms, timestamp, error, details
  FROM checks
 WHERE agent_id = ? AND target_name = ?
 ORDER BY id DESC
 LIMIT ?`, agentID, targetName, limit)
	if err != nil {
		return nil, fmt.Errorf("recent window: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	// Flip newest-first to chronological.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

func (s *Store) HistoryByTarget(ctx context.Context, targetName string, since time.Time) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, agent_id, target_name, host, type, status, latency_ms, timestamp, error, details
  FROM checks
 WHERE target_name = ? AND timestamp >= ?
 ORDER BY timestamp ASC`, targetName, since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM checks WHERE timestamp < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("delete before cutoff: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows rowScanner) ([]domain.Record, error) {
	var out []domain.Record
	for rows.Next() {
		var (
			rec     domain.Record
			typ     string
			status  string
			ts      string
			errText sql.NullString
			details sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.TargetName, &rec.Host,
			&typ, &status, &rec.LatencyMS, &ts, &errText, &details); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		rec.Type = domain.TargetType(typ)
		rec.Status = domain.Status(status)
		if t, err := time.ParseInLocation(timeLayout, ts, time.UTC); err == nil {
			rec.Timestamp = t
		}
		if errText.Valid {
			rec.Error = errText.String
		}
		if details.Valid && details.String != "" {
			var d domain.HTTPDetails
			if err := json.Unmarshal([]byte(details.String), &d); err == nil {
				rec.Details = &d
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
