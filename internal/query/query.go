// Package query derives the read-side views served to dashboards:
// summary counts and the per-key status snapshot.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/netradar/netradar/internal/domain"
	"github.com/netradar/netradar/internal/store"
)

const (
	minHours = 1
	maxHours = 24

	// samplesPerHour sizes the recent window shown next to a key's
	// current status, assuming roughly one check per minute.
	samplesPerHour = 60
)

type Service struct {
	store store.Store
	icons map[string]string
}

// NewService wires the read layer over a store. Target configuration
// contributes only static display metadata (icons).
func NewService(st store.Store, targets []domain.Target) *Service {
	icons := make(map[string]string, len(targets))
	for _, t := range targets {
		if t.Icon != "" {
			icons[t.Name] = t.Icon
		}
	}
	return &Service{store: st, icons: icons}
}

type Summary struct {
	Total     int       `json:"total"`
	Online    int       `json:"online"`
	Degraded  int       `json:"degraded"`
	Offline   int       `json:"offline"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary counts statuses over the latest record per key.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	rows, err := s.store.Latest(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("latest: %w", err)
	}
	sum := Summary{Total: len(rows), Timestamp: time.Now().UTC()}
	for _, r := range rows {
		switch r.Status {
		case domain.StatusOnline:
			sum.Online++
		case domain.StatusDegraded:
			sum.Degraded++
		case domain.StatusOffline:
			sum.Offline++
		}
	}
	return sum, nil
}

// HistoryPoint is the compact shape shown in per-key sparklines.
type HistoryPoint struct {
	Status    domain.Status `json:"status"`
	LatencyMS float64       `json:"latency_ms"`
	Timestamp time.Time     `json:"timestamp"`
}

type TargetConfig struct {
	Host string            `json:"host"`
	Type domain.TargetType `json:"type"`
	Icon string            `json:"icon,omitempty"`
}

type TargetView struct {
	Current domain.Record  `json:"current"`
	Config  TargetConfig   `json:"config"`
	History []HistoryPoint `json:"history"`
}

type Snapshot struct {
	Timestamp time.Time             `json:"timestamp"`
	Targets   map[string]TargetView `json:"targets"`
}

// Snapshot assembles the latest outcome, static config, and a recent
// window per (agent, target) key. hours is clamped to [1, 24].
func (s *Service) Snapshot(ctx context.Context, hours int) (Snapshot, error) {
	hours = clampHours(hours)
	limit := hours * samplesPerHour

	rows, err := s.store.Latest(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest: %w", err)
	}

	snap := Snapshot{
		Timestamp: time.Now().UTC(),
		Targets:   make(map[string]TargetView, len(rows)),
	}
	for _, r := range rows {
		window, err := s.store.RecentWindow(ctx, r.AgentID, r.TargetName, limit)
		if err != nil {
			return Snapshot{}, fmt.Errorf("recent window for %s: %w", r.Key(), err)
		}
		history := make([]HistoryPoint, 0, len(window))
		for _, w := range window {
			history = append(history, HistoryPoint{
				Status:    w.Status,
				LatencyMS: w.LatencyMS,
				Timestamp: w.Timestamp,
			})
		}
		snap.Targets[r.Key()] = TargetView{
			Current: r,
			Config: TargetConfig{
				Host: r.Host,
				Type: r.Type,
				Icon: s.icons[r.TargetName],
			},
			History: history,
		}
	}
	return snap, nil
}

// TargetHistory returns a target's records across all agents for the
// last hours (default and max 24).
func (s *Service) TargetHistory(ctx context.Context, name string, hours int) ([]domain.Record, error) {
	if hours <= 0 {
		hours = maxHours
	}
	if hours > maxHours {
		hours = maxHours
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	return s.store.HistoryByTarget(ctx, name, since)
}

func clampHours(h int) int {
	if h < minHours {
		return minHours
	}
	if h > maxHours {
		return maxHours
	}
	return h
}
