package domain

import (
	"math"
	"time"
)

type TargetType string

const (
	TypePing TargetType = "ping"
	TypeHTTP TargetType = "http"
	TypeTCP  TargetType = "tcp"
	TypeDNS  TargetType = "dns"
)

// ValidType reports whether t is one of the supported probe protocols.
func ValidType(t TargetType) bool {
	switch t {
	case TypePing, TypeHTTP, TypeTCP, TypeDNS:
		return true
	}
	return false
}

// Target is one monitored endpoint. Loaded from configuration at startup
// and immutable for the lifetime of the run.
type Target struct {
	Name      string     `yaml:"name" json:"name"`
	Host      string     `yaml:"host" json:"host"`
	Type      TargetType `yaml:"type" json:"type"`
	Port      int        `yaml:"port,omitempty" json:"port,omitempty"`
	DNSServer string     `yaml:"dns_server,omitempty" json:"dns_server,omitempty"`
	Icon      string     `yaml:"icon,omitempty" json:"icon,omitempty"`
}

type Status string

const (
	StatusOnline   Status = "online"
	StatusDegraded Status = "degraded"
	StatusOffline  Status = "offline"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusOnline, StatusDegraded, StatusOffline:
		return true
	}
	return false
}

// DegradedThresholdMS is the fixed latency boundary between online and
// degraded. Not per-target configurable.
const DegradedThresholdMS = 500.0

// DeriveStatus maps a raw probe result onto a status. The rule is the
// same for every protocol: a successful probe is online unless its
// latency crossed the threshold; a failed probe is always offline.
func DeriveStatus(success bool, latencyMS float64) Status {
	if !success {
		return StatusOffline
	}
	if latencyMS > DegradedThresholdMS {
		return StatusDegraded
	}
	return StatusOnline
}

// RoundLatency rounds a latency to two decimal places, the precision
// carried on the wire and in the store.
func RoundLatency(ms float64) float64 {
	return math.Round(ms*100) / 100
}

// HTTPDetails is the protocol-specific payload attached to HTTP check
// outcomes. Other protocols carry no details.
type HTTPDetails struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
}

// CheckOutcome is the immutable result of one probe execution. It is
// appended to the store and never mutated.
type CheckOutcome struct {
	AgentID    string       `json:"agent_id,omitempty"`
	TargetName string       `json:"target_name"`
	Host       string       `json:"host"`
	Type       TargetType   `json:"type"`
	Status     Status       `json:"status"`
	LatencyMS  float64      `json:"latency_ms"`
	Timestamp  time.Time    `json:"timestamp"`
	Error      string       `json:"error,omitempty"`
	Details    *HTTPDetails `json:"details,omitempty"`
}

// Record is a persisted CheckOutcome plus its insertion sequence id.
// "Latest" for a (agent_id, target_name) key means max id, not max
// timestamp, so clock skew between agents cannot reorder history.
type Record struct {
	ID int64 `json:"id"`
	CheckOutcome
}

// Key identifies the (agent, target) time series a record belongs to.
func (r Record) Key() string {
	return r.AgentID + " :: " + r.TargetName
}
