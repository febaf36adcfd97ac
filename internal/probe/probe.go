package probe

import (
	"context"

	"github.com/netradar/netradar/internal/domain"
)

// Outcome is the raw result of a single probe, before status derivation.
type Outcome struct {
	Success   bool
	LatencyMS float64
	Error     string
	Details   *domain.HTTPDetails
}

// Checker performs one protocol check against one target.
type Checker interface {
	Check(ctx context.Context, target domain.Target) Outcome
}

// Set holds one checker per protocol and is the single dispatch point
// from target type to checker.
type Set struct {
	Ping Checker
	HTTP Checker
	TCP  Checker
	DNS  Checker
}

// DefaultSet builds checkers with production timeouts.
func DefaultSet() Set {
	return Set{
		Ping: NewPingChecker(),
		HTTP: NewHTTPChecker(true),
		TCP:  NewTCPChecker(),
		DNS:  NewDNSChecker(),
	}
}

// For selects the checker for a target's type.
func (s Set) For(t domain.Target) Checker {
	switch t.Type {
	case domain.TypePing:
		return s.Ping
	case domain.TypeHTTP:
		return s.HTTP
	case domain.TypeTCP:
		return s.TCP
	case domain.TypeDNS:
		return s.DNS
	}
	return unknownChecker{}
}

type unknownChecker struct{}

func (unknownChecker) Check(_ context.Context, t domain.Target) Outcome {
	return Outcome{Success: false, Error: "Unknown type"}
}
