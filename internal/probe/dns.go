package probe

import (
	"context"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/netradar/netradar/internal/domain"
)

const (
	defaultDNSServer = "8.8.8.8"
	digTimeout       = 5 * time.Second
)

// DNSChecker queries a nameserver with dig, one attempt with a 2s
// per-try budget. Hosts without dig fall back to a plain resolver
// lookup against the system configuration.
type DNSChecker struct {
	Resolver *net.Resolver

	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) (string, error)
}

func NewDNSChecker() *DNSChecker {
	return &DNSChecker{
		Resolver: net.DefaultResolver,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) (string, error) {
			out, err := exec.CommandContext(ctx, name, args...).Output()
			return string(out), err
		},
	}
}

func (d *DNSChecker) Check(ctx context.Context, target domain.Target) Outcome {
	server := target.DNSServer
	if server == "" {
		server = defaultDNSServer
	}

	start := time.Now()

	if _, err := d.lookPath("dig"); err != nil {
		return d.fallbackLookup(ctx, target.Host, start)
	}

	cctx, cancel := context.WithTimeout(ctx, digTimeout)
	defer cancel()

	out, err := d.run(cctx, "dig", "+short", "+time=2", "+tries=1", "@"+server, target.Host)
	latency := float64(time.Since(start)) / float64(time.Millisecond)
	if cctx.Err() != nil {
		return Outcome{Success: false, Error: "Timeout"}
	}
	if err == nil && strings.TrimSpace(out) != "" {
		return Outcome{Success: true, LatencyMS: latency}
	}
	return Outcome{Success: false, LatencyMS: latency, Error: "DNS resolution failed"}
}

func (d *DNSChecker) fallbackLookup(ctx context.Context, host string, start time.Time) Outcome {
	if _, err := d.Resolver.LookupHost(ctx, host); err != nil {
		return Outcome{Success: false, Error: err.Error()}
	}
	latency := float64(time.Since(start)) / float64(time.Millisecond)
	return Outcome{Success: true, LatencyMS: latency}
}
