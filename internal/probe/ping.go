package probe

import (
	"context"
	"errors"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/netradar/netradar/internal/domain"
)

const defaultPingCount = 3

var (
	winAvgRe  = regexp.MustCompile(`(?i)Average\s*=\s*(\d+)\s*ms`)
	winTimeRe = regexp.MustCompile(`(?i)time[=<](\d+)\s*ms`)
)

// PingChecker shells out to the platform ping utility and parses the
// average round-trip time from its summary output.
type PingChecker struct {
	Count int

	// run is swappable in tests; it executes the ping command and
	// returns combined stdout plus the process error.
	run func(ctx context.Context, name string, args ...string) (string, error)
}

func NewPingChecker() *PingChecker {
	return &PingChecker{
		Count: defaultPingCount,
		run: func(ctx context.Context, name string, args ...string) (string, error) {
			out, err := exec.CommandContext(ctx, name, args...).Output()
			return string(out), err
		},
	}
}

func (p *PingChecker) Check(ctx context.Context, target domain.Target) Outcome {
	count := p.Count
	if count <= 0 {
		count = defaultPingCount
	}

	var args []string
	overall := 10 * time.Second
	if runtime.GOOS == "windows" {
		// -n count, -w per-echo timeout in milliseconds
		args = []string{"-n", strconv.Itoa(count), "-w", "2000", target.Host}
		overall = 15 * time.Second
	} else {
		// -c count, -W per-echo timeout in seconds
		args = []string{"-c", strconv.Itoa(count), "-W", "2", target.Host}
	}

	cctx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	out, err := p.run(cctx, "ping", args...)
	if err != nil {
		if cctx.Err() != nil {
			return Outcome{Success: false, Error: "Timeout"}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Outcome{Success: false, Error: "Host unreachable"}
		}
		return Outcome{Success: false, Error: err.Error()}
	}

	if avg, ok := parsePingLatency(out); ok {
		return Outcome{Success: true, LatencyMS: avg}
	}
	// Clean exit but unparseable summary: still up, latency unknown.
	return Outcome{Success: true, LatencyMS: 0}
}

// parsePingLatency tries, in order: the slash-delimited rtt summary line
// (min/avg/max), the Windows "Average = N ms" line, and finally an
// average over individual "time=N ms" samples.
func parsePingLatency(out string) (float64, bool) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "avg") && !strings.Contains(line, "rtt") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		fields := strings.Split(strings.TrimSpace(parts[1]), "/")
		if len(fields) >= 2 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64); err == nil {
				return v, true
			}
		}
	}

	if m := winAvgRe.FindStringSubmatch(out); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}

	if ms := winTimeRe.FindAllStringSubmatch(out, -1); len(ms) > 0 {
		var sum float64
		for _, m := range ms {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return 0, false
			}
			sum += v
		}
		return sum / float64(len(ms)), true
	}

	return 0, false
}
