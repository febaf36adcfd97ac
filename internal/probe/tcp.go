package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/netradar/netradar/internal/domain"
)

const (
	tcpTimeout     = 5 * time.Second
	defaultTCPPort = 80
)

// TCPChecker measures how long a raw stream connect takes. Connect
// failures are classified into DNS failure, timeout, or refusal.
type TCPChecker struct {
	Dialer *net.Dialer
}

func NewTCPChecker() *TCPChecker {
	return &TCPChecker{Dialer: &net.Dialer{Timeout: tcpTimeout}}
}

func (c *TCPChecker) Check(ctx context.Context, target domain.Target) Outcome {
	port := target.Port
	if port == 0 {
		port = defaultTCPPort
	}
	addr := net.JoinHostPort(target.Host, strconv.Itoa(port))

	start := time.Now()
	conn, err := c.Dialer.DialContext(ctx, "tcp", addr)
	latency := float64(time.Since(start)) / float64(time.Millisecond)
	if err == nil {
		conn.Close()
		return Outcome{Success: true, LatencyMS: latency}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Outcome{Success: false, Error: "DNS resolution failed: " + dnsErr.Error()}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Outcome{Success: false, Error: "Timeout"}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		// The refused case keeps the raw connect error code, the way
		// connect(2) reports it.
		return Outcome{
			Success:   false,
			LatencyMS: latency,
			Error:     fmt.Sprintf("Connection refused (error: %d)", int(errno)),
		}
	}

	return Outcome{Success: false, Error: err.Error()}
}
