package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/netradar/netradar/internal/domain"
)

const httpTimeout = 10 * time.Second

// HTTPChecker issues a GET and treats any 2xx/3xx as success. Redirects
// are followed by the default client policy.
type HTTPChecker struct {
	Client *http.Client
}

// NewHTTPChecker builds a checker. verifyTLS=false skips certificate
// validation, for deployments that monitor self-signed endpoints.
func NewHTTPChecker(verifyTLS bool) *HTTPChecker {
	transport := http.DefaultTransport
	if !verifyTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &HTTPChecker{
		Client: &http.Client{
			Timeout:   httpTimeout,
			Transport: transport,
		},
	}
}

func (h *HTTPChecker) Check(ctx context.Context, target domain.Target) Outcome {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.Host, nil)
	if err != nil {
		return Outcome{Success: false, Error: err.Error()}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Outcome{Success: false, Error: "Timeout"}
		}
		return Outcome{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	latency := float64(time.Since(start)) / float64(time.Millisecond)
	details := &domain.HTTPDetails{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return Outcome{Success: true, LatencyMS: latency, Details: details}
	}
	return Outcome{
		Success:   false,
		LatencyMS: latency,
		Error:     fmt.Sprintf("HTTP %d", resp.StatusCode),
		Details:   details,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
