package supervisor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
)

const (
	probeBaseInterval   = 100 * time.Millisecond
	probeMaxInterval    = time.Second
	probeRequestTimeout = time.Second
)

// probeReadiness polls GET /health on the plugin port until it answers 2xx,
// backing off exponentially between attempts. It fails once deadline elapses,
// ctx is cancelled, or the process exits. A zero deadline fails immediately.
func probeReadiness(ctx context.Context, port int, deadline time.Duration, exited <-chan struct{}) error {
	if deadline <= 0 {
		return fmt.Errorf("%w: readiness deadline is zero", errno.ErrReadinessTimeout)
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	client := &http.Client{Timeout: probeRequestTimeout}
	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)

	interval := probeBaseInterval
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
		}

		select {
		case <-exited:
			return fmt.Errorf("%w: process exited before becoming ready", errno.ErrCrashDetected)
		case <-ctx.Done():
			return fmt.Errorf("%w: no healthy answer on port %d within %s", errno.ErrReadinessTimeout, port, deadline)
		case <-time.After(interval):
		}

		interval *= 2
		if interval > probeMaxInterval {
			interval = probeMaxInterval
		}
	}
}
