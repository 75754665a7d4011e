package gatectl

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// isPortBusy reports whether something accepts TCP connections on addr.
func isPortBusy(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// hostPort extracts host:port from a base URL, defaulting the port by scheme.
func hostPort(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", base)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// waitHTTP polls url until it answers with want or ctx is done.
func waitHTTP(ctx context.Context, url string, want int, every time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == want {
				return nil
			}
			logger.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("not ready")
		}
		select {
		case <-time.After(every):
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s to return %d", url, want)
		}
	}
}
