// ABOUTME: Resolver probes candidate config URLs to discover a remote agent
// ABOUTME: Sequential probing with per-candidate timeouts, first valid response wins

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrEmptyBaseURL is returned when the configured service URL is blank.
var ErrEmptyBaseURL = errors.New("service URL is empty")

// probeTimeout bounds each individual candidate probe. A slow candidate
// must not starve the ones after it.
const probeTimeout = 5 * time.Second

// maxConfigBytes bounds how much of a config response is read.
const maxConfigBytes = 1 << 20

// NormalizeBaseURL trims whitespace and trailing slashes and supplies a
// scheme when none is given: http for loopback hosts, https otherwise.
func NormalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		hostport := trimmed
		if i := strings.IndexByte(hostport, '/'); i >= 0 {
			hostport = hostport[:i]
		}
		if isLoopbackHost(hostport) {
			trimmed = "http://" + trimmed
		} else {
			trimmed = "https://" + trimmed
		}
	}
	return strings.TrimRight(trimmed, "/"), nil
}

func isLoopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}
	return false
}

// Candidates returns the probe URLs for base, most specific first. The
// order is part of the contract: a well-known config beats an API config
// beats a root response.
func Candidates(base string) []string {
	return []string{
		base + "/.well-known/agent-config",
		base + "/api/agent-config",
		base,
	}
}

// Resolver discovers an agent's identity by probing its config endpoints.
type Resolver struct {
	httpc  *http.Client
	logger *slog.Logger
}

// NewResolver returns a resolver using httpc for probes. A nil httpc gets
// a default client; timeouts come from the per-candidate probe context. A
// nil logger falls back to slog.Default.
func NewResolver(httpc *http.Client, logger *slog.Logger) *Resolver {
	if httpc == nil {
		httpc = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		httpc:  httpc,
		logger: logger.With("component", "discovery"),
	}
}

// Resolve probes the candidate URLs for baseURL in order and returns the
// identity from the first acceptable response. Probes run sequentially,
// never concurrently. When every candidate fails, the returned error
// wraps the last failure together with the candidate that produced it.
// Resolve has no side effects beyond the probes themselves.
func (r *Resolver) Resolve(ctx context.Context, baseURL, token string) (*Identity, error) {
	base, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	var lastErr error
	var lastURL string
	for _, candidate := range Candidates(base) {
		ident, err := r.probe(ctx, candidate, token)
		if err == nil {
			r.logger.Info("agent discovered",
				"url", candidate,
				"agent", ident.Name,
				"version", ident.Version)
			return ident, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("discovery canceled: %w", ctx.Err())
		}
		r.logger.Debug("discovery candidate failed", "url", candidate, "error", err)
		lastErr = err
		lastURL = candidate
	}
	return nil, fmt.Errorf("no agent config found (last tried %s): %w", lastURL, lastErr)
}

func (r *Resolver) probe(ctx context.Context, url, token string) (*Identity, error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxConfigBytes))
	if err != nil {
		return nil, fmt.Errorf("probe %s: read body: %w", url, err)
	}
	ident, err := parseIdentity(body)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	return ident, nil
}
