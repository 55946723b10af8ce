package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// devtoolsTarget is one entry of the DevTools HTTP target list.
type devtoolsTarget struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// httpEndpoint turns ws:// debugger URLs into the matching http:// base.
func httpEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	switch {
	case strings.HasPrefix(endpoint, "ws://"):
		endpoint = "http://" + strings.TrimPrefix(endpoint, "ws://")
	case strings.HasPrefix(endpoint, "wss://"):
		endpoint = "https://" + strings.TrimPrefix(endpoint, "wss://")
	case !strings.Contains(endpoint, "://"):
		endpoint = "http://" + endpoint
	}
	if u, err := url.Parse(endpoint); err == nil {
		return u.Scheme + "://" + u.Host
	}
	return endpoint
}

func (b *Browser) listTargets(ctx context.Context) ([]devtoolsTarget, error) {
	var targets []devtoolsTarget
	if err := b.devtools(ctx, http.MethodGet, "/json/list", &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// openTarget creates a tab at rawURL. Recent Chrome versions require PUT.
func (b *Browser) openTarget(ctx context.Context, rawURL string) (devtoolsTarget, error) {
	var t devtoolsTarget
	err := b.devtools(ctx, http.MethodPut, "/json/new?"+url.QueryEscape(rawURL), &t)
	return t, err
}

func (b *Browser) devtools(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, b.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("devtools %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("devtools %s: %s: %s", path, resp.Status, strings.TrimSpace(string(payload)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode devtools %s: %w", path, err)
	}
	return nil
}

// pickTarget returns the first page whose URL contains one of domains.
func pickTarget(targets []devtoolsTarget, domains []string) (devtoolsTarget, bool) {
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		for _, d := range domains {
			if d != "" && strings.Contains(t.URL, d) {
				return t, true
			}
		}
	}
	return devtoolsTarget{}, false
}
