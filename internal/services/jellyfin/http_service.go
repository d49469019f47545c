package jellyfin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"aaxsplit/internal/config"
)

// HTTPDoer describes the HTTP client used by the Jellyfin service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Refresher triggers a library rescan.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type noopRefresher struct{}

func (noopRefresher) Refresh(context.Context) error { return nil }

type httpService struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// NewConfiguredService returns an HTTP refresher when Jellyfin is enabled and
// has credentials, and a no-op otherwise.
func NewConfiguredService(cfg *config.Config) Refresher {
	if cfg == nil || !cfg.Jellyfin.Enabled {
		return noopRefresher{}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Jellyfin.URL), "/")
	apiKey := strings.TrimSpace(cfg.Jellyfin.APIKey)
	if baseURL == "" || apiKey == "" {
		return noopRefresher{}
	}
	return NewHTTPService(baseURL, apiKey, http.DefaultClient)
}

// NewHTTPService constructs an HTTP-backed Jellyfin refresher.
func NewHTTPService(baseURL, apiKey string, client HTTPDoer) Refresher {
	return &httpService{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  client,
	}
}

func (s *httpService) Refresh(ctx context.Context) error {
	if s == nil || s.client == nil || s.baseURL == "" || s.apiKey == "" {
		return nil
	}
	refreshURL := fmt.Sprintf("%s/Library/Refresh", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshURL, nil)
	if err != nil {
		return fmt.Errorf("build jellyfin refresh request: %w", err)
	}
	req.Header.Set("X-Emby-Token", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("refresh jellyfin library: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("jellyfin refresh returned %d", resp.StatusCode)
	}
	return nil
}
