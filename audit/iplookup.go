package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// IPLookup resolves the public address of the caller.
type IPLookup interface {
	Lookup(ctx context.Context) (string, error)
}

// HTTPIPLookup queries an ipify compatible endpoint returning {"ip": "..."}.
type HTTPIPLookup struct {
	URL    string
	Client *http.Client
}

func NewHTTPIPLookup(url string) *HTTPIPLookup {
	return &HTTPIPLookup{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (l *HTTPIPLookup) Lookup(ctx context.Context) (string, error) {
	if l.URL == "" {
		return "", fmt.Errorf("ip lookup disabled")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ip lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup returned %d", resp.StatusCode)
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode ip lookup: %w", err)
	}
	return body.IP, nil
}
