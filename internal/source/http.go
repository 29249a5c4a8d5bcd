package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"locator/internal/candidate"
	"locator/internal/metrics"
)

// HTTP 通过 GET 拉取 JSON 数组载荷
type HTTP struct {
	URL    string
	Client *http.Client
}

// NewHTTP client 为空时使用 10s 超时的默认客户端
func NewHTTP(url string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTP{URL: url, Client: client}
}

func (s *HTTP) Fetch(ctx context.Context) ([]candidate.Candidate, error) {
	t0 := time.Now()
	metrics.SourceRequestsTotal.WithLabelValues("http").Inc()
	cands, err := s.fetch(ctx)
	return instrument("http", t0, cands, err)
}

func (s *HTTP) fetch(ctx context.Context) ([]candidate.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return candidate.Decode(resp.Body)
}
