package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// RemoteConfig configures the remote bundle source
type RemoteConfig struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRemoteConfig returns remote source defaults for url
func DefaultRemoteConfig(url string) RemoteConfig {
	return RemoteConfig{
		URL:        url,
		Timeout:    10 * time.Second,
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}
}

// Remote fetches a JSON content bundle over HTTP
type Remote struct {
	cfg    RemoteConfig
	client *resty.Client
	log    *logging.Logger
}

// NewRemote creates a remote source
func NewRemote(cfg RemoteConfig, log *logging.Logger) *Remote {
	if log == nil {
		log = logging.Nop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.MinWait
	retryClient.RetryWaitMax = cfg.MaxWait
	retryClient.Logger = nil

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.MinWait).
		SetRetryMaxWaitTime(cfg.MaxWait).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "PatternLab-Content/1.0")
	client.SetTransport(retryClient.HTTPClient.Transport)

	return &Remote{cfg: cfg, client: client, log: log.Named("remote")}
}

// Fetch downloads and parses the bundle. A bundle is one content document,
// usually with an "exercises" list.
func (r *Remote) Fetch(ctx context.Context) ([]*types.Exercise, error) {
	resp, err := r.client.R().SetContext(ctx).Get(r.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch content bundle: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch content bundle: HTTP %d", resp.StatusCode())
	}

	exercises, err := Parse(resp.Body(), FormatJSON, "")
	if err != nil {
		return nil, err
	}
	r.log.Info("Fetched content bundle",
		zap.String("url", r.cfg.URL),
		zap.Int("exercises", len(exercises)),
		zap.Duration("elapsed", resp.Time()))
	return exercises, nil
}

// Sync fetches the bundle and registers it alongside existing content
func (r *Remote) Sync(ctx context.Context, m *Manager) (int, error) {
	exercises, err := r.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.Register(exercises...); err != nil {
		return 0, err
	}
	return len(exercises), nil
}
