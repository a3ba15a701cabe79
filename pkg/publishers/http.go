package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/newspulse-hq/newspulse/internal/logger"
	"github.com/newspulse-hq/newspulse/pkg/httpclient"
)

// httpPublisher posts refresh events as JSON to a configured endpoint.
type httpPublisher struct {
	id      string
	url     string
	headers map[string]string
	client  httpclient.Client
	log     logger.Logger
}

// newHTTPPublisher creates an HTTP sink publisher.
func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second

	return &httpPublisher{
		id:      cfg.ID,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyClient(timeout),
		log:     ensureLogger(log),
	}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return TypeHTTP }

// Publish posts the refresh event to the configured endpoint.
func (p *httpPublisher) Publish(ctx context.Context, evt RefreshEvent) error {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range p.headers {
		headers[k] = v
	}

	resp, err := p.client.Post(ctx, p.url, headers, evt)
	if err != nil {
		p.log.ErrorObj("http publisher send failed", "publisher_http_error", map[string]any{
			"publisher": p.id,
			"error":     err.Error(),
		})
		return fmt.Errorf("post refresh event: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return fmt.Errorf("http sink %q returned status %d", p.id, resp.StatusCode())
	}

	p.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher": p.id,
		"category":  evt.Category,
	})
	return nil
}
