// Package analysis forwards stored messages to the downstream AI-analysis service.
package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"jan-server/services/helpdesk-api/internal/domain/ingest"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/infrastructure/metrics"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client implements ingest.Analyzer. The service may answer synchronously with an
// analysis body, or accept the request and post results back later.
type Client struct {
	httpClient *resty.Client
	url        string
}

var _ ingest.Analyzer = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	httpClient := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}
	return &Client{httpClient: httpClient, url: cfg.URL}
}

type analysisResponse struct {
	Urgency   *int   `json:"urgency"`
	Sentiment string `json:"sentiment"`
}

func (c *Client) Analyze(ctx context.Context, req ingest.AnalysisRequest) (*message.Analysis, error) {
	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.url)
	metrics.RecordExternalCall("analysis", "analyze", err == nil && !resp.IsError(), time.Since(start).Seconds())
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "analysis request failed", err, "4c8e2f16-9b3d-4a75-a0e6-7d1f5b9c3e21")
	}
	if resp.IsError() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "analysis service returned "+resp.Status(), nil, "4c8e2f16-9b3d-4a75-a0e6-7d1f5b9c3e22")
	}
	if resp.StatusCode() != http.StatusOK || len(resp.Body()) == 0 {
		return nil, nil
	}

	var body analysisResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "analysis response is not valid json", err, "4c8e2f16-9b3d-4a75-a0e6-7d1f5b9c3e23")
	}
	if body.Urgency == nil && body.Sentiment == "" {
		return nil, nil
	}
	return &message.Analysis{Urgency: body.Urgency, Sentiment: body.Sentiment}, nil
}
