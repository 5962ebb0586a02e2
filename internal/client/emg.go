package client

import (
	"context"
	"net/http"

	"calibri-dashboard/internal/model"
)

func (c *Client) SubmitSample(ctx context.Context, record model.SampleRecord) error {
	return c.do(ctx, http.MethodPost, "/api/emg/data", record, nil)
}

func (c *Client) Sessions(ctx context.Context) ([]model.SessionSummary, error) {
	var sessions []model.SessionSummary
	if err := c.do(ctx, http.MethodGet, "/api/emg/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) Health(ctx context.Context) (model.Health, error) {
	var health model.Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &health); err != nil {
		return model.Health{}, err
	}
	return health, nil
}
