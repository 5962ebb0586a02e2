package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"calibri-dashboard/internal/model"
)

func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) EMGData(ctx context.Context, limit int) ([]model.EMGRecord, error) {
	if limit <= 0 {
		return nil, &ValidationError{Field: "limit", Message: "Limit must be positive"}
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var records []model.EMGRecord
	if err := c.do(ctx, http.MethodGet, "/api/admin/emg-data?"+q.Encode(), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	if err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, &stats); err != nil {
		return model.Stats{}, err
	}
	return stats, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", id), nil, nil)
}
