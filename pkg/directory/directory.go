// Package directory looks up candidates and courses in the core platform.
package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"

	"certhub/config"
)

var ErrNotFound = errors.New("directory: not found")

// Candidate as returned by the platform.
type Candidate struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Course as returned by the platform.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Client REST client for the platform's directory endpoints.
type Client struct {
	http *resty.Client
}

// NewClient builds a client with bearer auth and one retry on 5xx.
func NewClient(cfg *config.DirectoryConfig) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(1).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}
	return &Client{http: c}
}

// envelope matches the platform's {data: ...} wrapper.
type envelope[T any] struct {
	Data T `json:"data"`
}

func get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var out envelope[T]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("directory request %s: %w", path, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.IsError():
		return nil, fmt.Errorf("directory request %s: status %d", path, resp.StatusCode())
	}
	return &out.Data, nil
}

// GetCandidate resolves a candidate by id.
func (c *Client) GetCandidate(ctx context.Context, id string) (*Candidate, error) {
	return get[Candidate](ctx, c, "/candidates/"+url.PathEscape(id))
}

// GetCourse resolves a course by id.
func (c *Client) GetCourse(ctx context.Context, id string) (*Course, error) {
	return get[Course](ctx, c, "/courses/"+url.PathEscape(id))
}
