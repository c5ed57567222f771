// Package uptime pushes liveness heartbeats to an Uptime Kuma push
// endpoint: one "up" signal after a successful run, one "down" signal when
// the run as a whole failed.
package uptime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type pushResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

// Client pushes to a single Uptime Kuma push URL.
type Client struct {
	pushURL string
	http    *http.Client
}

// New returns a Client for the given push URL. httpClient may be nil, in
// which case http.DefaultClient is used.
func New(pushURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{pushURL: pushURL, http: httpClient}
}

// Up signals a successful run.
func (c *Client) Up(ctx context.Context, message string) error {
	return c.push(ctx, "up", message)
}

// Down signals a failed run.
func (c *Client) Down(ctx context.Context, message string) error {
	return c.push(ctx, "down", message)
}

func (c *Client) push(ctx context.Context, status, message string) error {
	params := url.Values{}
	params.Set("status", status)
	params.Set("msg", message)

	rq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pushURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	rs, err := c.http.Do(rq)
	if err != nil {
		return fmt.Errorf("pushing uptime status: %w", err)
	}
	defer rs.Body.Close()

	body, err := io.ReadAll(rs.Body)
	if err != nil {
		return fmt.Errorf("pushing uptime status: %w", err)
	}

	switch rs.StatusCode {
	case http.StatusOK:
		var resp pushResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("uptime endpoint returned an unreadable 200 response: %w", err)
		}
		if !resp.OK {
			return fmt.Errorf("uptime endpoint returned a 200, but response content indicates an error")
		}
		return nil
	case http.StatusNotFound:
		var resp pushResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("uptime endpoint returned an unreadable 404 response: %w", err)
		}
		if resp.OK {
			return fmt.Errorf("uptime endpoint returned a 404, but response content indicates success")
		}
		return fmt.Errorf("uptime endpoint returned a 404: %s", resp.Msg)
	default:
		return fmt.Errorf("uptime endpoint returned unexpected status code %d", rs.StatusCode)
	}
}
