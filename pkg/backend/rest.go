package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/acorn-io/dns-converge/pkg/model"
)

// restClient is the JSON-over-HTTP plumbing shared by the REST adapters.
type restClient struct {
	name    string
	baseURL string
	client  *http.Client

	// authorize decorates every request with credentials.
	authorize func(ctx context.Context, req *http.Request) error

	// checkBody inspects a response before the status check. Providers that
	// report errors inside 2xx bodies return them from here.
	checkBody func(status int, body []byte) error
}

func (c *restClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request body: %w", c.name, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorize != nil {
		if err := c.authorize(ctx, req); err != nil {
			return err
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s %s: %w", c.name, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: %s %s: reading response: %w", c.name, method, path, err)
	}

	if c.checkBody != nil {
		if err := c.checkBody(resp.StatusCode, data); err != nil {
			return fmt.Errorf("%s: %s %s: %w", c.name, method, path, err)
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s: %s %s returned status %d", model.ErrUnauthorized, c.name, method, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s: %s %s returned status %d: %s", model.ErrProviderAPI, c.name, method, path, resp.StatusCode, truncate(data))
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s: decode %s %s response: %w", c.name, method, path, err)
		}
	}
	return nil
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
