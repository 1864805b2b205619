package converge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

const probeTimeout = time.Second

// Prober asks hostname whether it is served by this instance.
type Prober interface {
	IsOurs(ctx context.Context, hostname string, port int, instanceID string) (bool, error)
}

// HTTPProber posts the instance id to the api-server behind hostname. Only
// the api-server started with the same id answers 204.
type HTTPProber struct {
	client *http.Client
}

func NewHTTPProber() *HTTPProber {
	return &HTTPProber{client: &http.Client{Timeout: probeTimeout}}
}

func ProbeURL(hostname string, port int, instanceID string) string {
	return fmt.Sprintf("http://%s/.instance-id/%s", net.JoinHostPort(hostname, strconv.Itoa(port)), instanceID)
}

func (p *HTTPProber) IsOurs(ctx context.Context, hostname string, port int, instanceID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ProbeURL(hostname, port, instanceID), nil)
	if err != nil {
		return false, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusNoContent, nil
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
