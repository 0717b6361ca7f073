package geo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/TomasB/hostgeo/internal/httpx"
)

// DefaultAPIBase is the geo API used when none is configured.
const DefaultAPIBase = "http://192.168.10.222:5000"

// APIError is returned when the geo service reports a failure.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type apiData struct {
	Geo *Record `json:"geo"`
}

type apiResponse struct {
	Success bool     `json:"success"`
	Code    *int     `json:"code"`
	Message string   `json:"message"`
	Data    *apiData `json:"data"`
}

func (r *apiResponse) ok() bool {
	return (r.Success || (r.Code != nil && *r.Code == 200)) && r.Data != nil
}

// APIClient implements Lookup against the HTTP geo API (GET /ip?ip=<ipv4>).
type APIClient struct {
	base   string
	client httpx.Doer
}

// NewAPIClient creates a client for the geo API rooted at base.
func NewAPIClient(base string, client httpx.Doer) *APIClient {
	if base == "" {
		base = DefaultAPIBase
	}
	return &APIClient{base: strings.TrimRight(base, "/"), client: client}
}

// Lookup queries the geo API for ip.
func (c *APIClient) Lookup(ctx context.Context, ip net.IP) (*Record, error) {
	if ip == nil {
		return nil, &APIError{Message: "invalid IP address"}
	}

	URL := c.base + "/ip?" + url.Values{"ip": {ip.String()}}.Encode()
	resp, err := httpx.GetJSON[apiResponse](ctx, c.client, URL)
	if err != nil {
		var decodeErr *httpx.DecodeError
		if errors.As(err, &decodeErr) {
			return nil, &APIError{Message: "malformed geo API response"}
		}
		return nil, fmt.Errorf("geo lookup: %w", err)
	}

	if !resp.ok() {
		msg := resp.Message
		if msg == "" {
			msg = "API Error"
		}
		return nil, &APIError{Message: msg}
	}
	return resp.Data.Geo, nil
}

// Ready reports whether the configured base URL is usable.
func (c *APIClient) Ready() error {
	u, err := url.Parse(c.base)
	if err != nil {
		return fmt.Errorf("invalid geo API base: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid geo API base %q", c.base)
	}
	return nil
}
