// Package httpx contains the small GET helpers shared by the DNS-over-HTTPS
// resolvers, the geo API client and the flag fetcher.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// NetworkError reports a transport-level failure: the request could not be sent,
// the body could not be read, or the server answered with an unexpected status.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError reports a successful exchange whose body is not the expected JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Doer is the subset of *http.Client used here.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GetJSON sends a GET request and decodes the JSON body into Output.
//
// The body is decoded whatever the status code, since JSON APIs often describe
// their failures in the body. A body that cannot be decoded is a *DecodeError on
// a 2xx status and a *NetworkError otherwise.
func GetJSON[Output any](ctx context.Context, client Doer, URL string) (Output, error) {
	var output Output

	status, body, err := get(ctx, client, URL, "application/json")
	if err != nil {
		return output, err
	}

	if err := json.Unmarshal(body, &output); err != nil {
		var zero Output
		if status < 200 || status > 299 {
			return zero, &NetworkError{URL: URL, Err: fmt.Errorf("unexpected status %d", status)}
		}
		return zero, &DecodeError{URL: URL, Err: err}
	}
	return output, nil
}

// GetRaw sends a GET request and returns the body of a 200 response.
func GetRaw(ctx context.Context, client Doer, URL string) ([]byte, error) {
	status, body, err := get(ctx, client, URL, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &NetworkError{URL: URL, Err: fmt.Errorf("unexpected status %d", status)}
	}
	return body, nil
}

func get(ctx context.Context, client Doer, URL, accept string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
	if err != nil {
		return 0, nil, &NetworkError{URL: URL, Err: err}
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{URL: URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, &NetworkError{URL: URL, Err: err}
	}
	return resp.StatusCode, body, nil
}
