package trail

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

func (c *Client) NewJSONRequest(ctx context.Context, method, path string, body any, opts ...RequestOption) (*http.Request, error) {
	opts2 := make([]RequestOption, 0, len(opts)+1)
	opts2 = append(opts2, WithJSON(body))
	opts2 = append(opts2, opts...)
	req, err := c.NewRequest(ctx, method, path, opts2...)
	if err != nil {
		return nil, err
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

// DecodeJSON decodes a JSON response body into dst and closes it. Synthetic
// failure responses decode too; their single "error" field carries the
// original failure message.
func DecodeJSON(resp *http.Response, dst any) error {
	if resp == nil || resp.Body == nil {
		return errors.New("nil response body")
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Ensure there's no extra non-whitespace payload.
	var extra any
	if err := dec.Decode(&extra); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if extra != nil {
		return errors.New("unexpected extra JSON value in response body")
	}
	return nil
}

// RecordJSON dispatches a JSON request through the recorder and decodes the
// response, synthetic or real, into T.
func RecordJSON[T any](c *Client, ctx context.Context, method, path string, body any, opts ...RequestOption) (T, *http.Response, error) {
	var out T
	req, err := c.NewJSONRequest(ctx, method, path, body, opts...)
	if err != nil {
		return out, nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return out, resp, err
	}
	if err := DecodeJSON(resp, &out); err != nil {
		var zero T
		return zero, resp, err
	}
	return out, resp, nil
}
