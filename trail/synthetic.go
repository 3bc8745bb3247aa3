package trail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// syntheticResponse fabricates the minimal response handed back for a
// classified transport failure: a JSON {"error": message} body and an empty
// header map. No Content-Length header is set; views fall back to the body
// byte count, and ContentLength on the struct keeps io helpers honest.
func syntheticResponse(req *http.Request, status int, message string) *http.Response {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		payload = []byte(`{"error":"transport failure"}`)
	}
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		Body:          io.NopCloser(bytes.NewReader(payload)),
		ContentLength: int64(len(payload)),
		Request:       req,
	}
}

// attachedResponse digs a peer-produced response out of a failed call:
// either the response http.Client returned alongside the error, or one
// carried by a typed *Error.
func attachedResponse(resp *http.Response, err error) *http.Response {
	if resp != nil {
		return resp
	}
	if te, ok := AsError(err); ok && te.Response != nil {
		return te.Response
	}
	return nil
}

// synthesize converts a failed call into the response the recorder returns.
// The decision is first-match-wins:
//  1. connect and timeout failures become 408 Request Timeout
//  2. client-class failures keep their own status, else 400
//  3. server-class failures keep their own status, else 500
//  4. everything else becomes 500
//
// Responses the peer actually produced never reach here; attachedResponse
// short-circuits them in Do.
func (c *Client) synthesize(req *http.Request, err error) *http.Response {
	kind := classify(err)
	code := 0
	if te, ok := AsError(err); ok {
		code = te.StatusCode
	}
	status := statusFor(kind, code)
	log := c.logger()
	log.Error().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("kind", string(kind)).
		Int("status", status).
		Err(err).
		Msg("transport failure mapped to synthetic response")
	return syntheticResponse(req, status, err.Error())
}
