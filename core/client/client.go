/*
Package client provides easy and fast access to the homesense REST api

A client created with NewWithRouter does not marshal HTTP, it talks directly to the
mux router. This is perfectly suited for unit tests. A client created with NewWithURL
talks HTTP to a remote backend.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

// Client provides easy access to the REST API.
type Client struct {
	router *mux.Router
	rest   *resty.Client
	ctx    context.Context

	defaultHeaders map[string]string
}

// Error is returned when the backend answers with an unexpected status code
type Error struct {
	Status   int
	Expected int
	// Message is the message of the response body, or the raw body if it
	// was not a message response
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("handler returned wrong status code: got %v want %v. Error: %s", e.Status, e.Expected, e.Message)
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
//
// WithContext() specifies a different base context all together.
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router:         router,
		defaultHeaders: map[string]string{},
	}
}

// NewWithURL creates a client to make REST requests to the backend at url
func NewWithURL(url string) Client {
	return Client{
		rest: resty.New().
			SetBaseURL(strings.TrimSuffix(url, "/")).
			SetTimeout(20*time.Second).
			SetHeader("Accept", "application/json"),
		defaultHeaders: map[string]string{},
	}
}

// WithHeader returns a new client with a default header added
func (c Client) WithHeader(key string, value string) Client {
	headers := make(map[string]string, len(c.defaultHeaders)+1)
	for k, v := range c.defaultHeaders {
		headers[k] = v
	}
	headers[key] = value
	c.defaultHeaders = headers
	return c
}

// WithContext returns a new client with specified context
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the client's context
func (c Client) Context() context.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do executes one request. body is marshalled to JSON unless it is a []byte.
func (c Client) do(method, path string, header map[string]string, body interface{}) (*response, error) {
	var data []byte
	if body != nil {
		var ok bool
		if data, ok = body.([]byte); !ok {
			var err error
			data, err = json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("%s to %s: %w", method, path, err)
			}
		}
	}

	if c.router != nil {
		r, err := http.NewRequestWithContext(c.Context(), method, path, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		for key, value := range c.defaultHeaders {
			r.Header.Add(key, value)
		}
		for key, value := range header {
			r.Header.Add(key, value)
		}
		if data != nil {
			r.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res := rec.Result()
		return &response{status: res.StatusCode, header: res.Header, body: rec.Body.Bytes()}, nil
	}

	req := c.rest.R().
		SetContext(c.Context()).
		SetHeaders(c.defaultHeaders).
		SetHeaders(header)
	if data != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(data)
	}
	res, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s to %s: %w", method, path, err)
	}
	return &response{status: res.StatusCode(), header: res.Header(), body: res.Body()}, nil
}

// decode checks the status of res and unmarshals the body into result.
// result can be a raw *[]byte or nil.
func (res *response) decode(result interface{}, expected ...int) error {
	for _, s := range expected {
		if res.status == s {
			if len(res.body) == 0 || result == nil {
				return nil
			}
			if raw, ok := result.(*[]byte); ok {
				*raw = res.body
				return nil
			}
			return json.Unmarshal(res.body, result)
		}
	}
	message := strings.TrimSpace(string(res.body))
	var m struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(res.body, &m) == nil && m.Message != "" {
		message = m.Message
	}
	return &Error{Status: res.status, Expected: expected[0], Message: message}
}

// RawGet gets the resource from path. Expects http.StatusOK as response, otherwise it will
// flag an error. Returns the actual http status code.
//
// The path can be extend with query strings.
//
// result can be a struct, a slice or a raw *[]byte.
// result can be nil.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	status, _, err := c.RawGetWithHeader(path, nil, result)
	return status, err
}

// RawGetWithHeader gets the resource from path. Expects http.StatusOK as response, otherwise it will
// flag an error. A response http.StatusNotModified is not an error. Returns the actual http status
// code and the header.
func (c Client) RawGetWithHeader(path string, header map[string]string, result interface{}) (int, http.Header, error) {
	res, err := c.do(http.MethodGet, path, header, nil)
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	if res.status == http.StatusNotModified {
		return res.status, res.header, nil
	}
	return res.status, res.header, res.decode(result, http.StatusOK)
}

// RawPostWithHeader posts a resource to path. Expects http.StatusCreated or http.StatusOK as
// response, otherwise it will flag an error. Returns the actual http status code.
//
// body can also be a []byte, result can also be raw *[]byte.
// result can be nil.
func (c Client) RawPostWithHeader(path string, headers map[string]string, body interface{}, result interface{}) (int, error) {
	res, err := c.do(http.MethodPost, path, headers, body)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return res.status, res.decode(result, http.StatusCreated, http.StatusOK)
}

// RawPost posts a resource to path. Expects http.StatusCreated as response, otherwise it will
// flag an error. Returns the actual http status code.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	return c.RawPostWithHeader(path, nil, body, result)
}

// RawPut puts a partial resource to path. Expects http.StatusOK as response, otherwise it will
// flag an error. Returns the actual http status code.
//
// body can also be a []byte, result can also be raw *[]byte.
// result can be nil.
func (c Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	res, err := c.do(http.MethodPut, path, nil, body)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return res.status, res.decode(result, http.StatusOK)
}

// RawDelete deletes the resource at path. Expects http.StatusOK as response, otherwise it will
// flag an error. Returns the actual http status code.
func (c Client) RawDelete(path string) (int, error) {
	res, err := c.do(http.MethodDelete, path, nil, nil)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return res.status, res.decode(nil, http.StatusOK)
}
