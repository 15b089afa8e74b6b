package common

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

type StatusError struct {
	Name string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("error code %d returned from %v", e.Code, e.Name)
	}
	return fmt.Sprintf("error code %d returned from %v: %s", e.Code, e.Name, e.Body)
}

// Get performs a single request; failed calls are not retried.
// On success the caller owns the response body.
func Get(client *http.Client, req *http.Request, name string) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error on %v api request: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Name: name, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}
