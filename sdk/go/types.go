package sdk

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"shanyrakkit/core"
)

// Shanyrak mirrors the public JSON surface of core.Shanyrak.
type Shanyrak struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Color   string    `json:"color"`
	Points  int64     `json:"points"`
	Members int64     `json:"members"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// ErrEmptyID is returned when a shanyrak id is empty.
var ErrEmptyID = errors.New("shanyrak id is required")

func decodeJSON(resp *http.Response, target any) error {
	if err := apiError(resp); err != nil {
		return err
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// apiError translates a non-2xx response body ({"error": "..."}) into a
// kinded error so callers can use core.IsNotFound etc.
func apiError(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return core.Invalidf("%s", msg)
	case http.StatusNotFound:
		return core.NotFoundf("%s", msg)
	case http.StatusConflict:
		return core.Conflictf("%s", msg)
	default:
		return core.Internalf("%s", msg)
	}
}
