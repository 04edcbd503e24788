package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req/v3"

	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// apiError is the Crowdin error envelope. Single errors arrive as
// {"error": {...}}, validation failures as {"errors": [...]}.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Errors []struct {
		Error struct {
			Key    string `json:"key"`
			Errors []struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"errors"`
		} `json:"error"`
	} `json:"errors"`
}

func (e *apiError) message() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}
	var parts []string
	for _, ve := range e.Errors {
		for _, inner := range ve.Error.Errors {
			parts = append(parts, fmt.Sprintf("%s: %s (%s)", ve.Error.Key, inner.Message, inner.Code))
		}
	}
	return strings.Join(parts, "; ")
}

// KindForStatus maps an HTTP status to an error kind.
func KindForStatus(status int) syncerr.Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return syncerr.KindAuth
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return syncerr.KindTransient
	case status >= 400:
		return syncerr.KindValidation
	default:
		return syncerr.KindUnknown
	}
}

// handleAPIError classifies the outcome of a request. It returns nil for a
// success response.
func handleAPIError(resp *req.Response, requestErr error, op, key string, body *apiError) error {
	if requestErr != nil {
		if errors.Is(requestErr, context.Canceled) || errors.Is(requestErr, context.DeadlineExceeded) {
			return &syncerr.Error{Kind: syncerr.KindCancelled, Op: op, Key: key, Err: requestErr}
		}
		return &syncerr.Error{Kind: syncerr.KindTransient, Op: op, Key: key, Err: fmt.Errorf("http request error: %w", requestErr)}
	}
	if !resp.IsErrorState() {
		return nil
	}

	status := resp.GetStatusCode()
	msg := http.StatusText(status)
	if body != nil {
		if m := body.message(); m != "" {
			msg = m
		}
	}
	e := &syncerr.Error{Kind: KindForStatus(status), Op: op, Key: key, Err: fmt.Errorf("status %d: %s", status, msg)}
	switch e.Kind {
	case syncerr.KindAuth:
		e.Hint = "check CROWDIN_API_TOKEN and its project scopes"
	case syncerr.KindValidation:
		if strings.Contains(msg, "notUnique") {
			e.Hint = "a resource with this name already exists"
		}
	}
	return e
}
