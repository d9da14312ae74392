package twitter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx answer from the Twitter API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("twitter api: status=%d code=%d: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("twitter api: status=%d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether the API rejected the call for exceeding limits.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == 429 || e.Code == 88
}

// parseAPIError extracts the first {"errors":[{"code","message"}]} entry,
// falling back to the raw body.
func parseAPIError(statusCode int, body []byte) *APIError {
	out := &APIError{StatusCode: statusCode}

	var errResp struct {
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &errResp) == nil && len(errResp.Errors) > 0 {
		out.Code = errResp.Errors[0].Code
		out.Message = strings.TrimSpace(errResp.Errors[0].Message)
		return out
	}

	out.Message = strings.TrimSpace(string(body))
	if out.Message == "" {
		out.Message = "empty response"
	}
	return out
}
