package interceptor

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 1 << 20

// APIError is a non-2xx response from the server.
type APIError struct {
	Status      int
	Code        string
	Description string
	Body        []byte
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("server responded %d: %s: %s", e.Status, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("server responded %d: %s", e.Status, e.Code)
	case e.Description != "":
		return fmt.Sprintf("server responded %d: %s", e.Status, e.Description)
	default:
		return fmt.Sprintf("server responded %d %s", e.Status, http.StatusText(e.Status))
	}
}

// errorBody covers both the GNAP error object and the flat error shape
// used by resource servers.
type errorBody struct {
	Error *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// ExtractError turns non-2xx responses into an *APIError. The response
// body is consumed and closed.
func ExtractError() ResponseFunc {
	return func(resp *http.Response) (*http.Response, error) {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		apiErr := &APIError{Status: resp.StatusCode}
		if resp.Body != nil {
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			_ = resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read error response: %w", err)
			}
			apiErr.Body = body

			var eb errorBody
			if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
				if eb.Error != nil {
					apiErr.Code = eb.Error.Code
					apiErr.Description = eb.Error.Description
				} else {
					apiErr.Code = eb.Code
					apiErr.Description = eb.Description
					if apiErr.Description == "" {
						apiErr.Description = eb.Message
					}
				}
			}
		}
		return nil, apiErr
	}
}
