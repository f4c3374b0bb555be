package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBodyBytes bounds how much of a failure body is read for diagnostics.
const maxErrorBodyBytes = 8 * 1024

// defaultCallTimeout applies when a request carries no explicit budget.
const defaultCallTimeout = 120 * time.Second

// postJSON sends a JSON payload and returns the response body on 2xx.
// Non-2xx statuses and transport failures come back as *Error.
func postJSON(ctx context.Context, httpClient *http.Client, id ID, url string, headers map[string]string, payload any, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, transportError(id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, statusError(id, resp.StatusCode, errBody)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(id, err)
	}
	return data, nil
}
