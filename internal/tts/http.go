package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody limits how much of an error response is kept for logging
const maxErrorBody = 512

// httpResponse is a fully read provider response
type httpResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// postJSON sends payload as JSON and reads the whole response body
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload interface{}) (*httpResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &httpResponse{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// ok reports a 2xx status
func (r *httpResponse) ok() bool {
	return r.Status >= 200 && r.Status < 300
}

// isJSON reports whether the body was declared as JSON
func (r *httpResponse) isJSON() bool {
	return strings.HasPrefix(r.ContentType, "application/json")
}

// statusError builds a diagnostic error from a non-success response
func (r *httpResponse) statusError() error {
	snippet := r.Body
	if len(snippet) > maxErrorBody {
		snippet = snippet[:maxErrorBody]
	}
	return fmt.Errorf("API returned status %d: %s", r.Status, strings.TrimSpace(string(snippet)))
}
