package mode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

const maxResponseBytes = 1 << 20

// HTTPClassifier calls a remote analyzer endpoint.
//
// Request:  {"text": "...", "message": "...", "mode": "analyze"}
// Response: {"isSpecialized": true} or the legacy {"therapy": true}.
type HTTPClassifier struct {
	url    string
	client *http.Client
}

// NewHTTPClassifier creates a classifier that posts to url. A nil client
// uses http.DefaultClient; deadlines come from the request context.
func NewHTTPClassifier(url string, client *http.Client) *HTTPClassifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClassifier{url: url, client: client}
}

// Classify implements Classifier.
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(map[string]string{
		"text":    text,
		"message": text,
		"mode":    "analyze",
	})
	if err != nil {
		return Result{}, classificationError("mode.http", fmt.Errorf("encoding request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, classificationError("mode.http", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, classificationError("mode.http", fmt.Errorf("calling classifier: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, classificationError("mode.http", fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, classificationError("mode.http", fmt.Errorf("classifier returned status %d", resp.StatusCode))
	}

	return parseVerdict(data)
}

// parseVerdict reads isSpecialized, falling back to the legacy therapy key.
func parseVerdict(data []byte) (Result, error) {
	if !gjson.ValidBytes(data) {
		return Result{}, classificationError("mode.http", fmt.Errorf("response is not JSON"))
	}

	for _, key := range []string{"isSpecialized", "specialized", "therapy"} {
		v := gjson.GetBytes(data, key)
		if !v.Exists() {
			continue
		}
		if v.Type != gjson.True && v.Type != gjson.False {
			return Result{}, classificationError("mode.http", fmt.Errorf("%s must be a boolean, got %s", key, v.Raw))
		}
		return Result{Specialized: v.Bool(), Reason: gjson.GetBytes(data, "reason").String()}, nil
	}
	return Result{}, classificationError("mode.http", fmt.Errorf("response has no verdict"))
}
