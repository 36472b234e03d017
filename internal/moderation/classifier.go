package moderation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ErrClassifierUnavailable marks an endpoint that is disabled, unreachable,
// timed out, or answered non-2xx. It means "abstain", never "low
// confidence"; callers must not treat it as a verdict.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// ClassifierScore is the external scoring service's answer for one text.
type ClassifierScore struct {
	Confidence float64
	// ModelTime is the service's model mtime, shown in removal notices so
	// reviewers can tell which model version scored the message.
	ModelTime int64
}

// Classifier talks to the external anti-spam scoring service. An empty URL
// disables it entirely; Score then abstains without touching the network.
type Classifier struct {
	url    string
	client *http.Client
}

// NewClassifier creates a gateway for the given endpoint URL. Pass an empty
// URL to disable scoring.
func NewClassifier(url string, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Classifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Classifier) Enabled() bool { return c.url != "" }

// Score submits the text for scoring. Any transport or protocol failure is
// reported as ErrClassifierUnavailable.
func (c *Classifier) Score(ctx context.Context, text string) (ClassifierScore, error) {
	if !c.Enabled() {
		return ClassifierScore{}, ErrClassifierUnavailable
	}

	body, err := c.do(ctx, http.MethodPost, text)
	if err != nil {
		return ClassifierScore{}, err
	}

	// The service has been seen returning odd payloads; only accept a
	// numeric confidence.
	confidence := gjson.GetBytes(body, "spam_confidence")
	if confidence.Type != gjson.Number {
		return ClassifierScore{}, fmt.Errorf("%w: no numeric spam_confidence in response", ErrClassifierUnavailable)
	}
	return ClassifierScore{
		Confidence: confidence.Float(),
		ModelTime:  gjson.GetBytes(body, "mtime").Int(),
	}, nil
}

// MarkNotSpam sends a negative training signal for the text.
func (c *Classifier) MarkNotSpam(ctx context.Context, text string) error {
	_, err := c.do(ctx, http.MethodDelete, text)
	return err
}

// MarkSpam sends a positive training signal for the text.
func (c *Classifier) MarkSpam(ctx context.Context, text string) error {
	_, err := c.do(ctx, http.MethodPatch, text)
	return err
}

func (c *Classifier) do(ctx context.Context, method, text string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrClassifierUnavailable
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("encode classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrClassifierUnavailable, method, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrClassifierUnavailable, err)
	}
	return body, nil
}
