// Package classifier calls an external zero-shot text-classification
// inference endpoint to assign each entry a topic category.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"pressfeed/internal/domain/entity"
	"pressfeed/internal/resilience/retry"
	"pressfeed/internal/utils/text"
)

// maxErrorBodyBytes bounds how much of an error response is read for logging.
const maxErrorBodyBytes = 4 << 10

// errorLogLength is the character budget for an error message carried in a
// log line or wrapped error. Inference gateways return whole HTML error
// pages; markup is stripped before truncation so the budget is spent on the
// actual message.
const errorLogLength = 200

// ErrNoLabels is returned when the service responds 200 but without a ranked
// label list.
var ErrNoLabels = errors.New("classification response contains no labels")

// ZeroShot is a client for a zero-shot classification endpoint. One request
// carries the input text and the full candidate label set; the response ranks
// the labels by confidence.
//
// The wire shape is the Hugging Face inference convention:
//
//	POST { "inputs": "...", "parameters": { "candidate_labels": [...] } }
//	200  { "labels": ["Sports", ...], "scores": [0.93, ...] }
type ZeroShot struct {
	endpoint string
	token    string
	client   *http.Client
	retryCfg retry.Config
	labels   []string
}

// NewZeroShot creates a classifier client. The bearer token is supplied
// out-of-band (environment configuration); the label set is fixed at
// construction and sent with every request.
func NewZeroShot(endpoint, token string, timeout time.Duration) *ZeroShot {
	return &ZeroShot{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		retryCfg: retry.ClassifierConfig(),
		labels:   entity.Categories,
	}
}

// WithRetryConfig overrides the retry policy and returns the client.
// Production code keeps the default; tests use it to shrink delays.
func (z *ZeroShot) WithRetryConfig(cfg retry.Config) *ZeroShot {
	z.retryCfg = cfg
	return z
}

// request/response mirror the inference endpoint's JSON contract.
type request struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

type response struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classify submits the concatenated title and summary and returns the
// top-ranked label. The call is retried under the classifier retry policy;
// an error after the attempt budget is exhausted means the entry should be
// skipped, not persisted uncategorized.
func (z *ZeroShot) Classify(ctx context.Context, title, summary string) (string, error) {
	input := title
	if summary != "" {
		input = title + ". " + summary
	}

	var category string
	err := retry.WithBackoff(ctx, z.retryCfg, func() error {
		label, attemptErr := z.classifyOnce(ctx, input)
		if attemptErr != nil {
			return attemptErr
		}
		category = label
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("classify %q: %w", text.Truncate(title, 60), err)
	}
	return category, nil
}

func (z *ZeroShot) classifyOnce(ctx context.Context, input string) (string, error) {
	body, err := json.Marshal(request{
		Inputs:     input,
		Parameters: parameters{CandidateLabels: z.labels},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if z.token != "" {
		req.Header.Set("Authorization", "Bearer "+z.token)
	}

	resp, err := z.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call classification service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		message := text.Truncate(text.StripTags(string(raw)), errorLogLength)
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: message}
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Labels) == 0 {
		return "", ErrNoLabels
	}
	return parsed.Labels[0], nil
}
