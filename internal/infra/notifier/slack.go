// Package notifier delivers the end-of-run summary to operators. The only
// channel is a Slack Incoming Webhook; an unset webhook URL turns the
// notifier into a no-op.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"pressfeed/internal/resilience/retry"
	"pressfeed/internal/usecase/ingest"
)

const (
	maxSectionTextLength = 3000
	truncationSuffix     = "..."
)

// SlackConfig configures the run summary webhook.
type SlackConfig struct {
	// WebhookURL is the Slack Incoming Webhook URL. Empty disables the
	// notifier.
	WebhookURL string

	// Timeout is the HTTP request timeout for one webhook call.
	Timeout time.Duration
}

// SlackNotifier posts one run summary message per ingestion cycle.
type SlackNotifier struct {
	cfg      SlackConfig
	client   *http.Client
	retryCfg retry.Config
}

// NewSlackNotifier creates a notifier for the given webhook configuration.
func NewSlackNotifier(cfg SlackConfig) *SlackNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SlackNotifier{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		retryCfg: retry.Config{MaxAttempts: 2, InitialDelay: 5 * time.Second, MaxDelay: 10 * time.Second, Multiplier: 2},
	}
}

// Enabled reports whether a webhook URL is configured.
func (s *SlackNotifier) Enabled() bool {
	return s.cfg.WebhookURL != ""
}

// NotifyRunSummary posts the run summary. It is a no-op when no webhook is
// configured. Delivery failure is returned to the caller for logging; it
// never affects the run outcome.
func (s *SlackNotifier) NotifyRunSummary(ctx context.Context, sum ingest.Summary) error {
	if !s.Enabled() {
		return nil
	}

	payload, err := json.Marshal(buildSummaryPayload(sum))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	return retry.WithBackoff(ctx, s.retryCfg, func() error {
		return s.post(ctx, payload)
	})
}

func (s *SlackNotifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &retry.HTTPError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("slack webhook: %s", string(body)),
	}
}

// webhookPayload is the Slack Block Kit message shape.
type webhookPayload struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks"`
}

type block struct {
	Type     string       `json:"type"`
	Text     *textObject  `json:"text,omitempty"`
	Elements []textObject `json:"elements,omitempty"`
}

type textObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// buildSummaryPayload renders the run summary as one section block with the
// counters and one context block with per-feed failures, if any.
func buildSummaryPayload(sum ingest.Summary) webhookPayload {
	fallback := fmt.Sprintf("Ingestion run: %d saved, %d feeds failed", sum.Saved, len(sum.FailedFeeds))

	var b strings.Builder
	fmt.Fprintf(&b, "*Ingestion run completed* in %s\n\n", sum.Duration.Round(time.Second))
	fmt.Fprintf(&b, "Feeds: %d (%d failed)\n", sum.Feeds, len(sum.FailedFeeds))
	fmt.Fprintf(&b, "Entries fetched: %d, stale: %d\n", sum.Fetched, sum.Stale)
	fmt.Fprintf(&b, "Duplicates: %d stored, %d in-run, %d on insert\n",
		sum.AlreadyStored, sum.DuplicateInRun, sum.DuplicateOnInsert)
	fmt.Fprintf(&b, "Errors: %d classify, %d storage\n", sum.CategorizeErrors, sum.DBErrors)
	fmt.Fprintf(&b, "*Saved: %d*", sum.Saved)
	if len(sum.Categories) > 0 {
		b.WriteString(" (")
		b.WriteString(formatCategories(sum.Categories))
		b.WriteString(")")
	}

	sectionText := b.String()
	if len(sectionText) > maxSectionTextLength {
		sectionText = sectionText[:maxSectionTextLength-len(truncationSuffix)] + truncationSuffix
	}

	blocks := []block{{
		Type: "section",
		Text: &textObject{Type: "mrkdwn", Text: sectionText},
	}}

	if len(sum.FailedFeeds) > 0 {
		var f strings.Builder
		f.WriteString("Failed feeds: ")
		for i, ff := range sum.FailedFeeds {
			if i > 0 {
				f.WriteString(", ")
			}
			f.WriteString(ff.Feed)
			if ff.Deactivated {
				f.WriteString(" (deactivated)")
			}
		}
		blocks = append(blocks, block{
			Type:     "context",
			Elements: []textObject{{Type: "mrkdwn", Text: f.String()}},
		})
	}

	return webhookPayload{Text: fallback, Blocks: blocks}
}

// formatCategories renders the histogram in stable, descending order.
func formatCategories(categories map[string]int) string {
	type kv struct {
		name  string
		count int
	}
	pairs := make([]kv, 0, len(categories))
	for name, count := range categories {
		pairs = append(pairs, kv{name, count})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].name < pairs[j].name
	})

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s: %d", p.name, p.count))
	}
	return strings.Join(parts, ", ")
}
