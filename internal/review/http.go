// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"codeproof/internal/finding"
	"codeproof/internal/logging"
	"codeproof/internal/observability"
	"codeproof/internal/resilience"
	"codeproof/internal/version"

	"go.uber.org/zap"
)

// DefaultBatchSize is the number of findings sent per request
const DefaultBatchSize = 25

const maxResponseBytes = 1 << 20

// Options configures an HTTPReviewer
type Options struct {
	EndpointURL string
	APIKey      string
	ProjectID   string
	BatchSize   int
	Client      *http.Client
	Retry       *resilience.RetryConfig
	Breaker     *resilience.CircuitBreaker
	Logger      *zap.SugaredLogger
	Observer    *observability.StandardObserver
}

// HTTPReviewer posts findings as JSON to a review endpoint
type HTTPReviewer struct {
	endpoint  string
	apiKey    string
	projectID string
	batchSize int
	client    *http.Client
	retry     resilience.RetryConfig
	breaker   *resilience.CircuitBreaker
	logger    *zap.SugaredLogger
	observer  *observability.StandardObserver
}

type reviewItem struct {
	FindingID string `json:"findingId"`
	RuleID    string `json:"ruleId"`
	Severity  string `json:"severity"`
	FilePath  string `json:"filePath"`
	Line      int    `json:"line"`
	Snippet   string `json:"snippet"`
	Message   string `json:"message"`
}

type reviewRequest struct {
	ProjectID string       `json:"projectId,omitempty"`
	Client    string       `json:"client"`
	Findings  []reviewItem `json:"findings"`
}

type reviewResponse struct {
	Decisions []finding.Decision `json:"decisions"`
}

// NewHTTPReviewer validates options and builds a reviewer
func NewHTTPReviewer(opts Options) (*HTTPReviewer, error) {
	endpoint := strings.TrimSpace(opts.EndpointURL)
	if endpoint == "" {
		return nil, fmt.Errorf("reviewer endpoint url is required")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("reviewer endpoint must be an http(s) url: %s", endpoint)
	}

	r := &HTTPReviewer{
		endpoint:  endpoint,
		apiKey:    opts.APIKey,
		projectID: opts.ProjectID,
		batchSize: opts.BatchSize,
		client:    opts.Client,
		breaker:   opts.Breaker,
		logger:    logging.OrNop(opts.Logger),
		observer:  opts.Observer,
	}
	if r.batchSize <= 0 {
		r.batchSize = DefaultBatchSize
	}
	if r.client == nil {
		r.client = &http.Client{}
	}
	if opts.Retry != nil {
		r.retry = *opts.Retry
	} else {
		r.retry = resilience.DefaultRetryConfig()
	}
	if r.breaker == nil {
		cfg := resilience.DefaultCircuitBreakerConfig("reviewer")
		cfg.OnStateChange = func(name string, from, to resilience.CircuitBreakerState) {
			r.logger.Warnw("review circuit changed state", "from", from, "to", to)
		}
		r.breaker = resilience.NewCircuitBreaker(cfg)
	}
	r.retry.OnRetry = func(attempt int, err error) {
		r.logger.Debugw("retrying review request", "attempt", attempt, "error", err)
	}
	return r, nil
}

// GetComponentName implements observability.Observable
func (r *HTTPReviewer) GetComponentName() string {
	return "reviewer"
}

// Review sends findings in batches. Any batch failure fails the whole review.
func (r *HTTPReviewer) Review(ctx context.Context, findings []finding.Finding) ([]finding.Decision, error) {
	var finishTiming func(bool, map[string]interface{})
	if r.observer != nil {
		finishTiming = r.observer.StartTiming(r.GetComponentName(), "review", r.endpoint)
	}

	known := make(map[string]bool, len(findings))
	for _, f := range findings {
		known[f.ID] = true
	}

	var decisions []finding.Decision
	var err error
	for start := 0; start < len(findings); start += r.batchSize {
		end := min(start+r.batchSize, len(findings))
		var batch []finding.Decision
		batch, err = resilience.RetryWithResult(ctx, r.retry, r.breaker, func(ctx context.Context) ([]finding.Decision, error) {
			return r.post(ctx, findings[start:end])
		})
		if err != nil {
			err = fmt.Errorf("review batch %d-%d: %w", start, end, err)
			break
		}
		decisions = append(decisions, batch...)
	}

	if finishTiming != nil {
		finishTiming(err == nil, map[string]interface{}{
			"findings":  len(findings),
			"decisions": len(decisions),
		})
	}
	if err != nil {
		return nil, err
	}
	return sanitize(decisions, known), nil
}

func (r *HTTPReviewer) post(ctx context.Context, findings []finding.Finding) ([]finding.Decision, error) {
	payload := reviewRequest{
		ProjectID: r.projectID,
		Client:    "codeproof/" + version.Short(),
		Findings:  make([]reviewItem, 0, len(findings)),
	}
	for _, f := range findings {
		payload.Findings = append(payload.Findings, reviewItem{
			FindingID: f.ID,
			RuleID:    f.RuleID,
			Severity:  string(f.Severity),
			FilePath:  f.FilePath,
			Line:      f.Line,
			Snippet:   f.RedactedSnippet(),
			Message:   f.Message,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode review request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, resilience.NewPermanentError("build review request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resilience.NewTransientError("read review response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resilience.NewStatusError(resp, truncate(string(data), 200))
	}

	var out reviewResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, resilience.NewPermanentError("decode review response", err)
	}
	return out.Decisions, nil
}

// sanitize drops decisions for findings that were not sent and clamps scores
func sanitize(decisions []finding.Decision, known map[string]bool) []finding.Decision {
	out := make([]finding.Decision, 0, len(decisions))
	for _, d := range decisions {
		if !known[d.FindingID] || strings.TrimSpace(d.Verdict) == "" {
			continue
		}
		d.Confidence = max(0, min(1, d.Confidence))
		out = append(out, d)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
