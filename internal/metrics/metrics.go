// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package metrics collects per-run Prometheus metrics. A CLI run is short
// lived, so metrics are written to a node-exporter textfile instead of served.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeproof/internal/finding"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "codeproof"

// Collector owns a private registry and the run metrics registered on it
type Collector struct {
	registry *prometheus.Registry

	filesScanned    prometheus.Counter
	filesSkipped    prometheus.Counter
	findings        *prometheus.CounterVec
	reviewDecisions *prometheus.CounterVec
	reviewFailures  prometheus.Counter
	secretsMoved    prometheus.Counter
	replacements    prometheus.Counter
	backupFailures  prometheus.Counter
	scanDuration    prometheus.Histogram
}

// NewCollector creates a collector with every metric registered
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.filesScanned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_scanned_total",
		Help:      "Files read and evaluated by the rule engine",
	})
	c.filesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_skipped_total",
		Help:      "Files that could not be read during a scan",
	})
	c.findings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "findings_total",
		Help:      "Findings after merge, by final severity and rule category",
	}, []string{"severity", "category"})
	c.reviewDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "review_decisions_total",
		Help:      "Secondary review decisions applied, by verdict",
	}, []string{"verdict"})
	c.reviewFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "review_failures_total",
		Help:      "Secondary reviews that failed open",
	})
	c.secretsMoved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "secrets_moved_total",
		Help:      "Secret values moved into the environment file",
	})
	c.replacements = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replacements_total",
		Help:      "Literal occurrences rewritten to environment references",
	})
	c.backupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backup_failures_total",
		Help:      "Files that could not be backed up before remediation",
	})
	c.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Wall time of the scan pipeline",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	c.registry.MustRegister(
		c.filesScanned,
		c.filesSkipped,
		c.findings,
		c.reviewDecisions,
		c.reviewFailures,
		c.secretsMoved,
		c.replacements,
		c.backupFailures,
		c.scanDuration,
	)
	return c
}

// Registry exposes the underlying registry for tests and custom exporters
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordScan records file counts and the pipeline duration
func (c *Collector) RecordScan(scanned, skipped int, duration time.Duration) {
	if c == nil {
		return
	}
	c.filesScanned.Add(float64(scanned))
	c.filesSkipped.Add(float64(skipped))
	c.scanDuration.Observe(duration.Seconds())
}

// RecordFindings counts findings by severity and by the namespace of their rule id
func (c *Collector) RecordFindings(findings []finding.Finding) {
	if c == nil {
		return
	}
	for _, f := range findings {
		c.findings.WithLabelValues(string(f.Severity), Category(f.RuleID)).Inc()
	}
}

// RecordDecisions counts applied review decisions
func (c *Collector) RecordDecisions(reviewed []finding.Reviewed) {
	if c == nil {
		return
	}
	for _, rv := range reviewed {
		c.reviewDecisions.WithLabelValues(string(finding.ParseSeverity(rv.Decision.Verdict))).Inc()
	}
}

// RecordReviewFailure counts a review that failed open
func (c *Collector) RecordReviewFailure() {
	if c == nil {
		return
	}
	c.reviewFailures.Inc()
}

// RecordRemediation records the outcome of a move-secret run
func (c *Collector) RecordRemediation(secretsMoved, replacements, backupFailures int) {
	if c == nil {
		return
	}
	c.secretsMoved.Add(float64(secretsMoved))
	c.replacements.Add(float64(replacements))
	c.backupFailures.Add(float64(backupFailures))
}

// WriteTextfile writes the registry in the text exposition format. The
// parent directory is created when missing.
func (c *Collector) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// Category returns the rule namespace, e.g. "secret" for "secret.github_token"
func Category(ruleID string) string {
	if i := strings.IndexByte(ruleID, '.'); i > 0 {
		return ruleID[:i]
	}
	return "other"
}
