// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"time"

	"codeproof/internal/config"
	"codeproof/internal/engine"
	"codeproof/internal/finding"
	"codeproof/internal/logging"
	"codeproof/internal/merge"
	"codeproof/internal/metrics"
	"codeproof/internal/observability"
	"codeproof/internal/report"
	"codeproof/internal/review"
	"codeproof/internal/rules"
	"codeproof/internal/suppressions"
	"codeproof/internal/targets"

	"go.uber.org/zap"
)

// ScanConfig holds configuration for scanning operations.
type ScanConfig struct {
	Root   string
	Config *config.Config
	// ScanMode overrides Config.ScanMode when set
	ScanMode config.ScanMode
	Staged   targets.StagedLister
	Rules    *rules.Set

	// Reviewer is consulted for escalations when features.ai_escalation is on
	Reviewer review.Reviewer
	// Suppressions, when non-nil and enabled, filters findings before review
	Suppressions *suppressions.SuppressionManager
	Metrics      *metrics.Collector

	// WriteReport persists the report when features.reporting is on
	WriteReport bool

	Logger   *zap.SugaredLogger
	Observer *observability.StandardObserver

	Now   func() time.Time
	NewID func() string
}

// ScanResult holds the engine output after severity overrides
type ScanResult struct {
	Root        string
	Files       []string
	Findings    []finding.Finding
	Escalations []finding.Finding
	Engine      *engine.Result
}

// All returns findings and escalations together in canonical order
func (r *ScanResult) All() []finding.Finding {
	out := make([]finding.Finding, 0, len(r.Findings)+len(r.Escalations))
	out = append(out, r.Findings...)
	out = append(out, r.Escalations...)
	finding.SortCanonical(out)
	return out
}

// AuditResult is everything a run produced
type AuditResult struct {
	Scan       *ScanResult
	Merge      merge.Result
	Suppressed []finding.Suppressed
	Expired    []finding.Suppressed
	ReviewErr  error
	Report     *report.Report
	ReportPath string
	Duration   time.Duration
}

// Blocked reports whether any blocking finding survived review
func (r *AuditResult) Blocked() bool {
	return r.Merge.Blocked()
}

func (sc ScanConfig) config() *config.Config {
	if sc.Config != nil {
		return sc.Config
	}
	return config.Default()
}

func (sc ScanConfig) mode() config.ScanMode {
	if sc.ScanMode != "" {
		return sc.ScanMode
	}
	return sc.config().ScanMode
}

// ScanProject resolves targets, runs the rule engine and applies the
// configured severity overrides.
func ScanProject(ctx context.Context, sc ScanConfig) (*ScanResult, error) {
	cfg := sc.config()
	logger := logging.OrNop(sc.Logger)

	resolver, err := targets.NewResolver(targets.Options{
		Root:            sc.Root,
		Mode:            sc.mode(),
		MaxFileSize:     cfg.Scan.MaxFileSizeBytes,
		ExcludePatterns: cfg.Scan.ExcludePatterns,
		Staged:          sc.Staged,
		Logger:          logger,
		Observer:        sc.Observer,
	})
	if err != nil {
		return nil, err
	}

	files, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scan targets: %w", err)
	}
	logger.Debugw("resolved scan targets", "mode", sc.mode(), "files", len(files))

	eng := engine.New(engine.Options{
		Rules:    sc.Rules,
		Workers:  cfg.Scan.Workers,
		NewID:    sc.NewID,
		Logger:   logger,
		Observer: sc.Observer,
	})
	res, err := eng.Scan(ctx, files)
	if err != nil {
		return nil, err
	}

	overrides := cfg.SeverityOverrides()
	return &ScanResult{
		Root:        resolver.Root(),
		Files:       files,
		Findings:    overrides.Apply(res.Findings),
		Escalations: overrides.Apply(res.Escalations),
		Engine:      res,
	}, nil
}

// RunAudit is the full pre-commit pipeline: scan, suppress, review, merge
// and report. It never exits the process; callers map the result to an exit
// code.
func RunAudit(ctx context.Context, sc ScanConfig) (*AuditResult, error) {
	start := time.Now()
	cfg := sc.config()
	logger := logging.OrNop(sc.Logger)

	scan, err := ScanProject(ctx, sc)
	if err != nil {
		return nil, err
	}

	findings, escalations := scan.Findings, scan.Escalations
	var suppressed, expired []finding.Suppressed
	if sc.Suppressions != nil && sc.Suppressions.IsEnabled() {
		kept := sc.Suppressions.Filter(findings)
		keptEsc := sc.Suppressions.Filter(escalations)
		findings, escalations = kept.Kept, keptEsc.Kept
		suppressed = append(kept.Suppressed, keptEsc.Suppressed...)
		expired = append(kept.Expired, keptEsc.Expired...)
		if len(suppressed) > 0 {
			logger.Debugw("findings suppressed", "count", len(suppressed))
		}
	}

	var (
		decisions []finding.Decision
		reviewErr error
	)
	if cfg.Features.AIEscalation && sc.Reviewer != nil && len(escalations) > 0 {
		decisions, reviewErr = review.FailOpen(ctx, sc.Reviewer, escalations, cfg.Reviewer.Timeout, logger)
		if reviewErr != nil {
			sc.Metrics.RecordReviewFailure()
		}
		decisions = escalatedOnly(decisions, escalations, logger)
	}

	baseline := make([]finding.Finding, 0, len(findings)+len(escalations))
	baseline = append(baseline, findings...)
	baseline = append(baseline, escalations...)
	finding.SortCanonical(baseline)

	merged := merge.Merge(baseline, decisions)

	result := &AuditResult{
		Scan:       scan,
		Merge:      merged,
		Suppressed: suppressed,
		Expired:    expired,
		ReviewErr:  reviewErr,
	}

	result.Report = report.Build(report.Input{
		Root:         scan.Root,
		ProjectID:    cfg.ProjectID,
		ProjectType:  cfg.ProjectType,
		ScanMode:     string(sc.mode()),
		Merge:        merged,
		Suppressed:   suppressed,
		Expired:      expired,
		FilesScanned: scan.Engine.FilesScanned,
		Skipped:      scan.Engine.Skipped,
		ReviewErr:    reviewErr,
		Now:          sc.Now,
		NewID:        sc.NewID,
	})

	if sc.WriteReport && cfg.Features.Reporting {
		path, err := report.Write(result.Report, scan.Root)
		if err != nil {
			logger.Warnw("failed to write report", "error", err)
		} else {
			result.ReportPath = path
		}
	}

	result.Duration = time.Since(start)
	sc.Metrics.RecordScan(scan.Engine.FilesScanned, len(scan.Engine.Skipped), result.Duration)
	sc.Metrics.RecordFindings(append(append([]finding.Finding{}, merged.BlockFindings...), merged.WarnFindings...))
	sc.Metrics.RecordDecisions(merged.AIReviewed)

	return result, nil
}

// escalatedOnly drops decisions for findings that were never sent for review.
// Deterministic findings keep their baseline classification whatever the
// reviewer answers.
func escalatedOnly(decisions []finding.Decision, escalations []finding.Finding, logger *zap.SugaredLogger) []finding.Decision {
	if len(decisions) == 0 {
		return decisions
	}
	sent := make(map[string]bool, len(escalations))
	for _, f := range escalations {
		sent[f.ID] = true
	}
	kept := make([]finding.Decision, 0, len(decisions))
	for _, d := range decisions {
		if !sent[d.FindingID] {
			logger.Debugw("ignoring decision for finding that was not escalated", "finding", d.FindingID)
			continue
		}
		kept = append(kept, d)
	}
	return kept
}
