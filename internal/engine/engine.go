// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codeproof/internal/finding"
	"codeproof/internal/logging"
	"codeproof/internal/observability"
	"codeproof/internal/parallel"
	"codeproof/internal/rules"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures an Engine
type Options struct {
	Rules    *rules.Set
	Workers  int
	NewID    func() string
	Logger   *zap.SugaredLogger
	Observer *observability.StandardObserver
}

// Engine applies the rule catalog to files
type Engine struct {
	rules     *rules.Set
	ruleList  []rules.RuleDefinition
	processor *parallel.ParallelProcessor
	newID     func() string
	logger    *zap.SugaredLogger
	observer  *observability.StandardObserver
}

// Result partitions findings by how they may be classified
type Result struct {
	// Findings are trusted outright and keep their baseline severity
	Findings []finding.Finding
	// Escalations keep a baseline severity but may be overridden by a Decision
	Escalations []finding.Finding

	FilesScanned int
	Skipped      []parallel.FileError
	Stats        *parallel.ProcessingStats
}

// All returns findings followed by escalations, each in canonical order
func (r *Result) All() []finding.Finding {
	out := make([]finding.Finding, 0, len(r.Findings)+len(r.Escalations))
	out = append(out, r.Findings...)
	return append(out, r.Escalations...)
}

// New creates an engine with the default catalog unless one is supplied
func New(opts Options) *Engine {
	set := opts.Rules
	if set == nil {
		set = rules.Default()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Engine{
		rules:     set,
		ruleList:  set.Rules(),
		processor: parallel.NewParallelProcessor(opts.Workers, opts.Observer),
		newID:     newID,
		logger:    logging.OrNop(opts.Logger),
		observer:  opts.Observer,
	}
}

// GetComponentName implements observability.Observable
func (e *Engine) GetComponentName() string {
	return "rule_engine"
}

// Scan reads every file once and applies all rules. Unreadable files are
// skipped and listed in Result.Skipped.
func (e *Engine) Scan(ctx context.Context, files []string) (*Result, error) {
	process := func(ctx context.Context, job *parallel.Job) ([]finding.Finding, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(job.FilePath)
		if err != nil {
			return nil, err
		}
		return e.ScanContent(job.FilePath, job.Index, string(data)), nil
	}

	all, failures, stats, err := e.processor.ProcessFiles(ctx, files, process, nil)
	if err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}
	for _, f := range failures {
		e.logger.Warnw("skipping unreadable file", "path", f.FilePath, "error", f.Err)
	}

	result := &Result{
		FilesScanned: stats.ProcessedFiles,
		Skipped:      failures,
		Stats:        stats,
	}
	for _, f := range all {
		if e.ruleList[f.RuleIndex].Escalates() {
			result.Escalations = append(result.Escalations, f)
		} else {
			result.Findings = append(result.Findings, f)
		}
	}
	return result, nil
}

type span struct{ start, end int }

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// ScanContent applies rules in catalog order. A span claimed by an earlier
// rule is never reported again by a later one.
func (e *Engine) ScanContent(path string, fileIndex int, content string) []finding.Finding {
	var finishTiming func(bool, map[string]interface{})
	if e.observer != nil {
		finishTiming = e.observer.StartTiming(e.GetComponentName(), "scan_content", path)
	}

	absPath := path
	if abs, err := filepath.Abs(path); err == nil {
		absPath = abs
	}

	lines := newLineIndex(content)
	var claimed []span
	var findings []finding.Finding

	for ruleIndex, rule := range e.ruleList {
		for _, loc := range rule.Pattern.FindAllStringIndex(content, -1) {
			s := span{loc[0], loc[1]}
			if s.start == s.end || overlapsAny(claimed, s) {
				continue
			}
			claimed = append(claimed, s)

			findings = append(findings, finding.Finding{
				ID:         e.newID(),
				RuleID:     rule.ID,
				Severity:   rule.Severity,
				Confidence: rule.BaseConfidence,
				FilePath:   absPath,
				Line:       lines.line(s.start),
				Snippet:    extractSnippet(content, s.start, s.end),
				Message:    rule.Message,
				Match:      content[s.start:s.end],
				FileIndex:  fileIndex,
				RuleIndex:  ruleIndex,
				Offset:     s.start,
			})
		}
	}

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{"findings": len(findings)})
	}
	return findings
}

func overlapsAny(claimed []span, s span) bool {
	for _, c := range claimed {
		if c.overlaps(s) {
			return true
		}
	}
	return false
}
