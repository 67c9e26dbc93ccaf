// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"context"
	"fmt"
	"time"

	"codeproof/internal/finding"
	"codeproof/internal/logging"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a whole review, retries included
const DefaultTimeout = 5 * time.Second

// Reviewer returns verdicts for a set of findings. Implementations may
// return decisions for a subset of the findings.
type Reviewer interface {
	Review(ctx context.Context, findings []finding.Finding) ([]finding.Decision, error)
}

// ReviewerFunc adapts a function to Reviewer
type ReviewerFunc func(ctx context.Context, findings []finding.Finding) ([]finding.Decision, error)

func (f ReviewerFunc) Review(ctx context.Context, findings []finding.Finding) ([]finding.Decision, error) {
	return f(ctx, findings)
}

// FailOpen runs r under timeout. On any failure it returns no decisions, so
// the baseline severities stand. The error is returned for reporting only.
func FailOpen(ctx context.Context, r Reviewer, findings []finding.Finding, timeout time.Duration, logger *zap.SugaredLogger) ([]finding.Decision, error) {
	logger = logging.OrNop(logger)
	if r == nil || len(findings) == 0 {
		return nil, nil
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	decisions, err := safeReview(ctx, r, findings)
	if err != nil {
		logger.Warnw("secondary review unavailable, keeping baseline severities",
			"findings", len(findings), "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		logger.Warnw("secondary review exceeded its deadline, keeping baseline severities", "timeout", timeout)
		return nil, err
	}
	return decisions, nil
}

func safeReview(ctx context.Context, r Reviewer, findings []finding.Finding) (decisions []finding.Decision, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			decisions = nil
			err = fmt.Errorf("reviewer panic: %v", rec)
		}
	}()
	return r.Review(ctx, findings)
}
