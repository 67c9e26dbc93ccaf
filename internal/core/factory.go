// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"os"

	"codeproof/internal/config"
	"codeproof/internal/observability"
	"codeproof/internal/paths"
	"codeproof/internal/review"
	"codeproof/internal/suppressions"

	"go.uber.org/zap"
)

// BuildReviewer constructs the HTTP reviewer from config. It returns nil
// when escalation is disabled or no endpoint is configured.
func BuildReviewer(cfg *config.Config, logger *zap.SugaredLogger, observer *observability.StandardObserver) (review.Reviewer, error) {
	if cfg == nil || !cfg.Features.AIEscalation || cfg.Reviewer.EndpointURL == "" {
		return nil, nil
	}

	var apiKey string
	if cfg.Reviewer.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.Reviewer.APIKeyEnv)
		if apiKey == "" && logger != nil {
			logger.Warnw("reviewer api key variable is empty", "variable", cfg.Reviewer.APIKeyEnv)
		}
	}

	r, err := review.NewHTTPReviewer(review.Options{
		EndpointURL: cfg.Reviewer.EndpointURL,
		APIKey:      apiKey,
		ProjectID:   cfg.ProjectID,
		BatchSize:   cfg.Reviewer.BatchSize,
		Logger:      logger,
		Observer:    observer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure reviewer: %w", err)
	}
	return r, nil
}

// LoadSuppressions opens the project suppression file. A missing file
// yields an empty manager.
func LoadSuppressions(root string) (*suppressions.SuppressionManager, error) {
	return suppressions.NewSuppressionManager(paths.SuppressionsFile(root), root)
}
