// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"time"

	"go.uber.org/zap"
)

// Observable is implemented by components that report timings under a stable name
type Observable interface {
	GetComponentName() string
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// StandardObserver records operation timings through the structured logger
type StandardObserver struct {
	level  ObservabilityLevel
	logger *zap.SugaredLogger
}

// NewStandardObserver creates an observer. A nil logger disables output.
func NewStandardObserver(level ObservabilityLevel, logger *zap.SugaredLogger) *StandardObserver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
		level = ObservabilityOff
	}
	return &StandardObserver{
		level:  level,
		logger: logger,
	}
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, filePath string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		o.LogOperation(StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			FilePath:   filePath,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		})
	}
}

// LogOperation logs operation data. Only debug level emits records.
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o == nil || o.level != ObservabilityDebug {
		return
	}

	fields := []interface{}{
		"component", data.Component,
		"operation", data.Operation,
		"success", data.Success,
		"duration_ms", data.DurationMs,
	}
	if data.FilePath != "" {
		fields = append(fields, "file_path", data.FilePath)
	}
	if data.MatchCount > 0 {
		fields = append(fields, "match_count", data.MatchCount)
	}
	if data.Error != "" {
		fields = append(fields, "error", data.Error)
	}
	for k, v := range data.Metadata {
		fields = append(fields, k, v)
	}
	o.logger.Debugw("operation", fields...)
}

// Level reports the configured level
func (o *StandardObserver) Level() ObservabilityLevel {
	if o == nil {
		return ObservabilityOff
	}
	return o.level
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	FilePath   string                 `json:"file_path,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	MatchCount int                    `json:"match_count,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
