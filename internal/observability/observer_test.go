// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStartTiming_DebugEmitsRecord(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	obs := NewStandardObserver(ObservabilityDebug, zap.New(core).Sugar())

	done := obs.StartTiming("engine", "scan_file", "/tmp/a.js")
	done(true, map[string]interface{}{"findings": 2})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["component"] != "engine" || ctx["operation"] != "scan_file" {
		t.Errorf("unexpected fields: %v", ctx)
	}
	if ctx["findings"] != int64(2) {
		t.Errorf("expected metadata to be flattened, got %v", ctx["findings"])
	}
}

func TestStartTiming_MetricsLevelIsSilent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	obs := NewStandardObserver(ObservabilityMetrics, zap.New(core).Sugar())

	obs.StartTiming("engine", "scan_file", "")(false, nil)

	if logs.Len() != 0 {
		t.Errorf("expected no output below debug level, got %d entries", logs.Len())
	}
}

func TestNilLoggerDisablesObserver(t *testing.T) {
	obs := NewStandardObserver(ObservabilityDebug, nil)
	if obs.Level() != ObservabilityOff {
		t.Errorf("expected observer without logger to be off, got %v", obs.Level())
	}
	obs.StartTiming("x", "y", "")(true, nil)
}
