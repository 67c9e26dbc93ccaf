// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"codeproof/internal/finding"
	"codeproof/internal/observability"
)

// MaxWorkers caps the default pool size
const MaxWorkers = 8

// ParallelProcessor fans files out to a worker pool and restores canonical order
type ParallelProcessor struct {
	workers  int
	observer *observability.StandardObserver
}

// ProcessingStats tracks parallel processing statistics
type ProcessingStats struct {
	TotalFiles     int           `json:"total_files"`
	ProcessedFiles int           `json:"processed_files"`
	FailedFiles    int           `json:"failed_files"`
	TotalFindings  int           `json:"total_findings"`
	TotalDuration  time.Duration `json:"total_duration_ms"`
	WorkerCount    int           `json:"worker_count"`
	AvgFileTime    time.Duration `json:"avg_file_time_ms"`
}

// FileError records a file that could not be processed
type FileError struct {
	FilePath string
	Err      error
}

// NewParallelProcessor creates a processor. workers <= 0 picks NumCPU capped at MaxWorkers.
func NewParallelProcessor(workers int, observer *observability.StandardObserver) *ParallelProcessor {
	if workers <= 0 {
		workers = min(runtime.NumCPU(), MaxWorkers)
	}
	return &ParallelProcessor{
		workers:  workers,
		observer: observer,
	}
}

// ProgressCallback is called when a file is completed
type ProgressCallback func(completed, total int, currentFile string)

// ProcessFiles runs process over every file. Findings come back in canonical
// file-then-rule-then-offset order regardless of completion order.
func (pp *ParallelProcessor) ProcessFiles(ctx context.Context, filePaths []string, process ProcessFunc, progress ProgressCallback) ([]finding.Finding, []FileError, *ProcessingStats, error) {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if pp.observer != nil {
		finishTiming = pp.observer.StartTiming("parallel_processor", "process_files", "batch")
	}

	workers := min(pp.workers, max(len(filePaths), 1))
	pool := NewWorkerPool(ctx, workers, process, pp.observer)
	pool.Start()

	jobCount := len(filePaths)
	go func() {
		defer pool.CloseJobs()
		for i, filePath := range filePaths {
			if !pool.Submit(&Job{Index: i, FilePath: filePath, JobID: fmt.Sprintf("job_%d", i)}) {
				return
			}
		}
	}()

	var (
		all           []finding.Finding
		failures      []FileError
		processed     int
		totalDuration time.Duration
		ctxErr        error
	)

collect:
	for i := 0; i < jobCount; i++ {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		select {
		case result := <-pool.Results():
			if result.Error != nil {
				failures = append(failures, FileError{FilePath: result.FilePath, Err: result.Error})
				if pp.observer != nil {
					pp.observer.LogOperation(observability.StandardObservabilityData{
						Component: "parallel_processor",
						Operation: "file_processing",
						FilePath:  result.FilePath,
						Success:   false,
						Error:     result.Error.Error(),
					})
				}
			} else {
				all = append(all, result.Findings...)
				processed++
			}
			totalDuration += result.Duration
			if progress != nil {
				progress(i+1, jobCount, result.FilePath)
			}
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break collect
		}
	}

	pool.cancel()
	// drain so workers blocked on send can exit
	go func() {
		for range pool.Results() {
		}
	}()
	pool.Stop()

	finding.SortCanonical(all)

	overall := time.Since(start)
	stats := &ProcessingStats{
		TotalFiles:     jobCount,
		ProcessedFiles: processed,
		FailedFiles:    len(failures),
		TotalFindings:  len(all),
		TotalDuration:  overall,
		WorkerCount:    workers,
		AvgFileTime:    totalDuration / time.Duration(max(processed, 1)),
	}

	if finishTiming != nil {
		finishTiming(ctxErr == nil, map[string]interface{}{
			"total_files":     jobCount,
			"processed_files": processed,
			"total_findings":  len(all),
			"worker_count":    workers,
		})
	}

	if ctxErr != nil {
		return nil, failures, stats, ctxErr
	}
	return all, failures, stats, nil
}
