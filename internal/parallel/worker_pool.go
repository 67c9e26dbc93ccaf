// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeproof/internal/finding"
	"codeproof/internal/observability"
)

// ProcessFunc scans a single file
type ProcessFunc func(ctx context.Context, job *Job) ([]finding.Finding, error)

// WorkerPool runs file jobs on a fixed number of goroutines
type WorkerPool struct {
	workers  int
	jobs     chan *Job
	results  chan *Result
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	process  ProcessFunc
	observer *observability.StandardObserver
}

// Job represents a file processing task. Index is the file's position in
// the resolved target list and drives the canonical ordering.
type Job struct {
	Index    int
	FilePath string
	JobID    string
}

// Result represents processing results
type Result struct {
	JobID    string
	Index    int
	FilePath string
	Findings []finding.Finding
	Error    error
	Duration time.Duration
}

// NewWorkerPool creates a pool bound to ctx
func NewWorkerPool(ctx context.Context, workers int, process ProcessFunc, observer *observability.StandardObserver) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workers:  workers,
		jobs:     make(chan *Job, workers*2),
		results:  make(chan *Result, workers*2),
		ctx:      ctx,
		cancel:   cancel,
		process:  process,
		observer: observer,
	}
}

// Start initializes worker goroutines
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for workers to drain and releases the pool
func (wp *WorkerPool) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Submit adds a job to the queue. It returns false once the pool is cancelled.
func (wp *WorkerPool) Submit(job *Job) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// CloseJobs signals that no more jobs will be submitted
func (wp *WorkerPool) CloseJobs() {
	close(wp.jobs)
}

// Results returns the results channel
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

// Workers returns the pool size
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job *Job, workerID int) *Result {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if wp.observer != nil {
		finishTiming = wp.observer.StartTiming("worker_pool", "process_job", job.FilePath)
	}

	findings, err := wp.safeProcess(job)
	duration := time.Since(start)

	if finishTiming != nil {
		finishTiming(err == nil, map[string]interface{}{
			"worker_id": workerID,
			"job_id":    job.JobID,
			"findings":  len(findings),
		})
	}

	return &Result{
		JobID:    job.JobID,
		Index:    job.Index,
		FilePath: job.FilePath,
		Findings: findings,
		Error:    err,
		Duration: duration,
	}
}

// safeProcess turns a panic in one file into a per-file error
func (wp *WorkerPool) safeProcess(job *Job) (findings []finding.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s: %v", job.FilePath, r)
			findings = nil
		}
	}()
	return wp.process(wp.ctx, job)
}
