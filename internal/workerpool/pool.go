// Package workerpool runs a small set of long-lived pipeline stages —
// decode, render, encode — under one bounded, drainable goroutine
// group, instead of unmanaged goroutines the caller has to track by
// hand.
package workerpool

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/screenstudio/core/internal/logging"
)

var log = logging.L("workerpool")

// Task is one pipeline stage's run loop: decodeStage, renderStage, or
// encodeStage, each blocking until its input channel closes.
type Task func()

// Pool is a bounded goroutine pool with a fixed-size task queue.
type Pool struct {
	maxWorkers int
	queue      chan Task
	wg         sync.WaitGroup
	accepting  atomic.Bool
	stopOnce   sync.Once
	closeOnce  sync.Once
	stopChan   chan struct{}
}

// New creates a pool with maxWorkers goroutines and a task queue of
// queueSize, labeled for log output.
func New(maxWorkers, queueSize int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &Pool{
		maxWorkers: maxWorkers,
		queue:      make(chan Task, queueSize),
		stopChan:   make(chan struct{}),
	}
	p.accepting.Store(true)

	for i := 0; i < maxWorkers; i++ {
		go p.worker()
	}

	log.Info("stage pool started", "workers", maxWorkers, "queue_size", queueSize)
	return p
}

// Submit enqueues a stage task. Returns false if the pool is stopped
// or the queue is full.
// wg.Add is called here (before enqueue) to prevent a race with Drain.
func (p *Pool) Submit(task Task) bool {
	if !p.accepting.Load() {
		return false
	}

	p.wg.Add(1)
	select {
	case p.queue <- task:
		return true
	default:
		p.wg.Done() // undo the Add since task was not enqueued
		log.Warn("stage pool queue full, task rejected")
		return false
	}
}

// StopAccepting prevents new tasks from being submitted. Call before
// Drain once every pipeline stage has been Submit-ed.
func (p *Pool) StopAccepting() {
	p.accepting.Store(false)
}

// Drain waits for all in-flight and queued stage tasks to finish,
// respecting ctx's deadline — a stage exits once its own input channel
// closes, so Drain returning marks end-to-end pipeline completion.
// Drain also stops accepting new tasks, as StopAccepting does.
func (p *Pool) Drain(ctx context.Context) {
	p.accepting.Store(false)
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("stage pool drained")
	case <-ctx.Done():
		log.Warn("stage pool drain timed out")
	}

	// Close queue so worker goroutines exit and are not leaked.
	p.closeOnce.Do(func() {
		close(p.queue)
	})
}

func (p *Pool) worker() {
	for {
		select {
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			p.runTask(task)
		case <-p.stopChan:
			// Drain remaining queued tasks.
			for {
				select {
				case task, ok := <-p.queue:
					if !ok {
						return
					}
					p.runTask(task)
				default:
					return
				}
			}
		}
	}
}

// runTask executes a single stage with panic recovery: a crashed
// decode/render/encode goroutine must not take the whole pipeline down
// silently. wg.Done is called here to match the wg.Add in Submit.
func (p *Pool) runTask(task Task) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline stage panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}
