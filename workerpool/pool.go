// Package workerpool implements the fixed-size FIFO worker pool (C6) that
// the dispatcher, event publisher, and scheduler submit asynchronous work
// onto.
package workerpool

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// DefaultWorkers is the default number of pool worker goroutines.
const DefaultWorkers = 8

// Task is a unit of work submitted to the pool.
type Task func()

// Pool is a fixed-size pool of worker goroutines draining a FIFO queue.
// The queue is a channel buffered to 1024 tasks; it is not unbounded.
// Tasks queue up until a worker is free, and Submit blocks while the
// buffer is full.
type Pool struct {
	tasks   chan Task
	wg      sync.WaitGroup
	workers int

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a Pool with the given number of workers. A size <= 0 falls
// back to DefaultWorkers.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	p := &Pool{
		tasks:   make(chan Task, 1024),
		workers: workers,
		done:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
	return p
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		atomic.AddInt64(&queueDepth, -1)
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"worker": id,
						"panic":  r,
					}).Error("[workerpool] recovered from panic in task")
				}
			}()
			task()
		}()
	}
}

// Submit enqueues a task for asynchronous execution. The task is buffered
// in the queue and picked up by the next free worker; Submit returns without
// waiting for a worker unless the 1024-task buffer is full, in which case it
// blocks until a slot frees up. Submit on a pool that
// has already been stopped is a no-op; the task is dropped.
func (p *Pool) Submit(task Task) {
	select {
	case <-p.done:
		log.Warn("[workerpool] submit after stop, dropping task")
		return
	default:
	}

	// Guard the narrow race between the done check above and a concurrent
	// Stop() closing the channel: a panic from sending on a closed channel
	// is recovered and treated the same as the done-check rejection.
	atomic.AddInt64(&queueDepth, 1)
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&queueDepth, -1)
			log.Warn("[workerpool] submit raced with stop, dropping task")
		}
	}()
	p.tasks <- task
}

// Stop shuts the pool down. If drain is true, pending tasks in the queue are
// allowed to complete (graceful shutdown); if false, the queue is abandoned
// and only in-flight tasks finish (forced shutdown).
func (p *Pool) Stop(drain bool) {
	p.closeOnce.Do(func() {
		close(p.done)
		if !drain {
			// Drain the channel of whatever has not yet been picked up so
			// workers can observe the close promptly without running
			// abandoned work.
			go func() {
				for range p.tasks {
				}
			}()
		}
		close(p.tasks)
		p.wg.Wait()
	})
}
