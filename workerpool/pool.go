// Package workerpool runs queues of fallible jobs on a bounded number of
// goroutines.
package workerpool

import "sync"

// Job is a single unit of work submitted to a Pool.
type Job func() error

// Pool distributes jobs across a fixed number of worker goroutines.
// Jobs may be added from multiple goroutines.
type Pool struct {
	workers int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Job
	pending int
	err     error
	stopped bool
}

// New starts a pool with the given number of workers.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{workers: workers}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		err := job()

		p.mu.Lock()
		if err != nil && p.err == nil {
			p.err = err
		}
		p.pending--
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// Add enqueues jobs without blocking.
func (p *Pool) Add(jobs []Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.pending += len(jobs)
	p.queue = append(p.queue, jobs...)
	p.cond.Broadcast()
}

// AddBlocking enqueues jobs one at a time, waiting whenever the backlog
// exceeds twice the worker count. It bounds memory when the job list is
// much larger than the pool.
func (p *Pool) AddBlocking(jobs []Job) {
	for _, job := range jobs {
		p.mu.Lock()
		for len(p.queue) >= 2*p.workers && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		p.pending++
		p.queue = append(p.queue, job)
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// Wait blocks until all added jobs have completed or the pool is stopped,
// and returns the first error encountered by any job.
func (p *Pool) Wait() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.pending > 0 && !p.stopped {
		p.cond.Wait()
	}
	return p.err
}

// Stop discards queued jobs and shuts the workers down. Jobs already
// running are allowed to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending -= len(p.queue)
	p.queue = nil
	p.stopped = true
	p.cond.Broadcast()
}
