// Package background runs tasks outside the HTTP request-response cycle.
// Handlers hand work to a Runner and return immediately; the Runner executes
// tasks on a worker goroutine and logs failures rather than surfacing them
// to clients.
package background

import (
	"context"
	"log"
	"sync"
	"time"
)

// taskTimeout bounds each task's execution.
const taskTimeout = 30 * time.Second

// Task is a unit of background work. Name appears in logs.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner owns a queue of tasks and a worker goroutine that drains it.
// Submitting never blocks: when the queue is full the task is dropped and
// the drop is logged. Stop drains tasks already queued before returning.
type Runner struct {
	tasks chan Task
	wg    sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewRunner starts a runner whose queue holds up to buffer tasks.
func NewRunner(buffer int) *Runner {
	r := &Runner{tasks: make(chan Task, buffer)}
	r.wg.Add(1)
	go r.work()
	log.Println("background runner started")
	return r
}

func (r *Runner) work() {
	defer r.wg.Done()
	for task := range r.tasks {
		r.execute(task)
	}
}

// execute runs one task with a timeout, converting panics and errors into
// log lines. A background failure must never take the process down.
func (r *Runner) execute(task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("background task %s panicked: %v", task.Name, rec)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	if err := task.Run(ctx); err != nil {
		log.Printf("background task %s failed: %v", task.Name, err)
		return
	}
	log.Printf("background task %s completed", task.Name)
}

// Submit queues a task for execution. It reports false when the runner has
// stopped or the queue is full; in both cases the task is dropped.
func (r *Runner) Submit(task Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		log.Printf("background task %s dropped: runner stopped", task.Name)
		return false
	}
	select {
	case r.tasks <- task:
		return true
	default:
		log.Printf("background task %s dropped: queue full", task.Name)
		return false
	}
}

// Stop closes the queue and waits for the worker to finish the tasks
// already accepted. It is safe to call more than once.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.tasks)
	r.mu.Unlock()

	r.wg.Wait()
	log.Println("background runner stopped")
}
