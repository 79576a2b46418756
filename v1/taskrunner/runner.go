package taskrunner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
)

// Logger is the logging interface used by the runner.
//
//go:generate mockgen -source=runner.go -destination=mock_logger.go -package=taskrunner
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Gauge receives the number of running or waiting tasks whenever it changes.
type Gauge interface {
	SetActiveTasks(count int)
}

// ProgressFunc reports progress from inside a task. Calls after the task was
// cancelled are dropped.
type ProgressFunc func(message string, percent int)

// TaskFunc is the blocking work run in the background. It should return
// promptly once ctx is cancelled.
type TaskFunc func(ctx context.Context, progress ProgressFunc) (any, error)

// Callbacks receive the outcome of a task. Any of them may be nil. They run
// on the task's goroutine; callers that own a UI loop must hand results
// over themselves. Exactly one of OnSuccess and OnError is called, unless
// the task was cancelled before delivery, in which case neither is.
// Callbacks may use the runner, including restarting their own key.
type Callbacks struct {
	OnSuccess  func(result any)
	OnError    func(err error)
	OnProgress func(message string, percent int)
}

// Runner runs keyed background tasks on a bounded pool. Starting a task
// under a key that is already running cancels the older task first, so the
// latest request wins.
type Runner struct {
	logger Logger
	gauge  Gauge
	sem    *semaphore.Weighted

	mu      sync.Mutex
	tasks   map[string]*task
	stopped bool
	wg      sync.WaitGroup
}

type task struct {
	key    string
	ctx    context.Context
	cancel context.CancelFunc

	cancelled atomic.Bool
}

// abort marks the task cancelled and cancels its context. It never blocks,
// so it is safe under the runner lock.
func (t *task) abort() {
	t.cancelled.Store(true)
	t.cancel()
}

// deliver runs fn unless the task was cancelled. fn runs without any lock
// held and may call back into the runner.
func (t *task) deliver(fn func()) {
	if fn == nil || t.cancelled.Load() {
		return
	}
	fn()
}

// New returns a Runner. A nil logger is replaced by a no-op logger.
func New(cfg Config, log Logger) *Runner {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		logger: log,
		sem:    semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		tasks:  make(map[string]*task),
	}
}

// Start schedules fn under key and returns the key. An empty key gets a
// random one.
func (r *Runner) Start(key string, fn TaskFunc, cb Callbacks) string {
	if key == "" {
		key = uuid.NewString()
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		r.logger.Warn("Task started after runner stopped", ErrStopped, map[string]interface{}{"task": key})
		if cb.OnError != nil {
			go cb.OnError(ErrStopped)
		}
		return key
	}
	if prev, ok := r.tasks[key]; ok {
		prev.abort()
		r.logger.Debug("Cancelled superseded task", nil, map[string]interface{}{"task": key})
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{key: key, ctx: ctx, cancel: cancel}
	r.tasks[key] = t
	r.reportLocked()
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(t, fn, cb)
	return key
}

func (r *Runner) run(t *task, fn TaskFunc, cb Callbacks) {
	defer r.wg.Done()
	defer t.cancel()

	if err := r.sem.Acquire(t.ctx, 1); err != nil {
		r.forget(t)
		return
	}
	defer r.sem.Release(1)

	if t.ctx.Err() != nil {
		r.forget(t)
		return
	}

	progress := func(message string, percent int) {
		if t.ctx.Err() != nil || cb.OnProgress == nil {
			return
		}
		t.deliver(func() { cb.OnProgress(message, percent) })
	}

	start := time.Now()
	result, err := r.execute(t.ctx, fn, progress)
	r.forget(t)

	if err != nil {
		t.deliver(func() {
			r.logger.Error("Task failed", err, map[string]interface{}{
				"task":     t.key,
				"duration": time.Since(start).String(),
			})
			if cb.OnError != nil {
				cb.OnError(err)
			}
		})
		return
	}
	if cb.OnSuccess != nil {
		t.deliver(func() { cb.OnSuccess(result) })
	}
}

func (r *Runner) execute(ctx context.Context, fn TaskFunc, progress ProgressFunc) (result any, err error) {
	defer func() {
		if v := recover(); v != nil {
			result, err = nil, panicError(v)
		}
	}()
	return fn(ctx, progress)
}

// forget removes t from the active set if it is still registered under its key.
func (r *Runner) forget(t *task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks[t.key] == t {
		delete(r.tasks, t.key)
		r.reportLocked()
	}
}

// Cancel cancels the task under key. It reports whether one was running.
func (r *Runner) Cancel(key string) bool {
	r.mu.Lock()
	t, ok := r.tasks[key]
	if ok {
		delete(r.tasks, key)
		r.reportLocked()
	}
	r.mu.Unlock()

	if ok {
		t.abort()
	}
	return ok
}

// CancelAll cancels every running or waiting task.
func (r *Runner) CancelAll() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = make(map[string]*task)
	r.reportLocked()
	r.mu.Unlock()

	for _, t := range tasks {
		t.abort()
	}
}

// IsRunning reports whether a task is registered under key.
func (r *Runner) IsRunning(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[key]
	return ok
}

// SetGauge makes the runner report its active task count to g.
func (r *Runner) SetGauge(g Gauge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauge = g
	r.reportLocked()
}

func (r *Runner) reportLocked() {
	if r.gauge != nil {
		r.gauge.SetActiveTasks(len(r.tasks))
	}
}

// ActiveCount returns the number of running or waiting tasks.
func (r *Runner) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Wait blocks until every task goroutine has returned or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop refuses new tasks, cancels the running ones and waits for them.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.CancelAll()
	return r.Wait(ctx)
}
