// Package task provides small cancellable timer helpers for the input and
// rendering paths, which lean on short repeating jobs and one-shot delays.
package task

import (
	"sync"
	"time"
)

// Task is a scheduled job handle. Stop is idempotent and safe to call from
// any goroutine, including the job itself.
type Task struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Stop cancels the task. It does not wait for a currently running callback
// to return; use Wait for that.
func (t *Task) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Wait blocks until the task's goroutine has exited.
func (t *Task) Wait() {
	<-t.done
}

// Repeating runs fn every interval until stopped. The first run happens one
// interval after the call, not immediately.
func Repeating(interval time.Duration, fn func()) *Task {
	t := &Task{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return t
}

// After runs fn once after delay unless stopped first.
func After(delay time.Duration, fn func()) *Task {
	t := &Task{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(t.done)
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-t.stop:
		case <-timer.C:
			fn()
		}
	}()
	return t
}
