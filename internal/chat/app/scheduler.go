package app

import (
	"sync"
	"time"
)

// TaskSet holds at most one pending task per key.
// Replace cancels the pending task of a key before scheduling the new one,
// and a task that lost the race with Replace or Cancel never runs.
type TaskSet[K comparable] struct {
	mu      sync.Mutex
	tasks   map[K]*scheduledTask
	seq     uint64
	stopped bool
}

type scheduledTask struct {
	timer *time.Timer
	gen   uint64
}

// NewTaskSet create an empty task set
func NewTaskSet[K comparable]() *TaskSet[K] {
	return &TaskSet[K]{tasks: make(map[K]*scheduledTask)}
}

// Replace schedules fn to run after d under key
func (ts *TaskSet[K]) Replace(key K, d time.Duration, fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.stopped {
		return
	}

	if cur, ok := ts.tasks[key]; ok {
		cur.timer.Stop()
	}
	ts.seq++
	gen := ts.seq
	task := &scheduledTask{gen: gen}
	task.timer = time.AfterFunc(d, func() {
		ts.mu.Lock()
		cur, ok := ts.tasks[key]
		if !ok || cur.gen != gen {
			ts.mu.Unlock()
			return
		}
		delete(ts.tasks, key)
		ts.mu.Unlock()
		fn()
	})
	ts.tasks[key] = task
}

// Cancel drops the pending task of key; false when there was none
func (ts *TaskSet[K]) Cancel(key K) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	cur, ok := ts.tasks[key]
	if !ok {
		return false
	}
	cur.timer.Stop()
	delete(ts.tasks, key)
	return true
}

// Pending reports whether key has a task waiting
func (ts *TaskSet[K]) Pending(key K) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, ok := ts.tasks[key]
	return ok
}

// Len number of pending tasks
func (ts *TaskSet[K]) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.tasks)
}

// Stop cancels everything; later Replace calls are ignored
func (ts *TaskSet[K]) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.stopped = true
	for key, cur := range ts.tasks {
		cur.timer.Stop()
		delete(ts.tasks, key)
	}
}
