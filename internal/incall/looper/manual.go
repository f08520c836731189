package looper

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler for tests. Posted tasks run on
// RunPending; delayed tasks run when Advance moves the clock past their due time.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	queue   []func()
	delayed []*manualTask
	logger  *slog.Logger
}

type manualTask struct {
	due  time.Time
	seq  uint64
	task *Task
	fn   func()
}

var (
	_ Scheduler = (*Manual)(nil)
	_ Clock     = (*Manual)(nil)
)

// NewManual creates a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, logger: slog.Default()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
}

func (m *Manual) PostDelayed(d time.Duration, fn func()) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	task := &Task{}
	m.delayed = append(m.delayed, &manualTask{due: m.now.Add(d), seq: m.seq, task: task, fn: fn})
	return task
}

// RunPending runs posted tasks, including ones posted while running, and
// returns how many ran.
func (m *Manual) RunPending() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		runSafely(m.logger, fn)
		n++
	}
}

// Advance moves the clock forward by d, running every delayed task that
// becomes due in due-time order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.RunPending()

		m.mu.Lock()
		sort.Slice(m.delayed, func(i, j int) bool {
			if m.delayed[i].due.Equal(m.delayed[j].due) {
				return m.delayed[i].seq < m.delayed[j].seq
			}
			return m.delayed[i].due.Before(m.delayed[j].due)
		})
		if len(m.delayed) == 0 || m.delayed[0].due.After(target) {
			m.now = target
			m.mu.Unlock()
			m.RunPending()
			return
		}
		next := m.delayed[0]
		m.delayed = m.delayed[1:]
		if next.due.After(m.now) {
			m.now = next.due
		}
		m.mu.Unlock()

		runSafely(m.logger, func() { next.task.run(next.fn) })
	}
}

// PendingDelayed returns the number of delayed tasks that have not run or been cancelled.
func (m *Manual) PendingDelayed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.delayed {
		if t.task.Pending() {
			n++
		}
	}
	return n
}
