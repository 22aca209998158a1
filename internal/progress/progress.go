package progress

import (
	"sync"
)

// Stage is the simplified job status reported to pollers.
type Stage string

const (
	StageStarting    Stage = "starting"
	StageDownloading Stage = "downloading"
	StageCompleted   Stage = "completed"
	StageError       Stage = "error"
)

// State is the progress of one job's fetch phase.
type State struct {
	Total        int    `json:"total"`
	Current      int    `json:"current"`
	Succeeded    int    `json:"succeeded"`
	Failed       int    `json:"failed"`
	CurrentTitle string `json:"current_title"`
	Status       Stage  `json:"status"`
	Error        string `json:"error,omitempty"`
}

// Done reports whether the fetch phase has ended.
func (s State) Done() bool {
	return s.Status == StageCompleted || s.Status == StageError
}

type entry struct {
	state       State
	subscribers map[int]chan State
}

// Tracker holds per-job progress. Each job has a single writer (its fetch
// task); any number of readers may call Read concurrently.
type Tracker struct {
	mu     sync.RWMutex
	jobs   map[string]*entry
	nextID int
}

// NewTracker creates a new Tracker instance
func NewTracker() *Tracker {
	return &Tracker{
		jobs: make(map[string]*entry),
	}
}

// Init records the number of discovered items and starts the download stage.
func (t *Tracker) Init(jobID string, total int) {
	t.update(jobID, func(s *State) {
		s.Total = total
		s.Status = StageDownloading
	})
}

// Begin marks the item currently being fetched.
func (t *Tracker) Begin(jobID, title string) {
	t.update(jobID, func(s *State) {
		s.CurrentTitle = title
	})
}

// Advance counts one attempted item. Current is not clamped to Total.
func (t *Tracker) Advance(jobID, title string, succeeded bool) {
	t.update(jobID, func(s *State) {
		s.Current++
		if succeeded {
			s.Succeeded++
		} else {
			s.Failed++
		}
		s.CurrentTitle = title
	})
}

// MarkDone ends the fetch phase.
func (t *Tracker) MarkDone(jobID string, ok bool) {
	t.update(jobID, func(s *State) {
		s.CurrentTitle = ""
		if ok {
			s.Status = StageCompleted
		} else {
			s.Status = StageError
		}
	})
}

// Fail ends the fetch phase with an error message.
func (t *Tracker) Fail(jobID, message string) {
	t.update(jobID, func(s *State) {
		s.CurrentTitle = ""
		s.Status = StageError
		s.Error = message
	})
}

// Read returns the current state. Unknown jobs read as starting.
func (t *Tracker) Read(jobID string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.jobs[jobID]
	if !ok {
		return State{Status: StageStarting}
	}
	return e.state
}

// Forget drops the state of a job and closes its subscriptions.
func (t *Tracker) Forget(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.jobs[jobID]
	if !ok {
		return
	}
	for id, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, id)
	}
	delete(t.jobs, jobID)
}

// Subscribe returns a channel that receives a snapshot after every update.
// Delivery is latest-wins so a slow reader never blocks the writer.
func (t *Tracker) Subscribe(jobID string) (<-chan State, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entry(jobID)
	id := t.nextID
	t.nextID++

	ch := make(chan State, 1)
	ch <- e.state
	e.subscribers[id] = ch

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if sub, ok := e.subscribers[id]; ok {
			close(sub)
			delete(e.subscribers, id)
		}
	}
	return ch, cancel
}

// entry must be called with the write lock held.
func (t *Tracker) entry(jobID string) *entry {
	e, ok := t.jobs[jobID]
	if !ok {
		e = &entry{
			state:       State{Status: StageStarting},
			subscribers: make(map[int]chan State),
		}
		t.jobs[jobID] = e
	}
	return e
}

func (t *Tracker) update(jobID string, apply func(*State)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entry(jobID)
	apply(&e.state)

	for _, ch := range e.subscribers {
		publish(ch, e.state)
	}
}

func publish(ch chan State, s State) {
	select {
	case ch <- s:
		return
	default:
	}
	// Drop the stale snapshot and replace it.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
