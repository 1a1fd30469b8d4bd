package operations

import (
	"sync"
	"time"
)

// Step identifiers, in execution order
const (
	StepRead      = "read"
	StepAggregate = "aggregate"
	StepMerge     = "merge"
	StepScale     = "scale"
	StepValidate  = "validate"
	StepDeliver   = "deliver"
)

var stepNames = []struct{ id, name string }{
	{StepRead, "Read workbooks"},
	{StepAggregate, "Aggregate sources"},
	{StepMerge, "Merge tables"},
	{StepScale, "Scale table"},
	{StepValidate, "Validate result"},
	{StepDeliver, "Deliver to sink"},
}

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is a snapshot of one step of a run
type StepState struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Message   string     `json:"message,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Duration returns how long the step ran
func (s StepState) Duration() time.Duration {
	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// stepTracker holds the mutable step states of a running pipeline
type stepTracker struct {
	mu    sync.Mutex
	order []string
	steps map[string]*StepState
}

func newStepTracker() *stepTracker {
	t := &stepTracker{steps: make(map[string]*StepState, len(stepNames))}
	for _, s := range stepNames {
		t.order = append(t.order, s.id)
		t.steps[s.id] = &StepState{ID: s.id, Name: s.name, Status: StepStatusPending}
	}
	return t
}

func (t *stepTracker) start(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	s := t.steps[id]
	s.StartTime = &now
	s.Status = StepStatusActive
}

func (t *stepTracker) complete(id, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	s := t.steps[id]
	s.EndTime = &now
	s.Status = StepStatusCompleted
	s.Message = message
}

func (t *stepTracker) fail(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	s := t.steps[id]
	s.EndTime = &now
	s.Status = StepStatusFailed
	s.Error = err.Error()
}

// skipPending marks every step that never started as skipped
func (t *stepTracker) skipPending(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range t.order {
		if s := t.steps[id]; s.Status == StepStatusPending {
			s.Status = StepStatusSkipped
			s.Message = reason
		}
	}
}

func (t *stepTracker) skip(id, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.steps[id]
	s.Status = StepStatusSkipped
	s.Message = reason
}

// snapshot returns copies of the steps in execution order
func (t *stepTracker) snapshot() []StepState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StepState, 0, len(t.order))
	for _, id := range t.order {
		s := *t.steps[id]
		if s.StartTime != nil {
			st := *s.StartTime
			s.StartTime = &st
		}
		if s.EndTime != nil {
			et := *s.EndTime
			s.EndTime = &et
		}
		out = append(out, s)
	}
	return out
}
