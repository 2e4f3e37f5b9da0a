// Package domain holds the run state machine and the ports the pipeline driver needs
package domain

import (
	"fmt"
	"time"

	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
)

// State is where a run is in its lifecycle
type State string

// Run states
const (
	StatePending      State = "pending"
	StateExtracting   State = "extracting"
	StateTransforming State = "transforming"
	StateLoading      State = "loading"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

// Stage names a unit of work
type Stage string

// Stages in execution order
const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
)

// next is the single forward edge out of each working state
var next = map[State]State{
	StatePending:      StateExtracting,
	StateExtracting:   StateTransforming,
	StateTransforming: StateLoading,
	StateLoading:      StateSucceeded,
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// CanTransition reports whether s -> to is a legal move
func (s State) CanTransition(to State) bool {
	if s.Terminal() {
		return false
	}
	return to == StateFailed || next[s] == to
}

// Stage returns the stage a working state executes, "" otherwise
func (s State) Stage() Stage {
	switch s {
	case StateExtracting:
		return StageExtract
	case StateTransforming:
		return StageTransform
	case StateLoading:
		return StageLoad
	}
	return ""
}

// ErrRunInProgress is returned when the logical date is already being processed
var ErrRunInProgress = perr.Conflictf("pipeline: a run for this logical date is in progress")

// Run is one execution of the pipeline for a logical date
type Run struct {
	ID          string    `json:"id"`
	LogicalDate day.Date  `json:"logical_date"`
	State       State     `json:"state"`
	FailedStage Stage     `json:"failed_stage,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	RawRows     int       `json:"raw_rows"`
	StagedRows  int       `json:"staged_rows"`
	Excluded    int       `json:"excluded"`
	Deduped     int       `json:"deduped"`
	OutOfWindow int       `json:"out_of_window"`
	LoadedRows  int       `json:"loaded_rows"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// NewRun starts a pending run
func NewRun(id string, d day.Date, now time.Time) Run {
	return Run{ID: id, LogicalDate: d, State: StatePending, StartedAt: now.UTC()}
}

// Advance moves the run to a working or succeeded state. An illegal move is a
// programming error and panics.
func (r *Run) Advance(to State) {
	if to == StateFailed {
		panic("pipeline: use Fail to enter the failed state")
	}
	if !r.State.CanTransition(to) {
		panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", r.State, to))
	}
	r.State = to
}

// Fail records cause against stage and enters the failed state
func (r *Run) Fail(stage Stage, cause error) {
	if !r.State.CanTransition(StateFailed) {
		panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", r.State, StateFailed))
	}
	r.State = StateFailed
	r.FailedStage = stage
	r.ErrorKind = perr.KindOf(cause)
	if cause != nil {
		r.Error = cause.Error()
	}
}

// Succeeded reports whether the run finished cleanly
func (r Run) Succeeded() bool { return r.State == StateSucceeded }
