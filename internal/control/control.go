// Package control serves a live feed of command executions over a websocket.
//
// Only executions are published. Rejected triggers and captured command
// output never leave the process.
package control

import (
	"time"

	"github.com/njkleiner/watchc/internal/runner"
)

type EventKind string

const (
	EventCommandRun = EventKind("command.run")
)

type RunEvent struct {
	Status   string `json:"status"`
	ExitCode int    `json:"exit_code"`
}

type Event struct {
	Kind EventKind `json:"kind"`
	Time time.Time `json:"time"`

	Run *RunEvent `json:"run,omitempty"`
}

// NewRunEvent describes res as an [EventCommandRun] event that happened at t.
func NewRunEvent(res runner.Result, t time.Time) Event {
	return Event{
		Kind: EventCommandRun,
		Time: t.UTC(),

		Run: &RunEvent{
			Status:   res.Status.String(),
			ExitCode: res.ExitCode,
		},
	}
}
