// Package state holds the client-side state tree: one slice per domain, each
// driven by lifecycle events that actions dispatch around their network call.
package state

import (
	"errors"

	"github.com/google/uuid"
)

// Status is the per-operation lifecycle tag.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "isLoading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Phase is where in its lifecycle an action is.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseFulfilled Phase = "fulfilled"
	PhaseRejected  Phase = "rejected"
)

// Slice keys of the state tree.
const (
	SliceAuth        = "auth"
	SliceUsers       = "users"
	SliceCategory    = "category"
	SliceRequestType = "request"
	SliceAnalytics   = "requestAnalytics"
)

// SliceKeys lists every slice in the tree.
var SliceKeys = []string{SliceAuth, SliceUsers, SliceCategory, SliceRequestType, SliceAnalytics}

var (
	ErrUnknownSlice = errors.New("unknown slice")
	ErrUnknownOp    = errors.New("unknown operation")
	ErrPayload      = errors.New("unexpected payload")
	ErrInvalidPhase = errors.New("invalid phase")
)

// Event is one lifecycle step of an action. Pending and its resolution share
// an ID.
type Event struct {
	ID      string
	Slice   string
	Op      string
	Phase   Phase
	Payload any
	// Message is the user-facing failure text on rejected events.
	Message string
	Err     error
}

// NewID returns a fresh lifecycle correlation id.
func NewID() string {
	return uuid.NewString()
}

// Pending starts a lifecycle for op on slice.
func Pending(slice, op string) Event {
	return Event{ID: NewID(), Slice: slice, Op: op, Phase: PhasePending}
}

// Fulfilled resolves ev with payload.
func (ev Event) Fulfilled(payload any) Event {
	return Event{ID: ev.ID, Slice: ev.Slice, Op: ev.Op, Phase: PhaseFulfilled, Payload: payload}
}

// Rejected resolves ev with a failure.
func (ev Event) Rejected(err error, message string) Event {
	return Event{ID: ev.ID, Slice: ev.Slice, Op: ev.Op, Phase: PhaseRejected, Message: message, Err: err}
}
