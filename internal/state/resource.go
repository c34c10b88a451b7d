package state

import (
	"encoding/json"
	"fmt"

	"reqdesk/internal/domain"
)

// Mutation says what a fulfilled operation does to a Resource.
type Mutation int

const (
	// MutateNone only records the status.
	MutateNone Mutation = iota
	// MutateAppend adds the payload entity to the list.
	MutateAppend
	// MutateReplace swaps the entity with the same key in the list and current.
	MutateReplace
	// MutateRemove drops the entity whose key is the payload string.
	MutateRemove
	// MutateSetList replaces the list wholesale.
	MutateSetList
	// MutateSetCurrent replaces the current entity.
	MutateSetCurrent
)

// Ops maps operation names to their fulfilled mutation.
type Ops map[string]Mutation

// Resource is the generic list-bearing slice: the last-known list, one
// current entity, a status per operation and the last failure message.
type Resource[T domain.Entity] struct {
	Items   []T    `json:"items"`
	Current *T     `json:"current,omitempty"`
	Error   string `json:"error,omitempty"`

	status map[string]Status
	ops    Ops
}

// NewResource builds an empty resource accepting ops.
func NewResource[T domain.Entity](ops Ops) Resource[T] {
	return Resource[T]{
		Items:  []T{},
		status: make(map[string]Status),
		ops:    ops,
	}
}

// Status returns the status of op; idle when it never ran.
func (r *Resource[T]) Status(op string) Status {
	if s, ok := r.status[op]; ok {
		return s
	}
	return StatusIdle
}

// Statuses returns a copy of every recorded status.
func (r *Resource[T]) Statuses() map[string]Status {
	out := make(map[string]Status, len(r.status))
	for k, v := range r.status {
		out[k] = v
	}
	return out
}

// Handles reports whether op belongs to this resource.
func (r *Resource[T]) Handles(op string) bool {
	_, ok := r.ops[op]
	return ok
}

// Reduce applies one lifecycle event.
func (r *Resource[T]) Reduce(ev Event) error {
	mut, ok := r.ops[ev.Op]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOp, ev.Op)
	}
	return r.track(ev, func(payload any) error {
		return r.mutate(mut, payload)
	})
}

// track records the status transition for ev and, on fulfilled, runs apply.
// A payload apply rejects marks the operation failed.
func (r *Resource[T]) track(ev Event, apply func(payload any) error) error {
	if r.status == nil {
		r.status = make(map[string]Status)
	}
	switch ev.Phase {
	case PhasePending:
		r.status[ev.Op] = StatusLoading
	case PhaseRejected:
		r.status[ev.Op] = StatusFailed
		r.Error = ev.Message
	case PhaseFulfilled:
		if err := apply(ev.Payload); err != nil {
			r.status[ev.Op] = StatusFailed
			r.Error = err.Error()
			return err
		}
		r.status[ev.Op] = StatusSucceeded
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPhase, ev.Phase)
	}
	return nil
}

func (r *Resource[T]) mutate(mut Mutation, payload any) error {
	switch mut {
	case MutateNone:
		return nil
	case MutateRemove:
		if payload == nil {
			return nil
		}
		id, ok := payload.(string)
		if !ok {
			return fmt.Errorf("%w: want id, got %T", ErrPayload, payload)
		}
		r.remove(id)
		return nil
	case MutateSetList:
		if payload == nil {
			r.Items = []T{}
			return nil
		}
		items, ok := payload.([]T)
		if !ok {
			return fmt.Errorf("%w: want list, got %T", ErrPayload, payload)
		}
		r.Items = append([]T{}, items...)
		return nil
	}

	item, present, err := entityPayload[T](payload)
	if err != nil {
		return err
	}
	switch mut {
	case MutateAppend:
		if present && item.Key() != "" {
			r.upsert(item)
		}
	case MutateReplace:
		if present && item.Key() != "" {
			r.replace(item)
		}
	case MutateSetCurrent:
		if present {
			r.Current = &item
		} else {
			r.Current = nil
		}
	}
	return nil
}

func entityPayload[T domain.Entity](payload any) (T, bool, error) {
	var zero T
	switch v := payload.(type) {
	case nil:
		return zero, false, nil
	case T:
		return v, true, nil
	case *T:
		if v == nil {
			return zero, false, nil
		}
		return *v, true, nil
	default:
		return zero, false, fmt.Errorf("%w: want entity, got %T", ErrPayload, payload)
	}
}

// upsert appends item unless the same record is already listed.
func (r *Resource[T]) upsert(item T) {
	for i := range r.Items {
		if domain.SameRecord(r.Items[i], item) {
			r.Items[i] = item
			return
		}
	}
	r.Items = append(r.Items, item)
}

func (r *Resource[T]) replace(item T) {
	for i := range r.Items {
		if domain.SameRecord(r.Items[i], item) {
			r.Items[i] = item
		}
	}
	if r.Current != nil && domain.SameRecord(*r.Current, item) {
		c := item
		r.Current = &c
	}
}

func (r *Resource[T]) remove(id string) {
	kept := r.Items[:0:0]
	for _, it := range r.Items {
		if !it.Matches(id) {
			kept = append(kept, it)
		}
	}
	r.Items = kept
	if r.Current != nil && (*r.Current).Matches(id) {
		r.Current = nil
	}
}

// Clone deep-copies the resource.
func (r *Resource[T]) Clone() Resource[T] {
	out := Resource[T]{
		Items:  append([]T{}, r.Items...),
		Error:  r.Error,
		status: r.Statuses(),
		ops:    r.ops,
	}
	if r.Current != nil {
		c := *r.Current
		out.Current = &c
	}
	return out
}

// Find returns the listed entity with key id.
func (r *Resource[T]) Find(id string) (T, bool) {
	return domain.Find(r.Items, id)
}

// restore loads persisted data. Statuses come back idle.
func (r *Resource[T]) restore(data []byte) error {
	var saved struct {
		Items   []T    `json:"items"`
		Current *T     `json:"current,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(data, &saved); err != nil {
		return err
	}
	if saved.Items == nil {
		saved.Items = []T{}
	}
	r.Items = saved.Items
	r.Current = saved.Current
	r.Error = saved.Error
	r.status = make(map[string]Status)
	return nil
}
