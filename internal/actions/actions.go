// Package actions performs the backend operations of every domain. Each
// operation makes at most one HTTP call and brackets it with lifecycle
// events: pending before the call, then fulfilled or rejected.
package actions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"reqdesk/internal/apiclient"
	"reqdesk/internal/logging"
	"reqdesk/internal/state"
)

// API is the slice of the HTTP client the actions use.
type API interface {
	Do(ctx context.Context, method, path string, body, out any) (*apiclient.Envelope, error)
}

// Store receives lifecycle events and knows the signed-in session.
type Store interface {
	Dispatch(ev state.Event) error
	Account() (state.Session, bool)
}

// Error is returned by every failed operation. Message is the text the
// rejected event carried.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Set groups the per-domain action sets over one client and store.
type Set struct {
	api   API
	store Store

	Auth         *AuthActions
	Users        *UserActions
	Categories   *CategoryActions
	RequestTypes *RequestTypeActions
	Analytics    *AnalyticsActions
}

// New wires every action set to api and store.
func New(api API, store Store) *Set {
	s := &Set{api: api, store: store}
	s.Auth = &AuthActions{s}
	s.Users = &UserActions{s}
	s.Categories = &CategoryActions{s}
	s.RequestTypes = &RequestTypeActions{s}
	s.Analytics = &AnalyticsActions{s}
	return s
}

// op names one operation: the slice it reports to, its status key and the
// message shown when the failure carries none.
type op struct {
	slice    string
	name     string
	fallback string
}

func (s *Set) dispatch(ev state.Event) {
	if err := s.store.Dispatch(ev); err != nil {
		logging.Get(logging.CategoryActions).Error("dispatch %s/%s %s: %v", ev.Slice, ev.Op, ev.Phase, err)
	}
}

// perform runs fn between pending and its resolution. fn returns the value
// handed back to the caller and the payload the reducer receives.
func perform[T any](ctx context.Context, s *Set, o op, fn func(ctx context.Context) (T, any, error)) (T, error) {
	ev := state.Pending(o.slice, o.name)
	log := logging.WithRequestID(logging.CategoryActions, ev.ID)
	log.Debug("%s pending", o.name)
	s.dispatch(ev)

	result, payload, err := fn(ctx)
	if err != nil {
		msg := apiclient.Message(err, o.fallback)
		log.Warn("%s rejected: %s", o.name, msg)
		s.dispatch(ev.Rejected(err, msg))
		var zero T
		return zero, &Error{Op: o.name, Message: msg, Err: err}
	}

	log.Debug("%s fulfilled", o.name)
	s.dispatch(ev.Fulfilled(payload))
	return result, nil
}

// validator is implemented by every input record.
type validator interface {
	Validate() error
}

func validate(in validator) error {
	if err := in.Validate(); err != nil {
		return apiclient.Invalid(err)
	}
	return nil
}

func requireID(what, id string) error {
	if id == "" {
		return apiclient.MissingID(what)
	}
	return nil
}

// fetch decodes the envelope data into a T. The bool is false when the
// response carried no data.
func fetch[T any](ctx context.Context, api API, method, path string, body any) (T, bool, error) {
	var out T
	env, err := api.Do(ctx, method, path, body, &out)
	if err != nil {
		return out, false, err
	}
	return out, env.HasData(), nil
}

// entity calls an endpoint returning one entity. The payload is nil when the
// response had no data, which leaves the slice untouched.
func entity[T any](ctx context.Context, api API, method, path string, body any) (T, any, error) {
	v, ok, err := fetch[T](ctx, api, method, path, body)
	if err != nil || !ok {
		return v, nil, err
	}
	return v, v, nil
}

// list calls an endpoint returning a list.
func list[T any](ctx context.Context, api API, path string) ([]T, any, error) {
	items, _, err := fetch[[]T](ctx, api, http.MethodGet, path, nil)
	if err != nil {
		return nil, nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, items, nil
}

// remove calls a delete endpoint; the payload is the removed id.
func remove(ctx context.Context, api API, path, id string) (struct{}, any, error) {
	if _, err := api.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return struct{}{}, nil, err
	}
	return struct{}{}, id, nil
}

// pathID fills format with id as a single escaped path segment.
func pathID(format, id string) string {
	return fmt.Sprintf(format, url.PathEscape(id))
}
