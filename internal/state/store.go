package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"reqdesk/internal/logging"
)

// Listener is told which slice an applied event changed.
type Listener func(slice string, ev Event)

// State is a deep copy of the tree, safe to read without the store lock.
type State struct {
	Auth         *AuthSlice
	Users        *UserSlice
	Categories   *CategorySlice
	RequestTypes *RequestTypeSlice
	Analytics    *AnalyticsSlice
}

// Store composes the slices and applies events one at a time in arrival
// order.
type Store struct {
	mu           sync.Mutex
	auth         *AuthSlice
	users        *UserSlice
	categories   *CategorySlice
	requestTypes *RequestTypeSlice
	analytics    *AnalyticsSlice

	subMu  sync.RWMutex
	subs   map[int]Listener
	nextID int
}

// NewStore builds an empty tree.
func NewStore() *Store {
	return &Store{
		auth:         NewAuthSlice(),
		users:        NewUserSlice(),
		categories:   NewCategorySlice(),
		requestTypes: NewRequestTypeSlice(),
		analytics:    NewAnalyticsSlice(),
		subs:         make(map[int]Listener),
	}
}

func (s *Store) reducer(slice string) (func(Event) error, error) {
	switch slice {
	case SliceAuth:
		return s.auth.Reduce, nil
	case SliceUsers:
		return s.users.Reduce, nil
	case SliceCategory:
		return s.categories.Reduce, nil
	case SliceRequestType:
		return s.requestTypes.Reduce, nil
	case SliceAnalytics:
		return s.analytics.Reduce, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSlice, slice)
}

// Dispatch applies ev to its slice and then notifies subscribers. Events that
// name no known slice, operation or phase change nothing and notify no one.
func (s *Store) Dispatch(ev Event) error {
	log := logging.Get(logging.CategoryStore)

	s.mu.Lock()
	reduce, err := s.reducer(ev.Slice)
	if err == nil {
		err = reduce(ev)
	}
	s.mu.Unlock()

	if err != nil {
		log.Warn("%s/%s %s: %v", ev.Slice, ev.Op, ev.Phase, err)
		if errors.Is(err, ErrUnknownSlice) || errors.Is(err, ErrUnknownOp) || errors.Is(err, ErrInvalidPhase) {
			return err
		}
	} else {
		log.Debug("%s/%s %s [%s]", ev.Slice, ev.Op, ev.Phase, ev.ID)
	}

	s.notify(ev)
	return err
}

// Subscribe registers fn for every applied event. The returned func removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.RLock()
	listeners := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range listeners {
		fn(ev.Slice, ev)
	}
}

// Snapshot returns a deep copy of the whole tree.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Auth:         s.auth.clone(),
		Users:        s.users.clone(),
		Categories:   s.categories.clone(),
		RequestTypes: s.requestTypes.clone(),
		Analytics:    s.analytics.clone(),
	}
}

// Token returns the bearer token of the signed-in session.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth.Token
}

// Account returns the signed-in account, if any.
func (s *Store) Account() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auth.Account == nil {
		return Session{}, false
	}
	return Session{Account: *s.auth.Account, Token: s.auth.Token}, true
}

// ExportSlice serializes the data of one slice. Statuses are not included.
func (s *Store) ExportSlice(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v any
	switch key {
	case SliceAuth:
		v = s.auth
	case SliceUsers:
		v = s.users
	case SliceCategory:
		v = s.categories
	case SliceRequestType:
		v = s.requestTypes
	case SliceAnalytics:
		v = s.analytics
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSlice, key)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", key, err)
	}
	return data, nil
}

// ImportSlice replaces one slice's data with a previously exported blob.
// Every status of that slice returns to idle.
func (s *Store) ImportSlice(key string, data []byte) error {
	s.mu.Lock()
	var err error
	switch key {
	case SliceAuth:
		err = s.auth.restore(data)
	case SliceUsers:
		err = s.users.restore(data)
	case SliceCategory:
		err = s.categories.Resource.restore(data)
	case SliceRequestType:
		err = s.requestTypes.Resource.restore(data)
	case SliceAnalytics:
		err = s.analytics.restore(data)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownSlice, key)
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("restore %s: %w", key, err)
	}
	logging.Get(logging.CategoryStore).Debug("restored slice %s (%d bytes)", key, len(data))
	return nil
}
