// Package apitest runs an in-memory request-analytics backend on httptest for
// tests. It speaks the same paths and {message, data} envelope as the real
// service.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"reqdesk/internal/domain"
)

// OTP is the code every sign-up must verify with.
const OTP = "123456"

type table[T any] struct {
	ids  []string
	rows map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.ids = append(t.ids, id)
	}
	t.rows[id] = v
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) del(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, k := range t.ids {
		if k == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			break
		}
	}
	return true
}

func (t *table[T]) list(keep func(T) bool) []T {
	out := make([]T, 0, len(t.ids))
	for _, id := range t.ids {
		if v := t.rows[id]; keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

type failure struct {
	status  int
	message string
}

// Backend is the fake service state.
type Backend struct {
	srv *httptest.Server

	mu        sync.Mutex
	seq       int
	accounts  *table[domain.Account]
	passwords map[string]string
	verified  map[string]bool
	tokens    map[string]string
	cats      *table[domain.Category]
	types     *table[domain.RequestType]
	analytics *table[domain.RequestAnalytics]
	calls     []string
	failures  map[string]failure

	requireAuth bool
	omitData    bool
}

// New starts a backend that shuts down when t finishes.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		accounts:  newTable[domain.Account](),
		passwords: make(map[string]string),
		verified:  make(map[string]bool),
		tokens:    make(map[string]string),
		cats:      newTable[domain.Category](),
		types:     newTable[domain.RequestType](),
		analytics: newTable[domain.RequestAnalytics](),
		failures:  make(map[string]failure),
	}
	b.srv = httptest.NewServer(b.routes())
	t.Cleanup(b.srv.Close)
	return b
}

// URL is the server root, without the /api/v1 prefix.
func (b *Backend) URL() string { return b.srv.URL }

// Calls lists every request seen as "METHOD /path".
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// Fail makes requests to path (relative to /api/v1) answer status with message.
func (b *Backend) Fail(path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures["/api/v1/"+strings.TrimPrefix(path, "/")] = failure{status: status, message: message}
}

func (b *Backend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

// RequireAuth makes every non-auth call without a known bearer token fail
// with 401.
func (b *Backend) RequireAuth(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requireAuth = on
}

// OmitData makes mutating endpoints answer with a message only.
func (b *Backend) OmitData(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.omitData = on
}

// AddAccount seeds a verified account that can sign in with password.
func (b *Backend) AddAccount(a domain.Account, password string) domain.Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a.Key() == "" {
		a.MongoID = b.nextID(string(a.Role))
	}
	b.accounts.put(a.Key(), a)
	b.passwords[a.Email] = password
	b.verified[a.Email] = true
	return a
}

// AddCategory seeds a category.
func (b *Backend) AddCategory(c domain.Category) domain.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.Key() == "" {
		c.MongoID = b.nextID("cat")
	}
	b.cats.put(c.Key(), c)
	return c
}

// AddRequestType seeds a request type.
func (b *Backend) AddRequestType(rt domain.RequestType) domain.RequestType {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rt.Key() == "" {
		rt.MongoID = b.nextID("type")
	}
	b.types.put(rt.Key(), rt)
	return rt
}

// AddAnalytics seeds a request.
func (b *Backend) AddAnalytics(a domain.RequestAnalytics) domain.RequestAnalytics {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a.Key() == "" {
		a.MongoID = b.nextID("req")
	}
	if a.Status == "" {
		a.Status = domain.StatusPending
	}
	b.analytics.put(a.Key(), a)
	return a
}

// Categories returns the stored categories in insertion order.
func (b *Backend) Categories() []domain.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cats.list(nil)
}

// Analytics returns the stored request with id.
func (b *Backend) Analytics(id string) (domain.RequestAnalytics, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.analytics.get(id)
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"message": message}
	if data != nil {
		body["data"] = data
	}
	_ = json.NewEncoder(w).Encode(body)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
