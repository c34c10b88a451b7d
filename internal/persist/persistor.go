package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"reqdesk/internal/logging"
	"reqdesk/internal/state"
)

// DefaultKeyPrefix namespaces every slice key.
const DefaultKeyPrefix = "root"

// Source is the store a Persistor mirrors.
type Source interface {
	Subscribe(fn state.Listener) func()
	ExportSlice(key string) ([]byte, error)
	ImportSlice(key string, data []byte) error
}

// Options configures a Persistor.
type Options struct {
	KeyPrefix string
	Debounce  time.Duration
	// Slices limits persistence to these slice keys. Empty means all.
	Slices []string
}

// Persistor writes changed slices to an engine after a quiet period and
// loads them back at startup.
type Persistor struct {
	store    Source
	engine   Engine
	prefix   string
	slices   []string
	debounce *debouncer

	mu          sync.Mutex
	unsubscribe func()
	lastErr     error
}

// New builds a persistor; call Start to begin tracking changes.
func New(store Source, engine Engine, opts Options) *Persistor {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	slices := opts.Slices
	if len(slices) == 0 {
		slices = state.SliceKeys
	}
	return &Persistor{
		store:    store,
		engine:   engine,
		prefix:   prefix,
		slices:   append([]string(nil), slices...),
		debounce: newDebouncer(opts.Debounce),
	}
}

// Key returns the storage key of slice.
func (p *Persistor) Key(slice string) string {
	return p.prefix + ":" + slice
}

func (p *Persistor) tracks(slice string) bool {
	for _, s := range p.slices {
		if s == slice {
			return true
		}
	}
	return false
}

// Start subscribes to store changes. Calling it twice is a no-op.
func (p *Persistor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unsubscribe != nil {
		return
	}
	p.unsubscribe = p.store.Subscribe(func(slice string, _ state.Event) {
		if !p.tracks(slice) {
			return
		}
		p.debounce.Debounce(slice, func() {
			if err := p.write(context.Background(), slice); err != nil {
				p.setErr(err)
			}
		})
	})
}

// Rehydrate loads every persisted slice present in the engine. Missing keys
// are skipped; a corrupt blob is reported and the slice stays empty.
func (p *Persistor) Rehydrate(ctx context.Context) error {
	log := logging.Get(logging.CategoryPersist)
	var errs []error
	for _, slice := range p.slices {
		data, ok, err := p.engine.GetItem(ctx, p.Key(slice))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		if err := p.store.ImportSlice(slice, data); err != nil {
			log.Warn("discarding persisted %s: %v", slice, err)
			errs = append(errs, err)
			continue
		}
		log.Debug("rehydrated %s", p.Key(slice))
	}
	return errors.Join(errs...)
}

// Flush cancels pending writes and writes every tracked slice now.
func (p *Persistor) Flush(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryPersist, "flush")
	defer timer.Stop()

	p.debounce.CancelAll()
	var errs []error
	for _, slice := range p.slices {
		if err := p.write(ctx, slice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops tracking changes and flushes.
func (p *Persistor) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	p.mu.Unlock()
	return p.Flush(ctx)
}

// Purge removes every tracked slice from the engine.
func (p *Persistor) Purge(ctx context.Context) error {
	p.debounce.CancelAll()
	var errs []error
	for _, slice := range p.slices {
		if err := p.engine.RemoveItem(ctx, p.Key(slice)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Err returns the last failure of a background write.
func (p *Persistor) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Persistor) setErr(err error) {
	logging.Get(logging.CategoryPersist).Error("background write: %v", err)
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

func (p *Persistor) write(ctx context.Context, slice string) error {
	data, err := p.store.ExportSlice(slice)
	if err != nil {
		return err
	}
	if err := p.engine.SetItem(ctx, p.Key(slice), data); err != nil {
		return fmt.Errorf("persist %s: %w", slice, err)
	}
	logging.Get(logging.CategoryPersist).Debug("wrote %s (%d bytes)", p.Key(slice), len(data))
	return nil
}
