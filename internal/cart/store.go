package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/phonelife/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

const defaultWriteTimeout = 2 * time.Second

// Observer receives cart activity counters. metrics.CartMetrics satisfies it.
type Observer interface {
	Mutation(op string)
	StorageFailure(op string)
	Loaded(result string)
}

type nopObserver struct{}

func (nopObserver) Mutation(string)       {}
func (nopObserver) StorageFailure(string) {}
func (nopObserver) Loaded(string)         {}

// Option customizes a Store.
type Option func(*Store)

func WithLogger(logg *logger.Logger) Option {
	return func(s *Store) {
		if logg != nil {
			s.logg = logg
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(s *Store) {
		if obs != nil {
			s.observer = obs
		}
	}
}

// WithWriteTimeout bounds every write-through to storage.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// Store is the single owner of one shopper's cart. Every mutation is written
// through to storage under StorageKey; storage failures never reach callers.
type Store struct {
	mu           sync.Mutex
	items        Items
	storage      Storage
	logg         *logger.Logger
	observer     Observer
	writeTimeout time.Duration
	// readFailed is set when the initial restore hit a storage error rather
	// than missing or malformed data.
	readFailed bool

	listenersMu sync.Mutex
	listeners   map[int]func(Summary)
	nextID      int
}

// Open builds a store and restores the cart persisted in storage, falling back
// to an empty cart when nothing is stored or the stored data is unusable.
func Open(ctx context.Context, storage Storage, opts ...Option) *Store {
	s := &Store{
		items:        Items{},
		storage:      storage,
		logg:         logger.Nop(),
		observer:     nopObserver{},
		writeTimeout: defaultWriteTimeout,
		listeners:    make(map[int]func(Summary)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = s.load(ctx)
	return s
}

// storageContext detaches storage calls from the caller's cancellation and
// bounds them by the write timeout. An aborted request must not read as a
// storage failure on restore, nor drop a write.
func (s *Store) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
}

func (s *Store) load(ctx context.Context) Items {
	if s.storage == nil {
		s.observer.Loaded("empty")
		return Items{}
	}
	readCtx, cancel := s.storageContext(ctx)
	raw, found, err := s.storage.Read(readCtx, StorageKey)
	cancel()
	if err != nil {
		s.readFailed = true
		s.observer.StorageFailure("read")
		s.observer.Loaded("fallback")
		s.logg.WarnErr(ctx, "cart storage read failed, starting empty", err)
		return Items{}
	}
	if !found {
		s.observer.Loaded("empty")
		return Items{}
	}
	items, err := Decode(raw)
	if err != nil {
		s.observer.StorageFailure("decode")
		s.observer.Loaded("fallback")
		s.logg.WarnErr(ctx, "stored cart is malformed, starting empty", err)
		return Items{}
	}
	s.observer.Loaded("restored")
	return items
}

// AddToCart adds quantity units of product, merging into an existing line.
// An existing line keeps the name, price and image captured on its first add.
func (s *Store) AddToCart(ctx context.Context, product Product, quantity int) {
	s.mutate(ctx, "add", func(items Items) (Items, bool) {
		return addItem(items, product, quantity)
	})
}

// RemoveOneFromCart decrements a line, dropping it when it reaches zero.
func (s *Store) RemoveOneFromCart(ctx context.Context, id ProductID) {
	s.mutate(ctx, "remove_one", func(items Items) (Items, bool) {
		return removeOne(items, id)
	})
}

// RemoveFromCart deletes a line regardless of quantity.
func (s *Store) RemoveFromCart(ctx context.Context, id ProductID) {
	s.mutate(ctx, "remove", func(items Items) (Items, bool) {
		return removeLine(items, id)
	})
}

// ClearCart empties the cart and always persists the empty state.
func (s *Store) ClearCart(ctx context.Context) {
	s.mutate(ctx, "clear", func(Items) (Items, bool) {
		return Items{}, true
	})
}

func (s *Store) mutate(ctx context.Context, op string, apply func(Items) (Items, bool)) {
	s.mu.Lock()
	next, changed := apply(s.items)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.items = next
	s.observer.Mutation(op)
	// Persisting under the lock keeps storage writes in mutation order.
	s.persist(ctx, op, next)
	summary := next.Summary()
	s.mu.Unlock()

	s.notify(summary)
}

func (s *Store) persist(ctx context.Context, op string, items Items) {
	if s.storage == nil {
		return
	}
	raw, err := Encode(items)
	if err != nil {
		s.observer.StorageFailure("encode")
		s.logg.Error(ctx, "cart encode failed", err)
		return
	}

	writeCtx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := s.storage.Write(writeCtx, StorageKey, raw); err != nil {
		s.observer.StorageFailure("write")
		fields := map[string]any{"op": op, "timeout": errors.Is(err, context.DeadlineExceeded)}
		s.logg.Error(s.logg.WithFields(ctx, fields), "cart storage write failed", err)
	}
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() Items {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.clone()
}

// Count is the total number of units, as shown on the cart badge.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Count()
}

// Total is the sum of unit price times quantity over all lines.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Total()
}

func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Summary()
}

// Len is the number of distinct products.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Subscribe registers fn to run after every committed mutation. The returned
// func removes the listener.
func (s *Store) Subscribe(fn func(Summary)) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) notify(summary Summary) {
	s.listenersMu.Lock()
	fns := make([]func(Summary), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(summary)
	}
}
