// Package history holds the listing history: the durable record of every
// listing seen per watch target and its price log. The Store is the single
// source of truth for "have we seen this before" and is safe for concurrent
// use; persistence is delegated to a Backend.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/donaldgifford/float-tracker/internal/metrics"
	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

// ErrNoHistory is returned by a Backend when nothing has been persisted yet.
var ErrNoHistory = errors.New("no persisted history")

// Backend reads and writes the encoded history document.
// Save must replace the previous document atomically.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Store is the in-memory listing history backed by a Backend.
type Store struct {
	mu   sync.Mutex
	data domain.History

	// saveMu orders Persist calls so an older snapshot never overwrites a
	// newer one.
	saveMu  sync.Mutex
	backend Backend
	log     *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// Open creates a Store and loads persisted state from b. Missing or
// unreadable history yields an empty store; Open never fails.
func Open(ctx context.Context, b Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		data:    domain.History{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.data = s.load(ctx)
	metrics.HistoryListings.Set(float64(countListings(s.data)))

	return s
}

func (s *Store) load(ctx context.Context) domain.History {
	raw, err := s.backend.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoHistory) {
			s.log.Info("no persisted history, starting empty")
			return domain.History{}
		}
		s.log.Error("loading history failed, starting empty", "error", err)
		metrics.HistoryLoadFailuresTotal.Inc()
		return domain.History{}
	}

	h, err := Decode(raw)
	if err != nil {
		s.log.Error("history is corrupt, starting empty", "error", err)
		metrics.HistoryLoadFailuresTotal.Inc()
		return domain.History{}
	}

	s.log.Info("history loaded",
		"targets", len(h),
		"listings", countListings(h),
	)
	return h
}

// GetOrCreate returns a copy of the record for (target, id) and true if it
// already existed. Otherwise it creates the record with a single creation
// entry and returns it with false.
func (s *Store) GetOrCreate(
	target, id string,
	price int64,
	floatValue float64,
	ts time.Time,
) (domain.ListingRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	th, ok := s.data[target]
	if !ok {
		th = domain.TargetHistory{}
		s.data[target] = th
	}

	if rec, ok := th[id]; ok {
		return rec.Clone(), true
	}

	rec := domain.ListingRecord{
		Price:     price,
		Float:     floatValue,
		Timestamp: ts,
		Changes: []domain.ChangeEntry{
			{Price: price, Float: floatValue, Timestamp: ts},
		},
	}
	th[id] = rec

	return rec.Clone(), false
}

// Lookup returns a copy of the record for (target, id).
func (s *Store) Lookup(target, id string) (domain.ListingRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[target][id]
	if !ok {
		return domain.ListingRecord{}, false
	}
	return rec.Clone(), true
}

// RecordChange appends a change entry and updates the current values of an
// existing record. It is a no-op, returning false, when the record does not
// exist or the price is exactly equal to the stored price.
func (s *Store) RecordChange(
	target, id string,
	price int64,
	floatValue float64,
	ts time.Time,
) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	th := s.data[target]
	rec, ok := th[id]
	if !ok || rec.Price == price {
		return false
	}

	rec.Changes = append(rec.Changes, domain.ChangeEntry{
		Price:     price,
		Float:     floatValue,
		Timestamp: ts,
	})
	rec.Price = price
	rec.Float = floatValue
	rec.Timestamp = ts
	th[id] = rec

	return true
}

// Snapshot returns a deep copy of the full history.
func (s *Store) Snapshot() domain.History {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(domain.History, len(s.data))
	for target, th := range s.data {
		out[target] = cloneTarget(th)
	}
	return out
}

// TargetSnapshot returns a deep copy of one target's listings.
func (s *Store) TargetSnapshot(target string) (domain.TargetHistory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	th, ok := s.data[target]
	if !ok {
		return nil, false
	}
	return cloneTarget(th), true
}

// Len returns the number of listing records across all targets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countListings(s.data)
}

// Persist encodes the current state and writes it through the backend.
// Encoding happens under the lock; the write does not.
func (s *Store) Persist(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	raw, err := Encode(s.data)
	n := countListings(s.data)
	s.mu.Unlock()

	if err != nil {
		return err
	}

	if err := s.backend.Save(ctx, raw); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}

	metrics.HistoryListings.Set(float64(n))
	return nil
}

// Encode serializes history deterministically: identical state always
// produces identical bytes.
func Encode(h domain.History) ([]byte, error) {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses an encoded history document. Documents in the legacy
// dollar-price format are converted to cents. Records written without a
// change log get a creation entry built from their current values.
func Decode(raw []byte) (domain.History, error) {
	h := domain.History{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return h, nil
	}

	if err := json.Unmarshal(raw, &h); err != nil {
		legacy, lerr := decodeLegacy(raw)
		if lerr != nil {
			return nil, fmt.Errorf("decoding history: %w", err)
		}
		h = legacy
	}
	if h == nil {
		h = domain.History{}
	}

	for target, th := range h {
		if th == nil {
			h[target] = domain.TargetHistory{}
			continue
		}
		for id, rec := range th {
			if len(rec.Changes) == 0 {
				rec.Changes = []domain.ChangeEntry{
					{Price: rec.Price, Float: rec.Float, Timestamp: rec.Timestamp},
				}
				th[id] = rec
			}
		}
	}

	return h, nil
}

func cloneTarget(th domain.TargetHistory) domain.TargetHistory {
	out := make(domain.TargetHistory, len(th))
	for id, rec := range th {
		out[id] = rec.Clone()
	}
	return out
}

func countListings(h domain.History) int {
	n := 0
	for _, th := range h {
		n += len(th)
	}
	return n
}
