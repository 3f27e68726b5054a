// Package memstore is an in-memory store.Adapter used to exercise the
// category and decider packages without a real database. It backs
// the core test suite and the example domains' own tests; it is not meant
// to be imported by application code.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/getpup/foldstore/es"
	"github.com/getpup/foldstore/es/store"
)

// Store is a goroutine-safe, in-memory store.Adapter. Each stream is a
// plain slice of es.TimelineEvent guarded by a single mutex; it makes no
// attempt to batch reads internally (the batch size passed to New is
// reported by BatchSize() and only used to count pages against
// maxBatchReads).
type Store struct {
	mu      sync.Mutex
	streams map[string][]es.TimelineEvent

	batchSize     int
	maxBatchReads int

	// Reads and Appends count calls for assertions in tests that verify
	// batch-count or snapshot-sufficiency properties.
	Reads   int
	Appends int
}

// New constructs a Store with the given batch size (the page size access
// strategies reason about) and an optional max-batch-reads cap (0 means
// unlimited).
func New(batchSize, maxBatchReads int) *Store {
	return &Store{
		streams:       make(map[string][]es.TimelineEvent),
		batchSize:     batchSize,
		maxBatchReads: maxBatchReads,
	}
}

func (s *Store) BatchSize() int     { return s.batchSize }
func (s *Store) MaxBatchReads() int { return s.maxBatchReads }

func (s *Store) TokenEmpty() store.Token {
	return store.EmptyToken
}

// LoadForward implements store.Adapter.
func (s *Store) LoadForward(_ context.Context, stream es.StreamName, fromIndex int64, _ bool) (int64, []es.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++

	all := s.streams[stream.String()]
	version := int64(len(all)) - 1

	if s.maxBatchReads > 0 {
		remaining := int64(len(all)) - fromIndex
		if remaining > 0 {
			batches := (remaining + int64(s.batchSize) - 1) / int64(s.batchSize)
			if int(batches) > s.maxBatchReads {
				return 0, nil, store.ErrBatchLimitExceeded
			}
		}
	}

	var out []es.TimelineEvent
	for _, evt := range all {
		if evt.Index >= fromIndex {
			out = append(out, evt)
		}
	}
	return version, out, nil
}

// LoadBackwardUntil implements store.Adapter.
func (s *Store) LoadBackwardUntil(_ context.Context, stream es.StreamName, _ bool, isOrigin store.OriginPredicate) (int64, []es.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++

	all := s.streams[stream.String()]
	version := int64(len(all)) - 1

	originIdx := 0
	batches := 0
	for i := len(all) - 1; i >= 0; i-- {
		if isOrigin != nil {
			ok, err := isOrigin(all[i])
			if err != nil {
				return 0, nil, err
			}
			if ok {
				originIdx = i
				break
			}
		}
		if (len(all)-i)%s.batchSizeOrOne() == 0 {
			batches++
			if s.maxBatchReads > 0 && batches > s.maxBatchReads {
				return 0, nil, store.ErrBatchLimitExceeded
			}
		}
	}

	out := make([]es.TimelineEvent, len(all)-originIdx)
	copy(out, all[originIdx:])
	return version, out, nil
}

func (s *Store) batchSizeOrOne() int {
	if s.batchSize <= 0 {
		return 1
	}
	return s.batchSize
}

// Append implements store.Adapter.
func (s *Store) Append(_ context.Context, stream es.StreamName, expectedVersion store.ExpectedVersion, events []es.EventData) (int64, error) {
	if len(events) == 0 {
		return 0, store.ErrNoEvents
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Appends++

	key := stream.String()
	all := s.streams[key]
	currentVersion := int64(len(all)) - 1

	if !expectedVersion.IsAny() {
		if expectedVersion.IsNoStream() {
			if len(all) != 0 {
				return 0, store.ErrVersionConflict
			}
		} else if expectedVersion.StreamVersion() != currentVersion {
			return 0, store.ErrVersionConflict
		}
	}

	now := time.Now().UTC()
	for _, ed := range events {
		idx := int64(len(all))
		all = append(all, es.TimelineEvent{
			Index:         idx,
			EventType:     ed.EventType,
			Data:          ed.Data,
			Metadata:      ed.Metadata,
			EventID:       ed.EventID,
			CorrelationID: ed.CorrelationID,
			CausationID:   ed.CausationID,
			Timestamp:     now,
			Size:          len(ed.Data) + len(ed.Metadata),
		})
	}
	s.streams[key] = all
	return int64(len(all)) - 1, nil
}

// EventCount returns the number of events currently stored for stream,
// for use in test assertions.
func (s *Store) EventCount(stream es.StreamName) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams[stream.String()])
}
