package store

import (
	"sync"
	"time"

	"github.com/mosaicnetworks/eventgate/src/common"
	"github.com/mosaicnetworks/eventgate/src/hashgraph"
)

// InmemEventStore keeps the encoded events in memory. Events go through the
// same encoding as with BadgerEventStore so that replayed events are copies.
type InmemEventStore struct {
	sync.RWMutex

	records []inmemRecord
	closed  bool
}

type inmemRecord struct {
	birthRound int64
	data       []byte
}

// NewInmemEventStore ...
func NewInmemEventStore() *InmemEventStore {
	return &InmemEventStore{}
}

// Append implements EventStore
func (s *InmemEventStore) Append(event *hashgraph.Event) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if s.closed {
		return common.NewStoreErr("InmemEventStore", common.Closed, "")
	}

	s.records = append(s.records, inmemRecord{
		birthRound: event.BirthRound(),
		data:       data,
	})

	return nil
}

// Replay implements EventStore
func (s *InmemEventStore) Replay(fn func(*hashgraph.Event) error) error {
	s.RLock()
	if s.closed {
		s.RUnlock()
		return common.NewStoreErr("InmemEventStore", common.Closed, "")
	}
	records := make([]inmemRecord, len(s.records))
	copy(records, s.records)
	s.RUnlock()

	for _, r := range records {
		e, err := decodeEvent(r.data)
		if err != nil {
			return common.NewStoreErr("InmemEventStore", common.Corrupted, err.Error())
		}
		if err := fn(e); err != nil {
			return err
		}
	}

	return nil
}

// Prune implements EventStore
func (s *InmemEventStore) Prune(ancientThreshold int64) (int, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return 0, common.NewStoreErr("InmemEventStore", common.Closed, "")
	}

	kept := s.records[:0]
	for _, r := range s.records {
		if r.birthRound >= ancientThreshold {
			kept = append(kept, r)
		}
	}
	pruned := len(s.records) - len(kept)
	s.records = kept

	return pruned, nil
}

// Len implements EventStore
func (s *InmemEventStore) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.records)
}

// Close implements EventStore
func (s *InmemEventStore) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	return nil
}

func timeFromNanos(n int64) time.Time {
	return time.Unix(0, n)
}
