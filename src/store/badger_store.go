package store

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/eventgate/src/common"
	"github.com/mosaicnetworks/eventgate/src/hashgraph"
	"github.com/sirupsen/logrus"
)

var (
	eventPrefix      = []byte("ev/")
	birthRoundPrefix = []byte("br/")
)

// BadgerEventStore persists events in a badger database.
//
// Events are keyed by their append sequence number, so that iterating over
// the event prefix replays them in append order. A secondary index keyed by
// birth round, then sequence, lets Prune find the ancient events without
// decoding anything.
type BadgerEventStore struct {
	sync.Mutex

	db   *badger.DB
	path string
	seq  uint64
	len  int

	logger *logrus.Entry
}

// NewBadgerEventStore opens, or creates, the database at path.
func NewBadgerEventStore(path string, logger *logrus.Entry) (*BadgerEventStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	opts.Logger = logger.WithField("prefix", "badger")

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerEventStore{
		db:     handle,
		path:   path,
		logger: logger,
	}

	if err := store.loadSequence(); err != nil {
		handle.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"path":   path,
		"events": store.len,
	}).Debug("Opened BadgerEventStore")

	return store, nil
}

func eventKey(seq uint64) []byte {
	key := make([]byte, len(eventPrefix)+8)
	copy(key, eventPrefix)
	binary.BigEndian.PutUint64(key[len(eventPrefix):], seq)
	return key
}

func birthRoundKey(birthRound int64, seq uint64) []byte {
	key := make([]byte, len(birthRoundPrefix)+16)
	copy(key, birthRoundPrefix)
	binary.BigEndian.PutUint64(key[len(birthRoundPrefix):], uint64(birthRound))
	binary.BigEndian.PutUint64(key[len(birthRoundPrefix)+8:], seq)
	return key
}

func parseBirthRoundKey(key []byte) (int64, uint64) {
	k := key[len(birthRoundPrefix):]
	return int64(binary.BigEndian.Uint64(k[:8])), binary.BigEndian.Uint64(k[8:16])
}

// loadSequence counts the stored events and finds the next sequence number.
func (s *BadgerEventStore) loadSequence() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(eventPrefix); it.ValidForPrefix(eventPrefix); it.Next() {
			key := it.Item().Key()
			seq := binary.BigEndian.Uint64(key[len(eventPrefix):])
			if seq >= s.seq {
				s.seq = seq + 1
			}
			s.len++
		}

		return nil
	})
}

// Append implements EventStore
func (s *BadgerEventStore) Append(event *hashgraph.Event) error {
	val, err := encodeEvent(event)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if s.db == nil {
		return common.NewStoreErr("BadgerEventStore", common.Closed, s.path)
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	//insert [ev/seq] => [event bytes]
	if err := tx.Set(eventKey(s.seq), val); err != nil {
		return err
	}
	//insert [br/round/seq] => []
	if err := tx.Set(birthRoundKey(event.BirthRound(), s.seq), []byte{}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.seq++
	s.len++

	return nil
}

// Replay implements EventStore
func (s *BadgerEventStore) Replay(fn func(*hashgraph.Event) error) error {
	s.Lock()
	db := s.db
	s.Unlock()

	if db == nil {
		return common.NewStoreErr("BadgerEventStore", common.Closed, s.path)
	}

	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(eventPrefix); it.ValidForPrefix(eventPrefix); it.Next() {
			item := it.Item()

			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			event, err := decodeEvent(val)
			if err != nil {
				return common.NewStoreErr("BadgerEventStore", common.Corrupted, string(item.Key()))
			}

			if err := fn(event); err != nil {
				return err
			}
		}

		return nil
	})
}

// Prune implements EventStore
func (s *BadgerEventStore) Prune(ancientThreshold int64) (int, error) {
	s.Lock()
	defer s.Unlock()

	if s.db == nil {
		return 0, common.NewStoreErr("BadgerEventStore", common.Closed, s.path)
	}

	// collect, then delete
	var ancient [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(birthRoundPrefix); it.ValidForPrefix(birthRoundPrefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if round, _ := parseBirthRoundKey(key); round >= ancientThreshold {
				break
			}
			ancient = append(ancient, key)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := s.deleteIndexed(ancient); err != nil {
		return 0, err
	}

	s.len -= len(ancient)

	if len(ancient) > 0 {
		s.logger.WithFields(logrus.Fields{
			"ancient_threshold": ancientThreshold,
			"pruned":            len(ancient),
		}).Debug("Pruned BadgerEventStore")
	}

	return len(ancient), nil
}

// deleteIndexed deletes the given birth round keys and the events they point
// to, splitting the work over several transactions if it does not fit in one.
func (s *BadgerEventStore) deleteIndexed(keys [][]byte) error {
	tx := s.db.NewTransaction(true)
	defer func() { tx.Discard() }()

	for _, key := range keys {
		_, seq := parseBirthRoundKey(key)

		for _, k := range [][]byte{key, eventKey(seq)} {
			err := tx.Delete(k)
			if err == badger.ErrTxnTooBig {
				if err := tx.Commit(); err != nil {
					return err
				}
				tx = s.db.NewTransaction(true)
				err = tx.Delete(k)
			}
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// Len implements EventStore
func (s *BadgerEventStore) Len() int {
	s.Lock()
	defer s.Unlock()
	return s.len
}

// Path returns the directory of the database.
func (s *BadgerEventStore) Path() string {
	return s.path
}

// Close implements EventStore
func (s *BadgerEventStore) Close() error {
	s.Lock()
	defer s.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	return err
}
