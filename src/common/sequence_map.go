package common

import (
	"sort"
	"strconv"

	"github.com/elliotchance/orderedmap/v2"
)

// SequenceEntry is a key-value pair removed from a SequenceMap by a window
// shift.
type SequenceEntry[K comparable, V any] struct {
	Key   K
	Value V
}

// SequenceMap is a map whose keys carry a sequence number. It only holds keys
// whose sequence number is greater or equal to a floor, and the floor can only
// move forward. Moving the floor evicts every entry below it in time
// proportional to the number of sequence numbers skipped, not to the size of
// the map.
//
// Entries sharing a sequence number are kept in insertion order, so that
// evictions are returned in a deterministic order.
//
// SequenceMap is not safe for concurrent use.
type SequenceMap[K comparable, V any] struct {
	name     string
	floor    int64
	size     int
	sequence func(K) int64
	buckets  map[int64]*orderedmap.OrderedMap[K, V]
}

// NewSequenceMap creates a SequenceMap with an initial floor. The sequence
// function extracts the sequence number from a key and must always return the
// same value for the same key.
func NewSequenceMap[K comparable, V any](name string, floor int64, sequence func(K) int64) *SequenceMap[K, V] {
	return &SequenceMap[K, V]{
		name:     name,
		floor:    floor,
		sequence: sequence,
		buckets:  make(map[int64]*orderedmap.OrderedMap[K, V]),
	}
}

// Floor returns the lowest sequence number currently allowed in the map.
func (m *SequenceMap[K, V]) Floor() int64 {
	return m.floor
}

// Size returns the number of entries in the map.
func (m *SequenceMap[K, V]) Size() int {
	return m.size
}

// Put inserts or replaces the value associated with key. It returns a TooLate
// StoreErr if the key's sequence number is below the floor.
func (m *SequenceMap[K, V]) Put(key K, value V) error {
	seq := m.sequence(key)
	if seq < m.floor {
		return NewStoreErr(m.name, TooLate, strconv.FormatInt(seq, 10))
	}

	bucket, ok := m.buckets[seq]
	if !ok {
		bucket = orderedmap.NewOrderedMap[K, V]()
		m.buckets[seq] = bucket
	}

	if bucket.Set(key, value) {
		m.size++
	}

	return nil
}

// Get returns the value associated with key.
func (m *SequenceMap[K, V]) Get(key K) (V, bool) {
	bucket, ok := m.buckets[m.sequence(key)]
	if !ok {
		var zero V
		return zero, false
	}
	return bucket.Get(key)
}

// Contains returns true if the key is present in the map.
func (m *SequenceMap[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Remove deletes a key and returns the value it was associated with.
func (m *SequenceMap[K, V]) Remove(key K) (V, bool) {
	seq := m.sequence(key)

	bucket, ok := m.buckets[seq]
	if !ok {
		var zero V
		return zero, false
	}

	value, ok := bucket.Get(key)
	if !ok {
		return value, false
	}

	bucket.Delete(key)
	m.size--
	if bucket.Len() == 0 {
		delete(m.buckets, seq)
	}

	return value, true
}

// ShiftWindow raises the floor and returns the entries that fell below it,
// ordered by sequence number, then by insertion order. The map is fully
// updated before ShiftWindow returns, so callers may freely modify it while
// processing the evicted entries. A floor that is not greater than the current
// one is ignored.
func (m *SequenceMap[K, V]) ShiftWindow(floor int64) []SequenceEntry[K, V] {
	if floor <= m.floor {
		return nil
	}

	var evicted []SequenceEntry[K, V]
	for _, seq := range m.sequencesBelow(floor) {
		bucket := m.buckets[seq]
		for el := bucket.Front(); el != nil; el = el.Next() {
			evicted = append(evicted, SequenceEntry[K, V]{Key: el.Key, Value: el.Value})
		}
		m.size -= bucket.Len()
		delete(m.buckets, seq)
	}

	m.floor = floor

	return evicted
}

// sequencesBelow returns, in ascending order, the populated sequence numbers
// between the current floor and the new one. It walks whichever is smaller:
// the skipped range or the set of populated buckets.
func (m *SequenceMap[K, V]) sequencesBelow(floor int64) []int64 {
	res := []int64{}

	if floor-m.floor <= int64(len(m.buckets)) {
		for seq := m.floor; seq < floor; seq++ {
			if _, ok := m.buckets[seq]; ok {
				res = append(res, seq)
			}
		}
		return res
	}

	for seq := range m.buckets {
		if seq < floor {
			res = append(res, seq)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })

	return res
}

// Clear removes every entry but leaves the floor untouched.
func (m *SequenceMap[K, V]) Clear() {
	m.buckets = make(map[int64]*orderedmap.OrderedMap[K, V])
	m.size = 0
}
