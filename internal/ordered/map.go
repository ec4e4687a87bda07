// Package ordered implements an ordered map type.
package ordered

// Map is an order-preserving map. Keys keep the position they were first set
// at; later Set calls on an existing key update the value in place rather
// than moving it to the end.
type Map[K comparable, V any] struct {
	items []Tuple[K, V]
	index map[K]int
}

// MapSS is a convenience alias to reduce keyboard wear.
type MapSS = Map[string, string]

// MapSA is a convenience alias to reduce keyboard wear.
type MapSA = Map[string, any]

// NewMap returns a new empty map with a given initial capacity.
func NewMap[K comparable, V any](cap int) *Map[K, V] {
	return &Map[K, V]{
		items: make([]Tuple[K, V], 0, cap),
		index: make(map[K]int, cap),
	}
}

// MapFromItems creates an Map with some items.
func MapFromItems[K comparable, V any](ps ...Tuple[K, V]) *Map[K, V] {
	m := NewMap[K, V](len(ps))
	for _, p := range ps {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Len returns the number of items in the map.
func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.index)
}

// IsZero reports if m is nil or empty.
func (m *Map[K, V]) IsZero() bool {
	return m == nil || len(m.index) == 0
}

// Get retrieves the value associated with a key, and reports if it was found.
func (m *Map[K, V]) Get(k K) (V, bool) {
	var zv V
	if m == nil {
		return zv, false
	}
	idx, ok := m.index[k]
	if !ok {
		return zv, false
	}
	return m.items[idx].Value, true
}

// Contains reports if the map contains the key.
func (m *Map[K, V]) Contains(k K) bool {
	if m == nil {
		return false
	}
	_, has := m.index[k]
	return has
}

// Set sets the value for the given key. If the key exists, it remains in its
// existing spot, otherwise it is added to the end of the map.
func (m *Map[K, V]) Set(k K, v V) {
	// Suppose someone makes Map with new(Map). The one thing we need to not be
	// nil will be nil.
	if m.index == nil {
		m.index = make(map[K]int, 1)
	}

	// Replace existing value?
	if idx, exists := m.index[k]; exists {
		m.items[idx].Value = v
		return
	}

	// Append new item.
	m.index[k] = len(m.items)
	m.items = append(m.items, Tuple[K, V]{
		Key:   k,
		Value: v,
	})
}

// Replace replaces an old key in the same spot with a new key and value.
// If the old key doesn't exist in the map, the item is inserted at the end.
// If the new key already exists in the map (and isn't equal to the old key),
// then it is deleted.
// This provides a way to change a single key in-place (easier than deleting the
// old key and all later keys, adding the new key, then restoring the rest).
func (m *Map[K, V]) Replace(old, new K, v V) {
	// Suppose someone makes Map with new(Map). The one thing we need to not be
	// nil will be nil.
	if m.index == nil {
		m.index = make(map[K]int, 1)
	}

	// idx is where the item will go
	idx, exists := m.index[old]
	if !exists {
		// Point idx at the end of m.items and ensure there is an item there.
		idx = len(m.items)
		m.items = append(m.items, Tuple[K, V]{})
	}

	// If the key changed, there's some tidyup...
	if old != new {
		// If "new" already exists in the map, then delete it first. The intent
		// of Replace is to put the item where "old" is but under "new", so if
		// "new" already exists somewhere else, adding it where "old" is would
		// be getting out of hand (now there are two of them).
		if newidx, exists := m.index[new]; exists {
			m.items[newidx].deleted = true
		}

		// Delete "old" from the index and update "new" to point to idx
		delete(m.index, old)
		m.index[new] = idx
	}

	// Put the item into m.items at idx.
	m.items[idx] = Tuple[K, V]{
		Key:   new,
		Value: v,
	}
}

// Delete deletes a key from the map. It does nothing if the key is not in the
// map.
func (m *Map[K, V]) Delete(k K) {
	if m == nil {
		return
	}
	idx, ok := m.index[k]
	if !ok {
		return
	}
	m.items[idx].deleted = true
	delete(m.index, k)

	// If half the pairs have been deleted, perform a compaction.
	if len(m.items) >= 2*len(m.index) {
		m.compact()
	}
}

// ToMap creates a regular (un-ordered) map containing the same data.
func (m *Map[K, V]) ToMap() map[K]V {
	um := make(map[K]V, len(m.index))
	m.Range(func(k K, v V) error {
		um[k] = v
		return nil
	})
	return um
}

// compact re-organises the internal storage of the Map.
func (m *Map[K, V]) compact() {
	pairs := make([]Tuple[K, V], 0, len(m.index))
	for _, p := range m.items {
		if p.deleted {
			continue
		}
		m.index[p.Key] = len(pairs)
		pairs = append(pairs, Tuple[K, V]{
			Key:   p.Key,
			Value: p.Value,
		})
	}
	m.items = pairs
}

// Range ranges over the map (in order). If f returns an error, it stops ranging
// and returns that error.
func (m *Map[K, V]) Range(f func(k K, v V) error) error {
	if m.IsZero() {
		return nil
	}
	for _, p := range m.items {
		if p.deleted {
			continue
		}
		if err := f(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

