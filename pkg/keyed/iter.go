package keyed

import "slices"

// Range iterates over all key-value pairs in unspecified order.
// The callback returns false to stop iteration.
func (s *Store[K, V]) Range(fn func(key K, value V) bool) {
	for k, v := range s.items {
		if !fn(k, v) {
			return
		}
	}
}

// Keys returns all keys ordered by cmp.
func (s *Store[K, V]) Keys(cmp func(a, b K) int) []K {
	keys := make([]K, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, cmp)
	return keys
}

// Entry is a key-value pair returned by Sorted.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Sorted returns all entries ordered by key using cmp.
//
// Iteration order of the underlying map is random; anything that must be
// reproducible (snapshots, previews with tied timestamps) goes through Sorted.
func (s *Store[K, V]) Sorted(cmp func(a, b K) int) []Entry[K, V] {
	keys := s.Keys(cmp)
	entries := make([]Entry[K, V], 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry[K, V]{Key: k, Value: s.items[k]})
	}
	return entries
}
