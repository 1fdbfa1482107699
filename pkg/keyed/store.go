package keyed

// Store is an unsynchronized map-backed keyed store.
type Store[K comparable, V any] struct {
	items map[K]V
}

// New creates an empty store.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{items: make(map[K]V)}
}

// Get retrieves a value by key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	v, ok := s.items[key]
	return v, ok
}

// Has checks if a key exists.
func (s *Store[K, V]) Has(key K) bool {
	_, ok := s.items[key]
	return ok
}

// Upsert stores value under key, replacing any previous value.
func (s *Store[K, V]) Upsert(key K, value V) {
	s.items[key] = value
}

// Mutate applies fn to the entry for key in place.
//
// When the key is absent the entry is first created from def. The mutated
// value is written back even if fn leaves it empty; removing the key is a
// separate Delete.
func (s *Store[K, V]) Mutate(key K, def func() V, fn func(v *V)) {
	v, ok := s.items[key]
	if !ok {
		v = def()
	}
	fn(&v)
	s.items[key] = v
}

// Update applies fn to an existing entry only.
// Returns false without calling fn if the key is absent.
func (s *Store[K, V]) Update(key K, fn func(v *V)) bool {
	v, ok := s.items[key]
	if !ok {
		return false
	}
	fn(&v)
	s.items[key] = v
	return true
}

// Delete removes a key. Returns whether the key existed.
func (s *Store[K, V]) Delete(key K) bool {
	if _, ok := s.items[key]; !ok {
		return false
	}
	delete(s.items, key)
	return true
}

// Len returns the number of keys.
func (s *Store[K, V]) Len() int {
	return len(s.items)
}

// Clear removes all items.
func (s *Store[K, V]) Clear() {
	s.items = make(map[K]V)
}
