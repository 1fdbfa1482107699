package service

import (
	"github.com/yndnr/tuamail-go/pkg/keyed"
)

func newList[V any]() []V {
	return nil
}

// appendTo appends v to the list stored under key, creating it if needed.
func appendTo[K comparable, V any](store *keyed.Store[K, []V], key K, v V) {
	store.Mutate(key, newList[V], func(list *[]V) {
		*list = append(*list, v)
	})
}

// listOf returns a copy of the list stored under key, never nil.
func listOf[K comparable, V any](store *keyed.Store[K, []V], key K) []V {
	list, _ := store.Get(key)
	return append(make([]V, 0, len(list)), list...)
}
