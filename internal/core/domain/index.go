package domain

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type Facet string

const (
	FacetActor    Facet = "actor"
	FacetDirector Facet = "director"
	FacetCompany  Facet = "company"
	FacetGenre    Facet = "genre"
	FacetYear     Facet = "year"
)

// Facets lists every indexed facet in a stable order.
var Facets = []Facet{FacetActor, FacetDirector, FacetGenre, FacetCompany, FacetYear}

// InvertedIndex maps a normalized facet value to the movies holding it.
// Keys iterate in insertion order, which the year scan relies on.
type InvertedIndex struct {
	entries *orderedmap.OrderedMap[string, []Movie]
}

func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{entries: orderedmap.New[string, []Movie]()}
}

// Add appends movie under key. Callers pass already normalized keys.
func (idx *InvertedIndex) Add(key string, movie Movie) {
	current, _ := idx.entries.Get(key)
	idx.entries.Set(key, append(current, movie))
}

// Lookup returns the movies stored under key; a missing key yields nil.
func (idx *InvertedIndex) Lookup(key string) []Movie {
	if idx == nil || idx.entries == nil {
		return nil
	}
	movies, _ := idx.entries.Get(key)
	return movies
}

// Each visits keys in insertion order until fn returns false.
func (idx *InvertedIndex) Each(fn func(key string, movies []Movie) bool) {
	if idx == nil || idx.entries == nil {
		return
	}
	for pair := idx.entries.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

func (idx *InvertedIndex) Len() int {
	if idx == nil || idx.entries == nil {
		return 0
	}
	return idx.entries.Len()
}

func (idx *InvertedIndex) MarshalJSON() ([]byte, error) {
	return idx.entries.MarshalJSON()
}

func (idx *InvertedIndex) UnmarshalJSON(data []byte) error {
	entries := orderedmap.New[string, []Movie]()
	if err := entries.UnmarshalJSON(data); err != nil {
		return err
	}
	idx.entries = entries
	return nil
}

// IndexSet groups the five facet indexes. It is immutable once built and is
// shared by concurrent queries without locking.
type IndexSet struct {
	indexes map[Facet]*InvertedIndex
}

func NewIndexSet() *IndexSet {
	set := &IndexSet{indexes: make(map[Facet]*InvertedIndex, len(Facets))}
	for _, facet := range Facets {
		set.indexes[facet] = NewInvertedIndex()
	}
	return set
}

// Facet returns the index for facet, never nil.
func (s *IndexSet) Facet(facet Facet) *InvertedIndex {
	if s == nil {
		return NewInvertedIndex()
	}
	idx, ok := s.indexes[facet]
	if !ok || idx == nil {
		return NewInvertedIndex()
	}
	return idx
}

// Put replaces the index stored for facet.
func (s *IndexSet) Put(facet Facet, idx *InvertedIndex) {
	if idx == nil {
		idx = NewInvertedIndex()
	}
	s.indexes[facet] = idx
}

// Stats returns the number of distinct keys per facet.
func (s *IndexSet) Stats() map[Facet]int {
	out := make(map[Facet]int, len(Facets))
	for _, facet := range Facets {
		out[facet] = s.Facet(facet).Len()
	}
	return out
}
