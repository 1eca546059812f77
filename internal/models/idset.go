package models

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/google/uuid"
)

// IDSet is a set of user ids. The zero value is an empty, read-only set;
// use NewIDSet or Add (which allocates lazily via a pointer receiver) to write.
type IDSet map[uuid.UUID]struct{}

func NewIDSet(ids ...uuid.UUID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

func (s *IDSet) Add(id uuid.UUID) {
	if *s == nil {
		*s = make(IDSet)
	}
	(*s)[id] = struct{}{}
}

// Remove deletes id and reports whether it was present.
func (s IDSet) Remove(id uuid.UUID) bool {
	if _, ok := s[id]; !ok {
		return false
	}
	delete(s, id)
	return true
}

func (s IDSet) Len() int { return len(s) }

func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Intersect returns the ids present in both sets.
func (s IDSet) Intersect(o IDSet) IDSet {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(IDSet)
	for id := range small {
		if large.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Slice returns the ids in byte order.
func (s IDSet) Slice() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
