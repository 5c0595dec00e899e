package ecs

import (
	"fmt"
	"iter"
	"math/bits"
	"strconv"
	"strings"
)

const (
	bitsPerWord = 64
	absent      = -1
)

// Signature is a set of component type ids together with a dense ordinal
// for each member. Ordinals follow ascending id order, never insertion order,
// so two signatures with the same members always agree on positions.
//
// A Signature is frozen the first time it is used for a query or iteration;
// adding a type after that panics.
type Signature struct {
	words  []uint64
	index  []int
	count  int
	frozen bool
}

// NewSignature returns an empty signature able to hold ids in [0, capacity).
func NewSignature(capacity int) *Signature {
	if capacity < 0 {
		panic("signature capacity must not be negative")
	}
	s := &Signature{
		words: make([]uint64, (capacity+bitsPerWord-1)/bitsPerWord),
		index: make([]int, capacity),
	}
	for i := range s.index {
		s.index[i] = absent
	}
	return s
}

// Cap returns the number of component type ids the signature can hold.
func (s *Signature) Cap() int {
	return len(s.index)
}

// Len returns the number of component types in the signature.
func (s *Signature) Len() int {
	return s.count
}

// AddComponentType adds id to the signature and recomputes dense indices.
// Adding an id that is already present does nothing.
func (s *Signature) AddComponentType(id ComponentTypeID) {
	if s.frozen {
		panic(fmt.Errorf("add component type %d: %w", id, ErrSignatureFrozen))
	}
	if int(id) >= len(s.index) {
		panic(fmt.Errorf("add component type %d: %w: capacity is %d", id, ErrTypeIDOutOfRange, len(s.index)))
	}
	if s.HasComponentType(id) {
		return
	}
	s.words[id/bitsPerWord] |= 1 << (id % bitsPerWord)
	s.reindex()
}

func (s *Signature) reindex() {
	next := 0
	for i := range s.index {
		if s.words[i/bitsPerWord]&(1<<(uint(i)%bitsPerWord)) != 0 {
			s.index[i] = next
			next++
		} else {
			s.index[i] = absent
		}
	}
	s.count = next
}

// HasComponentType reports whether id is a member.
func (s *Signature) HasComponentType(id ComponentTypeID) bool {
	if int(id) >= len(s.index) {
		return false
	}
	return s.words[id/bitsPerWord]&(1<<(id%bitsPerWord)) != 0
}

// DenseIndexOf returns the ordinal of id among the members. It fails with
// ErrTypeNotInSignature if id is not a member.
func (s *Signature) DenseIndexOf(id ComponentTypeID) (int, error) {
	if int(id) >= len(s.index) || s.index[id] == absent {
		return 0, fmt.Errorf("component type %d: %w %s", id, ErrTypeNotInSignature, s)
	}
	return s.index[id], nil
}

// MustDenseIndexOf is like DenseIndexOf but panics if id is not a member.
func (s *Signature) MustDenseIndexOf(id ComponentTypeID) int {
	idx, err := s.DenseIndexOf(id)
	if err != nil {
		panic(err)
	}
	return idx
}

// IntegerKey packs the signature into one bit per type id. It fails with
// ErrKeyOverflow when the capacity exceeds 64 ids.
func (s *Signature) IntegerKey() (uint64, error) {
	if len(s.index) > bitsPerWord {
		return 0, fmt.Errorf("%w: capacity %d", ErrKeyOverflow, len(s.index))
	}
	if len(s.words) == 0 {
		return 0, nil
	}
	return s.words[0], nil
}

// Equal reports whether both signatures have the same members.
func (s *Signature) Equal(other *Signature) bool {
	n := max(len(s.words), len(other.words))
	for i := 0; i < n; i++ {
		if s.word(i) != other.word(i) {
			return false
		}
	}
	return true
}

// Contains reports whether every member of other is also a member of s.
func (s *Signature) Contains(other *Signature) bool {
	for i := range other.words {
		if s.word(i)&other.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

func (s *Signature) word(i int) uint64 {
	if i < len(s.words) {
		return s.words[i]
	}
	return 0
}

// Members iterates over member ids in ascending order, which is also dense
// index order.
func (s *Signature) Members() iter.Seq[ComponentTypeID] {
	return func(yield func(ComponentTypeID) bool) {
		for w, word := range s.words {
			for word != 0 {
				bit := bits.TrailingZeros64(word)
				if !yield(ComponentTypeID(w*bitsPerWord + bit)) {
					return
				}
				word &^= 1 << bit
			}
		}
	}
}

// Freeze makes the signature immutable.
func (s *Signature) Freeze() {
	s.frozen = true
}

// Frozen reports whether the signature can no longer change.
func (s *Signature) Frozen() bool {
	return s.frozen
}

// Clone returns an unfrozen copy.
func (s *Signature) Clone() *Signature {
	c := &Signature{
		words: make([]uint64, len(s.words)),
		index: make([]int, len(s.index)),
		count: s.count,
	}
	copy(c.words, s.words)
	copy(c.index, s.index)
	return c
}

func (s *Signature) String() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for id := range s.Members() {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	b.WriteByte('}')
	return b.String()
}
