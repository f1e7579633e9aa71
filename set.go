// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package intset implements a set of integer keys using open hashing with
// bucket-grouped storage: rather than giving every bucket its own chain, all
// elements live in a single doubly linked key sequence in which each bucket's
// members form one contiguous run. A per-bucket index array records the
// position of the first element of each run (or End for an empty bucket), so
// a lookup is a modulo, one index load, and a walk bounded by the length of a
// single run.
//
// # Layout
//
// The key sequence is an intrusive doubly linked list whose nodes live in an
// arena (a plain slice) with free-list reuse of erased slots. A Pos is an
// index into that arena, which gives it the stability properties of a C++
// list iterator without holding a pointer: a Pos remains valid across
// insertion and erasure of other elements, is invalidated when the element it
// references is erased, and is invalidated wholesale by any rehash.
//
// Runs are kept contiguous without ever relocating another bucket's elements.
// Inserting into a non-empty bucket appends at the end of that bucket's run.
// Inserting into an empty bucket splices a new single-element run immediately
// before the first element of the next non-empty bucket (or at the tail of
// the sequence if there is none), so new runs always appear at a run
// boundary, never inside a foreign run. A side effect is that iterating the
// sequence visits buckets in ascending bucket order.
//
// # Growth
//
// A bucket is selected by floor modulo, key mod bucketCount, adjusted to be
// non-negative so that negative keys hash like everything else. Bucket counts
// are drawn from a fixed ascending capacity table; when an insert finds the
// load factor above the configured ceiling the set rehashes to the next table
// entry. Rehashing rebuilds the arena and the bucket index from scratch and
// is the only operation that changes the bucket count. The set never shrinks.
package intset

import (
	"fmt"
	"strings"
)

// defaultCapacityTable is the ascending list of candidate bucket counts that
// growth steps through. Roughly doubling primes keep the floor-modulo
// bucketing well distributed. Shared read-only by every Set constructed
// without WithCapacityTable.
var defaultCapacityTable = []int{
	11, 23, 47, 97, 197, 397, 797, 1597, 3203, 6421,
	12853, 25717, 51437, 102877, 205759,
}

const defaultMaxLoadFactor = 1.0

// A Pos is a stable handle to an element of a Set. It stays valid across
// insertion and erasure of other elements, is invalidated when the element it
// references is erased, and is invalidated by any rehash (including the
// automatic rehash an Insert may perform). Using an invalidated Pos is a
// precondition violation; the behavior is undefined.
type Pos int

// End is the position one past the last element. It is not inside any bucket
// and must not be passed to At, Next, or DeleteAt.
const End Pos = -1

// node is an element of the key sequence. Nodes live in the Set's arena and
// link to their neighbors by arena index. An erased node is threaded onto the
// free list through its next field.
type node struct {
	key  int
	prev Pos
	next Pos
}

// Set is a set of integers with Insert, Contains, Find, Delete, and ordered
// iteration. The zero value for a Set is not usable; use New or Init.
//
// A Set is NOT goroutine-safe.
type Set struct {
	// nodes is the arena backing the key sequence. Erased slots are reused
	// via the free list before the arena grows.
	nodes []node
	// free is the head of the free list of erased arena slots, or End.
	free Pos
	// head and tail delimit the key sequence, both End when the set is
	// empty.
	head Pos
	tail Pos
	// buckets maps a bucket number to the first element of that bucket's
	// run, or End if the bucket is empty. len(buckets) is always
	// table[tableIdx].
	buckets []Pos
	// table is the capacity table. Growth only moves tableIdx forward.
	table    []int
	tableIdx int
	// The number of elements in the set.
	len     int
	maxLoad float64
}

// New constructs a new Set with the first capacity table entry as its bucket
// count.
func New(opts ...Option) *Set {
	var s Set
	s.Init(opts...)
	return &s
}

// Init initializes the set, discarding any prior state. The bucket count
// starts at the first capacity table entry.
func (s *Set) Init(opts ...Option) {
	*s = Set{
		free:    End,
		head:    End,
		tail:    End,
		table:   defaultCapacityTable,
		maxLoad: defaultMaxLoadFactor,
	}
	for _, op := range opts {
		op.apply(s)
	}
	s.buckets = newBucketIndex(s.table[0])
	s.checkInvariants()
}

func newBucketIndex(n int) []Pos {
	index := make([]Pos, n)
	for i := range index {
		index[i] = End
	}
	return index
}

// floorMod returns key mod n adjusted into [0, n), unlike Go's % operator
// which truncates toward zero for negative keys.
func floorMod(key, n int) int {
	m := key % n
	if m < 0 {
		m += n
	}
	return m
}

// Bucket returns the bucket number of key under the current bucket count, a
// value in [0, BucketCount()). Negative keys are valid.
func (s *Set) Bucket(key int) int {
	return floorMod(key, len(s.buckets))
}

// findInBucket walks bucket b's run looking for key, returning its position
// or End. The walk stops at the first element belonging to a different
// bucket, which by the contiguity invariant ends the run.
func (s *Set) findInBucket(key int, b int) Pos {
	for p := s.buckets[b]; p != End && s.Bucket(s.nodes[p].key) == b; p = s.nodes[p].next {
		if s.nodes[p].key == key {
			return p
		}
	}
	return End
}

// Contains reports whether key is in the set.
func (s *Set) Contains(key int) bool {
	return s.findInBucket(key, s.Bucket(key)) != End
}

// Find returns the position of key, or End if key is not in the set.
func (s *Set) Find(key int) Pos {
	return s.findInBucket(key, s.Bucket(key))
}

// Insert adds key to the set. Inserting a key that is already present is a
// no-op. Insert may grow the set, invalidating all positions.
func (s *Set) Insert(key int) {
	if s.Contains(key) {
		return
	}

	// Grow before placing the key if the pre-insertion load factor is above
	// the ceiling and the capacity table has a larger entry left.
	if s.LoadFactor() > s.maxLoad && s.tableIdx+1 < len(s.table) {
		s.Rehash(s.table[s.tableIdx+1])
	}

	// NB: recompute the bucket after the growth check; the bucket count may
	// have changed.
	b := s.Bucket(key)

	var pos Pos
	if s.buckets[b] != End {
		// Append at the end of the bucket's existing run.
		pos = s.buckets[b]
		for pos != End && s.Bucket(s.nodes[pos].key) == b {
			pos = s.nodes[pos].next
		}
	} else {
		// The bucket is empty. Splice a fresh single-element run in front of
		// the next non-empty bucket's run so that runs stay in ascending
		// bucket order, or append at the tail if every later bucket is
		// empty. Either way the insertion point is a run boundary, so no
		// other bucket's run is broken up.
		pos = End
		for nb := b + 1; nb < len(s.buckets); nb++ {
			if s.buckets[nb] != End {
				pos = s.buckets[nb]
				break
			}
		}
	}

	n := s.insertBefore(pos, key)
	if s.buckets[b] == End {
		s.buckets[b] = n
	}
	s.len++
	s.checkInvariants()
}

// Delete removes key from the set. Deleting a key that is not present is a
// no-op.
func (s *Set) Delete(key int) {
	if p := s.Find(key); p != End {
		s.DeleteAt(p)
	}
}

// DeleteAt removes the element at position p and returns the position of the
// element that followed it, or End. p must be a valid position; passing End
// returns End.
func (s *Set) DeleteAt(p Pos) Pos {
	if p == End {
		return End
	}
	b := s.Bucket(s.nodes[p].key)
	// If p is the first element of its bucket's run, the bucket index entry
	// moves to the next element of the run, or to End if p was the run's
	// only element.
	if s.buckets[b] == p {
		next := s.nodes[p].next
		if next != End && s.Bucket(s.nodes[next].key) == b {
			s.buckets[b] = next
		} else {
			s.buckets[b] = End
		}
	}
	next := s.unlink(p)
	s.len--
	s.checkInvariants()
	return next
}

// Rehash grows the set so that the bucket count is at least minBuckets,
// selected by scanning the capacity table forward from the current entry. If
// no remaining entry is large enough the table's last entry is used. All
// elements are regrouped under the new bucket count and both the key sequence
// and the bucket index are rebuilt from scratch; every Pos is invalidated.
func (s *Set) Rehash(minBuckets int) {
	idx := len(s.table) - 1
	for i := s.tableIdx; i < len(s.table); i++ {
		if s.table[i] >= minBuckets {
			idx = i
			break
		}
	}
	newCount := s.table[idx]

	// Partition the keys into per-bucket groups under the new bucket count,
	// preserving the relative order within each surviving run.
	groups := make([][]int, newCount)
	for p := s.head; p != End; p = s.nodes[p].next {
		key := s.nodes[p].key
		b := floorMod(key, newCount)
		groups[b] = append(groups[b], key)
	}

	// Discard the old sequence and index and rebuild by concatenating the
	// groups in ascending bucket order. The element count is recomputed as
	// the total number of appended keys.
	s.nodes = make([]node, 0, s.len)
	s.free, s.head, s.tail = End, End, End
	s.buckets = newBucketIndex(newCount)
	s.tableIdx = idx
	s.len = 0
	for b, group := range groups {
		for i, key := range group {
			p := s.insertBefore(End, key)
			if i == 0 {
				s.buckets[b] = p
			}
			s.len++
		}
	}
	s.checkInvariants()
}

// Clone returns an independent deep copy of the set. The copy has its own key
// sequence and a freshly rebuilt bucket index; positions obtained from the
// source are meaningless in the copy.
func (s *Set) Clone() *Set {
	c := &Set{
		nodes:    make([]node, 0, s.len),
		free:     End,
		head:     End,
		tail:     End,
		buckets:  newBucketIndex(len(s.buckets)),
		table:    s.table,
		tableIdx: s.tableIdx,
		maxLoad:  s.maxLoad,
	}
	// Walking the source in sequence order visits each bucket's run intact,
	// so the first element copied for a bucket is the first element of its
	// run in the copy as well.
	for p := s.head; p != End; p = s.nodes[p].next {
		key := s.nodes[p].key
		np := c.insertBefore(End, key)
		if b := c.Bucket(key); c.buckets[b] == End {
			c.buckets[b] = np
		}
		c.len++
	}
	c.checkInvariants()
	return c
}

// CopyFrom replaces the set's entire state with a deep copy of o. The copy is
// built in full before the receiver is touched, so the receiver is never
// observable in a partially assigned state. CopyFrom(s) with o == s is a
// no-op.
func (s *Set) CopyFrom(o *Set) {
	c := o.Clone()
	*s = *c
}

// First returns the position of the first element in iteration order, or End
// if the set is empty.
func (s *Set) First() Pos {
	return s.head
}

// Next returns the position following p, or End. p must be a valid, non-End
// position.
func (s *Set) Next(p Pos) Pos {
	return s.nodes[p].next
}

// At returns the key at position p. p must be a valid, non-End position.
func (s *Set) At(p Pos) int {
	return s.nodes[p].key
}

// All calls yield sequentially for each key in the set in iteration order
// (ascending bucket order, insertion order within a run). If yield returns
// false, All stops the iteration. The set must not be mutated during
// iteration.
func (s *Set) All(yield func(key int) bool) {
	for p := s.head; p != End; p = s.nodes[p].next {
		if !yield(s.nodes[p].key) {
			return
		}
	}
}

// Len returns the number of elements in the set.
func (s *Set) Len() int {
	return s.len
}

// Empty reports whether the set has no elements.
func (s *Set) Empty() bool {
	return s.len == 0
}

// BucketCount returns the current number of buckets.
func (s *Set) BucketCount() int {
	return len(s.buckets)
}

// BucketLen returns the number of elements in bucket b, walking b's run. It
// returns 0 if b is out of range or the bucket is empty.
func (s *Set) BucketLen(b int) int {
	if b < 0 || b >= len(s.buckets) {
		return 0
	}
	var n int
	for p := s.buckets[b]; p != End && s.Bucket(s.nodes[p].key) == b; p = s.nodes[p].next {
		n++
	}
	return n
}

// LoadFactor returns the ratio of elements to buckets, or 0 if there are no
// buckets.
func (s *Set) LoadFactor() float64 {
	if len(s.buckets) == 0 {
		return 0
	}
	return float64(s.len) / float64(len(s.buckets))
}

// MaxLoadFactor returns the load factor ceiling above which an insert grows
// the set.
func (s *Set) MaxLoadFactor() float64 {
	return s.maxLoad
}

// SetMaxLoadFactor sets the load factor ceiling. If the current load factor
// now exceeds the ceiling, the set rehashes to the first later capacity table
// entry that would bring the load factor back under it. If no remaining entry
// is large enough the set keeps its current bucket count and the elevated
// load factor stands; subsequent inserts behave the same way.
func (s *Set) SetMaxLoadFactor(f float64) {
	s.maxLoad = f
	if s.LoadFactor() <= f {
		return
	}
	for i := s.tableIdx + 1; i < len(s.table); i++ {
		if float64(s.len)/float64(s.table[i]) <= f {
			s.Rehash(s.table[i])
			return
		}
	}
}

// insertBefore splices a new node holding key into the sequence immediately
// before pos, or at the tail if pos is End, and returns the new node's
// position. It does not touch the bucket index or the element count.
func (s *Set) insertBefore(pos Pos, key int) Pos {
	n := s.alloc(key)
	if pos == End {
		s.nodes[n].prev = s.tail
		s.nodes[n].next = End
		if s.tail != End {
			s.nodes[s.tail].next = n
		} else {
			s.head = n
		}
		s.tail = n
		return n
	}
	prev := s.nodes[pos].prev
	s.nodes[n].prev = prev
	s.nodes[n].next = pos
	s.nodes[pos].prev = n
	if prev != End {
		s.nodes[prev].next = n
	} else {
		s.head = n
	}
	return n
}

// unlink removes the node at p from the sequence, pushes its slot onto the
// free list, and returns the position that followed p.
func (s *Set) unlink(p Pos) Pos {
	prev, next := s.nodes[p].prev, s.nodes[p].next
	if prev != End {
		s.nodes[prev].next = next
	} else {
		s.head = next
	}
	if next != End {
		s.nodes[next].prev = prev
	} else {
		s.tail = prev
	}
	s.nodes[p] = node{prev: End, next: s.free}
	s.free = p
	return next
}

// alloc takes a slot off the free list, or grows the arena, and returns the
// position of a fresh node holding key. The node's links are set by the
// caller.
func (s *Set) alloc(key int) Pos {
	if s.free != End {
		n := s.free
		s.free = s.nodes[n].next
		s.nodes[n] = node{key: key, prev: End, next: End}
		return n
	}
	s.nodes = append(s.nodes, node{key: key, prev: End, next: End})
	return Pos(len(s.nodes) - 1)
}

// checkInvariants validates the set's structural invariants: the bucket index
// length matches the current capacity table entry, every bucket's elements
// form one contiguous run starting at its index entry, the sequence links are
// mutually consistent, no key appears twice, the element count matches the
// sequence length, and every arena slot is either live or on the free list.
// Compiled out unless built with the invariants build tag.
func (s *Set) checkInvariants() {
	if !invariants {
		return
	}

	if len(s.buckets) != s.table[s.tableIdx] {
		panic(fmt.Sprintf("invariant failed: %d buckets, but capacity table entry %d is %d\n%s",
			len(s.buckets), s.tableIdx, s.table[s.tableIdx], s.debugString()))
	}

	// Walk the sequence checking link consistency, uniqueness, grouping, and
	// the index entries.
	seen := make(map[int]struct{}, s.len)
	started := make(map[int]struct{}, len(s.buckets))
	var count int
	var prev Pos = End
	lastBucket := -1
	for p := s.head; p != End; p = s.nodes[p].next {
		if s.nodes[p].prev != prev {
			panic(fmt.Sprintf("invariant failed: node %d: prev=%d, expected %d\n%s",
				p, s.nodes[p].prev, prev, s.debugString()))
		}
		key := s.nodes[p].key
		if _, ok := seen[key]; ok {
			panic(fmt.Sprintf("invariant failed: key %d appears twice\n%s", key, s.debugString()))
		}
		seen[key] = struct{}{}

		b := s.Bucket(key)
		if b != lastBucket {
			if _, ok := started[b]; ok {
				panic(fmt.Sprintf("invariant failed: bucket %d's run is not contiguous\n%s", b, s.debugString()))
			}
			started[b] = struct{}{}
			if s.buckets[b] != p {
				panic(fmt.Sprintf("invariant failed: bucket %d starts at %d, but index entry is %d\n%s",
					b, p, s.buckets[b], s.debugString()))
			}
			lastBucket = b
		}
		prev = p
		count++
	}
	if prev != s.tail {
		panic(fmt.Sprintf("invariant failed: tail=%d, but last node is %d\n%s", s.tail, prev, s.debugString()))
	}
	if count != s.len {
		panic(fmt.Sprintf("invariant failed: walked %d elements, but len is %d\n%s", count, s.len, s.debugString()))
	}

	// Every empty bucket's index entry must be End.
	for b, p := range s.buckets {
		if _, ok := started[b]; !ok && p != End {
			panic(fmt.Sprintf("invariant failed: empty bucket %d has index entry %d\n%s", b, p, s.debugString()))
		}
	}

	// Arena accounting: live nodes plus free-list nodes cover the arena.
	var freeLen int
	for p := s.free; p != End; p = s.nodes[p].next {
		freeLen++
	}
	if count+freeLen != len(s.nodes) {
		panic(fmt.Sprintf("invariant failed: %d live + %d free != %d arena slots\n%s",
			count, freeLen, len(s.nodes), s.debugString()))
	}
}

func (s *Set) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "len=%d  buckets=%d  load-factor=%.3f  max-load-factor=%.3f\n",
		s.len, len(s.buckets), s.LoadFactor(), s.maxLoad)
	for b := range s.buckets {
		if s.buckets[b] == End {
			continue
		}
		fmt.Fprintf(&buf, "  %4d:", b)
		for p := s.buckets[b]; p != End && s.Bucket(s.nodes[p].key) == b; p = s.nodes[p].next {
			fmt.Fprintf(&buf, " %d@%d", s.nodes[p].key, p)
		}
		fmt.Fprintf(&buf, "\n")
	}
	return buf.String()
}
