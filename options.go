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

package intset

// Option provides an interface to do work on a Set while it is being
// initialized.
type Option interface {
	apply(s *Set)
}

type maxLoadFactorOption struct {
	f float64
}

func (op maxLoadFactorOption) apply(s *Set) {
	s.maxLoad = op.f
}

// WithMaxLoadFactor is an option to specify the initial load factor ceiling
// for a Set. The default is 1.0.
func WithMaxLoadFactor(f float64) Option {
	return maxLoadFactorOption{f}
}

type capacityTableOption struct {
	table []int
}

func (op capacityTableOption) apply(s *Set) {
	s.table = op.table
}

// WithCapacityTable is an option to specify the capacity table for a Set: the
// ascending list of bucket counts that growth steps through. The first entry
// is the initial bucket count. The table must be non-empty and strictly
// ascending with positive entries; WithCapacityTable panics otherwise. The
// Set holds on to the slice, which must not be modified afterwards.
func WithCapacityTable(table []int) Option {
	if len(table) == 0 {
		panic("intset: empty capacity table")
	}
	for i, n := range table {
		if n <= 0 || (i > 0 && n <= table[i-1]) {
			panic("intset: capacity table must be ascending and positive")
		}
	}
	return capacityTableOption{table}
}
