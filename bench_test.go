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

import (
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

func BenchmarkSetContainsHit(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapContainsHit))
	b.Run("impl=intSet", benchSizes(benchmarkIntSetContainsHit))
}

func BenchmarkSetContainsMiss(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapContainsMiss))
	b.Run("impl=intSet", benchSizes(benchmarkIntSetContainsMiss))
}

func BenchmarkSetInsertGrow(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapInsertGrow))
	b.Run("impl=intSet", benchSizes(benchmarkIntSetInsertGrow))
}

func BenchmarkSetInsertDelete(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapInsertDelete))
	b.Run("impl=intSet", benchSizes(benchmarkIntSetInsertDelete))
}

func BenchmarkSetIter(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapIter))
	b.Run("impl=intSet", benchSizes(benchmarkIntSetIter))
}

func benchSizes(f func(b *testing.B, n int)) func(*testing.B) {
	// Finding the splice point for an empty bucket scans forward through the
	// bucket index, so bulk sequential inserts cost O(bucketCount) each.
	// Keep the size grid modest so setup stays cheap.
	var cases = []int{
		8, 16, 32, 64,
		128,
		256,
		512,
		1024,
		2048,
		4096,
		8192,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n) })
		}
	}
}

// genKeys returns the integers in [start, end).
func genKeys(start, end int) []int {
	keys := make([]int, end-start)
	for i := range keys {
		keys[i] = start + i
	}
	return keys
}

func benchmarkRuntimeMapContainsHit(b *testing.B, n int) {
	m := make(map[int]struct{}, n)
	keys := genKeys(0, n)
	for _, k := range keys {
		m[k] = struct{}{}
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m[keys[i%n]]
	}
	cs.Stop()
}

func benchmarkIntSetContainsHit(b *testing.B, n int) {
	s := New()
	keys := genKeys(0, n)
	for _, k := range keys {
		s.Insert(k)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Contains(keys[i%n])
	}
	cs.Stop()
}

func benchmarkRuntimeMapContainsMiss(b *testing.B, n int) {
	m := make(map[int]struct{}, n)
	keys := genKeys(0, n)
	miss := genKeys(-n, 0)
	for _, k := range keys {
		m[k] = struct{}{}
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m[miss[i%n]]
	}
	cs.Stop()
}

func benchmarkIntSetContainsMiss(b *testing.B, n int) {
	s := New()
	keys := genKeys(0, n)
	miss := genKeys(-n, 0)
	for _, k := range keys {
		s.Insert(k)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Contains(miss[i%n])
	}
	cs.Stop()
}

func benchmarkRuntimeMapInsertGrow(b *testing.B, n int) {
	keys := genKeys(0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := make(map[int]struct{})
		for _, k := range keys {
			m[k] = struct{}{}
		}
	}
	cs.Stop()
}

func benchmarkIntSetInsertGrow(b *testing.B, n int) {
	var s Set
	keys := genKeys(0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Init()
		for _, k := range keys {
			s.Insert(k)
		}
	}
	cs.Stop()
}

func benchmarkRuntimeMapInsertDelete(b *testing.B, n int) {
	m := make(map[int]struct{}, n)
	keys := genKeys(0, n)
	for _, k := range keys {
		m[k] = struct{}{}
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % n
		delete(m, keys[j])
		m[keys[j]] = struct{}{}
	}
	cs.Stop()
}

func benchmarkIntSetInsertDelete(b *testing.B, n int) {
	s := New()
	keys := genKeys(0, n)
	for _, k := range keys {
		s.Insert(k)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % n
		s.Delete(keys[j])
		s.Insert(keys[j])
	}
	cs.Stop()
}

func benchmarkRuntimeMapIter(b *testing.B, n int) {
	m := make(map[int]struct{}, n)
	for _, k := range genKeys(0, n) {
		m[k] = struct{}{}
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	var tmp int
	for i := 0; i < b.N; i++ {
		for k := range m {
			tmp += k
		}
	}
	cs.Stop()
	_ = tmp
}

func benchmarkIntSetIter(b *testing.B, n int) {
	s := New()
	for _, k := range genKeys(0, n) {
		s.Insert(k)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	var tmp int
	for i := 0; i < b.N; i++ {
		s.All(func(k int) bool {
			tmp += k
			return true
		})
	}
	cs.Stop()
	_ = tmp
}
