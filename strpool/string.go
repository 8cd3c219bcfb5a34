// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package strpool implements the interning pool described in spec.md §4.6:
// strings are immutable byte sequences, hashed once and shared — equal
// content always resolves to the same *String reference, so string
// equality reduces to pointer equality.
package strpool

import (
	"sync"
	"unsafe"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tosca-rt/corevm/gc"
	"github.com/tosca-rt/corevm/internal/numeric"
	"github.com/tosca-rt/corevm/value"
)

// stringHeaderSize is the nominal byte cost charged to the collector for a
// String's header, on top of the content bytes it owns.
const stringHeaderSize = 32

// String is the collectable, immutable string type. GC header linkage is
// owned by the collector seam (gc.Collector); this struct only carries the
// payload the runtime needs.
type String struct {
	bytes    []byte
	hash     uint64
	reserved bool // keywords are pinned against collection
}

// GCTag implements value.Collectable.
func (*String) GCTag() value.Tag { return value.TagString }

// Address implements value.Collectable. Strings are looked up by their
// precomputed content hash, not by address, but the table's generic
// hashpointer fallback still needs a stable identity for the rare case of
// comparing two key references for "same object" outside the table.
func (s *String) Address() uintptr { return uintptr(unsafe.Pointer(s)) }

// Bytes returns the string's immutable content. Callers must not mutate
// the returned slice.
func (s *String) Bytes() []byte { return s.bytes }

// Len returns the byte length.
func (s *String) Len() int { return len(s.bytes) }

// Hash returns the precomputed hash used for table main-position lookups.
func (s *String) Hash() uint64 { return s.hash }

// Reserved reports whether this string is a pinned keyword.
func (s *String) Reserved() bool { return s.reserved }

func (s *String) String() string { return string(s.bytes) }

// sampleCacheSize bounds Pool.samples, which caches the sampled hash of
// strings above longStringThreshold so repeated interning attempts of the same long byte slice
// (common when a compiler re-emits the same literal) don't re-walk the
// bytes. Bounded, unlike a plain map, so a pathological embedder cannot
// grow it without limit — the same caching idiom the teacher applies to its
// code-analysis cache.
const sampleCacheSize = 4096

// Pool is the interning table owned by the global state. One Pool exists
// per runtime universe and is shared by every thread of that universe.
type Pool struct {
	mu        sync.Mutex
	entries   map[string]*String // keyed by raw content
	samples   *lru.Cache[string, uint64]
	collector gc.Collector
}

// NewPool creates an empty pool with a small starting capacity, as §4.6
// specifies. collector may be nil (see table.New for the same convention).
func NewPool(collector gc.Collector) *Pool {
	samples, err := lru.New[string, uint64](sampleCacheSize)
	if err != nil {
		// Only fails for a non-positive size, which sampleCacheSize never is.
		panic(err)
	}
	return &Pool{
		entries:   make(map[string]*String, 32),
		samples:   samples,
		collector: collector,
	}
}

const longStringThreshold = 40

// Intern returns the canonical *String for the given bytes, allocating and
// linking a fresh one on first sight. Equal content always yields the same
// reference (T5).
func (p *Pool) Intern(b []byte) *String {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := string(b) // copy used as the map key; the String keeps its own byte copy
	if s, ok := p.entries[key]; ok {
		return s
	}

	h := p.hash(key)
	s := &String{bytes: []byte(key), hash: h}
	p.entries[key] = s
	if p.collector != nil {
		p.collector.Alloc(stringHeaderSize + len(s.bytes))
		p.collector.CheckGC()
	}
	return s
}

// InternReserved interns s and marks it reserved (pinned against
// collection), as the spec requires for keywords pinned at init.
func (p *Pool) InternReserved(s string) *String {
	str := p.Intern([]byte(s))
	str.reserved = true
	return str
}

func (p *Pool) hash(key string) uint64 {
	if len(key) <= longStringThreshold {
		return numeric.SampleHash([]byte(key))
	}
	if h, ok := p.samples.Get(key); ok {
		return h
	}
	h := numeric.SampleHash([]byte(key))
	p.samples.Add(key, h)
	return h
}

// Len returns the number of distinct interned strings.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
