/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package linear implements a bump (arena) allocator layered on top of
// a buddy.Buddy. It is meant for transient per-frame resources: pages
// are drawn from the buddy allocator as needed and only released, all
// at once, by Reset -- there is no per-allocation Free.
//
// Ground-truthed against _examples/original_source/head/linear.h and
// src/linear.cpp.
package linear

import (
	"unsafe"

	"github.com/vramheap/allocator/buddy"
)

type page struct {
	base []byte // full usable capacity of the page
	used int    // bytes bumped so far
}

// Linear is a bump allocator. The zero value is not usable; use New.
type Linear struct {
	backing   *buddy.Buddy
	pageSize  int
	alignment int
	pages     []page
}

// New creates a Linear allocator drawing pages of at least pageSize
// bytes from backing. No memory is acquired until the first Allocate.
func New(backing *buddy.Buddy, pageSize int, opts ...Option) *Linear {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return &Linear{
		backing:   backing,
		pageSize:  pageSize,
		alignment: c.alignment,
	}
}

func (l *Linear) alignUp(n int) int {
	a := l.alignment
	return (n + a - 1) &^ (a - 1)
}

// Allocate returns n bytes from the current page, bumping its cursor,
// or requests a new page from the backing buddy allocator if the
// current page (if any) has no room. Returns nil if the backing
// allocator cannot satisfy a new page.
func (l *Linear) Allocate(n int) []byte {
	aligned := l.alignUp(n)

	if len(l.pages) > 0 {
		cur := &l.pages[len(l.pages)-1]
		if cur.used+aligned <= len(cur.base) {
			ptr := cur.base[cur.used : cur.used+n]
			cur.used += aligned
			return ptr
		}
	}

	req := l.pageSize
	if n > req {
		req = n
	}
	block := l.backing.Allocate(req)
	if block == nil {
		return nil
	}
	full := block[:cap(block)]

	l.pages = append(l.pages, page{base: full, used: aligned})
	return full[:n]
}

// Owns reports whether ptr lies within any page currently owned by l.
func (l *Linear) Owns(ptr []byte) bool {
	if len(ptr) == 0 {
		return false
	}
	for i := range l.pages {
		p := &l.pages[i]
		if samePageRange(p.base, ptr) {
			return true
		}
	}
	return false
}

func samePageRange(pageBase, ptr []byte) bool {
	if len(pageBase) == 0 || len(ptr) == 0 {
		return false
	}
	pStart := addrOf(pageBase)
	pEnd := pStart + uintptr(len(pageBase))
	a := addrOf(ptr)
	return a >= pStart && a < pEnd
}

func addrOf(block []byte) uintptr {
	return uintptr(unsafe.Pointer(&block[0]))
}

// Reset returns every page to the backing buddy allocator and clears
// the page list. Individual allocations are never freed on their own.
func (l *Linear) Reset() {
	for i := range l.pages {
		l.backing.Free(l.pages[i].base)
	}
	l.pages = nil
}

// TotalAllocated returns the sum of every page's full capacity
// currently held by this Linear allocator.
func (l *Linear) TotalAllocated() int {
	total := 0
	for i := range l.pages {
		total += len(l.pages[i].base)
	}
	return total
}
