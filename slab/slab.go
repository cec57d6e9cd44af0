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

// Package slab implements fixed-size object pools for small,
// frequently recycled allocations. Each size class owns its own
// backing region, independent of any buddy region; cells are carved
// once at construction and never migrate between classes.
//
// This mirrors _examples/original_source/head/slab.h and src/slab.cpp:
// a class's free list is a plain LIFO stack of cell offsets (there is
// no tree-consistency invariant that would benefit from the buddy
// allocator's intrusive, in-block linkage -- cells are uniform and
// never subdivided).
package slab

import (
	"fmt"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// class is one fixed-size cell pool.
type class struct {
	cellSize int
	arena    []byte
	base     unsafe.Pointer
	free     []int // LIFO stack of cell offsets
}

func newClass(cellSize, poolSize int) (*class, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("slab: class size must be positive, got %d", cellSize)
	}
	if poolSize < cellSize {
		return nil, fmt.Errorf("slab: pool size (%d) must be >= class size (%d)", poolSize, cellSize)
	}

	arena := dirtmake.Bytes(poolSize, poolSize)
	numCells := poolSize / cellSize

	c := &class{
		cellSize: cellSize,
		arena:    arena,
		base:     unsafe.Pointer(&arena[0]),
		free:     make([]int, 0, numCells),
	}
	for i := 0; i < numCells; i++ {
		c.free = append(c.free, i*cellSize)
	}
	return c, nil
}

func (c *class) allocate() []byte {
	n := len(c.free)
	if n == 0 {
		return nil
	}
	offset := c.free[n-1]
	c.free = c.free[:n-1]
	return unsafe.Slice((*byte)(unsafe.Add(c.base, offset)), c.cellSize)
}

func (c *class) owns(block []byte) bool {
	if len(block) == 0 {
		return false
	}
	ptr := uintptr(unsafe.Pointer(&block[0]))
	start := uintptr(c.base)
	return ptr >= start && ptr < start+uintptr(len(c.arena))
}

func (c *class) release(block []byte) {
	offset := int(uintptr(unsafe.Pointer(&block[0])) - uintptr(c.base))
	c.free = append(c.free, offset)
}

// Slab routes allocations to the smallest size class that can hold
// them and dispatches frees back to their owning class.
//
// A Slab never cascades a failed class to a larger one: if the
// smallest fitting class is exhausted, Allocate fails even though a
// larger class might have room. This keeps allocated_size predictable
// for callers doing fragmentation accounting.
type Slab struct {
	classes []*class
}

// New creates a Slab with the default classes (32/64/128/256 bytes,
// 1 MiB backing region each) unless overridden by opts.
func New(opts ...Option) (*Slab, error) {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	if len(c.classes) == 0 {
		return nil, fmt.Errorf("slab: at least one size class is required")
	}
	for i, sz := range c.classes {
		if i > 0 && sz <= c.classes[i-1] {
			return nil, fmt.Errorf("slab: classes must be strictly increasing, got %v", c.classes)
		}
	}

	s := &Slab{classes: make([]*class, len(c.classes))}
	for i, sz := range c.classes {
		cl, err := newClass(sz, c.poolSize)
		if err != nil {
			return nil, err
		}
		s.classes[i] = cl
	}
	return s, nil
}

// Allocate returns a cell from the smallest class with CellSize >= n,
// or nil if n exceeds the largest class or that class is exhausted.
func (s *Slab) Allocate(n int) []byte {
	if n <= 0 {
		return nil
	}
	for _, c := range s.classes {
		if c.cellSize >= n {
			return c.allocate()
		}
	}
	return nil
}

// Free returns block to its owning class's free list and reports
// true, or reports false if block is not owned by any class.
func (s *Slab) Free(block []byte) bool {
	if len(block) == 0 {
		return false
	}
	for _, c := range s.classes {
		if c.owns(block) {
			c.release(block)
			return true
		}
	}
	return false
}

// Owns reports whether block was carved from one of this Slab's
// classes.
func (s *Slab) Owns(block []byte) bool {
	if len(block) == 0 {
		return false
	}
	for _, c := range s.classes {
		if c.owns(block) {
			return true
		}
	}
	return false
}

// ClassFor returns the cell size of the class that would serve a
// request of n bytes, and whether such a class exists.
func (s *Slab) ClassFor(n int) (int, bool) {
	for _, c := range s.classes {
		if c.cellSize >= n {
			return c.cellSize, true
		}
	}
	return 0, false
}
