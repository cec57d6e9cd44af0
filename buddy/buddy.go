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

// Package buddy implements a power-of-two buddy allocator over a
// single fixed-size contiguous region, with bit-packed split
// metadata and per-order free lists.
//
// A block at order o covers MIN_ALLOC*2^o bytes. Allocate finds the
// smallest order that satisfies a request, splitting a larger free
// block down if necessary; Free coalesces a freed block with its
// buddy whenever the buddy is also free, immediately (by the time
// Free returns, the merged block is on the free list at its highest
// possible order).
//
// The algorithm is ground-truthed against the original C++ source
// this package's behavior was distilled from
// (buddy.cpp/buddy.h); the Go implementation differs from it by
// storing each live allocation's order in an external byte array
// (orderOf) rather than a header living inside the block, which
// removes the header-size overflow case entirely and makes the
// returned slice's base address identical to the block's base
// address.
package buddy

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"

	"github.com/vramheap/allocator/internal/flist"
)

// Buddy is a single-owner, non-thread-safe buddy allocator over a
// fixed-size region. The zero value is not usable; construct with New.
type Buddy struct {
	arena []byte
	base  unsafe.Pointer

	minAlloc  int
	kSize     int
	maxOrder  int
	freeLists []*flist.List
	splitBits splitBitmap
	orderOf   []uint8

	debug bool
	live  []byte // packed 1 bit per min-block index; nil unless debug
}

// New creates a Buddy allocator with the given options applied over
// the defaults (64 MiB region, 16-byte minimum block).
func New(opts ...Option) (*Buddy, error) {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}

	if c.minAlloc <= 0 || c.minAlloc&(c.minAlloc-1) != 0 {
		return nil, fmt.Errorf("buddy: MinAlloc must be a power of two, got %d", c.minAlloc)
	}
	if c.minAlloc < flist.NodeSize {
		return nil, fmt.Errorf("buddy: MinAlloc must be >= %d (free-list node size), got %d", flist.NodeSize, c.minAlloc)
	}
	if c.kSize <= 0 || c.kSize&(c.kSize-1) != 0 {
		return nil, fmt.Errorf("buddy: KSize must be a power of two, got %d", c.kSize)
	}
	if c.kSize < c.minAlloc {
		return nil, fmt.Errorf("buddy: KSize (%d) must be >= MinAlloc (%d)", c.kSize, c.minAlloc)
	}

	maxOrder := bits.TrailingZeros(uint(c.kSize)) - bits.TrailingZeros(uint(c.minAlloc))

	arena := dirtmake.Bytes(c.kSize, c.kSize)

	b := &Buddy{
		arena:     arena,
		base:      unsafe.Pointer(&arena[0]),
		minAlloc:  c.minAlloc,
		kSize:     c.kSize,
		maxOrder:  maxOrder,
		freeLists: make([]*flist.List, maxOrder+1),
		splitBits: newSplitBitmap(1 << maxOrder),
		orderOf:   make([]uint8, c.kSize/c.minAlloc),
		debug:     c.debug,
	}
	for i := range b.freeLists {
		b.freeLists[i] = flist.New()
	}
	if b.debug {
		b.live = make([]byte, (len(b.orderOf)+7)/8)
	}

	// The whole region starts as a single free block at maxOrder.
	b.freeLists[maxOrder].Push(flist.NodeAt(arena))

	return b, nil
}

// KSize returns the total size of the managed region.
func (b *Buddy) KSize() int { return b.kSize }

// MinAlloc returns the minimum block size.
func (b *Buddy) MinAlloc() int { return b.minAlloc }

// MaxOrder returns the highest order the allocator can hand out.
func (b *Buddy) MaxOrder() int { return b.maxOrder }

func (b *Buddy) blockSize(order int) int { return b.minAlloc << uint(order) }

// offsetOf returns the byte offset of block's base within the arena.
func (b *Buddy) offsetOf(ptr unsafe.Pointer) int {
	return int(uintptr(ptr) - uintptr(b.base))
}

// requiredOrder returns the smallest order o with blockSize(o) >= n,
// or -1 if n cannot be satisfied by any order up to maxOrder.
func (b *Buddy) requiredOrder(n int) int {
	if n <= b.minAlloc {
		return 0
	}
	// Smallest order such that minAlloc << order >= n.
	order := bits.Len(uint((n+b.minAlloc-1)/b.minAlloc - 1))
	if order > b.maxOrder {
		return -1
	}
	return order
}

// Allocate returns a block of at least n bytes, or nil if the request
// cannot be satisfied (n <= 0, n larger than the region, or the
// region is too fragmented/full).
func (b *Buddy) Allocate(n int) []byte {
	if n <= 0 || n > b.kSize {
		return nil
	}
	reqOrder := b.requiredOrder(n)
	if reqOrder < 0 {
		return nil
	}

	order := reqOrder
	var node *flist.Node
	for ; order <= b.maxOrder; order++ {
		if node = b.freeLists[order].Pop(); node != nil {
			break
		}
	}
	if node == nil {
		return nil
	}

	index := indexOf(b.maxOrder, order, b.offsetOf(unsafe.Pointer(node)), b.blockSize(order))
	if order < b.maxOrder {
		b.splitBits.toggle(parentOf(index))
	}

	for order > reqOrder {
		here := indexOf(b.maxOrder, order, b.offsetOf(unsafe.Pointer(node)), b.blockSize(order))
		b.splitBits.toggle(here)
		order--

		childSize := b.blockSize(order)
		leftOffset := b.offsetOf(unsafe.Pointer(node))
		rightPtr := unsafe.Add(unsafe.Pointer(node), childSize)
		b.freeLists[order].Push(flist.NodeAt(unsafe.Slice((*byte)(rightPtr), childSize)))
		node = flist.NodeAt(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(b.base)+uintptr(leftOffset))), childSize))
	}

	offset := b.offsetOf(unsafe.Pointer(node))
	b.orderOf[offset/b.minAlloc] = uint8(reqOrder)
	if b.debug {
		setBit(b.live, offset/b.minAlloc)
	}

	return flist.BlockOf(node, b.blockSize(reqOrder))[:n]
}

// Free returns a previously allocated block to the allocator. Free(nil)
// is a no-op. Freeing a pointer that was not returned by Allocate (or
// freeing it twice) is undefined behavior unless the allocator was
// constructed with WithDebug(true), in which case it panics.
func (b *Buddy) Free(block []byte) {
	if block == nil {
		return
	}

	offset := b.offsetOf(unsafe.Pointer(&block[0]))
	minIdx := offset / b.minAlloc

	if b.debug {
		if !testBit(b.live, minIdx) {
			panic(fmt.Sprintf("buddy: double free or invalid block at offset %d", offset))
		}
		clearBit(b.live, minIdx)
	}

	order := int(b.orderOf[minIdx])
	index := indexOf(b.maxOrder, order, offset, b.blockSize(order))

	for order < b.maxOrder && b.splitBits.get(parentOf(index)) {
		siblingOffset := b.siblingOffset(index, order)
		sibling := flist.NodeAt(unsafe.Slice((*byte)(unsafe.Add(b.base, siblingOffset)), b.blockSize(order)))
		sibling.Remove()

		index = parentOf(index)
		b.splitBits.toggle(index)
		order++
		offset &^= b.blockSize(order) - 1
	}

	b.freeLists[order].Push(flist.NodeAt(unsafe.Slice((*byte)(unsafe.Add(b.base, offset)), b.blockSize(order))))
	if order < b.maxOrder {
		b.splitBits.toggle(parentOf(index))
	}
}

// siblingOffset returns the byte offset of the buddy of the block
// whose own tree index is index at the given order.
func (b *Buddy) siblingOffset(index, order int) int {
	siblingIdx := siblingOf(index)
	return (siblingIdx - firstIndex(b.maxOrder, order)) * b.blockSize(order)
}

// TotalFree returns the sum, over every order, of
// count(order) * blockSize(order) -- the total bytes currently
// available for allocation.
func (b *Buddy) TotalFree() int {
	total := 0
	for order, l := range b.freeLists {
		total += l.Len() * b.blockSize(order)
	}
	return total
}

func setBit(bm []byte, i int)   { bm[i/8] |= 1 << uint(i%8) }
func clearBit(bm []byte, i int) { bm[i/8] &^= 1 << uint(i%8) }
func testBit(bm []byte, i int) bool {
	return bm[i/8]&(1<<uint(i%8)) != 0
}
