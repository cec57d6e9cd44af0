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

// Package flist implements an intrusive, circular, doubly-linked list
// whose nodes live inside the memory they track rather than in
// separately-heap-allocated bookkeeping structures.
//
// A free block of buddy memory is large enough to hold a Node at its
// base address; Push/Pop/Remove reinterpret those bytes as a Node via
// unsafe.Pointer instead of allocating a wrapper. This keeps free-list
// membership at zero bytes of overhead beyond the block itself, which
// matters because the smallest tracked block is MIN_ALLOC bytes.
//
// FIFO/LIFO order of Pop is unspecified; callers must not depend on it.
package flist

import "unsafe"

// Node is the intrusive link embedded at the base of a free block.
type Node struct {
	prev, next *Node
}

// NodeSize is the number of bytes a Node occupies, i.e. the smallest
// block size that can hold one without corrupting adjacent memory.
const NodeSize = int(unsafe.Sizeof(Node{}))

// List is a sentinel-based circular doubly-linked free list. The zero
// value is not usable; use New.
type List struct {
	sentinel Node
}

// New returns an empty list.
func New() *List {
	l := &List{}
	l.sentinel.prev = &l.sentinel
	l.sentinel.next = &l.sentinel
	return l
}

// Empty reports whether the list has no linked nodes.
func (l *List) Empty() bool {
	return l.sentinel.prev == &l.sentinel
}

// Len counts the linked nodes by walking the list. O(n); intended for
// diagnostics/tests, not the allocator's hot path.
func (l *List) Len() int {
	n := 0
	for cur := l.sentinel.next; cur != &l.sentinel; cur = cur.next {
		n++
	}
	return n
}

// NodeAt reinterprets the first bytes of block as a *Node. The caller
// must ensure block is at least unsafe.Sizeof(Node{}) bytes and is not
// already linked into any list.
func NodeAt(block []byte) *Node {
	return (*Node)(unsafe.Pointer(&block[0]))
}

// BlockOf returns the size-byte block whose base is n, as the inverse
// of NodeAt.
func BlockOf(n *Node, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(n)), size)
}

// Push inserts node at the tail of the list. node must not already be
// linked (its prev/next must be nil).
func (l *List) Push(node *Node) {
	if node.prev != nil || node.next != nil {
		panic("flist: push of already-linked node")
	}
	tail := l.sentinel.prev
	tail.next = node
	node.prev = tail
	node.next = &l.sentinel
	l.sentinel.prev = node
}

// Pop removes and returns the tail node, or nil if the list is empty.
func (l *List) Pop() *Node {
	if l.Empty() {
		return nil
	}
	n := l.sentinel.prev
	n.Remove()
	return n
}

// Remove unlinks node from whatever list it is currently in, in O(1).
// node must currently be linked.
func (n *Node) Remove() {
	if n.prev == nil || n.next == nil {
		panic("flist: remove of unlinked node")
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}
