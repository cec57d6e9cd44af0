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

package flist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_EmptyPop(t *testing.T) {
	l := New()
	assert.True(t, l.Empty())
	assert.Nil(t, l.Pop())
}

func TestList_PushPop(t *testing.T) {
	arena := make([]byte, 3*16)
	l := New()

	var nodes []*Node
	for i := 0; i < 3; i++ {
		n := NodeAt(arena[i*16 : i*16+16])
		nodes = append(nodes, n)
		l.Push(n)
		assert.False(t, l.Empty())
	}

	seen := map[*Node]bool{}
	for i := 0; i < 3; i++ {
		n := l.Pop()
		require.NotNil(t, n)
		assert.False(t, seen[n], "node returned twice")
		seen[n] = true
	}
	assert.True(t, l.Empty())
	assert.Nil(t, l.Pop())

	for _, n := range nodes {
		assert.True(t, seen[n])
	}
}

func TestList_PushAlreadyLinkedPanics(t *testing.T) {
	arena := make([]byte, 16)
	l := New()
	n := NodeAt(arena)
	l.Push(n)
	assert.Panics(t, func() { l.Push(n) })
}

func TestNode_RemoveUnlinkedPanics(t *testing.T) {
	arena := make([]byte, 16)
	n := NodeAt(arena)
	assert.Panics(t, func() { n.Remove() })
}

func TestNode_RemoveFromMiddle(t *testing.T) {
	arena := make([]byte, 3*16)
	l := New()
	a := NodeAt(arena[0:16])
	b := NodeAt(arena[16:32])
	c := NodeAt(arena[32:48])
	l.Push(a)
	l.Push(b)
	l.Push(c)

	b.Remove()
	assert.Panics(t, func() { b.Remove() }, "removing an already-unlinked node must panic")

	var got []*Node
	for !l.Empty() {
		got = append(got, l.Pop())
	}
	assert.ElementsMatch(t, []*Node{a, c}, got)
}

func TestNodeAt_BlockOf_RoundTrip(t *testing.T) {
	arena := make([]byte, 32)
	n := NodeAt(arena[8:24])
	block := BlockOf(n, 16)
	assert.Equal(t, &arena[8], &block[0])
}
