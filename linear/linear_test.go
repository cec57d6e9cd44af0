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

package linear

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vramheap/allocator/buddy"
)

func newBacking(t *testing.T) *buddy.Buddy {
	t.Helper()
	b, err := buddy.New(buddy.WithSize(4096), buddy.WithMinAlloc(16))
	require.NoError(t, err)
	return b
}

func TestAllocate_BumpsWithinPage(t *testing.T) {
	b := newBacking(t)
	l := New(b, 1024)

	p1 := l.Allocate(10)
	require.NotNil(t, p1)
	p2 := l.Allocate(10)
	require.NotNil(t, p2)

	// p2 must immediately follow p1's alignment-padded extent (10
	// bytes rounded up to the default 4-byte alignment is 12).
	assert.Equal(t, addr(p1)+12, addr(p2))
}

func addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

func TestAllocate_NewPageOnOverflow(t *testing.T) {
	b := newBacking(t)
	l := New(b, 64)

	first := l.Allocate(60)
	require.NotNil(t, first)
	require.Len(t, l.pages, 1)

	// This should not fit in the remainder of the first page.
	second := l.Allocate(60)
	require.NotNil(t, second)
	assert.Len(t, l.pages, 2)
}

func TestAllocate_LargerThanPageSize(t *testing.T) {
	b := newBacking(t)
	l := New(b, 64)

	big := l.Allocate(500)
	require.NotNil(t, big)
	assert.GreaterOrEqual(t, len(l.pages[0].base), 500)
}

func TestAllocate_ExhaustsBacking(t *testing.T) {
	b := newBacking(t)
	l := New(b, b.KSize())

	first := l.Allocate(10)
	require.NotNil(t, first)

	// A second page would exceed the backing buddy's total capacity.
	second := l.Allocate(b.KSize())
	assert.Nil(t, second)
}

func TestOwns(t *testing.T) {
	b := newBacking(t)
	l := New(b, 1024)

	p := l.Allocate(16)
	require.NotNil(t, p)
	assert.True(t, l.Owns(p))

	other := make([]byte, 16)
	assert.False(t, l.Owns(other))
	assert.False(t, l.Owns(nil))
}

func TestReset_ReturnsPagesToBacking(t *testing.T) {
	b := newBacking(t)
	l := New(b, 1024)

	for i := 0; i < 3; i++ {
		require.NotNil(t, l.Allocate(200))
	}
	assert.Less(t, b.TotalFree(), b.KSize())

	l.Reset()

	assert.Equal(t, b.KSize(), b.TotalFree(), "freeing every page must coalesce the backing buddy back to a single root block")
	assert.Empty(t, l.pages)
	assert.False(t, l.Owns(make([]byte, 1)))
}

func TestAllocate_AfterReset(t *testing.T) {
	b := newBacking(t)
	l := New(b, 1024)

	first := l.Allocate(100)
	require.NotNil(t, first)
	l.Reset()

	second := l.Allocate(100)
	require.NotNil(t, second)
	assert.Len(t, l.pages, 1)
}

func TestWithAlignment(t *testing.T) {
	b := newBacking(t)
	l := New(b, 1024, WithAlignment(16))

	p1 := l.Allocate(1)
	require.NotNil(t, p1)
	p2 := l.Allocate(1)
	require.NotNil(t, p2)

	assert.Equal(t, addr(p1)+16, addr(p2))
}
