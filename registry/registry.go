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

// Package registry implements the hybrid size-routed allocator: small
// requests go to a slab.Slab, everything else to a buddy.Buddy, and
// every live allocation is tracked by name so Report and Close can
// account for usage and flag leaks.
//
// Ground-truthed against
// _examples/original_source/main.cpp's VRAMManager: allocate/free map
// directly onto Manager.Allocate/Manager.Free, and print_report's
// bookkeeping (requested vs. allocated totals, fragmentation percent)
// onto Manager.Report. The demo's image-loading and console-printing
// code is not part of this package.
package registry

import (
	"fmt"
	"log"

	"github.com/vramheap/allocator/buddy"
	"github.com/vramheap/allocator/slab"
)

// backend identifies which allocator served a resource.
type backend int

const (
	backendSlab backend = iota
	backendBuddy
)

func (b backend) String() string {
	if b == backendSlab {
		return "SLAB"
	}
	return "BUDDY"
}

// resource is one live allocation's bookkeeping record.
type resource struct {
	name          string
	handle        []byte
	requestedSize int
	allocatedSize int
	backend       backend
}

// Report summarizes the current state of a Manager.
type Report struct {
	ObjectCount          int
	TotalRequestedBytes  int
	TotalAllocatedBytes  int
	FragmentationPercent float64
}

// logf is the package's warning sink. It defaults to the standard
// logger and can be overridden with SetLogger, mirroring
// gopool.SetPanicHandler's package-level override.
var logf = log.Printf

// SetLogger overrides where Manager warnings (unknown-handle frees,
// leaked resources on Close) are written. Passing nil restores the
// default (log.Printf).
func SetLogger(f func(format string, args ...interface{})) {
	if f == nil {
		logf = log.Printf
		return
	}
	logf = f
}

// Manager routes allocation requests between a slab and a buddy
// backend by size, and tracks every live handle it has given out.
//
// Manager is single-threaded cooperative, like every other package in
// this module: no method may be called concurrently with another.
type Manager struct {
	slab          *slab.Slab
	buddy         *buddy.Buddy
	slabThreshold int

	resources []resource

	totalRequested int
	totalAllocated int
}

// NewManager creates a Manager with its slab and buddy backends built
// from opts (or their own defaults).
func NewManager(opts ...Option) (*Manager, error) {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}

	s, err := slab.New(c.slabOpts...)
	if err != nil {
		return nil, fmt.Errorf("registry: building slab backend: %w", err)
	}
	b, err := buddy.New(c.buddyOpts...)
	if err != nil {
		return nil, fmt.Errorf("registry: building buddy backend: %w", err)
	}

	return &Manager{
		slab:          s,
		buddy:         b,
		slabThreshold: c.slabThreshold,
	}, nil
}

// Allocate routes a request for n bytes under name to the slab backend
// if n is at or below the slab threshold and the slab has room,
// falling back to the buddy backend otherwise. It returns nil if
// neither backend can satisfy the request.
func (m *Manager) Allocate(name string, n int) []byte {
	if n <= 0 {
		return nil
	}

	var handle []byte
	var be backend

	if n <= m.slabThreshold {
		if handle = m.slab.Allocate(n); handle != nil {
			be = backendSlab
		}
	}
	if handle == nil {
		if handle = m.buddy.Allocate(n); handle != nil {
			be = backendBuddy
		}
	}
	if handle == nil {
		return nil
	}

	m.resources = append(m.resources, resource{
		name:          name,
		handle:        handle,
		requestedSize: n,
		allocatedSize: cap(handle),
		backend:       be,
	})
	m.totalRequested += n
	m.totalAllocated += cap(handle)

	return handle
}

// Free releases handle back to whichever backend produced it. Freeing
// an unrecognized handle logs a warning and is otherwise a no-op;
// Free(nil) is silently ignored.
func (m *Manager) Free(handle []byte) {
	if len(handle) == 0 {
		return
	}

	for i, r := range m.resources {
		if &r.handle[0] == &handle[0] {
			m.totalRequested -= r.requestedSize
			m.totalAllocated -= r.allocatedSize
			switch r.backend {
			case backendSlab:
				m.slab.Free(r.handle)
			default:
				m.buddy.Free(r.handle)
			}
			m.resources = append(m.resources[:i], m.resources[i+1:]...)
			return
		}
	}

	logf("registry: attempted to free an unrecognized handle")
}

// Report returns a snapshot of current usage. FragmentationPercent is
// the share of allocated bytes that were not actually requested
// (internal fragmentation from size-class/order rounding); it is 0
// when nothing has been allocated.
func (m *Manager) Report() Report {
	r := Report{
		ObjectCount:         len(m.resources),
		TotalRequestedBytes: m.totalRequested,
		TotalAllocatedBytes: m.totalAllocated,
	}
	if m.totalAllocated > 0 {
		r.FragmentationPercent = 100.0 * float64(m.totalAllocated-m.totalRequested) / float64(m.totalAllocated)
	}
	return r
}

// Close logs a warning for every resource still outstanding. It does
// not free them; an outstanding resource at Close time is a leak to
// report, not to silently clean up.
func (m *Manager) Close() {
	for _, r := range m.resources {
		logf("registry: leaked resource %q (%d bytes requested, %d allocated, backend %s)",
			r.name, r.requestedSize, r.allocatedSize, r.backend)
	}
}
