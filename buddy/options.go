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

package buddy

// DefaultKSize is the default size of the managed region (64 MiB).
const DefaultKSize = 64 * 1024 * 1024

// DefaultMinAlloc is the default minimum block size. It must be large
// enough to hold an internal.flist.Node (two pointers, 16 bytes on a
// 64-bit platform).
const DefaultMinAlloc = 16

// Option configures a Buddy at construction time.
type Option func(*config)

type config struct {
	kSize    int
	minAlloc int
	debug    bool
}

// defaultConfig returns the config a Buddy is built with when no
// options are given.
func defaultConfig() *config {
	return &config{
		kSize:    DefaultKSize,
		minAlloc: DefaultMinAlloc,
	}
}

// WithSize sets K_SIZE, the total size of the managed region.
func WithSize(n int) Option {
	return func(c *config) { c.kSize = n }
}

// WithMinAlloc sets MIN_ALLOC, the minimum block size.
func WithMinAlloc(n int) Option {
	return func(c *config) { c.minAlloc = n }
}

// WithDebug enables debug-build invariant checks. When enabled, Free
// re-validates that the freed block was actually marked live before
// touching any free-list or split-bit state, and panics with a
// descriptive message otherwise. It costs one extra bit array and a
// lookup per Free; it is off by default.
//
// This replaces the original source's always-on per-block
// return-address header: the caller's address is never part of the
// contract here, so none is ever recorded. Debug mode only tracks
// liveness.
func WithDebug(enabled bool) Option {
	return func(c *config) { c.debug = enabled }
}
