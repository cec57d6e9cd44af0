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

package registry

import (
	"github.com/vramheap/allocator/buddy"
	"github.com/vramheap/allocator/slab"
)

// DefaultSlabThreshold is the largest request size routed to the slab
// backend; anything larger goes to the buddy backend.
const DefaultSlabThreshold = 256

// Option configures a Manager at construction time.
type Option func(*config)

type config struct {
	slabThreshold int
	buddyOpts     []buddy.Option
	slabOpts      []slab.Option
}

func defaultConfig() *config {
	return &config{slabThreshold: DefaultSlabThreshold}
}

// WithSlabThreshold overrides the size at or below which requests are
// routed to the slab backend.
func WithSlabThreshold(n int) Option {
	return func(c *config) { c.slabThreshold = n }
}

// WithBuddyOptions forwards options to the backing buddy.Buddy.
func WithBuddyOptions(opts ...buddy.Option) Option {
	return func(c *config) { c.buddyOpts = opts }
}

// WithSlabOptions forwards options to the backing slab.Slab.
func WithSlabOptions(opts ...slab.Option) Option {
	return func(c *config) { c.slabOpts = opts }
}
