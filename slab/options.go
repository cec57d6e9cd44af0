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

package slab

// DefaultClasses are the cell sizes every Slab manages unless
// overridden: 32, 64, 128, 256 bytes.
var DefaultClasses = []int{32, 64, 128, 256}

// DefaultPoolSize is the backing region size per class (1 MiB).
const DefaultPoolSize = 1 * 1024 * 1024

// Option configures a Slab at construction time.
type Option func(*config)

type config struct {
	classes  []int
	poolSize int
}

func defaultConfig() *config {
	classes := make([]int, len(DefaultClasses))
	copy(classes, DefaultClasses)
	return &config{
		classes:  classes,
		poolSize: DefaultPoolSize,
	}
}

// WithClasses overrides the cell-size classes. Classes must be
// strictly increasing and positive.
func WithClasses(classes ...int) Option {
	return func(c *config) { c.classes = classes }
}

// WithPoolSize overrides the backing region size allocated per class.
func WithPoolSize(n int) Option {
	return func(c *config) { c.poolSize = n }
}
