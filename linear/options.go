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

// DefaultAlignment is the bump-pointer alignment granularity. The
// original source hard-codes this to 4 bytes; it is exposed here as a
// tunable instead, with 4 kept as the default.
const DefaultAlignment = 4

// Option configures a Linear allocator at construction time.
type Option func(*config)

type config struct {
	alignment int
}

func defaultConfig() *config {
	return &config{alignment: DefaultAlignment}
}

// WithAlignment overrides the bump-pointer alignment granularity.
// Must be a power of two.
func WithAlignment(n int) Option {
	return func(c *config) { c.alignment = n }
}
