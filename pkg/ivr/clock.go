// Copyright 2025 VeloxVOIP.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ivr

import (
	"sync"
	"time"
)

// Clock provides time operations so timeout behavior can be tested
// deterministically.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock uses real time.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// OffsetClock uses real time shifted by a manually advanceable offset.
// Advancing it makes elapsed-time checks fire without waiting.
type OffsetClock struct {
	mu     sync.RWMutex
	offset time.Duration
}

func NewOffsetClock() *OffsetClock {
	return &OffsetClock{}
}

func (c *OffsetClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(c.offset)
}

func (c *OffsetClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Advance moves the clock forward.
func (c *OffsetClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}
