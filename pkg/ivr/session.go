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

import "time"

type SessionState int

const (
	StateNew SessionState = iota
	StateGreetingPlayed
	StateAwaitingInput
	StateExtensionRouted
	StateQueueRouted
	StateFallbackRouted
	StateAbandoned
)

func (s SessionState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateGreetingPlayed:
		return "greeting_played"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateExtensionRouted:
		return "extension_routed"
	case StateQueueRouted:
		return "queue_routed"
	case StateFallbackRouted:
		return "fallback_routed"
	case StateAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Terminal reports whether no further action will be taken for the session.
func (s SessionState) Terminal() bool {
	switch s {
	case StateExtensionRouted, StateQueueRouted, StateFallbackRouted, StateAbandoned:
		return true
	}
	return false
}

// session is the per-call state, keyed by the ARI channel ID. All fields are
// guarded by the owning Service's mutex; the watcher goroutine and the event
// handlers never touch a session outside that lock.
type session struct {
	id           string
	callerNumber string
	did          string // dialed extension, selects a policy override

	state         SessionState
	digits        string
	lastDigit     time.Time
	awaitingSince time.Time
	retries       int
	createdAt     time.Time
}

// snapshot copies the decision-relevant fields so Decide can run without
// holding the lock.
func (s *session) snapshot(now time.Time) DecisionInput {
	return DecisionInput{
		Digits:        s.digits,
		LastDigit:     s.lastDigit,
		AwaitingSince: s.awaitingSince,
		Retries:       s.retries,
		Now:           now,
	}
}
