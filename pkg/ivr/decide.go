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
	"time"

	"github.com/veloxvoip/ari-ivr/pkg/config"
)

const (
	// Buffers this long with trailing silence are dialed as an internal
	// extension rather than matched against the single-digit menu.
	extensionMinDigits = 4
	extensionSilence   = 3 * time.Second
	menuDigitSilence   = 1 * time.Second
)

type DecisionKind int

const (
	// DecideNone: keep waiting, nothing to do this tick.
	DecideNone DecisionKind = iota
	// DecideRouteExtension: transfer the buffered digits as an extension.
	DecideRouteExtension
	// DecideRouteQueue: transfer to the queue mapped to the single digit.
	DecideRouteQueue
	// DecideInvalidInput: single digit with no mapping; replay and retry.
	DecideInvalidInput
	// DecideSilenceTimeout: no input for the configured window.
	DecideSilenceTimeout
)

func (k DecisionKind) String() string {
	switch k {
	case DecideNone:
		return "none"
	case DecideRouteExtension:
		return "route_extension"
	case DecideRouteQueue:
		return "route_queue"
	case DecideInvalidInput:
		return "invalid_input"
	case DecideSilenceTimeout:
		return "silence_timeout"
	}
	return "unknown"
}

// Decision is the next action for a session. Destination is set for the two
// routing kinds. Exhausted reports that this failure pushed the retry
// counter past the policy maximum, so the caller goes to the fallback queue.
type Decision struct {
	Kind        DecisionKind
	Destination string
	Exhausted   bool
}

// DecisionInput is a point-in-time snapshot of one session's collected
// digits and clocks.
type DecisionInput struct {
	Digits        string
	LastDigit     time.Time
	AwaitingSince time.Time
	Retries       int
	Now           time.Time
}

// Decide evaluates the routing rules against one session snapshot. The
// rules are checked in a fixed order and the first match wins:
//
//  1. At least four digits with three seconds of trailing silence dial an
//     internal extension, regardless of any menu mapping a prefix may have.
//  2. Exactly one digit with a second of trailing silence selects from the
//     menu; an unmapped digit counts as a retry.
//  3. An empty buffer past the policy timeout counts as a retry.
//
// Decide is pure: it never touches the session map, the clock or the
// control plane.
func Decide(pol *config.IVRPolicy, in DecisionInput) Decision {
	if len(in.Digits) >= extensionMinDigits && in.Now.Sub(in.LastDigit) >= extensionSilence {
		return Decision{Kind: DecideRouteExtension, Destination: in.Digits}
	}
	if len(in.Digits) == 1 && in.Now.Sub(in.LastDigit) >= menuDigitSilence {
		if q, ok := pol.QueueFor(in.Digits); ok {
			return Decision{Kind: DecideRouteQueue, Destination: q.QueueName}
		}
		return Decision{
			Kind:      DecideInvalidInput,
			Exhausted: in.Retries+1 > pol.Menu.MaxRetries,
		}
	}
	if len(in.Digits) == 0 && in.Now.Sub(in.AwaitingSince) >= pol.Menu.Timeout() {
		return Decision{
			Kind:      DecideSilenceTimeout,
			Exhausted: in.Retries+1 > pol.Menu.MaxRetries,
		}
	}
	return Decision{Kind: DecideNone}
}
