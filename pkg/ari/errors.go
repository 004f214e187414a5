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

package ari

import "fmt"

// ControlError represents a rejected or failed control-plane action. It is
// non-fatal for answer, play and hangup; a failed continue loses the call
// and must be surfaced by the caller.
type ControlError struct {
	Op        string // e.g. "answer", "play", "continue", "hangup"
	ChannelID string
	Code      int    // HTTP status, 0 on transport failure
	Body      string // response body, when available
	Err       error  // underlying error
}

func (e *ControlError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("ari %s channel=%s: status %d %s", e.Op, e.ChannelID, e.Code, e.Body)
	}
	return fmt.Sprintf("ari %s channel=%s: %v", e.Op, e.ChannelID, e.Err)
}

func (e *ControlError) Unwrap() error {
	return e.Err
}

// NewControlError creates a control error for a non-success response.
func NewControlError(op, channelID string, code int, body string) *ControlError {
	return &ControlError{Op: op, ChannelID: channelID, Code: code, Body: body}
}

// NewTransportError creates a control error for a request that never got a
// response.
func NewTransportError(op, channelID string, err error) *ControlError {
	return &ControlError{Op: op, ChannelID: channelID, Err: err}
}
