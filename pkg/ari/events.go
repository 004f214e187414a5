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

import "encoding/json"

// Event types recognized on the ARI event feed. Frames with any other type
// are ignored.
const (
	EventStasisStart         = "StasisStart"
	EventChannelDtmfReceived = "ChannelDtmfReceived"
	EventChannelDestroyed    = "ChannelDestroyed"
)

type (
	// Event is one frame from the ARI websocket, discriminated by Type.
	Event struct {
		Type    string   `json:"type"`
		Channel *Channel `json:"channel,omitempty"`
		Digit   string   `json:"digit,omitempty"`
	}

	// Channel is the ARI channel record carried on StasisStart and
	// ChannelDestroyed events.
	Channel struct {
		ID       string    `json:"id"`
		Name     string    `json:"name"`
		State    string    `json:"state"`
		Caller   *Caller   `json:"caller,omitempty"`
		Dialplan *Dialplan `json:"dialplan,omitempty"`
	}

	Caller struct {
		Number string `json:"number,omitempty"`
		Name   string `json:"name,omitempty"`
	}

	Dialplan struct {
		Context  string `json:"context,omitempty"`
		Exten    string `json:"exten,omitempty"`
		Priority int    `json:"priority,omitempty"`
	}
)

// CallerNumber returns the calling number, or "unknown" when absent.
func (ch *Channel) CallerNumber() string {
	if ch == nil || ch.Caller == nil || ch.Caller.Number == "" {
		return "unknown"
	}
	return ch.Caller.Number
}

// DialedExten returns the dialed extension (DID), if the event carried one.
func (ch *Channel) DialedExten() string {
	if ch == nil || ch.Dialplan == nil {
		return ""
	}
	return ch.Dialplan.Exten
}

// ParseEvent decodes a single event frame. The error is only useful for
// logging; malformed frames are dropped by the listener.
func ParseEvent(frame []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
