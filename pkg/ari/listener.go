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

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/frostbyte73/core"
	"github.com/gorilla/websocket"

	"github.com/livekit/protocol/logger"

	"github.com/veloxvoip/ari-ivr/pkg/config"
)

// EventHandler receives decoded call-lifecycle events. Each call runs on its
// own goroutine so a slow handler for one call never blocks delivery for
// other calls.
type EventHandler interface {
	OnCallStarted(ch *Channel)
	OnDigitReceived(channelID, digit string)
	OnCallEnded(channelID string)
}

// Listener maintains the long-lived websocket connection to the ARI event
// feed. On any disconnect it waits a fixed delay and reconnects; only Close
// stops the loop.
type Listener struct {
	log       logger.Logger
	wsURL     string
	handler   EventHandler
	reconnect time.Duration
	closed    core.Fuse
}

func NewListener(conf *config.Config, handler EventHandler) *Listener {
	wsURL := fmt.Sprintf("ws://%s:%d/ari/events?app=%s&api_key=%s",
		conf.Asterisk.Host,
		conf.Asterisk.Port,
		url.QueryEscape(conf.Asterisk.AppName),
		url.QueryEscape(conf.Asterisk.Username+":"+conf.Asterisk.Password),
	)
	return &Listener{
		log:       logger.GetLogger().WithComponent("listener"),
		wsURL:     wsURL,
		handler:   handler,
		reconnect: conf.ReconnectInterval,
	}
}

// Run connects and consumes events until Close. It never returns an error
// on its own; stream failures trigger a reconnect, not an exit.
func (l *Listener) Run(ctx context.Context) {
	for {
		if l.closed.IsBroken() || ctx.Err() != nil {
			return
		}
		l.log.Infow("connecting to ARI event feed")
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.wsURL, nil)
		if err != nil {
			l.log.Errorw("failed to connect to ARI event feed", err)
		} else {
			l.log.Infow("connected to ARI event feed")
			l.readFrames(conn)
			_ = conn.Close()
		}
		select {
		case <-l.closed.Watch():
			return
		case <-ctx.Done():
			return
		case <-time.After(l.reconnect):
		}
		l.log.Warnw("reconnecting to ARI event feed", nil)
	}
}

func (l *Listener) readFrames(conn *websocket.Conn) {
	for {
		if l.closed.IsBroken() {
			return
		}
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.log.Errorw("event feed read error", err)
			} else {
				l.log.Infow("event feed connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		ev, err := ParseEvent(frame)
		if err != nil {
			l.log.Debugw("dropping malformed event frame", "error", err)
			continue
		}
		l.Dispatch(ev)
	}
}

// Dispatch routes one decoded event to the handler on a fresh goroutine.
// Unrecognized event types are ignored.
func (l *Listener) Dispatch(ev *Event) {
	switch ev.Type {
	case EventStasisStart:
		if ev.Channel == nil {
			return
		}
		go l.handler.OnCallStarted(ev.Channel)
	case EventChannelDtmfReceived:
		if ev.Channel == nil || ev.Digit == "" {
			return
		}
		go l.handler.OnDigitReceived(ev.Channel.ID, ev.Digit)
	case EventChannelDestroyed:
		if ev.Channel == nil {
			return
		}
		go l.handler.OnCallEnded(ev.Channel.ID)
	}
}

func (l *Listener) Close() {
	l.closed.Break()
}
