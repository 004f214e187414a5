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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/livekit/protocol/logger"

	"github.com/veloxvoip/ari-ivr/pkg/config"
)

const requestTimeout = 10 * time.Second

// Client issues imperative call-control actions against the Asterisk REST
// Interface. Every request is authenticated with HTTP basic auth. The client
// carries no retry policy; retries, if any, belong to the caller.
type Client struct {
	log      logger.Logger
	baseURL  string
	username string
	password string
	hc       *http.Client
}

func NewClient(conf config.AsteriskConfig) *Client {
	return &Client{
		log:      logger.GetLogger().WithComponent("ari"),
		baseURL:  fmt.Sprintf("http://%s:%d/ari", conf.Host, conf.Port),
		username: conf.Username,
		password: conf.Password,
		hc:       &http.Client{Timeout: requestTimeout},
	}
}

// Answer marks the channel as answered. The channel may already be gone or
// answered; callers treat a failure as non-fatal.
func (c *Client) Answer(ctx context.Context, channelID string) error {
	_, err := c.do(ctx, "answer", http.MethodPost, c.channelURL(channelID, "answer"), nil, channelID)
	return err
}

// Play starts playback of a named sound asset on the channel and returns the
// playback handle.
func (c *Client) Play(ctx context.Context, channelID, sound string) (string, error) {
	q := url.Values{"media": []string{"sound:" + sound}}
	body, err := c.do(ctx, "play", http.MethodPost, c.channelURL(channelID, "play"), q, channelID)
	if err != nil {
		return "", err
	}
	var playback struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &playback); err != nil {
		return "", NewTransportError("play", channelID, err)
	}
	return playback.ID, nil
}

// ContinueInDialplan moves the channel into the named dialplan context. This
// is the terminal routing action: after it the caller stops tracking the
// channel, so a failure here means the call is lost.
func (c *Client) ContinueInDialplan(ctx context.Context, channelID, dialCtx, extension string, priority int) error {
	q := url.Values{
		"context":   []string{dialCtx},
		"extension": []string{extension},
		"priority":  []string{strconv.Itoa(priority)},
	}
	c.log.Infow("continuing in dialplan",
		"channelID", channelID,
		"context", dialCtx,
		"extension", extension,
		"priority", priority,
	)
	_, err := c.do(ctx, "continue", http.MethodPost, c.channelURL(channelID, "continue"), q, channelID)
	return err
}

// Hangup deletes the channel. Best effort; the channel may already be gone.
func (c *Client) Hangup(ctx context.Context, channelID string) error {
	_, err := c.do(ctx, "hangup", http.MethodDelete, c.channelURL(channelID, ""), nil, channelID)
	return err
}

func (c *Client) channelURL(channelID, action string) string {
	u := c.baseURL + "/channels/" + url.PathEscape(channelID)
	if action != "" {
		u += "/" + action
	}
	return u
}

func (c *Client) do(ctx context.Context, op, method, rawURL string, q url.Values, channelID string) ([]byte, error) {
	if len(q) > 0 {
		rawURL += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, NewTransportError(op, channelID, err)
	}
	req.SetBasicAuth(c.username, c.password)
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, NewTransportError(op, channelID, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewControlError(op, channelID, resp.StatusCode, string(body))
	}
	return body, nil
}
