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

package ari_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/veloxvoip/ari-ivr/pkg/ari"
	"github.com/veloxvoip/ari-ivr/pkg/config"
)

type recordedRequest struct {
	method string
	path   string
	query  url.Values
	user   string
	pass   string
}

type ariServer struct {
	srv *httptest.Server

	mu     sync.Mutex
	reqs   []recordedRequest
	status int
	body   string
}

func newARIServer(t *testing.T) *ariServer {
	t.Helper()
	s := &ariServer{status: http.StatusOK, body: "{}"}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		s.mu.Lock()
		s.reqs = append(s.reqs, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			user:   user,
			pass:   pass,
		})
		status, body := s.status, s.body
		s.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *ariServer) respond(status int, body string) {
	s.mu.Lock()
	s.status = status
	s.body = body
	s.mu.Unlock()
}

func (s *ariServer) last(t *testing.T) recordedRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reqs) == 0 {
		t.Fatal("no requests recorded")
	}
	return s.reqs[len(s.reqs)-1]
}

func (s *ariServer) client(t *testing.T) *ari.Client {
	t.Helper()
	u, err := url.Parse(s.srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return ari.NewClient(config.AsteriskConfig{
		Host:     host,
		Port:     port,
		Username: "ivr",
		Password: "secret",
		AppName:  "ivr",
	})
}

func TestAnswer(t *testing.T) {
	s := newARIServer(t)
	c := s.client(t)

	if err := c.Answer(context.Background(), "1741599004.17"); err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	req := s.last(t)
	if req.method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.method)
	}
	if want := "/ari/channels/1741599004.17/answer"; req.path != want {
		t.Errorf("path = %s, want %s", req.path, want)
	}
	if req.user != "ivr" || req.pass != "secret" {
		t.Errorf("basic auth = %s:%s, want ivr:secret", req.user, req.pass)
	}
}

func TestPlay(t *testing.T) {
	s := newARIServer(t)
	s.respond(http.StatusCreated, `{"id": "pb-42", "state": "queued", "media_uri": "sound:welcome"}`)
	c := s.client(t)

	id, err := c.Play(context.Background(), "1741599004.17", "welcome")
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if id != "pb-42" {
		t.Errorf("playback id = %q, want %q", id, "pb-42")
	}
	req := s.last(t)
	if want := "/ari/channels/1741599004.17/play"; req.path != want {
		t.Errorf("path = %s, want %s", req.path, want)
	}
	if got := req.query.Get("media"); got != "sound:welcome" {
		t.Errorf("media = %q, want %q", got, "sound:welcome")
	}
}

func TestContinueInDialplan(t *testing.T) {
	s := newARIServer(t)
	s.respond(http.StatusNoContent, "")
	c := s.client(t)

	if err := c.ContinueInDialplan(context.Background(), "1741599004.17", "custom-inbound", "10002", 1); err != nil {
		t.Fatalf("ContinueInDialplan() error: %v", err)
	}
	req := s.last(t)
	if want := "/ari/channels/1741599004.17/continue"; req.path != want {
		t.Errorf("path = %s, want %s", req.path, want)
	}
	if got := req.query.Get("context"); got != "custom-inbound" {
		t.Errorf("context = %q, want %q", got, "custom-inbound")
	}
	if got := req.query.Get("extension"); got != "10002" {
		t.Errorf("extension = %q, want %q", got, "10002")
	}
	if got := req.query.Get("priority"); got != "1" {
		t.Errorf("priority = %q, want %q", got, "1")
	}
}

func TestHangup(t *testing.T) {
	s := newARIServer(t)
	s.respond(http.StatusNoContent, "")
	c := s.client(t)

	if err := c.Hangup(context.Background(), "1741599004.17"); err != nil {
		t.Fatalf("Hangup() error: %v", err)
	}
	req := s.last(t)
	if req.method != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", req.method)
	}
	if want := "/ari/channels/1741599004.17"; req.path != want {
		t.Errorf("path = %s, want %s", req.path, want)
	}
}

func TestControlErrorOnRejectedAction(t *testing.T) {
	s := newARIServer(t)
	s.respond(http.StatusNotFound, `{"message": "Channel not found"}`)
	c := s.client(t)

	err := c.Answer(context.Background(), "gone")
	if err == nil {
		t.Fatal("Answer() expected error for 404")
	}
	var ctrlErr *ari.ControlError
	if !errors.As(err, &ctrlErr) {
		t.Fatalf("error is %T, want *ari.ControlError", err)
	}
	if ctrlErr.Code != http.StatusNotFound {
		t.Errorf("Code = %d, want %d", ctrlErr.Code, http.StatusNotFound)
	}
	if ctrlErr.Op != "answer" {
		t.Errorf("Op = %q, want %q", ctrlErr.Op, "answer")
	}
	if ctrlErr.ChannelID != "gone" {
		t.Errorf("ChannelID = %q, want %q", ctrlErr.ChannelID, "gone")
	}
}

func TestTransportErrorOnConnectionFailure(t *testing.T) {
	s := newARIServer(t)
	c := s.client(t)
	s.srv.Close()

	err := c.Answer(context.Background(), "1741599004.17")
	if err == nil {
		t.Fatal("Answer() expected error for closed server")
	}
	var ctrlErr *ari.ControlError
	if !errors.As(err, &ctrlErr) {
		t.Fatalf("error is %T, want *ari.ControlError", err)
	}
	if ctrlErr.Code != 0 {
		t.Errorf("Code = %d, want 0 for transport failure", ctrlErr.Code)
	}
	if ctrlErr.Unwrap() == nil {
		t.Error("Unwrap() = nil, want underlying transport error")
	}
}
