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
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/exp/maps"

	"github.com/livekit/protocol/logger"

	"github.com/veloxvoip/ari-ivr/pkg/ari"
	"github.com/veloxvoip/ari-ivr/pkg/config"
	"github.com/veloxvoip/ari-ivr/pkg/stats"
)

const (
	defaultTickInterval = 200 * time.Millisecond
	defaultAnswerSettle = 300 * time.Millisecond

	dialplanPriority = 1

	// Recently ended channel IDs are remembered briefly so a late event
	// can never resurrect a removed session.
	endedCacheSize = 5000
	endedCacheTTL  = time.Minute

	maxSampleIDs = 5
)

// Control is the slice of the ARI surface the state machine drives.
type Control interface {
	Answer(ctx context.Context, channelID string) error
	Play(ctx context.Context, channelID, sound string) (string, error)
	ContinueInDialplan(ctx context.Context, channelID, dialCtx, extension string, priority int) error
}

var _ Control = (*ari.Client)(nil)

// ActiveCalls is a point-in-time view of tracked sessions, used by the
// shutdown drain loop.
type ActiveCalls struct {
	Count     int
	SampleIDs []string
}

// Service owns the session map and runs one watcher goroutine per active
// call. The watcher loop is the sole decision point; event handlers only
// mutate session fields. Removing a session from the map is the only
// cancellation signal a watcher gets.
type Service struct {
	log    logger.Logger
	ctrl   Control
	store  *config.Store
	mon    *stats.Monitor
	clock  Clock
	tick   time.Duration
	settle time.Duration

	mu       sync.Mutex
	sessions map[string]*session
	ended    *expirable.LRU[string, struct{}]
}

type Option func(*Service)

// WithClock overrides the wall clock, for deterministic timing in tests.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithTickInterval overrides the watcher poll interval.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) { s.tick = d }
}

// WithAnswerSettle overrides the pause between answering and the greeting.
func WithAnswerSettle(d time.Duration) Option {
	return func(s *Service) { s.settle = d }
}

func NewService(store *config.Store, ctrl Control, mon *stats.Monitor, opts ...Option) *Service {
	s := &Service{
		log:      logger.GetLogger().WithComponent("ivr"),
		ctrl:     ctrl,
		store:    store,
		mon:      mon,
		clock:    SystemClock{},
		tick:     defaultTickInterval,
		settle:   defaultAnswerSettle,
		sessions: make(map[string]*session),
		ended:    expirable.NewLRU[string, struct{}](endedCacheSize, nil, endedCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ari.EventHandler = (*Service)(nil)

// OnCallStarted creates the session, answers, plays the time-of-day
// greeting and starts the watcher for the channel.
func (s *Service) OnCallStarted(ch *ari.Channel) {
	if _, recent := s.ended.Get(ch.ID); recent {
		s.log.Debugw("ignoring start for recently ended channel", "channelID", ch.ID)
		return
	}
	now := s.clock.Now()
	sess := &session{
		id:            ch.ID,
		callerNumber:  ch.CallerNumber(),
		did:           ch.DialedExten(),
		state:         StateNew,
		createdAt:     now,
		lastDigit:     now,
		awaitingSince: now,
	}
	s.mu.Lock()
	if _, ok := s.sessions[ch.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.sessions[ch.ID] = sess
	s.mu.Unlock()
	s.mon.CallStarted()
	s.log.Infow("new call", "channelID", ch.ID, "caller", sess.callerNumber, "did", sess.did)

	ctx := context.Background()
	if err := s.ctrl.Answer(ctx, ch.ID); err != nil {
		// May already be answered or gone; the watcher will find out.
		s.log.Warnw("failed to answer channel", err, "channelID", ch.ID)
	}

	s.clock.Sleep(s.settle)
	pol := s.store.Load().Resolve(sess.did)
	s.mu.Lock()
	if cur, ok := s.sessions[ch.ID]; ok {
		cur.state = StateGreetingPlayed
	}
	s.mu.Unlock()
	s.playGreeting(ctx, ch.ID, pol)

	s.mu.Lock()
	if cur, ok := s.sessions[ch.ID]; ok {
		cur.state = StateAwaitingInput
		cur.awaitingSince = s.clock.Now()
		s.mu.Unlock()
		go s.watch(ch.ID)
		return
	}
	s.mu.Unlock()
}

// OnDigitReceived appends the digit and stamps the input clock. No decision
// is made here; a fast decision could otherwise race a partial sequence.
func (s *Service) OnDigitReceived(channelID, digit string) {
	s.mu.Lock()
	sess, ok := s.sessions[channelID]
	if ok {
		sess.digits += digit
		sess.lastDigit = s.clock.Now()
	}
	s.mu.Unlock()
	if ok {
		s.log.Infow("DTMF received", "channelID", channelID, "digit", digit)
	}
}

// OnCallEnded drops the session. A watcher still running for the channel
// observes the removal on its next tick and exits.
func (s *Service) OnCallEnded(channelID string) {
	s.ended.Add(channelID, struct{}{})
	s.mu.Lock()
	sess, ok := s.sessions[channelID]
	if ok {
		if !sess.state.Terminal() {
			sess.state = StateAbandoned
		}
		delete(s.sessions, channelID)
	}
	s.mu.Unlock()
	if ok {
		s.mon.CallEnded()
		s.log.Infow("call ended", "channelID", channelID,
			"state", sess.state,
			"duration", s.clock.Now().Sub(sess.createdAt),
		)
	}
}

// ActiveCalls returns the current session count plus a few IDs for logging.
func (s *Service) ActiveCalls() ActiveCalls {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := maps.Keys(s.sessions)
	if len(ids) > maxSampleIDs {
		ids = ids[:maxSampleIDs]
	}
	return ActiveCalls{Count: len(s.sessions), SampleIDs: ids}
}

// watch polls the session at the tick interval until it is removed or a
// terminal action is taken. The policy is re-resolved on every tick so a
// config reload takes effect immediately, including for calls in flight.
func (s *Service) watch(channelID string) {
	for {
		conf := s.store.Load()

		s.mu.Lock()
		sess, ok := s.sessions[channelID]
		if !ok {
			s.mu.Unlock()
			return
		}
		pol := conf.Resolve(sess.did)
		in := sess.snapshot(s.clock.Now())
		s.mu.Unlock()

		if done := s.apply(channelID, conf, pol, Decide(pol, in)); done {
			return
		}
		s.clock.Sleep(s.tick)
	}
}

// apply executes one decision. It reports true when the session reached a
// terminal state and the watcher should stop.
func (s *Service) apply(channelID string, conf *config.Config, pol *config.IVRPolicy, dec Decision) bool {
	ctx := context.Background()
	switch dec.Kind {
	case DecideRouteExtension:
		s.log.Infow("routing buffered digits as extension", "channelID", channelID, "extension", dec.Destination)
		s.route(ctx, channelID, conf, StateExtensionRouted, dec.Destination, stats.RouteExtension)
		return true

	case DecideRouteQueue:
		s.log.Infow("menu selection routed", "channelID", channelID, "queue", dec.Destination)
		s.route(ctx, channelID, conf, StateQueueRouted, dec.Destination, stats.RouteQueue)
		return true

	case DecideInvalidInput:
		s.mu.Lock()
		sess, ok := s.sessions[channelID]
		if !ok {
			s.mu.Unlock()
			return true
		}
		digit := sess.digits
		sess.digits = ""
		sess.retries++
		sess.awaitingSince = s.clock.Now()
		retries := sess.retries
		s.mu.Unlock()
		s.log.Infow("invalid menu selection", "channelID", channelID, "digit", digit, "retries", retries)
		s.playBestEffort(ctx, channelID, pol.Menu.InvalidSound)
		if dec.Exhausted {
			s.route(ctx, channelID, conf, StateFallbackRouted, config.FallbackQueue, stats.RouteFallback)
			return true
		}
		return false

	case DecideSilenceTimeout:
		s.mu.Lock()
		sess, ok := s.sessions[channelID]
		if !ok {
			s.mu.Unlock()
			return true
		}
		sess.retries++
		sess.awaitingSince = s.clock.Now()
		retries := sess.retries
		s.mu.Unlock()
		s.log.Infow("input timeout", "channelID", channelID, "retries", retries)
		s.playBestEffort(ctx, channelID, pol.Menu.TimeoutSound)
		s.playGreeting(ctx, channelID, pol)
		if dec.Exhausted {
			s.route(ctx, channelID, conf, StateFallbackRouted, config.FallbackQueue, stats.RouteFallback)
			return true
		}
		return false
	}
	return false
}

// route removes the session first, then issues the terminal transfer. Once
// removed, no further control-plane call can be issued for the channel. A
// failed transfer loses the call and is surfaced in the log and metrics,
// but state is not leaked.
func (s *Service) route(ctx context.Context, channelID string, conf *config.Config, terminal SessionState, extension, kind string) {
	s.mu.Lock()
	sess, ok := s.sessions[channelID]
	if !ok {
		s.mu.Unlock()
		return
	}
	sess.state = terminal
	delete(s.sessions, channelID)
	s.mu.Unlock()
	s.ended.Add(channelID, struct{}{})
	s.mon.CallEnded()

	if err := s.ctrl.ContinueInDialplan(ctx, channelID, conf.DialplanContext, extension, dialplanPriority); err != nil {
		s.mon.TransferFailed()
		s.log.Errorw("transfer failed, call lost", err,
			"channelID", channelID,
			"destination", extension,
			"state", terminal,
		)
		return
	}
	s.mon.CallRouted(kind)
	s.log.Infow("call routed",
		"channelID", channelID,
		"destination", extension,
		"state", terminal,
	)
}

func (s *Service) playGreeting(ctx context.Context, channelID string, pol *config.IVRPolicy) {
	sound := pol.Greetings.GreetingSound(s.clock.Now())
	if sound == "" {
		return
	}
	s.playBestEffort(ctx, channelID, sound)
}

func (s *Service) playBestEffort(ctx context.Context, channelID, sound string) {
	if sound == "" {
		return
	}
	if _, err := s.ctrl.Play(ctx, channelID, sound); err != nil {
		s.log.Warnw("failed to play sound", err, "channelID", channelID, "sound", sound)
	}
}
