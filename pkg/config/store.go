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

package config

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/frostbyte73/core"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/livekit/protocol/logger"
)

// Writes often arrive as several events in a row; wait for the file to
// settle before re-parsing.
const reloadDebounce = 200 * time.Millisecond

// Store holds the live policy document and republishes it when the backing
// file changes. Readers call Load and get one consistent snapshot; the
// snapshot is replaced wholesale by a single pointer swap, so a decision in
// flight keeps the version it started with.
type Store struct {
	log  logger.Logger
	path string

	cur      atomic.Pointer[Config]
	onReload atomic.Pointer[func(*Config)]

	debounce time.Duration
	closed   core.Fuse
}

// LoadFile reads and parses the document at path, applying defaults but not
// touching the process logger.
func LoadFile(path string) (*Config, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Reason: "could not read config file", Err: err}
	}
	conf, err := NewConfig(string(body))
	if err != nil {
		return nil, err
	}
	conf.applyDefaults()
	return conf, nil
}

func NewStore(path string, initial *Config) *Store {
	s := &Store{
		log:      logger.GetLogger().WithComponent("config"),
		path:     path,
		debounce: reloadDebounce,
	}
	s.cur.Store(initial)
	return s
}

// Load returns the current snapshot. Safe for any number of concurrent
// readers; never blocks.
func (s *Store) Load() *Config {
	return s.cur.Load()
}

// OnReload registers a callback invoked after every successful reload.
func (s *Store) OnReload(fn func(*Config)) {
	s.onReload.Store(&fn)
}

// Reload parses the backing file and publishes the result. On failure the
// previous snapshot stays in effect.
func (s *Store) Reload() error {
	conf, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.cur.Store(conf)
	if fn := s.onReload.Load(); fn != nil {
		(*fn)(conf)
	}
	return nil
}

// Watch follows the backing file and reloads on modification. It returns
// after the watch is established; reloads happen on a background goroutine
// until Close.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "could not create watcher")
	}
	if err := watcher.Add(s.path); err != nil {
		_ = watcher.Close()
		return errors.Wrapf(err, "could not watch %q", s.path)
	}
	go s.watchLoop(watcher)
	return nil
}

func (s *Store) watchLoop(watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-s.closed.Watch():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			s.log.Infow("config file changed, reloading", "path", s.path)
			time.Sleep(s.debounce)
			if err := s.Reload(); err != nil {
				s.log.Errorw("config reload failed, keeping previous snapshot", err)
				continue
			}
			s.log.Infow("config reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warnw("config watch error", err)
		}
	}
}

func (s *Store) Close() {
	s.closed.Break()
}
