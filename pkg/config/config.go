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
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livekit/protocol/logger"
)

const (
	DefaultARIPort           = 8088
	DefaultReconnectInterval = 5 * time.Second
	DefaultDialplanContext   = "custom-inbound"

	// Queue all exhausted callers end up in.
	FallbackQueue = "10002"
)

type AsteriskConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	AppName  string `yaml:"app_name"`
}

type WorktimeConfig struct {
	Enabled   bool     `yaml:"enabled"`
	StartTime string   `yaml:"start_time"` // HH:MM:SS
	EndTime   string   `yaml:"end_time"`   // HH:MM:SS
	Days      []string `yaml:"days"`       // full English weekday names
}

type GreetingSounds struct {
	Worktime string `yaml:"worktime"`
	Overtime string `yaml:"overtime"`
}

type GreetingConfig struct {
	Worktime WorktimeConfig `yaml:"worktime"`
	Sounds   GreetingSounds `yaml:"sounds"`
}

type MenuConfig struct {
	MainMenuSound  string `yaml:"main_menu_sound"`
	InvalidSound   string `yaml:"invalid_sound"`
	TimeoutSound   string `yaml:"timeout_sound"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout is the silence window as a duration.
func (m MenuConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

type QueueConfig struct {
	DTMF        string `yaml:"dtmf"`
	QueueName   string `yaml:"queue_name"`
	Description string `yaml:"description"`
}

// IVRPolicy is one complete set of greeting, menu and routing rules. The
// document carries a default policy plus optional per-DID overrides; a
// resolved policy is immutable for the lifetime of the snapshot it came from.
type IVRPolicy struct {
	Greetings GreetingConfig `yaml:"greetings"`
	Menu      MenuConfig     `yaml:"menu"`
	Queues    []QueueConfig  `yaml:"queues"`
}

// QueueFor returns the queue mapped to a single DTMF digit, if any.
func (p *IVRPolicy) QueueFor(digit string) (QueueConfig, bool) {
	for _, q := range p.Queues {
		if q.DTMF == digit {
			return q, true
		}
	}
	return QueueConfig{}, false
}

type Config struct {
	Asterisk AsteriskConfig `yaml:"asterisk"`

	HealthPort     int `yaml:"health_port"`
	PrometheusPort int `yaml:"prometheus_port"`
	PProfPort      int `yaml:"pprof_port"`

	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	DialplanContext   string        `yaml:"dialplan_context"`

	Logging logger.Config `yaml:"logging"`

	IVR          IVRPolicy             `yaml:"ivr"`
	DIDOverrides map[string]*IVRPolicy `yaml:"did_overrides"`

	// internal
	ServiceName string `yaml:"-"`
}

func NewConfig(confString string) (*Config, error) {
	conf := &Config{
		ServiceName: "ari-ivr",
	}
	if confString != "" {
		if err := yaml.Unmarshal([]byte(confString), conf); err != nil {
			return nil, ErrCouldNotParseConfig(err)
		}
	}
	if conf.Asterisk.Host == "" {
		return nil, ErrMissingField("asterisk.host")
	}
	if conf.Asterisk.AppName == "" {
		return nil, ErrMissingField("asterisk.app_name")
	}
	return conf, nil
}

func (c *Config) Init() error {
	c.applyDefaults()
	return c.InitLogger()
}

func (c *Config) applyDefaults() {
	if c.Asterisk.Port == 0 {
		c.Asterisk.Port = DefaultARIPort
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}
	if c.DialplanContext == "" {
		c.DialplanContext = DefaultDialplanContext
	}
	c.IVR.Menu.applyDefaults()
	for _, p := range c.DIDOverrides {
		p.Menu.applyDefaults()
	}
}

func (m *MenuConfig) applyDefaults() {
	if m.TimeoutSeconds <= 0 {
		m.TimeoutSeconds = 5
	}
	if m.TimeoutSound == "" {
		m.TimeoutSound = "en/custom/timeout"
	}
}

func (c *Config) InitLogger(values ...interface{}) error {
	zl, err := logger.NewZapLogger(&c.Logging)
	if err != nil {
		return err
	}
	l := zl.WithValues(values...)
	logger.SetLogger(l, c.ServiceName)
	return nil
}

// Resolve picks the policy that applies to a dialed DID: the per-DID
// override when one exists, otherwise the default policy.
func (c *Config) Resolve(did string) *IVRPolicy {
	if did != "" {
		if p, ok := c.DIDOverrides[did]; ok {
			return p
		}
	}
	return &c.IVR
}

// Default returns the built-in minimal policy used when no usable document
// exists at startup: digits 1-9 route to queues 10001-10009.
func Default() *Config {
	conf := &Config{
		ServiceName: "ari-ivr",
		Asterisk: AsteriskConfig{
			Host:    "127.0.0.1",
			Port:    DefaultARIPort,
			AppName: "ivr",
		},
		ReconnectInterval: DefaultReconnectInterval,
		DialplanContext:   DefaultDialplanContext,
		IVR: IVRPolicy{
			Menu: MenuConfig{
				MainMenuSound:  "en/custom/main-menu",
				InvalidSound:   "en/custom/invalid",
				TimeoutSound:   "en/custom/timeout",
				TimeoutSeconds: 5,
				MaxRetries:     3,
			},
		},
	}
	for i := 1; i <= 9; i++ {
		conf.IVR.Queues = append(conf.IVR.Queues, QueueConfig{
			DTMF:        fmt.Sprint(i),
			QueueName:   fmt.Sprintf("1000%d", i),
			Description: fmt.Sprintf("default queue %d", i),
		})
	}
	return conf
}
