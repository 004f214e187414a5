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

package config_test

import (
	"testing"
	"time"

	"github.com/veloxvoip/ari-ivr/pkg/config"
)

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// 2025-03-10 is a Monday, 2025-03-09 a Sunday.
func monday(hour, min, sec int) time.Time {
	return time.Date(2025, 3, 10, hour, min, sec, 0, time.Local)
}

func TestInWorkHours(t *testing.T) {
	tests := []struct {
		name string
		w    config.WorktimeConfig
		now  time.Time
		want bool
	}{
		{
			name: "disabled is always in hours",
			w:    config.WorktimeConfig{Enabled: false},
			now:  time.Date(2025, 3, 9, 3, 0, 0, 0, time.Local),
			want: true,
		},
		{
			name: "inside the window",
			w: config.WorktimeConfig{
				Enabled: true, StartTime: "09:00:00", EndTime: "18:00:00", Days: weekdays,
			},
			now:  monday(12, 30, 0),
			want: true,
		},
		{
			name: "start bound is inclusive",
			w: config.WorktimeConfig{
				Enabled: true, StartTime: "09:00:00", EndTime: "18:00:00", Days: weekdays,
			},
			now:  monday(9, 0, 0),
			want: true,
		},
		{
			name: "end bound is inclusive",
			w: config.WorktimeConfig{
				Enabled: true, StartTime: "09:00:00", EndTime: "18:00:00", Days: weekdays,
			},
			now:  monday(18, 0, 0),
			want: true,
		},
		{
			name: "before opening",
			w: config.WorktimeConfig{
				Enabled: true, StartTime: "09:00:00", EndTime: "18:00:00", Days: weekdays,
			},
			now:  monday(8, 59, 59),
			want: false,
		},
		{
			name: "after closing",
			w: config.WorktimeConfig{
				Enabled: true, StartTime: "09:00:00", EndTime: "18:00:00", Days: weekdays,
			},
			now:  monday(18, 0, 1),
			want: false,
		},
		{
			name: "day not listed",
			w: config.WorktimeConfig{
				Enabled: true, StartTime: "09:00:00", EndTime: "18:00:00", Days: weekdays,
			},
			now:  time.Date(2025, 3, 9, 12, 0, 0, 0, time.Local), // Sunday
			want: false,
		},
		{
			name: "unparsable bounds fall back to nine to six",
			w: config.WorktimeConfig{
				Enabled: true, StartTime: "bogus", EndTime: "also bogus", Days: weekdays,
			},
			now:  monday(10, 0, 0),
			want: true,
		},
		{
			name: "unparsable bounds fallback excludes the evening",
			w: config.WorktimeConfig{
				Enabled: true, StartTime: "bogus", EndTime: "also bogus", Days: weekdays,
			},
			now:  monday(19, 0, 0),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.InWorkHours(tt.now); got != tt.want {
				t.Errorf("InWorkHours(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestGreetingSound(t *testing.T) {
	g := config.GreetingConfig{
		Worktime: config.WorktimeConfig{
			Enabled: true, StartTime: "09:00:00", EndTime: "18:00:00", Days: weekdays,
		},
		Sounds: config.GreetingSounds{Worktime: "welcome", Overtime: "closed"},
	}
	if got := g.GreetingSound(monday(10, 0, 0)); got != "welcome" {
		t.Errorf("GreetingSound(in hours) = %q, want welcome", got)
	}
	if got := g.GreetingSound(monday(20, 0, 0)); got != "closed" {
		t.Errorf("GreetingSound(out of hours) = %q, want closed", got)
	}
}
