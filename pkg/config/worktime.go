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

import "time"

const workClock = "15:04:05"

// InWorkHours reports whether now falls inside the configured work window.
// A disabled worktime check treats every instant as in-hours. Unparsable
// bounds fall back to 09:00:00 and 18:00:00 respectively.
func (w WorktimeConfig) InWorkHours(now time.Time) bool {
	if !w.Enabled {
		return true
	}
	day := now.Weekday().String()
	found := false
	for _, d := range w.Days {
		if d == day {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	start, err := time.Parse(workClock, w.StartTime)
	if err != nil {
		start, _ = time.Parse(workClock, "09:00:00")
	}
	end, err := time.Parse(workClock, w.EndTime)
	if err != nil {
		end, _ = time.Parse(workClock, "18:00:00")
	}
	cur := secondOfDay(now)
	return cur >= secondOfDay(start) && cur <= secondOfDay(end)
}

// GreetingSound picks the greeting for the current time of day.
func (g GreetingConfig) GreetingSound(now time.Time) string {
	if g.Worktime.InWorkHours(now) {
		return g.Sounds.Worktime
	}
	return g.Sounds.Overtime
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
