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

import "fmt"

// ConfigError covers a missing or unparsable policy document. It is fatal
// only when no previous snapshot exists; a reload failure keeps the old
// snapshot in effect.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("config: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func ErrCouldNotParseConfig(err error) error {
	return &ConfigError{Reason: "could not parse config", Err: err}
}

func ErrMissingField(field string) error {
	return &ConfigError{Reason: fmt.Sprintf("missing required field %q", field)}
}
