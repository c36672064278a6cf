// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package translate

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyParts         = errors.New("message has no parts")
	ErrMissingSender      = errors.New("message sender has no user_id")
	ErrMalformedID        = errors.New("id is not a URI with a trailing path segment")
	ErrMissingParticipant = errors.New("conversation participant has no user_id")
)

// InvariantError reports upstream data that does not have the shape the
// translation relies on.
type InvariantError struct {
	Field string
	Value string
	Err   error
}

func (e *InvariantError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

// MalformedPartError reports a message part whose body cannot be decoded
// according to its mime type.
type MalformedPartError struct {
	MimeType string
	Err      error
}

func (e *MalformedPartError) Error() string {
	return fmt.Sprintf("malformed %s part: %v", e.MimeType, e.Err)
}

func (e *MalformedPartError) Unwrap() error {
	return e.Err
}
