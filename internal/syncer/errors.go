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

package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bcem/layersync/internal/config"
	"github.com/bcem/layersync/internal/lock"
	"github.com/bcem/layersync/internal/translate"
)

// MalformedPayloadError reports a webhook body that is not valid JSON.
type MalformedPayloadError struct {
	Err error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed webhook payload: %v", e.Err)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// UpstreamError reports a failed call to Layer or Stream.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// statusFor maps a pipeline error onto the HTTP status returned to Layer.
func statusFor(err error) int {
	var (
		cfgErr    *config.ConfigError
		malformed *MalformedPayloadError
		partErr   *translate.MalformedPartError
		invariant *translate.InvariantError
		upstream  *UpstreamError
	)

	switch {
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.As(err, &malformed), errors.As(err, &partErr):
		return http.StatusBadRequest
	case errors.As(err, &invariant):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lock.ErrNotAcquired):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstream):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
