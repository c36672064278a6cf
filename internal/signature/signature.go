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

// Package signature validates Layer webhook payloads. Layer signs the raw
// request body with HMAC-SHA1 keyed by the webhook secret and sends the
// hex digest in the layer-webhook-signature header.
package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"

	"github.com/bcem/layersync/internal/config"
)

// Header is the request header carrying the body signature.
const Header = "layer-webhook-signature"

// Verifier checks webhook signatures against a fixed secret.
type Verifier struct {
	secret string
}

// NewVerifier returns a verifier for secret. An empty secret is a
// configuration error: verification never runs against an empty key.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, &config.ConfigError{Missing: []string{"WEBHOOK_SECRET"}}
	}
	return &Verifier{secret: secret}, nil
}

// Verify reports whether provided is the signature of body.
func (v *Verifier) Verify(body []byte, provided string) bool {
	return Verify(body, v.secret, provided)
}

// Verify reports whether provided is the hex HMAC-SHA1 of body keyed by
// secret. It fails closed when secret is empty.
func Verify(body []byte, secret, provided string) bool {
	if secret == "" || provided == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// Sign returns the hex HMAC-SHA1 of body keyed by secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
