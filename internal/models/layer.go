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

// Package models defines the Layer (source) and Stream (destination) data
// structures shared across the sync service.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// EventMessageCreated is the only Layer webhook event type the service acts on.
const EventMessageCreated = "Message.created"

// Envelope is a raw webhook delivery: the exact body bytes Layer signed
// and the signature header that came with them.
type Envelope struct {
	Body      []byte
	Signature string
}

// EventInfo describes the webhook event.
type EventInfo struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Payload is the parsed webhook body Layer sends for message events.
type Payload struct {
	Event   EventInfo `json:"event"`
	Message Message   `json:"message"`
}

// Type returns the webhook event type.
func (p Payload) Type() string {
	return p.Event.Type
}

// Sender identifies who sent a message. Server-sent messages carry a name
// instead of a user_id.
type Sender struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

// ConversationRef is the conversation reference embedded in a message.
type ConversationRef struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// Message is a Layer message as delivered in a webhook.
type Message struct {
	ID           string          `json:"id"`
	Sender       *Sender         `json:"sender,omitempty"`
	Conversation ConversationRef `json:"conversation"`
	Parts        []Part          `json:"parts"`
	SentAt       string          `json:"sent_at,omitempty"`
}

// PartContent points at externally stored content (Rich Content).
type PartContent struct {
	ID          string `json:"id,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Expiration  string `json:"expiration,omitempty"`
	RefreshURL  string `json:"refresh_url,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Part is one content part of a Layer message. Fields other than the
// typed ones are kept verbatim so the part can be copied without loss.
type Part struct {
	ID       string       `json:"id,omitempty"`
	MimeType string       `json:"mime_type"`
	Body     string       `json:"body,omitempty"`
	Encoding string       `json:"encoding,omitempty"`
	Content  *PartContent `json:"content,omitempty"`

	fields map[string]any
}

// partFields has the same fields as Part without its JSON methods.
type partFields Part

// UnmarshalJSON decodes the typed fields and remembers every raw field.
func (p *Part) UnmarshalJSON(data []byte) error {
	var typed partFields
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return err
	}

	*p = Part(typed)
	p.fields = fields
	return nil
}

// MarshalJSON writes the part back with all of its original fields.
func (p Part) MarshalJSON() ([]byte, error) {
	if p.fields != nil {
		return json.Marshal(p.fields)
	}
	return json.Marshal(partFields(p))
}

// Fields returns a fresh top-level copy of the part's fields.
func (p Part) Fields() (map[string]any, error) {
	if p.fields != nil {
		return maps.Clone(p.fields), nil
	}

	data, err := json.Marshal(partFields(p))
	if err != nil {
		return nil, fmt.Errorf("marshal part: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	fields := make(map[string]any)
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode part fields: %w", err)
	}
	return fields, nil
}

// Participant is a conversation member identity.
type Participant struct {
	ID          string `json:"id,omitempty"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Conversation is the full conversation fetched from the Layer server API.
// It is not part of the webhook payload.
type Conversation struct {
	ID           string         `json:"id"`
	URL          string         `json:"url,omitempty"`
	Distinct     bool           `json:"distinct"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
	UpdatedAt    string         `json:"updated_at,omitempty"`
	Participants []Participant  `json:"participants"`
}
