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

package models

import (
	"encoding/json"
	"maps"
)

const (
	// ChannelTypeMessaging is the Stream channel type every conversation maps to.
	ChannelTypeMessaging = "messaging"

	// SyncSourceWebhook marks channels created by the webhook path.
	SyncSourceWebhook = "webhook"

	// SyncCreatorName is the display name of the synthetic channel creator.
	SyncCreatorName = "Stream Layer Sync"

	// RoleUser is the generic member role given to upserted users.
	RoleUser = "user"
)

// StreamUser is a Stream Chat user.
type StreamUser struct {
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
}

// StreamAttachment is a free-form Stream attachment. Stream does not
// validate attachment shape strictly, so it is kept as a plain object.
type StreamAttachment map[string]any

// StreamMessage is the message sent into a Stream channel.
type StreamMessage struct {
	ID          string             `json:"id"`
	User        StreamUser         `json:"user"`
	Text        string             `json:"text"`
	Attachments []StreamAttachment `json:"attachments"`
}

// StreamChannel is a Layer conversation translated into Stream terms.
// ID is empty for non-distinct conversations; Stream derives one from the
// member list.
type StreamChannel struct {
	Type                 string         `json:"type"`
	ID                   string         `json:"id"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	CreatedAt            string         `json:"created_at,omitempty"`
	UpdatedAt            string         `json:"updated_at,omitempty"`
	SourceConversationID string         `json:"source_conversation_id"`
	SyncSource           string         `json:"sync_source"`
	Members              []string       `json:"members"`
}

// ChannelData is the payload used to create a Stream channel. Custom
// fields are written first so the reserved keys always win.
type ChannelData struct {
	SourceConversationID string
	SyncSource           string
	Members              []string
	CreatedBy            StreamUser
	Custom               map[string]any
}

// MarshalJSON flattens custom fields and reserved fields into one object.
func (d ChannelData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Custom)+4)
	maps.Copy(out, d.Custom)

	out["source_conversation_id"] = d.SourceConversationID
	out["members"] = d.Members
	out["created_by"] = d.CreatedBy
	if d.SyncSource != "" {
		out["sync_source"] = d.SyncSource
	}
	return json.Marshal(out)
}

// ChannelRef identifies a Stream channel that exists after creation.
type ChannelRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	CID  string `json:"cid,omitempty"`
}
