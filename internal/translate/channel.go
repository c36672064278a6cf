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
	"context"
	"fmt"
	"maps"

	"github.com/bcem/layersync/internal/models"
)

// ConversationFetcher loads a full conversation from Layer by UUID.
type ConversationFetcher interface {
	FetchConversation(ctx context.Context, conversationUUID string) (*models.Conversation, error)
}

// ConversationUUID returns the UUID of the conversation msg belongs to.
func ConversationUUID(msg models.Message) (string, error) {
	return IDFromURI("message.conversation.id", msg.Conversation.ID)
}

// Channel resolves the Stream channel for the conversation msg belongs to.
// Fetch errors are returned unchanged.
func Channel(ctx context.Context, msg models.Message, fetcher ConversationFetcher) (models.StreamChannel, error) {
	conversationUUID, err := ConversationUUID(msg)
	if err != nil {
		return models.StreamChannel{}, err
	}

	conversation, err := fetcher.FetchConversation(ctx, conversationUUID)
	if err != nil {
		return models.StreamChannel{}, err
	}

	return ChannelFromConversation(conversationUUID, conversation)
}

// ChannelFromConversation maps a fetched conversation onto a Stream
// channel. Distinct conversations keep their UUID as a stable channel id;
// ad-hoc ones get an empty id so Stream derives it from the members.
// Repeated participants collapse to one member; a participant without a
// user_id is an InvariantError.
func ChannelFromConversation(conversationUUID string, conversation *models.Conversation) (models.StreamChannel, error) {
	metadata := maps.Clone(conversation.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	id := ""
	if conversation.Distinct {
		id = conversationUUID
	}

	members := make([]string, 0, len(conversation.Participants))
	seen := make(map[string]bool, len(conversation.Participants))
	for i, p := range conversation.Participants {
		if p.UserID == "" {
			return models.StreamChannel{}, &InvariantError{
				Field: fmt.Sprintf("conversation.participants[%d].user_id", i),
				Value: p.ID,
				Err:   ErrMissingParticipant,
			}
		}
		if seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		members = append(members, p.UserID)
	}

	return models.StreamChannel{
		Type:                 models.ChannelTypeMessaging,
		ID:                   id,
		Metadata:             metadata,
		CreatedAt:            conversation.CreatedAt,
		UpdatedAt:            conversation.UpdatedAt,
		SourceConversationID: conversationUUID,
		SyncSource:           models.SyncSourceWebhook,
		Members:              members,
	}, nil
}
