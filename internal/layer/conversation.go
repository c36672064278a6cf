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

package layer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/bcem/layersync/internal/models"
)

// FetchConversation retrieves the full conversation, including
// participants and metadata, for a conversation UUID.
func (c *Client) FetchConversation(ctx context.Context, conversationUUID string) (*models.Conversation, error) {
	var conversation models.Conversation
	path := "/conversations/" + url.PathEscape(conversationUUID)
	if err := c.do(ctx, "fetch conversation", http.MethodGet, path, nil, nil, &conversation); err != nil {
		return nil, err
	}

	slog.Debug("fetched layer conversation",
		"conversation_id", conversationUUID,
		"distinct", conversation.Distinct,
		"participants", len(conversation.Participants),
	)
	return &conversation, nil
}

// CreateConversationRequest describes a conversation to create.
type CreateConversationRequest struct {
	Participants []string
	Distinct     bool
	Metadata     map[string]any
}

// CreateConversation creates a conversation and returns it.
func (c *Client) CreateConversation(ctx context.Context, req CreateConversationRequest) (*models.Conversation, error) {
	if len(req.Participants) == 0 {
		return nil, fmt.Errorf("create conversation: at least one participant is required")
	}

	body := map[string]any{
		"participants": req.Participants,
		"distinct":     req.Distinct,
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var conversation models.Conversation
	if err := c.do(ctx, "create conversation", http.MethodPost, "/conversations", nil, body, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}
