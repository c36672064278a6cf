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
	"fmt"

	"github.com/bcem/layersync/internal/models"
)

// Message builds the Stream message for msg sent by user.
//
// Only parts[0] can supply the text, and only when it is text/plain. Every
// other part becomes an attachment in its original order; a text/plain
// part that is not first is carried as a pass-through attachment rather
// than dropped.
func Message(msg models.Message, user models.StreamUser) (models.StreamMessage, error) {
	if len(msg.Parts) == 0 {
		return models.StreamMessage{}, &InvariantError{Field: "message.parts", Err: ErrEmptyParts}
	}

	id, err := IDFromURI("message.id", msg.ID)
	if err != nil {
		return models.StreamMessage{}, err
	}

	text := ""
	rest := msg.Parts
	if msg.Parts[0].MimeType == mimeTextPlain {
		text = msg.Parts[0].Body
		rest = msg.Parts[1:]
	}

	attachments := make([]models.StreamAttachment, 0, len(rest))
	for i, part := range rest {
		attachment, err := Part(part)
		if err != nil {
			return models.StreamMessage{}, fmt.Errorf("part %d: %w", len(msg.Parts)-len(rest)+i, err)
		}
		attachments = append(attachments, attachment)
	}

	return models.StreamMessage{
		ID:          id,
		User:        user,
		Text:        text,
		Attachments: attachments,
	}, nil
}
