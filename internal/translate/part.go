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

// Package translate converts Layer messages and conversations into their
// Stream Chat equivalents. Every function is pure given its inputs; the
// only I/O is the conversation fetch handed to Channel.
package translate

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/bcem/layersync/internal/models"
)

const (
	mimeTextPlain = "text/plain"
	mimeJSON      = "application/json"
)

var errNotObject = errors.New("body is not a JSON object")

// Part converts a single message part into a Stream attachment. The
// attachment starts as a copy of the part's fields and then:
//   - application/json parts get the decoded body object merged on top
//   - image parts get type "image" and, when the content has a download
//     URL, a thumb_url
//   - anything else is passed through unchanged
func Part(part models.Part) (models.StreamAttachment, error) {
	fields, err := part.Fields()
	if err != nil {
		return nil, &MalformedPartError{MimeType: part.MimeType, Err: err}
	}
	attachment := models.StreamAttachment(fields)

	switch {
	case part.MimeType == mimeJSON:
		var decoded any
		if err := json.Unmarshal([]byte(part.Body), &decoded); err != nil {
			return nil, &MalformedPartError{MimeType: part.MimeType, Err: err}
		}
		obj, ok := decoded.(map[string]any)
		if !ok {
			return nil, &MalformedPartError{
				MimeType: part.MimeType,
				Err:      fmt.Errorf("%w (got %T)", errNotObject, decoded),
			}
		}
		maps.Copy(attachment, obj)

	case strings.Contains(part.MimeType, "image"):
		attachment["type"] = "image"
		if part.Content != nil && part.Content.DownloadURL != "" {
			attachment["thumb_url"] = part.Content.DownloadURL
		}
	}

	return attachment, nil
}
