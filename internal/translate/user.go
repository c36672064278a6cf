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

import "github.com/bcem/layersync/internal/models"

// User extracts the Stream user for the message sender.
func User(msg models.Message) (models.StreamUser, error) {
	if msg.Sender == nil || msg.Sender.UserID == "" {
		return models.StreamUser{}, &InvariantError{Field: "message.sender.user_id", Err: ErrMissingSender}
	}
	return models.StreamUser{ID: msg.Sender.UserID}, nil
}
