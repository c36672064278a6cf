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

import "strings"

// IDFromURI returns the last path segment of a Layer id such as
// "layer:///messages/m1".
func IDFromURI(field, uri string) (string, error) {
	i := strings.LastIndex(uri, "/")
	if i < 0 || i == len(uri)-1 {
		return "", &InvariantError{Field: field, Value: uri, Err: ErrMalformedID}
	}
	return uri[i+1:], nil
}
