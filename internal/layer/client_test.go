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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bcem/layersync/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Options{AppUUID: "app-1", Token: "tok-1", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func checkHeaders(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want Bearer tok-1", got)
	}
	if got := r.Header.Get("Accept"); got != "application/vnd.layer+json; version=3.0" {
		t.Errorf("Accept = %q", got)
	}
	if got := r.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Options{})
	var cerr *config.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *config.ConfigError, got %v", err)
	}
	if len(cerr.Missing) != 2 {
		t.Errorf("missing = %v, want app uuid and token", cerr.Missing)
	}
}

func TestFetchConversation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		checkHeaders(t, r)
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/apps/app-1/conversations/abc123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("app_uuid"); got != "app-1" {
			t.Errorf("app_uuid query = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "layer:///conversations/abc123",
			"distinct": true,
			"metadata": {"title": "Lunch"},
			"created_at": "2024-01-02T03:04:05Z",
			"participants": [{"id": "layer:///identities/alice", "user_id": "alice"}, {"user_id": "bob"}]
		}`))
	})

	conv, err := c.FetchConversation(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !conv.Distinct {
		t.Error("Distinct = false, want true")
	}
	if len(conv.Participants) != 2 || conv.Participants[1].UserID != "bob" {
		t.Errorf("Participants = %+v", conv.Participants)
	}
	if conv.Metadata["title"] != "Lunch" {
		t.Errorf("Metadata = %v", conv.Metadata)
	}
}

func TestFetchConversation_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"id":"not_found","message":"No conversation"}`))
	})

	_, err := c.FetchConversation(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
}

func TestCreateExport_InjectsAppUUID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		checkHeaders(t, r)
		if r.Method != http.MethodPost || r.URL.Path != "/apps/app-1/exports" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["app_uuid"] != "app-1" {
			t.Errorf("app_uuid = %v", body["app_uuid"])
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id":"exp-1","status":"pending"}`))
	})

	export, err := c.CreateExport(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if export.ID != "exp-1" || export.Status != "pending" {
		t.Errorf("export = %+v", export)
	}
}

func TestExportStatusAndList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/apps/app-1/exports":
			w.Write([]byte(`[{"id":"exp-1","status":"completed"},{"id":"exp-2","status":"pending"}]`))
		case "/apps/app-1/exports/exp-1/status":
			w.Write([]byte(`{"id":"exp-1","status":"completed","download_url":"https://dl/exp-1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	exports, err := c.ListExports(context.Background())
	if err != nil {
		t.Fatalf("ListExports: %v", err)
	}
	if len(exports) != 2 {
		t.Fatalf("exports = %d, want 2", len(exports))
	}

	status, err := c.GetExportStatus(context.Background(), "exp-1")
	if err != nil {
		t.Fatalf("GetExportStatus: %v", err)
	}
	if status.DownloadURL != "https://dl/exp-1" {
		t.Errorf("DownloadURL = %q", status.DownloadURL)
	}
}

func TestRegisterPublicKey(t *testing.T) {
	var gotKey any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/apps/app-1/export_security" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotKey = body["public_key"]
		if _, ok := body["app_uuid"]; ok {
			t.Errorf("PUT body carries app_uuid: %v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.RegisterPublicKey(context.Background(), "-----BEGIN PUBLIC KEY-----"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "-----BEGIN PUBLIC KEY-----" {
		t.Errorf("public_key = %v", gotKey)
	}
}

func TestCreateConversation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["distinct"] != true {
			t.Errorf("distinct = %v", body["distinct"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"layer:///conversations/new1","distinct":true,"participants":[{"user_id":"a"},{"user_id":"b"}]}`))
	})

	conv, err := c.CreateConversation(context.Background(), CreateConversationRequest{
		Participants: []string{"a", "b"},
		Distinct:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conv.ID != "layer:///conversations/new1" {
		t.Errorf("ID = %q", conv.ID)
	}

	if _, err := c.CreateConversation(context.Background(), CreateConversationRequest{}); err == nil {
		t.Error("expected error without participants")
	}
}
