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

// Package stream is a client for the Stream Chat server-side REST API,
// limited to what the webhook sync writes: users, channels and messages.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bcem/layersync/internal/config"
	"github.com/bcem/layersync/internal/models"
)

const maxErrorBody = 4 << 10

// APIError is a non-2xx response from the Stream API.
type APIError struct {
	Op         string
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stream %s returned HTTP %d (code %d): %s", e.Op, e.StatusCode, e.Code, e.Message)
}

// Options configures a Client.
type Options struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

// Client talks to Stream Chat with a server token.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	serverToken string
}

// NewClient validates the credentials and signs the server token.
func NewClient(opts Options) (*Client, error) {
	var missing []string
	if opts.APIKey == "" {
		missing = append(missing, "STREAM_API_KEY")
	}
	if opts.APISecret == "" {
		missing = append(missing, "STREAM_API_SECRET")
	}
	if len(missing) > 0 {
		return nil, &config.ConfigError{Missing: missing}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true}).
		SignedString([]byte(opts.APISecret))
	if err != nil {
		return nil, fmt.Errorf("sign stream server token: %w", err)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultStreamURL
	}

	return &Client{
		httpClient:  &http.Client{Timeout: opts.Timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      opts.APIKey,
		serverToken: token,
	}, nil
}

// UpsertUsers creates or updates users in one batch. An empty batch is a no-op.
func (c *Client) UpsertUsers(ctx context.Context, users []models.StreamUser) error {
	if len(users) == 0 {
		return nil
	}

	byID := make(map[string]models.StreamUser, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return c.post(ctx, "upsert users", "/users", map[string]any{"users": byID}, nil)
}

// channelResponse is the part of a channel query response we use.
type channelResponse struct {
	Channel struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		CID  string `json:"cid"`
	} `json:"channel"`
}

// CreateChannel gets or creates a channel. With an empty id Stream derives
// the channel from its member list, so the returned ref carries the id
// Stream settled on.
func (c *Client) CreateChannel(ctx context.Context, channelType, channelID string, data models.ChannelData) (models.ChannelRef, error) {
	path := "/channels/" + url.PathEscape(channelType)
	if channelID != "" {
		path += "/" + url.PathEscape(channelID)
	}
	path += "/query"

	body := map[string]any{
		"data":     data,
		"state":    false,
		"watch":    false,
		"presence": false,
	}

	var resp channelResponse
	if err := c.post(ctx, "create channel", path, body, &resp); err != nil {
		return models.ChannelRef{}, err
	}

	ref := models.ChannelRef{
		Type: channelType,
		ID:   resp.Channel.ID,
		CID:  resp.Channel.CID,
	}
	if resp.Channel.Type != "" {
		ref.Type = resp.Channel.Type
	}
	if ref.ID == "" {
		ref.ID = channelID
	}
	if ref.ID == "" {
		return models.ChannelRef{}, fmt.Errorf("stream create channel: response carried no channel id")
	}
	return ref, nil
}

// SendMessage posts msg into the channel.
func (c *Client) SendMessage(ctx context.Context, channel models.ChannelRef, msg models.StreamMessage) error {
	path := fmt.Sprintf("/channels/%s/%s/message", url.PathEscape(channel.Type), url.PathEscape(channel.ID))
	return c.post(ctx, "send message", path, map[string]any{"message": msg}, nil)
}

func (c *Client) post(ctx context.Context, op, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", op, err)
	}

	u := fmt.Sprintf("%s%s?api_key=%s", c.baseURL, path, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.serverToken)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stream %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Message: string(raw)}

		var parsed struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &parsed) == nil && parsed.Message != "" {
			apiErr.Code = parsed.Code
			apiErr.Message = parsed.Message
		}

		slog.Warn("stream API error",
			"op", op,
			"status", resp.StatusCode,
			"code", apiErr.Code,
			"message", apiErr.Message,
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
