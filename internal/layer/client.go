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

// Package layer is a client for the subset of the Layer server API the
// sync service needs: conversation lookup for webhook translation plus the
// export and admin calls used by operator tooling.
//
// Every call uses the same authenticated pattern: bearer token, the
// versioned Layer Accept header, JSON bodies, and the app UUID injected
// into the body or query string.
package layer

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

	"golang.org/x/oauth2"

	"github.com/bcem/layersync/internal/config"
)

const (
	acceptHeader = "application/vnd.layer+json; version=3.0"

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 4 << 10
)

// APIError is a non-2xx response from the Layer API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("layer %s returned HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	AppUUID string
	Token   string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the Layer server API for one application.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appUUID    string
}

// NewClient builds a client whose HTTP transport attaches the bearer token.
func NewClient(opts Options) (*Client, error) {
	var missing []string
	if opts.AppUUID == "" {
		missing = append(missing, "LAYER_APP_UUID")
	}
	if opts.Token == "" {
		missing = append(missing, "LAYER_TOKEN")
	}
	if len(missing) > 0 {
		return nil, &config.ConfigError{Missing: missing}
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultLayerURL
	}

	base := &http.Client{Timeout: opts.Timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: opts.Token,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = opts.Timeout

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		appUUID:    opts.AppUUID,
	}, nil
}

func (c *Client) appPath(path string) string {
	return fmt.Sprintf("%s/apps/%s%s", c.baseURL, c.appUUID, path)
}

// do sends a request and decodes a JSON response into out (when non-nil).
// POST bodies and GET query strings get the app_uuid injected; PUT bodies
// are sent as given.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body map[string]any, out any) error {
	if query == nil {
		query = url.Values{}
	}

	var reader io.Reader
	if body != nil {
		if method != http.MethodPut {
			body["app_uuid"] = c.appUUID
		}
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	} else if method == http.MethodGet {
		query.Set("app_uuid", c.appUUID)
	}

	u := c.appPath(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("layer %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.Warn("layer API error",
			"op", op,
			"status", resp.StatusCode,
			"body", string(data),
		)
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
