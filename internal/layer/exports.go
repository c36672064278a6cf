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
	"net/http"
	"net/url"
)

// Export is a Layer data export job.
type Export struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	PublicKey   string `json:"public_key,omitempty"`
}

// ExportStatus is the status of a single export job.
type ExportStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	DownloadURL string `json:"download_url,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

// ListExports returns the application's exports.
func (c *Client) ListExports(ctx context.Context) ([]Export, error) {
	var exports []Export
	if err := c.do(ctx, "list exports", http.MethodGet, "/exports", nil, nil, &exports); err != nil {
		return nil, err
	}
	return exports, nil
}

// CreateExport starts a new export job.
func (c *Client) CreateExport(ctx context.Context) (*Export, error) {
	var export Export
	if err := c.do(ctx, "create export", http.MethodPost, "/exports", nil, map[string]any{}, &export); err != nil {
		return nil, err
	}
	return &export, nil
}

// GetExportStatus reports the progress of an export job.
func (c *Client) GetExportStatus(ctx context.Context, exportID string) (*ExportStatus, error) {
	var status ExportStatus
	path := "/exports/" + url.PathEscape(exportID) + "/status"
	if err := c.do(ctx, "export status", http.MethodGet, path, nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RegisterPublicKey registers the PEM public key exports are encrypted with.
func (c *Client) RegisterPublicKey(ctx context.Context, publicKey string) error {
	body := map[string]any{"public_key": publicKey}
	return c.do(ctx, "register public key", http.MethodPut, "/export_security", nil, body, nil)
}
