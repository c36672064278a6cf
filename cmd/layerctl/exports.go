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

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func exportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "Manage Layer data exports",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the application's exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newLayerClient()
			if err != nil {
				return err
			}
			exports, err := client.ListExports(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), exports)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Start a new export job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newLayerClient()
			if err != nil {
				return err
			}
			export, err := client.CreateExport(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), export)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status <export-id>",
		Short: "Show the status of an export job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newLayerClient()
			if err != nil {
				return err
			}
			status, err := client.GetExportStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "register-key <pem-file>",
		Short: "Register the public key exports are encrypted with",
		Long: `Reads a PEM encoded public key from the given file and registers it
with Layer. Exports created afterwards are encrypted for this key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pem, err := readPublicKey(args[0])
			if err != nil {
				return err
			}
			client, err := newLayerClient()
			if err != nil {
				return err
			}
			if err := client.RegisterPublicKey(cmd.Context(), pem); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"status": "registered"})
		},
	})

	return cmd
}

// readPublicKey loads a PEM public key file.
func readPublicKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read public key: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if !strings.HasPrefix(key, "-----BEGIN") {
		return "", fmt.Errorf("%s does not look like a PEM file", path)
	}
	return key, nil
}
