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

// layerctl: operator CLI for the Layer server API
//
// One-shot admin calls against the configured Layer application: data
// exports, export key registration and conversation creation. Output is
// JSON on stdout; logs go to stderr.
//
// Usage:
//
//	go run ./cmd/layerctl exports list
//	go run ./cmd/layerctl conversations create --participant alice --participant bob --distinct
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bcem/layersync/internal/config"
	"github.com/bcem/layersync/internal/layer"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "layerctl",
		Short:         "Admin commands for the Layer application the sync service reads from",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			})))
		},
	}

	cmd.AddCommand(exportsCmd())
	cmd.AddCommand(conversationsCmd())
	cmd.AddCommand(deliveriesCmd())
	return cmd
}

// loadConfig loads configuration and checks the values every command needs.
func loadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, err
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))
	return cfg, nil
}

func newLayerClient() (*layer.Client, error) {
	cfg, err := loadConfig((*config.Config).ValidateLayer)
	if err != nil {
		return nil, err
	}
	return layer.NewClient(layer.Options{
		AppUUID: cfg.Layer.AppUUID,
		Token:   cfg.Layer.Token,
		BaseURL: cfg.Layer.BaseURL,
		Timeout: cfg.CallTimeout,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
