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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/bcem/layersync/internal/config"
	"github.com/bcem/layersync/internal/journal"
)

func deliveriesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "deliveries [delivery-id]",
		Short: "Show webhook deliveries recorded by the sync service",
		Long: `Without arguments, lists the most recent deliveries from the journal.
With a delivery id, shows that single delivery. Requires DATABASE_URL.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(requireDatabase)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer pool.Close()

			store, err := journal.NewStore(ctx, pool)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				d, err := store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if d == nil {
					return fmt.Errorf("delivery %s not found", args[0])
				}
				return printJSON(cmd.OutOrStdout(), d)
			}

			recent, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), recent)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of deliveries to list")
	return cmd
}

func requireDatabase(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return &config.ConfigError{Missing: []string{"DATABASE_URL"}}
	}
	return nil
}
