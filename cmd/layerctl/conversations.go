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
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcem/layersync/internal/layer"
)

func conversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "Manage Layer conversations",
	}

	var (
		participants []string
		distinct     bool
		metadata     []string
	)

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(participants) == 0 {
				return fmt.Errorf("at least one --participant is required")
			}
			meta, err := parseMetadata(metadata)
			if err != nil {
				return err
			}

			client, err := newLayerClient()
			if err != nil {
				return err
			}
			conversation, err := client.CreateConversation(cmd.Context(), layer.CreateConversationRequest{
				Participants: participants,
				Distinct:     distinct,
				Metadata:     meta,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), conversation)
		},
	}

	create.Flags().StringArrayVarP(&participants, "participant", "p", nil, "participant user id (repeatable)")
	create.Flags().BoolVar(&distinct, "distinct", false, "reuse the existing conversation for this participant set")
	create.Flags().StringArrayVar(&metadata, "metadata", nil, "metadata entry as key=value (repeatable)")

	cmd.AddCommand(create)
	return cmd
}

// parseMetadata turns key=value pairs into a metadata map. Dotted keys
// become nested objects, matching how Layer stores metadata.
func parseMetadata(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	meta := map[string]any{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q, want key=value", pair)
		}

		path := strings.Split(key, ".")
		node := meta
		for _, part := range path[:len(path)-1] {
			if part == "" {
				return nil, fmt.Errorf("invalid metadata key %q", key)
			}
			child, ok := node[part].(map[string]any)
			if !ok {
				if _, exists := node[part]; exists {
					return nil, fmt.Errorf("metadata key %q conflicts with an existing value", key)
				}
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}

		leaf := path[len(path)-1]
		if leaf == "" {
			return nil, fmt.Errorf("invalid metadata key %q", key)
		}
		if _, isMap := node[leaf].(map[string]any); isMap {
			return nil, fmt.Errorf("metadata key %q conflicts with an existing value", key)
		}
		node[leaf] = value
	}
	return meta, nil
}
