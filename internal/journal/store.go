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

// Package journal records the outcome of every webhook delivery in
// Postgres. It is an audit trail for operators: the sync path writes to
// it but never reads it back to make decisions.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Delivery is one processed webhook delivery.
type Delivery struct {
	ID             string    `json:"id"`
	EventType      string    `json:"event_type"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	ChannelID      string    `json:"channel_id"`
	State          string    `json:"state"`
	StatusCode     int       `json:"status_code"`
	Error          string    `json:"error,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Store persists deliveries in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a journal backed by the given Postgres pool.
// It ensures the deliveries table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure journal schema: %w", err)
	}
	slog.Info("delivery journal initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS webhook_deliveries (
			delivery_id      TEXT PRIMARY KEY,
			event_type       TEXT NOT NULL DEFAULT '',
			message_id       TEXT NOT NULL DEFAULT '',
			conversation_id  TEXT NOT NULL DEFAULT '',
			channel_id       TEXT NOT NULL DEFAULT '',
			state            TEXT NOT NULL,
			status_code      INTEGER NOT NULL,
			error            TEXT NOT NULL DEFAULT '',
			received_at      TIMESTAMPTZ NOT NULL,
			completed_at     TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_deliveries_conversation ON webhook_deliveries(conversation_id);
		CREATE INDEX IF NOT EXISTS idx_deliveries_received ON webhook_deliveries(received_at);
	`)
	return err
}

// Record inserts or replaces a delivery keyed on its id.
func (s *Store) Record(ctx context.Context, d Delivery) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_deliveries
			(delivery_id, event_type, message_id, conversation_id, channel_id,
			 state, status_code, error, received_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (delivery_id) DO UPDATE SET
			state        = EXCLUDED.state,
			status_code  = EXCLUDED.status_code,
			error        = EXCLUDED.error,
			channel_id   = EXCLUDED.channel_id,
			completed_at = EXCLUDED.completed_at
	`, d.ID, d.EventType, d.MessageID, d.ConversationID, d.ChannelID,
		d.State, d.StatusCode, d.Error, d.ReceivedAt, d.CompletedAt)
	return err
}

// Get retrieves a single delivery, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Delivery, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT delivery_id, event_type, message_id, conversation_id, channel_id,
		       state, status_code, error, received_at, completed_at
		FROM webhook_deliveries
		WHERE delivery_id = $1
	`, id)
	return scanDelivery(row)
}

// Recent returns the most recent deliveries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT delivery_id, event_type, message_id, conversation_id, channel_id,
		       state, status_code, error, received_at, completed_at
		FROM webhook_deliveries
		ORDER BY received_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, *d)
	}
	return deliveries, rows.Err()
}

// Ping checks the Postgres connection.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// scanDelivery scans a single row into a Delivery.
func scanDelivery(row pgx.Row) (*Delivery, error) {
	var d Delivery
	err := row.Scan(
		&d.ID, &d.EventType, &d.MessageID, &d.ConversationID, &d.ChannelID,
		&d.State, &d.StatusCode, &d.Error, &d.ReceivedAt, &d.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
