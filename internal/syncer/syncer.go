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

// Package syncer replays Layer webhook deliveries into Stream Chat.
//
// A delivery moves through Received → Verified → Filtered → Translated →
// Upserted → Responded. It stops early as RejectedSignature (bad
// signature) or Ignored (event type not synced), and as Failed on any
// translation or provider error. Nothing is retried: a failure after
// users were upserted leaves Stream partially updated, and the next
// delivery for the conversation simply upserts again.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bcem/layersync/internal/journal"
	"github.com/bcem/layersync/internal/lock"
	"github.com/bcem/layersync/internal/models"
	"github.com/bcem/layersync/internal/signature"
	"github.com/bcem/layersync/internal/translate"
)

// State is a step of the delivery state machine.
type State string

const (
	StateReceived          State = "Received"
	StateVerified          State = "Verified"
	StateFiltered          State = "Filtered"
	StateTranslated        State = "Translated"
	StateUpserted          State = "Upserted"
	StateResponded         State = "Responded"
	StateRejectedSignature State = "RejectedSignature"
	StateIgnored           State = "Ignored"
	StateFailed            State = "Failed"
)

const (
	msgBadSignature = "Signature was not correct, check your webhook secret and verify the serverless handler uses the same"
	msgUnsupported  = "not able to handle events of this type..."

	defaultCallTimeout = 10 * time.Second
	defaultLockWait    = 15 * time.Second
)

// Response is the HTTP-style result of processing one delivery.
type Response struct {
	StatusCode int
	Body       any
	State      State
}

// Destination is the subset of the Stream API the sync writes to.
type Destination interface {
	UpsertUsers(ctx context.Context, users []models.StreamUser) error
	CreateChannel(ctx context.Context, channelType, channelID string, data models.ChannelData) (models.ChannelRef, error)
	SendMessage(ctx context.Context, channel models.ChannelRef, msg models.StreamMessage) error
}

// Locker serialises deliveries for the same conversation.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Journal records delivery outcomes.
type Journal interface {
	Record(ctx context.Context, d journal.Delivery) error
}

// Config holds the dependencies of a Syncer.
type Config struct {
	Verifier    *signature.Verifier
	Fetcher     translate.ConversationFetcher
	Destination Destination

	// Optional. Locker defaults to an in-process lock; a nil Journal
	// disables the audit trail.
	Locker  Locker
	Journal Journal

	CallTimeout time.Duration
}

// Syncer processes webhook deliveries.
type Syncer struct {
	verifier    *signature.Verifier
	fetcher     translate.ConversationFetcher
	destination Destination
	locker      Locker
	journal     Journal
	callTimeout time.Duration
}

// New creates a Syncer.
func New(cfg Config) (*Syncer, error) {
	if cfg.Verifier == nil {
		return nil, errors.New("syncer: signature verifier is required")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("syncer: conversation fetcher is required")
	}
	if cfg.Destination == nil {
		return nil, errors.New("syncer: destination is required")
	}

	locker := cfg.Locker
	if locker == nil {
		locker = lock.NewLocalLocker(defaultLockWait)
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &Syncer{
		verifier:    cfg.Verifier,
		fetcher:     cfg.Fetcher,
		destination: cfg.Destination,
		locker:      locker,
		journal:     cfg.Journal,
		callTimeout: timeout,
	}, nil
}

// delivery tracks one invocation for logging and the journal.
type delivery struct {
	id             string
	received       time.Time
	state          State
	eventType      string
	messageID      string
	conversationID string
	channelID      string
	err            error
}

// Process runs one webhook delivery through the pipeline and returns the
// response to send back to Layer.
func (s *Syncer) Process(ctx context.Context, env models.Envelope) Response {
	d := &delivery{
		id:       uuid.NewString(),
		received: time.Now().UTC(),
		state:    StateReceived,
	}
	log := slog.With("delivery_id", d.id)

	resp := s.process(ctx, env, d, log)
	s.record(ctx, d, resp, log)
	return resp
}

func (s *Syncer) process(ctx context.Context, env models.Envelope, d *delivery, log *slog.Logger) Response {
	if !s.verifier.Verify(env.Body, env.Signature) {
		log.Warn("webhook signature mismatch", "body_len", len(env.Body))
		d.state = StateRejectedSignature
		return Response{
			StatusCode: http.StatusForbidden,
			Body:       map[string]string{"error": msgBadSignature},
			State:      d.state,
		}
	}
	d.state = StateVerified

	// Only the event type is decoded before filtering, so an event we do
	// not sync is acknowledged whatever shape its message has.
	var head struct {
		Event   models.EventInfo `json:"event"`
		Message json.RawMessage  `json:"message"`
	}
	if err := json.Unmarshal(env.Body, &head); err != nil {
		return s.fail(d, log, &MalformedPayloadError{Err: err})
	}
	payload := models.Payload{Event: head.Event}
	d.eventType = payload.Type()

	if !Accepts(payload) {
		log.Info("ignoring unsupported webhook event", "event_type", d.eventType)
		d.state = StateIgnored
		return Response{
			StatusCode: http.StatusOK,
			Body:       map[string]string{"error": msgUnsupported},
			State:      d.state,
		}
	}
	d.state = StateFiltered

	if len(head.Message) > 0 {
		if err := json.Unmarshal(head.Message, &payload.Message); err != nil {
			return s.fail(d, log, &MalformedPayloadError{Err: fmt.Errorf("message: %w", err)})
		}
	}
	d.messageID = payload.Message.ID

	conversationUUID, err := translate.ConversationUUID(payload.Message)
	if err != nil {
		return s.fail(d, log, err)
	}
	d.conversationID = conversationUUID
	log = log.With("message_id", d.messageID, "conversation_id", conversationUUID)

	message, err := translateMessage(payload.Message)
	if err != nil {
		return s.fail(d, log, err)
	}

	release, err := s.locker.Acquire(ctx, conversationUUID)
	if err != nil {
		return s.fail(d, log, fmt.Errorf("acquire conversation lock: %w", err))
	}
	defer release()

	channel, err := s.resolveChannel(ctx, payload.Message)
	if err != nil {
		return s.fail(d, log, err)
	}
	d.state = StateTranslated

	log.Debug("translated webhook message",
		"channel_id", channel.ID,
		"members", len(channel.Members),
		"attachments", len(message.Attachments),
	)

	ref, err := s.upsert(ctx, channel, message, log)
	if ref.ID != "" {
		d.channelID = ref.ID
	}
	if err != nil {
		return s.fail(d, log, err)
	}
	d.state = StateUpserted

	log.Info("synced layer message to stream",
		"channel_id", ref.ID,
		"stream_message_id", message.ID,
	)

	d.state = StateResponded
	return Response{
		StatusCode: http.StatusOK,
		Body:       map[string]any{"data": json.RawMessage(env.Body)},
		State:      d.state,
	}
}

// translateMessage builds the sender and message. It does no I/O, so
// invalid payloads fail before any lock or provider call.
func translateMessage(msg models.Message) (models.StreamMessage, error) {
	user, err := translate.User(msg)
	if err != nil {
		return models.StreamMessage{}, err
	}
	return translate.Message(msg, user)
}

// resolveChannel fetches the conversation and maps it onto a channel.
func (s *Syncer) resolveChannel(ctx context.Context, msg models.Message) (models.StreamChannel, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	channel, err := translate.Channel(ctx, msg, s.fetcher)
	if err != nil {
		var invariant *translate.InvariantError
		if !errors.As(err, &invariant) {
			err = &UpstreamError{Op: "fetch conversation", Err: err}
		}
		return models.StreamChannel{}, err
	}
	return channel, nil
}

// upsert writes users, then the channel, then the message. Each step
// depends on the one before it.
func (s *Syncer) upsert(ctx context.Context, channel models.StreamChannel, message models.StreamMessage, log *slog.Logger) (models.ChannelRef, error) {
	users := make([]models.StreamUser, 0, len(channel.Members))
	for _, member := range channel.Members {
		users = append(users, models.StreamUser{ID: member, Role: models.RoleUser})
	}

	err := s.call(ctx, func(ctx context.Context) error {
		return s.destination.UpsertUsers(ctx, users)
	})
	if err != nil {
		return models.ChannelRef{}, &UpstreamError{Op: "upsert users", Err: err}
	}

	data := models.ChannelData{
		SourceConversationID: channel.SourceConversationID,
		SyncSource:           channel.SyncSource,
		Members:              channel.Members,
		CreatedBy:            models.StreamUser{ID: models.SyncSourceWebhook, Name: models.SyncCreatorName},
		Custom:               channel.Metadata,
	}

	var ref models.ChannelRef
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		ref, err = s.destination.CreateChannel(ctx, channel.Type, channel.ID, data)
		return err
	})
	if err != nil {
		log.Warn("channel creation failed after users were upserted", "users", len(users))
		return models.ChannelRef{}, &UpstreamError{Op: "create channel", Err: err}
	}

	err = s.call(ctx, func(ctx context.Context) error {
		return s.destination.SendMessage(ctx, ref, message)
	})
	if err != nil {
		log.Warn("message send failed after channel was created", "channel_id", ref.ID)
		return ref, &UpstreamError{Op: "send message", Err: err}
	}

	return ref, nil
}

// call runs fn with the per-call timeout.
func (s *Syncer) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *Syncer) fail(d *delivery, log *slog.Logger, err error) Response {
	status := statusFor(err)
	log.Error("webhook delivery failed",
		"last_state", d.state,
		"status", status,
		"error", err,
	)

	d.state = StateFailed
	d.err = err
	return Response{
		StatusCode: status,
		Body:       map[string]string{"error": err.Error()},
		State:      d.state,
	}
}

func (s *Syncer) record(ctx context.Context, d *delivery, resp Response, log *slog.Logger) {
	if s.journal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	entry := journal.Delivery{
		ID:             d.id,
		EventType:      d.eventType,
		MessageID:      d.messageID,
		ConversationID: d.conversationID,
		ChannelID:      d.channelID,
		State:          string(resp.State),
		StatusCode:     resp.StatusCode,
		ReceivedAt:     d.received,
		CompletedAt:    time.Now().UTC(),
	}
	if d.err != nil {
		entry.Error = d.err.Error()
	}

	if err := s.journal.Record(ctx, entry); err != nil {
		log.Warn("failed to record delivery", "error", err)
	}
}
