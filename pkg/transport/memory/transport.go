// SPDX-License-Identifier: Apache-2.0
//
// Copyright 2025 Jeremy Hahn
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

// Package memory provides an in-process transport for the DIBTD protocol
// phases.
//
// Messages are routed over channels between participants in the same
// process, which makes it suitable for tests and the demo CLI. There is no
// network I/O and no connection security; confidential messages (ceremony
// shares, issuance subshares) stay in process memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jeremyhahn/go-dibtd/pkg/transport"
)

const (
	defaultMailboxSize    = 128
	defaultMaxMessageSize = 1 << 20
)

// Participant is one party's connection to a session: a DKGC node in a
// ceremony or issuance session, a group member in a decryption session.
type Participant struct {
	// Index is the participant's 1-based protocol index.
	Index int

	mu        sync.RWMutex
	mailbox   chan *transport.Envelope
	sessionID string
	connected bool
}

// Receive delivers the next envelope addressed to this participant, blocking
// until one arrives, the context expires, or the connection closes.
func (p *Participant) Receive(ctx context.Context) (*transport.Envelope, error) {
	select {
	case env, ok := <-p.mailbox:
		if !ok {
			return nil, transport.ErrConnectionClosed
		}
		return env, nil
	case <-ctx.Done():
		return nil, transport.ErrMessageTimeout
	}
}

// session is one phase's routing table.
type session struct {
	id     string
	config *transport.SessionConfig

	mu           sync.RWMutex
	participants map[int]*Participant
	started      time.Time
	closed       bool
}

// Transport routes envelopes between participants of in-process sessions.
type Transport struct {
	mu             sync.RWMutex
	sessions       map[string]*session
	serializer     *transport.Serializer
	logger         transport.Logger
	maxMessageSize int
}

// New creates an in-process transport with the given codec. An empty
// codecType defaults to json; a nil logger defaults to NopLogger.
func New(codecType string, logger transport.Logger) (*Transport, error) {
	return NewWithConfig(&transport.Config{
		Protocol:  transport.ProtocolMemory,
		CodecType: codecType,
		Logger:    logger,
	})
}

// NewWithConfig creates an in-process transport from a transport config.
// Zero-valued fields take defaults: json codec, NopLogger, 1MB message cap.
func NewWithConfig(cfg *transport.Config) (*Transport, error) {
	if cfg == nil {
		return nil, transport.ErrInvalidConfig
	}
	if cfg.Protocol != "" && cfg.Protocol != transport.ProtocolMemory {
		return nil, transport.ErrInvalidProtocol
	}

	codecType := cfg.CodecType
	if codecType == "" {
		codecType = "json"
	}
	serializer, err := transport.NewSerializer(codecType)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = transport.NopLogger{}
	}
	maxMessageSize := cfg.MaxMessageSize
	if maxMessageSize <= 0 {
		maxMessageSize = defaultMaxMessageSize
	}

	return &Transport{
		sessions:       make(map[string]*session),
		serializer:     serializer,
		logger:         logger,
		maxMessageSize: maxMessageSize,
	}, nil
}

// Serializer returns the transport's serializer.
func (t *Transport) Serializer() *transport.Serializer {
	return t.serializer
}

// CreateSession registers a new session for one protocol phase.
func (t *Transport) CreateSession(config *transport.SessionConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.sessions[config.SessionID]; exists {
		return transport.NewSessionError(config.SessionID, transport.ErrSessionExists)
	}

	t.sessions[config.SessionID] = &session{
		id:           config.SessionID,
		config:       config,
		participants: make(map[int]*Participant),
		started:      time.Now(),
	}
	t.logger.Debug("session %s created (phase=%s, n=%d, t=%d)",
		config.SessionID, config.Phase, config.NumParticipants, config.Threshold)
	return nil
}

// CloseSession closes a session and every participant mailbox in it.
func (t *Transport) CloseSession(sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, exists := t.sessions[sessionID]
	if !exists {
		return transport.NewSessionError(sessionID, transport.ErrSessionNotFound)
	}

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		for _, p := range s.participants {
			p.mu.Lock()
			if p.connected {
				p.connected = false
				close(p.mailbox)
			}
			p.mu.Unlock()
		}
	}
	s.mu.Unlock()

	delete(t.sessions, sessionID)
	t.logger.Debug("session %s closed", sessionID)
	return nil
}

func (t *Transport) getSession(sessionID string) (*session, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, exists := t.sessions[sessionID]
	if !exists {
		return nil, transport.NewSessionError(sessionID, transport.ErrSessionNotFound)
	}
	return s, nil
}

// Join connects a participant to a session under its protocol index.
func (t *Transport) Join(sessionID string, index int) (*Participant, error) {
	s, err := t.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, transport.NewSessionError(sessionID, transport.ErrSessionClosed)
	}
	if index < 1 || index > s.config.NumParticipants {
		return nil, transport.ErrInvalidParticipantIndex
	}
	if len(s.participants) >= s.config.NumParticipants {
		return nil, transport.NewSessionError(sessionID, transport.ErrSessionFull)
	}
	if _, exists := s.participants[index]; exists {
		return nil, transport.NewParticipantError("", index, transport.ErrDuplicateParticipant)
	}

	p := &Participant{
		Index:     index,
		mailbox:   make(chan *transport.Envelope, defaultMailboxSize),
		sessionID: sessionID,
		connected: true,
	}
	s.participants[index] = p
	t.logger.Debug("participant %d joined session %s", index, sessionID)
	return p, nil
}

// Leave disconnects a participant and closes its mailbox.
func (t *Transport) Leave(sessionID string, index int) error {
	s, err := t.getSession(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.participants[index]
	if !exists {
		return transport.NewParticipantError("", index, transport.ErrNotConnected)
	}

	p.mu.Lock()
	if p.connected {
		p.connected = false
		close(p.mailbox)
	}
	p.mu.Unlock()

	delete(s.participants, index)
	return nil
}

// Send delivers an envelope to one participant.
func (t *Transport) Send(ctx context.Context, sessionID string, to int, envelope *transport.Envelope) error {
	if len(envelope.Payload) > t.maxMessageSize {
		return transport.ErrMessageTooLarge
	}
	s, err := t.getSession(sessionID)
	if err != nil {
		return err
	}

	s.mu.RLock()
	p, exists := s.participants[to]
	s.mu.RUnlock()
	if !exists {
		return transport.NewParticipantError("", to, transport.ErrNotConnected)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.connected {
		return transport.NewParticipantError("", to, transport.ErrConnectionClosed)
	}

	select {
	case p.mailbox <- envelope:
		return nil
	case <-ctx.Done():
		return transport.ErrMessageTimeout
	}
}

// Broadcast delivers an envelope to every participant except the sender.
func (t *Transport) Broadcast(ctx context.Context, sessionID string, envelope *transport.Envelope) error {
	s, err := t.getSession(sessionID)
	if err != nil {
		return err
	}

	s.mu.RLock()
	indices := make([]int, 0, len(s.participants))
	for idx := range s.participants {
		if idx != envelope.SenderIdx {
			indices = append(indices, idx)
		}
	}
	s.mu.RUnlock()
	sort.Ints(indices)

	for _, idx := range indices {
		if err := t.Send(ctx, sessionID, idx, envelope); err != nil {
			return err
		}
	}
	return nil
}

// Participants returns the sorted indices currently joined to a session.
func (t *Transport) Participants(sessionID string) ([]int, error) {
	s, err := t.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	indices := make([]int, 0, len(s.participants))
	for idx := range s.participants {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices, nil
}
