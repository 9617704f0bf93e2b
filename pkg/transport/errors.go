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

package transport

import (
	"errors"
	"fmt"
)

// Connection errors.
var (
	// ErrConnectionClosed indicates the connection was closed.
	ErrConnectionClosed = errors.New("transport: connection closed")

	// ErrNotConnected indicates the participant is not connected.
	ErrNotConnected = errors.New("transport: not connected")
)

// Session errors.
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("transport: session not found")

	// ErrSessionExists indicates a session with this ID already exists.
	ErrSessionExists = errors.New("transport: session already exists")

	// ErrSessionClosed indicates the session has been closed.
	ErrSessionClosed = errors.New("transport: session closed")

	// ErrSessionFull indicates the session has reached maximum participants.
	ErrSessionFull = errors.New("transport: session full")

	// ErrDuplicateParticipant indicates a participant is already in the session.
	ErrDuplicateParticipant = errors.New("transport: duplicate participant")
)

// Message errors.
var (
	// ErrInvalidMessage indicates the message format is invalid.
	ErrInvalidMessage = errors.New("transport: invalid message")

	// ErrMessageTooLarge indicates the message exceeds maximum size.
	ErrMessageTooLarge = errors.New("transport: message too large")

	// ErrMessageTimeout indicates a message send/receive timed out.
	ErrMessageTimeout = errors.New("transport: message timeout")

	// ErrUnexpectedMessage indicates a message of the wrong type for the
	// session phase.
	ErrUnexpectedMessage = errors.New("transport: unexpected message")

	// ErrCiphersuiteMismatch indicates incompatible ciphersuites.
	ErrCiphersuiteMismatch = errors.New("transport: ciphersuite mismatch")
)

// Configuration errors.
var (
	// ErrInvalidConfig indicates the configuration is invalid.
	ErrInvalidConfig = errors.New("transport: invalid configuration")

	// ErrInvalidProtocol indicates an unsupported or invalid protocol.
	ErrInvalidProtocol = errors.New("transport: invalid protocol")

	// ErrInvalidThreshold indicates invalid threshold parameters.
	ErrInvalidThreshold = errors.New("transport: invalid threshold (must have 1 <= t <= n)")

	// ErrInvalidParticipantCount indicates invalid number of participants.
	ErrInvalidParticipantCount = errors.New("transport: invalid participant count (must have n >= 1)")

	// ErrInvalidParticipantIndex indicates participant index out of range.
	ErrInvalidParticipantIndex = errors.New("transport: invalid participant index")
)

// SessionError wraps session errors with session context.
type SessionError struct {
	SessionID string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session error (session=%s): %v", e.SessionID, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError.
func NewSessionError(sessionID string, err error) error {
	if err == nil {
		return nil
	}
	return &SessionError{
		SessionID: sessionID,
		Err:       err,
	}
}

// ParticipantError wraps errors specific to a participant.
type ParticipantError struct {
	ParticipantID string
	Index         int
	Err           error
}

func (e *ParticipantError) Error() string {
	if e.ParticipantID != "" {
		return fmt.Sprintf("participant error (id=%s, index=%d): %v", e.ParticipantID, e.Index, e.Err)
	}
	return fmt.Sprintf("participant error (index=%d): %v", e.Index, e.Err)
}

func (e *ParticipantError) Unwrap() error {
	return e.Err
}

// NewParticipantError creates a new ParticipantError.
func NewParticipantError(participantID string, index int, err error) error {
	if err == nil {
		return nil
	}
	return &ParticipantError{
		ParticipantID: participantID,
		Index:         index,
		Err:           err,
	}
}
