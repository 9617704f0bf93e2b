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

// Package transport provides the message layer connecting DKGC nodes, group
// members, and record consumers.
//
// The transport layer carries three protocol phases:
//   - Master key ceremony: commitment announcements and dealt shares between
//     DKGC nodes
//   - Group key issuance: dealer commitments and subshares from DKGC nodes
//     to group members
//   - Record decryption: proven decryption shares from members to a combiner
//
// The relay has no cryptographic role; share confidentiality and proof
// verification live entirely in the protocol packages. Messages are wrapped
// in Envelopes and serialized through a pluggable codec.
package transport

import (
	"fmt"
	"time"
)

// Logger is the logging interface for transport events. Implementations can
// be provided by callers to capture transport activity.
type Logger interface {
	// Info logs informational messages.
	Info(format string, args ...interface{})
	// Debug logs debug messages (verbose output).
	Debug(format string, args ...interface{})
	// Error logs error messages.
	Error(format string, args ...interface{})
}

// NopLogger is a no-op logger that discards all log messages.
type NopLogger struct{}

func (NopLogger) Info(format string, args ...interface{})  {}
func (NopLogger) Debug(format string, args ...interface{}) {}
func (NopLogger) Error(format string, args ...interface{}) {}

// StdoutLogger logs to stdout with a prefix.
type StdoutLogger struct {
	Prefix  string
	Verbose bool
}

func (l *StdoutLogger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("[%s] %s\n", l.Prefix, msg)
}

func (l *StdoutLogger) Debug(format string, args ...interface{}) {
	if l.Verbose {
		msg := fmt.Sprintf(format, args...)
		fmt.Printf("[%s] DEBUG: %s\n", l.Prefix, msg)
	}
}

func (l *StdoutLogger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("[%s] ERROR: %s\n", l.Prefix, msg)
}

// Protocol names a transport implementation.
type Protocol string

const (
	// ProtocolMemory uses in-process channels. Suitable for tests and the
	// demo CLI; share messages never leave the process.
	ProtocolMemory Protocol = "memory"
)

// Config holds transport layer configuration.
type Config struct {
	// Protocol selects the transport implementation.
	Protocol Protocol

	// CodecType specifies message serialization format.
	// Supported: "json", "cbor", "msgpack", "yaml", "bson", "toml"
	// Default: "json"
	CodecType string

	// Ciphersuite is the group ciphersuite identifier, for example
	// "FROST-ED25519-SHA512-v1". Sessions reject mismatched suites.
	Ciphersuite string

	// Timeout is the per-operation timeout.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxMessageSize is the maximum message size in bytes.
	// Default: 1MB
	MaxMessageSize int

	// Logger for transport events. If nil, a NopLogger is used.
	Logger Logger
}

// Phase identifies which protocol phase a session carries.
type Phase string

const (
	// PhaseCeremony is the master key generation ceremony between DKGC
	// nodes.
	PhaseCeremony Phase = "ceremony"

	// PhaseIssuance is group key issuance from DKGC nodes to members.
	PhaseIssuance Phase = "issuance"

	// PhaseDecryption is decryption share collection from members.
	PhaseDecryption Phase = "decryption"
)

// SessionConfig configures one protocol session.
type SessionConfig struct {
	// SessionID uniquely identifies the session; messages carry it so
	// concurrent sessions cannot cross.
	SessionID string

	// Phase is the protocol phase this session carries.
	Phase Phase

	// Threshold is the phase threshold: the master threshold t for ceremony
	// and issuance sessions, the group threshold t_g for decryption.
	Threshold int

	// NumParticipants is the expected number of session participants.
	NumParticipants int

	// GroupID is the group identity for issuance and decryption sessions;
	// empty for ceremony sessions.
	GroupID string

	// Ciphersuite is the group ciphersuite identifier.
	Ciphersuite string

	// Timeout is the maximum session lifetime.
	// Default: 5 minutes
	Timeout time.Duration
}

// Validate checks session bounds before a session is created.
func (c *SessionConfig) Validate() error {
	if c == nil || c.SessionID == "" {
		return ErrInvalidConfig
	}
	if c.NumParticipants < 1 {
		return ErrInvalidParticipantCount
	}
	if c.Threshold < 1 || c.Threshold > c.NumParticipants {
		return ErrInvalidThreshold
	}
	switch c.Phase {
	case PhaseCeremony:
		if c.GroupID != "" {
			return ErrInvalidConfig
		}
	case PhaseIssuance, PhaseDecryption:
		if c.GroupID == "" {
			return ErrInvalidConfig
		}
	default:
		return ErrInvalidConfig
	}
	return nil
}
