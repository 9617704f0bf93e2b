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

// Package dkg implements the Pedersen distributed key generation protocol
// used by the DIBTD key generation centers (DKGC nodes).
package dkg

import (
	"errors"
	"fmt"
)

// Protocol limits.
const (
	// MinThreshold is the minimum allowed threshold value.
	// A threshold of 1 degenerates to a single trusted node but is
	// still a valid (1, n) sharing.
	MinThreshold = 1

	// MaxParticipants is the maximum allowed number of DKGC nodes.
	// This prevents DoS attacks from excessive memory allocation.
	MaxParticipants = 65535
)

// Core errors for polynomial, commitment, and share operations.
var (
	// ErrInvalidParticipantIndex indicates that a node index is invalid.
	// DKGC node indices are 1-based and bounded by the participant count.
	ErrInvalidParticipantIndex = errors.New("dkg: invalid participant index")

	// ErrInvalidThreshold indicates that the threshold value is invalid.
	// The threshold must satisfy MinThreshold <= t <= n.
	ErrInvalidThreshold = errors.New("dkg: invalid threshold")

	// ErrInvalidPolynomial indicates that a polynomial is invalid.
	// This occurs when the polynomial has no coefficients.
	ErrInvalidPolynomial = errors.New("dkg: invalid polynomial")

	// ErrInvalidCommitmentLength indicates that a coefficient commitment has
	// an invalid length. The commitment must have exactly t group elements.
	ErrInvalidCommitmentLength = errors.New("dkg: invalid commitment length")

	// ErrInvalidShare indicates that a received share evaluation does not
	// match the sender's published coefficient commitments.
	ErrInvalidShare = errors.New("dkg: invalid share")

	// ErrZeroScalar indicates that a scalar is zero in a context where it is
	// not allowed, such as computing a multiplicative inverse during Lagrange
	// interpolation.
	ErrZeroScalar = errors.New("dkg: division by zero scalar")

	// ErrDuplicateIndex indicates that two shares carry the same index.
	// Lagrange interpolation requires distinct evaluation points.
	ErrDuplicateIndex = errors.New("dkg: duplicate share index")

	// ErrBelowThreshold indicates that a combination was attempted with
	// fewer shares than the threshold requires. The caller may recover by
	// gathering more shares; the threshold is never silently downgraded.
	ErrBelowThreshold = errors.New("dkg: share count below threshold")

	// ErrMismatchedThreshold indicates that two coefficient commitments have
	// different degrees and cannot be combined.
	ErrMismatchedThreshold = errors.New("dkg: mismatched threshold")
)

// Protocol state machine errors.
var (
	// ErrInvalidStateTransition indicates that an operation was invoked in a
	// protocol state that does not permit it.
	ErrInvalidStateTransition = errors.New("dkg: invalid state transition")

	// ErrUnknownPeer indicates a message from a node index that was never
	// registered with this node.
	ErrUnknownPeer = errors.New("dkg: unknown peer index")

	// ErrMissingCommitment indicates that share verification was attempted
	// before the sender's coefficient commitments were received.
	ErrMissingCommitment = errors.New("dkg: missing peer commitment")

	// ErrInsufficientValidShares indicates that after disqualifications the
	// node holds fewer than t valid shares and cannot finalize.
	ErrInsufficientValidShares = errors.New("dkg: insufficient valid shares")

	// ErrNodeDisqualified indicates that the peer was already flagged as
	// disqualified and its contribution is not accepted.
	ErrNodeDisqualified = errors.New("dkg: node disqualified")

	// ErrProofOfPossessionFailed indicates that a peer's commitment proof of
	// possession did not verify.
	ErrProofOfPossessionFailed = errors.New("dkg: proof of possession failed")
)

// DisqualifiedNodeError reports a peer that deviated from the protocol,
// together with the reason it was excluded.
type DisqualifiedNodeError struct {
	// Index is the 1-based index of the disqualified node.
	Index int
	// Reason describes the protocol violation.
	Reason string
}

// Error implements the error interface.
func (e *DisqualifiedNodeError) Error() string {
	return fmt.Sprintf("dkg: node %d disqualified: %s", e.Index, e.Reason)
}

// Is reports whether target matches the sentinel ErrNodeDisqualified.
func (e *DisqualifiedNodeError) Is(target error) bool {
	return target == ErrNodeDisqualified
}

// NewDisqualifiedNodeError creates a new DisqualifiedNodeError.
func NewDisqualifiedNodeError(index int, reason string) *DisqualifiedNodeError {
	return &DisqualifiedNodeError{Index: index, Reason: reason}
}

// ThresholdViolationError reports how many shares were available against how
// many the threshold requires. It unwraps to ErrBelowThreshold.
type ThresholdViolationError struct {
	Got  int
	Need int
}

func (e *ThresholdViolationError) Error() string {
	return fmt.Sprintf("dkg: %d shares available, threshold requires %d", e.Got, e.Need)
}

func (e *ThresholdViolationError) Is(target error) bool {
	return target == ErrBelowThreshold
}
