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

// Package proof implements the non-interactive Schnorr proof subsystem.
//
// Proof statements form a closed set, each carrying its own transcript
// construction rule:
//
//   - KnowledgeOfExponent proves knowledge of x such that P = x*G. Used as
//     a proof of possession over DKG commitment constant terms.
//   - ShareCorrectness proves, Chaum-Pedersen style, that Lambda = psi*D and
//     V = psi*G share the same exponent psi without revealing it. Used to
//     authenticate decryption shares against the member's public key-share
//     commitment and a specific ciphertext.
//
// Every proof is bound to a caller-supplied context. The context prevents a
// proof produced for one ciphertext or member from being replayed against
// another; omitting it is a design error, not an option.
//
// The commitment nonce k must be freshly random per proof. Reusing k across
// two proofs leaks the secret via a two-equation solve; this is a documented
// fatal-misuse condition, not handled defensively here.
package proof

import (
	"crypto/subtle"
	"errors"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
	"github.com/jeremyhahn/go-frost/pkg/frost/group"

	"github.com/jeremyhahn/go-dibtd/pkg/identity"
)

// Kind identifies a proof statement.
type Kind uint8

const (
	// KnowledgeOfExponent is a plain Schnorr proof for P = x*G.
	KnowledgeOfExponent Kind = 1

	// ShareCorrectness is a Chaum-Pedersen discrete-log equality proof for
	// Lambda = psi*D and V = psi*G.
	ShareCorrectness Kind = 2
)

var (
	// ErrInvalidProofEncoding indicates a malformed serialized proof.
	ErrInvalidProofEncoding = errors.New("proof: invalid proof encoding")

	// ErrUnknownKind indicates an unrecognized proof kind byte.
	ErrUnknownKind = errors.New("proof: unknown statement kind")

	// ErrWrongKind indicates a proof presented against the wrong statement.
	ErrWrongKind = errors.New("proof: statement kind mismatch")
)

// Proof is a non-interactive zero-knowledge proof.
//
// For KnowledgeOfExponent, R2 is nil and the proof is (R, S) with
// S = k + c*x. For ShareCorrectness the proof carries both commitments
// R = k*G and R2 = k*D with the shared response S = k + c*psi.
type Proof struct {
	Kind Kind
	R    group.Element
	R2   group.Element
	S    group.Scalar
}

// challenge derives the Fiat-Shamir challenge from the full public
// transcript: statement kind, commitments, statement elements, and context.
func challenge(cs ciphersuite.Ciphersuite, kind Kind, transcript [][]byte, context []byte) (group.Scalar, error) {
	size := 1 + len(context)
	for _, part := range transcript {
		size += len(part)
	}

	input := make([]byte, 0, size)
	input = append(input, byte(kind))
	for _, part := range transcript {
		if part == nil {
			return nil, ErrInvalidProofEncoding
		}
		input = append(input, part...)
	}
	input = append(input, context...)

	return identity.HashToScalar(cs, identity.DomainChallenge, input), nil
}

// ProveKnowledge proves knowledge of secret x with public = x*G.
//
// A fresh random nonce k is sampled from the group's secure randomness;
// failure to obtain randomness is returned to the caller, never substituted.
func ProveKnowledge(cs ciphersuite.Ciphersuite, secret group.Scalar, public group.Element, context []byte) (*Proof, error) {
	grp := cs.Group()

	k, err := grp.RandomScalar()
	if err != nil {
		return nil, err
	}

	R := grp.ScalarBaseMult(k)

	RBytes, err := grp.SerializeElement(R)
	if err != nil {
		return nil, err
	}
	publicBytes, err := grp.SerializeElement(public)
	if err != nil {
		return nil, err
	}

	c, err := challenge(cs, KnowledgeOfExponent, [][]byte{RBytes, publicBytes}, context)
	if err != nil {
		return nil, err
	}

	// s = k + c*x
	s := k.Add(c.Mul(secret))

	return &Proof{Kind: KnowledgeOfExponent, R: R, S: s}, nil
}

// VerifyKnowledge verifies a KnowledgeOfExponent proof: s*G == R + c*P.
func VerifyKnowledge(cs ciphersuite.Ciphersuite, public group.Element, p *Proof, context []byte) bool {
	if p == nil || p.Kind != KnowledgeOfExponent || p.R == nil || p.S == nil {
		return false
	}
	grp := cs.Group()

	RBytes, err := grp.SerializeElement(p.R)
	if err != nil {
		return false
	}
	publicBytes, err := grp.SerializeElement(public)
	if err != nil {
		return false
	}

	c, err := challenge(cs, KnowledgeOfExponent, [][]byte{RBytes, publicBytes}, context)
	if err != nil {
		return false
	}

	sG := grp.ScalarBaseMult(p.S)
	expected := p.R.Add(grp.ScalarMult(public, c))

	return elementsEqual(grp, sG, expected)
}

// ProveShareCorrectness proves that lambda = psi*base and vk = psi*G share
// the exponent psi.
//
// base is the ciphertext's encapsulation point D; vk is the member's public
// key-share commitment. The context must bind the ciphertext and the member
// index.
func ProveShareCorrectness(cs ciphersuite.Ciphersuite, psi group.Scalar, base, lambda, vk group.Element, context []byte) (*Proof, error) {
	grp := cs.Group()

	k, err := grp.RandomScalar()
	if err != nil {
		return nil, err
	}

	R := grp.ScalarBaseMult(k)
	R2 := grp.ScalarMult(base, k)

	transcript, err := serializeAll(grp, R, R2, base, lambda, vk)
	if err != nil {
		return nil, err
	}

	c, err := challenge(cs, ShareCorrectness, transcript, context)
	if err != nil {
		return nil, err
	}

	// s = k + c*psi
	s := k.Add(c.Mul(psi))

	return &Proof{Kind: ShareCorrectness, R: R, R2: R2, S: s}, nil
}

// VerifyShareCorrectness verifies a ShareCorrectness proof:
//
//	s*G    == R  + c*vk
//	s*base == R2 + c*lambda
//
// Both equations must hold for the same challenge c, which ties the partial
// decryption value to the member's public key-share commitment.
func VerifyShareCorrectness(cs ciphersuite.Ciphersuite, p *Proof, base, lambda, vk group.Element, context []byte) bool {
	if p == nil || p.Kind != ShareCorrectness || p.R == nil || p.R2 == nil || p.S == nil {
		return false
	}
	grp := cs.Group()

	transcript, err := serializeAll(grp, p.R, p.R2, base, lambda, vk)
	if err != nil {
		return false
	}

	c, err := challenge(cs, ShareCorrectness, transcript, context)
	if err != nil {
		return false
	}

	sG := grp.ScalarBaseMult(p.S)
	if !elementsEqual(grp, sG, p.R.Add(grp.ScalarMult(vk, c))) {
		return false
	}

	sBase := grp.ScalarMult(base, p.S)
	return elementsEqual(grp, sBase, p.R2.Add(grp.ScalarMult(lambda, c)))
}

// elementsEqual compares two group elements in constant time over their
// canonical encodings.
func elementsEqual(grp group.Group, a, b group.Element) bool {
	aBytes := a.Bytes()
	bBytes := b.Bytes()
	if len(aBytes) != len(bBytes) {
		return false
	}
	return subtle.ConstantTimeCompare(aBytes, bBytes) == 1
}

// serializeAll serializes elements for transcript construction, preserving
// order.
func serializeAll(grp group.Group, elems ...group.Element) ([][]byte, error) {
	out := make([][]byte, len(elems))
	for i, e := range elems {
		if e == nil {
			return nil, ErrInvalidProofEncoding
		}
		b, err := grp.SerializeElement(e)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
