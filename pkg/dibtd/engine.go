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

// Package dibtd orchestrates identity-based threshold decryption of records:
// hybrid encryption against a group's identity-derived public key, proven
// partial decryption by group members, and threshold combination.
//
// Encryption needs only the master public key and the group identity; no
// interaction with DKGC nodes or members. Decryption gathers at least the
// group threshold of proven decryption shares, recombines the encapsulation
// secret by Lagrange interpolation in the exponent, and opens the AEAD
// payload.
package dibtd

import (
	"fmt"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
	"github.com/jeremyhahn/go-frost/pkg/frost/group"

	"github.com/jeremyhahn/go-dibtd/pkg/aead"
	"github.com/jeremyhahn/go-dibtd/pkg/dkg"
	"github.com/jeremyhahn/go-dibtd/pkg/identity"
	"github.com/jeremyhahn/go-dibtd/pkg/keyissue"
	"github.com/jeremyhahn/go-dibtd/pkg/proof"
	"github.com/jeremyhahn/go-dibtd/pkg/transport"
)

// Engine performs record encryption and threshold decryption under one
// ciphersuite. Engines are stateless and safe for concurrent use.
type Engine struct {
	cs     ciphersuite.Ciphersuite
	grp    group.Group
	logger transport.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. The engine logs share rejections and
// phase transitions; it never logs key material.
func WithLogger(l transport.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over the given ciphersuite.
func NewEngine(cs ciphersuite.Ciphersuite, opts ...Option) *Engine {
	e := &Engine{
		cs:     cs,
		grp:    cs.Group(),
		logger: transport.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ciphersuite returns the engine's ciphersuite.
func (e *Engine) Ciphersuite() ciphersuite.Ciphersuite {
	return e.cs
}

// GroupPublicKey derives the encryption key for a group identity from the
// master public key: P_id = Y + H1(id)*Gamma.
func (e *Engine) GroupPublicKey(mpk *dkg.MasterPublicKey, gid *identity.GroupIdentity) (group.Element, error) {
	return keyissue.GroupPublicKey(e.cs, mpk, gid)
}

// Encrypt encrypts a record for a group.
//
// A fresh scalar u produces the encapsulation D = u*G and the shared secret
// Delta = u*P_id. The payload key derives from Delta via HKDF, salted by the
// encapsulation point and bound to the group identity; the AEAD layer
// additionally authenticates the group identity as associated data.
func (e *Engine) Encrypt(mpk *dkg.MasterPublicKey, gid *identity.GroupIdentity, plaintext []byte) (*Ciphertext, error) {
	groupPub, err := keyissue.GroupPublicKey(e.cs, mpk, gid)
	if err != nil {
		return nil, err
	}

	u, err := e.grp.RandomScalar()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}
	for u.IsZero() {
		if u, err = e.grp.RandomScalar(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
		}
	}

	encap := e.grp.ScalarBaseMult(u)
	delta := e.grp.ScalarMult(groupPub, u)

	key, err := e.payloadKey(delta, encap, gid.ID)
	if err != nil {
		return nil, err
	}

	sealed, err := aead.Seal(key, plaintext, []byte(gid.ID))
	aead.ZeroKey(key)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("encrypted %d bytes for group %s", len(plaintext), gid.ID)
	return &Ciphertext{
		GroupID:       gid.ID,
		Encapsulation: encap,
		Nonce:         sealed.Nonce,
		Tag:           sealed.Tag,
		Body:          sealed.Body,
	}, nil
}

// ShareDecrypt produces a member's partial decryption of a ciphertext:
// Lambda = psi_k * D, with a correctness proof bound to the ciphertext
// digest, the group identity, and the member index.
func (e *Engine) ShareDecrypt(share *keyissue.GroupKeyShare, ct *Ciphertext) (*DecryptionShare, error) {
	if err := ct.Validate(); err != nil {
		return nil, err
	}
	if share == nil || share.Psi == nil {
		return nil, ErrInvalidEncoding
	}
	if share.GroupID != ct.GroupID {
		return nil, fmt.Errorf("%w: share for %q, ciphertext for %q", ErrGroupMismatch, share.GroupID, ct.GroupID)
	}

	lambda := e.grp.ScalarMult(ct.Encapsulation, share.Psi)

	context, err := e.shareContext(ct, share.MemberIndex)
	if err != nil {
		return nil, err
	}
	vk := e.grp.ScalarBaseMult(share.Psi)
	p, err := proof.ProveShareCorrectness(e.cs, share.Psi, ct.Encapsulation, lambda, vk, context)
	if err != nil {
		return nil, err
	}

	return &DecryptionShare{
		GroupID:     ct.GroupID,
		MemberIndex: share.MemberIndex,
		Value:       lambda,
		Proof:       p,
	}, nil
}

// VerifyShare checks one decryption share against a member's published
// verification key and the ciphertext it claims to decrypt.
func (e *Engine) VerifyShare(ct *Ciphertext, share *DecryptionShare, verificationKey group.Element) error {
	if err := ct.Validate(); err != nil {
		return err
	}
	if share == nil || share.Value == nil || share.Proof == nil {
		return ErrInvalidEncoding
	}
	if share.GroupID != ct.GroupID {
		return fmt.Errorf("%w: share for %q, ciphertext for %q", ErrGroupMismatch, share.GroupID, ct.GroupID)
	}
	if verificationKey == nil {
		return ErrMissingVerificationKey
	}

	context, err := e.shareContext(ct, share.MemberIndex)
	if err != nil {
		return err
	}
	if !proof.VerifyShareCorrectness(e.cs, share.Proof, ct.Encapsulation, share.Value, verificationKey, context) {
		return &InvalidShareError{MemberIndex: share.MemberIndex, Reason: ErrProofVerificationFailed}
	}
	return nil
}

// Decrypt recovers a record from threshold-many proven decryption shares.
//
// Each share is verified against the member's verification key; invalid
// shares are dropped, not fatal, so a single corrupt member cannot block
// decryption while honest shares still meet the threshold. If fewer than
// gid.Threshold shares survive, the error unwraps to dkg.ErrBelowThreshold
// and carries the surviving count.
func (e *Engine) Decrypt(ct *Ciphertext, gid *identity.GroupIdentity, shares []*DecryptionShare, verificationKeys map[int]group.Element) ([]byte, error) {
	if err := ct.Validate(); err != nil {
		return nil, err
	}
	if err := gid.Validate(); err != nil {
		return nil, err
	}
	if ct.GroupID != gid.ID {
		return nil, fmt.Errorf("%w: ciphertext for %q, decrypting as %q", ErrGroupMismatch, ct.GroupID, gid.ID)
	}

	valid := make([]dkg.ElementShare, 0, len(shares))
	seen := make(map[int]bool, len(shares))
	for _, share := range shares {
		if share == nil || seen[share.MemberIndex] {
			continue
		}
		vk, ok := verificationKeys[share.MemberIndex]
		if !ok {
			e.logger.Error("dropping share from member %d: no verification key", share.MemberIndex)
			continue
		}
		if err := e.VerifyShare(ct, share, vk); err != nil {
			e.logger.Error("dropping share from member %d: %v", share.MemberIndex, err)
			continue
		}
		seen[share.MemberIndex] = true
		valid = append(valid, dkg.ElementShare{Index: share.MemberIndex, Value: share.Value})
	}

	delta, err := dkg.CombineElements(e.grp, valid, gid.Threshold)
	if err != nil {
		return nil, err
	}

	key, err := e.payloadKey(delta, ct.Encapsulation, gid.ID)
	if err != nil {
		return nil, err
	}
	defer aead.ZeroKey(key)

	plaintext, err := aead.Open(key, &aead.Sealed{Nonce: ct.Nonce, Tag: ct.Tag, Body: ct.Body}, []byte(gid.ID))
	if err != nil {
		return nil, err
	}

	e.logger.Debug("decrypted %d bytes for group %s from %d shares", len(plaintext), gid.ID, len(valid))
	return plaintext, nil
}

// payloadKey derives the AEAD key from the encapsulation secret.
func (e *Engine) payloadKey(delta, encap group.Element, groupID string) ([]byte, error) {
	deltaBytes, err := e.grp.SerializeElement(delta)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	encapBytes, err := e.grp.SerializeElement(encap)
	if err != nil {
		return nil, ErrInvalidEncoding
	}

	info := []byte(identity.DIBTDPrefix + identity.DomainKey + ":" + groupID)
	return aead.DeriveKey(deltaBytes, encapBytes, info)
}

// shareContext builds the proof context binding a decryption share to one
// ciphertext and member.
func (e *Engine) shareContext(ct *Ciphertext, memberIndex int) ([]byte, error) {
	digest, err := ct.Digest(e.cs)
	if err != nil {
		return nil, err
	}
	return append([]byte(fmt.Sprintf("decryption-share/%s/%d/", ct.GroupID, memberIndex)), digest...), nil
}
