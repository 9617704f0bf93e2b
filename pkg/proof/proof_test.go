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

package proof

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/ed25519_sha512"
)

func TestKnowledgeOfExponent(t *testing.T) {
	cs := ed25519_sha512.New()
	grp := cs.Group()

	secret, err := grp.RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	public := grp.ScalarBaseMult(secret)
	context := []byte("dkg-commitment-pop/node-3")

	t.Run("ProveAndVerify", func(t *testing.T) {
		p, err := ProveKnowledge(cs, secret, public, context)
		if err != nil {
			t.Fatalf("ProveKnowledge failed: %v", err)
		}
		if p.Kind != KnowledgeOfExponent {
			t.Errorf("expected kind %d, got %d", KnowledgeOfExponent, p.Kind)
		}
		if p.R2 != nil {
			t.Error("expected nil R2 for knowledge proof")
		}
		if !VerifyKnowledge(cs, public, p, context) {
			t.Error("valid proof failed verification")
		}
	})

	t.Run("WrongPublic", func(t *testing.T) {
		p, err := ProveKnowledge(cs, secret, public, context)
		if err != nil {
			t.Fatalf("ProveKnowledge failed: %v", err)
		}
		other, err := grp.RandomScalar()
		if err != nil {
			t.Fatalf("RandomScalar failed: %v", err)
		}
		if VerifyKnowledge(cs, grp.ScalarBaseMult(other), p, context) {
			t.Error("proof verified against wrong public key")
		}
	})

	t.Run("WrongContext", func(t *testing.T) {
		p, err := ProveKnowledge(cs, secret, public, context)
		if err != nil {
			t.Fatalf("ProveKnowledge failed: %v", err)
		}
		if VerifyKnowledge(cs, public, p, []byte("dkg-commitment-pop/node-4")) {
			t.Error("proof verified under a different context")
		}
	})

	t.Run("TamperedResponse", func(t *testing.T) {
		p, err := ProveKnowledge(cs, secret, public, context)
		if err != nil {
			t.Fatalf("ProveKnowledge failed: %v", err)
		}
		one, err := grp.RandomScalar()
		if err != nil {
			t.Fatalf("RandomScalar failed: %v", err)
		}
		p.S = p.S.Add(one)
		if VerifyKnowledge(cs, public, p, context) {
			t.Error("tampered proof passed verification")
		}
	})

	t.Run("NilProof", func(t *testing.T) {
		if VerifyKnowledge(cs, public, nil, context) {
			t.Error("nil proof passed verification")
		}
	})
}

func TestShareCorrectness(t *testing.T) {
	cs := ed25519_sha512.New()
	grp := cs.Group()

	psi, err := grp.RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	u, err := grp.RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}

	base := grp.ScalarBaseMult(u)          // encapsulation point D
	lambda := grp.ScalarMult(base, psi)    // partial decryption
	vk := grp.ScalarBaseMult(psi)          // verification key
	context := []byte("decryption-share/group-cardiology/member-2")

	t.Run("ProveAndVerify", func(t *testing.T) {
		p, err := ProveShareCorrectness(cs, psi, base, lambda, vk, context)
		if err != nil {
			t.Fatalf("ProveShareCorrectness failed: %v", err)
		}
		if p.Kind != ShareCorrectness {
			t.Errorf("expected kind %d, got %d", ShareCorrectness, p.Kind)
		}
		if !VerifyShareCorrectness(cs, p, base, lambda, vk, context) {
			t.Error("valid proof failed verification")
		}
	})

	t.Run("WrongShareValue", func(t *testing.T) {
		p, err := ProveShareCorrectness(cs, psi, base, lambda, vk, context)
		if err != nil {
			t.Fatalf("ProveShareCorrectness failed: %v", err)
		}
		// A share computed with the wrong exponent must not verify.
		wrong, err := grp.RandomScalar()
		if err != nil {
			t.Fatalf("RandomScalar failed: %v", err)
		}
		if VerifyShareCorrectness(cs, p, base, grp.ScalarMult(base, wrong), vk, context) {
			t.Error("proof verified against a forged share value")
		}
	})

	t.Run("WrongVerificationKey", func(t *testing.T) {
		p, err := ProveShareCorrectness(cs, psi, base, lambda, vk, context)
		if err != nil {
			t.Fatalf("ProveShareCorrectness failed: %v", err)
		}
		wrong, err := grp.RandomScalar()
		if err != nil {
			t.Fatalf("RandomScalar failed: %v", err)
		}
		if VerifyShareCorrectness(cs, p, base, lambda, grp.ScalarBaseMult(wrong), context) {
			t.Error("proof verified against the wrong verification key")
		}
	})

	t.Run("WrongBase", func(t *testing.T) {
		p, err := ProveShareCorrectness(cs, psi, base, lambda, vk, context)
		if err != nil {
			t.Fatalf("ProveShareCorrectness failed: %v", err)
		}
		v, err := grp.RandomScalar()
		if err != nil {
			t.Fatalf("RandomScalar failed: %v", err)
		}
		if VerifyShareCorrectness(cs, p, grp.ScalarBaseMult(v), lambda, vk, context) {
			t.Error("proof verified against a different encapsulation point")
		}
	})

	t.Run("ReplayedContext", func(t *testing.T) {
		p, err := ProveShareCorrectness(cs, psi, base, lambda, vk, context)
		if err != nil {
			t.Fatalf("ProveShareCorrectness failed: %v", err)
		}
		if VerifyShareCorrectness(cs, p, base, lambda, vk, []byte("decryption-share/group-oncology/member-2")) {
			t.Error("proof replayed under a different context")
		}
	})

	t.Run("KindConfusion", func(t *testing.T) {
		// A knowledge proof must not pass as a share-correctness proof even
		// over compatible elements.
		p, err := ProveKnowledge(cs, psi, vk, context)
		if err != nil {
			t.Fatalf("ProveKnowledge failed: %v", err)
		}
		if VerifyShareCorrectness(cs, p, base, lambda, vk, context) {
			t.Error("knowledge proof accepted as share-correctness proof")
		}
	})

	t.Run("FreshNonces", func(t *testing.T) {
		p1, err := ProveShareCorrectness(cs, psi, base, lambda, vk, context)
		if err != nil {
			t.Fatalf("ProveShareCorrectness failed: %v", err)
		}
		p2, err := ProveShareCorrectness(cs, psi, base, lambda, vk, context)
		if err != nil {
			t.Fatalf("ProveShareCorrectness failed: %v", err)
		}
		if p1.R.Equal(p2.R) {
			t.Error("two proofs over the same statement reused a nonce")
		}
	})
}

func TestProofEncoding(t *testing.T) {
	cs := ed25519_sha512.New()
	grp := cs.Group()

	secret, err := grp.RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	public := grp.ScalarBaseMult(secret)
	context := []byte("encoding-test")

	t.Run("KnowledgeRoundTrip", func(t *testing.T) {
		p, err := ProveKnowledge(cs, secret, public, context)
		if err != nil {
			t.Fatalf("ProveKnowledge failed: %v", err)
		}
		data, err := p.ToBytes(cs)
		if err != nil {
			t.Fatalf("ToBytes failed: %v", err)
		}
		if len(data) != 1+grp.ElementLength()+grp.ScalarLength() {
			t.Errorf("unexpected encoding length %d", len(data))
		}
		decoded, err := FromBytes(cs, data)
		if err != nil {
			t.Fatalf("FromBytes failed: %v", err)
		}
		if !VerifyKnowledge(cs, public, decoded, context) {
			t.Error("decoded proof failed verification")
		}
	})

	t.Run("ShareCorrectnessRoundTrip", func(t *testing.T) {
		u, err := grp.RandomScalar()
		if err != nil {
			t.Fatalf("RandomScalar failed: %v", err)
		}
		base := grp.ScalarBaseMult(u)
		lambda := grp.ScalarMult(base, secret)

		p, err := ProveShareCorrectness(cs, secret, base, lambda, public, context)
		if err != nil {
			t.Fatalf("ProveShareCorrectness failed: %v", err)
		}
		data, err := p.ToBytes(cs)
		if err != nil {
			t.Fatalf("ToBytes failed: %v", err)
		}
		decoded, err := FromBytes(cs, data)
		if err != nil {
			t.Fatalf("FromBytes failed: %v", err)
		}
		if !VerifyShareCorrectness(cs, decoded, base, lambda, public, context) {
			t.Error("decoded proof failed verification")
		}

		reencoded, err := decoded.ToBytes(cs)
		if err != nil {
			t.Fatalf("re-encoding failed: %v", err)
		}
		if !bytes.Equal(data, reencoded) {
			t.Error("encoding is not canonical")
		}
	})

	t.Run("UnknownKind", func(t *testing.T) {
		p, err := ProveKnowledge(cs, secret, public, context)
		if err != nil {
			t.Fatalf("ProveKnowledge failed: %v", err)
		}
		data, err := p.ToBytes(cs)
		if err != nil {
			t.Fatalf("ToBytes failed: %v", err)
		}
		data[0] = 0xff
		if _, err := FromBytes(cs, data); !errors.Is(err, ErrUnknownKind) {
			t.Errorf("expected ErrUnknownKind, got %v", err)
		}
	})

	t.Run("TruncatedInput", func(t *testing.T) {
		p, err := ProveKnowledge(cs, secret, public, context)
		if err != nil {
			t.Fatalf("ProveKnowledge failed: %v", err)
		}
		data, err := p.ToBytes(cs)
		if err != nil {
			t.Fatalf("ToBytes failed: %v", err)
		}
		if _, err := FromBytes(cs, data[:len(data)-1]); !errors.Is(err, ErrInvalidProofEncoding) {
			t.Errorf("expected ErrInvalidProofEncoding, got %v", err)
		}
		if _, err := FromBytes(cs, nil); !errors.Is(err, ErrInvalidProofEncoding) {
			t.Errorf("expected ErrInvalidProofEncoding for empty input, got %v", err)
		}
	})
}
