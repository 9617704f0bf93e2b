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
	"fmt"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"

	"github.com/jeremyhahn/go-dibtd/pkg/dkg"
	"github.com/jeremyhahn/go-dibtd/pkg/proof"
)

// EncodeAnnouncement converts a ceremony announcement to its wire form.
func EncodeAnnouncement(cs ciphersuite.Ciphersuite, a *dkg.Announcement) (*AnnounceMessage, error) {
	if a == nil {
		return nil, ErrInvalidMessage
	}
	grp := cs.Group()

	commitS, err := a.CommitmentS.ToBytes(grp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	commitZ, err := a.CommitmentZ.ToBytes(grp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	proofS, err := a.ProofS.ToBytes(cs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	proofZ, err := a.ProofZ.ToBytes(cs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	return &AnnounceMessage{
		Index:       a.Index,
		CommitmentS: commitS,
		CommitmentZ: commitZ,
		ProofS:      proofS,
		ProofZ:      proofZ,
	}, nil
}

// DecodeAnnouncement converts a wire announcement back to protocol form.
// threshold is the expected commitment degree; mismatches are rejected
// before any group decoding.
func DecodeAnnouncement(cs ciphersuite.Ciphersuite, threshold int, msg *AnnounceMessage) (*dkg.Announcement, error) {
	if msg == nil {
		return nil, ErrInvalidMessage
	}
	grp := cs.Group()

	commitS, err := dkg.CommitmentFromBytes(grp, msg.CommitmentS, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	commitZ, err := dkg.CommitmentFromBytes(grp, msg.CommitmentZ, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	proofS, err := proof.FromBytes(cs, msg.ProofS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	proofZ, err := proof.FromBytes(cs, msg.ProofZ)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	return &dkg.Announcement{
		Index:       msg.Index,
		CommitmentS: commitS,
		CommitmentZ: commitZ,
		ProofS:      proofS,
		ProofZ:      proofZ,
	}, nil
}

// EncodeCeremonyShare converts a dealt ceremony share to its wire form.
func EncodeCeremonyShare(cs ciphersuite.Ciphersuite, m *dkg.ShareMessage) (*CeremonyShareMessage, error) {
	if m == nil || m.EvalS == nil || m.EvalZ == nil {
		return nil, ErrInvalidMessage
	}
	grp := cs.Group()

	return &CeremonyShareMessage{
		From:  m.From,
		To:    m.To,
		EvalS: grp.SerializeScalar(m.EvalS),
		EvalZ: grp.SerializeScalar(m.EvalZ),
	}, nil
}

// DecodeCeremonyShare converts a wire ceremony share back to protocol form.
func DecodeCeremonyShare(cs ciphersuite.Ciphersuite, msg *CeremonyShareMessage) (*dkg.ShareMessage, error) {
	if msg == nil {
		return nil, ErrInvalidMessage
	}
	grp := cs.Group()

	evalS, err := grp.DeserializeScalar(msg.EvalS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	evalZ, err := grp.DeserializeScalar(msg.EvalZ)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	return &dkg.ShareMessage{
		From:  msg.From,
		To:    msg.To,
		EvalS: evalS,
		EvalZ: evalZ,
	}, nil
}
