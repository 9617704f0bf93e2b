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

package dibtd

import (
	"encoding/binary"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
	"github.com/jeremyhahn/go-frost/pkg/frost/group"

	"github.com/jeremyhahn/go-dibtd/pkg/aead"
	"github.com/jeremyhahn/go-dibtd/pkg/identity"
	"github.com/jeremyhahn/go-dibtd/pkg/proof"
)

const encodingVersion = 1

// Ciphertext is an encrypted record bound to one group identity.
//
// Encapsulation is the point D = u*G; decrypting requires threshold-many
// partial decryptions psi_i*D. Nonce, Tag, and Body are the AEAD layer's
// split output, with the group identity bound as associated data.
type Ciphertext struct {
	GroupID       string
	Encapsulation group.Element
	Nonce         []byte
	Tag           []byte
	Body          []byte
}

// Validate checks the structural invariants: a non-identity encapsulation
// point, correctly sized nonce and tag, and a non-empty group identity.
func (c *Ciphertext) Validate() error {
	if c == nil || c.GroupID == "" {
		return ErrInvalidCiphertext
	}
	if c.Encapsulation == nil || c.Encapsulation.IsIdentity() {
		return ErrInvalidCiphertext
	}
	if len(c.Nonce) != aead.NonceSize || len(c.Tag) != aead.TagSize {
		return ErrInvalidCiphertext
	}
	return nil
}

// MarshalBinary serializes the ciphertext:
//
//	version(1) || D(elen) || nonce(12) || tag(16) ||
//	idlen(2, BE) || id || bodylen(4, BE) || body
func (c *Ciphertext) MarshalBinary(cs ciphersuite.Ciphersuite) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	grp := cs.Group()

	encap, err := grp.SerializeElement(c.Encapsulation)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	if len(c.GroupID) > 0xffff {
		return nil, ErrInvalidEncoding
	}

	out := make([]byte, 0, 1+len(encap)+aead.NonceSize+aead.TagSize+2+len(c.GroupID)+4+len(c.Body))
	out = append(out, encodingVersion)
	out = append(out, encap...)
	out = append(out, c.Nonce...)
	out = append(out, c.Tag...)
	out = binary.BigEndian.AppendUint16(out, uint16(len(c.GroupID)))
	out = append(out, c.GroupID...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(c.Body)))
	out = append(out, c.Body...)
	return out, nil
}

// UnmarshalCiphertext deserializes a ciphertext produced by MarshalBinary.
func UnmarshalCiphertext(cs ciphersuite.Ciphersuite, data []byte) (*Ciphertext, error) {
	grp := cs.Group()
	elen := grp.ElementLength()

	if len(data) < 1+elen+aead.NonceSize+aead.TagSize+2+4 {
		return nil, ErrInvalidEncoding
	}
	if data[0] != encodingVersion {
		return nil, ErrInvalidEncoding
	}
	rest := data[1:]

	encap, err := grp.DeserializeElement(rest[:elen])
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	rest = rest[elen:]

	nonce := append([]byte(nil), rest[:aead.NonceSize]...)
	rest = rest[aead.NonceSize:]
	tag := append([]byte(nil), rest[:aead.TagSize]...)
	rest = rest[aead.TagSize:]

	idLen := int(binary.BigEndian.Uint16(rest[:2]))
	rest = rest[2:]
	if len(rest) < idLen+4 {
		return nil, ErrInvalidEncoding
	}
	id := string(rest[:idLen])
	rest = rest[idLen:]

	bodyLen := int(binary.BigEndian.Uint32(rest[:4]))
	rest = rest[4:]
	if len(rest) != bodyLen {
		return nil, ErrInvalidEncoding
	}

	ct := &Ciphertext{
		GroupID:       id,
		Encapsulation: encap,
		Nonce:         nonce,
		Tag:           tag,
		Body:          append([]byte(nil), rest...),
	}
	if err := ct.Validate(); err != nil {
		return nil, err
	}
	return ct, nil
}

// Digest computes the ciphertext's binding digest: a hash over the full
// serialized ciphertext. Decryption share proofs carry it in their context,
// so a share produced for one ciphertext cannot be replayed against another.
func (c *Ciphertext) Digest(cs ciphersuite.Ciphersuite) ([]byte, error) {
	data, err := c.MarshalBinary(cs)
	if err != nil {
		return nil, err
	}
	return identity.HashToBytes(cs, identity.DomainCiphertext, data), nil
}

// DecryptionShare is one member's proven partial decryption of a ciphertext:
// Value = psi_k * D with a ShareCorrectness proof tying Value to the
// member's verification key and the specific ciphertext.
type DecryptionShare struct {
	GroupID     string
	MemberIndex int
	Value       group.Element
	Proof       *proof.Proof
}

// MarshalBinary serializes the decryption share:
//
//	version(1) || idlen(2, BE) || id || member(2, BE) ||
//	value(elen) || proof
func (s *DecryptionShare) MarshalBinary(cs ciphersuite.Ciphersuite) ([]byte, error) {
	if s == nil || s.GroupID == "" || s.Value == nil || s.Proof == nil {
		return nil, ErrInvalidEncoding
	}
	if len(s.GroupID) > 0xffff || s.MemberIndex < 1 || s.MemberIndex > 0xffff {
		return nil, ErrInvalidEncoding
	}
	grp := cs.Group()

	value, err := grp.SerializeElement(s.Value)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	proofBytes, err := s.Proof.ToBytes(cs)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 1+2+len(s.GroupID)+2+len(value)+len(proofBytes))
	out = append(out, encodingVersion)
	out = binary.BigEndian.AppendUint16(out, uint16(len(s.GroupID)))
	out = append(out, s.GroupID...)
	out = binary.BigEndian.AppendUint16(out, uint16(s.MemberIndex))
	out = append(out, value...)
	out = append(out, proofBytes...)
	return out, nil
}

// UnmarshalDecryptionShare deserializes a share produced by MarshalBinary.
func UnmarshalDecryptionShare(cs ciphersuite.Ciphersuite, data []byte) (*DecryptionShare, error) {
	grp := cs.Group()
	elen := grp.ElementLength()

	if len(data) < 1+2+2+elen {
		return nil, ErrInvalidEncoding
	}
	if data[0] != encodingVersion {
		return nil, ErrInvalidEncoding
	}
	rest := data[1:]

	idLen := int(binary.BigEndian.Uint16(rest[:2]))
	rest = rest[2:]
	if len(rest) < idLen+2+elen {
		return nil, ErrInvalidEncoding
	}
	id := string(rest[:idLen])
	rest = rest[idLen:]

	member := int(binary.BigEndian.Uint16(rest[:2]))
	rest = rest[2:]

	value, err := grp.DeserializeElement(rest[:elen])
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	rest = rest[elen:]

	p, err := proof.FromBytes(cs, rest)
	if err != nil {
		return nil, err
	}
	if p.Kind != proof.ShareCorrectness {
		return nil, proof.ErrWrongKind
	}
	if id == "" || member < 1 {
		return nil, ErrInvalidEncoding
	}

	return &DecryptionShare{
		GroupID:     id,
		MemberIndex: member,
		Value:       value,
		Proof:       p,
	}, nil
}
