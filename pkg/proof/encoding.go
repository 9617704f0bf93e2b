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
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
)

// ToBytes serializes the proof in a fixed-width layout:
//
//	KnowledgeOfExponent: kind(1) || R(elen) || S(slen)
//	ShareCorrectness:    kind(1) || R(elen) || R2(elen) || S(slen)
//
// where elen and slen are the ciphersuite's element and scalar lengths.
func (p *Proof) ToBytes(cs ciphersuite.Ciphersuite) ([]byte, error) {
	if p == nil || p.R == nil || p.S == nil {
		return nil, ErrInvalidProofEncoding
	}

	grp := cs.Group()

	out := make([]byte, 0, 1+2*grp.ElementLength()+grp.ScalarLength())
	out = append(out, byte(p.Kind))

	RBytes, err := grp.SerializeElement(p.R)
	if err != nil {
		return nil, err
	}
	out = append(out, RBytes...)

	switch p.Kind {
	case KnowledgeOfExponent:
		if p.R2 != nil {
			return nil, ErrInvalidProofEncoding
		}
	case ShareCorrectness:
		if p.R2 == nil {
			return nil, ErrInvalidProofEncoding
		}
		R2Bytes, err := grp.SerializeElement(p.R2)
		if err != nil {
			return nil, err
		}
		out = append(out, R2Bytes...)
	default:
		return nil, ErrUnknownKind
	}

	out = append(out, grp.SerializeScalar(p.S)...)
	return out, nil
}

// FromBytes deserializes a proof produced by ToBytes. All group encodings
// are validated; a proof carrying a non-canonical element or scalar is
// rejected with the group's decoding error.
func FromBytes(cs ciphersuite.Ciphersuite, data []byte) (*Proof, error) {
	grp := cs.Group()
	elen := grp.ElementLength()
	slen := grp.ScalarLength()

	if len(data) < 1 {
		return nil, ErrInvalidProofEncoding
	}

	kind := Kind(data[0])
	rest := data[1:]

	var want int
	switch kind {
	case KnowledgeOfExponent:
		want = elen + slen
	case ShareCorrectness:
		want = 2*elen + slen
	default:
		return nil, ErrUnknownKind
	}
	if len(rest) != want {
		return nil, ErrInvalidProofEncoding
	}

	R, err := grp.DeserializeElement(rest[:elen])
	if err != nil {
		return nil, err
	}
	rest = rest[elen:]

	p := &Proof{Kind: kind, R: R}

	if kind == ShareCorrectness {
		R2, err := grp.DeserializeElement(rest[:elen])
		if err != nil {
			return nil, err
		}
		p.R2 = R2
		rest = rest[elen:]
	}

	s, err := grp.DeserializeScalar(rest)
	if err != nil {
		return nil, err
	}
	p.S = s

	return p, nil
}
