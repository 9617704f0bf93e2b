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

// Package identity provides deterministic hash-to-scalar mapping and the
// group identity type used to derive per-group keys.
//
// Every use site carries its own domain separation tag so that an output
// produced for one purpose (identity hashing, proof challenges, key
// derivation) can never be replayed as a valid input to another.
package identity

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
	"github.com/jeremyhahn/go-frost/pkg/frost/group"
)

// Domain separation prefix for all DIBTD hashing.
const DIBTDPrefix = "DIBTD/"

// Domain separation tags for the fixed hash use sites.
const (
	// DomainIdentity derives per-group identity scalars from group ids.
	DomainIdentity = "identity"

	// DomainChallenge derives Fiat-Shamir challenges in the proof subsystem.
	DomainChallenge = "challenge"

	// DomainKey feeds the symmetric key derivation step.
	DomainKey = "key"

	// DomainCiphertext digests ciphertexts for proof context binding.
	DomainCiphertext = "ciphertext"
)

var (
	// ErrInvalidGroupIdentity indicates a group identity violating
	// 1 <= threshold <= members or carrying an empty id.
	ErrInvalidGroupIdentity = errors.New("identity: invalid group identity")
)

// GroupIdentity names a group of record consumers (for example a hospital
// department) together with its decryption threshold.
//
// Invariant: 1 <= Threshold <= Members.
type GroupIdentity struct {
	// ID is the identity string the group's keys are derived from.
	ID string `json:"id" msgpack:"id" cbor:"1,keyasint" yaml:"id" bson:"id"`

	// Threshold is the number of members whose decryption shares are
	// required to decrypt a record (t_g).
	Threshold int `json:"threshold" msgpack:"threshold" cbor:"2,keyasint" yaml:"threshold" bson:"threshold"`

	// Members is the total number of members keys are issued to (m).
	Members int `json:"members" msgpack:"members" cbor:"3,keyasint" yaml:"members" bson:"members"`
}

// Validate checks the group identity invariant.
func (g *GroupIdentity) Validate() error {
	if g == nil || g.ID == "" {
		return ErrInvalidGroupIdentity
	}
	if g.Threshold < 1 || g.Threshold > g.Members {
		return fmt.Errorf("%w: threshold %d, members %d", ErrInvalidGroupIdentity, g.Threshold, g.Members)
	}
	return nil
}

// HashToScalar maps arbitrary bytes to a non-zero field scalar.
//
// The input is hashed through the ciphersuite's hash-to-scalar function
// under "DIBTD/" + domain. On the negligible-probability event of a zero
// result, hashing retries with a 4-byte big-endian counter suffix until a
// non-zero scalar is produced. Deterministic: the same domain and data
// always yield the same scalar.
func HashToScalar(cs ciphersuite.Ciphersuite, domain string, data []byte) group.Scalar {
	input := make([]byte, 0, len(DIBTDPrefix)+len(domain)+1+len(data)+4)
	input = append(input, DIBTDPrefix...)
	input = append(input, domain...)
	input = append(input, ':')
	input = append(input, data...)

	scalar := cs.H3(input)
	for ctr := uint32(0); scalar.IsZero(); ctr++ {
		suffixed := make([]byte, len(input)+4)
		copy(suffixed, input)
		binary.BigEndian.PutUint32(suffixed[len(input):], ctr)
		scalar = cs.H3(suffixed)
	}
	return scalar
}

// HashToBytes maps arbitrary bytes to a fixed-length digest through the
// ciphersuite's byte-oriented hash, under "DIBTD/" + domain.
func HashToBytes(cs ciphersuite.Ciphersuite, domain string, data []byte) []byte {
	input := make([]byte, 0, len(DIBTDPrefix)+len(domain)+1+len(data))
	input = append(input, DIBTDPrefix...)
	input = append(input, domain...)
	input = append(input, ':')
	input = append(input, data...)
	return cs.H4(input)
}

// Scalar derives the identity scalar H1(id) for a group id.
func Scalar(cs ciphersuite.Ciphersuite, id string) group.Scalar {
	return HashToScalar(cs, DomainIdentity, []byte(id))
}
