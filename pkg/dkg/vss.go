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

package dkg

import (
	"crypto/subtle"

	"github.com/jeremyhahn/go-frost/pkg/frost/group"
)

// Commitment is a Feldman commitment to a secret polynomial: a vector of
// group elements C_j = coeffs[j] * G, one per coefficient.
//
// Publishing the commitment lets every peer verify its private share
// evaluation against public data without learning the polynomial:
//
//	share * G == C_0 + index*C_1 + index^2*C_2 + ... + index^(t-1)*C_(t-1)
type Commitment struct {
	Coefficients []group.Element
}

// Threshold returns the threshold value t (the number of coefficients).
func (c *Commitment) Threshold() int {
	return len(c.Coefficients)
}

// SecretCommitment returns C_0, the commitment to the polynomial's constant
// term. This is the public key of the shared secret contribution.
func (c *Commitment) SecretCommitment() group.Element {
	if len(c.Coefficients) == 0 {
		return nil
	}
	return c.Coefficients[0].Copy()
}

// Evaluate computes the public image of the polynomial evaluation at the
// given 1-based index:
//
//	Evaluate(i) = sum_j (i^j * C_j) = f(i) * G
//
// This is the value a share evaluation must match during verification.
func (c *Commitment) Evaluate(grp group.Group, index int) (group.Element, error) {
	if index < 1 {
		return nil, ErrInvalidParticipantIndex
	}

	x := scalarFromInt(grp, index)
	result := grp.Identity()
	xPower := scalarFromInt(grp, 1)

	for j := 0; j < len(c.Coefficients); j++ {
		term := grp.ScalarMult(c.Coefficients[j], xPower)
		result = result.Add(term)
		if j < len(c.Coefficients)-1 {
			xPower = xPower.Mul(x)
		}
	}

	return result, nil
}

// VerifyShare verifies a private share evaluation against a public image
// obtained from Evaluate.
//
// Verification checks share * G == expected using constant-time comparison
// to prevent timing side channels.
func VerifyShare(grp group.Group, share group.Scalar, expected group.Element) bool {
	actual := grp.ScalarBaseMult(share)

	actualBytes, err := grp.SerializeElement(actual)
	if err != nil {
		return false
	}
	expectedBytes, err := grp.SerializeElement(expected)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(actualBytes, expectedBytes) == 1
}

// Add combines two commitments element-wise. The sum of two nodes'
// commitments is the commitment to the sum of their polynomials.
//
// Returns ErrMismatchedThreshold if the thresholds differ.
func (c *Commitment) Add(other *Commitment) (*Commitment, error) {
	if c.Threshold() != other.Threshold() {
		return nil, ErrMismatchedThreshold
	}

	elements := make([]group.Element, len(c.Coefficients))
	for i := range c.Coefficients {
		elements[i] = c.Coefficients[i].Add(other.Coefficients[i])
	}
	return &Commitment{Coefficients: elements}, nil
}

// Equal compares two commitments using constant-time element comparison.
func (c *Commitment) Equal(grp group.Group, other *Commitment) bool {
	if len(c.Coefficients) != len(other.Coefficients) {
		return false
	}
	equal := 1
	for i := range c.Coefficients {
		aBytes, err := grp.SerializeElement(c.Coefficients[i])
		if err != nil {
			return false
		}
		bBytes, err := grp.SerializeElement(other.Coefficients[i])
		if err != nil {
			return false
		}
		equal &= subtle.ConstantTimeCompare(aBytes, bBytes)
	}
	return equal == 1
}

// ToBytes serializes the commitment as the concatenation of all group
// elements in compressed form. The total length is t * element_length bytes.
// Identity elements serialize as all zeros.
func (c *Commitment) ToBytes(grp group.Group) ([]byte, error) {
	result := make([]byte, 0, len(c.Coefficients)*grp.ElementLength())

	for _, ge := range c.Coefficients {
		var elemBytes []byte
		if ge.IsIdentity() {
			elemBytes = make([]byte, grp.ElementLength())
		} else {
			var err error
			elemBytes, err = grp.SerializeElement(ge)
			if err != nil {
				return nil, err
			}
		}
		result = append(result, elemBytes...)
	}

	return result, nil
}

// CommitmentFromBytes deserializes a commitment with exactly t coefficients.
//
// All-zero encodings deserialize to the identity element, matching ToBytes.
// Returns ErrInvalidCommitmentLength if the input length does not equal
// t * element_length.
func CommitmentFromBytes(grp group.Group, b []byte, t int) (*Commitment, error) {
	elemLen := grp.ElementLength()
	if len(b) != t*elemLen {
		return nil, ErrInvalidCommitmentLength
	}

	elements := make([]group.Element, t)
	for i := 0; i < t; i++ {
		elemBytes := b[i*elemLen : (i+1)*elemLen]

		isZero := true
		for _, by := range elemBytes {
			if by != 0 {
				isZero = false
				break
			}
		}

		if isZero {
			elements[i] = grp.Identity()
		} else {
			elem, err := grp.DeserializeElement(elemBytes)
			if err != nil {
				return nil, err
			}
			elements[i] = elem
		}
	}

	return &Commitment{Coefficients: elements}, nil
}
