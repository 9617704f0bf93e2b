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
	"github.com/jeremyhahn/go-frost/pkg/frost/group"
)

// ScalarShare pairs a 1-based share index with a scalar evaluation.
type ScalarShare struct {
	Index int
	Value group.Scalar
}

// ElementShare pairs a 1-based share index with a group element. Element
// shares arise when a secret share is only available in the exponent, such
// as the partial decryption values Lambda_i = psi_i * D.
type ElementShare struct {
	Index int
	Value group.Element
}

// LagrangeCoefficient computes the Lagrange basis coefficient for the share
// at targetIndex when interpolating at x = 0:
//
//	L_i(0) = product((0 - x_j) / (x_i - x_j)) for all j != i
//
// Interpolating at 0 recovers the polynomial's constant term, the secret.
//
// Errors:
//   - ErrInvalidParticipantIndex: targetIndex is not a member of indices
//   - ErrZeroScalar: duplicate indices produce a zero denominator
func LagrangeCoefficient(grp group.Group, indices []int, targetIndex int) (group.Scalar, error) {
	found := false
	for _, idx := range indices {
		if idx == targetIndex {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrInvalidParticipantIndex
	}

	xi := scalarFromInt(grp, targetIndex)
	zero := grp.NewScalar()

	numerator := scalarFromInt(grp, 1)
	denominator := scalarFromInt(grp, 1)

	for _, idx := range indices {
		if idx == targetIndex {
			continue
		}
		xj := scalarFromInt(grp, idx)

		// numerator *= (0 - xj)
		numerator = numerator.Mul(zero.Sub(xj))

		// denominator *= (xi - xj)
		denominator = denominator.Mul(xi.Sub(xj))
	}

	if denominator.Equal(zero) {
		return nil, ErrZeroScalar
	}

	denominatorInv, err := denominator.Inv()
	if err != nil {
		return nil, ErrZeroScalar
	}

	return numerator.Mul(denominatorInv), nil
}

// CombineScalars reconstructs the constant term of the underlying polynomial
// from scalar shares via Lagrange interpolation at 0:
//
//	secret = sum(value_i * L_i(0))
//
// All provided shares participate in the combination; the set must contain
// at least threshold distinct indices. Combination is commutative, so share
// order is irrelevant.
//
// Errors:
//   - ErrBelowThreshold (ThresholdViolationError): len(shares) < threshold
//   - ErrDuplicateIndex: two shares carry the same index
func CombineScalars(grp group.Group, shares []ScalarShare, threshold int) (group.Scalar, error) {
	indices, err := shareIndices(len(shares), threshold, func(i int) int { return shares[i].Index })
	if err != nil {
		return nil, err
	}

	result := grp.NewScalar()
	for _, sh := range shares {
		coeff, err := LagrangeCoefficient(grp, indices, sh.Index)
		if err != nil {
			return nil, err
		}
		result = result.Add(sh.Value.Mul(coeff))
	}

	return result, nil
}

// CombineElements reconstructs a secret-in-the-exponent from element shares
// via Lagrange interpolation at 0:
//
//	S = sum(L_i(0) * V_i)
//
// This is the same algebra as CombineScalars lifted into the group, used to
// recover the encapsulation secret Delta from partial decryption values.
func CombineElements(grp group.Group, shares []ElementShare, threshold int) (group.Element, error) {
	indices, err := shareIndices(len(shares), threshold, func(i int) int { return shares[i].Index })
	if err != nil {
		return nil, err
	}

	result := grp.Identity()
	for _, sh := range shares {
		coeff, err := LagrangeCoefficient(grp, indices, sh.Index)
		if err != nil {
			return nil, err
		}
		result = result.Add(grp.ScalarMult(sh.Value, coeff))
	}

	return result, nil
}

// shareIndices validates a share set and collects its indices.
func shareIndices(n, threshold int, indexAt func(int) int) ([]int, error) {
	if n < threshold {
		return nil, &ThresholdViolationError{Got: n, Need: threshold}
	}

	seen := make(map[int]bool, n)
	indices := make([]int, n)
	for i := 0; i < n; i++ {
		idx := indexAt(i)
		if idx < 1 {
			return nil, ErrInvalidParticipantIndex
		}
		if seen[idx] {
			return nil, ErrDuplicateIndex
		}
		seen[idx] = true
		indices[i] = idx
	}

	return indices, nil
}
