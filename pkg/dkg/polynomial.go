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

// Polynomial represents a secret scalar polynomial over a prime-order group.
//
// A polynomial f of degree at most t-1 is represented by a list of t
// coefficients:
//
//	f(x) = coeffs[0] + coeffs[1]*x + ... + coeffs[t-1]*x^(t-1)
//
// The constant term coeffs[0] is the shared secret. A Polynomial is owned
// exclusively by the DKGC node that sampled it; only evaluations and
// coefficient commitments ever leave the owning node.
type Polynomial struct {
	coeffs []group.Scalar
	grp    group.Group
}

// NewRandomPolynomial samples a polynomial of degree t-1 with uniformly
// random coefficients, including a random constant term.
//
// Returns ErrInvalidThreshold if t < MinThreshold.
func NewRandomPolynomial(grp group.Group, t int) (*Polynomial, error) {
	if t < MinThreshold {
		return nil, ErrInvalidThreshold
	}

	coeffs := make([]group.Scalar, t)
	for i := 0; i < t; i++ {
		c, err := grp.RandomScalar()
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}

	return &Polynomial{coeffs: coeffs, grp: grp}, nil
}

// NewPolynomialWithConstant samples a polynomial of degree t-1 whose constant
// term is the given scalar and whose remaining coefficients are uniformly
// random. Used by the group key issuance resharing step, where a node deals
// out a fixed contribution under a fresh polynomial.
func NewPolynomialWithConstant(grp group.Group, t int, constant group.Scalar) (*Polynomial, error) {
	if t < MinThreshold {
		return nil, ErrInvalidThreshold
	}
	if constant == nil {
		return nil, ErrInvalidPolynomial
	}

	coeffs := make([]group.Scalar, t)
	coeffs[0] = constant.Copy()
	for i := 1; i < t; i++ {
		c, err := grp.RandomScalar()
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}

	return &Polynomial{coeffs: coeffs, grp: grp}, nil
}

// Zeroize clears the polynomial coefficients.
//
// SECURITY NOTE: Due to Go's type system, this cannot directly zero the
// memory holding scalar values; the group.Scalar interface does not expose
// internal byte storage. Coefficients are overwritten with zero scalars and
// then niled to make them GC-eligible.
func (p *Polynomial) Zeroize() {
	if p == nil {
		return
	}
	if p.grp != nil {
		zero := p.grp.NewScalar()
		for i := range p.coeffs {
			if p.coeffs[i] != nil {
				p.coeffs[i] = zero
			}
		}
	}
	for i := range p.coeffs {
		p.coeffs[i] = nil
	}
	p.coeffs = nil
}

// Threshold returns the threshold value t (the number of coefficients).
func (p *Polynomial) Threshold() int {
	return len(p.coeffs)
}

// Degree returns the degree of the polynomial (t-1).
func (p *Polynomial) Degree() int {
	return len(p.coeffs) - 1
}

// Eval evaluates the polynomial at the 1-based index using Horner's method:
//
//	f(x) = a0 + x(a1 + x(a2 + ... + x(a_{t-1})))
//
// Returns ErrInvalidParticipantIndex for index < 1. Index 0 is rejected
// because f(0) is the secret; use ConstantTerm for explicit access.
func (p *Polynomial) Eval(index int) (group.Scalar, error) {
	if index < 1 {
		return nil, ErrInvalidParticipantIndex
	}
	if len(p.coeffs) == 0 {
		return nil, ErrInvalidPolynomial
	}

	x := scalarFromInt(p.grp, index)
	value := p.grp.NewScalar()
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		value = value.Mul(x)
		value = value.Add(p.coeffs[i])
	}
	return value, nil
}

// ConstantTerm returns a copy of the constant term f(0), the shared secret.
func (p *Polynomial) ConstantTerm() group.Scalar {
	if len(p.coeffs) == 0 {
		return p.grp.NewScalar()
	}
	return p.coeffs[0].Copy()
}

// Commit returns the Feldman coefficient commitment to the polynomial:
// C_j = coeffs[j] * G for each coefficient.
func (p *Polynomial) Commit() *Commitment {
	elements := make([]group.Element, len(p.coeffs))
	for i, c := range p.coeffs {
		elements[i] = p.grp.ScalarBaseMult(c)
	}
	return &Commitment{Coefficients: elements}
}
