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

// Package keyissue derives identity-based group decryption keys from DKGC
// master key shares and reshards them to group members.
//
// The group secret for identity id is s + H1(id)*z, where (s, z) is the dual
// master secret. No single party may materialize it, so issuance runs as a
// distributed resharing: each of at least t DKGC nodes derives its share
// psi_i = S_i + H1(id)*Z_i of the group secret, weights it by its Lagrange
// coefficient over the participating quorum, and deals the weighted value
// out under a fresh polynomial of degree t_g - 1. A member sums the
// subshares it receives from every dealer; because the Lagrange weights sum
// the dealt constants to the group secret, the summed subshares form a
// (t_g, m) sharing of it. The group secret itself appears nowhere.
package keyissue

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
	"github.com/jeremyhahn/go-frost/pkg/frost/group"

	"github.com/jeremyhahn/go-dibtd/pkg/dkg"
	"github.com/jeremyhahn/go-dibtd/pkg/identity"
)

var (
	// ErrQuorumTooSmall indicates fewer participating DKGC nodes than the
	// master threshold requires.
	ErrQuorumTooSmall = errors.New("keyissue: issuance quorum below master threshold")

	// ErrDealerNotInQuorum indicates a dealer index absent from the quorum.
	ErrDealerNotInQuorum = errors.New("keyissue: dealer not in quorum")

	// ErrInvalidSubShare indicates a subshare that does not match the
	// dealer's published commitment.
	ErrInvalidSubShare = errors.New("keyissue: subshare does not match dealer commitment")

	// ErrInvalidDealerCommitment indicates a dealer commitment whose
	// constant term does not match the dealer's weighted verification key.
	ErrInvalidDealerCommitment = errors.New("keyissue: dealer commitment does not match weighted verification key")

	// ErrInconsistentGroupKey indicates that the dealer commitments do not
	// sum to the expected group public key.
	ErrInconsistentGroupKey = errors.New("keyissue: dealer commitments inconsistent with group public key")

	// ErrMissingDealer indicates a subshare without a matching commitment
	// or vice versa.
	ErrMissingDealer = errors.New("keyissue: missing dealer contribution")

	// ErrInvalidMemberIndex indicates a member index outside 1..m.
	ErrInvalidMemberIndex = errors.New("keyissue: invalid member index")
)

// GroupKeyShare is one member's share of a group's decryption key.
//
// Psi is the member's evaluation of the summed resharing polynomials;
// VerificationKey is its public image Psi*G, published so decryption share
// proofs can be checked against it.
type GroupKeyShare struct {
	GroupID         string
	MemberIndex     int
	Threshold       int
	Psi             group.Scalar
	VerificationKey group.Element
}

// Zeroize clears the private share scalar.
func (s *GroupKeyShare) Zeroize() {
	if s == nil {
		return
	}
	s.Psi = nil
}

// DeriveNodeGroupShare computes a DKGC node's share of the group secret for
// the given identity: psi_i = S_i + H1(id)*Z_i.
//
// Because S_i and Z_i are evaluations of the master polynomials at the same
// index, psi_i is an evaluation of f_s + H1(id)*f_z, a degree t-1 polynomial
// whose constant term is the group secret.
func DeriveNodeGroupShare(cs ciphersuite.Ciphersuite, share *dkg.MasterKeyShare, gid *identity.GroupIdentity) (group.Scalar, error) {
	if err := gid.Validate(); err != nil {
		return nil, err
	}
	if share == nil || share.S == nil || share.Z == nil {
		return nil, fmt.Errorf("keyissue: nil master key share")
	}
	h := identity.Scalar(cs, gid.ID)
	return share.S.Add(h.Mul(share.Z)), nil
}

// NodeVerificationKey computes the public image psi_i*G of a node's group
// share from the ceremony's summed commitments, without any private data:
//
//	psi_i*G = CS(i) + H1(id)*CZ(i)
func NodeVerificationKey(cs ciphersuite.Ciphersuite, commitS, commitZ *dkg.Commitment, gid *identity.GroupIdentity, index int) (group.Element, error) {
	if err := gid.Validate(); err != nil {
		return nil, err
	}
	grp := cs.Group()

	imgS, err := commitS.Evaluate(grp, index)
	if err != nil {
		return nil, err
	}
	imgZ, err := commitZ.Evaluate(grp, index)
	if err != nil {
		return nil, err
	}

	h := identity.Scalar(cs, gid.ID)
	return imgS.Add(grp.ScalarMult(imgZ, h)), nil
}

// GroupPublicKey computes the public key of the group secret from the master
// public key: P_id = Y + H1(id)*Gamma.
func GroupPublicKey(cs ciphersuite.Ciphersuite, mpk *dkg.MasterPublicKey, gid *identity.GroupIdentity) (group.Element, error) {
	if err := gid.Validate(); err != nil {
		return nil, err
	}
	grp := cs.Group()
	h := identity.Scalar(cs, gid.ID)
	return mpk.Y.Add(grp.ScalarMult(mpk.Gamma, h)), nil
}

// Dealer is one DKGC node's view of an issuance session for a single group.
//
// The dealer weights its group share by its Lagrange coefficient over the
// quorum and deals the result under a fresh polynomial of degree
// gid.Threshold - 1. Dealers are single-use; Zeroize after dealing.
type Dealer struct {
	cs         ciphersuite.Ciphersuite
	grp        group.Group
	nodeIndex  int
	gid        *identity.GroupIdentity
	poly       *dkg.Polynomial
	commitment *dkg.Commitment
}

// NewDealer prepares an issuance dealing. quorum lists the 1-based indices
// of the DKGC nodes participating in this issuance, which must include the
// dealer's own index and contain at least mpkThreshold members.
func NewDealer(cs ciphersuite.Ciphersuite, share *dkg.MasterKeyShare, quorum []int, mpkThreshold int, gid *identity.GroupIdentity) (*Dealer, error) {
	if err := gid.Validate(); err != nil {
		return nil, err
	}
	if len(quorum) < mpkThreshold {
		return nil, fmt.Errorf("%w: %d of %d", ErrQuorumTooSmall, len(quorum), mpkThreshold)
	}
	inQuorum := false
	for _, idx := range quorum {
		if idx == share.Index {
			inQuorum = true
			break
		}
	}
	if !inQuorum {
		return nil, fmt.Errorf("%w: index %d", ErrDealerNotInQuorum, share.Index)
	}

	grp := cs.Group()

	psi, err := DeriveNodeGroupShare(cs, share, gid)
	if err != nil {
		return nil, err
	}

	lambda, err := dkg.LagrangeCoefficient(grp, quorum, share.Index)
	if err != nil {
		return nil, err
	}

	// The dealt constant is this node's additive slice of the group secret.
	constant := lambda.Mul(psi)
	poly, err := dkg.NewPolynomialWithConstant(grp, gid.Threshold, constant)
	if err != nil {
		return nil, err
	}

	return &Dealer{
		cs:         cs,
		grp:        grp,
		nodeIndex:  share.Index,
		gid:        gid,
		poly:       poly,
		commitment: poly.Commit(),
	}, nil
}

// NodeIndex returns the dealing node's 1-based DKGC index.
func (d *Dealer) NodeIndex() int {
	return d.nodeIndex
}

// Commitment returns the Feldman commitment to the dealing polynomial for
// broadcast to all members.
func (d *Dealer) Commitment() *dkg.Commitment {
	return d.commitment
}

// SubShare evaluates the dealing polynomial for one member. The value must
// travel to that member over a confidential channel.
func (d *Dealer) SubShare(memberIndex int) (group.Scalar, error) {
	if memberIndex < 1 || memberIndex > d.gid.Members {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidMemberIndex, memberIndex, d.gid.Members)
	}
	return d.poly.Eval(memberIndex)
}

// Zeroize clears the dealing polynomial.
func (d *Dealer) Zeroize() {
	if d == nil {
		return
	}
	d.poly.Zeroize()
}

// VerifyDealerCommitment checks a dealer's broadcast commitment against the
// ceremony's public data: the constant-term commitment must equal
// lambda_i * (psi_i*G), where psi_i*G derives from the summed DKG
// commitments. A dealer cannot substitute a contribution for anything other
// than its weighted group share.
func VerifyDealerCommitment(cs ciphersuite.Ciphersuite, commitS, commitZ *dkg.Commitment, gid *identity.GroupIdentity, dealerIndex int, quorum []int, dealerCommit *dkg.Commitment) error {
	if dealerCommit == nil || dealerCommit.Threshold() != gid.Threshold {
		return dkg.ErrInvalidCommitmentLength
	}

	grp := cs.Group()

	vk, err := NodeVerificationKey(cs, commitS, commitZ, gid, dealerIndex)
	if err != nil {
		return err
	}
	lambda, err := dkg.LagrangeCoefficient(grp, quorum, dealerIndex)
	if err != nil {
		return err
	}

	expected := grp.ScalarMult(vk, lambda)
	actual := dealerCommit.SecretCommitment()
	if actual == nil || !expected.Equal(actual) {
		return fmt.Errorf("%w: dealer %d", ErrInvalidDealerCommitment, dealerIndex)
	}
	return nil
}

// AssembleMemberShare verifies and sums the subshares a member received from
// every dealer in the quorum, producing the member's group key share.
//
// subShares and commitments are keyed by dealer index and must cover the
// same dealer set. Each subshare is checked against its dealer's commitment;
// the summed commitments must additionally be consistent with the group
// public key derived from the master public key (their constant terms sum to
// Y + H1(id)*Gamma), which catches a coordinated substitution that per-dealer
// checks alone would miss.
func AssembleMemberShare(cs ciphersuite.Ciphersuite, mpk *dkg.MasterPublicKey, gid *identity.GroupIdentity, memberIndex int, subShares map[int]group.Scalar, commitments map[int]*dkg.Commitment) (*GroupKeyShare, error) {
	if err := gid.Validate(); err != nil {
		return nil, err
	}
	if memberIndex < 1 || memberIndex > gid.Members {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidMemberIndex, memberIndex, gid.Members)
	}
	if len(subShares) == 0 || len(subShares) != len(commitments) {
		return nil, ErrMissingDealer
	}

	grp := cs.Group()

	dealers := make([]int, 0, len(subShares))
	for idx := range subShares {
		if _, ok := commitments[idx]; !ok {
			return nil, fmt.Errorf("%w: no commitment from dealer %d", ErrMissingDealer, idx)
		}
		dealers = append(dealers, idx)
	}
	sort.Ints(dealers)

	psi := grp.NewScalar()
	var sum *dkg.Commitment
	for _, idx := range dealers {
		commit := commitments[idx]
		expected, err := commit.Evaluate(grp, memberIndex)
		if err != nil {
			return nil, err
		}
		if !dkg.VerifyShare(grp, subShares[idx], expected) {
			return nil, fmt.Errorf("%w: dealer %d", ErrInvalidSubShare, idx)
		}

		psi = psi.Add(subShares[idx])
		if sum == nil {
			sum = commit
		} else {
			sum, err = sum.Add(commit)
			if err != nil {
				return nil, err
			}
		}
	}

	groupPub, err := GroupPublicKey(cs, mpk, gid)
	if err != nil {
		return nil, err
	}
	if !groupPub.Equal(sum.SecretCommitment()) {
		return nil, ErrInconsistentGroupKey
	}

	vk, err := sum.Evaluate(grp, memberIndex)
	if err != nil {
		return nil, err
	}

	return &GroupKeyShare{
		GroupID:         gid.ID,
		MemberIndex:     memberIndex,
		Threshold:       gid.Threshold,
		Psi:             psi,
		VerificationKey: vk,
	}, nil
}

// MemberVerificationKeys computes every member's public verification key
// from the summed dealer commitments. Verifiers use these to check
// decryption share proofs without holding any secret.
func MemberVerificationKeys(cs ciphersuite.Ciphersuite, gid *identity.GroupIdentity, commitments map[int]*dkg.Commitment) (map[int]group.Element, error) {
	if err := gid.Validate(); err != nil {
		return nil, err
	}
	if len(commitments) == 0 {
		return nil, ErrMissingDealer
	}

	grp := cs.Group()

	var sum *dkg.Commitment
	for _, commit := range commitments {
		if sum == nil {
			sum = commit
			continue
		}
		var err error
		sum, err = sum.Add(commit)
		if err != nil {
			return nil, err
		}
	}

	keys := make(map[int]group.Element, gid.Members)
	for k := 1; k <= gid.Members; k++ {
		vk, err := sum.Evaluate(grp, k)
		if err != nil {
			return nil, err
		}
		keys[k] = vk
	}
	return keys, nil
}
