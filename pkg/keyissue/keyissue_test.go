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

package keyissue

import (
	"errors"
	"testing"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/ed25519_sha512"
	"github.com/jeremyhahn/go-frost/pkg/frost/group"

	"github.com/jeremyhahn/go-dibtd/pkg/dkg"
	"github.com/jeremyhahn/go-dibtd/pkg/identity"
)

// runDKG executes a full master key ceremony, returning per-node outputs.
func runDKG(t *testing.T, cs ciphersuite.Ciphersuite, n, threshold int) map[int]*dkg.Output {
	t.Helper()

	nodes := make(map[int]*dkg.Node, n)
	for i := 1; i <= n; i++ {
		node, err := dkg.NewNode(dkg.Config{
			Ciphersuite:  cs,
			SessionID:    "keyissue-test",
			Index:        i,
			Threshold:    threshold,
			Participants: n,
		})
		if err != nil {
			t.Fatalf("NewNode(%d) failed: %v", i, err)
		}
		nodes[i] = node
	}
	for i, node := range nodes {
		for j, peer := range nodes {
			if i != j {
				if err := peer.ReceiveAnnouncement(node.Announcement()); err != nil {
					t.Fatalf("announcement %d->%d failed: %v", i, j, err)
				}
			}
		}
	}
	for i, node := range nodes {
		msgs, err := node.DistributeShares()
		if err != nil {
			t.Fatalf("node %d DistributeShares failed: %v", i, err)
		}
		for _, msg := range msgs {
			if err := nodes[msg.To].ReceiveShare(msg); err != nil {
				t.Fatalf("share %d->%d failed: %v", msg.From, msg.To, err)
			}
		}
	}
	outputs := make(map[int]*dkg.Output, n)
	for i, node := range nodes {
		if err := node.VerifyShares(); err != nil {
			t.Fatalf("node %d VerifyShares failed: %v", i, err)
		}
		out, err := node.Finalize()
		if err != nil {
			t.Fatalf("node %d Finalize failed: %v", i, err)
		}
		outputs[i] = out
	}
	return outputs
}

// issueGroupKeys runs a full issuance for gid over the given quorum and
// returns every member's assembled share plus the dealer commitments.
func issueGroupKeys(t *testing.T, cs ciphersuite.Ciphersuite, outputs map[int]*dkg.Output, quorum []int, threshold int, gid *identity.GroupIdentity) (map[int]*GroupKeyShare, map[int]*dkg.Commitment) {
	t.Helper()

	dealers := make(map[int]*Dealer, len(quorum))
	commitments := make(map[int]*dkg.Commitment, len(quorum))
	for _, idx := range quorum {
		d, err := NewDealer(cs, outputs[idx].Share, quorum, threshold, gid)
		if err != nil {
			t.Fatalf("NewDealer(%d) failed: %v", idx, err)
		}
		dealers[idx] = d
		commitments[idx] = d.Commitment()
	}

	ref := outputs[quorum[0]]
	for _, idx := range quorum {
		if err := VerifyDealerCommitment(cs, ref.CommitmentS, ref.CommitmentZ, gid, idx, quorum, commitments[idx]); err != nil {
			t.Fatalf("dealer %d commitment rejected: %v", idx, err)
		}
	}

	shares := make(map[int]*GroupKeyShare, gid.Members)
	for k := 1; k <= gid.Members; k++ {
		subs := make(map[int]group.Scalar, len(quorum))
		for _, idx := range quorum {
			sub, err := dealers[idx].SubShare(k)
			if err != nil {
				t.Fatalf("dealer %d SubShare(%d) failed: %v", idx, k, err)
			}
			subs[idx] = sub
		}
		share, err := AssembleMemberShare(cs, ref.PublicKey, gid, k, subs, commitments)
		if err != nil {
			t.Fatalf("member %d assembly failed: %v", k, err)
		}
		shares[k] = share
	}

	for _, d := range dealers {
		d.Zeroize()
	}
	return shares, commitments
}

func TestGroupKeyIssuance(t *testing.T) {
	cs := ed25519_sha512.New()
	grp := cs.Group()

	outputs := runDKG(t, cs, 5, 3)
	cardiology := &identity.GroupIdentity{ID: "cardiology", Threshold: 2, Members: 4}

	t.Run("SharesInterpolateToGroupSecret", func(t *testing.T) {
		shares, _ := issueGroupKeys(t, cs, outputs, []int{1, 3, 5}, 3, cardiology)

		groupPub, err := GroupPublicKey(cs, outputs[1].PublicKey, cardiology)
		if err != nil {
			t.Fatalf("GroupPublicKey failed: %v", err)
		}

		// Every threshold-sized member subset must recover the same group
		// secret, verified in the exponent against Y + H1(id)*Gamma.
		for _, subset := range [][]int{{1, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 4}, {3, 4}} {
			scalarShares := make([]dkg.ScalarShare, 0, 2)
			for _, k := range subset {
				scalarShares = append(scalarShares, dkg.ScalarShare{Index: k, Value: shares[k].Psi})
			}
			secret, err := dkg.CombineScalars(grp, scalarShares, cardiology.Threshold)
			if err != nil {
				t.Fatalf("CombineScalars failed: %v", err)
			}
			if !grp.ScalarBaseMult(secret).Equal(groupPub) {
				t.Errorf("subset %v does not recover the group secret", subset)
			}
		}
	})

	t.Run("QuorumIndependence", func(t *testing.T) {
		// Different DKGC quorums must issue shares of the same group secret.
		sharesA, _ := issueGroupKeys(t, cs, outputs, []int{1, 2, 3}, 3, cardiology)
		sharesB, _ := issueGroupKeys(t, cs, outputs, []int{2, 4, 5}, 3, cardiology)

		reconstruct := func(shares map[int]*GroupKeyShare) group.Element {
			scalarShares := []dkg.ScalarShare{
				{Index: 1, Value: shares[1].Psi},
				{Index: 2, Value: shares[2].Psi},
			}
			secret, err := dkg.CombineScalars(grp, scalarShares, cardiology.Threshold)
			if err != nil {
				t.Fatalf("CombineScalars failed: %v", err)
			}
			return grp.ScalarBaseMult(secret)
		}

		if !reconstruct(sharesA).Equal(reconstruct(sharesB)) {
			t.Error("different quorums issued different group secrets")
		}
	})

	t.Run("VerificationKeysMatchShares", func(t *testing.T) {
		shares, commitments := issueGroupKeys(t, cs, outputs, []int{1, 2, 4}, 3, cardiology)

		keys, err := MemberVerificationKeys(cs, cardiology, commitments)
		if err != nil {
			t.Fatalf("MemberVerificationKeys failed: %v", err)
		}
		for k := 1; k <= cardiology.Members; k++ {
			if !grp.ScalarBaseMult(shares[k].Psi).Equal(keys[k]) {
				t.Errorf("member %d verification key does not match share", k)
			}
			if !shares[k].VerificationKey.Equal(keys[k]) {
				t.Errorf("member %d assembled key differs from published key", k)
			}
		}
	})

	t.Run("DistinctGroupsDistinctSecrets", func(t *testing.T) {
		oncology := &identity.GroupIdentity{ID: "oncology", Threshold: 2, Members: 4}

		pubCardiology, err := GroupPublicKey(cs, outputs[1].PublicKey, cardiology)
		if err != nil {
			t.Fatalf("GroupPublicKey failed: %v", err)
		}
		pubOncology, err := GroupPublicKey(cs, outputs[1].PublicKey, oncology)
		if err != nil {
			t.Fatalf("GroupPublicKey failed: %v", err)
		}
		if pubCardiology.Equal(pubOncology) {
			t.Error("distinct identities derived the same group public key")
		}
	})

	t.Run("NodeSharesInterpolateToGroupSecret", func(t *testing.T) {
		// The raw node group shares psi_i are a (t, n) sharing of the group
		// secret, before any resharing.
		shares := make([]dkg.ScalarShare, 0, 3)
		for _, idx := range []int{2, 3, 5} {
			psi, err := DeriveNodeGroupShare(cs, outputs[idx].Share, cardiology)
			if err != nil {
				t.Fatalf("DeriveNodeGroupShare failed: %v", err)
			}
			shares = append(shares, dkg.ScalarShare{Index: idx, Value: psi})
		}
		secret, err := dkg.CombineScalars(grp, shares, 3)
		if err != nil {
			t.Fatalf("CombineScalars failed: %v", err)
		}

		groupPub, err := GroupPublicKey(cs, outputs[1].PublicKey, cardiology)
		if err != nil {
			t.Fatalf("GroupPublicKey failed: %v", err)
		}
		if !grp.ScalarBaseMult(secret).Equal(groupPub) {
			t.Error("node group shares do not interpolate to the group secret")
		}
	})

	t.Run("NodeVerificationKeys", func(t *testing.T) {
		for idx := 1; idx <= 5; idx++ {
			psi, err := DeriveNodeGroupShare(cs, outputs[idx].Share, cardiology)
			if err != nil {
				t.Fatalf("DeriveNodeGroupShare failed: %v", err)
			}
			vk, err := NodeVerificationKey(cs, outputs[1].CommitmentS, outputs[1].CommitmentZ, cardiology, idx)
			if err != nil {
				t.Fatalf("NodeVerificationKey failed: %v", err)
			}
			if !grp.ScalarBaseMult(psi).Equal(vk) {
				t.Errorf("node %d verification key mismatch", idx)
			}
		}
	})
}

func TestIssuanceRejections(t *testing.T) {
	cs := ed25519_sha512.New()
	grp := cs.Group()

	outputs := runDKG(t, cs, 4, 3)
	gid := &identity.GroupIdentity{ID: "radiology", Threshold: 2, Members: 3}

	t.Run("QuorumTooSmall", func(t *testing.T) {
		if _, err := NewDealer(cs, outputs[1].Share, []int{1, 2}, 3, gid); !errors.Is(err, ErrQuorumTooSmall) {
			t.Errorf("expected ErrQuorumTooSmall, got %v", err)
		}
	})

	t.Run("DealerOutsideQuorum", func(t *testing.T) {
		if _, err := NewDealer(cs, outputs[4].Share, []int{1, 2, 3}, 3, gid); !errors.Is(err, ErrDealerNotInQuorum) {
			t.Errorf("expected ErrDealerNotInQuorum, got %v", err)
		}
	})

	t.Run("InvalidGroupIdentity", func(t *testing.T) {
		bad := &identity.GroupIdentity{ID: "radiology", Threshold: 4, Members: 3}
		if _, err := NewDealer(cs, outputs[1].Share, []int{1, 2, 3}, 3, bad); !errors.Is(err, identity.ErrInvalidGroupIdentity) {
			t.Errorf("expected ErrInvalidGroupIdentity, got %v", err)
		}
	})

	t.Run("ForgedDealerCommitment", func(t *testing.T) {
		quorum := []int{1, 2, 3}
		// A dealer that deals a random secret instead of its weighted group
		// share must be caught by the commitment check.
		random, err := grp.RandomScalar()
		if err != nil {
			t.Fatalf("RandomScalar failed: %v", err)
		}
		poly, err := dkg.NewPolynomialWithConstant(grp, gid.Threshold, random)
		if err != nil {
			t.Fatalf("NewPolynomialWithConstant failed: %v", err)
		}
		forged := poly.Commit()

		err = VerifyDealerCommitment(cs, outputs[1].CommitmentS, outputs[1].CommitmentZ, gid, 2, quorum, forged)
		if !errors.Is(err, ErrInvalidDealerCommitment) {
			t.Errorf("expected ErrInvalidDealerCommitment, got %v", err)
		}
	})

	t.Run("TamperedSubShare", func(t *testing.T) {
		quorum := []int{1, 2, 3}
		dealers := make(map[int]*Dealer, 3)
		commitments := make(map[int]*dkg.Commitment, 3)
		for _, idx := range quorum {
			d, err := NewDealer(cs, outputs[idx].Share, quorum, 3, gid)
			if err != nil {
				t.Fatalf("NewDealer failed: %v", err)
			}
			dealers[idx] = d
			commitments[idx] = d.Commitment()
		}

		subs := make(map[int]group.Scalar, 3)
		for _, idx := range quorum {
			sub, err := dealers[idx].SubShare(1)
			if err != nil {
				t.Fatalf("SubShare failed: %v", err)
			}
			subs[idx] = sub
		}
		one, err := grp.RandomScalar()
		if err != nil {
			t.Fatalf("RandomScalar failed: %v", err)
		}
		subs[2] = subs[2].Add(one)

		_, err = AssembleMemberShare(cs, outputs[1].PublicKey, gid, 1, subs, commitments)
		if !errors.Is(err, ErrInvalidSubShare) {
			t.Errorf("expected ErrInvalidSubShare, got %v", err)
		}
	})

	t.Run("MissingDealerCommitment", func(t *testing.T) {
		quorum := []int{1, 2, 3}
		d, err := NewDealer(cs, outputs[1].Share, quorum, 3, gid)
		if err != nil {
			t.Fatalf("NewDealer failed: %v", err)
		}
		sub, err := d.SubShare(1)
		if err != nil {
			t.Fatalf("SubShare failed: %v", err)
		}

		subs := map[int]group.Scalar{1: sub}
		commitments := map[int]*dkg.Commitment{}
		if _, err := AssembleMemberShare(cs, outputs[1].PublicKey, gid, 1, subs, commitments); !errors.Is(err, ErrMissingDealer) {
			t.Errorf("expected ErrMissingDealer, got %v", err)
		}
	})

	t.Run("SubShareIndexBounds", func(t *testing.T) {
		d, err := NewDealer(cs, outputs[1].Share, []int{1, 2, 3}, 3, gid)
		if err != nil {
			t.Fatalf("NewDealer failed: %v", err)
		}
		if _, err := d.SubShare(0); !errors.Is(err, ErrInvalidMemberIndex) {
			t.Errorf("expected ErrInvalidMemberIndex, got %v", err)
		}
		if _, err := d.SubShare(gid.Members + 1); !errors.Is(err, ErrInvalidMemberIndex) {
			t.Errorf("expected ErrInvalidMemberIndex, got %v", err)
		}
	})

	t.Run("IncompleteQuorumInconsistent", func(t *testing.T) {
		// Dropping one dealer's contribution changes the reconstructed
		// constant, which the group-key consistency check must catch.
		quorum := []int{1, 2, 3}
		dealers := make(map[int]*Dealer, 3)
		commitments := make(map[int]*dkg.Commitment, 2)
		subs := make(map[int]group.Scalar, 2)
		for _, idx := range quorum {
			d, err := NewDealer(cs, outputs[idx].Share, quorum, 3, gid)
			if err != nil {
				t.Fatalf("NewDealer failed: %v", err)
			}
			dealers[idx] = d
		}
		for _, idx := range []int{1, 2} {
			sub, err := dealers[idx].SubShare(1)
			if err != nil {
				t.Fatalf("SubShare failed: %v", err)
			}
			subs[idx] = sub
			commitments[idx] = dealers[idx].Commitment()
		}

		_, err := AssembleMemberShare(cs, outputs[1].PublicKey, gid, 1, subs, commitments)
		if !errors.Is(err, ErrInconsistentGroupKey) {
			t.Errorf("expected ErrInconsistentGroupKey, got %v", err)
		}
	})
}
