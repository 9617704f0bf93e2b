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
	"fmt"
	"sort"
	"sync"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
	"github.com/jeremyhahn/go-frost/pkg/frost/group"

	"github.com/jeremyhahn/go-dibtd/pkg/proof"
)

// NodeState tracks the protocol phase of a DKGC node.
type NodeState int

const (
	// StateInitialized: polynomials sampled, commitments computed, no shares
	// exchanged yet.
	StateInitialized NodeState = iota

	// StateSharesDistributed: this node has dealt its share evaluations.
	StateSharesDistributed

	// StateSharesVerified: received shares verified, qualified set fixed.
	StateSharesVerified

	// StateFinalized: master key share derived, polynomials zeroized.
	StateFinalized

	// StateAborted: ceremony failed, node holds no usable key material.
	StateAborted
)

// String returns a human-readable state name.
func (s NodeState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateSharesDistributed:
		return "shares_distributed"
	case StateSharesVerified:
		return "shares_verified"
	case StateFinalized:
		return "finalized"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// AbortPolicy controls how a node reacts when disqualifications leave fewer
// than threshold valid contributions.
type AbortPolicy int

const (
	// AbortOnInsufficient permanently aborts the ceremony. No key material
	// is produced and the node cannot be reused.
	AbortOnInsufficient AbortPolicy = iota

	// RestartOnInsufficient resets the node with freshly sampled
	// polynomials so the ceremony can be rerun from the announcement phase.
	RestartOnInsufficient
)

// Config parameterizes a DKGC node.
type Config struct {
	// Ciphersuite selects the prime-order group and hash functions.
	Ciphersuite ciphersuite.Ciphersuite

	// SessionID names the ceremony. Proofs of possession are bound to it so
	// announcements cannot be replayed across ceremonies.
	SessionID string

	// Index is this node's 1-based participant index.
	Index int

	// Threshold is the number of master key shares required for any
	// master-key operation (t).
	Threshold int

	// Participants is the total number of DKGC nodes (n).
	Participants int

	// AbortPolicy selects the reaction to an undersized qualified set.
	AbortPolicy AbortPolicy
}

// Validate checks the configuration bounds.
func (c *Config) Validate() error {
	if c.Ciphersuite == nil {
		return fmt.Errorf("%w: nil ciphersuite", ErrInvalidStateTransition)
	}
	if c.Participants < 1 || c.Participants > MaxParticipants {
		return fmt.Errorf("%w: %d participants", ErrInvalidParticipantIndex, c.Participants)
	}
	if c.Index < 1 || c.Index > c.Participants {
		return fmt.Errorf("%w: index %d of %d", ErrInvalidParticipantIndex, c.Index, c.Participants)
	}
	if c.Threshold < MinThreshold || c.Threshold > c.Participants {
		return fmt.Errorf("%w: threshold %d of %d participants", ErrInvalidThreshold, c.Threshold, c.Participants)
	}
	return nil
}

// Announcement is a node's public round-one broadcast: Feldman commitments
// to both master polynomials plus proofs of possession over their constant
// terms.
type Announcement struct {
	Index       int
	CommitmentS *Commitment
	CommitmentZ *Commitment
	ProofS      *proof.Proof
	ProofZ      *proof.Proof
}

// ShareMessage carries the two private polynomial evaluations a dealer sends
// to one recipient. It must travel over a confidential channel.
type ShareMessage struct {
	From  int
	To    int
	EvalS group.Scalar
	EvalZ group.Scalar
}

// MasterKeyShare is a node's share of the dual master secret (s, z).
//
// The full master secret never exists anywhere; each node holds only the
// point evaluations S = f_s(i) and Z = f_z(i) of the summed qualified
// polynomials.
type MasterKeyShare struct {
	Index int
	S     group.Scalar
	Z     group.Scalar
}

// Zeroize clears the share scalars.
func (k *MasterKeyShare) Zeroize() {
	if k == nil {
		return
	}
	k.S = nil
	k.Z = nil
}

// MasterPublicKey is the public output of the ceremony: Y = s*G and
// Gamma = z*G, with the ceremony parameters they were produced under.
type MasterPublicKey struct {
	Y            group.Element
	Gamma        group.Element
	Threshold    int
	Participants int
}

// Output bundles everything Finalize produces. CommitmentS and CommitmentZ
// are the sums of the qualified nodes' commitments; evaluating them at any
// index yields that node's public verification keys S_i*G and Z_i*G.
type Output struct {
	Share       *MasterKeyShare
	PublicKey   *MasterPublicKey
	CommitmentS *Commitment
	CommitmentZ *Commitment
	Qualified   []int
}

type peerInfo struct {
	announcement *Announcement
	evalS        group.Scalar
	evalZ        group.Scalar
	shareValid   bool
}

// Node is one DKGC participant in the Pedersen key generation ceremony.
//
// The ceremony proceeds strictly: announcements are exchanged, shares are
// dealt and verified, then each node finalizes its master key share. Methods
// called out of order fail with ErrInvalidStateTransition. Node is safe for
// concurrent use.
type Node struct {
	mu sync.Mutex

	cfg   Config
	grp   group.Group
	state NodeState

	polyS *Polynomial
	polyZ *Polynomial

	announcement *Announcement

	peers        map[int]*peerInfo
	disqualified map[int]string
	qualified    []int
}

// NewNode creates a DKGC node, sampling both master polynomials and
// preparing its announcement.
func NewNode(cfg Config) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &Node{
		cfg:          cfg,
		grp:          cfg.Ciphersuite.Group(),
		state:        StateInitialized,
		peers:        make(map[int]*peerInfo),
		disqualified: make(map[int]string),
	}
	if err := n.sample(); err != nil {
		return nil, err
	}
	return n, nil
}

// sample draws fresh polynomials and builds the announcement.
func (n *Node) sample() error {
	polyS, err := NewRandomPolynomial(n.grp, n.cfg.Threshold)
	if err != nil {
		return err
	}
	polyZ, err := NewRandomPolynomial(n.grp, n.cfg.Threshold)
	if err != nil {
		polyS.Zeroize()
		return err
	}

	commitS := polyS.Commit()
	commitZ := polyZ.Commit()

	secretS := polyS.ConstantTerm()
	proofS, err := proof.ProveKnowledge(n.cfg.Ciphersuite, secretS, commitS.SecretCommitment(),
		popContext(n.cfg.SessionID, n.cfg.Index, "s"))
	if err != nil {
		polyS.Zeroize()
		polyZ.Zeroize()
		return err
	}
	secretZ := polyZ.ConstantTerm()
	proofZ, err := proof.ProveKnowledge(n.cfg.Ciphersuite, secretZ, commitZ.SecretCommitment(),
		popContext(n.cfg.SessionID, n.cfg.Index, "z"))
	if err != nil {
		polyS.Zeroize()
		polyZ.Zeroize()
		return err
	}

	n.polyS = polyS
	n.polyZ = polyZ
	n.announcement = &Announcement{
		Index:       n.cfg.Index,
		CommitmentS: commitS,
		CommitmentZ: commitZ,
		ProofS:      proofS,
		ProofZ:      proofZ,
	}
	return nil
}

// popContext binds a proof of possession to a ceremony, a dealer, and one of
// the two master polynomials.
func popContext(sessionID string, index int, tag string) []byte {
	return []byte(fmt.Sprintf("dkg-pop/%s/%d/%s", sessionID, index, tag))
}

// State returns the current protocol state.
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Announcement returns this node's round-one broadcast.
func (n *Node) Announcement() *Announcement {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.announcement
}

// ReceiveAnnouncement processes a peer's round-one broadcast, verifying both
// proofs of possession. A peer whose proof fails is disqualified and its
// announcement rejected.
//
// Errors:
//   - ErrInvalidStateTransition: node is past the announcement phase
//   - ErrInvalidParticipantIndex: index out of range, self, or duplicate
//   - ErrInvalidCommitmentLength: commitment degree differs from threshold
//   - ErrProofOfPossessionFailed (via DisqualifiedNodeError): proof invalid
func (n *Node) ReceiveAnnouncement(a *Announcement) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != StateInitialized && n.state != StateSharesDistributed {
		return fmt.Errorf("%w: announcement in state %s", ErrInvalidStateTransition, n.state)
	}
	if a == nil || a.Index < 1 || a.Index > n.cfg.Participants || a.Index == n.cfg.Index {
		return ErrInvalidParticipantIndex
	}
	if _, dup := n.peers[a.Index]; dup {
		return fmt.Errorf("%w: duplicate announcement from node %d", ErrInvalidParticipantIndex, a.Index)
	}
	if reason, dq := n.disqualified[a.Index]; dq {
		return fmt.Errorf("%w: node %d (%s)", ErrNodeDisqualified, a.Index, reason)
	}
	if a.CommitmentS == nil || a.CommitmentZ == nil ||
		a.CommitmentS.Threshold() != n.cfg.Threshold ||
		a.CommitmentZ.Threshold() != n.cfg.Threshold {
		return ErrInvalidCommitmentLength
	}

	if !proof.VerifyKnowledge(n.cfg.Ciphersuite, a.CommitmentS.SecretCommitment(), a.ProofS,
		popContext(n.cfg.SessionID, a.Index, "s")) ||
		!proof.VerifyKnowledge(n.cfg.Ciphersuite, a.CommitmentZ.SecretCommitment(), a.ProofZ,
			popContext(n.cfg.SessionID, a.Index, "z")) {
		n.disqualified[a.Index] = "proof of possession failed"
		return NewDisqualifiedNodeError(a.Index, ErrProofOfPossessionFailed.Error())
	}

	n.peers[a.Index] = &peerInfo{announcement: a}
	return nil
}

// DistributeShares deals this node's private evaluations to every announced
// peer and advances to StateSharesDistributed. Messages for disqualified
// peers are not produced.
func (n *Node) DistributeShares() ([]*ShareMessage, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != StateInitialized {
		return nil, fmt.Errorf("%w: distribute in state %s", ErrInvalidStateTransition, n.state)
	}

	msgs := make([]*ShareMessage, 0, len(n.peers))
	for idx := range n.peers {
		evalS, err := n.polyS.Eval(idx)
		if err != nil {
			return nil, err
		}
		evalZ, err := n.polyZ.Eval(idx)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, &ShareMessage{
			From:  n.cfg.Index,
			To:    idx,
			EvalS: evalS,
			EvalZ: evalZ,
		})
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].To < msgs[j].To })

	n.state = StateSharesDistributed
	return msgs, nil
}

// ReceiveShare verifies a dealt share against the sender's published
// commitments. A sender whose share does not verify is disqualified.
//
// Errors:
//   - ErrMissingCommitment: no announcement from the sender
//   - ErrNodeDisqualified: sender already disqualified
//   - ErrInvalidShare (via DisqualifiedNodeError): evaluation mismatch
func (n *Node) ReceiveShare(msg *ShareMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != StateSharesDistributed {
		return fmt.Errorf("%w: receive share in state %s", ErrInvalidStateTransition, n.state)
	}
	if msg == nil || msg.To != n.cfg.Index {
		return ErrInvalidParticipantIndex
	}
	if reason, dq := n.disqualified[msg.From]; dq {
		return fmt.Errorf("%w: node %d (%s)", ErrNodeDisqualified, msg.From, reason)
	}
	peer, ok := n.peers[msg.From]
	if !ok {
		return fmt.Errorf("%w: no announcement from node %d", ErrMissingCommitment, msg.From)
	}
	if peer.shareValid {
		return fmt.Errorf("%w: duplicate share from node %d", ErrDuplicateIndex, msg.From)
	}

	expectedS, err := peer.announcement.CommitmentS.Evaluate(n.grp, n.cfg.Index)
	if err != nil {
		return err
	}
	expectedZ, err := peer.announcement.CommitmentZ.Evaluate(n.grp, n.cfg.Index)
	if err != nil {
		return err
	}
	if !VerifyShare(n.grp, msg.EvalS, expectedS) || !VerifyShare(n.grp, msg.EvalZ, expectedZ) {
		n.disqualified[msg.From] = "share does not match commitment"
		delete(n.peers, msg.From)
		return NewDisqualifiedNodeError(msg.From, ErrInvalidShare.Error())
	}

	peer.evalS = msg.EvalS
	peer.evalZ = msg.EvalZ
	peer.shareValid = true
	return nil
}

// VerifyShares fixes the qualified set: this node plus every peer that
// announced with a valid proof of possession and dealt a verifying share.
//
// If fewer than threshold nodes qualify, the abort policy decides the
// outcome: AbortOnInsufficient moves to StateAborted; RestartOnInsufficient
// resets the node with fresh polynomials so the ceremony can rerun. Both
// report ErrInsufficientValidShares.
func (n *Node) VerifyShares() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != StateSharesDistributed {
		return fmt.Errorf("%w: verify in state %s", ErrInvalidStateTransition, n.state)
	}

	qualified := []int{n.cfg.Index}
	for idx, peer := range n.peers {
		if peer.shareValid {
			qualified = append(qualified, idx)
		}
	}
	sort.Ints(qualified)

	if len(qualified) < n.cfg.Threshold {
		if n.cfg.AbortPolicy == RestartOnInsufficient {
			if err := n.restart(); err != nil {
				n.state = StateAborted
				return err
			}
		} else {
			n.state = StateAborted
		}
		return fmt.Errorf("%w: %d qualified of %d required", ErrInsufficientValidShares,
			len(qualified), n.cfg.Threshold)
	}

	n.qualified = qualified
	n.state = StateSharesVerified
	return nil
}

// restart clears ceremony state and resamples. Caller holds the lock.
func (n *Node) restart() error {
	n.polyS.Zeroize()
	n.polyZ.Zeroize()
	n.peers = make(map[int]*peerInfo)
	n.disqualified = make(map[int]string)
	n.qualified = nil
	n.state = StateInitialized
	return n.sample()
}

// Finalize derives this node's master key share and the master public key
// from the qualified contributions, then zeroizes the dealing polynomials.
//
// The share is the sum of qualified evaluations at this node's index; the
// public key sums the qualified constant-term commitments. Every honest node
// computes the same MasterPublicKey.
func (n *Node) Finalize() (*Output, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != StateSharesVerified {
		return nil, fmt.Errorf("%w: finalize in state %s", ErrInvalidStateTransition, n.state)
	}

	ownS, err := n.polyS.Eval(n.cfg.Index)
	if err != nil {
		return nil, err
	}
	ownZ, err := n.polyZ.Eval(n.cfg.Index)
	if err != nil {
		return nil, err
	}

	shareS := ownS
	shareZ := ownZ
	sumCommitS := n.announcement.CommitmentS
	sumCommitZ := n.announcement.CommitmentZ

	for _, idx := range n.qualified {
		if idx == n.cfg.Index {
			continue
		}
		peer := n.peers[idx]
		shareS = shareS.Add(peer.evalS)
		shareZ = shareZ.Add(peer.evalZ)

		sumCommitS, err = sumCommitS.Add(peer.announcement.CommitmentS)
		if err != nil {
			return nil, err
		}
		sumCommitZ, err = sumCommitZ.Add(peer.announcement.CommitmentZ)
		if err != nil {
			return nil, err
		}
	}

	out := &Output{
		Share: &MasterKeyShare{
			Index: n.cfg.Index,
			S:     shareS,
			Z:     shareZ,
		},
		PublicKey: &MasterPublicKey{
			Y:            sumCommitS.SecretCommitment(),
			Gamma:        sumCommitZ.SecretCommitment(),
			Threshold:    n.cfg.Threshold,
			Participants: n.cfg.Participants,
		},
		CommitmentS: sumCommitS,
		CommitmentZ: sumCommitZ,
		Qualified:   append([]int(nil), n.qualified...),
	}

	n.polyS.Zeroize()
	n.polyZ.Zeroize()
	n.state = StateFinalized
	return out, nil
}

// Disqualified returns the indices this node has disqualified, sorted.
func (n *Node) Disqualified() []int {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]int, 0, len(n.disqualified))
	for idx := range n.disqualified {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
