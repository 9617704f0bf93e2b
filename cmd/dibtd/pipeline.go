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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
	"github.com/jeremyhahn/go-frost/pkg/frost/group"

	"github.com/jeremyhahn/go-dibtd/pkg/dibtd"
	"github.com/jeremyhahn/go-dibtd/pkg/dkg"
	"github.com/jeremyhahn/go-dibtd/pkg/identity"
	"github.com/jeremyhahn/go-dibtd/pkg/keyissue"
	"github.com/jeremyhahn/go-dibtd/pkg/transport"
	"github.com/jeremyhahn/go-dibtd/pkg/transport/memory"
)

// newEngine builds the encryption engine, logging when --verbose is set.
func newEngine(cs ciphersuite.Ciphersuite) *dibtd.Engine {
	if verbose {
		return dibtd.NewEngine(cs, dibtd.WithLogger(&transport.StdoutLogger{}))
	}
	return dibtd.NewEngine(cs)
}

func envelope(sessionID string, msgType transport.MessageType, sender int, payload []byte) *transport.Envelope {
	return &transport.Envelope{
		SessionID: sessionID,
		Type:      msgType,
		SenderIdx: sender,
		Payload:   payload,
		Timestamp: time.Now().UnixNano(),
	}
}

// runCeremony executes a full key generation ceremony for n nodes with the
// given threshold, routing every announcement and dealt share through the
// transport in its wire form. Returns each node's ceremony output keyed by
// node index.
func runCeremony(ctx context.Context, cs ciphersuite.Ciphersuite, mt *memory.Transport, sessionID string, n, threshold int) (map[int]*dkg.Output, error) {
	serializer := mt.Serializer()

	if err := mt.CreateSession(&transport.SessionConfig{
		SessionID:       sessionID,
		Phase:           transport.PhaseCeremony,
		Threshold:       threshold,
		NumParticipants: n,
	}); err != nil {
		return nil, err
	}
	defer mt.CloseSession(sessionID)

	nodes := make(map[int]*dkg.Node, n)
	participants := make(map[int]*memory.Participant, n)
	for i := 1; i <= n; i++ {
		node, err := dkg.NewNode(dkg.Config{
			Ciphersuite:  cs,
			SessionID:    sessionID,
			Index:        i,
			Threshold:    threshold,
			Participants: n,
		})
		if err != nil {
			return nil, err
		}
		nodes[i] = node

		p, err := mt.Join(sessionID, i)
		if err != nil {
			return nil, err
		}
		participants[i] = p
	}

	// Round one: every node broadcasts its commitment announcement.
	for i := 1; i <= n; i++ {
		wire, err := transport.EncodeAnnouncement(cs, nodes[i].Announcement())
		if err != nil {
			return nil, err
		}
		payload, err := serializer.Marshal(wire)
		if err != nil {
			return nil, err
		}
		if err := mt.Broadcast(ctx, sessionID, envelope(sessionID, transport.MsgTypeAnnounce, i, payload)); err != nil {
			return nil, err
		}
	}
	for i := 1; i <= n; i++ {
		for j := 1; j < n; j++ {
			env, err := participants[i].Receive(ctx)
			if err != nil {
				return nil, err
			}
			var wire transport.AnnounceMessage
			if err := serializer.Unmarshal(env.Payload, &wire); err != nil {
				return nil, err
			}
			announcement, err := transport.DecodeAnnouncement(cs, threshold, &wire)
			if err != nil {
				return nil, err
			}
			if err := nodes[i].ReceiveAnnouncement(announcement); err != nil {
				return nil, fmt.Errorf("node %d rejected announcement from %d: %w", i, env.SenderIdx, err)
			}
		}
	}

	// Round two: dealt shares travel point-to-point.
	for i := 1; i <= n; i++ {
		msgs, err := nodes[i].DistributeShares()
		if err != nil {
			return nil, err
		}
		for _, msg := range msgs {
			wire, err := transport.EncodeCeremonyShare(cs, msg)
			if err != nil {
				return nil, err
			}
			payload, err := serializer.Marshal(wire)
			if err != nil {
				return nil, err
			}
			if err := mt.Send(ctx, sessionID, msg.To, envelope(sessionID, transport.MsgTypeCeremonyShare, i, payload)); err != nil {
				return nil, err
			}
		}
	}
	for i := 1; i <= n; i++ {
		for j := 1; j < n; j++ {
			env, err := participants[i].Receive(ctx)
			if err != nil {
				return nil, err
			}
			var wire transport.CeremonyShareMessage
			if err := serializer.Unmarshal(env.Payload, &wire); err != nil {
				return nil, err
			}
			msg, err := transport.DecodeCeremonyShare(cs, &wire)
			if err != nil {
				return nil, err
			}
			if err := nodes[i].ReceiveShare(msg); err != nil {
				return nil, fmt.Errorf("node %d rejected share from %d: %w", i, env.SenderIdx, err)
			}
		}
	}

	outputs := make(map[int]*dkg.Output, n)
	for i := 1; i <= n; i++ {
		if err := nodes[i].VerifyShares(); err != nil {
			return nil, fmt.Errorf("node %d share verification: %w", i, err)
		}
		out, err := nodes[i].Finalize()
		if err != nil {
			return nil, fmt.Errorf("node %d finalize: %w", i, err)
		}
		outputs[i] = out
	}
	return outputs, nil
}

// runIssuance issues group key shares to the members of gid. Each quorum
// node deals a commitment and one subshare per member through the transport;
// members verify every dealer against the master commitments before
// assembling their share. Returns each member's group key share and the
// public per-member verification keys.
func runIssuance(ctx context.Context, cs ciphersuite.Ciphersuite, mt *memory.Transport, sessionID string, outputs map[int]*dkg.Output, quorum []int, gid *identity.GroupIdentity) (map[int]*keyissue.GroupKeyShare, map[int]group.Element, error) {
	serializer := mt.Serializer()
	grp := cs.Group()

	if err := mt.CreateSession(&transport.SessionConfig{
		SessionID:       sessionID,
		Phase:           transport.PhaseIssuance,
		GroupID:         gid.ID,
		Threshold:       gid.Threshold,
		NumParticipants: gid.Members,
	}); err != nil {
		return nil, nil, err
	}
	defer mt.CloseSession(sessionID)

	members := make(map[int]*memory.Participant, gid.Members)
	for m := 1; m <= gid.Members; m++ {
		p, err := mt.Join(sessionID, m)
		if err != nil {
			return nil, nil, err
		}
		members[m] = p
	}

	var mpk *dkg.MasterPublicKey
	var commitS, commitZ *dkg.Commitment

	// Every quorum node deals its commitment and subshares.
	for _, idx := range quorum {
		out, ok := outputs[idx]
		if !ok {
			return nil, nil, fmt.Errorf("no ceremony output for quorum node %d", idx)
		}
		mpk = out.PublicKey
		commitS = out.CommitmentS
		commitZ = out.CommitmentZ

		dealer, err := keyissue.NewDealer(cs, out.Share, quorum, out.PublicKey.Threshold, gid)
		if err != nil {
			return nil, nil, err
		}

		commitBytes, err := dealer.Commitment().ToBytes(grp)
		if err != nil {
			dealer.Zeroize()
			return nil, nil, err
		}
		for m := 1; m <= gid.Members; m++ {
			payload, err := serializer.Marshal(&transport.DealerCommitmentMessage{
				DealerIndex: idx,
				GroupID:     gid.ID,
				Commitment:  commitBytes,
			})
			if err != nil {
				dealer.Zeroize()
				return nil, nil, err
			}
			if err := mt.Send(ctx, sessionID, m, envelope(sessionID, transport.MsgTypeDealerCommitment, idx, payload)); err != nil {
				dealer.Zeroize()
				return nil, nil, err
			}

			subShare, err := dealer.SubShare(m)
			if err != nil {
				dealer.Zeroize()
				return nil, nil, err
			}
			payload, err = serializer.Marshal(&transport.SubShareMessage{
				DealerIndex: idx,
				MemberIndex: m,
				GroupID:     gid.ID,
				Value:       grp.SerializeScalar(subShare),
			})
			if err != nil {
				dealer.Zeroize()
				return nil, nil, err
			}
			if err := mt.Send(ctx, sessionID, m, envelope(sessionID, transport.MsgTypeSubShare, idx, payload)); err != nil {
				dealer.Zeroize()
				return nil, nil, err
			}
		}
		dealer.Zeroize()
	}

	// Every member collects one commitment and one subshare per dealer,
	// verifies the dealers and assembles its share.
	shares := make(map[int]*keyissue.GroupKeyShare, gid.Members)
	var verificationKeys map[int]group.Element
	for m := 1; m <= gid.Members; m++ {
		subShares := make(map[int]group.Scalar, len(quorum))
		commitments := make(map[int]*dkg.Commitment, len(quorum))

		for r := 0; r < 2*len(quorum); r++ {
			env, err := members[m].Receive(ctx)
			if err != nil {
				return nil, nil, err
			}
			switch env.Type {
			case transport.MsgTypeDealerCommitment:
				var wire transport.DealerCommitmentMessage
				if err := serializer.Unmarshal(env.Payload, &wire); err != nil {
					return nil, nil, err
				}
				commitment, err := dkg.CommitmentFromBytes(grp, wire.Commitment, gid.Threshold)
				if err != nil {
					return nil, nil, err
				}
				if err := keyissue.VerifyDealerCommitment(cs, commitS, commitZ, gid, wire.DealerIndex, quorum, commitment); err != nil {
					return nil, nil, fmt.Errorf("member %d rejected dealer %d: %w", m, wire.DealerIndex, err)
				}
				commitments[wire.DealerIndex] = commitment
			case transport.MsgTypeSubShare:
				var wire transport.SubShareMessage
				if err := serializer.Unmarshal(env.Payload, &wire); err != nil {
					return nil, nil, err
				}
				value, err := grp.DeserializeScalar(wire.Value)
				if err != nil {
					return nil, nil, err
				}
				subShares[wire.DealerIndex] = value
			default:
				return nil, nil, transport.ErrUnexpectedMessage
			}
		}

		share, err := keyissue.AssembleMemberShare(cs, mpk, gid, m, subShares, commitments)
		if err != nil {
			return nil, nil, fmt.Errorf("member %d assembly: %w", m, err)
		}
		shares[m] = share

		if verificationKeys == nil {
			verificationKeys, err = keyissue.MemberVerificationKeys(cs, gid, commitments)
			if err != nil {
				return nil, nil, err
			}
		}
	}
	return shares, verificationKeys, nil
}
