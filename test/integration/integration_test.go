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

// Package integration provides end-to-end tests for the full protocol:
// key generation ceremony, group key issuance and threshold decryption,
// with every protocol message routed through the transport in wire form,
// across all supported ciphersuites.
package integration

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/ed25519_sha512"
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/ed448_shake256"
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/p256_sha256"
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/ristretto255_sha512"
	"github.com/jeremyhahn/go-frost/pkg/frost/group"

	"github.com/jeremyhahn/go-dibtd/pkg/dibtd"
	"github.com/jeremyhahn/go-dibtd/pkg/dkg"
	"github.com/jeremyhahn/go-dibtd/pkg/identity"
	"github.com/jeremyhahn/go-dibtd/pkg/keyissue"
	"github.com/jeremyhahn/go-dibtd/pkg/transport"
	"github.com/jeremyhahn/go-dibtd/pkg/transport/memory"
)

// CiphersuiteTestCase contains a ciphersuite and its metadata.
type CiphersuiteTestCase struct {
	Name        string
	Ciphersuite ciphersuite.Ciphersuite
	SkipReason  string // If non-empty, skip this ciphersuite with this reason
}

func getAllCiphersuites() []CiphersuiteTestCase {
	return []CiphersuiteTestCase{
		{
			Name:        "FROST-ED25519-SHA512-v1",
			Ciphersuite: ed25519_sha512.New(),
		},
		{
			Name:        "FROST-P256-SHA256-v1",
			Ciphersuite: p256_sha256.New(),
		},
		{
			Name:        "FROST-RISTRETTO255-SHA512-v1",
			Ciphersuite: ristretto255_sha512.New(),
		},
		{
			Name:        "FROST-ED448-SHAKE256-v1",
			Ciphersuite: ed448_shake256.New(),
		},
	}
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

// runCeremony executes a full ceremony over the transport and returns every
// node's output.
func runCeremony(t *testing.T, ctx context.Context, cs ciphersuite.Ciphersuite, mt *memory.Transport, n, threshold int) map[int]*dkg.Output {
	t.Helper()

	serializer := mt.Serializer()
	sessionID := uuid.NewString()
	if err := mt.CreateSession(&transport.SessionConfig{
		SessionID:       sessionID,
		Phase:           transport.PhaseCeremony,
		Threshold:       threshold,
		NumParticipants: n,
	}); err != nil {
		t.Fatalf("create ceremony session: %v", err)
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
			t.Fatalf("node %d: %v", i, err)
		}
		nodes[i] = node

		p, err := mt.Join(sessionID, i)
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		participants[i] = p
	}

	for i := 1; i <= n; i++ {
		wire, err := transport.EncodeAnnouncement(cs, nodes[i].Announcement())
		if err != nil {
			t.Fatalf("encode announcement %d: %v", i, err)
		}
		payload, err := serializer.Marshal(wire)
		if err != nil {
			t.Fatalf("marshal announcement %d: %v", i, err)
		}
		if err := mt.Broadcast(ctx, sessionID, envelope(sessionID, transport.MsgTypeAnnounce, i, payload)); err != nil {
			t.Fatalf("broadcast announcement %d: %v", i, err)
		}
	}
	for i := 1; i <= n; i++ {
		for j := 1; j < n; j++ {
			env, err := participants[i].Receive(ctx)
			if err != nil {
				t.Fatalf("node %d receive announcement: %v", i, err)
			}
			var wire transport.AnnounceMessage
			if err := serializer.Unmarshal(env.Payload, &wire); err != nil {
				t.Fatalf("node %d unmarshal announcement: %v", i, err)
			}
			announcement, err := transport.DecodeAnnouncement(cs, threshold, &wire)
			if err != nil {
				t.Fatalf("node %d decode announcement: %v", i, err)
			}
			if err := nodes[i].ReceiveAnnouncement(announcement); err != nil {
				t.Fatalf("node %d rejected announcement from %d: %v", i, env.SenderIdx, err)
			}
		}
	}

	for i := 1; i <= n; i++ {
		msgs, err := nodes[i].DistributeShares()
		if err != nil {
			t.Fatalf("node %d distribute: %v", i, err)
		}
		for _, msg := range msgs {
			wire, err := transport.EncodeCeremonyShare(cs, msg)
			if err != nil {
				t.Fatalf("encode share %d->%d: %v", msg.From, msg.To, err)
			}
			payload, err := serializer.Marshal(wire)
			if err != nil {
				t.Fatalf("marshal share %d->%d: %v", msg.From, msg.To, err)
			}
			if err := mt.Send(ctx, sessionID, msg.To, envelope(sessionID, transport.MsgTypeCeremonyShare, i, payload)); err != nil {
				t.Fatalf("send share %d->%d: %v", msg.From, msg.To, err)
			}
		}
	}
	for i := 1; i <= n; i++ {
		for j := 1; j < n; j++ {
			env, err := participants[i].Receive(ctx)
			if err != nil {
				t.Fatalf("node %d receive share: %v", i, err)
			}
			var wire transport.CeremonyShareMessage
			if err := serializer.Unmarshal(env.Payload, &wire); err != nil {
				t.Fatalf("node %d unmarshal share: %v", i, err)
			}
			msg, err := transport.DecodeCeremonyShare(cs, &wire)
			if err != nil {
				t.Fatalf("node %d decode share: %v", i, err)
			}
			if err := nodes[i].ReceiveShare(msg); err != nil {
				t.Fatalf("node %d rejected share from %d: %v", i, env.SenderIdx, err)
			}
		}
	}

	outputs := make(map[int]*dkg.Output, n)
	for i := 1; i <= n; i++ {
		if err := nodes[i].VerifyShares(); err != nil {
			t.Fatalf("node %d verify: %v", i, err)
		}
		out, err := nodes[i].Finalize()
		if err != nil {
			t.Fatalf("node %d finalize: %v", i, err)
		}
		outputs[i] = out
	}
	return outputs
}

// runIssuance issues group key shares over the transport.
func runIssuance(t *testing.T, ctx context.Context, cs ciphersuite.Ciphersuite, mt *memory.Transport, outputs map[int]*dkg.Output, quorum []int, gid *identity.GroupIdentity) (map[int]*keyissue.GroupKeyShare, map[int]group.Element) {
	t.Helper()

	serializer := mt.Serializer()
	grp := cs.Group()
	sessionID := uuid.NewString()
	if err := mt.CreateSession(&transport.SessionConfig{
		SessionID:       sessionID,
		Phase:           transport.PhaseIssuance,
		GroupID:         gid.ID,
		Threshold:       gid.Threshold,
		NumParticipants: gid.Members,
	}); err != nil {
		t.Fatalf("create issuance session: %v", err)
	}
	defer mt.CloseSession(sessionID)

	members := make(map[int]*memory.Participant, gid.Members)
	for m := 1; m <= gid.Members; m++ {
		p, err := mt.Join(sessionID, m)
		if err != nil {
			t.Fatalf("member %d join: %v", m, err)
		}
		members[m] = p
	}

	ref := outputs[quorum[0]]
	for _, idx := range quorum {
		out := outputs[idx]
		dealer, err := keyissue.NewDealer(cs, out.Share, quorum, out.PublicKey.Threshold, gid)
		if err != nil {
			t.Fatalf("dealer %d: %v", idx, err)
		}
		commitBytes, err := dealer.Commitment().ToBytes(grp)
		if err != nil {
			t.Fatalf("dealer %d commitment: %v", idx, err)
		}
		for m := 1; m <= gid.Members; m++ {
			payload, err := serializer.Marshal(&transport.DealerCommitmentMessage{
				DealerIndex: idx,
				GroupID:     gid.ID,
				Commitment:  commitBytes,
			})
			if err != nil {
				t.Fatalf("marshal commitment %d: %v", idx, err)
			}
			if err := mt.Send(ctx, sessionID, m, envelope(sessionID, transport.MsgTypeDealerCommitment, idx, payload)); err != nil {
				t.Fatalf("send commitment %d->%d: %v", idx, m, err)
			}

			subShare, err := dealer.SubShare(m)
			if err != nil {
				t.Fatalf("dealer %d subshare for %d: %v", idx, m, err)
			}
			payload, err = serializer.Marshal(&transport.SubShareMessage{
				DealerIndex: idx,
				MemberIndex: m,
				GroupID:     gid.ID,
				Value:       grp.SerializeScalar(subShare),
			})
			if err != nil {
				t.Fatalf("marshal subshare %d->%d: %v", idx, m, err)
			}
			if err := mt.Send(ctx, sessionID, m, envelope(sessionID, transport.MsgTypeSubShare, idx, payload)); err != nil {
				t.Fatalf("send subshare %d->%d: %v", idx, m, err)
			}
		}
		dealer.Zeroize()
	}

	shares := make(map[int]*keyissue.GroupKeyShare, gid.Members)
	var verificationKeys map[int]group.Element
	for m := 1; m <= gid.Members; m++ {
		subShares := make(map[int]group.Scalar, len(quorum))
		commitments := make(map[int]*dkg.Commitment, len(quorum))

		for r := 0; r < 2*len(quorum); r++ {
			env, err := members[m].Receive(ctx)
			if err != nil {
				t.Fatalf("member %d receive: %v", m, err)
			}
			switch env.Type {
			case transport.MsgTypeDealerCommitment:
				var wire transport.DealerCommitmentMessage
				if err := serializer.Unmarshal(env.Payload, &wire); err != nil {
					t.Fatalf("member %d unmarshal commitment: %v", m, err)
				}
				commitment, err := dkg.CommitmentFromBytes(grp, wire.Commitment, gid.Threshold)
				if err != nil {
					t.Fatalf("member %d decode commitment: %v", m, err)
				}
				if err := keyissue.VerifyDealerCommitment(cs, ref.CommitmentS, ref.CommitmentZ, gid, wire.DealerIndex, quorum, commitment); err != nil {
					t.Fatalf("member %d rejected dealer %d: %v", m, wire.DealerIndex, err)
				}
				commitments[wire.DealerIndex] = commitment
			case transport.MsgTypeSubShare:
				var wire transport.SubShareMessage
				if err := serializer.Unmarshal(env.Payload, &wire); err != nil {
					t.Fatalf("member %d unmarshal subshare: %v", m, err)
				}
				value, err := grp.DeserializeScalar(wire.Value)
				if err != nil {
					t.Fatalf("member %d decode subshare: %v", m, err)
				}
				subShares[wire.DealerIndex] = value
			default:
				t.Fatalf("member %d unexpected message type %d", m, env.Type)
			}
		}

		share, err := keyissue.AssembleMemberShare(cs, ref.PublicKey, gid, m, subShares, commitments)
		if err != nil {
			t.Fatalf("member %d assembly: %v", m, err)
		}
		shares[m] = share

		if verificationKeys == nil {
			verificationKeys, err = keyissue.MemberVerificationKeys(cs, gid, commitments)
			if err != nil {
				t.Fatalf("member verification keys: %v", err)
			}
		}
	}
	return shares, verificationKeys
}

// TestProtocolIntegration runs the full protocol with every supported
// ciphersuite and several committee configurations.
func TestProtocolIntegration(t *testing.T) {
	suites := getAllCiphersuites()

	for _, tc := range suites {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.SkipReason != "" {
				t.Skip(tc.SkipReason)
			}

			nodeCounts := []int{3, 5}
			thresholds := []int{2, 3}

			for i, n := range nodeCounts {
				threshold := thresholds[i]
				t.Run(fmt.Sprintf("%dof%d", threshold, n), func(t *testing.T) {
					testProtocolWithParams(t, tc.Ciphersuite, n, threshold)
				})
			}
		})
	}
}

// testProtocolWithParams runs ceremony, issuance, encryption and threshold
// decryption with specific committee parameters.
func testProtocolWithParams(t *testing.T, cs ciphersuite.Ciphersuite, n, threshold int) {
	t.Helper()

	mt, err := memory.New("cbor", nil)
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	outputs := runCeremony(t, ctx, cs, mt, n, threshold)

	// Every node must agree on the master public key.
	mpk := outputs[1].PublicKey
	for i := 2; i <= n; i++ {
		if !outputs[i].PublicKey.Y.Equal(mpk.Y) || !outputs[i].PublicKey.Gamma.Equal(mpk.Gamma) {
			t.Fatalf("node %d disagrees on the master public key", i)
		}
	}

	gid := &identity.GroupIdentity{ID: "cardiology", Threshold: 2, Members: 3}
	quorum := outputs[1].Qualified[:threshold]
	shares, verificationKeys := runIssuance(t, ctx, cs, mt, outputs, quorum, gid)

	engine := dibtd.NewEngine(cs)
	record := []byte(`{"patient":"0b3c9a","diagnosis":"I48.0"}`)

	ct, err := engine.Encrypt(mpk, gid, record)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	// The ciphertext survives its wire form.
	wire, err := ct.MarshalBinary(cs)
	if err != nil {
		t.Fatalf("marshal ciphertext: %v", err)
	}
	ct, err = dibtd.UnmarshalCiphertext(cs, wire)
	if err != nil {
		t.Fatalf("unmarshal ciphertext: %v", err)
	}

	// Members 1 and 3 decrypt; their shares travel in wire form too.
	decShares := make([]*dibtd.DecryptionShare, 0, gid.Threshold)
	for _, m := range []int{1, 3} {
		share, err := engine.ShareDecrypt(shares[m], ct)
		if err != nil {
			t.Fatalf("member %d share: %v", m, err)
		}
		shareWire, err := share.MarshalBinary(cs)
		if err != nil {
			t.Fatalf("member %d marshal share: %v", m, err)
		}
		share, err = dibtd.UnmarshalDecryptionShare(cs, shareWire)
		if err != nil {
			t.Fatalf("member %d unmarshal share: %v", m, err)
		}
		if err := engine.VerifyShare(ct, share, verificationKeys[m]); err != nil {
			t.Fatalf("member %d share verification: %v", m, err)
		}
		decShares = append(decShares, share)
	}

	plaintext, err := engine.Decrypt(ct, gid, decShares, verificationKeys)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(plaintext, record) {
		t.Fatalf("plaintext mismatch: got %q want %q", plaintext, record)
	}

	// Below the group threshold, decryption must fail.
	if _, err := engine.Decrypt(ct, gid, decShares[:1], verificationKeys); err == nil {
		t.Fatal("decryption below group threshold succeeded")
	}
}
