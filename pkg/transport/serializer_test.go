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

package transport

import (
	"testing"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/ed25519_sha512"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-dibtd/pkg/dkg"
)

func TestSerializerCodecs(t *testing.T) {
	msg := &DecryptionShareMessage{
		GroupID:     "cardiology",
		MemberIndex: 3,
		Share:       []byte{0x01, 0x02, 0x03},
	}

	for _, codec := range []string{"json", "msgpack", "cbor", "yaml", "bson", "toml"} {
		t.Run(codec, func(t *testing.T) {
			s, err := NewSerializer(codec)
			require.NoError(t, err)
			assert.Equal(t, codec, s.CodecType())

			data, err := s.Marshal(msg)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			var decoded DecryptionShareMessage
			require.NoError(t, s.Unmarshal(data, &decoded))
			assert.Equal(t, msg.GroupID, decoded.GroupID)
			assert.Equal(t, msg.MemberIndex, decoded.MemberIndex)
			assert.Equal(t, msg.Share, decoded.Share)
		})
	}
}

func TestSerializerUnsupportedCodec(t *testing.T) {
	_, err := NewSerializer("protobuf")
	require.Error(t, err)

	var serr *SerializerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "create", serr.Operation)
	assert.Equal(t, "protobuf", serr.CodecType)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	s, err := NewSerializer("cbor")
	require.NoError(t, err)

	msg := &SubShareMessage{
		DealerIndex: 2,
		MemberIndex: 4,
		GroupID:     "oncology",
		Value:       []byte{0xaa, 0xbb},
	}

	data, err := s.MarshalEnvelope("session-42", MsgTypeSubShare, 2, msg)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, s.UnmarshalEnvelope(data, &env))
	assert.Equal(t, "session-42", env.SessionID)
	assert.Equal(t, MsgTypeSubShare, env.Type)
	assert.Equal(t, 2, env.SenderIdx)
	assert.NotZero(t, env.Timestamp)

	var decoded SubShareMessage
	require.NoError(t, s.UnmarshalPayload(&env, &decoded))
	assert.Equal(t, msg.GroupID, decoded.GroupID)
	assert.Equal(t, msg.Value, decoded.Value)
}

func TestAnnouncementConversion(t *testing.T) {
	cs := ed25519_sha512.New()

	node, err := dkg.NewNode(dkg.Config{
		Ciphersuite:  cs,
		SessionID:    "wire",
		Index:        1,
		Threshold:    2,
		Participants: 3,
	})
	require.NoError(t, err)

	wire, err := EncodeAnnouncement(cs, node.Announcement())
	require.NoError(t, err)
	assert.Equal(t, 1, wire.Index)
	assert.Len(t, wire.CommitmentS, 2*cs.Group().ElementLength())

	decoded, err := DecodeAnnouncement(cs, 2, wire)
	require.NoError(t, err)

	// The decoded announcement must be accepted by a peer, which exercises
	// proof-of-possession verification over the wire form.
	peer, err := dkg.NewNode(dkg.Config{
		Ciphersuite:  cs,
		SessionID:    "wire",
		Index:        2,
		Threshold:    2,
		Participants: 3,
	})
	require.NoError(t, err)
	require.NoError(t, peer.ReceiveAnnouncement(decoded))
}

func TestAnnouncementConversionRejectsGarbage(t *testing.T) {
	cs := ed25519_sha512.New()

	_, err := DecodeAnnouncement(cs, 2, &AnnounceMessage{
		Index:       1,
		CommitmentS: []byte{0x01},
		CommitmentZ: []byte{0x02},
	})
	require.ErrorIs(t, err, ErrInvalidMessage)

	_, err = DecodeAnnouncement(cs, 2, nil)
	require.ErrorIs(t, err, ErrInvalidMessage)
}

func TestCeremonyShareConversion(t *testing.T) {
	cs := ed25519_sha512.New()
	grp := cs.Group()

	evalS, err := grp.RandomScalar()
	require.NoError(t, err)
	evalZ, err := grp.RandomScalar()
	require.NoError(t, err)

	msg := &dkg.ShareMessage{From: 1, To: 2, EvalS: evalS, EvalZ: evalZ}
	wire, err := EncodeCeremonyShare(cs, msg)
	require.NoError(t, err)
	assert.Len(t, wire.EvalS, grp.ScalarLength())

	decoded, err := DecodeCeremonyShare(cs, wire)
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.From)
	assert.Equal(t, 2, decoded.To)
	assert.True(t, decoded.EvalS.Equal(evalS))
	assert.True(t, decoded.EvalZ.Equal(evalZ))
}

func TestSessionConfigValidation(t *testing.T) {
	valid := &SessionConfig{
		SessionID:       "s1",
		Phase:           PhaseCeremony,
		Threshold:       2,
		NumParticipants: 3,
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name string
		mut  func(*SessionConfig)
		want error
	}{
		{"EmptyID", func(c *SessionConfig) { c.SessionID = "" }, ErrInvalidConfig},
		{"NoParticipants", func(c *SessionConfig) { c.NumParticipants = 0 }, ErrInvalidParticipantCount},
		{"ThresholdTooHigh", func(c *SessionConfig) { c.Threshold = 4 }, ErrInvalidThreshold},
		{"CeremonyWithGroup", func(c *SessionConfig) { c.GroupID = "cardiology" }, ErrInvalidConfig},
		{"IssuanceWithoutGroup", func(c *SessionConfig) { c.Phase = PhaseIssuance }, ErrInvalidConfig},
		{"UnknownPhase", func(c *SessionConfig) { c.Phase = "signing" }, ErrInvalidConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := *valid
			tc.mut(&cfg)
			require.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}
}
