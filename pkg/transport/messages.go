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

// MessageType identifies protocol messages
type MessageType uint8

const (
	MsgTypeAnnounce         MessageType = 1 // Ceremony commitment announcement
	MsgTypeCeremonyShare    MessageType = 2 // Ceremony dealt share (confidential)
	MsgTypeDealerCommitment MessageType = 3 // Issuance dealer commitment broadcast
	MsgTypeSubShare         MessageType = 4 // Issuance subshare (confidential)
	MsgTypeDecryptionShare  MessageType = 5 // Proven partial decryption
	MsgTypeError            MessageType = 6 // Error message
	MsgTypeComplete         MessageType = 7 // Phase completion
)

// Envelope wraps all messages for transport
type Envelope struct {
	SessionID string      `json:"session_id" msgpack:"session_id" cbor:"1,keyasint" yaml:"session_id" bson:"session_id"`
	Type      MessageType `json:"type" msgpack:"type" cbor:"2,keyasint" yaml:"type" bson:"type"`
	SenderIdx int         `json:"sender_idx" msgpack:"sender_idx" cbor:"3,keyasint" yaml:"sender_idx" bson:"sender_idx"`
	Payload   []byte      `json:"payload" msgpack:"payload" cbor:"4,keyasint" yaml:"payload" bson:"payload"`
	Timestamp int64       `json:"timestamp" msgpack:"timestamp" cbor:"5,keyasint" yaml:"timestamp" bson:"timestamp"`
}

// AnnounceMessage - a DKGC node's ceremony round-one broadcast: serialized
// commitments to both master polynomials with proofs of possession
type AnnounceMessage struct {
	Index       int    `json:"index" msgpack:"index" cbor:"1,keyasint" yaml:"index" bson:"index"`
	CommitmentS []byte `json:"commitment_s" msgpack:"commitment_s" cbor:"2,keyasint" yaml:"commitment_s" bson:"commitment_s"`
	CommitmentZ []byte `json:"commitment_z" msgpack:"commitment_z" cbor:"3,keyasint" yaml:"commitment_z" bson:"commitment_z"`
	ProofS      []byte `json:"proof_s" msgpack:"proof_s" cbor:"4,keyasint" yaml:"proof_s" bson:"proof_s"`
	ProofZ      []byte `json:"proof_z" msgpack:"proof_z" cbor:"5,keyasint" yaml:"proof_z" bson:"proof_z"`
}

// CeremonyShareMessage - a dealt pair of polynomial evaluations for one
// recipient node. Confidential; must only travel point-to-point.
type CeremonyShareMessage struct {
	From  int    `json:"from" msgpack:"from" cbor:"1,keyasint" yaml:"from" bson:"from"`
	To    int    `json:"to" msgpack:"to" cbor:"2,keyasint" yaml:"to" bson:"to"`
	EvalS []byte `json:"eval_s" msgpack:"eval_s" cbor:"3,keyasint" yaml:"eval_s" bson:"eval_s"`
	EvalZ []byte `json:"eval_z" msgpack:"eval_z" cbor:"4,keyasint" yaml:"eval_z" bson:"eval_z"`
}

// DealerCommitmentMessage - an issuance dealer's commitment broadcast
type DealerCommitmentMessage struct {
	DealerIndex int    `json:"dealer_index" msgpack:"dealer_index" cbor:"1,keyasint" yaml:"dealer_index" bson:"dealer_index"`
	GroupID     string `json:"group_id" msgpack:"group_id" cbor:"2,keyasint" yaml:"group_id" bson:"group_id"`
	Commitment  []byte `json:"commitment" msgpack:"commitment" cbor:"3,keyasint" yaml:"commitment" bson:"commitment"`
}

// SubShareMessage - an issuance subshare for one group member.
// Confidential; must only travel point-to-point.
type SubShareMessage struct {
	DealerIndex int    `json:"dealer_index" msgpack:"dealer_index" cbor:"1,keyasint" yaml:"dealer_index" bson:"dealer_index"`
	MemberIndex int    `json:"member_index" msgpack:"member_index" cbor:"2,keyasint" yaml:"member_index" bson:"member_index"`
	GroupID     string `json:"group_id" msgpack:"group_id" cbor:"3,keyasint" yaml:"group_id" bson:"group_id"`
	Value       []byte `json:"value" msgpack:"value" cbor:"4,keyasint" yaml:"value" bson:"value"`
}

// DecryptionShareMessage - a member's proven partial decryption for one
// ciphertext
type DecryptionShareMessage struct {
	GroupID     string `json:"group_id" msgpack:"group_id" cbor:"1,keyasint" yaml:"group_id" bson:"group_id"`
	MemberIndex int    `json:"member_index" msgpack:"member_index" cbor:"2,keyasint" yaml:"member_index" bson:"member_index"`
	Share       []byte `json:"share" msgpack:"share" cbor:"3,keyasint" yaml:"share" bson:"share"`
}

// ErrorMessage - error details
type ErrorMessage struct {
	Code    int    `json:"code" msgpack:"code" cbor:"1,keyasint" yaml:"code" bson:"code"`
	Message string `json:"message" msgpack:"message" cbor:"2,keyasint" yaml:"message" bson:"message"`
}

// CompleteMessage - phase completion with the resulting public data
type CompleteMessage struct {
	MasterPublicKeyY     []byte `json:"mpk_y" msgpack:"mpk_y" cbor:"1,keyasint" yaml:"mpk_y" bson:"mpk_y"`
	MasterPublicKeyGamma []byte `json:"mpk_gamma" msgpack:"mpk_gamma" cbor:"2,keyasint" yaml:"mpk_gamma" bson:"mpk_gamma"`
}
