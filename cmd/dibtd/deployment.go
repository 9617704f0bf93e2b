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
	"fmt"
	"os"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
	"github.com/jeremyhahn/go-frost/pkg/frost/group"

	"github.com/jeremyhahn/go-dibtd/pkg/dkg"
	"github.com/jeremyhahn/go-dibtd/pkg/identity"
	"github.com/jeremyhahn/go-dibtd/pkg/keyissue"
	"github.com/jeremyhahn/go-dibtd/pkg/transport"
)

// deploymentMember holds one group member's issued key material.
//
// WARNING: the share is a secret. A deployment file containing member
// shares must be protected like a private key; it exists so the CLI can
// demonstrate the protocol without a per-member key store.
type deploymentMember struct {
	Index           int    `json:"index" msgpack:"index" cbor:"1,keyasint" yaml:"index" bson:"index"`
	Share           []byte `json:"share" msgpack:"share" cbor:"2,keyasint" yaml:"share" bson:"share"`
	VerificationKey []byte `json:"verification_key" msgpack:"verification_key" cbor:"3,keyasint" yaml:"verification_key" bson:"verification_key"`
}

// deploymentGroup holds one group's identity, public key and issued members.
type deploymentGroup struct {
	ID        string             `json:"id" msgpack:"id" cbor:"1,keyasint" yaml:"id" bson:"id"`
	Threshold int                `json:"threshold" msgpack:"threshold" cbor:"2,keyasint" yaml:"threshold" bson:"threshold"`
	Members   int                `json:"members" msgpack:"members" cbor:"3,keyasint" yaml:"members" bson:"members"`
	PublicKey []byte             `json:"public_key" msgpack:"public_key" cbor:"4,keyasint" yaml:"public_key" bson:"public_key"`
	Issued    []deploymentMember `json:"issued" msgpack:"issued" cbor:"5,keyasint" yaml:"issued" bson:"issued"`
}

// deploymentFile is the on-disk record of a completed key generation
// ceremony and the groups keys were issued to.
type deploymentFile struct {
	Ciphersuite          string            `json:"ciphersuite" msgpack:"ciphersuite" cbor:"1,keyasint" yaml:"ciphersuite" bson:"ciphersuite"`
	SessionID            string            `json:"session_id" msgpack:"session_id" cbor:"2,keyasint" yaml:"session_id" bson:"session_id"`
	Threshold            int               `json:"threshold" msgpack:"threshold" cbor:"3,keyasint" yaml:"threshold" bson:"threshold"`
	Participants         int               `json:"participants" msgpack:"participants" cbor:"4,keyasint" yaml:"participants" bson:"participants"`
	MasterPublicKeyY     []byte            `json:"mpk_y" msgpack:"mpk_y" cbor:"5,keyasint" yaml:"mpk_y" bson:"mpk_y"`
	MasterPublicKeyGamma []byte            `json:"mpk_gamma" msgpack:"mpk_gamma" cbor:"6,keyasint" yaml:"mpk_gamma" bson:"mpk_gamma"`
	Groups               []deploymentGroup `json:"groups" msgpack:"groups" cbor:"7,keyasint" yaml:"groups" bson:"groups"`
}

func writeDeployment(path string, s *transport.Serializer, d *deploymentFile) error {
	data, err := s.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal deployment: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write deployment: %w", err)
	}
	return nil
}

func readDeployment(path string, s *transport.Serializer) (*deploymentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deployment: %w", err)
	}
	var d deploymentFile
	if err := s.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse deployment: %w", err)
	}
	return &d, nil
}

func (d *deploymentFile) group(id string) (*deploymentGroup, error) {
	for i := range d.Groups {
		if d.Groups[i].ID == id {
			return &d.Groups[i], nil
		}
	}
	return nil, fmt.Errorf("group %q not found in deployment", id)
}

func (d *deploymentFile) masterPublicKey(cs ciphersuite.Ciphersuite) (*dkg.MasterPublicKey, error) {
	grp := cs.Group()
	y, err := grp.DeserializeElement(d.MasterPublicKeyY)
	if err != nil {
		return nil, fmt.Errorf("master public key Y: %w", err)
	}
	gamma, err := grp.DeserializeElement(d.MasterPublicKeyGamma)
	if err != nil {
		return nil, fmt.Errorf("master public key Gamma: %w", err)
	}
	return &dkg.MasterPublicKey{
		Y:            y,
		Gamma:        gamma,
		Threshold:    d.Threshold,
		Participants: d.Participants,
	}, nil
}

func (g *deploymentGroup) identity() *identity.GroupIdentity {
	return &identity.GroupIdentity{ID: g.ID, Threshold: g.Threshold, Members: g.Members}
}

// memberShare reconstructs a member's group key share from the deployment.
func (g *deploymentGroup) memberShare(cs ciphersuite.Ciphersuite, index int) (*keyissue.GroupKeyShare, error) {
	grp := cs.Group()
	for _, m := range g.Issued {
		if m.Index != index {
			continue
		}
		psi, err := grp.DeserializeScalar(m.Share)
		if err != nil {
			return nil, fmt.Errorf("member %d share: %w", index, err)
		}
		vk, err := grp.DeserializeElement(m.VerificationKey)
		if err != nil {
			return nil, fmt.Errorf("member %d verification key: %w", index, err)
		}
		return &keyissue.GroupKeyShare{
			GroupID:         g.ID,
			MemberIndex:     index,
			Threshold:       g.Threshold,
			Psi:             psi,
			VerificationKey: vk,
		}, nil
	}
	return nil, fmt.Errorf("member %d not found in group %q", index, g.ID)
}

// verificationKeys decodes all issued member verification keys.
func (g *deploymentGroup) verificationKeys(cs ciphersuite.Ciphersuite) (map[int]group.Element, error) {
	grp := cs.Group()
	keys := make(map[int]group.Element, len(g.Issued))
	for _, m := range g.Issued {
		vk, err := grp.DeserializeElement(m.VerificationKey)
		if err != nil {
			return nil, fmt.Errorf("member %d verification key: %w", m.Index, err)
		}
		keys[m.Index] = vk
	}
	return keys, nil
}
