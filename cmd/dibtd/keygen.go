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
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-dibtd/pkg/dkg"
	"github.com/jeremyhahn/go-dibtd/pkg/identity"
)

var (
	keygenNodes     int
	keygenThreshold int
	keygenGroups    []string
	keygenOut       string
	keygenTimeout   time.Duration
)

// parseGroupSpec parses "id:threshold:members", e.g. "cardiology:2:4".
func parseGroupSpec(spec string) (*identity.GroupIdentity, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid group spec %q, want id:threshold:members", spec)
	}
	threshold, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid group threshold in %q: %w", spec, err)
	}
	members, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid group member count in %q: %w", spec, err)
	}
	gid := &identity.GroupIdentity{ID: parts[0], Threshold: threshold, Members: members}
	if err := gid.Validate(); err != nil {
		return nil, err
	}
	return gid, nil
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Run a key generation ceremony and issue group keys",
	Long: `Run a full key generation ceremony among the configured number of
nodes, then issue per-group decryption key shares for every --group spec.

The resulting master public key, group public keys, member shares and
verification keys are written to the deployment file. The dual master
secret itself never exists; only its shares do, and they are discarded
once issuance completes.

Example:

  dibtd keygen --nodes 5 --threshold 3 \
    --group cardiology:2:4 --group oncology:3:5 \
    --out deployment.yaml --codec yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := newCiphersuite(ciphersuiteName)
		if err != nil {
			return err
		}
		grp := cs.Group()

		mt, err := newTransport(transportConfig())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), keygenTimeout)
		defer cancel()

		sessionID := uuid.NewString()
		fmt.Printf("Running %d-of-%d key generation ceremony (session %s)\n", keygenThreshold, keygenNodes, sessionID)

		outputs, err := runCeremony(ctx, cs, mt, sessionID, keygenNodes, keygenThreshold)
		if err != nil {
			return fmt.Errorf("ceremony failed: %w", err)
		}

		mpk := outputs[1].PublicKey
		yBytes, err := grp.SerializeElement(mpk.Y)
		if err != nil {
			return err
		}
		gammaBytes, err := grp.SerializeElement(mpk.Gamma)
		if err != nil {
			return err
		}
		deployment := &deploymentFile{
			Ciphersuite:          ciphersuiteName,
			SessionID:            sessionID,
			Threshold:            keygenThreshold,
			Participants:         keygenNodes,
			MasterPublicKeyY:     yBytes,
			MasterPublicKeyGamma: gammaBytes,
		}

		// Quorum for issuance: the first t qualified nodes.
		quorum := outputs[1].Qualified[:keygenThreshold]

		for _, spec := range keygenGroups {
			gid, err := parseGroupSpec(spec)
			if err != nil {
				return err
			}
			fmt.Printf("Issuing %d-of-%d keys for group %q\n", gid.Threshold, gid.Members, gid.ID)

			shares, verificationKeys, err := runIssuance(ctx, cs, mt, uuid.NewString(), outputs, quorum, gid)
			if err != nil {
				return fmt.Errorf("issuance for %q failed: %w", gid.ID, err)
			}

			engine := newEngine(cs)
			groupKey, err := engine.GroupPublicKey(mpk, gid)
			if err != nil {
				return err
			}
			groupKeyBytes, err := grp.SerializeElement(groupKey)
			if err != nil {
				return err
			}

			dg := deploymentGroup{
				ID:        gid.ID,
				Threshold: gid.Threshold,
				Members:   gid.Members,
				PublicKey: groupKeyBytes,
			}
			for m := 1; m <= gid.Members; m++ {
				vkBytes, err := grp.SerializeElement(verificationKeys[m])
				if err != nil {
					return err
				}
				dg.Issued = append(dg.Issued, deploymentMember{
					Index:           m,
					Share:           grp.SerializeScalar(shares[m].Psi),
					VerificationKey: vkBytes,
				})
				shares[m].Zeroize()
			}
			deployment.Groups = append(deployment.Groups, dg)
		}

		for _, out := range outputs {
			out.Share.Zeroize()
		}

		if err := writeDeployment(keygenOut, mt.Serializer(), deployment); err != nil {
			return err
		}
		for _, dg := range deployment.Groups {
			for _, m := range dg.Issued {
				dkg.ZeroBytes(m.Share)
			}
		}
		fmt.Printf("Deployment written to %s\n", keygenOut)
		return nil
	},
}

func init() {
	keygenCmd.Flags().IntVar(&keygenNodes, "nodes", 5, "number of key generation nodes")
	keygenCmd.Flags().IntVar(&keygenThreshold, "threshold", 3, "ceremony threshold")
	keygenCmd.Flags().StringArrayVar(&keygenGroups, "group", nil, "group spec id:threshold:members (repeatable)")
	keygenCmd.Flags().StringVar(&keygenOut, "out", "deployment.yaml", "deployment output file")
	keygenCmd.Flags().DurationVar(&keygenTimeout, "timeout", 30*time.Second, "ceremony timeout")
}
