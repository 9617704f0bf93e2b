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

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-dibtd/pkg/dibtd"
	"github.com/jeremyhahn/go-dibtd/pkg/dkg"
	"github.com/jeremyhahn/go-dibtd/pkg/transport"
)

var (
	decryptDeployment string
	decryptIn         string
	decryptOut        string
	decryptMembers    []int
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Combine member shares and decrypt a record",
	Long: `Produce partial decryptions with the listed members' key shares,
verify each share's correctness proof, combine a threshold of them and
decrypt the record.

Example:

  dibtd decrypt --deployment deployment.yaml --in record.enc \
    --members 1,3 --out record.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serializer, err := transport.NewSerializer(codecName)
		if err != nil {
			return err
		}
		deployment, err := readDeployment(decryptDeployment, serializer)
		if err != nil {
			return err
		}

		cs, err := newCiphersuite(deployment.Ciphersuite)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(decryptIn)
		if err != nil {
			return fmt.Errorf("read ciphertext: %w", err)
		}
		ct, err := dibtd.UnmarshalCiphertext(cs, data)
		if err != nil {
			return fmt.Errorf("parse ciphertext: %w", err)
		}

		dg, err := deployment.group(ct.GroupID)
		if err != nil {
			return err
		}
		if len(decryptMembers) < dg.Threshold {
			return fmt.Errorf("group %q requires %d members, got %d", dg.ID, dg.Threshold, len(decryptMembers))
		}

		engine := newEngine(cs)

		shares := make([]*dibtd.DecryptionShare, 0, len(decryptMembers))
		for _, m := range decryptMembers {
			keyShare, err := dg.memberShare(cs, m)
			if err != nil {
				return err
			}
			share, err := engine.ShareDecrypt(keyShare, ct)
			keyShare.Zeroize()
			if err != nil {
				return fmt.Errorf("member %d partial decryption: %w", m, err)
			}
			shares = append(shares, share)
		}
		for _, m := range dg.Issued {
			dkg.ZeroBytes(m.Share)
		}

		verificationKeys, err := dg.verificationKeys(cs)
		if err != nil {
			return err
		}
		plaintext, err := engine.Decrypt(ct, dg.identity(), shares, verificationKeys)
		if err != nil {
			return fmt.Errorf("decrypt: %w", err)
		}

		if err := os.WriteFile(decryptOut, plaintext, 0600); err != nil {
			return fmt.Errorf("write plaintext: %w", err)
		}
		fmt.Printf("Decrypted %d bytes from group %q -> %s\n", len(plaintext), ct.GroupID, decryptOut)
		return nil
	},
}

func init() {
	decryptCmd.Flags().StringVar(&decryptDeployment, "deployment", "deployment.yaml", "deployment file from keygen")
	decryptCmd.Flags().StringVar(&decryptIn, "in", "", "ciphertext input file")
	decryptCmd.Flags().StringVar(&decryptOut, "out", "", "plaintext output file")
	decryptCmd.Flags().IntSliceVar(&decryptMembers, "members", nil, "member indices contributing shares")

	for _, flag := range []string{"in", "out", "members"} {
		if err := decryptCmd.MarkFlagRequired(flag); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag required: %v", flag, err))
		}
	}
}
