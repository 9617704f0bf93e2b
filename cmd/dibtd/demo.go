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

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-dibtd/pkg/dibtd"
	"github.com/jeremyhahn/go-dibtd/pkg/identity"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the full protocol end to end in one process",
	Long: `Run a complete walkthrough in one process: a 3-of-5 key generation
ceremony, 2-of-4 key issuance for a cardiology department, encryption of a
sample health record to the department, and threshold decryption by two of
its members. All protocol messages travel through the in-memory transport
in their wire form.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := newCiphersuite(ciphersuiteName)
		if err != nil {
			return err
		}
		mt, err := newTransport(transportConfig())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		const (
			nodes     = 5
			threshold = 3
		)
		sessionID := uuid.NewString()
		fmt.Printf("== Key generation ceremony: %d-of-%d, ciphersuite %s, codec %s\n",
			threshold, nodes, ciphersuiteName, mt.Serializer().CodecType())

		outputs, err := runCeremony(ctx, cs, mt, sessionID, nodes, threshold)
		if err != nil {
			return err
		}
		mpk := outputs[1].PublicKey
		fmt.Printf("   %d nodes finalized; qualified set %v\n", len(outputs), outputs[1].Qualified)
		fmt.Println("   Dual master secret exists only as shares; no node holds it.")

		gid := &identity.GroupIdentity{ID: "cardiology", Threshold: 2, Members: 4}
		quorum := outputs[1].Qualified[:threshold]
		fmt.Printf("\n== Key issuance: %d-of-%d for group %q via quorum %v\n",
			gid.Threshold, gid.Members, gid.ID, quorum)

		shares, verificationKeys, err := runIssuance(ctx, cs, mt, uuid.NewString(), outputs, quorum, gid)
		if err != nil {
			return err
		}
		fmt.Printf("   %d member key shares issued and verified against the master commitments\n", len(shares))

		engine := newEngine(cs)
		record := []byte(`{"patient":"0b3c9a","diagnosis":"I48.0","medication":"apixaban 5mg"}`)
		fmt.Printf("\n== Encrypting %d byte record to group %q\n", len(record), gid.ID)

		ct, err := engine.Encrypt(mpk, gid, record)
		if err != nil {
			return err
		}
		wire, err := ct.MarshalBinary(cs)
		if err != nil {
			return err
		}
		fmt.Printf("   Ciphertext: %d bytes, bound to group id via AEAD associated data\n", len(wire))

		fmt.Printf("\n== Threshold decryption by members 1 and 3\n")
		decShares := make([]*dibtd.DecryptionShare, 0, gid.Threshold)
		for _, m := range []int{1, 3} {
			share, err := engine.ShareDecrypt(shares[m], ct)
			if err != nil {
				return err
			}
			if err := engine.VerifyShare(ct, share, verificationKeys[m]); err != nil {
				return fmt.Errorf("member %d share failed verification: %w", m, err)
			}
			fmt.Printf("   Member %d produced a partial decryption with a valid correctness proof\n", m)
			decShares = append(decShares, share)
		}

		plaintext, err := engine.Decrypt(ct, gid, decShares, verificationKeys)
		if err != nil {
			return err
		}
		fmt.Printf("   Recovered record: %s\n", plaintext)

		fmt.Printf("\n== Negative check: a single member cannot decrypt\n")
		_, err = engine.Decrypt(ct, gid, decShares[:1], verificationKeys)
		if err == nil {
			return fmt.Errorf("decryption with one share unexpectedly succeeded")
		}
		fmt.Printf("   Rejected as expected: %v\n", err)

		for _, s := range shares {
			s.Zeroize()
		}
		for _, out := range outputs {
			out.Share.Zeroize()
		}
		return nil
	},
}
