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

	"github.com/jeremyhahn/go-dibtd/pkg/transport"
)

var (
	encryptDeployment string
	encryptGroupID    string
	encryptIn         string
	encryptOut        string
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt a record to a group",
	Long: `Encrypt a record so that only a threshold of the named group's
members can jointly decrypt it. Encryption needs only the public data in
the deployment file; no key shares are read.

Example:

  dibtd encrypt --deployment deployment.yaml --group cardiology \
    --in record.json --out record.enc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serializer, err := transport.NewSerializer(codecName)
		if err != nil {
			return err
		}
		deployment, err := readDeployment(encryptDeployment, serializer)
		if err != nil {
			return err
		}

		cs, err := newCiphersuite(deployment.Ciphersuite)
		if err != nil {
			return err
		}
		mpk, err := deployment.masterPublicKey(cs)
		if err != nil {
			return err
		}
		dg, err := deployment.group(encryptGroupID)
		if err != nil {
			return err
		}

		plaintext, err := os.ReadFile(encryptIn)
		if err != nil {
			return fmt.Errorf("read plaintext: %w", err)
		}

		engine := newEngine(cs)
		ct, err := engine.Encrypt(mpk, dg.identity(), plaintext)
		if err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}

		data, err := ct.MarshalBinary(cs)
		if err != nil {
			return err
		}
		if err := os.WriteFile(encryptOut, data, 0644); err != nil {
			return fmt.Errorf("write ciphertext: %w", err)
		}
		fmt.Printf("Encrypted %d bytes to group %q (%d byte ciphertext) -> %s\n",
			len(plaintext), encryptGroupID, len(data), encryptOut)
		return nil
	},
}

func init() {
	encryptCmd.Flags().StringVar(&encryptDeployment, "deployment", "deployment.yaml", "deployment file from keygen")
	encryptCmd.Flags().StringVar(&encryptGroupID, "group", "", "target group id")
	encryptCmd.Flags().StringVar(&encryptIn, "in", "", "plaintext input file")
	encryptCmd.Flags().StringVar(&encryptOut, "out", "", "ciphertext output file")

	for _, flag := range []string{"group", "in", "out"} {
		if err := encryptCmd.MarkFlagRequired(flag); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag required: %v", flag, err))
		}
	}
}
