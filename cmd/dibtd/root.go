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
	"runtime"

	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite"
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/ed25519_sha512"
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/ed448_shake256"
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/p256_sha256"
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/ristretto255_sha512"
	"github.com/jeremyhahn/go-frost/pkg/frost/ciphersuite/secp256k1_sha256"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version information - set via ldflags at build time
var (
	// Version is the semantic version (from VERSION file)
	Version = "dev"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

var (
	cfgFile string
	verbose bool
)

// Global flags
var (
	codecName       string
	ciphersuiteName string
)

// Ciphersuite constants
const (
	CiphersuiteEd25519      = "FROST-ED25519-SHA512-v1"
	CiphersuiteRistretto255 = "FROST-RISTRETTO255-SHA512-v1"
	CiphersuiteP256         = "FROST-P256-SHA256-v1"
	CiphersuiteSecp256k1    = "FROST-SECP256K1-SHA256-v1"
	CiphersuiteEd448        = "FROST-ED448-SHAKE256-v1"
)

// ValidCiphersuites returns the list of supported ciphersuites
func ValidCiphersuites() []string {
	return []string{
		CiphersuiteEd25519,
		CiphersuiteRistretto255,
		CiphersuiteP256,
		CiphersuiteSecp256k1,
		CiphersuiteEd448,
	}
}

// newCiphersuite instantiates a ciphersuite by its wire name.
func newCiphersuite(name string) (ciphersuite.Ciphersuite, error) {
	switch name {
	case CiphersuiteEd25519:
		return ed25519_sha512.New(), nil
	case CiphersuiteRistretto255:
		return ristretto255_sha512.New(), nil
	case CiphersuiteP256:
		return p256_sha256.New(), nil
	case CiphersuiteSecp256k1:
		return secp256k1_sha256.New(), nil
	case CiphersuiteEd448:
		return ed448_shake256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported ciphersuite %q (valid: %v)", name, ValidCiphersuites())
	}
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dibtd",
	Short: "Distributed identity-based threshold decryption tool",
	Long: `dibtd is a command-line tool for distributed identity-based threshold
decryption of electronic health records.

A committee of key generation nodes runs a distributed ceremony to create a
dual master secret that no single node ever holds. Per-group decryption key
shares are derived from a group's identity string and issued to its members,
and any threshold-sized subset of members can jointly decrypt records
encrypted to the group.

Use 'dibtd keygen' to run a key generation ceremony and issue group keys.
Use 'dibtd encrypt' to encrypt a record to a group.
Use 'dibtd decrypt' to combine member shares and decrypt a record.
Use 'dibtd demo' to run the full protocol end to end in one process.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME/.dibtd")
			viper.AddConfigPath(".")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}

		// Read config file if it exists
		if err := viper.ReadInConfig(); err == nil && verbose {
			fmt.Printf("Using config file: %s\n", viper.ConfigFileUsed())
		}

		// Environment variables
		viper.SetEnvPrefix("DIBTD")
		viper.AutomaticEnv()
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version number and build information of dibtd.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dibtd version %s\n", Version)
		fmt.Printf("Git commit: %s\n", GitCommit)
		fmt.Printf("Build date: %s\n", BuildTime)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.dibtd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&codecName, "codec", "json", "serialization format (json, msgpack, cbor, yaml, bson, toml)")
	rootCmd.PersistentFlags().StringVar(&ciphersuiteName, "ciphersuite", CiphersuiteEd25519, "ciphersuite (FROST-ED25519-SHA512-v1, FROST-RISTRETTO255-SHA512-v1, FROST-P256-SHA256-v1, FROST-SECP256K1-SHA256-v1, FROST-ED448-SHAKE256-v1)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	if err := viper.BindPFlag("codec", rootCmd.PersistentFlags().Lookup("codec")); err != nil {
		panic(fmt.Sprintf("failed to bind codec flag: %v", err))
	}
	if err := viper.BindPFlag("ciphersuite", rootCmd.PersistentFlags().Lookup("ciphersuite")); err != nil {
		panic(fmt.Sprintf("failed to bind ciphersuite flag: %v", err))
	}
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("failed to bind verbose flag: %v", err))
	}

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(demoCmd)
}
