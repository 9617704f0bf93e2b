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

// Package aead provides the authenticated payload encryption used for
// record bodies: AES-256-GCM keyed through HKDF-SHA256 from the
// encapsulation secret.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12

	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

var (
	// ErrInvalidKeySize indicates a key that is not KeySize bytes.
	ErrInvalidKeySize = errors.New("aead: invalid key size")

	// ErrInvalidNonceSize indicates a nonce that is not NonceSize bytes.
	ErrInvalidNonceSize = errors.New("aead: invalid nonce size")

	// ErrInvalidTagSize indicates a tag that is not TagSize bytes.
	ErrInvalidTagSize = errors.New("aead: invalid tag size")

	// ErrAuthenticationFailed indicates ciphertext or associated data that
	// fails authentication. No plaintext is ever released on this error.
	ErrAuthenticationFailed = errors.New("aead: authentication failed")

	// ErrRandomnessUnavailable indicates the system randomness source
	// failed. Encryption never proceeds with degraded randomness.
	ErrRandomnessUnavailable = errors.New("aead: randomness unavailable")
)

// Sealed is an encrypted payload with its nonce and authentication tag
// carried separately, matching the ciphertext wire layout.
type Sealed struct {
	Nonce []byte
	Tag   []byte
	Body  []byte
}

// Seal encrypts plaintext under key with a freshly random nonce, binding
// aad into the authentication tag. The returned Body has the same length as
// the plaintext.
func Seal(key, plaintext, aad []byte) (*Sealed, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, aad)
	body := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	return &Sealed{Nonce: nonce, Tag: tag, Body: body}, nil
}

// Open decrypts a sealed payload, authenticating body, nonce, and aad
// together. Any modification of any input yields ErrAuthenticationFailed
// with no plaintext.
func Open(key []byte, sealed *Sealed, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if sealed == nil || len(sealed.Nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	if len(sealed.Tag) != TagSize {
		return nil, ErrInvalidTagSize
	}

	joined := make([]byte, 0, len(sealed.Body)+TagSize)
	joined = append(joined, sealed.Body...)
	joined = append(joined, sealed.Tag...)

	plaintext, err := gcm.Open(nil, sealed.Nonce, joined, aad)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// DeriveKey derives a KeySize symmetric key from a shared secret via
// HKDF-SHA256. salt and info separate keys derived from the same secret for
// different ciphertexts; callers bind the ciphertext context through info.
func DeriveKey(secret, salt, info []byte) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), key); err != nil {
		return nil, fmt.Errorf("aead: key derivation failed: %w", err)
	}
	return key, nil
}

// ZeroKey clears a derived key once the seal or open completes. Uses
// crypto/subtle to keep the zeroing from being optimized away.
func ZeroKey(key []byte) {
	if len(key) == 0 {
		return
	}
	zeros := make([]byte, len(key))
	subtle.ConstantTimeCopy(1, key, zeros)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
