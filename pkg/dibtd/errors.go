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

package dibtd

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEncoding indicates a malformed serialized ciphertext or
	// decryption share.
	ErrInvalidEncoding = errors.New("dibtd: invalid encoding")

	// ErrInvalidCiphertext indicates a structurally invalid ciphertext:
	// identity encapsulation point, wrong nonce or tag size, or empty
	// group identity.
	ErrInvalidCiphertext = errors.New("dibtd: invalid ciphertext")

	// ErrGroupMismatch indicates a ciphertext, key share, or decryption
	// share bound to a different group identity.
	ErrGroupMismatch = errors.New("dibtd: group identity mismatch")

	// ErrProofVerificationFailed indicates a decryption share whose
	// correctness proof did not verify.
	ErrProofVerificationFailed = errors.New("dibtd: share proof verification failed")

	// ErrMissingVerificationKey indicates a decryption share from a member
	// index with no published verification key.
	ErrMissingVerificationKey = errors.New("dibtd: no verification key for member")

	// ErrRandomnessUnavailable indicates the randomness source failed
	// during encryption. Encryption never degrades to weak randomness.
	ErrRandomnessUnavailable = errors.New("dibtd: randomness unavailable")
)

// InvalidShareError reports a decryption share rejected during combination,
// with the member it came from. It unwraps to ErrProofVerificationFailed.
type InvalidShareError struct {
	MemberIndex int
	Reason      error
}

func (e *InvalidShareError) Error() string {
	return fmt.Sprintf("dibtd: share from member %d rejected: %v", e.MemberIndex, e.Reason)
}

func (e *InvalidShareError) Unwrap() error {
	return e.Reason
}

func (e *InvalidShareError) Is(target error) bool {
	return target == ErrProofVerificationFailed
}
