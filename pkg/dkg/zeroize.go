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

package dkg

import (
	"crypto/subtle"
)

// ZeroBytes securely zeros a byte slice. The function uses crypto/subtle to
// prevent compiler optimizations from removing the zeroing operation.
//
// Secret-bearing values (polynomials, master key shares, group private key
// shares, combined secrets) must be cleared on every exit path once no
// longer needed; they are never implicitly copied or shared.
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zeros)
}

// ZeroSlices securely zeros multiple byte slices.
func ZeroSlices(slices ...[]byte) {
	for _, s := range slices {
		ZeroBytes(s)
	}
}
