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
	"github.com/jeremyhahn/go-frost/pkg/frost/group"
)

// scalarFromInt creates a scalar from a small non-negative integer,
// respecting the group's scalar byte order.
//
// Panics if n is negative or if deserialization fails (indicating a bug),
// since small non-negative integers are well below the order of every
// supported group.
func scalarFromInt(grp group.Group, n int) group.Scalar {
	if n < 0 {
		panic("scalarFromInt: negative integer not allowed")
	}

	bytes := make([]byte, grp.ScalarLength())

	if grp.ByteOrder() == group.LittleEndian {
		for i := 0; i < len(bytes) && n > 0; i++ {
			bytes[i] = byte(n & 0xff)
			n >>= 8
		}
	} else {
		for i := grp.ScalarLength() - 1; i >= 0 && n > 0; i-- {
			bytes[i] = byte(n & 0xff)
			n >>= 8
		}
	}

	scalar, err := grp.DeserializeScalar(bytes)
	if err != nil {
		panic("scalarFromInt: unexpected deserialization failure: " + err.Error())
	}
	return scalar
}
