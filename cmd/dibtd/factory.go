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
	"time"

	"github.com/jeremyhahn/go-dibtd/pkg/transport"
	"github.com/jeremyhahn/go-dibtd/pkg/transport/memory"
)

// transportConfig assembles the transport configuration from global flags.
func transportConfig() *transport.Config {
	cfg := &transport.Config{
		Protocol:    transport.ProtocolMemory,
		CodecType:   codecName,
		Ciphersuite: ciphersuiteName,
		Timeout:     30 * time.Second,
	}
	if verbose {
		cfg.Logger = &transport.StdoutLogger{Prefix: "dibtd", Verbose: true}
	}
	return cfg
}

// newTransport creates the transport selected by the config.
func newTransport(cfg *transport.Config) (*memory.Transport, error) {
	switch cfg.Protocol {
	case transport.ProtocolMemory, "":
		return memory.NewWithConfig(cfg)
	default:
		return nil, fmt.Errorf("%w: %s (supported: memory)", transport.ErrInvalidProtocol, cfg.Protocol)
	}
}
