// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/muster-robotics/muster/lib/codec"
)

// Digest returns the lowercase hex BLAKE3 hash of the scenario's
// canonical encoding. The deterministic CBOR layer guarantees the same
// scenario content always hashes the same regardless of how the file
// was formatted, so the digest serves as a stable scenario identity in
// telemetry.
func Digest(s *Scenario) (string, error) {
	data, err := codec.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding scenario for digest: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
