// Copyright 2025 The Authors (see AUTHORS file)
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

// Package verifier validates the X-Hub-Signature-256 header on inbound
// webhook deliveries (spec §4.1).
package verifier

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the three failure modes named in spec §4.1 / §7.
var (
	ErrSignatureMissing   = errors.New("signature missing")
	ErrSignatureMalformed = errors.New("signature malformed")
	ErrSignatureMismatch  = errors.New("signature mismatch")
)

const signaturePrefix = "sha256="

// Verify computes HMAC-SHA256 of body using secret, formats it as
// "sha256=<hex>", and compares it against header in constant time. It
// operates on the raw bytes as received, before any deserialization /
// re-serialization, as required by §4.1.
func Verify(body []byte, header string, secret []byte) error {
	if header == "" {
		return ErrSignatureMissing
	}

	got, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return fmt.Errorf("%w: missing %q prefix", ErrSignatureMalformed, signaturePrefix)
	}

	gotMAC, err := hex.DecodeString(got)
	if err != nil {
		return fmt.Errorf("%w: not valid hex", ErrSignatureMalformed)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	wantMAC := mac.Sum(nil)

	if !hmac.Equal(gotMAC, wantMAC) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign computes the X-Hub-Signature-256 header value for body under secret.
// Used by tests.
func Sign(body []byte, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
