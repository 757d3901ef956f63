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

package githubapp

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

func genTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey() = %v", err)
	}
	return key
}

func TestParsePrivateKey_PKCS1(t *testing.T) {
	t.Parallel()

	key := genTestKey(t)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}

	signer, err := ParsePrivateKey(pem.EncodeToMemory(block))
	if err != nil {
		t.Fatalf("ParsePrivateKey() = %v, want nil", err)
	}
	if !signer.Public().(*rsa.PublicKey).Equal(&key.PublicKey) {
		t.Error("parsed key does not match the original public key")
	}
}

func TestParsePrivateKey_PKCS8(t *testing.T) {
	t.Parallel()

	key := genTestKey(t)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("x509.MarshalPKCS8PrivateKey() = %v", err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}

	signer, err := ParsePrivateKey(pem.EncodeToMemory(block))
	if err != nil {
		t.Fatalf("ParsePrivateKey() = %v, want nil", err)
	}
	if !signer.Public().(*rsa.PublicKey).Equal(&key.PublicKey) {
		t.Error("parsed key does not match the original public key")
	}
}

func TestParsePrivateKey_NotPEM(t *testing.T) {
	t.Parallel()

	if _, err := ParsePrivateKey([]byte("not a pem block")); err == nil {
		t.Error("expected an error for non-PEM input")
	}
}

func TestParsePrivateKey_GarbageDER(t *testing.T) {
	t.Parallel()

	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: []byte("not valid DER")}
	if _, err := ParsePrivateKey(pem.EncodeToMemory(block)); err == nil {
		t.Error("expected an error for malformed DER")
	}
}
