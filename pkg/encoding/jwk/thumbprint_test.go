// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keycodec.
//
// go-keycodec is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package jwk

import (
	"crypto"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	lestrratjwk "github.com/lestrrat-go/jwx/v2/jwk"
)

// Test vectors from RFC 7638 Appendix A and RFC 8037 Appendix A.3

func TestRFC7638_RSA_Example(t *testing.T) {
	jwk := &JWK{
		Kty: "RSA",
		N:   "0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86zwu1RK7aPFFxuhDR1L6tSoc_BJECPebWKRXjBZCiFV4n3oknjhMstn64tZ_2W-5JsGY4Hc5n9yBXArwl93lqt7_RN5w6Cf0h4QyQ5v-65YGjQR0_FDW2QvzqY368QQMicAtaSqzs8KJZgnYb9c7d0zgdAZHzu6qMQvRL5hajrn1n91CbOpbISD08qNLyrdkt-bFTWhAI4vMQFh6WeZu0fM4lFd2NcRwr3XPksINHaQ-G_xBniIqbw0Ls1jF44-csFCur-kEgU8awapJzKnqDKgw",
		E:   "AQAB",
		Alg: "RS256",
		Kid: "2011-04-29",
	}

	expected := "NzbLsXh8uDCcd-6MNwXF4W_7noWXFZAfHkxZsRGC9Xs"

	thumbprint, err := jwk.ThumbprintSHA256()
	if err != nil {
		t.Fatalf("ThumbprintSHA256 failed: %v", err)
	}
	if thumbprint != expected {
		t.Errorf("Thumbprint doesn't match RFC 7638 example\nGot:      %s\nExpected: %s", thumbprint, expected)
	}
}

func TestRFC8037_Ed25519_Example(t *testing.T) {
	jwk := &JWK{
		Kty: "OKP",
		Crv: "Ed25519",
		X:   "11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo",
		D:   "nWGxne_9WmC6hEr0kuwsxERJxWl7MmkZcDusAxyuf2A",
	}

	thumbprint, err := jwk.ThumbprintSHA256()
	if err != nil {
		t.Fatalf("ThumbprintSHA256 failed: %v", err)
	}
	if thumbprint != "kPrK_qmxVWaYVA9wwBF6Iuo3vVzz7TxHCTwXBygrS4k" {
		t.Errorf("unexpected thumbprint %s", thumbprint)
	}
}

func TestThumbprint_PrivateEqualsPublic(t *testing.T) {
	k, err := keys.GenerateECDSA(rand.Reader, keys.P384)
	if err != nil {
		t.Fatal(err)
	}
	priv, err := ThumbprintSHA256(k)
	if err != nil {
		t.Fatal(err)
	}
	pub, err := ThumbprintSHA256(k.Public())
	if err != nil {
		t.Fatal(err)
	}
	if priv != pub {
		t.Errorf("private and public thumbprints differ: %s != %s", priv, pub)
	}
}

func TestThumbprint_MatchesJWX(t *testing.T) {
	rsaKey, err := keys.GenerateRSA(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	ecKey, err := keys.GenerateECDSA(rand.Reader, keys.P256)
	if err != nil {
		t.Fatal(err)
	}
	edKey, err := keys.GenerateEdDSA(rand.Reader, keys.Ed25519)
	if err != nil {
		t.Fatal(err)
	}

	for _, k := range []keys.Key{rsaKey, ecKey, edKey} {
		t.Run(k.Algorithm().String(), func(t *testing.T) {
			ours, err := Thumbprint(k, crypto.SHA256)
			if err != nil {
				t.Fatal(err)
			}
			theirs, err := lestrratjwk.FromRaw(k.CryptoPublicKey())
			if err != nil {
				t.Fatal(err)
			}
			sum, err := theirs.Thumbprint(crypto.SHA256)
			if err != nil {
				t.Fatal(err)
			}
			if want := b64(sum); ours != want {
				t.Errorf("thumbprint mismatch: ours %s, jwx %s", ours, want)
			}
		})
	}
}

func TestThumbprint_Hashes(t *testing.T) {
	jwk, err := FromSymmetricKey([]byte("0123456789abcdef"), "A128KW")
	if err != nil {
		t.Fatal(err)
	}
	lengths := map[crypto.Hash]int{crypto.SHA1: 27, crypto.SHA256: 43, crypto.SHA384: 64, crypto.SHA512: 86}
	for h, n := range lengths {
		tp, err := jwk.Thumbprint(h)
		if err != nil {
			t.Fatalf("%v: %v", h, err)
		}
		if len(tp) != n {
			t.Errorf("%v thumbprint length %d, want %d", h, len(tp), n)
		}
	}
	if _, err := jwk.Thumbprint(crypto.MD5); err == nil {
		t.Error("MD5 thumbprint should be rejected")
	}
}

func TestThumbprint_MissingFields(t *testing.T) {
	bad := []*JWK{
		{Kty: "RSA", N: "AQAB"},
		{Kty: "EC", Crv: "P-256", X: "AA"},
		{Kty: "OKP", X: "AA"},
		{Kty: "oct"},
		{Kty: "XYZ"},
	}
	for _, jwk := range bad {
		if _, err := jwk.ThumbprintSHA256(); err == nil {
			t.Errorf("expected error for %+v", jwk)
		}
	}
}

func TestKeyAuthorization(t *testing.T) {
	k, err := keys.GenerateEdDSA(rand.Reader, keys.Ed25519)
	if err != nil {
		t.Fatal(err)
	}
	auth, err := KeyAuthorization("token123", k)
	if err != nil {
		t.Fatal(err)
	}
	tp, _ := ThumbprintSHA256(k)
	if !strings.HasPrefix(auth, "token123.") || !strings.HasSuffix(auth, tp) {
		t.Errorf("unexpected key authorization %s", auth)
	}
}
