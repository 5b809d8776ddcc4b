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

// Package jwa holds the JSON Web Algorithms of RFC 7518: the key
// management and content encryption registries used by JWE, the lookup
// from JWS "alg" values into the signature registry, and the JOSE header
// type shared by JWS and JWE.
package jwa

import (
	"bytes"
	"crypto"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
)

// ============================================================================
// Key Management
// ============================================================================

// Family groups key management algorithms that share a procedure.
type Family int

const (
	// FamilyDirect uses a shared symmetric key as the CEK ("dir").
	FamilyDirect Family = iota + 1
	// FamilyRSA1_5 is RSAES-PKCS1-v1_5 key encryption.
	FamilyRSA1_5
	// FamilyRSAOAEP is RSAES-OAEP key encryption.
	FamilyRSAOAEP
	// FamilyAESKW is AES Key Wrap (RFC 3394).
	FamilyAESKW
	// FamilyAESGCMKW is AES-GCM key encryption.
	FamilyAESGCMKW
	// FamilyPBES2 is PBKDF2 followed by AES Key Wrap.
	FamilyPBES2
	// FamilyECDHES is ephemeral-static ECDH, direct or followed by AES Key Wrap.
	FamilyECDHES
)

// KeyManagement is one JWE "alg" value.
type KeyManagement struct {
	// Name is the "alg" header value.
	Name string
	// Family selects the procedure.
	Family Family
	// Hash is the OAEP digest or the PBES2 HMAC digest.
	Hash crypto.Hash
	// KeySize is the key-wrapping key size in bytes. Zero means the CEK is
	// produced directly ("dir", "ECDH-ES") or encrypted with RSA.
	KeySize int
}

// String returns the "alg" value.
func (k *KeyManagement) String() string { return k.Name }

// Direct reports whether the CEK is the shared key or the agreed key, so
// the JWE Encrypted Key is empty.
func (k *KeyManagement) Direct() bool {
	return k.Family == FamilyDirect || k.Family == FamilyECDHES && k.KeySize == 0
}

// Registered key management algorithms.
var (
	Dir        = &KeyManagement{Name: "dir", Family: FamilyDirect}
	RSA1_5     = &KeyManagement{Name: "RSA1_5", Family: FamilyRSA1_5}
	RSAOAEP    = &KeyManagement{Name: "RSA-OAEP", Family: FamilyRSAOAEP, Hash: crypto.SHA1}
	RSAOAEP256 = &KeyManagement{Name: "RSA-OAEP-256", Family: FamilyRSAOAEP, Hash: crypto.SHA256}
	RSAOAEP384 = &KeyManagement{Name: "RSA-OAEP-384", Family: FamilyRSAOAEP, Hash: crypto.SHA384}
	RSAOAEP512 = &KeyManagement{Name: "RSA-OAEP-512", Family: FamilyRSAOAEP, Hash: crypto.SHA512}

	A128KW = &KeyManagement{Name: "A128KW", Family: FamilyAESKW, KeySize: 16}
	A192KW = &KeyManagement{Name: "A192KW", Family: FamilyAESKW, KeySize: 24}
	A256KW = &KeyManagement{Name: "A256KW", Family: FamilyAESKW, KeySize: 32}

	A128GCMKW = &KeyManagement{Name: "A128GCMKW", Family: FamilyAESGCMKW, KeySize: 16}
	A192GCMKW = &KeyManagement{Name: "A192GCMKW", Family: FamilyAESGCMKW, KeySize: 24}
	A256GCMKW = &KeyManagement{Name: "A256GCMKW", Family: FamilyAESGCMKW, KeySize: 32}

	PBES2HS256A128KW = &KeyManagement{Name: "PBES2-HS256+A128KW", Family: FamilyPBES2, Hash: crypto.SHA256, KeySize: 16}
	PBES2HS384A192KW = &KeyManagement{Name: "PBES2-HS384+A192KW", Family: FamilyPBES2, Hash: crypto.SHA384, KeySize: 24}
	PBES2HS512A256KW = &KeyManagement{Name: "PBES2-HS512+A256KW", Family: FamilyPBES2, Hash: crypto.SHA512, KeySize: 32}

	ECDHES         = &KeyManagement{Name: "ECDH-ES", Family: FamilyECDHES}
	ECDHESA128KW   = &KeyManagement{Name: "ECDH-ES+A128KW", Family: FamilyECDHES, KeySize: 16}
	ECDHESA192KW   = &KeyManagement{Name: "ECDH-ES+A192KW", Family: FamilyECDHES, KeySize: 24}
	ECDHESA256KW   = &KeyManagement{Name: "ECDH-ES+A256KW", Family: FamilyECDHES, KeySize: 32}
	keyManagements = []*KeyManagement{
		Dir, RSA1_5, RSAOAEP, RSAOAEP256, RSAOAEP384, RSAOAEP512,
		A128KW, A192KW, A256KW, A128GCMKW, A192GCMKW, A256GCMKW,
		PBES2HS256A128KW, PBES2HS384A192KW, PBES2HS512A256KW,
		ECDHES, ECDHESA128KW, ECDHESA192KW, ECDHESA256KW,
	}
)

// KeyManagements returns every registered "alg" in registration order.
func KeyManagements() []*KeyManagement {
	return slices.Clone(keyManagements)
}

// KeyManagementByName looks up a JWE "alg" value.
func KeyManagementByName(alg string) (*KeyManagement, error) {
	for _, k := range keyManagements {
		if k.Name == alg {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%w: JWE key management algorithm %q", encoding.ErrUnsupportedAlgorithm, alg)
}

// SignatureByName looks up a JWS "alg" value in the signature registry.
func SignatureByName(alg string) (*signing.Algorithm, error) {
	if alg == "none" {
		return nil, fmt.Errorf("%w: unsecured JWS is not accepted", encoding.ErrUnsupportedAlgorithm)
	}
	return signing.ByJWA(alg)
}

// ============================================================================
// Header
// ============================================================================

// Header is a JOSE header. Values keep their JSON types; numbers decode as
// json.Number.
type Header map[string]any

// ParseHeader decodes a BASE64URL(UTF8(JSON)) protected header.
func ParseHeader(b64 string) (Header, error) {
	raw, err := encoding.DecodeBase64URL(b64)
	if err != nil {
		return nil, err
	}
	return UnmarshalHeader(raw)
}

// UnmarshalHeader decodes a JSON header object.
func UnmarshalHeader(raw []byte) (Header, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: JOSE header: %v", encoding.ErrInvalidData, err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: JOSE header must be an object", encoding.ErrInvalidData)
	}
	return h, nil
}

// Encode returns BASE64URL(UTF8(JSON)) of h.
func (h Header) Encode() (string, error) {
	raw, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("encode JOSE header: %w", err)
	}
	return encoding.EncodeBase64URL(raw), nil
}

// Get returns a string member, or "" when absent or not a string.
func (h Header) Get(name string) string {
	s, _ := h[name].(string)
	return s
}

// Algorithm returns "alg".
func (h Header) Algorithm() string { return h.Get("alg") }

// Encryption returns "enc".
func (h Header) Encryption() string { return h.Get("enc") }

// KeyID returns "kid".
func (h Header) KeyID() string { return h.Get("kid") }

// Bytes decodes a BASE64URL member. A missing member is an error.
func (h Header) Bytes(name string) ([]byte, error) {
	s, ok := h[name].(string)
	if !ok {
		return nil, fmt.Errorf("%w: header parameter %q is missing", encoding.ErrInvalidData, name)
	}
	return encoding.DecodeBase64URL(s)
}

// SetBytes stores b BASE64URL-encoded.
func (h Header) SetBytes(name string, b []byte) {
	h[name] = encoding.EncodeBase64URL(b)
}

// Int returns an integer member.
func (h Header) Int(name string) (int, bool) {
	switch v := h[name].(type) {
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case float64:
		return int(v), v == float64(int(v))
	case int:
		return v, true
	}
	return 0, false
}

// Object returns a JSON object member such as "epk" or "jwk".
func (h Header) Object(name string) (map[string]any, bool) {
	m, ok := h[name].(map[string]any)
	return m, ok
}

// Clone returns a shallow copy.
func (h Header) Clone() Header {
	if h == nil {
		return Header{}
	}
	return maps.Clone(h)
}

// Merge unions headers. JWS and JWE require the protected, shared and
// per-recipient headers to be disjoint, so a repeated name is an error.
func Merge(headers ...Header) (Header, error) {
	out := Header{}
	for _, h := range headers {
		for k, v := range h {
			if _, dup := out[k]; dup {
				return nil, fmt.Errorf("%w: header parameter %q appears more than once", encoding.ErrInvalidData, k)
			}
			out[k] = v
		}
	}
	return out, nil
}
