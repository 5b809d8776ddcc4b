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
	_ "crypto/sha1"   // registers crypto.SHA1
	_ "crypto/sha256" // registers crypto.SHA256
	_ "crypto/sha512" // registers crypto.SHA384, crypto.SHA512
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// ThumbprintSHA256 computes the SHA-256 JWK thumbprint of a key as defined
// in RFC 7638.
//
// The thumbprint is computed from the required members of a JWK representing
// the key, in lexicographic order, with no whitespace or line breaks.
//
// For RSA keys: {"e":"...","kty":"RSA","n":"..."}
// For EC keys: {"crv":"...","kty":"EC","x":"...","y":"..."}
// For OKP keys: {"crv":"...","kty":"OKP","x":"..."}
// For oct keys: {"k":"...","kty":"oct"}
func ThumbprintSHA256(key keys.Key) (string, error) {
	return Thumbprint(key, crypto.SHA256)
}

// Thumbprint computes a JWK thumbprint of key using hashFunc. Private keys
// yield the same thumbprint as their public half.
func Thumbprint(key keys.Key, hashFunc crypto.Hash) (string, error) {
	jwk, err := FromKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to convert key to JWK: %w", err)
	}
	return jwk.Thumbprint(hashFunc)
}

// Thumbprint computes the JWK thumbprint for this key using the specified hash function.
// This method can be called on both public and private keys.
func (jwk *JWK) Thumbprint(hashFunc crypto.Hash) (string, error) {
	requiredFields, err := jwk.requiredThumbprintFields()
	if err != nil {
		return "", err
	}

	jsonBytes, err := serializeForThumbprint(requiredFields)
	if err != nil {
		return "", fmt.Errorf("failed to serialize for thumbprint: %w", err)
	}

	switch hashFunc {
	case crypto.SHA1, crypto.SHA256, crypto.SHA384, crypto.SHA512:
	default:
		return "", fmt.Errorf("%w: thumbprint hash %v", encoding.ErrUnsupportedAlgorithm, hashFunc)
	}
	h := hashFunc.New()
	h.Write(jsonBytes)
	return encoding.EncodeBase64URL(h.Sum(nil)), nil
}

// ThumbprintSHA256 is a convenience method that computes the SHA-256 thumbprint.
func (jwk *JWK) ThumbprintSHA256() (string, error) {
	return jwk.Thumbprint(crypto.SHA256)
}

// requiredThumbprintFields returns the members hashed for a thumbprint
// (RFC 7638 section 3.2).
func (jwk *JWK) requiredThumbprintFields() (map[string]string, error) {
	fields := map[string]string{"kty": jwk.Kty}

	switch KeyType(jwk.Kty) {
	case KeyTypeRSA:
		if jwk.E == "" || jwk.N == "" {
			return nil, fmt.Errorf("%w: RSA JWK missing required fields for thumbprint", encoding.ErrInvalidData)
		}
		fields["e"] = jwk.E
		fields["n"] = jwk.N

	case KeyTypeEC:
		if jwk.Crv == "" || jwk.X == "" || jwk.Y == "" {
			return nil, fmt.Errorf("%w: EC JWK missing required fields for thumbprint", encoding.ErrInvalidData)
		}
		fields["crv"] = jwk.Crv
		fields["x"] = jwk.X
		fields["y"] = jwk.Y

	case KeyTypeOKP:
		if jwk.Crv == "" || jwk.X == "" {
			return nil, fmt.Errorf("%w: OKP JWK missing required fields for thumbprint", encoding.ErrInvalidData)
		}
		fields["crv"] = jwk.Crv
		fields["x"] = jwk.X

	case KeyTypeOct:
		if jwk.K == "" {
			return nil, fmt.Errorf("%w: symmetric JWK missing required fields for thumbprint", encoding.ErrInvalidData)
		}
		fields["k"] = jwk.K

	default:
		return nil, fmt.Errorf("%w: thumbprint for kty %q", encoding.ErrUnsupportedAlgorithm, jwk.Kty)
	}

	return fields, nil
}

// serializeForThumbprint writes fields as a JSON object with sorted member
// names and no whitespace.
func serializeForThumbprint(fields map[string]string) ([]byte, error) {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		nameJSON, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		valueJSON, err := json.Marshal(fields[name])
		if err != nil {
			return nil, err
		}
		sb.Write(nameJSON)
		sb.WriteByte(':')
		sb.Write(valueJSON)
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

// KeyAuthorization computes the RFC 8555 key authorization string:
// token || '.' || base64url(SHA-256 thumbprint).
func KeyAuthorization(token string, key keys.Key) (string, error) {
	thumbprint, err := ThumbprintSHA256(key)
	if err != nil {
		return "", fmt.Errorf("failed to compute JWK thumbprint: %w", err)
	}
	return token + "." + thumbprint, nil
}
