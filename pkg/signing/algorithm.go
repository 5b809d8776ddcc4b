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

// Package signing is the signature algorithm registry. Each Algorithm
// pairs a signature scheme with a digest and carries its X.509
// AlgorithmIdentifier and JWA name, so certificates and JOSE objects
// dispatch through the same tables.
package signing

import (
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/asn1"
	"fmt"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// =============================================================================
// Schemes
// =============================================================================

// Scheme is the signature primitive an Algorithm uses.
type Scheme int

const (
	// SchemePKCS1v15 is RSASSA-PKCS1-v1_5 (RFC 8017 section 8.2).
	SchemePKCS1v15 Scheme = iota + 1
	// SchemePSS is RSASSA-PSS with MGF1 and a salt the size of the digest.
	SchemePSS
	// SchemeECDSA is ECDSA over a named prime curve.
	SchemeECDSA
	// SchemeDSA is the FIPS 186 Digital Signature Algorithm.
	SchemeDSA
	// SchemeEdDSA is pure EdDSA (RFC 8032).
	SchemeEdDSA
	// SchemeHMAC is a MAC over a shared secret (JWS HS*).
	SchemeHMAC
)

// String returns the scheme name.
func (s Scheme) String() string {
	switch s {
	case SchemePKCS1v15:
		return "RSASSA-PKCS1-v1_5"
	case SchemePSS:
		return "RSASSA-PSS"
	case SchemeECDSA:
		return "ECDSA"
	case SchemeDSA:
		return "DSA"
	case SchemeEdDSA:
		return "EdDSA"
	case SchemeHMAC:
		return "HMAC"
	}
	return fmt.Sprintf("Scheme(%d)", int(s))
}

// KeyAlgorithm returns the key family the scheme signs with. HMAC has none.
func (s Scheme) KeyAlgorithm() keys.Algorithm {
	switch s {
	case SchemePKCS1v15, SchemePSS:
		return keys.AlgorithmRSA
	case SchemeECDSA:
		return keys.AlgorithmECDSA
	case SchemeDSA:
		return keys.AlgorithmDSA
	case SchemeEdDSA:
		return keys.AlgorithmEdDSA
	}
	return ""
}

// =============================================================================
// Algorithm Records
// =============================================================================

// Algorithm is one registered signature algorithm.
type Algorithm struct {
	// Name is the OpenSSL-style name, unique across the registry.
	Name string
	// OID identifies the algorithm in X.509; nil for JOSE-only entries.
	OID asn1.ObjectIdentifier
	// JWA is the JWS "alg" value, empty if JOSE does not define one.
	JWA string
	// Scheme is the signature primitive.
	Scheme Scheme
	// Hash is the message digest; zero for EdDSA.
	Hash crypto.Hash
	// Curve restricts EdDSA entries to one curve. Empty accepts either.
	Curve keys.EdCurve
	// JWACurve is the only curve JWS allows with this "alg" (RFC 7518
	// section 3.4).
	JWACurve *keys.Curve
}

// String returns the algorithm name.
func (a *Algorithm) String() string { return a.Name }

// Registered algorithms.
var (
	SHA1WithRSA   = &Algorithm{Name: "sha1WithRSAEncryption", OID: der.OIDSHA1WithRSA, Scheme: SchemePKCS1v15, Hash: crypto.SHA1}
	SHA224WithRSA = &Algorithm{Name: "sha224WithRSAEncryption", OID: der.OIDSHA224WithRSA, Scheme: SchemePKCS1v15, Hash: crypto.SHA224}
	SHA256WithRSA = &Algorithm{Name: "sha256WithRSAEncryption", OID: der.OIDSHA256WithRSA, JWA: "RS256", Scheme: SchemePKCS1v15, Hash: crypto.SHA256}
	SHA384WithRSA = &Algorithm{Name: "sha384WithRSAEncryption", OID: der.OIDSHA384WithRSA, JWA: "RS384", Scheme: SchemePKCS1v15, Hash: crypto.SHA384}
	SHA512WithRSA = &Algorithm{Name: "sha512WithRSAEncryption", OID: der.OIDSHA512WithRSA, JWA: "RS512", Scheme: SchemePKCS1v15, Hash: crypto.SHA512}

	SHA256WithRSAPSS = &Algorithm{Name: "rsassa-pss-sha256", OID: der.OIDRSASSAPSS, JWA: "PS256", Scheme: SchemePSS, Hash: crypto.SHA256}
	SHA384WithRSAPSS = &Algorithm{Name: "rsassa-pss-sha384", OID: der.OIDRSASSAPSS, JWA: "PS384", Scheme: SchemePSS, Hash: crypto.SHA384}
	SHA512WithRSAPSS = &Algorithm{Name: "rsassa-pss-sha512", OID: der.OIDRSASSAPSS, JWA: "PS512", Scheme: SchemePSS, Hash: crypto.SHA512}

	ECDSAWithSHA1   = &Algorithm{Name: "ecdsa-with-SHA1", OID: der.OIDECDSAWithSHA1, Scheme: SchemeECDSA, Hash: crypto.SHA1}
	ECDSAWithSHA224 = &Algorithm{Name: "ecdsa-with-SHA224", OID: der.OIDECDSAWithSHA224, Scheme: SchemeECDSA, Hash: crypto.SHA224}
	ECDSAWithSHA256 = &Algorithm{Name: "ecdsa-with-SHA256", OID: der.OIDECDSAWithSHA256, JWA: "ES256", Scheme: SchemeECDSA, Hash: crypto.SHA256, JWACurve: keys.P256}
	ECDSAWithSHA384 = &Algorithm{Name: "ecdsa-with-SHA384", OID: der.OIDECDSAWithSHA384, JWA: "ES384", Scheme: SchemeECDSA, Hash: crypto.SHA384, JWACurve: keys.P384}
	ECDSAWithSHA512 = &Algorithm{Name: "ecdsa-with-SHA512", OID: der.OIDECDSAWithSHA512, JWA: "ES512", Scheme: SchemeECDSA, Hash: crypto.SHA512, JWACurve: keys.P521}

	DSAWithSHA1   = &Algorithm{Name: "dsa-with-SHA1", OID: der.OIDDSAWithSHA1, Scheme: SchemeDSA, Hash: crypto.SHA1}
	DSAWithSHA224 = &Algorithm{Name: "dsa-with-SHA224", OID: der.OIDDSAWithSHA224, Scheme: SchemeDSA, Hash: crypto.SHA224}
	DSAWithSHA256 = &Algorithm{Name: "dsa-with-SHA256", OID: der.OIDDSAWithSHA256, Scheme: SchemeDSA, Hash: crypto.SHA256}

	PureEd25519 = &Algorithm{Name: "Ed25519", OID: der.OIDEd25519, Scheme: SchemeEdDSA, Curve: keys.Ed25519}
	PureEd448   = &Algorithm{Name: "Ed448", OID: der.OIDEd448, Scheme: SchemeEdDSA, Curve: keys.Ed448}
	EdDSA       = &Algorithm{Name: "EdDSA", JWA: "EdDSA", Scheme: SchemeEdDSA}

	HS256 = &Algorithm{Name: "HS256", JWA: "HS256", Scheme: SchemeHMAC, Hash: crypto.SHA256}
	HS384 = &Algorithm{Name: "HS384", JWA: "HS384", Scheme: SchemeHMAC, Hash: crypto.SHA384}
	HS512 = &Algorithm{Name: "HS512", JWA: "HS512", Scheme: SchemeHMAC, Hash: crypto.SHA512}
)

var registry = []*Algorithm{
	SHA1WithRSA, SHA224WithRSA, SHA256WithRSA, SHA384WithRSA, SHA512WithRSA,
	SHA256WithRSAPSS, SHA384WithRSAPSS, SHA512WithRSAPSS,
	ECDSAWithSHA1, ECDSAWithSHA224, ECDSAWithSHA256, ECDSAWithSHA384, ECDSAWithSHA512,
	DSAWithSHA1, DSAWithSHA224, DSAWithSHA256,
	PureEd25519, PureEd448, EdDSA,
	HS256, HS384, HS512,
}

var (
	byName = indexBy(func(a *Algorithm) string { return a.Name })
	byJWA  = indexBy(func(a *Algorithm) string { return a.JWA })
)

func indexBy(key func(*Algorithm) string) map[string]*Algorithm {
	m := make(map[string]*Algorithm, len(registry))
	for _, a := range registry {
		if k := key(a); k != "" {
			m[k] = a
		}
	}
	return m
}

// Algorithms returns every registered algorithm in registration order.
func Algorithms() []*Algorithm {
	return append([]*Algorithm(nil), registry...)
}

// ByName looks up an algorithm by its registry name.
func ByName(name string) (*Algorithm, error) {
	if a, ok := byName[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: signature algorithm %q", encoding.ErrUnsupportedAlgorithm, name)
}

// ByJWA looks up an algorithm by its JWS "alg" value.
func ByJWA(alg string) (*Algorithm, error) {
	if a, ok := byJWA[alg]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: JWS algorithm %q", encoding.ErrUnsupportedAlgorithm, alg)
}

// ByOID looks up an algorithm by OID alone. RSASSA-PSS needs its
// parameters and is rejected here; use ByAlgorithmIdentifier.
func ByOID(oid asn1.ObjectIdentifier) (*Algorithm, error) {
	if oid.Equal(der.OIDRSASSAPSS) {
		return nil, fmt.Errorf("%w: RSASSA-PSS requires parameters", encoding.ErrUnsupportedAlgorithm)
	}
	for _, a := range registry {
		if a.OID != nil && a.OID.Equal(oid) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: signature algorithm %s", encoding.ErrUnsupportedAlgorithm, der.OIDName(oid))
}

// DefaultFor picks the algorithm used when a caller names only a key:
// SHA-256 for RSA and DSA, the curve's paired digest for ECDSA and pure
// EdDSA on the key's curve.
func DefaultFor(k keys.Key) (*Algorithm, error) {
	switch key := k.(type) {
	case *keys.RSAKey:
		return SHA256WithRSA, nil
	case *keys.DSAKey:
		return DSAWithSHA256, nil
	case *keys.ECDSAKey:
		switch key.Curve().Hash {
		case crypto.SHA224:
			return ECDSAWithSHA224, nil
		case crypto.SHA384:
			return ECDSAWithSHA384, nil
		case crypto.SHA512:
			return ECDSAWithSHA512, nil
		}
		return ECDSAWithSHA256, nil
	case *keys.EdDSAKey:
		if key.Curve() == keys.Ed448 {
			return PureEd448, nil
		}
		return PureEd25519, nil
	}
	return nil, fmt.Errorf("%w: %T keys cannot sign", encoding.ErrUnsupportedAlgorithm, k)
}

// CheckKey reports whether k can be used with a.
func (a *Algorithm) CheckKey(k keys.Key) error {
	if k == nil {
		return ErrSignerRequired
	}
	if a.Scheme == SchemeHMAC || k.Algorithm() != a.Scheme.KeyAlgorithm() {
		return fmt.Errorf("%w: %s key with %s", ErrKeyMismatch, k.Algorithm(), a.Name)
	}
	if a.Curve != "" {
		if ed, ok := k.(*keys.EdDSAKey); ok && ed.Curve() != a.Curve {
			return fmt.Errorf("%w: %s key with %s", ErrKeyMismatch, ed.Curve(), a.Name)
		}
	}
	return nil
}

// Digest hashes msg with the algorithm's digest. EdDSA returns msg.
func (a *Algorithm) Digest(msg []byte) ([]byte, error) {
	if a.Hash == 0 {
		return msg, nil
	}
	if !a.Hash.Available() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHashFunction, a.Hash)
	}
	h := a.Hash.New()
	h.Write(msg)
	return h.Sum(nil), nil
}
