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

package keys

import (
	"bytes"
	"crypto"
	"crypto/ed25519"
	"crypto/sha3"
	"crypto/sha512"
	"encoding/asn1"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
)

// EdCurve identifies an Edwards curve.
type EdCurve string

const (
	// Ed25519 is edwards25519 with SHA-512 (RFC 8032 section 5.1).
	Ed25519 EdCurve = "Ed25519"
	// Ed448 is edwards448 with SHAKE256 (RFC 8032 section 5.2).
	Ed448 EdCurve = "Ed448"
)

// String returns the curve name (also the JWK "crv" value).
func (c EdCurve) String() string { return string(c) }

// KeySize is the length of the seed and of the encoded public point.
func (c EdCurve) KeySize() int {
	if c == Ed448 {
		return ed448.SeedSize
	}
	return ed25519.SeedSize
}

// Bits is the field size.
func (c EdCurve) Bits() int {
	if c == Ed448 {
		return 448
	}
	return 255
}

// ParseEdCurve accepts "Ed25519" or "Ed448" in any case.
func ParseEdCurve(name string) (EdCurve, error) {
	switch {
	case Ed25519.equals(name):
		return Ed25519, nil
	case Ed448.equals(name):
		return Ed448, nil
	}
	return "", fmt.Errorf("%w: Edwards curve %q", encoding.ErrUnsupportedAlgorithm, name)
}

// EdCurveByOID maps the RFC 8410 algorithm identifiers.
func EdCurveByOID(oid asn1.ObjectIdentifier) (EdCurve, error) {
	switch {
	case der.OIDEd25519.Equal(oid):
		return Ed25519, nil
	case der.OIDEd448.Equal(oid):
		return Ed448, nil
	}
	return "", fmt.Errorf("%w: not an EdDSA OID", encoding.ErrUnsupportedAlgorithm)
}

// OID returns the RFC 8410 algorithm identifier.
func (c EdCurve) OID() asn1.ObjectIdentifier {
	if c == Ed448 {
		return der.OIDEd448
	}
	return der.OIDEd25519
}

func (c EdCurve) equals(s string) bool {
	return len(s) == len(c) && bytes.EqualFold([]byte(s), []byte(c))
}

// EdDSAKey is an Ed25519 or Ed448 key. Private keys are held as the RFC 8032
// seed; the clamped scalar and prefix are derived on demand.
type EdDSAKey struct {
	curve EdCurve
	seed  []byte
	pub   []byte
}

// NewEdDSAPrivateKey builds a private key from its seed.
func NewEdDSAPrivateKey(curve EdCurve, seed []byte) (*EdDSAKey, error) {
	if len(seed) != curve.KeySize() {
		return nil, fmt.Errorf("%w: %s seed must be %d bytes, got %d", encoding.ErrBadKey, curve, curve.KeySize(), len(seed))
	}
	k := &EdDSAKey{curve: curve, seed: append([]byte(nil), seed...)}
	switch curve {
	case Ed25519:
		k.pub = []byte(ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey))
	case Ed448:
		k.pub = []byte(ed448.NewKeyFromSeed(seed).Public().(ed448.PublicKey))
	default:
		return nil, fmt.Errorf("%w: Edwards curve %q", encoding.ErrUnsupportedAlgorithm, curve)
	}
	return k, nil
}

// NewEdDSAPrivateKeyWithPublic is NewEdDSAPrivateKey for encodings that also
// carry the public point. It must match the one derived from the seed.
func NewEdDSAPrivateKeyWithPublic(curve EdCurve, seed, pub []byte) (*EdDSAKey, error) {
	k, err := NewEdDSAPrivateKey(curve, seed)
	if err != nil {
		return nil, err
	}
	if pub != nil && !bytes.Equal(pub, k.pub) {
		return nil, fmt.Errorf("%w: %s public key does not match seed", encoding.ErrBadKey, curve)
	}
	return k, nil
}

// NewEdDSAPublicKey builds a public key from its little-endian encoding.
func NewEdDSAPublicKey(curve EdCurve, pub []byte) (*EdDSAKey, error) {
	if curve != Ed25519 && curve != Ed448 {
		return nil, fmt.Errorf("%w: Edwards curve %q", encoding.ErrUnsupportedAlgorithm, curve)
	}
	if len(pub) != curve.KeySize() {
		return nil, fmt.Errorf("%w: %s public key must be %d bytes, got %d", encoding.ErrBadKey, curve, curve.KeySize(), len(pub))
	}
	return &EdDSAKey{curve: curve, pub: append([]byte(nil), pub...)}, nil
}

// GenerateEdDSA creates a new key on curve.
func GenerateEdDSA(random io.Reader, curve EdCurve) (*EdDSAKey, error) {
	seed := make([]byte, curve.KeySize())
	defer clear(seed)
	if _, err := io.ReadFull(random, seed); err != nil {
		return nil, fmt.Errorf("generate %s key: %w", curve, err)
	}
	return NewEdDSAPrivateKey(curve, seed)
}

// Algorithm implements Key.
func (k *EdDSAKey) Algorithm() Algorithm { return AlgorithmEdDSA }

// IsPrivate implements Key.
func (k *EdDSAKey) IsPrivate() bool { return k.seed != nil }

// Bits implements Key.
func (k *EdDSAKey) Bits() int { return k.curve.Bits() }

// Public implements Key.
func (k *EdDSAKey) Public() Key {
	if k.seed == nil {
		return k
	}
	return &EdDSAKey{curve: k.curve, pub: k.pub}
}

// Equal implements Key.
func (k *EdDSAKey) Equal(other Key) bool {
	o, ok := other.(*EdDSAKey)
	return ok && k.curve == o.curve && bytes.Equal(k.pub, o.pub) && bytes.Equal(k.seed, o.seed)
}

// CryptoPublicKey implements Key. It returns ed25519.PublicKey or
// ed448.PublicKey.
func (k *EdDSAKey) CryptoPublicKey() crypto.PublicKey {
	if k.curve == Ed448 {
		return ed448.PublicKey(append([]byte(nil), k.pub...))
	}
	return ed25519.PublicKey(append([]byte(nil), k.pub...))
}

// CryptoPrivateKey implements Key. It returns ed25519.PrivateKey or
// ed448.PrivateKey, both of which implement crypto.Signer.
func (k *EdDSAKey) CryptoPrivateKey() crypto.PrivateKey {
	if k.seed == nil {
		return nil
	}
	if k.curve == Ed448 {
		return ed448.NewKeyFromSeed(k.seed)
	}
	return ed25519.NewKeyFromSeed(k.seed)
}

// Curve returns the Edwards curve.
func (k *EdDSAKey) Curve() EdCurve { return k.curve }

// PublicBytes returns the encoded public point A.
func (k *EdDSAKey) PublicBytes() []byte { return append([]byte(nil), k.pub...) }

// Seed returns the private seed d, or nil for public keys.
func (k *EdDSAKey) Seed() []byte {
	if k.seed == nil {
		return nil
	}
	return append([]byte(nil), k.seed...)
}

// Hash returns h = H(d): SHA-512 for Ed25519 and SHAKE256 with 114 bytes of
// output for Ed448. It returns nil for public keys.
func (k *EdDSAKey) Hash() []byte {
	if k.seed == nil {
		return nil
	}
	if k.curve == Ed448 {
		return sha3.SumSHAKE256(k.seed, 2*ed448.SeedSize)
	}
	h := sha512.Sum512(k.seed)
	return h[:]
}

// Scalar returns the clamped secret scalar a (little-endian), derived from
// the first half of h. It returns nil for public keys.
func (k *EdDSAKey) Scalar() []byte {
	h := k.Hash()
	if h == nil {
		return nil
	}
	defer clear(h)
	return Clamp(k.curve, h[:k.curve.KeySize()])
}

// Clamp applies the RFC 8032 scalar clamping to a copy of b.
func Clamp(curve EdCurve, b []byte) []byte {
	a := append([]byte(nil), b...)
	if curve == Ed448 {
		a[0] &= 252
		a[55] |= 128
		a[56] = 0
		return a
	}
	a[0] &= 248
	a[31] &= 127
	a[31] |= 64
	return a
}
