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
	"crypto/ecdh"
	"encoding/asn1"
	"fmt"
	"io"

	"github.com/cloudflare/circl/dh/x448"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
)

// XCurve identifies a Montgomery curve used for key agreement.
type XCurve string

const (
	// X25519 is RFC 7748 Curve25519.
	X25519 XCurve = "X25519"
	// X448 is RFC 7748 Curve448.
	X448 XCurve = "X448"
)

// String returns the curve name (also the JWK "crv" value).
func (c XCurve) String() string { return string(c) }

// KeySize is the length of scalars and u-coordinates.
func (c XCurve) KeySize() int {
	if c == X448 {
		return x448.Size
	}
	return 32
}

// OID returns the RFC 8410 algorithm identifier.
func (c XCurve) OID() asn1.ObjectIdentifier {
	if c == X448 {
		return der.OIDX448
	}
	return der.OIDX25519
}

// ParseXCurve accepts "X25519" or "X448".
func ParseXCurve(name string) (XCurve, error) {
	switch XCurve(name) {
	case X25519, X448:
		return XCurve(name), nil
	}
	return "", fmt.Errorf("%w: Montgomery curve %q", encoding.ErrUnsupportedAlgorithm, name)
}

// XCurveByOID maps the RFC 8410 algorithm identifiers.
func XCurveByOID(oid asn1.ObjectIdentifier) (XCurve, error) {
	switch {
	case der.OIDX25519.Equal(oid):
		return X25519, nil
	case der.OIDX448.Equal(oid):
		return X448, nil
	}
	return "", fmt.Errorf("%w: not an XDH OID", encoding.ErrUnsupportedAlgorithm)
}

// XDHKey is an X25519 or X448 key-agreement key. These only appear as JWE
// recipients and ephemeral keys, and in RFC 8410 PKCS#8/SPKI containers.
type XDHKey struct {
	curve XCurve
	priv  []byte
	pub   []byte
}

// NewXDHPrivateKey builds a key from its private scalar.
func NewXDHPrivateKey(curve XCurve, priv []byte) (*XDHKey, error) {
	if len(priv) != curve.KeySize() {
		return nil, fmt.Errorf("%w: %s private key must be %d bytes", encoding.ErrBadKey, curve, curve.KeySize())
	}
	k := &XDHKey{curve: curve, priv: append([]byte(nil), priv...)}
	switch curve {
	case X25519:
		sk, err := ecdh.X25519().NewPrivateKey(priv)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", encoding.ErrBadKey, err)
		}
		k.pub = sk.PublicKey().Bytes()
	case X448:
		var sk, pk x448.Key
		copy(sk[:], priv)
		x448.KeyGen(&pk, &sk)
		clear(sk[:])
		k.pub = pk[:]
	default:
		return nil, fmt.Errorf("%w: Montgomery curve %q", encoding.ErrUnsupportedAlgorithm, curve)
	}
	return k, nil
}

// NewXDHPublicKey builds a key from its u-coordinate.
func NewXDHPublicKey(curve XCurve, pub []byte) (*XDHKey, error) {
	if curve != X25519 && curve != X448 {
		return nil, fmt.Errorf("%w: Montgomery curve %q", encoding.ErrUnsupportedAlgorithm, curve)
	}
	if len(pub) != curve.KeySize() {
		return nil, fmt.Errorf("%w: %s public key must be %d bytes", encoding.ErrBadKey, curve, curve.KeySize())
	}
	return &XDHKey{curve: curve, pub: append([]byte(nil), pub...)}, nil
}

// GenerateXDH creates a new key on curve.
func GenerateXDH(random io.Reader, curve XCurve) (*XDHKey, error) {
	priv := make([]byte, curve.KeySize())
	defer clear(priv)
	if _, err := io.ReadFull(random, priv); err != nil {
		return nil, fmt.Errorf("generate %s key: %w", curve, err)
	}
	return NewXDHPrivateKey(curve, priv)
}

// Shared computes the x-only shared secret with peer. An all-zero result
// (low-order peer point) is rejected.
func (k *XDHKey) Shared(peer *XDHKey) ([]byte, error) {
	if k.priv == nil {
		return nil, fmt.Errorf("%w: XDH agreement needs a private key", encoding.ErrInvalidPrivateKey)
	}
	if peer.curve != k.curve {
		return nil, fmt.Errorf("%w: XDH keys are on different curves", encoding.ErrBadKey)
	}
	switch k.curve {
	case X25519:
		sk, err := ecdh.X25519().NewPrivateKey(k.priv)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", encoding.ErrBadKey, err)
		}
		pk, err := ecdh.X25519().NewPublicKey(peer.pub)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", encoding.ErrBadKey, err)
		}
		z, err := sk.ECDH(pk)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", encoding.ErrBadKey, err)
		}
		return z, nil
	default:
		var sk, pk, z x448.Key
		copy(sk[:], k.priv)
		copy(pk[:], peer.pub)
		defer clear(sk[:])
		if !x448.Shared(&z, &sk, &pk) {
			return nil, fmt.Errorf("%w: X448 low-order point", encoding.ErrBadKey)
		}
		return z[:], nil
	}
}

// Algorithm implements Key.
func (k *XDHKey) Algorithm() Algorithm { return AlgorithmXDH }

// IsPrivate implements Key.
func (k *XDHKey) IsPrivate() bool { return k.priv != nil }

// Bits implements Key.
func (k *XDHKey) Bits() int {
	if k.curve == X448 {
		return 448
	}
	return 255
}

// Public implements Key.
func (k *XDHKey) Public() Key {
	if k.priv == nil {
		return k
	}
	return &XDHKey{curve: k.curve, pub: k.pub}
}

// Equal implements Key.
func (k *XDHKey) Equal(other Key) bool {
	o, ok := other.(*XDHKey)
	return ok && k.curve == o.curve && bytes.Equal(k.pub, o.pub) && bytes.Equal(k.priv, o.priv)
}

// CryptoPublicKey implements Key. X25519 keys map to *ecdh.PublicKey; X448
// keys are returned as their public projection.
func (k *XDHKey) CryptoPublicKey() crypto.PublicKey {
	if k.curve == X25519 {
		pk, err := ecdh.X25519().NewPublicKey(k.pub)
		if err == nil {
			return pk
		}
	}
	return k.Public()
}

// CryptoPrivateKey implements Key.
func (k *XDHKey) CryptoPrivateKey() crypto.PrivateKey {
	if k.priv == nil {
		return nil
	}
	if k.curve == X25519 {
		sk, err := ecdh.X25519().NewPrivateKey(k.priv)
		if err == nil {
			return sk
		}
	}
	return k
}

// Curve returns the Montgomery curve.
func (k *XDHKey) Curve() XCurve { return k.curve }

// PublicBytes returns the u-coordinate.
func (k *XDHKey) PublicBytes() []byte { return append([]byte(nil), k.pub...) }

// PrivateBytes returns the private scalar, or nil for public keys.
func (k *XDHKey) PrivateBytes() []byte {
	if k.priv == nil {
		return nil
	}
	return append([]byte(nil), k.priv...)
}
