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
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"io"
	"math/big"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
)

// ECDSAKey is an ECDSA public or private key on a named curve.
type ECDSAKey struct {
	curve *Curve
	pub   *ecdsa.PublicKey
	priv  *ecdsa.PrivateKey
}

// NewECDSAPublicKey parses an SEC 1 point, uncompressed (0x04||X||Y) or
// compressed (0x02/0x03||X). Points not on the curve are rejected.
func NewECDSAPublicKey(curve *Curve, point []byte) (*ECDSAKey, error) {
	if curve == nil {
		return nil, fmt.Errorf("%w: nil curve", encoding.ErrBadKey)
	}
	if len(point) > 0 && (point[0] == 2 || point[0] == 3) {
		x, y := elliptic.UnmarshalCompressed(curve.elliptic, point)
		if x == nil {
			return nil, fmt.Errorf("%w: invalid compressed point for %s", encoding.ErrBadKey, curve.Name)
		}
		return NewECDSAPublicKeyXY(curve, x, y)
	}
	if curve.generic {
		return newGenericPublicKey(curve, point)
	}
	pub, err := ecdsa.ParseUncompressedPublicKey(curve.elliptic, point)
	if err != nil {
		return nil, fmt.Errorf("%w: %s point: %v", encoding.ErrBadKey, curve.Name, err)
	}
	return &ECDSAKey{curve: curve, pub: pub}, nil
}

func newGenericPublicKey(curve *Curve, point []byte) (*ECDSAKey, error) {
	size := curve.ByteSize()
	if len(point) != 1+2*size || point[0] != 4 {
		return nil, fmt.Errorf("%w: %s point must be %d bytes uncompressed", encoding.ErrBadKey, curve.Name, 1+2*size)
	}
	x := new(big.Int).SetBytes(point[1 : 1+size])
	y := new(big.Int).SetBytes(point[1+size:])
	if !curve.elliptic.IsOnCurve(x, y) {
		return nil, fmt.Errorf("%w: %s point is not on the curve", encoding.ErrBadKey, curve.Name)
	}
	return &ECDSAKey{curve: curve, pub: &ecdsa.PublicKey{Curve: curve.elliptic, X: x, Y: y}}, nil
}

// NewECDSAPublicKeyXY builds a public key from affine coordinates.
func NewECDSAPublicKeyXY(curve *Curve, x, y *big.Int) (*ECDSAKey, error) {
	if curve == nil || x == nil || y == nil || x.Sign() < 0 || y.Sign() < 0 {
		return nil, fmt.Errorf("%w: invalid EC coordinates", encoding.ErrBadKey)
	}
	size := curve.ByteSize()
	if x.BitLen() > size*8 || y.BitLen() > size*8 {
		return nil, fmt.Errorf("%w: EC coordinate too large for %s", encoding.ErrBadKey, curve.Name)
	}
	point := make([]byte, 1+2*size)
	point[0] = 4
	x.FillBytes(point[1 : 1+size])
	y.FillBytes(point[1+size:])
	return NewECDSAPublicKey(curve, point)
}

// NewECDSAPrivateKey builds a private key from the scalar d and derives
// Q = d*G. d must satisfy 0 < d < n.
func NewECDSAPrivateKey(curve *Curve, d *big.Int) (*ECDSAKey, error) {
	if curve == nil || d == nil || d.Sign() <= 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("%w: EC private scalar out of range", encoding.ErrBadKey)
	}
	raw := make([]byte, curve.ByteSize())
	d.FillBytes(raw)
	defer clear(raw)
	if curve.generic {
		x, y := curve.elliptic.ScalarBaseMult(raw)
		priv := &ecdsa.PrivateKey{
			PublicKey: ecdsa.PublicKey{Curve: curve.elliptic, X: x, Y: y},
			D:         new(big.Int).Set(d),
		}
		return &ECDSAKey{curve: curve, pub: &priv.PublicKey, priv: priv}, nil
	}
	priv, err := ecdsa.ParseRawPrivateKey(curve.elliptic, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", encoding.ErrBadKey, err)
	}
	return &ECDSAKey{curve: curve, pub: &priv.PublicKey, priv: priv}, nil
}

// NewECDSAPrivateKeyWithPoint is NewECDSAPrivateKey for encodings that also
// carry the public point. The point must equal d*G.
func NewECDSAPrivateKeyWithPoint(curve *Curve, d *big.Int, point []byte) (*ECDSAKey, error) {
	k, err := NewECDSAPrivateKey(curve, d)
	if err != nil {
		return nil, err
	}
	if len(point) == 0 {
		return k, nil
	}
	given, err := NewECDSAPublicKey(curve, point)
	if err != nil {
		return nil, err
	}
	if !given.pub.Equal(k.pub) {
		return nil, fmt.Errorf("%w: EC public point does not match private scalar", encoding.ErrBadKey)
	}
	return k, nil
}

// NewECDSAKeyFromStd wraps a standard-library private key.
func NewECDSAKeyFromStd(k *ecdsa.PrivateKey) (*ECDSAKey, error) {
	curve, err := curveFromElliptic(k.Curve)
	if err != nil {
		return nil, err
	}
	return NewECDSAPrivateKey(curve, k.D)
}

// NewECDSAPublicKeyFromStd wraps a standard-library public key.
func NewECDSAPublicKeyFromStd(k *ecdsa.PublicKey) (*ECDSAKey, error) {
	curve, err := curveFromElliptic(k.Curve)
	if err != nil {
		return nil, err
	}
	return NewECDSAPublicKeyXY(curve, k.X, k.Y)
}

// NewECDSAKeyFromECDH wraps a NIST-curve crypto/ecdh private key.
func NewECDSAKeyFromECDH(k *ecdh.PrivateKey) (*ECDSAKey, error) {
	curve, err := curveFromECDH(k.Curve())
	if err != nil {
		return nil, err
	}
	return NewECDSAPrivateKeyWithPoint(curve, new(big.Int).SetBytes(k.Bytes()), k.PublicKey().Bytes())
}

// NewECDSAPublicKeyFromECDH wraps a NIST-curve crypto/ecdh public key.
func NewECDSAPublicKeyFromECDH(k *ecdh.PublicKey) (*ECDSAKey, error) {
	curve, err := curveFromECDH(k.Curve())
	if err != nil {
		return nil, err
	}
	return NewECDSAPublicKey(curve, k.Bytes())
}

func curveFromECDH(c ecdh.Curve) (*Curve, error) {
	for _, curve := range curves {
		if curve.ecdh != nil && curve.ecdh == c {
			return curve, nil
		}
	}
	return nil, fmt.Errorf("%w: ECDH curve %v", encoding.ErrUnsupportedAlgorithm, c)
}

func curveFromElliptic(c elliptic.Curve) (*Curve, error) {
	for _, curve := range curves {
		if curve.elliptic == c {
			return curve, nil
		}
	}
	return nil, fmt.Errorf("%w: curve %s", encoding.ErrUnsupportedAlgorithm, c.Params().Name)
}

// GenerateECDSA creates a new key on curve.
func GenerateECDSA(random io.Reader, curve *Curve) (*ECDSAKey, error) {
	priv, err := ecdsa.GenerateKey(curve.elliptic, random)
	if err != nil {
		return nil, fmt.Errorf("generate ECDSA key: %w", err)
	}
	return &ECDSAKey{curve: curve, pub: &priv.PublicKey, priv: priv}, nil
}

// Algorithm implements Key.
func (k *ECDSAKey) Algorithm() Algorithm { return AlgorithmECDSA }

// IsPrivate implements Key.
func (k *ECDSAKey) IsPrivate() bool { return k.priv != nil }

// Bits implements Key.
func (k *ECDSAKey) Bits() int { return k.curve.Bits() }

// Public implements Key.
func (k *ECDSAKey) Public() Key {
	if k.priv == nil {
		return k
	}
	return &ECDSAKey{curve: k.curve, pub: k.pub}
}

// Equal implements Key.
func (k *ECDSAKey) Equal(other Key) bool {
	o, ok := other.(*ECDSAKey)
	if !ok || k.IsPrivate() != o.IsPrivate() || k.curve != o.curve {
		return false
	}
	if k.priv != nil {
		return k.priv.Equal(o.priv)
	}
	return k.pub.Equal(o.pub)
}

// CryptoPublicKey implements Key.
func (k *ECDSAKey) CryptoPublicKey() crypto.PublicKey { return k.pub }

// CryptoPrivateKey implements Key.
func (k *ECDSAKey) CryptoPrivateKey() crypto.PrivateKey {
	if k.priv == nil {
		return nil
	}
	return k.priv
}

// Curve returns the key's curve.
func (k *ECDSAKey) Curve() *Curve { return k.curve }

// PublicKey returns the wrapped public key.
func (k *ECDSAKey) PublicKey() *ecdsa.PublicKey { return k.pub }

// PrivateKey returns the wrapped private key or nil.
func (k *ECDSAKey) PrivateKey() *ecdsa.PrivateKey { return k.priv }

// Point returns the uncompressed public point 0x04||X||Y with each coordinate
// zero-padded to the curve's byte size.
func (k *ECDSAKey) Point() []byte {
	size := k.curve.ByteSize()
	out := make([]byte, 1+2*size)
	out[0] = 4
	k.pub.X.FillBytes(out[1 : 1+size])
	k.pub.Y.FillBytes(out[1+size:])
	return out
}

// X returns the affine x coordinate.
func (k *ECDSAKey) X() *big.Int { return new(big.Int).Set(k.pub.X) }

// Y returns the affine y coordinate.
func (k *ECDSAKey) Y() *big.Int { return new(big.Int).Set(k.pub.Y) }

// D returns the private scalar, or nil for public keys.
func (k *ECDSAKey) D() *big.Int {
	if k.priv == nil {
		return nil
	}
	return new(big.Int).Set(k.priv.D)
}

// DBytes returns the private scalar as a fixed-width big-endian string.
func (k *ECDSAKey) DBytes() []byte {
	if k.priv == nil {
		return nil
	}
	out := make([]byte, k.curve.ByteSize())
	k.priv.D.FillBytes(out)
	return out
}
