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
	"crypto/dsa" //nolint:staticcheck // DSA keys are still found in OpenSSH, DNS and PKCS#8 files
	"fmt"
	"io"
	"math/big"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
)

// DSAKey is a DSA public or private key.
type DSAKey struct {
	pub  *dsa.PublicKey
	priv *dsa.PrivateKey
}

// NewDSAPublicKey builds a public key from the domain parameters and y.
func NewDSAPublicKey(p, q, g, y *big.Int) (*DSAKey, error) {
	if p == nil || q == nil || g == nil || y == nil {
		return nil, fmt.Errorf("%w: missing DSA component", encoding.ErrBadKey)
	}
	if p.Sign() <= 0 || q.Sign() <= 0 || q.Cmp(p) >= 0 {
		return nil, fmt.Errorf("%w: invalid DSA domain parameters", encoding.ErrBadKey)
	}
	pm1 := new(big.Int).Sub(p, bigOne)
	if g.Cmp(bigOne) <= 0 || g.Cmp(pm1) >= 0 {
		return nil, fmt.Errorf("%w: DSA generator out of range", encoding.ErrBadKey)
	}
	if y.Cmp(bigOne) <= 0 || y.Cmp(pm1) >= 0 {
		return nil, fmt.Errorf("%w: DSA public value out of range", encoding.ErrBadKey)
	}
	return &DSAKey{pub: &dsa.PublicKey{
		Parameters: dsa.Parameters{P: new(big.Int).Set(p), Q: new(big.Int).Set(q), G: new(big.Int).Set(g)},
		Y:          new(big.Int).Set(y),
	}}, nil
}

// NewDSAPrivateKey builds a private key and derives y = g^x mod p.
func NewDSAPrivateKey(p, q, g, x *big.Int) (*DSAKey, error) {
	if x == nil || x.Sign() <= 0 || q == nil || x.Cmp(q) >= 0 {
		return nil, fmt.Errorf("%w: DSA private value out of range", encoding.ErrBadKey)
	}
	if p == nil || g == nil {
		return nil, fmt.Errorf("%w: missing DSA component", encoding.ErrBadKey)
	}
	y := new(big.Int).Exp(g, x, p)
	pub, err := NewDSAPublicKey(p, q, g, y)
	if err != nil {
		return nil, err
	}
	return &DSAKey{pub: pub.pub, priv: &dsa.PrivateKey{PublicKey: *pub.pub, X: new(big.Int).Set(x)}}, nil
}

// NewDSAPrivateKeyWithY is NewDSAPrivateKey for encodings that also carry y.
func NewDSAPrivateKeyWithY(p, q, g, y, x *big.Int) (*DSAKey, error) {
	k, err := NewDSAPrivateKey(p, q, g, x)
	if err != nil {
		return nil, err
	}
	if y == nil || y.Cmp(k.pub.Y) != 0 {
		return nil, fmt.Errorf("%w: DSA public value is not g^x mod p", encoding.ErrBadKey)
	}
	return k, nil
}

// GenerateDSA creates a DSA key with fresh L=2048, N=256 parameters.
func GenerateDSA(random io.Reader) (*DSAKey, error) {
	return GenerateDSAWithSizes(random, dsa.L2048N256)
}

// GenerateDSAWithSizes creates a DSA key with fresh parameters of the given size.
func GenerateDSAWithSizes(random io.Reader, sizes dsa.ParameterSizes) (*DSAKey, error) {
	priv := new(dsa.PrivateKey)
	if err := dsa.GenerateParameters(&priv.Parameters, random, sizes); err != nil {
		return nil, fmt.Errorf("generate DSA parameters: %w", err)
	}
	if err := dsa.GenerateKey(priv, random); err != nil {
		return nil, fmt.Errorf("generate DSA key: %w", err)
	}
	return &DSAKey{pub: &priv.PublicKey, priv: priv}, nil
}

// Algorithm implements Key.
func (k *DSAKey) Algorithm() Algorithm { return AlgorithmDSA }

// IsPrivate implements Key.
func (k *DSAKey) IsPrivate() bool { return k.priv != nil }

// Bits implements Key.
func (k *DSAKey) Bits() int { return k.pub.P.BitLen() }

// Public implements Key.
func (k *DSAKey) Public() Key {
	if k.priv == nil {
		return k
	}
	return &DSAKey{pub: k.pub}
}

// Equal implements Key.
func (k *DSAKey) Equal(other Key) bool {
	o, ok := other.(*DSAKey)
	if !ok || k.IsPrivate() != o.IsPrivate() {
		return false
	}
	a, b := k.pub, o.pub
	if a.P.Cmp(b.P) != 0 || a.Q.Cmp(b.Q) != 0 || a.G.Cmp(b.G) != 0 || a.Y.Cmp(b.Y) != 0 {
		return false
	}
	return k.priv == nil || k.priv.X.Cmp(o.priv.X) == 0
}

// CryptoPublicKey implements Key.
func (k *DSAKey) CryptoPublicKey() crypto.PublicKey { return k.pub }

// CryptoPrivateKey implements Key.
func (k *DSAKey) CryptoPrivateKey() crypto.PrivateKey {
	if k.priv == nil {
		return nil
	}
	return k.priv
}

// PublicKey returns the wrapped public key.
func (k *DSAKey) PublicKey() *dsa.PublicKey { return k.pub }

// PrivateKey returns the wrapped private key or nil.
func (k *DSAKey) PrivateKey() *dsa.PrivateKey { return k.priv }

// P returns the prime modulus.
func (k *DSAKey) P() *big.Int { return k.pub.P }

// Q returns the subgroup order.
func (k *DSAKey) Q() *big.Int { return k.pub.Q }

// G returns the generator.
func (k *DSAKey) G() *big.Int { return k.pub.G }

// Y returns the public value.
func (k *DSAKey) Y() *big.Int { return k.pub.Y }

// X returns the private value, or nil for public keys.
func (k *DSAKey) X() *big.Int {
	if k.priv == nil {
		return nil
	}
	return k.priv.X
}
