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
	"crypto/rsa"
	"fmt"
	"io"
	"math/big"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
)

var bigOne = big.NewInt(1)

// RSAKey is an RSA public or private key.
type RSAKey struct {
	pub  *rsa.PublicKey
	priv *rsa.PrivateKey
}

// NewRSAPublicKey builds a public key from modulus and exponent.
func NewRSAPublicKey(n, e *big.Int) (*RSAKey, error) {
	if n == nil || e == nil || n.Sign() <= 0 || n.Bit(0) == 0 {
		return nil, fmt.Errorf("%w: RSA modulus must be a positive odd integer", encoding.ErrBadKey)
	}
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 || e.Bit(0) == 0 {
		return nil, fmt.Errorf("%w: unsupported RSA public exponent %v", encoding.ErrBadKey, e)
	}
	return &RSAKey{pub: &rsa.PublicKey{N: new(big.Int).Set(n), E: int(e.Int64())}}, nil
}

// NewRSAPrivateKey builds a private key from (n, e, d, p, q) and derives the
// CRT values. It checks n = p*q and e*d = 1 mod lcm(p-1, q-1).
func NewRSAPrivateKey(n, e, d, p, q *big.Int) (*RSAKey, error) {
	pub, err := NewRSAPublicKey(n, e)
	if err != nil {
		return nil, err
	}
	if d == nil || p == nil || q == nil || d.Sign() <= 0 || p.Cmp(bigOne) <= 0 || q.Cmp(bigOne) <= 0 {
		return nil, fmt.Errorf("%w: missing RSA private component", encoding.ErrBadKey)
	}
	if new(big.Int).Mul(p, q).Cmp(n) != 0 {
		return nil, fmt.Errorf("%w: RSA modulus is not p*q", encoding.ErrBadKey)
	}

	pm1 := new(big.Int).Sub(p, bigOne)
	qm1 := new(big.Int).Sub(q, bigOne)
	phi := new(big.Int).Mul(pm1, qm1)
	if new(big.Int).GCD(nil, nil, e, phi).Cmp(bigOne) != 0 {
		return nil, fmt.Errorf("%w: RSA exponent is not coprime to phi(n)", encoding.ErrBadKey)
	}
	gcd := new(big.Int).GCD(nil, nil, pm1, qm1)
	lambda := new(big.Int).Div(phi, gcd)
	if new(big.Int).Mod(new(big.Int).Mul(e, d), lambda).Cmp(bigOne) != 0 {
		return nil, fmt.Errorf("%w: RSA private exponent does not invert e", encoding.ErrBadKey)
	}

	priv := &rsa.PrivateKey{
		PublicKey: *pub.pub,
		D:         new(big.Int).Set(d),
		Primes:    []*big.Int{new(big.Int).Set(p), new(big.Int).Set(q)},
	}
	priv.Precompute()
	return &RSAKey{pub: &priv.PublicKey, priv: priv}, nil
}

// NewRSAPrivateKeyCRT is NewRSAPrivateKey for encodings that also carry the
// CRT parameters. They must agree with the values derived from p, q and d.
func NewRSAPrivateKeyCRT(n, e, d, p, q, dp, dq, qinv *big.Int) (*RSAKey, error) {
	k, err := NewRSAPrivateKey(n, e, d, p, q)
	if err != nil {
		return nil, err
	}
	if dp != nil && dp.Cmp(k.DP()) != 0 ||
		dq != nil && dq.Cmp(k.DQ()) != 0 ||
		qinv != nil && qinv.Cmp(k.QInv()) != 0 {
		return nil, fmt.Errorf("%w: RSA CRT parameters are inconsistent", encoding.ErrBadKey)
	}
	return k, nil
}

// NewRSAPrivateKeyFromPrimes derives d from (p, q, e). OpenSSH and DNS
// formats carry d explicitly; this is used by key generation and tests.
func NewRSAPrivateKeyFromPrimes(p, q, e *big.Int) (*RSAKey, error) {
	pm1 := new(big.Int).Sub(p, bigOne)
	qm1 := new(big.Int).Sub(q, bigOne)
	gcd := new(big.Int).GCD(nil, nil, pm1, qm1)
	lambda := new(big.Int).Div(new(big.Int).Mul(pm1, qm1), gcd)
	d := new(big.Int).ModInverse(e, lambda)
	if d == nil {
		return nil, fmt.Errorf("%w: RSA exponent is not invertible", encoding.ErrBadKey)
	}
	return NewRSAPrivateKey(new(big.Int).Mul(p, q), e, d, p, q)
}

// NewRSAPrivateKeyFromExponents recovers p and q from (n, e, d) using the
// probabilistic method of NIST SP 800-56B appendix C. JWKs may omit the primes.
func NewRSAPrivateKeyFromExponents(n, e, d *big.Int) (*RSAKey, error) {
	k := new(big.Int).Mul(e, d)
	k.Sub(k, bigOne)
	if k.Sign() <= 0 || k.Bit(0) != 0 {
		return nil, fmt.Errorf("%w: e*d-1 must be even", encoding.ErrBadKey)
	}
	t := 0
	r := new(big.Int).Set(k)
	for r.Bit(0) == 0 {
		r.Rsh(r, 1)
		t++
	}
	nm1 := new(big.Int).Sub(n, bigOne)
	for _, base := range []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71} {
		g := big.NewInt(base)
		y := new(big.Int).Exp(g, r, n)
		if y.Cmp(bigOne) == 0 || y.Cmp(nm1) == 0 {
			continue
		}
		for i := 0; i < t; i++ {
			x := new(big.Int).Exp(y, big.NewInt(2), n)
			if x.Cmp(bigOne) == 0 {
				p := new(big.Int).GCD(nil, nil, new(big.Int).Sub(y, bigOne), n)
				q := new(big.Int).Div(n, p)
				if p.Cmp(q) < 0 {
					p, q = q, p
				}
				return NewRSAPrivateKey(n, e, d, p, q)
			}
			if x.Cmp(nm1) == 0 {
				break
			}
			y = x
		}
	}
	return nil, fmt.Errorf("%w: cannot factor RSA modulus from exponents", encoding.ErrBadKey)
}

// NewRSAKeyFromStd wraps a standard-library key. Multi-prime keys are rejected.
func NewRSAKeyFromStd(k *rsa.PrivateKey) (*RSAKey, error) {
	if k == nil || len(k.Primes) != 2 {
		return nil, fmt.Errorf("%w: only two-prime RSA keys are supported", encoding.ErrBadKey)
	}
	return NewRSAPrivateKey(k.N, big.NewInt(int64(k.E)), k.D, k.Primes[0], k.Primes[1])
}

// GenerateRSA creates a new two-prime RSA key.
func GenerateRSA(random io.Reader, bits int) (*RSAKey, error) {
	priv, err := rsa.GenerateKey(random, bits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	return &RSAKey{pub: &priv.PublicKey, priv: priv}, nil
}

// Algorithm implements Key.
func (k *RSAKey) Algorithm() Algorithm { return AlgorithmRSA }

// IsPrivate implements Key.
func (k *RSAKey) IsPrivate() bool { return k.priv != nil }

// Bits implements Key.
func (k *RSAKey) Bits() int { return k.pub.N.BitLen() }

// Public implements Key.
func (k *RSAKey) Public() Key {
	if k.priv == nil {
		return k
	}
	return &RSAKey{pub: k.pub}
}

// Equal implements Key.
func (k *RSAKey) Equal(other Key) bool {
	o, ok := other.(*RSAKey)
	if !ok || k.IsPrivate() != o.IsPrivate() {
		return false
	}
	if k.priv != nil {
		return k.priv.Equal(o.priv)
	}
	return k.pub.Equal(o.pub)
}

// CryptoPublicKey implements Key.
func (k *RSAKey) CryptoPublicKey() crypto.PublicKey { return k.pub }

// CryptoPrivateKey implements Key.
func (k *RSAKey) CryptoPrivateKey() crypto.PrivateKey {
	if k.priv == nil {
		return nil
	}
	return k.priv
}

// PublicKey returns the wrapped public key.
func (k *RSAKey) PublicKey() *rsa.PublicKey { return k.pub }

// PrivateKey returns the wrapped private key or nil.
func (k *RSAKey) PrivateKey() *rsa.PrivateKey { return k.priv }

// N returns the modulus.
func (k *RSAKey) N() *big.Int { return k.pub.N }

// E returns the public exponent.
func (k *RSAKey) E() *big.Int { return big.NewInt(int64(k.pub.E)) }

// D returns the private exponent, or nil for public keys.
func (k *RSAKey) D() *big.Int { return k.privField(func(p *rsa.PrivateKey) *big.Int { return p.D }) }

// P returns the first prime.
func (k *RSAKey) P() *big.Int { return k.privField(func(p *rsa.PrivateKey) *big.Int { return p.Primes[0] }) }

// Q returns the second prime.
func (k *RSAKey) Q() *big.Int { return k.privField(func(p *rsa.PrivateKey) *big.Int { return p.Primes[1] }) }

// DP returns d mod (p-1).
func (k *RSAKey) DP() *big.Int {
	return k.privField(func(p *rsa.PrivateKey) *big.Int { return p.Precomputed.Dp })
}

// DQ returns d mod (q-1).
func (k *RSAKey) DQ() *big.Int {
	return k.privField(func(p *rsa.PrivateKey) *big.Int { return p.Precomputed.Dq })
}

// QInv returns q^-1 mod p.
func (k *RSAKey) QInv() *big.Int {
	return k.privField(func(p *rsa.PrivateKey) *big.Int { return p.Precomputed.Qinv })
}

func (k *RSAKey) privField(get func(*rsa.PrivateKey) *big.Int) *big.Int {
	if k.priv == nil {
		return nil
	}
	return get(k.priv)
}
