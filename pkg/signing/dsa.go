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

package signing

import (
	"crypto"
	"fmt"
	"io"
	"math/big"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// signDSA implements FIPS 186-4 section 4.6. The digest is truncated to
// the leftmost bitlen(q) bits. A nil random source selects RFC 6979 nonces.
func signDSA(random io.Reader, k *keys.DSAKey, hash crypto.Hash, digest []byte) ([]byte, error) {
	p, q, g, x := k.P(), k.Q(), k.G(), k.X()
	z := bits2int(digest, q.BitLen())

	var next func() (*big.Int, error)
	if random == nil {
		gen := nonceGenerator(q, x, hash, digest)
		next = func() (*big.Int, error) { return gen(), nil }
	} else {
		next = func() (*big.Int, error) { return randomScalar(random, q) }
	}

	for {
		kk, err := next()
		if err != nil {
			return nil, err
		}
		r := new(big.Int).Exp(g, kk, p)
		r.Mod(r, q)
		if r.Sign() == 0 {
			continue
		}
		kinv := new(big.Int).ModInverse(kk, q)
		s := new(big.Int).Mul(x, r)
		s.Add(s, z)
		s.Mul(s, kinv)
		s.Mod(s, q)
		if s.Sign() == 0 {
			continue
		}
		return der.EncodeSequence(der.Integer(r), der.Integer(s))
	}
}

func verifyDSA(k *keys.DSAKey, hash crypto.Hash, digest, sig []byte) error {
	r, s, err := parseDERSignature(sig)
	if err != nil {
		return err
	}
	p, q, g, y := k.P(), k.Q(), k.G(), k.Y()
	if r.Sign() <= 0 || r.Cmp(q) >= 0 || s.Sign() <= 0 || s.Cmp(q) >= 0 {
		return fmt.Errorf("%w: DSA signature out of range", encoding.ErrBadSignature)
	}
	z := bits2int(digest, q.BitLen())
	w := new(big.Int).ModInverse(s, q)
	u1 := new(big.Int).Mul(z, w)
	u1.Mod(u1, q)
	u2 := new(big.Int).Mul(r, w)
	u2.Mod(u2, q)
	v := new(big.Int).Exp(g, u1, p)
	v.Mul(v, new(big.Int).Exp(y, u2, p))
	v.Mod(v, p)
	v.Mod(v, q)
	if v.Cmp(r) != 0 {
		return fmt.Errorf("%w: dsa-with-%v", encoding.ErrBadSignature, hash)
	}
	return nil
}

// randomScalar draws k uniformly from [1, q-1] by rejection sampling.
func randomScalar(random io.Reader, q *big.Int) (*big.Int, error) {
	buf := make([]byte, (q.BitLen()+7)/8)
	defer clear(buf)
	excess := uint(len(buf)*8 - q.BitLen())
	for {
		if _, err := io.ReadFull(random, buf); err != nil {
			return nil, fmt.Errorf("read nonce: %w", err)
		}
		buf[0] &= 0xff >> excess
		k := new(big.Int).SetBytes(buf)
		if k.Sign() > 0 && k.Cmp(q) < 0 {
			return k, nil
		}
	}
}
