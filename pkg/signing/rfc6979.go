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
	"crypto/hmac"
	"math/big"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// nonceGenerator yields the RFC 6979 section 3.2 candidate sequence for
// private key x over a group of order q. Each call returns the next k in
// [1, q-1].
func nonceGenerator(q, x *big.Int, hash crypto.Hash, digest []byte) func() *big.Int {
	qlen := q.BitLen()
	rolen := (qlen + 7) / 8
	hlen := hash.Size()

	bx := append(int2octets(x, rolen), bits2octets(digest, q, rolen)...)
	defer clear(bx)

	v := make([]byte, hlen)
	k := make([]byte, hlen)
	for i := range v {
		v[i] = 0x01
	}
	mac := func(key []byte, parts ...[]byte) []byte {
		m := hmac.New(hash.New, key)
		for _, p := range parts {
			m.Write(p)
		}
		return m.Sum(nil)
	}

	k = mac(k, v, []byte{0x00}, bx)
	v = mac(k, v)
	k = mac(k, v, []byte{0x01}, bx)
	v = mac(k, v)

	first := true
	return func() *big.Int {
		for {
			if !first {
				k = mac(k, v, []byte{0x00})
				v = mac(k, v)
			}
			first = false
			var t []byte
			for len(t) < rolen {
				v = mac(k, v)
				t = append(t, v...)
			}
			n := bits2int(t, qlen)
			if n.Sign() > 0 && n.Cmp(q) < 0 {
				return n
			}
		}
	}
}

// signECDSADeterministic signs on curves crypto/ecdsa has no RFC 6979
// path for (SEC 1 section 4.1.3 with the section 3.2 nonce).
func signECDSADeterministic(k *keys.ECDSAKey, hash crypto.Hash, digest []byte) ([]byte, error) {
	curve := k.Curve().Elliptic()
	n := curve.Params().N
	d := k.D()
	e := bits2int(digest, n.BitLen())
	next := nonceGenerator(n, d, hash, digest)
	scalar := make([]byte, (n.BitLen()+7)/8)
	defer clear(scalar)
	for {
		nonce := next()
		rx, _ := curve.ScalarBaseMult(nonce.FillBytes(scalar))
		r := rx.Mod(rx, n)
		if r.Sign() == 0 {
			continue
		}
		s := new(big.Int).Mul(d, r)
		s.Add(s, e)
		s.Mul(s, new(big.Int).ModInverse(nonce, n))
		s.Mod(s, n)
		if s.Sign() == 0 {
			continue
		}
		return der.EncodeSequence(der.Integer(r), der.Integer(s))
	}
}

// bits2int takes the leftmost qlen bits of b as an integer.
func bits2int(b []byte, qlen int) *big.Int {
	n := new(big.Int).SetBytes(b)
	if blen := len(b) * 8; blen > qlen {
		n.Rsh(n, uint(blen-qlen))
	}
	return n
}

func int2octets(n *big.Int, rolen int) []byte {
	return n.FillBytes(make([]byte, rolen))
}

func bits2octets(b []byte, q *big.Int, rolen int) []byte {
	z := bits2int(b, q.BitLen())
	if z.Cmp(q) >= 0 {
		z.Sub(z, q)
	}
	return int2octets(z, rolen)
}
