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

package codec

import (
	"fmt"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// PKCS#1 here means the algorithm-specific "traditional" structures:
// RSAPrivateKey/RSAPublicKey (RFC 8017), OpenSSL's DSAPrivateKey and
// DSAPublicKey, and SEC 1 ECPrivateKey. EC public keys have no such
// structure and are written as SubjectPublicKeyInfo.

// MarshalPKCS1 returns the traditional DER encoding of k. public selects
// the public structure for a private key.
func MarshalPKCS1(k keys.Key, public bool) ([]byte, error) {
	private := k.IsPrivate() && !public
	switch key := k.(type) {
	case *keys.RSAKey:
		if private {
			return der.Encode(rsaPrivateItem(key))
		}
		return der.Encode(rsaPublicItem(key))
	case *keys.DSAKey:
		if private {
			return der.Encode(dsaPrivateItem(key))
		}
		return der.Encode(dsaPublicItem(key))
	case *keys.ECDSAKey:
		if private {
			return der.Encode(ecPrivateItem(key, true))
		}
		return MarshalSPKI(key.Public())
	}
	return nil, fmt.Errorf("%w: no PKCS#1 structure for %s keys", encoding.ErrUnsupportedAlgorithm, k.Algorithm())
}

type pkcs1Shape struct {
	alg         keys.Algorithm
	privateType string
	publicType  string
	isPrivate   func([]der.Element) bool
	isPublic    func([]der.Element) bool
	parse       func([]der.Element, bool) (keys.Key, error)
}

var pkcs1Shapes = []pkcs1Shape{
	{
		alg: keys.AlgorithmRSA, privateType: pem.TypeRSAPrivateKey, publicType: pem.TypeRSAPublicKey,
		isPrivate: isRSAPrivate, isPublic: isRSAPublic,
		parse: func(elems []der.Element, private bool) (keys.Key, error) {
			if private {
				return parseRSAPrivate(elems)
			}
			return parseRSAPublic(elems)
		},
	},
	{
		alg: keys.AlgorithmDSA, privateType: pem.TypeDSAPrivateKey, publicType: pem.TypeDSAPublicKey,
		isPrivate: isDSAPrivate, isPublic: isDSAPublic,
		parse: func(elems []der.Element, private bool) (keys.Key, error) {
			if private {
				return parseDSAPrivate(elems)
			}
			return parseDSAPublic(elems)
		},
	},
	{
		alg: keys.AlgorithmECDSA, privateType: pem.TypeECPrivateKey, publicType: pem.TypePublicKey,
		isPrivate: isECPrivate,
		isPublic: func(elems []der.Element) bool {
			ka, _, err := splitSPKI(elems)
			if err != nil {
				return false
			}
			a, err := ka.algorithm()
			return err == nil && a == keys.AlgorithmECDSA
		},
		parse: func(elems []der.Element, private bool) (keys.Key, error) {
			if private {
				return parseECPrivate(elems, nil)
			}
			alg, bits, err := splitSPKI(elems)
			if err != nil {
				return nil, err
			}
			return parseSPKIKey(alg, bits)
		},
	},
}

// skipECParameters drops a leading "EC PARAMETERS" block as written by
// "openssl ecparam -genkey".
func skipECParameters(buf []byte) []byte {
	if !pem.IsPEM(buf) {
		return buf
	}
	block, rest, err := pem.DecodeNext(buf, nil)
	if err != nil || block.Type != pem.TypeECParameters {
		return buf
	}
	return rest
}

func (s pkcs1Shape) check(buf []byte) bool {
	b, encrypted, ok := peek(skipECParameters(buf), s.privateType, s.publicType)
	if !ok || encrypted {
		return ok
	}
	elems, err := der.DecodeSequence(b)
	if err != nil {
		return false
	}
	return s.isPrivate(elems) || s.isPublic(elems)
}

func (s pkcs1Shape) encode(k keys.Key, opts *Options) ([]byte, error) {
	private := k.IsPrivate() && !opts.public()
	b, err := MarshalPKCS1(k, !private)
	if err != nil {
		return nil, err
	}
	if !private {
		return armor(b, s.publicType, opts, false)
	}
	defer clear(b)
	return armor(b, s.privateType, opts, true)
}

func (s pkcs1Shape) decode(buf []byte, opts *Options) (keys.Key, error) {
	b, err := unarmor(skipECParameters(buf), opts.passphrase(), s.privateType, s.publicType)
	if err != nil {
		return nil, err
	}
	elems, err := der.DecodeSequence(b)
	if err != nil {
		return nil, wrongPassphrase(buf, err)
	}
	switch {
	case s.isPrivate(elems):
		k, err := s.parse(elems, true)
		return k, wrongPassphrase(buf, err)
	case s.isPublic(elems):
		return s.parse(elems, false)
	}
	if pem.IsEncrypted(buf) {
		return nil, fmt.Errorf("%w: decrypted data is not a %s key", encoding.ErrBadPassphrase, s.alg)
	}
	return nil, fmt.Errorf("%w: not a PKCS#1 %s key", encoding.ErrUnrecognizedKey, s.alg)
}

func init() {
	for _, s := range pkcs1Shapes {
		register(&codec{format: FormatPKCS1, alg: s.alg, check: s.check, encode: s.encode, decode: s.decode})
	}
}
