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
	"math/big"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// MarshalSPKI returns the DER SubjectPublicKeyInfo of k's public half.
func MarshalSPKI(k keys.Key) ([]byte, error) {
	item, err := spkiItem(k)
	if err != nil {
		return nil, err
	}
	return der.Encode(item)
}

func spkiItem(k keys.Key) (der.Item, error) {
	algID, err := algorithmIdentifier(k)
	if err != nil {
		return nil, err
	}
	var bits []byte
	switch key := k.(type) {
	case *keys.RSAKey:
		bits, err = der.Encode(rsaPublicItem(key))
	case *keys.DSAKey:
		bits, err = der.Encode(der.Integer(key.Y()))
	case *keys.ECDSAKey:
		bits = key.Point()
	case *keys.EdDSAKey:
		bits = key.PublicBytes()
	case *keys.XDHKey:
		bits = key.PublicBytes()
	case *keys.DHKey:
		bits, err = der.Encode(der.Integer(key.Y()))
	}
	if err != nil {
		return nil, err
	}
	return der.Sequence(algID, der.BitString(bits)), nil
}

// ParseSPKI decodes a DER SubjectPublicKeyInfo.
func ParseSPKI(b []byte) (keys.Key, error) {
	elems, err := der.DecodeSequence(b)
	if err != nil {
		return nil, err
	}
	alg, bits, err := splitSPKI(elems)
	if err != nil {
		return nil, err
	}
	return parseSPKIKey(alg, bits)
}

func splitSPKI(elems []der.Element) (keyAlgorithm, []byte, error) {
	if err := der.Expect(elems, 2, 2); err != nil {
		return keyAlgorithm{}, nil, fmt.Errorf("SubjectPublicKeyInfo: %w", err)
	}
	alg, err := parseKeyAlgorithm(elems[0])
	if err != nil {
		return keyAlgorithm{}, nil, err
	}
	bits, err := elems[1].BitStringBytes()
	if err != nil {
		return keyAlgorithm{}, nil, err
	}
	return alg, bits, nil
}

func parseSPKIKey(alg keyAlgorithm, bits []byte) (keys.Key, error) {
	a, err := alg.algorithm()
	if err != nil {
		return nil, err
	}
	switch a {
	case keys.AlgorithmRSA:
		elems, err := der.DecodeSequence(bits)
		if err != nil {
			return nil, err
		}
		return parseRSAPublic(elems)
	case keys.AlgorithmDSA:
		p, q, g, err := alg.dsaParams()
		if err != nil {
			return nil, err
		}
		y, err := decodeInteger(bits)
		if err != nil {
			return nil, err
		}
		return keys.NewDSAPublicKey(p, q, g, y)
	case keys.AlgorithmECDSA:
		curve, err := alg.ecCurve()
		if err != nil {
			return nil, err
		}
		return keys.NewECDSAPublicKey(curve, bits)
	case keys.AlgorithmEdDSA:
		curve, err := keys.EdCurveByOID(alg.oid)
		if err != nil {
			return nil, err
		}
		return keys.NewEdDSAPublicKey(curve, bits)
	case keys.AlgorithmXDH:
		curve, err := keys.XCurveByOID(alg.oid)
		if err != nil {
			return nil, err
		}
		return keys.NewXDHPublicKey(curve, bits)
	default:
		p, g, err := alg.dhParams()
		if err != nil {
			return nil, err
		}
		y, err := decodeInteger(bits)
		if err != nil {
			return nil, err
		}
		return keys.NewDHPublicKey(p, g, y)
	}
}

func decodeInteger(b []byte) (*big.Int, error) {
	e, err := der.DecodeElement(b)
	if err != nil {
		return nil, err
	}
	return e.Int()
}

func checkSPKI(alg keys.Algorithm) func([]byte) bool {
	return func(buf []byte) bool {
		b, encrypted, ok := peek(buf, pem.TypePublicKey)
		if !ok || encrypted {
			return ok
		}
		elems, err := der.DecodeSequence(b)
		if err != nil {
			return false
		}
		ka, _, err := splitSPKI(elems)
		if err != nil {
			return false
		}
		a, err := ka.algorithm()
		return err == nil && a == alg
	}
}

func spkiCodec(alg keys.Algorithm) *codec {
	return &codec{
		format: FormatSPKI,
		alg:    alg,
		check:  checkSPKI(alg),
		encode: func(k keys.Key, opts *Options) ([]byte, error) {
			b, err := MarshalSPKI(k.Public())
			if err != nil {
				return nil, err
			}
			return armor(b, pem.TypePublicKey, opts, false)
		},
		decode: func(buf []byte, opts *Options) (keys.Key, error) {
			b, err := unarmor(buf, opts.passphrase(), pem.TypePublicKey)
			if err != nil {
				return nil, err
			}
			return ParseSPKI(b)
		},
	}
}

func init() {
	register(
		spkiCodec(keys.AlgorithmRSA),
		spkiCodec(keys.AlgorithmDSA),
		spkiCodec(keys.AlgorithmECDSA),
		spkiCodec(keys.AlgorithmEdDSA),
		spkiCodec(keys.AlgorithmXDH),
		spkiCodec(keys.AlgorithmDH),
	)
}
