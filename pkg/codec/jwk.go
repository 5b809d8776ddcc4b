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
	"strings"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// jwkAlgorithm maps kty and crv to the key algorithm. Symmetric JWKs have
// no key algorithm and are never matched.
func jwkAlgorithm(j *jwk.JWK) (keys.Algorithm, bool) {
	switch jwk.KeyType(j.Kty) {
	case jwk.KeyTypeRSA:
		return keys.AlgorithmRSA, true
	case jwk.KeyTypeEC:
		return keys.AlgorithmECDSA, true
	case jwk.KeyTypeOKP:
		if strings.HasPrefix(j.Crv, "Ed") {
			return keys.AlgorithmEdDSA, true
		}
		return keys.AlgorithmXDH, true
	}
	return "", false
}

func jwkCodec(alg keys.Algorithm) *codec {
	return &codec{
		format: FormatJWK,
		alg:    alg,
		check: func(buf []byte) bool {
			if !jwk.Check(buf) {
				return false
			}
			j, err := jwk.Unmarshal(buf)
			if err != nil {
				return false
			}
			a, ok := jwkAlgorithm(j)
			return ok && a == alg
		},
		encode: func(k keys.Key, opts *Options) ([]byte, error) {
			if opts.public() {
				k = k.Public()
			}
			j, err := jwk.FromKey(k)
			if err != nil {
				return nil, err
			}
			return j.Marshal()
		},
		decode: func(buf []byte, _ *Options) (keys.Key, error) {
			j, err := jwk.Unmarshal(buf)
			if err != nil {
				return nil, err
			}
			return j.Key()
		},
	}
}

func init() {
	register(
		jwkCodec(keys.AlgorithmRSA),
		jwkCodec(keys.AlgorithmECDSA),
		jwkCodec(keys.AlgorithmEdDSA),
		jwkCodec(keys.AlgorithmXDH),
	)
}
