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
	"crypto/dsa" //nolint:staticcheck // see dsa.go
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
)

// FromCrypto wraps a standard-library or circl key value.
func FromCrypto(k any) (Key, error) {
	switch v := k.(type) {
	case Key:
		return v, nil
	case *rsa.PrivateKey:
		return NewRSAKeyFromStd(v)
	case *rsa.PublicKey:
		return NewRSAPublicKey(v.N, big.NewInt(int64(v.E)))
	case *ecdsa.PrivateKey:
		return NewECDSAKeyFromStd(v)
	case *ecdsa.PublicKey:
		return NewECDSAPublicKeyFromStd(v)
	case ed25519.PrivateKey:
		return NewEdDSAPrivateKey(Ed25519, v.Seed())
	case *ed25519.PrivateKey:
		return NewEdDSAPrivateKey(Ed25519, v.Seed())
	case ed25519.PublicKey:
		return NewEdDSAPublicKey(Ed25519, v)
	case ed448.PrivateKey:
		return NewEdDSAPrivateKey(Ed448, v.Seed())
	case ed448.PublicKey:
		return NewEdDSAPublicKey(Ed448, v)
	case *dsa.PrivateKey:
		return NewDSAPrivateKeyWithY(v.P, v.Q, v.G, v.Y, v.X)
	case *dsa.PublicKey:
		return NewDSAPublicKey(v.P, v.Q, v.G, v.Y)
	case *ecdh.PrivateKey:
		if v.Curve() != ecdh.X25519() {
			return NewECDSAKeyFromECDH(v)
		}
		return NewXDHPrivateKey(X25519, v.Bytes())
	case *ecdh.PublicKey:
		if v.Curve() != ecdh.X25519() {
			return NewECDSAPublicKeyFromECDH(v)
		}
		return NewXDHPublicKey(X25519, v.Bytes())
	case nil:
		return nil, encoding.ErrInvalidData
	}
	return nil, fmt.Errorf("%w: %T", encoding.ErrUnsupportedAlgorithm, k)
}
