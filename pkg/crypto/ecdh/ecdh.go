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

// Package ecdh provides the key agreement behind JWE "ECDH-ES": the raw
// shared secret Z for NIST curves and X25519/X448, and the NIST SP 800-56A
// Concat KDF with the RFC 7518 section 4.6.2 OtherInfo layout.
//
// Example usage:
//
//	epk, _ := ecdh.GenerateEphemeral(rand.Reader, recipient)
//	kek, _ := ecdh.DeriveKey("ECDH-ES+A128KW", apu, apv, epk, recipient, 16)
package ecdh

import (
	"crypto"
	"encoding/binary"
	"fmt"
	"io"

	josecipher "github.com/go-jose/go-jose/v4/cipher"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// SharedSecret computes Z between a private key and a public key on the
// same curve. NIST curves yield the x coordinate of the shared point and
// Montgomery curves the u coordinate.
func SharedSecret(priv, pub keys.Key) ([]byte, error) {
	if priv == nil || pub == nil {
		return nil, fmt.Errorf("%w: key agreement needs two keys", encoding.ErrInvalidData)
	}
	if !priv.IsPrivate() {
		return nil, fmt.Errorf("%w: key agreement needs a private key", encoding.ErrInvalidPrivateKey)
	}

	switch sk := priv.(type) {
	case *keys.ECDSAKey:
		pk, ok := pub.(*keys.ECDSAKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s public key with an EC private key", encoding.ErrBadKey, pub.Algorithm())
		}
		if sk.Curve() != pk.Curve() {
			return nil, fmt.Errorf("%w: curve mismatch: %s and %s", encoding.ErrBadKey, sk.Curve(), pk.Curve())
		}
		curve := sk.Curve().ECDH()
		if curve == nil {
			return nil, fmt.Errorf("%w: ECDH on %s", encoding.ErrUnsupportedAlgorithm, sk.Curve())
		}
		d := sk.DBytes()
		defer clear(d)
		ecdhPriv, err := curve.NewPrivateKey(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", encoding.ErrInvalidPrivateKey, err)
		}
		ecdhPub, err := curve.NewPublicKey(pk.Point())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", encoding.ErrInvalidPublicKey, err)
		}
		z, err := ecdhPriv.ECDH(ecdhPub)
		if err != nil {
			return nil, fmt.Errorf("%w: ECDH: %v", encoding.ErrBadKey, err)
		}
		return z, nil

	case *keys.XDHKey:
		pk, ok := pub.(*keys.XDHKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s public key with an XDH private key", encoding.ErrBadKey, pub.Algorithm())
		}
		return sk.Shared(pk)
	}
	return nil, fmt.Errorf("%w: %s keys cannot agree on a secret", encoding.ErrUnsupportedAlgorithm, priv.Algorithm())
}

// GenerateEphemeral creates a fresh private key on the curve of pub.
func GenerateEphemeral(random io.Reader, pub keys.Key) (keys.Key, error) {
	switch k := pub.(type) {
	case *keys.ECDSAKey:
		if k.Curve().ECDH() == nil {
			return nil, fmt.Errorf("%w: ECDH on %s", encoding.ErrUnsupportedAlgorithm, k.Curve())
		}
		return keys.GenerateECDSA(random, k.Curve())
	case *keys.XDHKey:
		return keys.GenerateXDH(random, k.Curve())
	}
	return nil, fmt.Errorf("%w: no ephemeral key for %T", encoding.ErrUnsupportedAlgorithm, pub)
}

// ConcatKDF derives size bytes from z with SHA-256. The OtherInfo is
// AlgorithmID || PartyUInfo || PartyVInfo || SuppPubInfo where the first
// three are 32-bit length prefixed and SuppPubInfo is the key length in
// bits as a 32-bit big-endian integer.
func ConcatKDF(z []byte, algID string, apu, apv []byte, size int) []byte {
	supPub := make([]byte, 4)
	binary.BigEndian.PutUint32(supPub, uint32(size)*8)
	r := josecipher.NewConcatKDF(crypto.SHA256, z,
		lengthPrefixed([]byte(algID)), lengthPrefixed(apu), lengthPrefixed(apv), supPub, nil)
	out := make([]byte, size)
	// The KDF reader never fails.
	_, _ = io.ReadFull(r, out)
	return out
}

// DeriveKey computes Z between priv and pub and feeds it to ConcatKDF.
// algID is the "enc" value for direct agreement and the "alg" value when
// the result wraps a CEK.
func DeriveKey(algID string, apu, apv []byte, priv, pub keys.Key, size int) ([]byte, error) {
	z, err := SharedSecret(priv, pub)
	if err != nil {
		return nil, err
	}
	defer clear(z)
	return ConcatKDF(z, algID, apu, apv, size), nil
}

func lengthPrefixed(data []byte) []byte {
	out := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	copy(out[4:], data)
	return out
}
