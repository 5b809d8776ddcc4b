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

// Package keys holds the in-memory asymmetric key types shared by every
// codec: RSA, DSA, ECDSA over the NIST prime curves, EdDSA (Ed25519 and
// Ed448), finite-field Diffie-Hellman and X25519/X448 key agreement.
//
// Keys are immutable once constructed. Constructors validate the algebraic
// invariants of the key and return encoding.ErrBadKey when they do not hold.
// Where the standard library (or circl for Ed448) has a native type, the key
// wraps it so it can be handed to crypto.Signer consumers unchanged.
package keys

import (
	"crypto"
	"strings"
)

// =============================================================================
// Algorithm Identifiers
// =============================================================================

// Algorithm names a key family.
type Algorithm string

const (
	// AlgorithmRSA is RSA (PKCS #1).
	AlgorithmRSA Algorithm = "RSA"

	// AlgorithmDSA is the FIPS 186 Digital Signature Algorithm.
	AlgorithmDSA Algorithm = "DSA"

	// AlgorithmECDSA is ECDSA over a named Weierstrass curve.
	AlgorithmECDSA Algorithm = "ECDSA"

	// AlgorithmEdDSA is EdDSA over Ed25519 or Ed448.
	AlgorithmEdDSA Algorithm = "EdDSA"

	// AlgorithmDH is finite-field Diffie-Hellman.
	AlgorithmDH Algorithm = "DH"

	// AlgorithmXDH is X25519 or X448 key agreement.
	AlgorithmXDH Algorithm = "XDH"
)

// String returns the string representation.
func (a Algorithm) String() string {
	return string(a)
}

// Lower returns the lowercase form of the algorithm name.
func (a Algorithm) Lower() string {
	return strings.ToLower(string(a))
}

// Equals performs case-insensitive comparison.
func (a Algorithm) Equals(s string) bool {
	return strings.EqualFold(string(a), s)
}

// Algorithms lists every key family in codec priority order.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmRSA, AlgorithmDSA, AlgorithmECDSA, AlgorithmEdDSA, AlgorithmXDH, AlgorithmDH}
}

// =============================================================================
// Key Interface
// =============================================================================

// Key is implemented by *RSAKey, *DSAKey, *ECDSAKey, *EdDSAKey, *XDHKey
// and *DHKey.
type Key interface {
	// Algorithm returns the key family.
	Algorithm() Algorithm

	// IsPrivate reports whether the key carries private material.
	IsPrivate() bool

	// Bits returns the security-relevant size: modulus or prime length for
	// RSA, DSA and DH; field size for curves.
	Bits() int

	// Public returns the public projection. Public keys return themselves.
	Public() Key

	// Equal reports whether other is the same key, including private fields.
	Equal(other Key) bool

	// CryptoPublicKey returns the standard-library (or circl) public key.
	CryptoPublicKey() crypto.PublicKey

	// CryptoPrivateKey returns the standard-library (or circl) private key,
	// or nil for public keys.
	CryptoPrivateKey() crypto.PrivateKey
}
