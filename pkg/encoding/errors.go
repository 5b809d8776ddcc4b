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

package encoding

import "errors"

// The error taxonomy shared by every codec, the PEM layer, the signature
// registry and the JOSE packages. Callers match with errors.Is; packages wrap
// these with context using fmt.Errorf("%w: ...").
var (
	// ErrBadPEM is returned for malformed PEM boundaries or headers
	ErrBadPEM = errors.New("encoding: malformed PEM")

	// ErrPassphraseRequired is returned when an encrypted block is decoded without a passphrase
	ErrPassphraseRequired = errors.New("encoding: passphrase required")

	// ErrBadPassphrase is returned when decryption with the supplied passphrase yields garbage
	ErrBadPassphrase = errors.New("encoding: bad passphrase")

	// ErrUnsupportedCipher is returned for a cipher that is known by name but not implemented
	ErrUnsupportedCipher = errors.New("encoding: unsupported cipher")

	// ErrUnsupportedAlgorithm is returned for unknown OIDs, JWA names or key algorithms
	ErrUnsupportedAlgorithm = errors.New("encoding: unsupported algorithm")

	// ErrBadASN1 is returned when DER decoding fails or the structure does not match
	ErrBadASN1 = errors.New("encoding: malformed ASN.1")

	// ErrBadKey is returned when key material is well formed but violates a key invariant
	ErrBadKey = errors.New("encoding: invalid key")

	// ErrBadSignature is returned when signature verification fails
	ErrBadSignature = errors.New("encoding: signature verification failed")

	// ErrBadMAC is returned when a MAC or authentication tag does not match
	ErrBadMAC = errors.New("encoding: authentication tag mismatch")

	// ErrUnrecognizedKey is returned when the auto-parser exhausts every codec
	ErrUnrecognizedKey = errors.New("encoding: unrecognized key format")

	// ErrDecryptionFailed is returned when no JWE recipient could be decrypted
	ErrDecryptionFailed = errors.New("encoding: decryption failed")

	// ErrOverflow is returned when a value does not fit the requested width
	ErrOverflow = errors.New("encoding: value overflows requested size")

	// ErrInvalidData is returned when data is nil, empty, or malformed
	ErrInvalidData = errors.New("encoding: invalid data")

	// ErrInvalidPrivateKey is returned when a private key is nil or missing
	ErrInvalidPrivateKey = errors.New("encoding: invalid private key")

	// ErrInvalidPublicKey is returned when a public key is nil or missing
	ErrInvalidPublicKey = errors.New("encoding: invalid public key")
)
