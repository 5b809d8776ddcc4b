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

// Package wrapping implements the JWE key encryption and key wrapping
// primitives of RFC 7518 section 4: RSAES-PKCS1-v1_5, RSAES-OAEP, AES Key
// Wrap (RFC 3394), AES-GCM key wrap and the PBES2 key derivation.
//
// Every unwrap failure wraps encoding.ErrDecryptionFailed so callers can
// move on to the next recipient.
package wrapping

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"

	josecipher "github.com/go-jose/go-jose/v4/cipher"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// GCMIVSize is the 96-bit IV of AES-GCM key wrap.
	GCMIVSize = 12
	// GCMTagSize is the 128-bit authentication tag of AES-GCM key wrap.
	GCMTagSize = 16
	// MinPBES2SaltSize is the RFC 7518 section 4.8.1.1 minimum for p2s.
	MinPBES2SaltSize = 8
)

// ============================================================================
// RSA
// ============================================================================

// EncryptRSA1_5 encrypts cek with RSAES-PKCS1-v1_5 (JWE "RSA1_5").
func EncryptRSA1_5(random io.Reader, pub *rsa.PublicKey, cek []byte) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: RSA public key is required", encoding.ErrInvalidPublicKey)
	}
	//nolint:staticcheck // SA1019: RSA1_5 is a registered JWE algorithm
	out, err := rsa.EncryptPKCS1v15(randOrDefault(random), pub, cek)
	if err != nil {
		return nil, fmt.Errorf("RSA1_5 key encryption: %w", err)
	}
	return out, nil
}

// DecryptRSA1_5 recovers a cekSize-byte CEK. A padding failure yields a
// random CEK instead of an error so that the content decryption fails
// without revealing which step went wrong (RFC 7516 section 11.5).
func DecryptRSA1_5(random io.Reader, priv *rsa.PrivateKey, wrapped []byte, cekSize int) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: RSA private key is required", encoding.ErrInvalidPrivateKey)
	}
	cek := make([]byte, cekSize)
	if _, err := io.ReadFull(randOrDefault(random), cek); err != nil {
		return nil, fmt.Errorf("RSA1_5 key decryption: %w", err)
	}
	//nolint:staticcheck // SA1019: RSA1_5 is a registered JWE algorithm
	if err := rsa.DecryptPKCS1v15SessionKey(nil, priv, wrapped, cek); err != nil {
		return nil, fmt.Errorf("%w: RSA1_5: %v", encoding.ErrDecryptionFailed, err)
	}
	return cek, nil
}

// EncryptRSAOAEP encrypts cek with RSAES-OAEP using hash for both the
// label digest and MGF1 ("RSA-OAEP" is SHA-1, "RSA-OAEP-256" SHA-256).
func EncryptRSAOAEP(random io.Reader, pub *rsa.PublicKey, hash crypto.Hash, cek []byte) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: RSA public key is required", encoding.ErrInvalidPublicKey)
	}
	if !hash.Available() {
		return nil, fmt.Errorf("%w: OAEP hash %v", encoding.ErrUnsupportedAlgorithm, hash)
	}
	out, err := rsa.EncryptOAEP(hash.New(), randOrDefault(random), pub, cek, nil)
	if err != nil {
		return nil, fmt.Errorf("RSA-OAEP key encryption: %w", err)
	}
	return out, nil
}

// DecryptRSAOAEP is the inverse of EncryptRSAOAEP.
func DecryptRSAOAEP(priv *rsa.PrivateKey, hash crypto.Hash, wrapped []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: RSA private key is required", encoding.ErrInvalidPrivateKey)
	}
	if !hash.Available() {
		return nil, fmt.Errorf("%w: OAEP hash %v", encoding.ErrUnsupportedAlgorithm, hash)
	}
	cek, err := rsa.DecryptOAEP(hash.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: RSA-OAEP: %v", encoding.ErrDecryptionFailed, err)
	}
	return cek, nil
}

// ============================================================================
// AES Key Wrap
// ============================================================================

// AESKeyWrap wraps cek under kek with RFC 3394 and the default IV
// A6A6A6A6A6A6A6A6. The kek selects AES-128, -192 or -256.
func AESKeyWrap(kek, cek []byte) ([]byte, error) {
	block, err := newAES(kek)
	if err != nil {
		return nil, err
	}
	if len(cek) < 16 || len(cek)%8 != 0 {
		return nil, fmt.Errorf("%w: key wrap input must be a multiple of 8 bytes and at least 16", encoding.ErrInvalidData)
	}
	out, err := josecipher.KeyWrap(block, cek)
	if err != nil {
		return nil, fmt.Errorf("AES key wrap: %w", err)
	}
	return out, nil
}

// AESKeyUnwrap reverses AESKeyWrap and checks the integrity value.
func AESKeyUnwrap(kek, wrapped []byte) ([]byte, error) {
	block, err := newAES(kek)
	if err != nil {
		return nil, err
	}
	if len(wrapped) < 24 || len(wrapped)%8 != 0 {
		return nil, fmt.Errorf("%w: wrapped key has invalid length %d", encoding.ErrDecryptionFailed, len(wrapped))
	}
	cek, err := josecipher.KeyUnwrap(block, wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: AES key unwrap: %v", encoding.ErrDecryptionFailed, err)
	}
	return cek, nil
}

// ============================================================================
// AES-GCM Key Wrap
// ============================================================================

// AESGCMKeyWrap encrypts cek with AES-GCM under kek and a fresh 96-bit IV.
// The IV and tag travel in the JWE "iv" and "tag" header parameters.
func AESGCMKeyWrap(random io.Reader, kek, cek []byte) (wrapped, iv, tag []byte, err error) {
	aead, err := newGCM(kek)
	if err != nil {
		return nil, nil, nil, err
	}
	iv = make([]byte, GCMIVSize)
	if _, err := io.ReadFull(randOrDefault(random), iv); err != nil {
		return nil, nil, nil, fmt.Errorf("AES-GCM key wrap IV: %w", err)
	}
	sealed := aead.Seal(nil, iv, cek, nil)
	n := len(sealed) - GCMTagSize
	return sealed[:n], iv, sealed[n:], nil
}

// AESGCMKeyUnwrap reverses AESGCMKeyWrap.
func AESGCMKeyUnwrap(kek, iv, tag, wrapped []byte) ([]byte, error) {
	aead, err := newGCM(kek)
	if err != nil {
		return nil, err
	}
	if len(iv) != GCMIVSize || len(tag) != GCMTagSize {
		return nil, fmt.Errorf("%w: AES-GCM key wrap needs a %d-byte iv and %d-byte tag", encoding.ErrDecryptionFailed, GCMIVSize, GCMTagSize)
	}
	sealed := make([]byte, 0, len(wrapped)+len(tag))
	sealed = append(append(sealed, wrapped...), tag...)
	cek, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: AES-GCM key unwrap: %v", encoding.ErrDecryptionFailed, err)
	}
	return cek, nil
}

// ============================================================================
// PBES2
// ============================================================================

// PBES2Key derives the key-wrapping key for "PBES2-HSn+AkKW": PBKDF2 with
// HMAC-hash over the salt UTF8(alg) || 0x00 || p2s.
func PBES2Key(hash crypto.Hash, password []byte, alg string, p2s []byte, p2c, size int) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: PBES2 password is empty", encoding.ErrPassphraseRequired)
	}
	if len(p2s) < MinPBES2SaltSize {
		return nil, fmt.Errorf("%w: p2s must be at least %d bytes", encoding.ErrInvalidData, MinPBES2SaltSize)
	}
	if p2c < 1 {
		return nil, fmt.Errorf("%w: p2c must be positive", encoding.ErrInvalidData)
	}
	if !hash.Available() {
		return nil, fmt.Errorf("%w: PBES2 hash %v", encoding.ErrUnsupportedAlgorithm, hash)
	}
	salt := make([]byte, 0, len(alg)+1+len(p2s))
	salt = append(append(append(salt, alg...), 0), p2s...)
	return pbkdf2.Key(password, salt, p2c, size, hash.New), nil
}

// ============================================================================
// Helpers
// ============================================================================

func newAES(kek []byte) (cipher.Block, error) {
	switch len(kek) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: AES key must be 16, 24 or 32 bytes, got %d", encoding.ErrBadKey, len(kek))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", encoding.ErrBadKey, err)
	}
	return block, nil
}

func newGCM(kek []byte) (cipher.AEAD, error) {
	block, err := newAES(kek)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func randOrDefault(r io.Reader) io.Reader {
	if r == nil {
		return rand.Reader
	}
	return r
}
