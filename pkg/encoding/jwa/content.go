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

package jwa

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
	"runtime"
	"slices"

	josecipher "github.com/go-jose/go-jose/v4/cipher"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"golang.org/x/sys/cpu"
)

// ============================================================================
// Content Encryption
// ============================================================================

// ContentEncryption is one JWE "enc" value.
type ContentEncryption struct {
	// Name is the "enc" header value.
	Name string
	// KeySize is the CEK length in bytes. CBC-HMAC keys are the MAC key
	// followed by the encryption key.
	KeySize int
	// IVSize is the initialization vector length in bytes.
	IVSize int
	// TagSize is the authentication tag length in bytes.
	TagSize int
	// CBC selects AES-CBC with HMAC-SHA2 (RFC 7518 section 5.2) over AES-GCM.
	CBC bool
}

// Registered content encryption algorithms.
var (
	A128CBCHS256 = &ContentEncryption{Name: "A128CBC-HS256", KeySize: 32, IVSize: 16, TagSize: 16, CBC: true}
	A192CBCHS384 = &ContentEncryption{Name: "A192CBC-HS384", KeySize: 48, IVSize: 16, TagSize: 24, CBC: true}
	A256CBCHS512 = &ContentEncryption{Name: "A256CBC-HS512", KeySize: 64, IVSize: 16, TagSize: 32, CBC: true}
	A128GCM      = &ContentEncryption{Name: "A128GCM", KeySize: 16, IVSize: 12, TagSize: 16}
	A192GCM      = &ContentEncryption{Name: "A192GCM", KeySize: 24, IVSize: 12, TagSize: 16}
	A256GCM      = &ContentEncryption{Name: "A256GCM", KeySize: 32, IVSize: 12, TagSize: 16}

	contentEncryptions = []*ContentEncryption{
		A128CBCHS256, A192CBCHS384, A256CBCHS512, A128GCM, A192GCM, A256GCM,
	}
)

// ContentEncryptions returns every registered "enc" in registration order.
func ContentEncryptions() []*ContentEncryption {
	return slices.Clone(contentEncryptions)
}

// ContentEncryptionByName looks up a JWE "enc" value.
func ContentEncryptionByName(enc string) (*ContentEncryption, error) {
	for _, c := range contentEncryptions {
		if c.Name == enc {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: JWE content encryption %q", encoding.ErrUnsupportedAlgorithm, enc)
}

// HasAESHardware reports whether the CPU has AES instructions.
//
// Supported architectures:
//   - amd64: Checks X86.HasAES
//   - arm64: Checks ARM64.HasAES
//   - Other architectures return false
func HasAESHardware() bool {
	switch runtime.GOARCH {
	case "amd64":
		return cpu.X86.HasAES
	case "arm64":
		return cpu.ARM64.HasAES
	default:
		return false
	}
}

// DefaultContentEncryption picks A256GCM when AES is hardware accelerated
// and A256CBC-HS512 otherwise. Software GCM is slow and not constant time.
func DefaultContentEncryption() *ContentEncryption {
	if HasAESHardware() {
		return A256GCM
	}
	return A256CBCHS512
}

// String returns the "enc" value.
func (c *ContentEncryption) String() string { return c.Name }

// GenerateCEK returns a fresh content encryption key.
func (c *ContentEncryption) GenerateCEK(random io.Reader) ([]byte, error) {
	return readRandom(random, c.KeySize, "CEK")
}

// GenerateIV returns a fresh initialization vector.
func (c *ContentEncryption) GenerateIV(random io.Reader) ([]byte, error) {
	return readRandom(random, c.IVSize, "IV")
}

// Encrypt seals plaintext and returns the ciphertext and tag separately.
func (c *ContentEncryption) Encrypt(cek, iv, plaintext, aad []byte) (ciphertext, tag []byte, err error) {
	aead, err := c.aead(cek, iv)
	if err != nil {
		return nil, nil, err
	}
	sealed := aead.Seal(nil, iv, plaintext, aad)
	n := len(sealed) - c.TagSize
	return sealed[:n], sealed[n:], nil
}

// Decrypt verifies the tag and opens the ciphertext. A bad tag reports
// ErrDecryptionFailed and ErrBadMAC.
func (c *ContentEncryption) Decrypt(cek, iv, ciphertext, tag, aad []byte) ([]byte, error) {
	aead, err := c.aead(cek, iv)
	if err != nil {
		return nil, err
	}
	if len(tag) != c.TagSize {
		return nil, fmt.Errorf("%w: %s tag must be %d bytes, got %d", encoding.ErrDecryptionFailed, c.Name, c.TagSize, len(tag))
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(append(sealed, ciphertext...), tag...)
	plaintext, err := aead.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %s", encoding.ErrDecryptionFailed, encoding.ErrBadMAC, c.Name)
	}
	return plaintext, nil
}

func (c *ContentEncryption) aead(cek, iv []byte) (cipher.AEAD, error) {
	if len(cek) != c.KeySize {
		return nil, fmt.Errorf("%w: %s key must be %d bytes, got %d", encoding.ErrBadKey, c.Name, c.KeySize, len(cek))
	}
	if len(iv) != c.IVSize {
		return nil, fmt.Errorf("%w: %s IV must be %d bytes, got %d", encoding.ErrInvalidData, c.Name, c.IVSize, len(iv))
	}
	if c.CBC {
		aead, err := josecipher.NewCBCHMAC(cek, aes.NewCipher)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", encoding.ErrBadKey, c.Name, err)
		}
		return aead, nil
	}
	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", encoding.ErrBadKey, c.Name, err)
	}
	return cipher.NewGCM(block)
}

func readRandom(random io.Reader, n int, what string) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(random, b); err != nil {
		return nil, fmt.Errorf("generate %s: %w", what, err)
	}
	return b, nil
}
