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

package jwe

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwa"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// Decrypter opens JWE messages.
type Decrypter struct {
	// KeyID restricts decryption to recipients whose "kid" matches.
	KeyID string
	// MaxPBES2Count bounds the accepted p2c; zero means MaxPBES2Count.
	MaxPBES2Count int
}

// NewDecrypter returns a Decrypter with default limits.
func NewDecrypter() *Decrypter {
	return &Decrypter{}
}

// Decrypt parses data in any serialization and decrypts it with key.
func Decrypt(data []byte, key keys.Key) ([]byte, error) {
	j, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return NewDecrypter().Decrypt(j, key)
}

// Decrypt decrypts j with an RSA, ECDSA or XDH private key.
func (d *Decrypter) Decrypt(j *JWE, key keys.Key) ([]byte, error) {
	return d.decrypt(j, func(jwa.Header) (keys.Key, []byte, error) { return key, nil, nil })
}

// DecryptWithSecret decrypts j with a shared key or PBES2 password.
func (d *Decrypter) DecryptWithSecret(j *JWE, secret []byte) ([]byte, error) {
	return d.decrypt(j, func(jwa.Header) (keys.Key, []byte, error) { return nil, secret, nil })
}

// DecryptWithResolver resolves each recipient's key from its "kid".
func (d *Decrypter) DecryptWithResolver(j *JWE, resolve jwk.KeyResolver) ([]byte, error) {
	return d.decrypt(j, func(h jwa.Header) (keys.Key, []byte, error) {
		k, err := resolve(h.KeyID())
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", encoding.ErrUnrecognizedKey, err)
		}
		return k, nil, nil
	})
}

func (d *Decrypter) decrypt(j *JWE, keyFor func(jwa.Header) (keys.Key, []byte, error)) ([]byte, error) {
	if len(j.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	var lastErr error
	tried := 0
	for _, ri := range j.Recipients {
		h, err := jwa.Merge(j.Protected, j.Unprotected, ri.Header)
		if err != nil {
			return nil, err
		}
		if d.KeyID != "" && h.KeyID() != d.KeyID {
			continue
		}
		tried++

		key, secret, err := keyFor(h)
		if err == nil {
			var plaintext []byte
			if plaintext, err = d.decryptRecipient(j, h, ri, key, secret); err == nil {
				return plaintext, nil
			}
		}
		if !recoverable(err) {
			return nil, err
		}
		lastErr = err
	}
	if tried == 0 {
		return nil, fmt.Errorf("%w: no recipient with kid %q", encoding.ErrDecryptionFailed, d.KeyID)
	}
	return nil, fmt.Errorf("%w: no recipient could be decrypted: %w", encoding.ErrDecryptionFailed, lastErr)
}

func (d *Decrypter) decryptRecipient(j *JWE, h jwa.Header, ri *RecipientInfo, key keys.Key, secret []byte) ([]byte, error) {
	if crit, ok := h["crit"]; ok {
		return nil, fmt.Errorf("%w: critical header parameters %v", encoding.ErrUnsupportedAlgorithm, crit)
	}
	if zip, ok := h["zip"]; ok {
		return nil, fmt.Errorf("%w: compression %v", encoding.ErrUnsupportedAlgorithm, zip)
	}
	km, err := jwa.KeyManagementByName(h.Algorithm())
	if err != nil {
		return nil, err
	}
	enc, err := jwa.ContentEncryptionByName(h.Encryption())
	if err != nil {
		return nil, err
	}

	cek, err := d.unwrapKey(km, enc, h, ri.EncryptedKey, key, secret)
	if err != nil {
		return nil, err
	}
	defer clear(cek)
	if len(cek) != enc.KeySize {
		return nil, fmt.Errorf("%w: CEK is %d bytes, %s needs %d", encoding.ErrDecryptionFailed, len(cek), enc.Name, enc.KeySize)
	}
	return enc.Decrypt(cek, j.IV, j.Ciphertext, j.Tag, j.authData())
}

func (d *Decrypter) maxPBES2Count() int {
	if d.MaxPBES2Count > 0 {
		return d.MaxPBES2Count
	}
	return MaxPBES2Count
}

// recoverable reports whether the next recipient should be tried: the key
// did not fit this recipient, the recipient uses an algorithm this package
// lacks, or the ciphertext did not open under it.
func recoverable(err error) bool {
	return errors.Is(err, encoding.ErrDecryptionFailed) ||
		errors.Is(err, encoding.ErrUnsupportedAlgorithm) ||
		errors.Is(err, encoding.ErrBadKey) ||
		errors.Is(err, encoding.ErrInvalidPrivateKey) ||
		errors.Is(err, encoding.ErrUnrecognizedKey)
}
