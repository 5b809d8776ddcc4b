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
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwa"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

const (
	// DefaultPBES2Count is the PBKDF2 iteration count used when a
	// recipient does not set one.
	DefaultPBES2Count = 100_000

	// DefaultPBES2SaltSize is the p2s length used when a recipient does
	// not set one.
	DefaultPBES2SaltSize = 16

	// MaxPBES2Count bounds the p2c accepted on decryption.
	MaxPBES2Count = 1_000_000
)

var (
	// ErrNoRecipients indicates an encryption without recipients.
	ErrNoRecipients = errors.New("jwe: no recipients")

	// ErrNotCompact indicates a JWE that cannot use the compact serialization.
	ErrNotCompact = errors.New("jwe: compact serialization requires one recipient, no unprotected headers and no aad")
)

// JWE is an encrypted message with one or more recipients.
type JWE struct {
	// Protected is the integrity-protected shared header.
	Protected jwa.Header
	// Unprotected is the shared unprotected header; nil when absent.
	Unprotected jwa.Header
	// Recipients carry the per-recipient header and encrypted key.
	Recipients []*RecipientInfo
	// AAD is the JSON "aad" member; nil when absent.
	AAD []byte

	IV         []byte
	Ciphertext []byte
	Tag        []byte

	rawProtected string
	rawAAD       string
}

// RecipientInfo is one entry of the "recipients" array.
type RecipientInfo struct {
	Header       jwa.Header
	EncryptedKey []byte
}

// Recipient describes one recipient for encryption.
type Recipient struct {
	// Algorithm is the JWE "alg".
	Algorithm string
	// Key is the public key for RSA and ECDH-ES algorithms.
	Key keys.Key
	// Secret is the shared key for dir, AES key wrap and AES-GCM key wrap,
	// or the password for PBES2.
	Secret []byte
	// Header holds extra per-recipient parameters such as "kid".
	Header jwa.Header
	// PBES2Count overrides DefaultPBES2Count.
	PBES2Count int
	// PBES2SaltSize overrides DefaultPBES2SaltSize.
	PBES2SaltSize int
	// APU and APV are the ECDH-ES PartyUInfo and PartyVInfo.
	APU, APV []byte
}

// Encrypter encrypts one plaintext for a set of recipients.
type Encrypter struct {
	// Encryption is the JWE "enc". Empty selects the default for this CPU.
	Encryption string
	Recipients []*Recipient
	// Protected holds extra shared protected parameters such as "typ".
	Protected jwa.Header
	// Unprotected is the shared unprotected header (JSON serializations only).
	Unprotected jwa.Header
	// AAD is additional authenticated data (JSON serializations only).
	AAD []byte
	// AllowMultipleDirect permits "dir" alongside other recipients. Every
	// direct recipient must then yield the same CEK.
	AllowMultipleDirect bool
	// Rand is the randomness source; nil means crypto/rand.
	Rand io.Reader
}

// NewEncrypter returns an Encrypter for enc and recipients.
func NewEncrypter(enc string, recipients ...*Recipient) *Encrypter {
	return &Encrypter{Encryption: enc, Recipients: recipients}
}

// ============================================================================
// Encryption
// ============================================================================

// Encrypt encrypts plaintext for every recipient.
func (e *Encrypter) Encrypt(plaintext []byte) (*JWE, error) {
	if len(e.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	enc := jwa.DefaultContentEncryption()
	if e.Encryption != "" {
		var err error
		if enc, err = jwa.ContentEncryptionByName(e.Encryption); err != nil {
			return nil, err
		}
	}
	random := e.Rand
	if random == nil {
		random = rand.Reader
	}

	kms := make([]*jwa.KeyManagement, len(e.Recipients))
	direct := 0
	for i, r := range e.Recipients {
		if r == nil {
			return nil, fmt.Errorf("%w: nil recipient", encoding.ErrInvalidData)
		}
		km, err := jwa.KeyManagementByName(r.Algorithm)
		if err != nil {
			return nil, err
		}
		if km.Direct() {
			direct++
		}
		kms[i] = km
	}
	if direct > 0 && len(e.Recipients) > 1 && !e.AllowMultipleDirect {
		return nil, fmt.Errorf("%w: direct key management allows only one recipient", encoding.ErrInvalidData)
	}

	infos := make([]*RecipientInfo, len(e.Recipients))
	var cek []byte
	defer func() { clear(cek) }()

	for i, r := range e.Recipients {
		if !kms[i].Direct() {
			continue
		}
		params, key, err := deriveDirect(kms[i], r, enc, random)
		if err != nil {
			return nil, err
		}
		if cek == nil {
			cek = key
		} else if subtle.ConstantTimeCompare(cek, key) != 1 {
			clear(key)
			return nil, fmt.Errorf("%w: direct recipients disagree on the CEK", encoding.ErrInvalidData)
		}
		infos[i] = &RecipientInfo{Header: params}
	}
	if cek == nil {
		var err error
		if cek, err = enc.GenerateCEK(random); err != nil {
			return nil, err
		}
	}
	for i, r := range e.Recipients {
		if infos[i] != nil {
			continue
		}
		params, ek, err := wrapKey(kms[i], r, cek, random)
		if err != nil {
			return nil, err
		}
		infos[i] = &RecipientInfo{Header: params, EncryptedKey: ek}
	}

	for i, r := range e.Recipients {
		infos[i].Header["alg"] = kms[i].Name
		h, err := jwa.Merge(infos[i].Header, r.Header)
		if err != nil {
			return nil, err
		}
		infos[i].Header = h
	}

	protected := e.Protected.Clone()
	protected["enc"] = enc.Name
	compact := len(infos) == 1 && len(e.Unprotected) == 0 && e.AAD == nil
	if compact {
		for k, v := range infos[0].Header {
			if _, dup := protected[k]; dup {
				return nil, fmt.Errorf("%w: header parameter %q appears more than once", encoding.ErrInvalidData, k)
			}
			protected[k] = v
		}
		infos[0].Header = nil
	}

	j := &JWE{Protected: protected, Recipients: infos, AAD: e.AAD}
	if len(e.Unprotected) > 0 {
		j.Unprotected = e.Unprotected.Clone()
	}
	for _, ri := range infos {
		if _, err := jwa.Merge(j.Protected, j.Unprotected, ri.Header); err != nil {
			return nil, err
		}
	}

	var err error
	if j.rawProtected, err = protected.Encode(); err != nil {
		return nil, err
	}
	if j.AAD != nil {
		j.rawAAD = encoding.EncodeBase64URL(j.AAD)
	}
	if j.IV, err = enc.GenerateIV(random); err != nil {
		return nil, err
	}
	j.Ciphertext, j.Tag, err = enc.Encrypt(cek, j.IV, plaintext, j.authData())
	if err != nil {
		return nil, err
	}
	return j, nil
}

// authData is the AEAD additional data: the protected header text, plus
// "." and the aad text when aad is present.
func (j *JWE) authData() []byte {
	if j.AAD == nil && j.rawAAD == "" {
		return []byte(j.rawProtected)
	}
	aad := j.rawAAD
	if aad == "" {
		aad = encoding.EncodeBase64URL(j.AAD)
	}
	return []byte(j.rawProtected + "." + aad)
}

// Header returns the merged header of recipient i.
func (j *JWE) Header(i int) (jwa.Header, error) {
	if i < 0 || i >= len(j.Recipients) {
		return nil, fmt.Errorf("%w: recipient %d of %d", encoding.ErrInvalidData, i, len(j.Recipients))
	}
	return jwa.Merge(j.Protected, j.Unprotected, j.Recipients[i].Header)
}

// ExtractKID returns the "kid" of the first recipient without decrypting.
func ExtractKID(data string) (string, error) {
	j, err := Parse([]byte(data))
	if err != nil {
		return "", err
	}
	h, err := j.Header(0)
	if err != nil {
		return "", err
	}
	kid := h.KeyID()
	if kid == "" {
		return "", fmt.Errorf("%w: JWE header has no kid", encoding.ErrInvalidData)
	}
	return kid, nil
}
