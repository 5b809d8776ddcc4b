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
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-keycodec/pkg/crypto/ecdh"
	"github.com/jeremyhahn/go-keycodec/pkg/crypto/wrapping"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwa"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// ============================================================================
// Sender side
// ============================================================================

// deriveDirect produces the CEK for "dir" and "ECDH-ES".
func deriveDirect(km *jwa.KeyManagement, r *Recipient, enc *jwa.ContentEncryption, random io.Reader) (jwa.Header, []byte, error) {
	switch km.Family {
	case jwa.FamilyDirect:
		if len(r.Secret) != enc.KeySize {
			return nil, nil, fmt.Errorf("%w: dir with %s needs a %d-byte key, got %d", encoding.ErrBadKey, enc.Name, enc.KeySize, len(r.Secret))
		}
		return jwa.Header{}, bytes.Clone(r.Secret), nil
	case jwa.FamilyECDHES:
		return agree(r, enc.Name, enc.KeySize, random)
	}
	return nil, nil, fmt.Errorf("%w: %s is not direct", encoding.ErrUnsupportedAlgorithm, km.Name)
}

// wrapKey encrypts cek for one recipient.
func wrapKey(km *jwa.KeyManagement, r *Recipient, cek []byte, random io.Reader) (jwa.Header, []byte, error) {
	params := jwa.Header{}
	switch km.Family {
	case jwa.FamilyRSA1_5, jwa.FamilyRSAOAEP:
		k, ok := r.Key.(*keys.RSAKey)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s needs an RSA key", encoding.ErrBadKey, km.Name)
		}
		var ek []byte
		var err error
		if km.Family == jwa.FamilyRSA1_5 {
			ek, err = wrapping.EncryptRSA1_5(random, k.PublicKey(), cek)
		} else {
			ek, err = wrapping.EncryptRSAOAEP(random, k.PublicKey(), km.Hash, cek)
		}
		return params, ek, err

	case jwa.FamilyAESKW:
		if err := checkSecret(km, r.Secret); err != nil {
			return nil, nil, err
		}
		ek, err := wrapping.AESKeyWrap(r.Secret, cek)
		return params, ek, err

	case jwa.FamilyAESGCMKW:
		if err := checkSecret(km, r.Secret); err != nil {
			return nil, nil, err
		}
		ek, iv, tag, err := wrapping.AESGCMKeyWrap(random, r.Secret, cek)
		if err != nil {
			return nil, nil, err
		}
		params.SetBytes("iv", iv)
		params.SetBytes("tag", tag)
		return params, ek, nil

	case jwa.FamilyPBES2:
		count := r.PBES2Count
		if count == 0 {
			count = DefaultPBES2Count
		}
		saltSize := r.PBES2SaltSize
		if saltSize == 0 {
			saltSize = DefaultPBES2SaltSize
		}
		salt := make([]byte, saltSize)
		if _, err := io.ReadFull(random, salt); err != nil {
			return nil, nil, fmt.Errorf("generate p2s: %w", err)
		}
		kek, err := wrapping.PBES2Key(km.Hash, r.Secret, km.Name, salt, count, km.KeySize)
		if err != nil {
			return nil, nil, err
		}
		defer clear(kek)
		ek, err := wrapping.AESKeyWrap(kek, cek)
		if err != nil {
			return nil, nil, err
		}
		params.SetBytes("p2s", salt)
		params["p2c"] = count
		return params, ek, nil

	case jwa.FamilyECDHES:
		params, kek, err := agree(r, km.Name, km.KeySize, random)
		if err != nil {
			return nil, nil, err
		}
		defer clear(kek)
		ek, err := wrapping.AESKeyWrap(kek, cek)
		return params, ek, err
	}
	return nil, nil, fmt.Errorf("%w: %s cannot wrap a key", encoding.ErrUnsupportedAlgorithm, km.Name)
}

// agree runs ECDH-ES against the recipient's static key with a fresh
// ephemeral key and derives size bytes for algID.
func agree(r *Recipient, algID string, size int, random io.Reader) (jwa.Header, []byte, error) {
	if r.Key == nil {
		return nil, nil, fmt.Errorf("%w: ECDH-ES needs the recipient public key", encoding.ErrBadKey)
	}
	eph, err := ecdh.GenerateEphemeral(random, r.Key)
	if err != nil {
		return nil, nil, err
	}
	key, err := ecdh.DeriveKey(algID, r.APU, r.APV, eph, r.Key.Public(), size)
	if err != nil {
		return nil, nil, err
	}
	epk, err := epkHeader(eph.Public())
	if err != nil {
		return nil, nil, err
	}
	params := jwa.Header{"epk": epk}
	if r.APU != nil {
		params.SetBytes("apu", r.APU)
	}
	if r.APV != nil {
		params.SetBytes("apv", r.APV)
	}
	return params, key, nil
}

func epkHeader(pub keys.Key) (map[string]any, error) {
	j, err := jwk.FromKey(pub)
	if err != nil {
		return nil, err
	}
	raw, err := j.Marshal()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode epk: %w", err)
	}
	return m, nil
}

func checkSecret(km *jwa.KeyManagement, secret []byte) error {
	if len(secret) != km.KeySize {
		return fmt.Errorf("%w: %s needs a %d-byte key, got %d", encoding.ErrBadKey, km.Name, km.KeySize, len(secret))
	}
	return nil
}

// ============================================================================
// Recipient side
// ============================================================================

// unwrapKey recovers the CEK from a recipient's header and encrypted key.
func (d *Decrypter) unwrapKey(km *jwa.KeyManagement, enc *jwa.ContentEncryption, h jwa.Header, ek []byte, key keys.Key, secret []byte) ([]byte, error) {
	if km.Direct() && len(ek) != 0 {
		return nil, fmt.Errorf("%w: %s must have an empty encrypted key", encoding.ErrInvalidData, km.Name)
	}

	switch km.Family {
	case jwa.FamilyDirect:
		if len(secret) != enc.KeySize {
			return nil, fmt.Errorf("%w: dir with %s needs a %d-byte key, got %d", encoding.ErrBadKey, enc.Name, enc.KeySize, len(secret))
		}
		return bytes.Clone(secret), nil

	case jwa.FamilyRSA1_5, jwa.FamilyRSAOAEP:
		k, ok := key.(*keys.RSAKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs an RSA key", encoding.ErrBadKey, km.Name)
		}
		if !k.IsPrivate() {
			return nil, fmt.Errorf("%w: %s needs the RSA private key", encoding.ErrInvalidPrivateKey, km.Name)
		}
		if km.Family == jwa.FamilyRSA1_5 {
			return wrapping.DecryptRSA1_5(rand.Reader, k.PrivateKey(), ek, enc.KeySize)
		}
		return wrapping.DecryptRSAOAEP(k.PrivateKey(), km.Hash, ek)

	case jwa.FamilyAESKW:
		if err := checkSecret(km, secret); err != nil {
			return nil, err
		}
		return wrapping.AESKeyUnwrap(secret, ek)

	case jwa.FamilyAESGCMKW:
		if err := checkSecret(km, secret); err != nil {
			return nil, err
		}
		iv, err := h.Bytes("iv")
		if err != nil {
			return nil, err
		}
		tag, err := h.Bytes("tag")
		if err != nil {
			return nil, err
		}
		return wrapping.AESGCMKeyUnwrap(secret, iv, tag, ek)

	case jwa.FamilyPBES2:
		salt, err := h.Bytes("p2s")
		if err != nil {
			return nil, err
		}
		count, ok := h.Int("p2c")
		if !ok {
			return nil, fmt.Errorf("%w: header parameter \"p2c\" is missing", encoding.ErrInvalidData)
		}
		if count > d.maxPBES2Count() {
			return nil, fmt.Errorf("%w: p2c %d exceeds %d", encoding.ErrInvalidData, count, d.maxPBES2Count())
		}
		kek, err := wrapping.PBES2Key(km.Hash, secret, km.Name, salt, count, km.KeySize)
		if err != nil {
			return nil, err
		}
		defer clear(kek)
		return wrapping.AESKeyUnwrap(kek, ek)

	case jwa.FamilyECDHES:
		if key == nil || !key.IsPrivate() {
			return nil, fmt.Errorf("%w: %s needs the recipient private key", encoding.ErrInvalidPrivateKey, km.Name)
		}
		epk, err := parseEPK(h)
		if err != nil {
			return nil, err
		}
		apu, err := optionalBytes(h, "apu")
		if err != nil {
			return nil, err
		}
		apv, err := optionalBytes(h, "apv")
		if err != nil {
			return nil, err
		}
		algID, size := km.Name, km.KeySize
		if km.Direct() {
			algID, size = enc.Name, enc.KeySize
		}
		derived, err := ecdh.DeriveKey(algID, apu, apv, key, epk, size)
		if err != nil {
			return nil, err
		}
		if km.Direct() {
			return derived, nil
		}
		defer clear(derived)
		return wrapping.AESKeyUnwrap(derived, ek)
	}
	return nil, fmt.Errorf("%w: %s", encoding.ErrUnsupportedAlgorithm, km.Name)
}

func parseEPK(h jwa.Header) (keys.Key, error) {
	m, ok := h.Object("epk")
	if !ok {
		return nil, fmt.Errorf("%w: header parameter \"epk\" is missing", encoding.ErrInvalidData)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: epk: %v", encoding.ErrInvalidData, err)
	}
	j, err := jwk.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	if j.IsPrivate() {
		return nil, fmt.Errorf("%w: epk must be a public key", encoding.ErrInvalidData)
	}
	return j.Key()
}

func optionalBytes(h jwa.Header, name string) ([]byte, error) {
	if _, ok := h[name]; !ok {
		return nil, nil
	}
	return h.Bytes(name)
}
