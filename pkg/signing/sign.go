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

package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed448"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// =============================================================================
// Signing
// =============================================================================

// Sign signs msg with k. ECDSA and DSA signatures are DER
// SEQUENCE{r, s}; use RawSignature for the JOSE form. When random is nil,
// ECDSA and DSA nonces are derived per RFC 6979 and PSS salts come from
// crypto/rand.
func (a *Algorithm) Sign(random io.Reader, k keys.Key, msg []byte) ([]byte, error) {
	if a.Scheme == SchemeEdDSA {
		return a.signEdDSA(k, msg)
	}
	digest, err := a.Digest(msg)
	if err != nil {
		return nil, err
	}
	return a.SignDigest(random, k, digest)
}

// SignDigest signs a precomputed digest. EdDSA signs the message itself,
// so digest is taken to be the message.
func (a *Algorithm) SignDigest(random io.Reader, k keys.Key, digest []byte) ([]byte, error) {
	if err := a.CheckKey(k); err != nil {
		return nil, err
	}
	if !k.IsPrivate() {
		return nil, fmt.Errorf("%w: %s", ErrPrivateKeyRequired, a.Name)
	}
	if a.Hash != 0 && len(digest) != a.Hash.Size() {
		return nil, fmt.Errorf("%w: %s digest must be %d bytes, got %d", ErrInvalidSignerOpts, a.Name, a.Hash.Size(), len(digest))
	}
	switch a.Scheme {
	case SchemePKCS1v15:
		return rsa.SignPKCS1v15(nil, k.(*keys.RSAKey).PrivateKey(), a.Hash, digest)
	case SchemePSS:
		if random == nil {
			random = rand.Reader
		}
		return rsa.SignPSS(random, k.(*keys.RSAKey).PrivateKey(), a.Hash, digest,
			&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: a.Hash})
	case SchemeECDSA:
		key := k.(*keys.ECDSAKey)
		priv := key.PrivateKey()
		if random == nil {
			if key.Curve().Generic() {
				return signECDSADeterministic(key, a.Hash, digest)
			}
			// crypto/ecdsa derives the nonce per RFC 6979 when rand is nil.
			return priv.Sign(nil, digest, a.Hash)
		}
		return ecdsa.SignASN1(random, priv, digest)
	case SchemeDSA:
		return signDSA(random, k.(*keys.DSAKey), a.Hash, digest)
	case SchemeEdDSA:
		return a.signEdDSA(k, digest)
	}
	return nil, fmt.Errorf("%w: %s", encoding.ErrUnsupportedAlgorithm, a.Name)
}

func (a *Algorithm) signEdDSA(k keys.Key, msg []byte) ([]byte, error) {
	if err := a.CheckKey(k); err != nil {
		return nil, err
	}
	if !k.IsPrivate() {
		return nil, fmt.Errorf("%w: %s", ErrPrivateKeyRequired, a.Name)
	}
	switch priv := k.CryptoPrivateKey().(type) {
	case ed25519.PrivateKey:
		return ed25519.Sign(priv, msg), nil
	case ed448.PrivateKey:
		return ed448.Sign(priv, msg, ""), nil
	}
	return nil, fmt.Errorf("%w: %s", encoding.ErrUnsupportedAlgorithm, a.Name)
}

// =============================================================================
// Verification
// =============================================================================

// Verify checks sig over msg against k (public or private). Every failure
// of the signature itself wraps encoding.ErrBadSignature.
func (a *Algorithm) Verify(k keys.Key, msg, sig []byte) error {
	if a.Scheme == SchemeEdDSA {
		return a.VerifyDigest(k, msg, sig)
	}
	digest, err := a.Digest(msg)
	if err != nil {
		return err
	}
	return a.VerifyDigest(k, digest, sig)
}

// VerifyDigest checks sig over a precomputed digest.
func (a *Algorithm) VerifyDigest(k keys.Key, digest, sig []byte) error {
	if err := a.CheckKey(k); err != nil {
		return err
	}
	ok := false
	switch a.Scheme {
	case SchemePKCS1v15:
		return verifyPKCS1v15(k.(*keys.RSAKey).PublicKey(), a.Hash, digest, sig)
	case SchemePSS:
		err := rsa.VerifyPSS(k.(*keys.RSAKey).PublicKey(), a.Hash, digest, sig,
			&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: a.Hash})
		ok = err == nil
	case SchemeECDSA:
		ok = ecdsa.VerifyASN1(k.(*keys.ECDSAKey).PublicKey(), digest, sig)
	case SchemeDSA:
		return verifyDSA(k.(*keys.DSAKey), a.Hash, digest, sig)
	case SchemeEdDSA:
		switch pub := k.CryptoPublicKey().(type) {
		case ed25519.PublicKey:
			ok = len(sig) == ed25519.SignatureSize && ed25519.Verify(pub, digest, sig)
		case ed448.PublicKey:
			ok = len(sig) == ed448.SignatureSize && ed448.Verify(pub, digest, sig, "")
		}
	default:
		return fmt.Errorf("%w: %s", encoding.ErrUnsupportedAlgorithm, a.Name)
	}
	if !ok {
		return fmt.Errorf("%w: %s", encoding.ErrBadSignature, a.Name)
	}
	return nil
}

// =============================================================================
// HMAC
// =============================================================================

// MAC computes the HMAC of msg. The secret must be at least as long as
// the digest output (RFC 7518 section 3.2).
func (a *Algorithm) MAC(secret, msg []byte) ([]byte, error) {
	if a.Scheme != SchemeHMAC {
		return nil, fmt.Errorf("%w: %s is not a MAC", ErrKeyMismatch, a.Name)
	}
	if len(secret) < a.Hash.Size() {
		return nil, fmt.Errorf("%w: %s secret must be at least %d bytes", encoding.ErrBadKey, a.Name, a.Hash.Size())
	}
	m := hmac.New(a.Hash.New, secret)
	m.Write(msg)
	return m.Sum(nil), nil
}

// VerifyMAC recomputes the MAC and compares it in constant time.
func (a *Algorithm) VerifyMAC(secret, msg, tag []byte) error {
	want, err := a.MAC(secret, msg)
	if err != nil {
		return err
	}
	defer clear(want)
	if !hmac.Equal(want, tag) {
		return fmt.Errorf("%w: %s", encoding.ErrBadMAC, a.Name)
	}
	return nil
}

// HashFunc implements crypto.SignerOpts.
func (a *Algorithm) HashFunc() crypto.Hash { return a.Hash }
