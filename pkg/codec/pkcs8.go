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

package codec

import (
	"encoding/asn1"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// MarshalPKCS8 returns the DER PrivateKeyInfo of a private key.
func MarshalPKCS8(k keys.Key) ([]byte, error) {
	if !k.IsPrivate() {
		return nil, fmt.Errorf("%w: PKCS#8 requires a private key", encoding.ErrInvalidPrivateKey)
	}
	algID, err := algorithmIdentifier(k)
	if err != nil {
		return nil, err
	}
	var inner []byte
	switch key := k.(type) {
	case *keys.RSAKey:
		inner, err = der.Encode(rsaPrivateItem(key))
	case *keys.DSAKey:
		inner, err = der.Encode(der.Integer(key.X()))
	case *keys.ECDSAKey:
		inner, err = der.Encode(ecPrivateItem(key, false))
	case *keys.EdDSAKey:
		inner, err = der.Encode(der.OctetString(key.Seed()))
	case *keys.XDHKey:
		inner, err = der.Encode(der.OctetString(key.PrivateBytes()))
	case *keys.DHKey:
		inner, err = der.Encode(der.Integer(key.X()))
	}
	if err != nil {
		return nil, err
	}
	defer clear(inner)
	return der.EncodeSequence(der.Int(0), algID, der.OctetString(inner))
}

// ParsePKCS8 decodes a DER PrivateKeyInfo or OneAsymmetricKey (RFC 5958
// version 1, whose optional public key is checked against the private one).
func ParsePKCS8(b []byte) (keys.Key, error) {
	elems, err := der.DecodeSequence(b)
	if err != nil {
		return nil, err
	}
	alg, inner, pub, err := splitPKCS8(elems)
	if err != nil {
		return nil, err
	}
	k, err := parsePKCS8Key(alg, inner)
	if err != nil {
		return nil, err
	}
	if pub != nil {
		pk, err := parseSPKIKey(alg, pub)
		if err != nil {
			return nil, err
		}
		if !pk.Equal(k.Public()) {
			return nil, fmt.Errorf("%w: OneAsymmetricKey public key does not match", encoding.ErrBadKey)
		}
	}
	return k, nil
}

func splitPKCS8(elems []der.Element) (alg keyAlgorithm, inner, pub []byte, err error) {
	if err = der.Expect(elems, 3, 5); err != nil {
		return alg, nil, nil, fmt.Errorf("PrivateKeyInfo: %w", err)
	}
	version, err := elems[0].Int()
	if err != nil {
		return alg, nil, nil, err
	}
	if version.Sign() != 0 && version.Int64() != 1 {
		return alg, nil, nil, fmt.Errorf("%w: PrivateKeyInfo version %s", encoding.ErrBadASN1, version)
	}
	if alg, err = parseKeyAlgorithm(elems[1]); err != nil {
		return alg, nil, nil, err
	}
	if inner, err = elems[2].OctetString(); err != nil {
		return alg, nil, nil, err
	}
	for _, e := range elems[3:] {
		switch {
		case e.IsContext(0):
			// attributes are ignored
		case e.IsContext(1) && version.Int64() == 1:
			// [1] IMPLICIT BIT STRING: skip the unused-bits octet
			if len(e.Content) == 0 || e.Content[0] != 0 {
				return alg, nil, nil, fmt.Errorf("%w: OneAsymmetricKey public key", encoding.ErrBadASN1)
			}
			pub = e.Content[1:]
		default:
			return alg, nil, nil, fmt.Errorf("%w: unexpected PrivateKeyInfo component", encoding.ErrBadASN1)
		}
	}
	return alg, inner, pub, nil
}

func parsePKCS8Key(alg keyAlgorithm, inner []byte) (keys.Key, error) {
	a, err := alg.algorithm()
	if err != nil {
		return nil, err
	}
	switch a {
	case keys.AlgorithmRSA:
		elems, err := der.DecodeSequence(inner)
		if err != nil {
			return nil, err
		}
		return parseRSAPrivate(elems)
	case keys.AlgorithmDSA:
		p, q, g, err := alg.dsaParams()
		if err != nil {
			return nil, err
		}
		x, err := decodeInteger(inner)
		if err != nil {
			return nil, err
		}
		return keys.NewDSAPrivateKey(p, q, g, x)
	case keys.AlgorithmECDSA:
		curve, err := alg.ecCurve()
		if err != nil {
			return nil, err
		}
		elems, err := der.DecodeSequence(inner)
		if err != nil {
			return nil, err
		}
		return parseECPrivate(elems, curve)
	case keys.AlgorithmEdDSA:
		curve, err := keys.EdCurveByOID(alg.oid)
		if err != nil {
			return nil, err
		}
		seed, err := decodeOctetString(inner)
		if err != nil {
			return nil, err
		}
		return keys.NewEdDSAPrivateKey(curve, seed)
	case keys.AlgorithmXDH:
		curve, err := keys.XCurveByOID(alg.oid)
		if err != nil {
			return nil, err
		}
		priv, err := decodeOctetString(inner)
		if err != nil {
			return nil, err
		}
		return keys.NewXDHPrivateKey(curve, priv)
	default:
		p, g, err := alg.dhParams()
		if err != nil {
			return nil, err
		}
		x, err := decodeInteger(inner)
		if err != nil {
			return nil, err
		}
		return keys.NewDHPrivateKey(p, g, x)
	}
}

func decodeOctetString(b []byte) ([]byte, error) {
	e, err := der.DecodeElement(b)
	if err != nil {
		return nil, err
	}
	return e.OctetString()
}

// ============================================================================
// Encrypted PKCS#8
// ============================================================================

// IsEncryptedPKCS8 reports whether b is a DER EncryptedPrivateKeyInfo.
func IsEncryptedPKCS8(b []byte) bool {
	elems, err := der.DecodeSequence(b)
	if err != nil || len(elems) != 2 || elems[0].Tag != cbasn1.SEQUENCE || elems[1].Tag != cbasn1.OCTET_STRING {
		return false
	}
	alg, err := parseKeyAlgorithm(elems[0])
	if err != nil {
		return false
	}
	// PBES2 or a PKCS#12 PBE scheme
	return alg.oid.Equal(oidPBES2) || (len(alg.oid) > 7 && alg.oid[:7].Equal(oidPKCS12PBE))
}

var (
	oidPBES2     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 13}
	oidPKCS12PBE = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 1}
)

// EncryptPKCS8 returns a DER EncryptedPrivateKeyInfo using PBES2 with
// PBKDF2-SHA256 and AES-256-CBC. RSA, ECDSA, Ed25519 and X25519 keys are
// supported.
func EncryptPKCS8(k keys.Key, passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, encoding.ErrPassphraseRequired
	}
	priv := k.CryptoPrivateKey()
	if priv == nil {
		return nil, fmt.Errorf("%w: PKCS#8 requires a private key", encoding.ErrInvalidPrivateKey)
	}
	if _, self := priv.(keys.Key); self {
		return nil, fmt.Errorf("%w: encrypted PKCS#8 for %s keys", encoding.ErrUnsupportedAlgorithm, k.Algorithm())
	}
	switch key := k.(type) {
	case *keys.DSAKey, *keys.DHKey:
		return nil, fmt.Errorf("%w: encrypted PKCS#8 for %s keys", encoding.ErrUnsupportedAlgorithm, k.Algorithm())
	case *keys.EdDSAKey:
		if key.Curve() != keys.Ed25519 {
			return nil, fmt.Errorf("%w: encrypted PKCS#8 for %s keys", encoding.ErrUnsupportedAlgorithm, key.Curve())
		}
	}
	out, err := pkcs8.MarshalPrivateKey(priv, passphrase, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypted PKCS#8: %v", encoding.ErrUnsupportedAlgorithm, err)
	}
	return out, nil
}

// DecryptPKCS8 decodes a DER EncryptedPrivateKeyInfo.
func DecryptPKCS8(b, passphrase []byte) (keys.Key, error) {
	if len(passphrase) == 0 {
		return nil, encoding.ErrPassphraseRequired
	}
	priv, err := pkcs8.ParsePKCS8PrivateKey(b, passphrase)
	if err != nil {
		if isPasswordError(err) {
			return nil, fmt.Errorf("%w: %v", encoding.ErrBadPassphrase, err)
		}
		return nil, fmt.Errorf("%w: encrypted PKCS#8: %v", encoding.ErrBadASN1, err)
	}
	return keys.FromCrypto(priv)
}

// youmark/pkcs8 decrypts without checking padding or authentication and
// replaces any failure to parse the plaintext as PrivateKeyInfo with this
// message, so it is the only sign of a wrong password. Header and parameter
// errors carry other "pkcs8: " messages.
const pkcs8PasswordMessage = "pkcs8: incorrect password"

func isPasswordError(err error) bool {
	return err != nil && strings.Contains(err.Error(), pkcs8PasswordMessage)
}

// ============================================================================
// Codecs
// ============================================================================

func checkPKCS8(alg keys.Algorithm) func([]byte) bool {
	return func(buf []byte) bool {
		b, encrypted, ok := peek(buf, pem.TypePrivateKey)
		if !ok || encrypted {
			return ok
		}
		elems, err := der.DecodeSequence(b)
		if err != nil {
			return false
		}
		ka, _, _, err := splitPKCS8(elems)
		if err != nil {
			return false
		}
		a, err := ka.algorithm()
		return err == nil && a == alg
	}
}

func encodePKCS8(k keys.Key, opts *Options) ([]byte, error) {
	if !k.IsPrivate() || opts.public() {
		return nil, fmt.Errorf("%w: PKCS#8 has no public form, use SPKI", encoding.ErrInvalidPrivateKey)
	}
	if len(opts.passphrase()) > 0 && opts.Cipher == "" {
		b, err := EncryptPKCS8(k, opts.Passphrase)
		if err != nil {
			return nil, err
		}
		return armor(b, pem.TypeEncryptedPrivateKey, opts, false)
	}
	b, err := MarshalPKCS8(k)
	if err != nil {
		return nil, err
	}
	defer clear(b)
	return armor(b, pem.TypePrivateKey, opts, true)
}

func decodePKCS8(buf []byte, opts *Options) (keys.Key, error) {
	b, err := unarmor(buf, opts.passphrase(), pem.TypePrivateKey, pem.TypeEncryptedPrivateKey)
	if err != nil {
		return nil, err
	}
	if IsEncryptedPKCS8(b) {
		return DecryptPKCS8(b, opts.passphrase())
	}
	k, err := ParsePKCS8(b)
	return k, wrongPassphrase(buf, err)
}

func pkcs8Codec(alg keys.Algorithm) *codec {
	return &codec{format: FormatPKCS8, alg: alg, check: checkPKCS8(alg), encode: encodePKCS8, decode: decodePKCS8}
}

func init() {
	register(
		pkcs8Codec(keys.AlgorithmRSA),
		pkcs8Codec(keys.AlgorithmDSA),
		pkcs8Codec(keys.AlgorithmECDSA),
		pkcs8Codec(keys.AlgorithmEdDSA),
		pkcs8Codec(keys.AlgorithmXDH),
		pkcs8Codec(keys.AlgorithmDH),
	)
}
