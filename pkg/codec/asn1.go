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
	"math/big"

	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// ============================================================================
// RSA
// ============================================================================

func rsaPrivateItem(k *keys.RSAKey) der.Item {
	return der.Sequence(
		der.Int(0), der.Integer(k.N()), der.Integer(k.E()), der.Integer(k.D()),
		der.Integer(k.P()), der.Integer(k.Q()),
		der.Integer(k.DP()), der.Integer(k.DQ()), der.Integer(k.QInv()),
	)
}

func rsaPublicItem(k *keys.RSAKey) der.Item {
	return der.Sequence(der.Integer(k.N()), der.Integer(k.E()))
}

func isRSAPrivate(elems []der.Element) bool {
	ints, err := der.Ints(elems)
	return err == nil && len(ints) == 9 && ints[0].Sign() == 0
}

func isRSAPublic(elems []der.Element) bool {
	_, err := der.Ints(elems)
	return err == nil && len(elems) == 2
}

func parseRSAPrivate(elems []der.Element) (*keys.RSAKey, error) {
	if err := der.Expect(elems, 9, 9); err != nil {
		return nil, fmt.Errorf("RSA private key: %w", err)
	}
	v, err := der.Ints(elems)
	if err != nil {
		return nil, fmt.Errorf("RSA private key: %w", err)
	}
	if v[0].Sign() != 0 {
		return nil, fmt.Errorf("%w: RSA private key version %s (multi-prime keys are not supported)", encoding.ErrBadASN1, v[0])
	}
	return keys.NewRSAPrivateKeyCRT(v[1], v[2], v[3], v[4], v[5], v[6], v[7], v[8])
}

func parseRSAPublic(elems []der.Element) (*keys.RSAKey, error) {
	if err := der.Expect(elems, 2, 2); err != nil {
		return nil, fmt.Errorf("RSA public key: %w", err)
	}
	v, err := der.Ints(elems)
	if err != nil {
		return nil, fmt.Errorf("RSA public key: %w", err)
	}
	return keys.NewRSAPublicKey(v[0], v[1])
}

// ============================================================================
// DSA
// ============================================================================

func dsaParamsItem(k *keys.DSAKey) der.Item {
	return der.Sequence(der.Integer(k.P()), der.Integer(k.Q()), der.Integer(k.G()))
}

// dsaPrivateItem is the OpenSSL DSAPrivateKey structure.
func dsaPrivateItem(k *keys.DSAKey) der.Item {
	return der.Sequence(der.Int(0), der.Integer(k.P()), der.Integer(k.Q()), der.Integer(k.G()),
		der.Integer(k.Y()), der.Integer(k.X()))
}

// dsaPublicItem is the OpenSSL DSAPublicKey structure {y, p, q, g}.
func dsaPublicItem(k *keys.DSAKey) der.Item {
	return der.Sequence(der.Integer(k.Y()), der.Integer(k.P()), der.Integer(k.Q()), der.Integer(k.G()))
}

func isDSAPrivate(elems []der.Element) bool {
	ints, err := der.Ints(elems)
	return err == nil && len(ints) == 6 && ints[0].Sign() == 0
}

func isDSAPublic(elems []der.Element) bool {
	_, err := der.Ints(elems)
	return err == nil && len(elems) == 4
}

func parseDSAPrivate(elems []der.Element) (*keys.DSAKey, error) {
	if err := der.Expect(elems, 6, 6); err != nil {
		return nil, fmt.Errorf("DSA private key: %w", err)
	}
	v, err := der.Ints(elems)
	if err != nil {
		return nil, fmt.Errorf("DSA private key: %w", err)
	}
	if v[0].Sign() != 0 {
		return nil, fmt.Errorf("%w: DSA private key version %s", encoding.ErrBadASN1, v[0])
	}
	return keys.NewDSAPrivateKeyWithY(v[1], v[2], v[3], v[4], v[5])
}

func parseDSAPublic(elems []der.Element) (*keys.DSAKey, error) {
	if err := der.Expect(elems, 4, 4); err != nil {
		return nil, fmt.Errorf("DSA public key: %w", err)
	}
	v, err := der.Ints(elems)
	if err != nil {
		return nil, fmt.Errorf("DSA public key: %w", err)
	}
	return keys.NewDSAPublicKey(v[1], v[2], v[3], v[0])
}

func parseDSAParams(e der.Element) (p, q, g *big.Int, err error) {
	children, err := e.Children()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("DSA parameters: %w", err)
	}
	if err := der.Expect(children, 3, 3); err != nil {
		return nil, nil, nil, fmt.Errorf("DSA parameters: %w", err)
	}
	v, err := der.Ints(children)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("DSA parameters: %w", err)
	}
	return v[0], v[1], v[2], nil
}

// ============================================================================
// EC
// ============================================================================

// ecPrivateItem is the SEC 1 ECPrivateKey. PKCS#1 output carries the
// curve in [0]; the PKCS#8 inner key omits it.
func ecPrivateItem(k *keys.ECDSAKey, withCurve bool) der.Item {
	return der.Sequence(
		der.Int(1),
		der.OctetString(k.DBytes()),
		der.Optional(withCurve, der.Explicit(0, der.OID(k.Curve().OID))),
		der.Explicit(1, der.BitString(k.Point())),
	)
}

func isECPrivate(elems []der.Element) bool {
	if len(elems) < 2 || len(elems) > 4 {
		return false
	}
	v, err := elems[0].Int()
	return err == nil && v.Cmp(big.NewInt(1)) == 0 && elems[1].Tag == cbasn1.OCTET_STRING
}

// parseECPrivate decodes an ECPrivateKey. curve comes from the enclosing
// AlgorithmIdentifier when there is one; otherwise [0] must be present.
func parseECPrivate(elems []der.Element, curve *keys.Curve) (*keys.ECDSAKey, error) {
	if !isECPrivate(elems) {
		return nil, fmt.Errorf("%w: not an ECPrivateKey", encoding.ErrBadASN1)
	}
	d := new(big.Int).SetBytes(elems[1].Content)
	var point []byte
	for _, e := range elems[2:] {
		switch {
		case e.IsContext(0):
			inner, err := e.Children()
			if err != nil || len(inner) != 1 {
				return nil, fmt.Errorf("%w: ECPrivateKey parameters", encoding.ErrBadASN1)
			}
			c, err := parseECParams(inner[0])
			if err != nil {
				return nil, err
			}
			if curve != nil && c != curve {
				return nil, fmt.Errorf("%w: ECPrivateKey curve disagrees with algorithm identifier", encoding.ErrBadKey)
			}
			curve = c
		case e.IsContext(1):
			inner, err := e.Children()
			if err != nil || len(inner) != 1 {
				return nil, fmt.Errorf("%w: ECPrivateKey public key", encoding.ErrBadASN1)
			}
			if point, err = inner[0].BitStringBytes(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unexpected ECPrivateKey component", encoding.ErrBadASN1)
		}
	}
	if curve == nil {
		return nil, fmt.Errorf("%w: ECPrivateKey without curve", encoding.ErrBadASN1)
	}
	if len(elems[1].Content) > curve.ByteSize() {
		return nil, fmt.Errorf("%w: EC private scalar too long", encoding.ErrBadKey)
	}
	if point == nil {
		return keys.NewECDSAPrivateKey(curve, d)
	}
	return keys.NewECDSAPrivateKeyWithPoint(curve, d, point)
}

// parseECParams accepts a namedCurve OID or explicit SEC 1 ECParameters.
// Explicit parameters are mapped back to the matching named curve.
func parseECParams(e der.Element) (*keys.Curve, error) {
	if e.Tag == cbasn1.OBJECT_IDENTIFIER {
		oid, err := e.OID()
		if err != nil {
			return nil, err
		}
		return keys.CurveByOID(oid)
	}
	if e.Tag != cbasn1.SEQUENCE {
		return nil, fmt.Errorf("%w: EC parameters must be a named curve or ECParameters", encoding.ErrBadASN1)
	}
	params, err := e.Children()
	if err != nil {
		return nil, err
	}
	if err := der.Expect(params, 5, 6); err != nil {
		return nil, fmt.Errorf("ECParameters: %w", err)
	}
	if v, err := params[0].Int(); err != nil || v.Cmp(big.NewInt(1)) != 0 {
		return nil, fmt.Errorf("%w: ECParameters version", encoding.ErrBadASN1)
	}
	field, err := params[1].Children()
	if err != nil || len(field) != 2 {
		return nil, fmt.Errorf("%w: ECParameters fieldID", encoding.ErrBadASN1)
	}
	fieldType, err := field[0].OID()
	if err != nil {
		return nil, err
	}
	if !fieldType.Equal(der.OIDPrimeField) {
		return nil, fmt.Errorf("%w: characteristic-two fields", encoding.ErrUnsupportedAlgorithm)
	}
	p, err := field[1].Int()
	if err != nil {
		return nil, err
	}
	curveElems, err := params[2].Children()
	if err != nil || len(curveElems) < 2 {
		return nil, fmt.Errorf("%w: ECParameters curve", encoding.ErrBadASN1)
	}
	a, err := curveElems[0].OctetString()
	if err != nil {
		return nil, err
	}
	b, err := curveElems[1].OctetString()
	if err != nil {
		return nil, err
	}
	base, err := params[3].OctetString()
	if err != nil {
		return nil, err
	}
	n, err := params[4].Int()
	if err != nil {
		return nil, err
	}
	size := (p.BitLen() + 7) / 8
	if len(base) != 1+2*size || base[0] != 0x04 {
		return nil, fmt.Errorf("%w: ECParameters base point must be uncompressed", encoding.ErrBadKey)
	}
	gx := new(big.Int).SetBytes(base[1 : 1+size])
	gy := new(big.Int).SetBytes(base[1+size:])
	return keys.CurveByParams(p, new(big.Int).SetBytes(a), new(big.Int).SetBytes(b), gx, gy, n)
}

// ExplicitECParameters returns the SEC 1 ECParameters of a named curve. It
// exists for interop with tools that emit explicit parameters; encoders in
// this package always write the named curve.
func ExplicitECParameters(c *keys.Curve) ([]byte, error) {
	params := c.Params()
	size := c.ByteSize()
	fe := func(v *big.Int) []byte {
		out := make([]byte, size)
		v.FillBytes(out)
		return out
	}
	a := new(big.Int).Sub(params.P, big.NewInt(3))
	base := append(append([]byte{0x04}, fe(params.Gx)...), fe(params.Gy)...)
	return der.Encode(der.Sequence(
		der.Int(1),
		der.Sequence(der.OID(der.OIDPrimeField), der.Integer(params.P)),
		der.Sequence(der.OctetString(fe(a)), der.OctetString(fe(params.B))),
		der.OctetString(base),
		der.Integer(params.N),
		der.Int(1),
	))
}

// ============================================================================
// AlgorithmIdentifier
// ============================================================================

func algorithmIdentifier(k keys.Key) (der.Item, error) {
	switch key := k.(type) {
	case *keys.RSAKey:
		return der.Sequence(der.OID(der.OIDRSAEncryption), der.Null()), nil
	case *keys.DSAKey:
		return der.Sequence(der.OID(der.OIDDSA), dsaParamsItem(key)), nil
	case *keys.ECDSAKey:
		return der.Sequence(der.OID(der.OIDECPublicKey), der.OID(key.Curve().OID)), nil
	case *keys.EdDSAKey:
		return der.Sequence(der.OID(key.Curve().OID())), nil
	case *keys.XDHKey:
		return der.Sequence(der.OID(key.Curve().OID())), nil
	case *keys.DHKey:
		return der.Sequence(der.OID(der.OIDDHKeyAgree), der.Sequence(der.Integer(key.P()), der.Integer(key.G()))), nil
	}
	return nil, fmt.Errorf("%w: no AlgorithmIdentifier for %T", encoding.ErrUnsupportedAlgorithm, k)
}

// keyAlgorithm is a parsed key AlgorithmIdentifier.
type keyAlgorithm struct {
	oid    asn1.ObjectIdentifier
	params *der.Element
}

func parseKeyAlgorithm(e der.Element) (keyAlgorithm, error) {
	children, err := e.Children()
	if err != nil {
		return keyAlgorithm{}, fmt.Errorf("AlgorithmIdentifier: %w", err)
	}
	if err := der.Expect(children, 1, 2); err != nil {
		return keyAlgorithm{}, fmt.Errorf("AlgorithmIdentifier: %w", err)
	}
	oid, err := children[0].OID()
	if err != nil {
		return keyAlgorithm{}, err
	}
	alg := keyAlgorithm{oid: oid}
	if len(children) == 2 && children[1].Tag != cbasn1.NULL {
		alg.params = &children[1]
	}
	return alg, nil
}

// algorithm maps the identifier's OID to a key algorithm without parsing
// parameters.
func (a keyAlgorithm) algorithm() (keys.Algorithm, error) {
	switch {
	case a.oid.Equal(der.OIDRSAEncryption), a.oid.Equal(der.OIDRSASSAPSS):
		return keys.AlgorithmRSA, nil
	case a.oid.Equal(der.OIDDSA):
		return keys.AlgorithmDSA, nil
	case a.oid.Equal(der.OIDECPublicKey):
		return keys.AlgorithmECDSA, nil
	case a.oid.Equal(der.OIDEd25519), a.oid.Equal(der.OIDEd448):
		return keys.AlgorithmEdDSA, nil
	case a.oid.Equal(der.OIDX25519), a.oid.Equal(der.OIDX448):
		return keys.AlgorithmXDH, nil
	case a.oid.Equal(der.OIDDHKeyAgree):
		return keys.AlgorithmDH, nil
	}
	return "", fmt.Errorf("%w: key algorithm %s (%s)", encoding.ErrUnsupportedAlgorithm, der.OIDName(a.oid), a.oid)
}

func (a keyAlgorithm) dsaParams() (p, q, g *big.Int, err error) {
	if a.params == nil {
		return nil, nil, nil, fmt.Errorf("%w: DSA key without domain parameters", encoding.ErrBadASN1)
	}
	return parseDSAParams(*a.params)
}

func (a keyAlgorithm) dhParams() (p, g *big.Int, err error) {
	if a.params == nil {
		return nil, nil, fmt.Errorf("%w: DH key without domain parameters", encoding.ErrBadASN1)
	}
	children, err := a.params.Children()
	if err != nil {
		return nil, nil, err
	}
	// PKCS#3 DHParameter carries an optional privateValueLength.
	if err := der.Expect(children, 2, 3); err != nil {
		return nil, nil, fmt.Errorf("DH parameters: %w", err)
	}
	v, err := der.Ints(children)
	if err != nil {
		return nil, nil, err
	}
	return v[0], v[1], nil
}

func (a keyAlgorithm) ecCurve() (*keys.Curve, error) {
	if a.params == nil {
		return nil, fmt.Errorf("%w: EC key without curve parameters", encoding.ErrBadASN1)
	}
	return parseECParams(*a.params)
}
