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

// Package jwk implements JSON Web Keys (RFC 7517, 7518 section 6 and 8037)
// over the go-keycodec key types.
package jwk

import (
	"bytes"
	"crypto"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// JWK represents a JSON Web Key as defined in RFC 7517.
// It supports RSA, EC, OKP and symmetric (oct) key types.
type JWK struct {
	// Common fields (all key types)
	Kty    string   `json:"kty"`               // Key Type (required)
	Use    string   `json:"use,omitempty"`     // Public Key Use (sig, enc)
	KeyOps []string `json:"key_ops,omitempty"` // Key Operations
	Alg    string   `json:"alg,omitempty"`     // Algorithm
	Kid    string   `json:"kid,omitempty"`     // Key ID

	// RSA public key fields (RFC 7518 Section 6.3.1)
	N string `json:"n,omitempty"` // Modulus
	E string `json:"e,omitempty"` // Exponent

	// RSA private key fields (RFC 7518 Section 6.3.2); D is shared with EC and OKP
	D  string `json:"d,omitempty"`  // Private Exponent / ECC private key
	P  string `json:"p,omitempty"`  // First Prime Factor
	Q  string `json:"q,omitempty"`  // Second Prime Factor
	DP string `json:"dp,omitempty"` // First Factor CRT Exponent
	DQ string `json:"dq,omitempty"` // Second Factor CRT Exponent
	QI string `json:"qi,omitempty"` // First CRT Coefficient

	// EC (RFC 7518 Section 6.2) and OKP (RFC 8037) fields
	Crv string `json:"crv,omitempty"` // Curve
	X   string `json:"x,omitempty"`   // X Coordinate or OKP public key
	Y   string `json:"y,omitempty"`   // Y Coordinate

	// Symmetric key field (RFC 7518 Section 6.4)
	K string `json:"k,omitempty"` // Key Value
}

// KeyType represents the key type (kty) parameter values
type KeyType string

const (
	KeyTypeRSA KeyType = "RSA"
	KeyTypeEC  KeyType = "EC"
	KeyTypeOKP KeyType = "OKP" // Octet Key Pair (Ed25519, Ed448, X25519, X448)
	KeyTypeOct KeyType = "oct" // Symmetric key
)

// String returns the kty value.
func (t KeyType) String() string { return string(t) }

// Curve represents JOSE curve names
type Curve string

const (
	CurveP256    Curve = "P-256"
	CurveP384    Curve = "P-384"
	CurveP521    Curve = "P-521"
	CurveEd25519 Curve = "Ed25519"
	CurveEd448   Curve = "Ed448"
	CurveX25519  Curve = "X25519"
	CurveX448    Curve = "X448"
)

// ecCurves maps the registered JOSE EC curve names. P-224 is not
// registered for JOSE and is rejected.
var ecCurves = map[Curve]*keys.Curve{
	CurveP256: keys.P256,
	CurveP384: keys.P384,
	CurveP521: keys.P521,
}

// FromKey creates a JWK from a key. Private keys include their private
// members; call Public on the result to strip them.
func FromKey(k keys.Key) (*JWK, error) {
	switch key := k.(type) {
	case *keys.RSAKey:
		return fromRSA(key), nil
	case *keys.ECDSAKey:
		return fromECDSA(key)
	case *keys.EdDSAKey:
		j := &JWK{Kty: string(KeyTypeOKP), Crv: key.Curve().String(), X: b64(key.PublicBytes())}
		if key.IsPrivate() {
			j.D = b64(key.Seed())
		}
		return j, nil
	case *keys.XDHKey:
		j := &JWK{Kty: string(KeyTypeOKP), Crv: key.Curve().String(), X: b64(key.PublicBytes())}
		if key.IsPrivate() {
			j.D = b64(key.PrivateBytes())
		}
		return j, nil
	case nil:
		return nil, fmt.Errorf("%w: nil key", encoding.ErrInvalidData)
	default:
		return nil, fmt.Errorf("%w: no JWK key type for %s keys", encoding.ErrUnsupportedAlgorithm, k.Algorithm())
	}
}

// FromPublicKey creates a public JWK from a crypto.PublicKey.
// Supports RSA, ECDSA, Ed25519, Ed448 and X25519 public keys.
func FromPublicKey(pub crypto.PublicKey) (*JWK, error) {
	k, err := keys.FromCrypto(pub)
	if err != nil {
		return nil, err
	}
	return FromKey(k.Public())
}

// FromPrivateKey creates a JWK including private members from a
// crypto.PrivateKey.
func FromPrivateKey(priv crypto.PrivateKey) (*JWK, error) {
	k, err := keys.FromCrypto(priv)
	if err != nil {
		return nil, err
	}
	if !k.IsPrivate() {
		return nil, fmt.Errorf("%w: %T is not a private key", encoding.ErrInvalidPrivateKey, priv)
	}
	return FromKey(k)
}

// FromSymmetricKey creates a JWK from symmetric key bytes.
func FromSymmetricKey(key []byte, alg string) (*JWK, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: symmetric key cannot be empty", encoding.ErrInvalidData)
	}
	return &JWK{Kty: string(KeyTypeOct), K: b64(key), Alg: alg}, nil
}

// Key converts the JWK to a key. Symmetric JWKs are rejected; use
// ToSymmetricKey.
func (jwk *JWK) Key() (keys.Key, error) {
	switch KeyType(jwk.Kty) {
	case KeyTypeRSA:
		return jwk.toRSA()
	case KeyTypeEC:
		return jwk.toECDSA()
	case KeyTypeOKP:
		return jwk.toOKP()
	case KeyTypeOct:
		return nil, fmt.Errorf("%w: oct JWK is not an asymmetric key", encoding.ErrUnsupportedAlgorithm)
	default:
		return nil, fmt.Errorf("%w: JWK kty %q", encoding.ErrUnsupportedAlgorithm, jwk.Kty)
	}
}

// ToPublicKey converts the JWK to a standard crypto.PublicKey.
func (jwk *JWK) ToPublicKey() (crypto.PublicKey, error) {
	k, err := jwk.Key()
	if err != nil {
		return nil, err
	}
	return k.CryptoPublicKey(), nil
}

// ToPrivateKey converts the JWK to a standard crypto.PrivateKey.
func (jwk *JWK) ToPrivateKey() (crypto.PrivateKey, error) {
	if !jwk.IsPrivate() {
		return nil, fmt.Errorf("%w: JWK has no private members", encoding.ErrInvalidPrivateKey)
	}
	k, err := jwk.Key()
	if err != nil {
		return nil, err
	}
	return k.CryptoPrivateKey(), nil
}

// ToSymmetricKey returns the raw key of an oct JWK.
func (jwk *JWK) ToSymmetricKey() ([]byte, error) {
	if jwk.Kty != string(KeyTypeOct) {
		return nil, fmt.Errorf("%w: JWK kty %q is not oct", encoding.ErrInvalidData, jwk.Kty)
	}
	k, err := unb64("k", jwk.K)
	if err != nil {
		return nil, err
	}
	if len(k) == 0 {
		return nil, fmt.Errorf("%w: empty oct key", encoding.ErrBadKey)
	}
	return k, nil
}

// Public returns a copy without private members. oct keys have no public
// projection and are returned unchanged.
func (jwk *JWK) Public() *JWK {
	out := *jwk
	if jwk.Kty == string(KeyTypeOct) {
		return &out
	}
	out.D, out.P, out.Q, out.DP, out.DQ, out.QI = "", "", "", "", "", ""
	if len(jwk.KeyOps) > 0 {
		out.KeyOps = nil
		for _, op := range jwk.KeyOps {
			switch op {
			case "verify", "encrypt", "wrapKey":
				out.KeyOps = append(out.KeyOps, op)
			}
		}
	}
	return &out
}

// Marshal serializes the JWK to compact JSON.
func (jwk *JWK) Marshal() ([]byte, error) {
	return json.Marshal(jwk)
}

// MarshalIndent serializes the JWK to indented JSON.
func (jwk *JWK) MarshalIndent(prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(jwk, prefix, indent)
}

// Unmarshal parses and validates a JWK. Unknown members are ignored.
func Unmarshal(data []byte) (*JWK, error) {
	var jwk JWK
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, fmt.Errorf("%w: JWK JSON: %v", encoding.ErrInvalidData, err)
	}
	if err := jwk.Validate(); err != nil {
		return nil, err
	}
	return &jwk, nil
}

// Check reports whether data is a JSON object whose kty and members form a
// well-shaped JWK.
func Check(data []byte) bool {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return false
	}
	_, err := Unmarshal(data)
	return err == nil
}

// Validate checks that the members required by kty are present and that no
// member of another key type is.
func (jwk *JWK) Validate() error {
	missing := func(names ...string) error {
		return fmt.Errorf("%w: %s JWK requires %v", encoding.ErrInvalidData, jwk.Kty, names)
	}
	foreign := func() error {
		return fmt.Errorf("%w: %s JWK carries members of another key type", encoding.ErrInvalidData, jwk.Kty)
	}
	switch KeyType(jwk.Kty) {
	case KeyTypeRSA:
		if jwk.N == "" || jwk.E == "" {
			return missing("n", "e")
		}
		if jwk.Crv != "" || jwk.X != "" || jwk.Y != "" || jwk.K != "" {
			return foreign()
		}
	case KeyTypeEC:
		if jwk.Crv == "" || jwk.X == "" || jwk.Y == "" {
			return missing("crv", "x", "y")
		}
		if jwk.N != "" || jwk.E != "" || jwk.P != "" || jwk.K != "" {
			return foreign()
		}
	case KeyTypeOKP:
		if jwk.Crv == "" || jwk.X == "" {
			return missing("crv", "x")
		}
		if jwk.N != "" || jwk.E != "" || jwk.Y != "" || jwk.P != "" || jwk.K != "" {
			return foreign()
		}
	case KeyTypeOct:
		if jwk.K == "" {
			return missing("k")
		}
		if jwk.N != "" || jwk.Crv != "" || jwk.X != "" || jwk.D != "" {
			return foreign()
		}
	case "":
		return fmt.Errorf("%w: JWK without kty", encoding.ErrInvalidData)
	default:
		return fmt.Errorf("%w: JWK kty %q", encoding.ErrUnsupportedAlgorithm, jwk.Kty)
	}
	return nil
}

// IsPrivate returns true if the JWK contains private key material.
func (jwk *JWK) IsPrivate() bool {
	return jwk.D != "" || jwk.Kty == string(KeyTypeOct)
}

// IsPublic returns true if the JWK contains only public key material.
func (jwk *JWK) IsPublic() bool {
	return !jwk.IsPrivate()
}

// IsSymmetric returns true if the JWK is a symmetric key.
func (jwk *JWK) IsSymmetric() bool {
	return jwk.Kty == string(KeyTypeOct)
}

func fromRSA(key *keys.RSAKey) *JWK {
	j := &JWK{
		Kty: string(KeyTypeRSA),
		N:   b64(key.N().Bytes()),
		E:   b64(key.E().Bytes()),
	}
	if key.IsPrivate() {
		j.D = b64(key.D().Bytes())
		j.P = b64(key.P().Bytes())
		j.Q = b64(key.Q().Bytes())
		j.DP = b64(key.DP().Bytes())
		j.DQ = b64(key.DQ().Bytes())
		j.QI = b64(key.QInv().Bytes())
	}
	return j
}

func (jwk *JWK) toRSA() (keys.Key, error) {
	n, err := unb64Int("n", jwk.N)
	if err != nil {
		return nil, err
	}
	e, err := unb64Int("e", jwk.E)
	if err != nil {
		return nil, err
	}
	if jwk.D == "" {
		return keys.NewRSAPublicKey(n, e)
	}
	d, err := unb64Int("d", jwk.D)
	if err != nil {
		return nil, err
	}
	if jwk.P == "" && jwk.Q == "" {
		return keys.NewRSAPrivateKeyFromExponents(n, e, d)
	}
	p, err := unb64Int("p", jwk.P)
	if err != nil {
		return nil, err
	}
	q, err := unb64Int("q", jwk.Q)
	if err != nil {
		return nil, err
	}
	if jwk.DP == "" || jwk.DQ == "" || jwk.QI == "" {
		return keys.NewRSAPrivateKey(n, e, d, p, q)
	}
	dp, err := unb64Int("dp", jwk.DP)
	if err != nil {
		return nil, err
	}
	dq, err := unb64Int("dq", jwk.DQ)
	if err != nil {
		return nil, err
	}
	qi, err := unb64Int("qi", jwk.QI)
	if err != nil {
		return nil, err
	}
	return keys.NewRSAPrivateKeyCRT(n, e, d, p, q, dp, dq, qi)
}

func fromECDSA(key *keys.ECDSAKey) (*JWK, error) {
	name, err := ecCurveName(key.Curve())
	if err != nil {
		return nil, err
	}
	size := key.Curve().ByteSize()
	point := key.Point()
	j := &JWK{
		Kty: string(KeyTypeEC),
		Crv: string(name),
		X:   b64(point[1 : 1+size]),
		Y:   b64(point[1+size:]),
	}
	if key.IsPrivate() {
		j.D = b64(key.DBytes())
	}
	return j, nil
}

func (jwk *JWK) toECDSA() (keys.Key, error) {
	curve, ok := ecCurves[Curve(jwk.Crv)]
	if !ok {
		return nil, fmt.Errorf("%w: JWK EC curve %q", encoding.ErrUnsupportedAlgorithm, jwk.Crv)
	}
	size := curve.ByteSize()
	x, err := unb64Fixed("x", jwk.X, size)
	if err != nil {
		return nil, err
	}
	y, err := unb64Fixed("y", jwk.Y, size)
	if err != nil {
		return nil, err
	}
	point := append(append([]byte{0x04}, x...), y...)
	if jwk.D == "" {
		return keys.NewECDSAPublicKey(curve, point)
	}
	d, err := unb64Fixed("d", jwk.D, size)
	if err != nil {
		return nil, err
	}
	defer clear(d)
	return keys.NewECDSAPrivateKeyWithPoint(curve, new(big.Int).SetBytes(d), point)
}

func (jwk *JWK) toOKP() (keys.Key, error) {
	switch Curve(jwk.Crv) {
	case CurveEd25519, CurveEd448:
		curve := keys.EdCurve(jwk.Crv)
		x, err := unb64Fixed("x", jwk.X, curve.KeySize())
		if err != nil {
			return nil, err
		}
		if jwk.D == "" {
			return keys.NewEdDSAPublicKey(curve, x)
		}
		d, err := unb64Fixed("d", jwk.D, curve.KeySize())
		if err != nil {
			return nil, err
		}
		defer clear(d)
		return keys.NewEdDSAPrivateKeyWithPublic(curve, d, x)
	case CurveX25519, CurveX448:
		curve := keys.XCurve(jwk.Crv)
		x, err := unb64Fixed("x", jwk.X, curve.KeySize())
		if err != nil {
			return nil, err
		}
		if jwk.D == "" {
			return keys.NewXDHPublicKey(curve, x)
		}
		d, err := unb64Fixed("d", jwk.D, curve.KeySize())
		if err != nil {
			return nil, err
		}
		defer clear(d)
		k, err := keys.NewXDHPrivateKey(curve, d)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(k.PublicBytes(), x) {
			return nil, fmt.Errorf("%w: OKP x does not match d", encoding.ErrBadKey)
		}
		return k, nil
	default:
		return nil, fmt.Errorf("%w: JWK OKP curve %q", encoding.ErrUnsupportedAlgorithm, jwk.Crv)
	}
}

func ecCurveName(c *keys.Curve) (Curve, error) {
	for name, curve := range ecCurves {
		if curve == c {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: curve %s has no JOSE name", encoding.ErrUnsupportedAlgorithm, c.Name)
}

func b64(b []byte) string {
	return encoding.EncodeBase64URL(b)
}

func unb64(name, s string) ([]byte, error) {
	b, err := encoding.DecodeBase64URL(s)
	if err != nil {
		return nil, fmt.Errorf("JWK member %q: %w", name, err)
	}
	return b, nil
}

func unb64Int(name, s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: JWK member %q is missing", encoding.ErrInvalidData, name)
	}
	b, err := unb64(name, s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

// unb64Fixed decodes a fixed-width member. RFC 7518 requires the full
// width, so short values are rejected rather than padded.
func unb64Fixed(name, s string, size int) ([]byte, error) {
	b, err := unb64(name, s)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: JWK member %q is %d bytes, want %d", encoding.ErrBadKey, name, len(b), size)
	}
	return b, nil
}
