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

package keys

import (
	"crypto"
	"crypto/ecdh"
	"crypto/elliptic"
	"encoding/asn1"
	"fmt"
	"math/big"
	"strings"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
)

// =============================================================================
// Named Curves
// =============================================================================

// Curve is a named short-Weierstrass curve with its identifiers in every
// format that can carry it.
type Curve struct {
	// Name is the NIST name, also the JWK "crv" value.
	Name string
	// OID is the ANSI X9.62 / SEC 2 namedCurve identifier.
	OID asn1.ObjectIdentifier
	// SSHName is the OpenSSH curve identifier, empty if OpenSSH lacks it.
	SSHName string
	// DNSAlgorithm is the DNSSEC algorithm number, zero if unassigned.
	DNSAlgorithm uint8
	// Hash is the digest paired with the curve in JWS, OpenSSH and DNSSEC.
	Hash crypto.Hash
	// Aliases are alternate names accepted by CurveByName.
	Aliases []string

	elliptic elliptic.Curve
	ecdh     ecdh.Curve
	generic  bool
}

// Supported curves. P-192 runs on the generic crypto/elliptic arithmetic,
// which is variable time. secp256k1 has an OID registered for parse
// diagnostics only.
var (
	P192 = &Curve{
		Name: "P-192", OID: der.OIDCurveP192, Hash: crypto.SHA256,
		Aliases:  []string{"secp192r1", "prime192v1"},
		elliptic: p192(), generic: true,
	}
	P224 = &Curve{
		Name: "P-224", OID: der.OIDCurveP224, Hash: crypto.SHA224,
		Aliases:  []string{"secp224r1", "nistp224"},
		elliptic: elliptic.P224(),
	}
	P256 = &Curve{
		Name: "P-256", OID: der.OIDCurveP256, SSHName: "nistp256", DNSAlgorithm: 13, Hash: crypto.SHA256,
		Aliases:  []string{"secp256r1", "prime256v1"},
		elliptic: elliptic.P256(), ecdh: ecdh.P256(),
	}
	P384 = &Curve{
		Name: "P-384", OID: der.OIDCurveP384, SSHName: "nistp384", DNSAlgorithm: 14, Hash: crypto.SHA384,
		Aliases:  []string{"secp384r1"},
		elliptic: elliptic.P384(), ecdh: ecdh.P384(),
	}
	P521 = &Curve{
		Name: "P-521", OID: der.OIDCurveP521, SSHName: "nistp521", Hash: crypto.SHA512,
		Aliases:  []string{"secp521r1"},
		elliptic: elliptic.P521(), ecdh: ecdh.P521(),
	}
)

var curves = []*Curve{P192, P224, P256, P384, P521}

// p192 is NIST P-192 (FIPS 186-4 appendix D.1.2.1).
func p192() *elliptic.CurveParams {
	hex := func(s string) *big.Int {
		n, _ := new(big.Int).SetString(s, 16)
		return n
	}
	return &elliptic.CurveParams{
		Name:    "P-192",
		BitSize: 192,
		P:       hex("fffffffffffffffffffffffffffffffeffffffffffffffff"),
		N:       hex("ffffffffffffffffffffffff99def836146bc9b1b4d22831"),
		B:       hex("64210519e59c80e70fa7e9ab72243049feb8deecc146b9b1"),
		Gx:      hex("188da80eb03090f67cbf20eb43a18800f4ff0afd82ff1012"),
		Gy:      hex("07192b95ffc8da78631011ed6b24cdd573f977a11e794811"),
	}
}

// Curves returns the supported curves in ascending size.
func Curves() []*Curve {
	return append([]*Curve(nil), curves...)
}

// CurveByOID returns the curve with the given namedCurve OID.
func CurveByOID(oid asn1.ObjectIdentifier) (*Curve, error) {
	for _, c := range curves {
		if c.OID.Equal(oid) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: curve %s", encoding.ErrUnsupportedAlgorithm, der.OIDName(oid))
}

// CurveByName accepts NIST, SEC 2, X9.62 and OpenSSH names.
func CurveByName(name string) (*Curve, error) {
	for _, c := range curves {
		if strings.EqualFold(c.Name, name) || (c.SSHName != "" && c.SSHName == name) {
			return c, nil
		}
		for _, a := range c.Aliases {
			if strings.EqualFold(a, name) {
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: curve %q", encoding.ErrUnsupportedAlgorithm, name)
}

// CurveByDNSAlgorithm returns the curve for a DNSSEC ECDSA algorithm number.
func CurveByDNSAlgorithm(alg uint8) (*Curve, error) {
	for _, c := range curves {
		if c.DNSAlgorithm != 0 && c.DNSAlgorithm == alg {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: DNSSEC algorithm %d", encoding.ErrUnsupportedAlgorithm, alg)
}

// CurveByParams matches explicit ECParameters against the named curves.
// All NIST prime curves have a = p - 3.
func CurveByParams(p, a, b, gx, gy, n *big.Int) (*Curve, error) {
	for _, c := range curves {
		params := c.elliptic.Params()
		minus3 := new(big.Int).Sub(params.P, big.NewInt(3))
		if params.P.Cmp(p) == 0 && minus3.Cmp(a) == 0 && params.B.Cmp(b) == 0 &&
			params.Gx.Cmp(gx) == 0 && params.Gy.Cmp(gy) == 0 && params.N.Cmp(n) == 0 {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: explicit curve parameters match no named curve", encoding.ErrUnsupportedAlgorithm)
}

// String returns the curve name.
func (c *Curve) String() string { return c.Name }

// Elliptic returns the crypto/elliptic curve.
func (c *Curve) Elliptic() elliptic.Curve { return c.elliptic }

// Generic reports whether the standard library has no dedicated
// implementation of the curve. Keys on such curves are built from the
// generic crypto/elliptic arithmetic and cannot be used for ECDH.
func (c *Curve) Generic() bool { return c.generic }

// ECDH returns the crypto/ecdh curve, or nil if key agreement is not
// available for it.
func (c *Curve) ECDH() ecdh.Curve { return c.ecdh }

// Params returns the curve's domain parameters.
func (c *Curve) Params() *elliptic.CurveParams { return c.elliptic.Params() }

// ByteSize is the length of one field element (and of the order) in bytes.
func (c *Curve) ByteSize() int { return (c.elliptic.Params().BitSize + 7) / 8 }

// Bits is the field size in bits.
func (c *Curve) Bits() int { return c.elliptic.Params().BitSize }
