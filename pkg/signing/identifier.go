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
	"encoding/asn1"
	"fmt"

	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
)

var hashOIDs = []struct {
	hash crypto.Hash
	oid  asn1.ObjectIdentifier
}{
	{crypto.MD5, der.OIDMD5},
	{crypto.SHA1, der.OIDSHA1},
	{crypto.SHA224, der.OIDSHA224},
	{crypto.SHA256, der.OIDSHA256},
	{crypto.SHA384, der.OIDSHA384},
	{crypto.SHA512, der.OIDSHA512},
	{crypto.SHA512_224, der.OIDSHA512_224},
	{crypto.SHA512_256, der.OIDSHA512_256},
	{crypto.SHA3_256, der.OIDSHA3_256},
	{crypto.SHA3_384, der.OIDSHA3_384},
	{crypto.SHA3_512, der.OIDSHA3_512},
}

// HashOID returns the AlgorithmIdentifier OID of a digest.
func HashOID(h crypto.Hash) (asn1.ObjectIdentifier, error) {
	for _, e := range hashOIDs {
		if e.hash == h {
			return e.oid, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidHashFunction, h)
}

// HashByOID maps a digest OID back to its crypto.Hash.
func HashByOID(oid asn1.ObjectIdentifier) (crypto.Hash, error) {
	for _, e := range hashOIDs {
		if e.oid.Equal(oid) {
			return e.hash, nil
		}
	}
	return 0, fmt.Errorf("%w: digest %s", encoding.ErrUnsupportedAlgorithm, der.OIDName(oid))
}

// hashIdentifier is AlgorithmIdentifier{hash, NULL}, the form RFC 4055
// and crypto/x509 use inside DigestInfo and RSASSA-PSS parameters.
func hashIdentifier(h crypto.Hash) (der.Item, error) {
	oid, err := HashOID(h)
	if err != nil {
		return nil, err
	}
	return der.Sequence(der.OID(oid), der.Null()), nil
}

// AlgorithmIdentifierItem returns the AlgorithmIdentifier as a DER item for
// embedding in larger structures.
func (a *Algorithm) AlgorithmIdentifierItem() (der.Item, error) {
	if a.OID == nil {
		return nil, fmt.Errorf("%w: %s has no X.509 identifier", encoding.ErrUnsupportedAlgorithm, a.Name)
	}
	switch a.Scheme {
	case SchemePKCS1v15:
		return der.Sequence(der.OID(a.OID), der.Null()), nil
	case SchemePSS:
		hashID, err := hashIdentifier(a.Hash)
		if err != nil {
			return nil, err
		}
		params := der.Sequence(
			der.Explicit(0, hashID),
			der.Explicit(1, der.Sequence(der.OID(der.OIDMGF1), hashID)),
			der.Explicit(2, der.Int(int64(a.Hash.Size()))),
		)
		return der.Sequence(der.OID(a.OID), params), nil
	}
	return der.Sequence(der.OID(a.OID)), nil
}

// AlgorithmIdentifier returns the DER AlgorithmIdentifier. PKCS #1 v1.5
// carries NULL parameters; ECDSA, DSA and EdDSA carry none (RFC 5758,
// RFC 8410).
func (a *Algorithm) AlgorithmIdentifier() ([]byte, error) {
	item, err := a.AlgorithmIdentifierItem()
	if err != nil {
		return nil, err
	}
	return der.Encode(item)
}

// ByAlgorithmIdentifier parses a DER AlgorithmIdentifier and returns the
// matching algorithm. RSASSA-PSS parameters select the digest; the MGF1
// digest must agree with it.
func ByAlgorithmIdentifier(b []byte) (*Algorithm, error) {
	elems, err := der.DecodeSequence(b)
	if err != nil {
		return nil, err
	}
	if err := der.Expect(elems, 1, 2); err != nil {
		return nil, err
	}
	oid, err := elems[0].OID()
	if err != nil {
		return nil, err
	}
	if !oid.Equal(der.OIDRSASSAPSS) {
		a, err := ByOID(oid)
		if err != nil {
			return nil, err
		}
		if len(elems) == 2 && elems[1].Tag != cbasn1.NULL {
			return nil, fmt.Errorf("%w: unexpected parameters for %s", encoding.ErrBadASN1, a.Name)
		}
		return a, nil
	}
	if len(elems) != 2 {
		return nil, fmt.Errorf("%w: RSASSA-PSS without parameters", encoding.ErrBadASN1)
	}
	hash, err := parsePSSParams(elems[1])
	if err != nil {
		return nil, err
	}
	for _, a := range registry {
		if a.Scheme == SchemePSS && a.Hash == hash {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: RSASSA-PSS with %v", encoding.ErrUnsupportedAlgorithm, hash)
}

// parsePSSParams reads RSASSA-PSS-params (RFC 4055 section 3.1). Absent
// fields take their SHA-1 defaults, which no registered entry uses.
func parsePSSParams(e der.Element) (crypto.Hash, error) {
	fields, err := e.Children()
	if err != nil {
		return 0, err
	}
	hash, mgfHash := crypto.SHA1, crypto.SHA1
	for _, f := range fields {
		inner, err := f.Children()
		if err != nil || len(inner) != 1 {
			return 0, fmt.Errorf("%w: RSASSA-PSS parameter", encoding.ErrBadASN1)
		}
		switch {
		case f.IsContext(0):
			if hash, err = parseHashIdentifier(inner[0]); err != nil {
				return 0, err
			}
		case f.IsContext(1):
			mgf, err := inner[0].Children()
			if err != nil || len(mgf) != 2 {
				return 0, fmt.Errorf("%w: RSASSA-PSS mask generation function", encoding.ErrBadASN1)
			}
			mgfOID, err := mgf[0].OID()
			if err != nil {
				return 0, err
			}
			if !mgfOID.Equal(der.OIDMGF1) {
				return 0, fmt.Errorf("%w: mask generation function %s", encoding.ErrUnsupportedAlgorithm, der.OIDName(mgfOID))
			}
			if mgfHash, err = parseHashIdentifier(mgf[1]); err != nil {
				return 0, err
			}
		case f.IsContext(2):
			if _, err := inner[0].Int(); err != nil {
				return 0, err
			}
		case f.IsContext(3):
			trailer, err := inner[0].Int()
			if err != nil {
				return 0, err
			}
			if !trailer.IsInt64() || trailer.Int64() != 1 {
				return 0, fmt.Errorf("%w: RSASSA-PSS trailer field %v", encoding.ErrUnsupportedAlgorithm, trailer)
			}
		default:
			return 0, fmt.Errorf("%w: unknown RSASSA-PSS parameter", encoding.ErrBadASN1)
		}
	}
	if hash != mgfHash {
		return 0, fmt.Errorf("%w: RSASSA-PSS digest %v with MGF1 digest %v", encoding.ErrUnsupportedAlgorithm, hash, mgfHash)
	}
	return hash, nil
}

func parseHashIdentifier(e der.Element) (crypto.Hash, error) {
	parts, err := e.Children()
	if err != nil || len(parts) < 1 || len(parts) > 2 {
		return 0, fmt.Errorf("%w: digest AlgorithmIdentifier", encoding.ErrBadASN1)
	}
	oid, err := parts[0].OID()
	if err != nil {
		return 0, err
	}
	return HashByOID(oid)
}
