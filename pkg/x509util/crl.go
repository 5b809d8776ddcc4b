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

package x509util

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"time"

	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
)

// RevokedCertificate is one revokedCertificates entry. A zero Reason
// writes no reasonCode extension.
type RevokedCertificate struct {
	SerialNumber   *big.Int
	RevocationTime time.Time
	Reason         ReasonCode
	Extensions     []Extension
}

// RevocationList is an X.509 v2 CRL (RFC 5280 section 5).
type RevocationList struct {
	Raw                   []byte
	RawTBSRevocationList  []byte
	RawIssuer             []byte
	RawSignatureAlgorithm []byte

	SignatureAlgorithm *signing.Algorithm
	Issuer             Name
	ThisUpdate         time.Time
	NextUpdate         time.Time
	Number             *big.Int
	AuthorityKeyID     []byte
	Revoked            []RevokedCertificate
	Signature          []byte

	Extensions      []Extension
	ExtraExtensions []Extension
}

// CreateRevocationList issues a CRL for issuer signed by signer. Number is
// required; a zero NextUpdate is omitted.
func CreateRevocationList(random io.Reader, template *RevocationList, issuer *Certificate, signer keys.Key, alg *signing.Algorithm) ([]byte, error) {
	if template == nil {
		return nil, ErrTemplateRequired
	}
	if issuer == nil {
		return nil, fmt.Errorf("%w: nil issuer", encoding.ErrInvalidData)
	}
	if issuer.KeyUsage != 0 && issuer.KeyUsage&KeyUsageCRLSign == 0 {
		return nil, fmt.Errorf("%w: issuer lacks cRLSign", ErrNotCA)
	}
	alg, err := resolveAlgorithm(alg, signer)
	if err != nil {
		return nil, err
	}
	if issuer.PublicKey == nil || !signer.Public().Equal(issuer.PublicKey.Public()) {
		return nil, fmt.Errorf("%w: signer does not match issuer certificate", signing.ErrKeyMismatch)
	}
	if template.Number == nil {
		return nil, fmt.Errorf("%w: CRL number is required", encoding.ErrInvalidData)
	}
	thisUpdate := template.ThisUpdate
	if thisUpdate.IsZero() {
		thisUpdate = time.Now()
	}
	if !template.NextUpdate.IsZero() && !template.NextUpdate.After(thisUpdate) {
		return nil, fmt.Errorf("%w: nextUpdate precedes thisUpdate", encoding.ErrInvalidData)
	}

	revoked := make([]der.Item, 0, len(template.Revoked))
	for _, rc := range template.Revoked {
		if rc.SerialNumber == nil {
			return nil, fmt.Errorf("%w: revoked entry without serial", encoding.ErrInvalidData)
		}
		exts := rc.Extensions
		if rc.Reason != 0 {
			ext, err := NewExtension(rc.Reason, false)
			if err != nil {
				return nil, err
			}
			exts = append([]Extension{ext}, exts...)
		}
		revoked = append(revoked, der.Sequence(
			der.Integer(rc.SerialNumber),
			der.Time(rc.RevocationTime),
			der.Optional(len(exts) > 0, extensionsItem(exts)),
		))
	}

	var exts []Extension
	keyID := issuer.SubjectKeyID
	if keyID == nil {
		if keyID, err = KeyID(issuer.PublicKey); err != nil {
			return nil, err
		}
	}
	for _, v := range []ExtensionValue{
		&AuthorityKeyIdentifier{KeyID: keyID},
		&CRLNumber{Number: template.Number},
	} {
		if _, overridden := FindExtension(template.ExtraExtensions, v.ExtensionOID()); overridden {
			continue
		}
		ext, err := NewExtension(v, false)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}
	exts = append(exts, template.ExtraExtensions...)

	rawIssuer := issuer.RawSubject
	if rawIssuer == nil {
		if rawIssuer, err = issuer.Subject.Marshal(); err != nil {
			return nil, err
		}
	}
	algID, err := alg.AlgorithmIdentifierItem()
	if err != nil {
		return nil, err
	}
	tbs, err := der.EncodeSequence(
		der.Int(1),
		algID,
		der.Raw(rawIssuer),
		der.Time(thisUpdate),
		der.Optional(!template.NextUpdate.IsZero(), der.Time(template.NextUpdate)),
		der.Optional(len(revoked) > 0, der.SequenceOf(revoked)),
		der.Explicit(0, extensionsItem(exts)),
	)
	if err != nil {
		return nil, err
	}
	return signAndAssemble(random, tbs, algID, alg, signer)
}

// ParseRevocationList parses a DER CRL.
func ParseRevocationList(b []byte) (*RevocationList, error) {
	outer, err := parseSigned(b, "CRL")
	if err != nil {
		return nil, err
	}
	fields, err := outer.tbs.Children()
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 && fields[0].Tag == cbasn1.INTEGER {
		v, err := fields[0].Int()
		if err != nil {
			return nil, err
		}
		if v.Cmp(big.NewInt(1)) != 0 {
			return nil, fmt.Errorf("%w: CRL version %v", encoding.ErrBadASN1, v)
		}
		fields = fields[1:]
	}
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: TBSCertList has %d fields", encoding.ErrBadASN1, len(fields))
	}
	if !bytes.Equal(fields[0].Raw, outer.rawAlgID) {
		return nil, fmt.Errorf("%w: inner and outer signature algorithms differ", encoding.ErrBadASN1)
	}

	l := &RevocationList{
		Raw:                   b,
		RawTBSRevocationList:  outer.tbs.Raw,
		RawSignatureAlgorithm: outer.rawAlgID,
		SignatureAlgorithm:    lookupAlgorithm(outer.rawAlgID),
		Signature:             outer.signature,
		RawIssuer:             fields[1].Raw,
	}
	if l.Issuer, err = parseName(fields[1]); err != nil {
		return nil, fmt.Errorf("issuer: %w", err)
	}
	if l.ThisUpdate, err = fields[2].Time(); err != nil {
		return nil, err
	}
	rest := fields[3:]
	if len(rest) > 0 && (rest[0].Tag == cbasn1.UTCTime || rest[0].Tag == cbasn1.GeneralizedTime) {
		if l.NextUpdate, err = rest[0].Time(); err != nil {
			return nil, err
		}
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0].Tag == cbasn1.SEQUENCE {
		entries, err := rest[0].Children()
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			rc, err := parseRevoked(e)
			if err != nil {
				return nil, err
			}
			l.Revoked = append(l.Revoked, rc)
		}
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0].IsContext(0) {
		inner, err := rest[0].Children()
		if err != nil || len(inner) != 1 {
			return nil, fmt.Errorf("%w: crlExtensions wrapper", encoding.ErrBadASN1)
		}
		if l.Extensions, err = parseExtensions(inner[0]); err != nil {
			return nil, err
		}
		rest = rest[1:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing TBSCertList fields", encoding.ErrBadASN1)
	}

	if n, ok, err := decodeExtension[*CRLNumber](l.Extensions, der.OIDExtCRLNumber); err != nil {
		return nil, err
	} else if ok {
		l.Number = n.Number
	}
	if aki, ok, err := decodeExtension[*AuthorityKeyIdentifier](l.Extensions, der.OIDExtAuthorityKeyID); err != nil {
		return nil, err
	} else if ok {
		l.AuthorityKeyID = aki.KeyID
	}
	return l, nil
}

func parseRevoked(e der.Element) (RevokedCertificate, error) {
	parts, err := e.Children()
	if err != nil {
		return RevokedCertificate{}, err
	}
	if err := der.Expect(parts, 2, 3); err != nil {
		return RevokedCertificate{}, fmt.Errorf("revoked certificate: %w", err)
	}
	var rc RevokedCertificate
	if rc.SerialNumber, err = parts[0].Int(); err != nil {
		return RevokedCertificate{}, err
	}
	if rc.RevocationTime, err = parts[1].Time(); err != nil {
		return RevokedCertificate{}, err
	}
	if len(parts) == 3 {
		if rc.Extensions, err = parseExtensions(parts[2]); err != nil {
			return RevokedCertificate{}, err
		}
		reason, ok, err := decodeExtension[*ReasonCode](rc.Extensions, der.OIDExtReasonCode)
		if err != nil {
			return RevokedCertificate{}, err
		}
		if ok {
			rc.Reason = *reason
		}
	}
	return rc, nil
}

// CheckSignatureFrom verifies that issuer signed the CRL.
func (l *RevocationList) CheckSignatureFrom(issuer *Certificate) error {
	if issuer == nil {
		return fmt.Errorf("%w: nil issuer", encoding.ErrInvalidData)
	}
	if !bytes.Equal(l.RawIssuer, issuer.RawSubject) && !l.Issuer.Equal(issuer.Subject) {
		return ErrIssuerMismatch
	}
	if issuer.KeyUsage != 0 && issuer.KeyUsage&KeyUsageCRLSign == 0 {
		return fmt.Errorf("%w: issuer lacks cRLSign", ErrNotCA)
	}
	return checkSignature(l.RawSignatureAlgorithm, l.RawTBSRevocationList, l.Signature, issuer.PublicKey)
}

// IsRevoked reports whether serial is listed.
func (l *RevocationList) IsRevoked(serial *big.Int) (RevokedCertificate, bool) {
	for _, rc := range l.Revoked {
		if rc.SerialNumber.Cmp(serial) == 0 {
			return rc, true
		}
	}
	return RevokedCertificate{}, false
}
