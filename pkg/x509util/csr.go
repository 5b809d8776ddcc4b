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
	"encoding/asn1"
	"fmt"
	"io"
	"net"
	"slices"

	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
)

// Attribute is one PKCS#10 attribute with its raw DER values.
type Attribute struct {
	Type   asn1.ObjectIdentifier
	Values [][]byte
}

// CertificateRequest is a PKCS#10 certification request (RFC 2986).
type CertificateRequest struct {
	Raw                      []byte
	RawTBSCertificateRequest []byte
	RawSubjectPublicKeyInfo  []byte
	RawSubject               []byte
	RawSignatureAlgorithm    []byte

	Version            int
	SignatureAlgorithm *signing.Algorithm
	Subject            Name
	PublicKey          keys.Key
	Signature          []byte

	// Attributes holds every parsed attribute, including the extension
	// request. ExtraAttributes is appended when creating.
	Attributes      []Attribute
	ExtraAttributes []Attribute
	// Extensions are those of the extensionRequest attribute.
	// ExtraExtensions is appended when creating.
	Extensions      []Extension
	ExtraExtensions []Extension

	ChallengePassword string
	DNSNames          []string
	EmailAddresses    []string
	IPAddresses       []net.IP
	URIs              []string
}

// CreateCertificateRequest builds and signs a request for signer's public
// key. A nil alg uses the signer's default algorithm.
func CreateCertificateRequest(random io.Reader, template *CertificateRequest, signer keys.Key, alg *signing.Algorithm) ([]byte, error) {
	if template == nil {
		return nil, ErrTemplateRequired
	}
	alg, err := resolveAlgorithm(alg, signer)
	if err != nil {
		return nil, err
	}

	var exts []Extension
	if san := sanFromFields(template.DNSNames, template.EmailAddresses, template.IPAddresses, template.URIs); san != nil {
		if _, overridden := FindExtension(template.ExtraExtensions, der.OIDExtSubjectAltName); !overridden {
			ext, err := NewExtension(san, len(template.Subject) == 0)
			if err != nil {
				return nil, err
			}
			exts = append(exts, ext)
		}
	}
	exts = append(exts, template.ExtraExtensions...)

	var attrs [][]byte
	if template.ChallengePassword != "" {
		a, err := der.Encode(der.Sequence(
			der.OID(der.OIDChallengePassword),
			der.SetOf(der.String(cbasn1.UTF8String, template.ChallengePassword)),
		))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	if len(exts) > 0 {
		a, err := der.Encode(der.Sequence(
			der.OID(der.OIDExtensionRequest),
			der.SetOf(extensionsItem(exts)),
		))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	for _, extra := range template.ExtraAttributes {
		values := make([]der.Item, len(extra.Values))
		for i, v := range extra.Values {
			values[i] = der.Raw(v)
		}
		a, err := der.Encode(der.Sequence(der.OID(extra.Type), der.SetOf(values...)))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	// attributes is a SET OF
	slices.SortFunc(attrs, bytes.Compare)
	attrItems := make([]der.Item, len(attrs))
	for i, a := range attrs {
		attrItems[i] = der.Raw(a)
	}

	spki, err := codec.MarshalSPKI(signer.Public())
	if err != nil {
		return nil, err
	}
	algID, err := alg.AlgorithmIdentifierItem()
	if err != nil {
		return nil, err
	}
	tbs, err := der.EncodeSequence(
		der.Int(0),
		template.Subject.Item(),
		der.Raw(spki),
		der.ImplicitConstructed(0, attrItems...),
	)
	if err != nil {
		return nil, err
	}
	return signAndAssemble(random, tbs, algID, alg, signer)
}

// ParseCertificateRequest parses a DER request.
func ParseCertificateRequest(b []byte) (*CertificateRequest, error) {
	outer, err := parseSigned(b, "certificate request")
	if err != nil {
		return nil, err
	}
	fields, err := outer.tbs.Children()
	if err != nil {
		return nil, err
	}
	if err := der.Expect(fields, 4, 4); err != nil {
		return nil, fmt.Errorf("CertificationRequestInfo: %w", err)
	}
	version, err := fields[0].Int()
	if err != nil {
		return nil, err
	}
	if version.Sign() != 0 {
		return nil, fmt.Errorf("%w: certification request version %v", encoding.ErrBadASN1, version)
	}

	r := &CertificateRequest{
		Raw:                      b,
		RawTBSCertificateRequest: outer.tbs.Raw,
		RawSignatureAlgorithm:    outer.rawAlgID,
		SignatureAlgorithm:       lookupAlgorithm(outer.rawAlgID),
		Signature:                outer.signature,
		RawSubject:               fields[1].Raw,
		RawSubjectPublicKeyInfo:  fields[2].Raw,
	}
	if r.Subject, err = parseName(fields[1]); err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	if r.PublicKey, err = parsePublicKey(fields[2]); err != nil {
		return nil, fmt.Errorf("subject public key: %w", err)
	}
	if !fields[3].IsContext(0) {
		return nil, fmt.Errorf("%w: missing attributes", encoding.ErrBadASN1)
	}
	attrs, err := fields[3].Children()
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		parts, err := a.Children()
		if err != nil || len(parts) != 2 || parts[1].Tag != cbasn1.SET {
			return nil, fmt.Errorf("%w: Attribute", encoding.ErrBadASN1)
		}
		oid, err := parts[0].OID()
		if err != nil {
			return nil, err
		}
		values, err := parts[1].Children()
		if err != nil {
			return nil, err
		}
		attr := Attribute{Type: oid}
		for _, v := range values {
			attr.Values = append(attr.Values, v.Raw)
		}
		r.Attributes = append(r.Attributes, attr)

		switch {
		case oid.Equal(der.OIDExtensionRequest):
			if len(values) != 1 {
				return nil, fmt.Errorf("%w: extensionRequest must have one value", encoding.ErrBadASN1)
			}
			if r.Extensions, err = parseExtensions(values[0]); err != nil {
				return nil, err
			}
		case oid.Equal(der.OIDChallengePassword):
			if len(values) != 1 {
				return nil, fmt.Errorf("%w: challengePassword must have one value", encoding.ErrBadASN1)
			}
			if r.ChallengePassword, err = decodeString(values[0]); err != nil {
				return nil, err
			}
		}
	}

	if ext, ok := FindExtension(r.Extensions, der.OIDExtSubjectAltName); ok {
		v, err := ext.Decode()
		if err != nil {
			return nil, err
		}
		names := v.(*SubjectAltName).Names
		r.DNSNames = names.DNSNames()
		r.EmailAddresses = names.EmailAddresses()
		r.IPAddresses = names.IPAddresses()
		r.URIs = names.URIs()
	}
	return r, nil
}

// CheckSignature verifies the self-signature with the embedded public key.
func (r *CertificateRequest) CheckSignature() error {
	return checkSignature(r.RawSignatureAlgorithm, r.RawTBSCertificateRequest, r.Signature, r.PublicKey)
}

// isCertificateRequest reports whether b looks like a PKCS#10 request.
func isCertificateRequest(b []byte) bool {
	outer, err := parseSigned(b, "certificate request")
	if err != nil {
		return false
	}
	fields, err := outer.tbs.Children()
	return err == nil && len(fields) == 4 && fields[0].Tag == cbasn1.INTEGER && fields[3].IsContext(0)
}
