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
	"math/big"
	"net"
	"time"

	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/jeremyhahn/go-keycodec/pkg/ct"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
)

// Certificate is a parsed X.509 v1-v3 certificate. The same type serves as
// the template for CreateCertificate, which reads the subject, validity,
// serial and extension fields and ignores the Raw ones.
type Certificate struct {
	Raw                     []byte
	RawTBSCertificate       []byte
	RawSubjectPublicKeyInfo []byte
	RawSubject              []byte
	RawIssuer               []byte
	RawSignatureAlgorithm   []byte

	Version      int
	SerialNumber *big.Int
	// SignatureAlgorithm is nil when the identifier is not in the registry.
	SignatureAlgorithm *signing.Algorithm
	Issuer             Name
	Subject            Name
	NotBefore          time.Time
	NotAfter           time.Time
	PublicKey          keys.Key
	Signature          []byte

	// Extensions holds every parsed extension. ExtraExtensions is appended
	// when creating and overrides extensions built from the typed fields.
	Extensions      []Extension
	ExtraExtensions []Extension

	KeyUsage              KeyUsage
	ExtKeyUsage           []asn1.ObjectIdentifier
	BasicConstraints      *BasicConstraints
	SubjectKeyID          []byte
	AuthorityKeyID        []byte
	DNSNames              []string
	EmailAddresses        []string
	IPAddresses           []net.IP
	URIs                  []string
	CRLDistributionPoints []string
	OCSPServers           []string
	IssuingCertificateURL []string
	PolicyIdentifiers     []asn1.ObjectIdentifier
	SCTs                  []*ct.SignedCertificateTimestamp
}

// =============================================================================
// Creation
// =============================================================================

// CreateCertificate issues a certificate for pub signed by signer. A nil
// parent makes the certificate self-signed, in which case signer must be
// the private half of pub. A nil alg uses the signer's default algorithm.
// random supplies the serial number when the template has none and is
// passed to the signer; see signing.Algorithm.Sign for nil semantics.
func CreateCertificate(random io.Reader, template, parent *Certificate, pub, signer keys.Key, alg *signing.Algorithm) ([]byte, error) {
	if template == nil {
		return nil, ErrTemplateRequired
	}
	if pub == nil {
		return nil, fmt.Errorf("%w: no subject public key", encoding.ErrInvalidPublicKey)
	}
	alg, err := resolveAlgorithm(alg, signer)
	if err != nil {
		return nil, err
	}

	issuer := template.Subject
	rawIssuer := []byte(nil)
	var authorityKeyID []byte
	if parent == nil {
		if !signer.Public().Equal(pub.Public()) {
			return nil, fmt.Errorf("%w: self-signed certificate key differs from signer", signing.ErrKeyMismatch)
		}
	} else {
		if parent.PublicKey == nil || !signer.Public().Equal(parent.PublicKey.Public()) {
			return nil, fmt.Errorf("%w: signer does not match parent certificate", signing.ErrKeyMismatch)
		}
		issuer = parent.Subject
		rawIssuer = parent.RawSubject
		authorityKeyID = parent.SubjectKeyID
		if authorityKeyID == nil {
			if authorityKeyID, err = KeyID(parent.PublicKey); err != nil {
				return nil, err
			}
		}
	}
	if rawIssuer == nil {
		if rawIssuer, err = issuer.Marshal(); err != nil {
			return nil, err
		}
	}

	serial := template.SerialNumber
	if serial == nil {
		if serial, err = randomSerial(random); err != nil {
			return nil, err
		}
	}
	if serial.Sign() <= 0 {
		return nil, fmt.Errorf("%w: serial number must be positive", encoding.ErrInvalidData)
	}
	notBefore, notAfter := template.NotBefore, template.NotAfter
	if notBefore.IsZero() {
		notBefore = time.Now().Add(-time.Minute)
	}
	if notAfter.IsZero() {
		notAfter = notBefore.AddDate(1, 0, 0)
	}
	if !notAfter.After(notBefore) {
		return nil, fmt.Errorf("%w: notAfter precedes notBefore", encoding.ErrInvalidData)
	}

	subjectKeyID := template.SubjectKeyID
	if subjectKeyID == nil {
		if subjectKeyID, err = KeyID(pub); err != nil {
			return nil, err
		}
	}
	exts, err := template.buildExtensions(subjectKeyID, authorityKeyID)
	if err != nil {
		return nil, err
	}

	spki, err := codec.MarshalSPKI(pub.Public())
	if err != nil {
		return nil, err
	}
	subject, err := template.Subject.Marshal()
	if err != nil {
		return nil, err
	}
	algID, err := alg.AlgorithmIdentifierItem()
	if err != nil {
		return nil, err
	}

	tbs, err := der.EncodeSequence(
		der.Explicit(0, der.Int(2)),
		der.Integer(serial),
		algID,
		der.Raw(rawIssuer),
		der.Sequence(der.Time(notBefore), der.Time(notAfter)),
		der.Raw(subject),
		der.Raw(spki),
		der.Optional(len(exts) > 0, der.Explicit(3, extensionsItem(exts))),
	)
	if err != nil {
		return nil, err
	}
	return signAndAssemble(random, tbs, algID, alg, signer)
}

// buildExtensions turns the typed template fields into extensions.
func (c *Certificate) buildExtensions(subjectKeyID, authorityKeyID []byte) ([]Extension, error) {
	var values []struct {
		v        ExtensionValue
		critical bool
	}
	add := func(v ExtensionValue, critical bool) {
		values = append(values, struct {
			v        ExtensionValue
			critical bool
		}{v, critical})
	}

	if len(subjectKeyID) > 0 {
		add(&SubjectKeyIdentifier{KeyID: subjectKeyID}, false)
	}
	if len(authorityKeyID) > 0 {
		add(&AuthorityKeyIdentifier{KeyID: authorityKeyID}, false)
	}
	if c.KeyUsage != 0 {
		add(c.KeyUsage, true)
	}
	if c.BasicConstraints != nil {
		add(c.BasicConstraints, true)
	}
	if len(c.ExtKeyUsage) > 0 {
		add(&ExtendedKeyUsage{Usages: c.ExtKeyUsage}, false)
	}
	if san := sanFromFields(c.DNSNames, c.EmailAddresses, c.IPAddresses, c.URIs); san != nil {
		// RFC 5280 section 4.2.1.6: critical when the subject is empty
		add(san, len(c.Subject) == 0)
	}
	if len(c.CRLDistributionPoints) > 0 {
		add(NewCRLDistributionPoints(c.CRLDistributionPoints...), false)
	}
	if len(c.OCSPServers) > 0 || len(c.IssuingCertificateURL) > 0 {
		add(NewAuthorityInfoAccess(c.OCSPServers, c.IssuingCertificateURL), false)
	}
	if len(c.PolicyIdentifiers) > 0 {
		cp := &CertificatePolicies{}
		for _, oid := range c.PolicyIdentifiers {
			cp.Policies = append(cp.Policies, PolicyInformation{Policy: oid})
		}
		add(cp, false)
	}
	if len(c.SCTs) > 0 {
		add(&SCTList{SCTs: c.SCTs}, false)
	}

	out := make([]Extension, 0, len(values)+len(c.ExtraExtensions))
	for _, v := range values {
		if _, overridden := FindExtension(c.ExtraExtensions, v.v.ExtensionOID()); overridden {
			continue
		}
		ext, err := NewExtension(v.v, v.critical)
		if err != nil {
			return nil, err
		}
		out = append(out, ext)
	}
	return append(out, c.ExtraExtensions...), nil
}

func sanFromFields(dns, emails []string, ips []net.IP, uris []string) *SubjectAltName {
	var names GeneralNames
	for _, n := range dns {
		names = append(names, DNSName(n))
	}
	for _, e := range emails {
		names = append(names, EmailName(e))
	}
	for _, ip := range ips {
		names = append(names, IPName(ip))
	}
	for _, u := range uris {
		names = append(names, URIName(u))
	}
	if len(names) == 0 {
		return nil
	}
	return &SubjectAltName{Names: names}
}

// =============================================================================
// Parsing
// =============================================================================

// ParseCertificate parses a DER certificate.
func ParseCertificate(b []byte) (*Certificate, error) {
	outer, err := parseSigned(b, "certificate")
	if err != nil {
		return nil, err
	}
	fields, err := outer.tbs.Children()
	if err != nil {
		return nil, err
	}

	c := &Certificate{
		Raw:                   b,
		RawTBSCertificate:     outer.tbs.Raw,
		RawSignatureAlgorithm: outer.rawAlgID,
		Signature:             outer.signature,
		Version:               1,
	}
	if len(fields) > 0 && fields[0].IsContext(0) {
		inner, err := fields[0].Children()
		if err != nil || len(inner) != 1 {
			return nil, fmt.Errorf("%w: certificate version", encoding.ErrBadASN1)
		}
		v, err := inner[0].Int()
		if err != nil {
			return nil, err
		}
		if !v.IsInt64() || v.Int64() < 0 || v.Int64() > 2 {
			return nil, fmt.Errorf("%w: certificate version %v", encoding.ErrBadASN1, v)
		}
		c.Version = int(v.Int64()) + 1
		fields = fields[1:]
	}
	if len(fields) < 6 {
		return nil, fmt.Errorf("%w: TBSCertificate has %d fields", encoding.ErrBadASN1, len(fields))
	}

	if c.SerialNumber, err = fields[0].Int(); err != nil {
		return nil, err
	}
	if !bytes.Equal(fields[1].Raw, outer.rawAlgID) {
		return nil, fmt.Errorf("%w: inner and outer signature algorithms differ", encoding.ErrBadASN1)
	}
	c.SignatureAlgorithm = lookupAlgorithm(outer.rawAlgID)

	c.RawIssuer = fields[2].Raw
	if c.Issuer, err = parseName(fields[2]); err != nil {
		return nil, fmt.Errorf("issuer: %w", err)
	}
	validity, err := fields[3].Children()
	if err != nil || len(validity) != 2 {
		return nil, fmt.Errorf("%w: Validity", encoding.ErrBadASN1)
	}
	if c.NotBefore, err = validity[0].Time(); err != nil {
		return nil, err
	}
	if c.NotAfter, err = validity[1].Time(); err != nil {
		return nil, err
	}
	c.RawSubject = fields[4].Raw
	if c.Subject, err = parseName(fields[4]); err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	c.RawSubjectPublicKeyInfo = fields[5].Raw
	if c.PublicKey, err = parsePublicKey(fields[5]); err != nil {
		return nil, fmt.Errorf("subject public key: %w", err)
	}

	for _, f := range fields[6:] {
		switch {
		case f.IsContext(1), f.IsContext(2):
			// issuerUniqueID, subjectUniqueID
		case f.IsContext(3):
			if c.Version != 3 {
				return nil, fmt.Errorf("%w: extensions in a v%d certificate", encoding.ErrBadASN1, c.Version)
			}
			inner, err := f.Children()
			if err != nil || len(inner) != 1 {
				return nil, fmt.Errorf("%w: extensions wrapper", encoding.ErrBadASN1)
			}
			if c.Extensions, err = parseExtensions(inner[0]); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unexpected TBSCertificate field tag %#x", encoding.ErrBadASN1, uint8(f.Tag))
		}
	}
	if err := c.applyExtensions(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyExtensions fills the typed fields from Extensions.
func (c *Certificate) applyExtensions() error {
	for _, e := range c.Extensions {
		v, err := e.Decode()
		if err != nil {
			return err
		}
		switch ext := v.(type) {
		case *SubjectAltName:
			c.DNSNames = ext.Names.DNSNames()
			c.EmailAddresses = ext.Names.EmailAddresses()
			c.IPAddresses = ext.Names.IPAddresses()
			c.URIs = ext.Names.URIs()
		case *BasicConstraints:
			c.BasicConstraints = ext
		case *KeyUsage:
			c.KeyUsage = *ext
		case *ExtendedKeyUsage:
			c.ExtKeyUsage = ext.Usages
		case *SubjectKeyIdentifier:
			c.SubjectKeyID = ext.KeyID
		case *AuthorityKeyIdentifier:
			c.AuthorityKeyID = ext.KeyID
		case *CRLDistributionPoints:
			c.CRLDistributionPoints = ext.URIs()
		case *AuthorityInfoAccess:
			c.OCSPServers = ext.OCSPServers()
			c.IssuingCertificateURL = ext.IssuingCertificateURLs()
		case *CertificatePolicies:
			c.PolicyIdentifiers = ext.OIDs()
		case *SCTList:
			c.SCTs = ext.SCTs
		}
	}
	return nil
}

// IsCA reports whether the certificate asserts cA in BasicConstraints.
func (c *Certificate) IsCA() bool {
	return c.BasicConstraints != nil && c.BasicConstraints.CA
}

// Extension returns the extension with the given OID.
func (c *Certificate) Extension(oid asn1.ObjectIdentifier) (Extension, bool) {
	return FindExtension(c.Extensions, oid)
}

// =============================================================================
// Verification
// =============================================================================

// CheckSignature verifies the certificate signature with pub.
func (c *Certificate) CheckSignature(pub keys.Key) error {
	return checkSignature(c.RawSignatureAlgorithm, c.RawTBSCertificate, c.Signature, pub)
}

// CheckSignatureFrom verifies that parent issued c: the issuer name must
// match the parent subject, a v3 parent must be a CA, and the signature
// must verify under the parent key. No other path validation is done.
func (c *Certificate) CheckSignatureFrom(parent *Certificate) error {
	if parent == nil {
		return fmt.Errorf("%w: nil parent", encoding.ErrInvalidData)
	}
	if !bytes.Equal(c.RawIssuer, parent.RawSubject) && !c.Issuer.Equal(parent.Subject) {
		return ErrIssuerMismatch
	}
	if !bytes.Equal(c.Raw, parent.Raw) {
		if parent.Version == 3 && !parent.IsCA() {
			return ErrNotCA
		}
		if parent.KeyUsage != 0 && parent.KeyUsage&KeyUsageCertSign == 0 {
			return fmt.Errorf("%w: keyCertSign not asserted", ErrNotCA)
		}
	}
	return c.CheckSignature(parent.PublicKey)
}

// IsSelfSigned reports whether the certificate verifies under its own key.
func (c *Certificate) IsSelfSigned() bool {
	return bytes.Equal(c.RawIssuer, c.RawSubject) && c.CheckSignature(c.PublicKey) == nil
}

// Verify is CheckSignatureFrom plus a validity window check at t. A nil
// parent verifies a self-signed certificate.
func (c *Certificate) Verify(parent *Certificate, t time.Time) error {
	if t.Before(c.NotBefore) || t.After(c.NotAfter) {
		return fmt.Errorf("%w: certificate not valid at %s", encoding.ErrInvalidData, t.UTC().Format(time.RFC3339))
	}
	if parent == nil {
		parent = c
	}
	return c.CheckSignatureFrom(parent)
}

// isCertificate reports whether b has the outer shape of a certificate:
// a TBS starting with [0] version or a serial INTEGER, and at least six
// TBS fields.
func isCertificate(b []byte) bool {
	outer, err := parseSigned(b, "certificate")
	if err != nil {
		return false
	}
	fields, err := outer.tbs.Children()
	if err != nil || len(fields) < 6 {
		return false
	}
	if fields[0].IsContext(0) {
		fields = fields[1:]
	}
	return len(fields) >= 6 && fields[0].Tag == cbasn1.INTEGER && fields[3].Tag == cbasn1.SEQUENCE
}
