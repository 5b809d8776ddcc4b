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
	"encoding/asn1"
	"fmt"
	"math/big"
	"math/bits"
	"net"

	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-keycodec/pkg/ct"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
)

// =============================================================================
// Generic extension
// =============================================================================

// Extension is one certificate, CRL or CRL entry extension. Value holds the
// DER inside the extnValue OCTET STRING.
type Extension struct {
	OID      asn1.ObjectIdentifier
	Critical bool
	Value    []byte
}

// ExtensionValue is a typed extension payload.
type ExtensionValue interface {
	// ExtensionOID returns the extension identifier.
	ExtensionOID() asn1.ObjectIdentifier
	// MarshalExtension returns the DER placed in extnValue.
	MarshalExtension() ([]byte, error)
}

// NewExtension encodes a typed value.
func NewExtension(v ExtensionValue, critical bool) (Extension, error) {
	b, err := v.MarshalExtension()
	if err != nil {
		return Extension{}, fmt.Errorf("extension %s: %w", der.OIDName(v.ExtensionOID()), err)
	}
	return Extension{OID: v.ExtensionOID(), Critical: critical, Value: b}, nil
}

// Unknown is the parsed form of an extension without a typed decoder.
type Unknown struct {
	ID    asn1.ObjectIdentifier
	Value []byte
}

// ExtensionOID implements ExtensionValue.
func (u *Unknown) ExtensionOID() asn1.ObjectIdentifier { return u.ID }

// MarshalExtension implements ExtensionValue.
func (u *Unknown) MarshalExtension() ([]byte, error) { return u.Value, nil }

// Decode parses the value into its typed form, or *Unknown when the
// extension has no decoder.
func (e Extension) Decode() (ExtensionValue, error) {
	var v interface {
		ExtensionValue
		unmarshal([]byte) error
	}
	switch {
	case e.OID.Equal(der.OIDExtSubjectAltName):
		v = &SubjectAltName{}
	case e.OID.Equal(der.OIDExtBasicConstraints):
		v = &BasicConstraints{}
	case e.OID.Equal(der.OIDExtKeyUsage):
		v = new(KeyUsage)
	case e.OID.Equal(der.OIDExtExtendedKeyUsage):
		v = &ExtendedKeyUsage{}
	case e.OID.Equal(der.OIDExtSubjectKeyID):
		v = &SubjectKeyIdentifier{}
	case e.OID.Equal(der.OIDExtAuthorityKeyID):
		v = &AuthorityKeyIdentifier{}
	case e.OID.Equal(der.OIDExtCRLDistributionPoints):
		v = &CRLDistributionPoints{}
	case e.OID.Equal(der.OIDExtCertificatePolicies):
		v = &CertificatePolicies{}
	case e.OID.Equal(der.OIDExtAuthorityInfoAccess):
		v = &AuthorityInfoAccess{}
	case e.OID.Equal(der.OIDExtSCTList):
		v = &SCTList{}
	case e.OID.Equal(der.OIDExtCRLNumber):
		v = &CRLNumber{}
	case e.OID.Equal(der.OIDExtReasonCode):
		v = new(ReasonCode)
	default:
		return &Unknown{ID: e.OID, Value: e.Value}, nil
	}
	if err := v.unmarshal(e.Value); err != nil {
		return nil, fmt.Errorf("extension %s: %w", der.OIDName(e.OID), err)
	}
	return v, nil
}

func (e Extension) item() der.Item {
	return der.Sequence(
		der.OID(e.OID),
		der.Optional(e.Critical, der.Boolean(true)),
		der.OctetString(e.Value),
	)
}

func extensionsItem(exts []Extension) der.Item {
	items := make([]der.Item, len(exts))
	for i, e := range exts {
		items[i] = e.item()
	}
	return der.SequenceOf(items)
}

func parseExtension(el der.Element) (Extension, error) {
	parts, err := el.Children()
	if err != nil {
		return Extension{}, err
	}
	if err := der.Expect(parts, 2, 3); err != nil {
		return Extension{}, fmt.Errorf("Extension: %w", err)
	}
	oid, err := parts[0].OID()
	if err != nil {
		return Extension{}, err
	}
	ext := Extension{OID: oid}
	if len(parts) == 3 {
		if ext.Critical, err = parts[1].Bool(); err != nil {
			return Extension{}, err
		}
	}
	if ext.Value, err = parts[len(parts)-1].OctetString(); err != nil {
		return Extension{}, err
	}
	return ext, nil
}

// parseExtensions reads a SEQUENCE OF Extension and rejects duplicates
// (RFC 5280 section 4.2).
func parseExtensions(el der.Element) ([]Extension, error) {
	if el.Tag != cbasn1.SEQUENCE {
		return nil, fmt.Errorf("%w: Extensions is not a SEQUENCE", encoding.ErrBadASN1)
	}
	children, err := el.Children()
	if err != nil {
		return nil, err
	}
	out := make([]Extension, 0, len(children))
	for _, c := range children {
		ext, err := parseExtension(c)
		if err != nil {
			return nil, err
		}
		for _, prev := range out {
			if prev.OID.Equal(ext.OID) {
				return nil, fmt.Errorf("%w: duplicate extension %s", encoding.ErrBadASN1, ext.OID)
			}
		}
		out = append(out, ext)
	}
	return out, nil
}

// FindExtension returns the extension with the given OID.
func FindExtension(exts []Extension, oid asn1.ObjectIdentifier) (Extension, bool) {
	for _, e := range exts {
		if e.OID.Equal(oid) {
			return e, true
		}
	}
	return Extension{}, false
}

// decodeExtension parses the extension with oid into v. It reports false
// when the extension is absent.
func decodeExtension[T ExtensionValue](exts []Extension, oid asn1.ObjectIdentifier) (T, bool, error) {
	var zero T
	e, ok := FindExtension(exts, oid)
	if !ok {
		return zero, false, nil
	}
	v, err := e.Decode()
	if err != nil {
		return zero, true, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, true, fmt.Errorf("%w: extension %s has unexpected type", encoding.ErrInvalidData, oid)
	}
	return t, true, nil
}

// =============================================================================
// GeneralName
// =============================================================================

// GeneralNameKind is the context tag of a GeneralName choice.
type GeneralNameKind uint8

const (
	NameOther        GeneralNameKind = 0
	NameRFC822       GeneralNameKind = 1
	NameDNS          GeneralNameKind = 2
	NameX400         GeneralNameKind = 3
	NameDirectory    GeneralNameKind = 4
	NameEDIParty     GeneralNameKind = 5
	NameURI          GeneralNameKind = 6
	NameIP           GeneralNameKind = 7
	NameRegisteredID GeneralNameKind = 8
)

// GeneralName is one RFC 5280 GeneralName. Kinds without a typed field keep
// their full encoding in Raw.
type GeneralName struct {
	Kind      GeneralNameKind
	Value     string
	IP        net.IP
	Directory Name
	Raw       []byte
}

// DNSName returns a dNSName.
func DNSName(s string) GeneralName { return GeneralName{Kind: NameDNS, Value: s} }

// EmailName returns an rfc822Name.
func EmailName(s string) GeneralName { return GeneralName{Kind: NameRFC822, Value: s} }

// URIName returns a uniformResourceIdentifier.
func URIName(s string) GeneralName { return GeneralName{Kind: NameURI, Value: s} }

// IPName returns an iPAddress.
func IPName(ip net.IP) GeneralName { return GeneralName{Kind: NameIP, IP: ip} }

// DirectoryName returns a directoryName.
func DirectoryName(n Name) GeneralName { return GeneralName{Kind: NameDirectory, Directory: n} }

// String formats the name the way OpenSSL prints it.
func (g GeneralName) String() string {
	switch g.Kind {
	case NameRFC822:
		return "email:" + g.Value
	case NameDNS:
		return "DNS:" + g.Value
	case NameURI:
		return "URI:" + g.Value
	case NameIP:
		return "IP Address:" + g.IP.String()
	case NameDirectory:
		return "DirName:" + g.Directory.String()
	}
	return fmt.Sprintf("othername:<%d>", g.Kind)
}

func (g GeneralName) item() (der.Item, error) {
	switch g.Kind {
	case NameRFC822, NameDNS, NameURI:
		if !ia5(g.Value) {
			return nil, fmt.Errorf("%w: %s is not IA5", encoding.ErrInvalidData, g)
		}
		return der.Implicit(uint8(g.Kind), []byte(g.Value)), nil
	case NameIP:
		ip := g.IP
		if v4 := ip.To4(); v4 != nil {
			ip = v4
		}
		if len(ip) != net.IPv4len && len(ip) != net.IPv6len {
			return nil, fmt.Errorf("%w: bad IP address", encoding.ErrInvalidData)
		}
		return der.Implicit(uint8(NameIP), ip), nil
	case NameDirectory:
		return der.Explicit(uint8(NameDirectory), g.Directory.Item()), nil
	}
	if len(g.Raw) == 0 {
		return nil, fmt.Errorf("%w: GeneralName kind %d needs Raw", encoding.ErrInvalidData, g.Kind)
	}
	return der.Raw(g.Raw), nil
}

func ia5(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

func parseGeneralName(e der.Element) (GeneralName, error) {
	if e.Tag&0xc0 != 0x80 {
		return GeneralName{}, fmt.Errorf("%w: GeneralName is not context-tagged", encoding.ErrBadASN1)
	}
	kind := GeneralNameKind(e.Tag & 0x1f)
	g := GeneralName{Kind: kind}
	switch kind {
	case NameRFC822, NameDNS, NameURI:
		if !ia5(string(e.Content)) {
			return GeneralName{}, fmt.Errorf("%w: GeneralName is not IA5", encoding.ErrBadASN1)
		}
		g.Value = string(e.Content)
	case NameIP:
		if len(e.Content) != net.IPv4len && len(e.Content) != net.IPv6len {
			return GeneralName{}, fmt.Errorf("%w: iPAddress length %d", encoding.ErrBadASN1, len(e.Content))
		}
		g.IP = net.IP(append([]byte(nil), e.Content...))
	case NameDirectory:
		inner, err := e.Children()
		if err != nil || len(inner) != 1 {
			return GeneralName{}, fmt.Errorf("%w: directoryName", encoding.ErrBadASN1)
		}
		if g.Directory, err = parseName(inner[0]); err != nil {
			return GeneralName{}, err
		}
	default:
		g.Raw = e.Raw
	}
	return g, nil
}

// GeneralNames is a SEQUENCE OF GeneralName.
type GeneralNames []GeneralName

func (gs GeneralNames) items() ([]der.Item, error) {
	items := make([]der.Item, 0, len(gs))
	for _, g := range gs {
		it, err := g.item()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func parseGeneralNames(children []der.Element) (GeneralNames, error) {
	out := make(GeneralNames, 0, len(children))
	for _, c := range children {
		g, err := parseGeneralName(c)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (gs GeneralNames) values(kind GeneralNameKind) []string {
	var out []string
	for _, g := range gs {
		if g.Kind == kind {
			out = append(out, g.Value)
		}
	}
	return out
}

// DNSNames returns the dNSName entries.
func (gs GeneralNames) DNSNames() []string { return gs.values(NameDNS) }

// EmailAddresses returns the rfc822Name entries.
func (gs GeneralNames) EmailAddresses() []string { return gs.values(NameRFC822) }

// URIs returns the uniformResourceIdentifier entries.
func (gs GeneralNames) URIs() []string { return gs.values(NameURI) }

// IPAddresses returns the iPAddress entries.
func (gs GeneralNames) IPAddresses() []net.IP {
	var out []net.IP
	for _, g := range gs {
		if g.Kind == NameIP {
			out = append(out, g.IP)
		}
	}
	return out
}

// =============================================================================
// Typed extensions
// =============================================================================

// SubjectAltName is the subjectAltName extension (RFC 5280 section 4.2.1.6).
type SubjectAltName struct {
	Names GeneralNames
}

func (*SubjectAltName) ExtensionOID() asn1.ObjectIdentifier { return der.OIDExtSubjectAltName }

func (s *SubjectAltName) MarshalExtension() ([]byte, error) {
	if len(s.Names) == 0 {
		return nil, fmt.Errorf("%w: empty subjectAltName", encoding.ErrInvalidData)
	}
	items, err := s.Names.items()
	if err != nil {
		return nil, err
	}
	return der.Encode(der.SequenceOf(items))
}

func (s *SubjectAltName) unmarshal(b []byte) error {
	elems, err := der.DecodeSequence(b)
	if err != nil {
		return err
	}
	s.Names, err = parseGeneralNames(elems)
	return err
}

// BasicConstraints is the basicConstraints extension. PathLen is -1 when
// no path length constraint is present.
type BasicConstraints struct {
	CA      bool
	PathLen int
}

func (*BasicConstraints) ExtensionOID() asn1.ObjectIdentifier { return der.OIDExtBasicConstraints }

func (bc *BasicConstraints) MarshalExtension() ([]byte, error) {
	return der.EncodeSequence(
		der.Optional(bc.CA, der.Boolean(true)),
		der.Optional(bc.PathLen >= 0, der.Int(int64(bc.PathLen))),
	)
}

func (bc *BasicConstraints) unmarshal(b []byte) error {
	elems, err := der.DecodeSequence(b)
	if err != nil {
		return err
	}
	bc.CA, bc.PathLen = false, -1
	for _, e := range elems {
		switch e.Tag {
		case cbasn1.BOOLEAN:
			if bc.CA, err = e.Bool(); err != nil {
				return err
			}
		case cbasn1.INTEGER:
			n, err := e.Int()
			if err != nil {
				return err
			}
			if n.Sign() < 0 || !n.IsInt64() || n.Int64() > 1<<31-1 {
				return fmt.Errorf("%w: pathLenConstraint out of range", encoding.ErrBadASN1)
			}
			bc.PathLen = int(n.Int64())
		default:
			return fmt.Errorf("%w: unexpected BasicConstraints component", encoding.ErrBadASN1)
		}
	}
	return nil
}

// KeyUsage is the keyUsage bit set. Bit n of the BIT STRING is 1<<n.
type KeyUsage uint16

const (
	KeyUsageDigitalSignature KeyUsage = 1 << iota
	KeyUsageContentCommitment
	KeyUsageKeyEncipherment
	KeyUsageDataEncipherment
	KeyUsageKeyAgreement
	KeyUsageCertSign
	KeyUsageCRLSign
	KeyUsageEncipherOnly
	KeyUsageDecipherOnly
)

var keyUsageNames = []string{
	"digitalSignature", "contentCommitment", "keyEncipherment", "dataEncipherment",
	"keyAgreement", "keyCertSign", "cRLSign", "encipherOnly", "decipherOnly",
}

// Names lists the set bits by their RFC 5280 names.
func (ku KeyUsage) Names() []string {
	var out []string
	for i, n := range keyUsageNames {
		if ku&(1<<i) != 0 {
			out = append(out, n)
		}
	}
	return out
}

func (KeyUsage) ExtensionOID() asn1.ObjectIdentifier { return der.OIDExtKeyUsage }

// MarshalExtension encodes a named bit list without trailing zero bits.
func (ku KeyUsage) MarshalExtension() ([]byte, error) {
	n := bits.Len16(uint16(ku))
	if n == 0 {
		return nil, fmt.Errorf("%w: empty keyUsage", encoding.ErrInvalidData)
	}
	out := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if ku&(1<<i) != 0 {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return der.Encode(der.BitStringBits(asn1.BitString{Bytes: out, BitLength: n}))
}

func (ku *KeyUsage) unmarshal(b []byte) error {
	e, err := der.DecodeElement(b)
	if err != nil {
		return err
	}
	bs, err := e.BitString()
	if err != nil {
		return err
	}
	*ku = 0
	for i := 0; i < bs.BitLength && i < len(keyUsageNames); i++ {
		if bs.At(i) == 1 {
			*ku |= 1 << i
		}
	}
	return nil
}

// ExtendedKeyUsage is the extKeyUsage extension.
type ExtendedKeyUsage struct {
	Usages []asn1.ObjectIdentifier
}

func (*ExtendedKeyUsage) ExtensionOID() asn1.ObjectIdentifier { return der.OIDExtExtendedKeyUsage }

func (e *ExtendedKeyUsage) MarshalExtension() ([]byte, error) {
	items := make([]der.Item, len(e.Usages))
	for i, oid := range e.Usages {
		items[i] = der.OID(oid)
	}
	return der.Encode(der.SequenceOf(items))
}

func (e *ExtendedKeyUsage) unmarshal(b []byte) error {
	elems, err := der.DecodeSequence(b)
	if err != nil {
		return err
	}
	e.Usages = make([]asn1.ObjectIdentifier, 0, len(elems))
	for _, el := range elems {
		oid, err := el.OID()
		if err != nil {
			return err
		}
		e.Usages = append(e.Usages, oid)
	}
	return nil
}

// SubjectKeyIdentifier is the subjectKeyIdentifier extension.
type SubjectKeyIdentifier struct {
	KeyID []byte
}

func (*SubjectKeyIdentifier) ExtensionOID() asn1.ObjectIdentifier { return der.OIDExtSubjectKeyID }

func (s *SubjectKeyIdentifier) MarshalExtension() ([]byte, error) {
	return der.Encode(der.OctetString(s.KeyID))
}

func (s *SubjectKeyIdentifier) unmarshal(b []byte) error {
	e, err := der.DecodeElement(b)
	if err != nil {
		return err
	}
	s.KeyID, err = e.OctetString()
	return err
}

// AuthorityKeyIdentifier is the authorityKeyIdentifier extension. Issuer
// and Serial are set together or not at all.
type AuthorityKeyIdentifier struct {
	KeyID  []byte
	Issuer GeneralNames
	Serial *big.Int
}

func (*AuthorityKeyIdentifier) ExtensionOID() asn1.ObjectIdentifier {
	return der.OIDExtAuthorityKeyID
}

func (a *AuthorityKeyIdentifier) MarshalExtension() ([]byte, error) {
	if (len(a.Issuer) == 0) != (a.Serial == nil) {
		return nil, fmt.Errorf("%w: authorityCertIssuer and serial must be set together", encoding.ErrInvalidData)
	}
	items := []der.Item{der.Optional(len(a.KeyID) > 0, der.Implicit(0, a.KeyID))}
	if a.Serial != nil {
		names, err := a.Issuer.items()
		if err != nil {
			return nil, err
		}
		serial, err := integerContent(a.Serial)
		if err != nil {
			return nil, err
		}
		items = append(items,
			der.ImplicitConstructed(1, names...),
			der.Implicit(2, serial),
		)
	}
	return der.EncodeSequence(items...)
}

func (a *AuthorityKeyIdentifier) unmarshal(b []byte) error {
	elems, err := der.DecodeSequence(b)
	if err != nil {
		return err
	}
	for _, e := range elems {
		switch {
		case e.IsContext(0):
			a.KeyID = append([]byte(nil), e.Content...)
		case e.IsContext(1):
			children, err := e.Children()
			if err != nil {
				return err
			}
			if a.Issuer, err = parseGeneralNames(children); err != nil {
				return err
			}
		case e.IsContext(2):
			if len(e.Content) == 0 {
				return fmt.Errorf("%w: empty authorityCertSerialNumber", encoding.ErrBadASN1)
			}
			a.Serial = new(big.Int).SetBytes(e.Content)
		default:
			return fmt.Errorf("%w: unexpected AuthorityKeyIdentifier component", encoding.ErrBadASN1)
		}
	}
	return nil
}

// integerContent returns the content octets of the DER INTEGER n.
func integerContent(n *big.Int) ([]byte, error) {
	b, err := der.Encode(der.Integer(n))
	if err != nil {
		return nil, err
	}
	e, err := der.DecodeElement(b)
	if err != nil {
		return nil, err
	}
	return e.Content, nil
}

// CRLDistributionPoints lists the fullName of each distribution point.
type CRLDistributionPoints struct {
	Points []GeneralNames
}

// NewCRLDistributionPoints builds one distribution point per URI.
func NewCRLDistributionPoints(uris ...string) *CRLDistributionPoints {
	out := &CRLDistributionPoints{}
	for _, u := range uris {
		out.Points = append(out.Points, GeneralNames{URIName(u)})
	}
	return out
}

func (*CRLDistributionPoints) ExtensionOID() asn1.ObjectIdentifier {
	return der.OIDExtCRLDistributionPoints
}

// MarshalExtension writes DistributionPoint{[0] {[0] IMPLICIT GeneralNames}}.
func (c *CRLDistributionPoints) MarshalExtension() ([]byte, error) {
	points := make([]der.Item, 0, len(c.Points))
	for _, p := range c.Points {
		names, err := p.items()
		if err != nil {
			return nil, err
		}
		points = append(points, der.Sequence(der.Explicit(0, der.ImplicitConstructed(0, names...))))
	}
	return der.Encode(der.SequenceOf(points))
}

// URIs returns every URI across the distribution points.
func (c *CRLDistributionPoints) URIs() []string {
	var out []string
	for _, p := range c.Points {
		out = append(out, p.URIs()...)
	}
	return out
}

func (c *CRLDistributionPoints) unmarshal(b []byte) error {
	points, err := der.DecodeSequence(b)
	if err != nil {
		return err
	}
	for _, p := range points {
		fields, err := p.Children()
		if err != nil {
			return err
		}
		var names GeneralNames
		for _, f := range fields {
			if !f.IsContext(0) {
				// reasons and cRLIssuer are not retained
				continue
			}
			dpn, err := f.Children()
			if err != nil || len(dpn) != 1 {
				return fmt.Errorf("%w: DistributionPointName", encoding.ErrBadASN1)
			}
			if !dpn[0].IsContext(0) {
				// nameRelativeToCRLIssuer
				continue
			}
			full, err := dpn[0].Children()
			if err != nil {
				return err
			}
			if names, err = parseGeneralNames(full); err != nil {
				return err
			}
		}
		c.Points = append(c.Points, names)
	}
	return nil
}

// PolicyInformation is one certificate policy with optional CPS URIs.
type PolicyInformation struct {
	Policy  asn1.ObjectIdentifier
	CPSURIs []string
}

// CertificatePolicies is the certificatePolicies extension.
type CertificatePolicies struct {
	Policies []PolicyInformation
}

func (*CertificatePolicies) ExtensionOID() asn1.ObjectIdentifier {
	return der.OIDExtCertificatePolicies
}

func (c *CertificatePolicies) MarshalExtension() ([]byte, error) {
	if len(c.Policies) == 0 {
		return nil, fmt.Errorf("%w: empty certificatePolicies", encoding.ErrInvalidData)
	}
	policies := make([]der.Item, 0, len(c.Policies))
	for _, p := range c.Policies {
		var qualifiers []der.Item
		for _, uri := range p.CPSURIs {
			qualifiers = append(qualifiers, der.Sequence(der.OID(der.OIDQualifierCPS), der.String(cbasn1.IA5String, uri)))
		}
		policies = append(policies, der.Sequence(
			der.OID(p.Policy),
			der.Optional(len(qualifiers) > 0, der.SequenceOf(qualifiers)),
		))
	}
	return der.Encode(der.SequenceOf(policies))
}

// OIDs returns the policy identifiers.
func (c *CertificatePolicies) OIDs() []asn1.ObjectIdentifier {
	out := make([]asn1.ObjectIdentifier, len(c.Policies))
	for i, p := range c.Policies {
		out[i] = p.Policy
	}
	return out
}

func (c *CertificatePolicies) unmarshal(b []byte) error {
	policies, err := der.DecodeSequence(b)
	if err != nil {
		return err
	}
	for _, p := range policies {
		fields, err := p.Children()
		if err != nil {
			return err
		}
		if err := der.Expect(fields, 1, 2); err != nil {
			return fmt.Errorf("PolicyInformation: %w", err)
		}
		var info PolicyInformation
		if info.Policy, err = fields[0].OID(); err != nil {
			return err
		}
		if len(fields) == 2 {
			qualifiers, err := fields[1].Children()
			if err != nil {
				return err
			}
			for _, q := range qualifiers {
				qf, err := q.Children()
				if err != nil || len(qf) != 2 {
					return fmt.Errorf("%w: PolicyQualifierInfo", encoding.ErrBadASN1)
				}
				id, err := qf[0].OID()
				if err != nil {
					return err
				}
				// user notices are not retained
				if id.Equal(der.OIDQualifierCPS) && qf[1].Tag == cbasn1.IA5String {
					info.CPSURIs = append(info.CPSURIs, string(qf[1].Content))
				}
			}
		}
		c.Policies = append(c.Policies, info)
	}
	return nil
}

// AccessDescription is one authorityInfoAccess entry.
type AccessDescription struct {
	Method   asn1.ObjectIdentifier
	Location GeneralName
}

// AuthorityInfoAccess is the authorityInfoAccess extension.
type AuthorityInfoAccess struct {
	Descriptions []AccessDescription
}

// NewAuthorityInfoAccess builds OCSP and caIssuers URI entries.
func NewAuthorityInfoAccess(ocsp, issuers []string) *AuthorityInfoAccess {
	aia := &AuthorityInfoAccess{}
	for _, u := range ocsp {
		aia.Descriptions = append(aia.Descriptions, AccessDescription{Method: der.OIDAccessOCSP, Location: URIName(u)})
	}
	for _, u := range issuers {
		aia.Descriptions = append(aia.Descriptions, AccessDescription{Method: der.OIDAccessCAIssuers, Location: URIName(u)})
	}
	return aia
}

func (*AuthorityInfoAccess) ExtensionOID() asn1.ObjectIdentifier {
	return der.OIDExtAuthorityInfoAccess
}

func (a *AuthorityInfoAccess) MarshalExtension() ([]byte, error) {
	items := make([]der.Item, 0, len(a.Descriptions))
	for _, d := range a.Descriptions {
		loc, err := d.Location.item()
		if err != nil {
			return nil, err
		}
		items = append(items, der.Sequence(der.OID(d.Method), loc))
	}
	return der.Encode(der.SequenceOf(items))
}

func (a *AuthorityInfoAccess) locations(method asn1.ObjectIdentifier) []string {
	var out []string
	for _, d := range a.Descriptions {
		if d.Method.Equal(method) && d.Location.Kind == NameURI {
			out = append(out, d.Location.Value)
		}
	}
	return out
}

// OCSPServers returns the OCSP responder URIs.
func (a *AuthorityInfoAccess) OCSPServers() []string { return a.locations(der.OIDAccessOCSP) }

// IssuingCertificateURLs returns the caIssuers URIs.
func (a *AuthorityInfoAccess) IssuingCertificateURLs() []string {
	return a.locations(der.OIDAccessCAIssuers)
}

func (a *AuthorityInfoAccess) unmarshal(b []byte) error {
	descs, err := der.DecodeSequence(b)
	if err != nil {
		return err
	}
	for _, d := range descs {
		fields, err := d.Children()
		if err != nil || len(fields) != 2 {
			return fmt.Errorf("%w: AccessDescription", encoding.ErrBadASN1)
		}
		method, err := fields[0].OID()
		if err != nil {
			return err
		}
		loc, err := parseGeneralName(fields[1])
		if err != nil {
			return err
		}
		a.Descriptions = append(a.Descriptions, AccessDescription{Method: method, Location: loc})
	}
	return nil
}

// SCTList is the RFC 6962 embedded SignedCertificateTimestampList.
type SCTList struct {
	SCTs []*ct.SignedCertificateTimestamp
}

func (*SCTList) ExtensionOID() asn1.ObjectIdentifier { return der.OIDExtSCTList }

func (s *SCTList) MarshalExtension() ([]byte, error) { return ct.MarshalExtensionValue(s.SCTs) }

func (s *SCTList) unmarshal(b []byte) (err error) {
	s.SCTs, err = ct.ParseExtensionValue(b)
	return err
}

// CRLNumber is the cRLNumber CRL extension.
type CRLNumber struct {
	Number *big.Int
}

func (*CRLNumber) ExtensionOID() asn1.ObjectIdentifier { return der.OIDExtCRLNumber }

func (c *CRLNumber) MarshalExtension() ([]byte, error) {
	if c.Number == nil || c.Number.Sign() < 0 {
		return nil, fmt.Errorf("%w: cRLNumber must be non-negative", encoding.ErrInvalidData)
	}
	return der.Encode(der.Integer(c.Number))
}

func (c *CRLNumber) unmarshal(b []byte) error {
	e, err := der.DecodeElement(b)
	if err != nil {
		return err
	}
	c.Number, err = e.Int()
	return err
}

// ReasonCode is the CRL entry reasonCode (RFC 5280 section 5.3.1).
type ReasonCode int

const (
	ReasonUnspecified          ReasonCode = 0
	ReasonKeyCompromise        ReasonCode = 1
	ReasonCACompromise         ReasonCode = 2
	ReasonAffiliationChanged   ReasonCode = 3
	ReasonSuperseded           ReasonCode = 4
	ReasonCessationOfOperation ReasonCode = 5
	ReasonCertificateHold      ReasonCode = 6
	ReasonRemoveFromCRL        ReasonCode = 8
	ReasonPrivilegeWithdrawn   ReasonCode = 9
	ReasonAACompromise         ReasonCode = 10
)

func (ReasonCode) ExtensionOID() asn1.ObjectIdentifier { return der.OIDExtReasonCode }

func (r ReasonCode) MarshalExtension() ([]byte, error) {
	if r < 0 || r > ReasonAACompromise || r == 7 {
		return nil, fmt.Errorf("%w: reason code %d", encoding.ErrInvalidData, int(r))
	}
	return der.Encode(der.Enumerated(int64(r)))
}

func (r *ReasonCode) unmarshal(b []byte) error {
	e, err := der.DecodeElement(b)
	if err != nil {
		return err
	}
	if e.Tag != cbasn1.ENUM || len(e.Content) != 1 {
		return fmt.Errorf("%w: reasonCode is not a small ENUMERATED", encoding.ErrBadASN1)
	}
	*r = ReasonCode(e.Content[0])
	return nil
}
