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

// Package x509util assembles and parses X.509 certificates, certification
// requests and revocation lists directly from DER, with keys from package
// keys and signatures from the signing registry. It also carries the
// typed certificate extensions and the X.509 key codec.
package x509util

import (
	"encoding/asn1"
	"fmt"
	"strings"

	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
)

// =============================================================================
// Distinguished Names
// =============================================================================

// AttributeTypeAndValue is one naming attribute.
type AttributeTypeAndValue struct {
	Type  asn1.ObjectIdentifier
	Value string
	// Tag is the ASN.1 string type. Zero picks the RFC 5280 default for
	// the attribute type.
	Tag cbasn1.Tag
}

// RelativeDistinguishedName is a SET of attributes, usually one.
type RelativeDistinguishedName []AttributeTypeAndValue

// Name is an X.501 distinguished name: RDNs in encoding order, most
// significant (usually the country) first.
type Name []RelativeDistinguishedName

var attributeNames = []struct {
	short string
	oid   asn1.ObjectIdentifier
}{
	{"CN", der.OIDCommonName},
	{"SN", der.OIDSurname},
	{"SERIALNUMBER", der.OIDSerialNumber},
	{"C", der.OIDCountry},
	{"L", der.OIDLocality},
	{"ST", der.OIDProvince},
	{"STREET", der.OIDStreetAddress},
	{"O", der.OIDOrganization},
	{"OU", der.OIDOrganizationalUnit},
	{"T", der.OIDTitle},
	{"GN", der.OIDGivenName},
	{"postalCode", der.OIDPostalCode},
	{"businessCategory", der.OIDBusinessCategory},
	{"emailAddress", der.OIDEmailAddress},
	{"DC", der.OIDDomainComponent},
	{"UID", der.OIDUserID},
}

func attributeOID(short string) (asn1.ObjectIdentifier, bool) {
	for _, a := range attributeNames {
		if strings.EqualFold(a.short, short) {
			return a.oid, true
		}
	}
	if oid, err := der.ParseOID(short); err == nil {
		return oid, true
	}
	return nil, false
}

func attributeShort(oid asn1.ObjectIdentifier) string {
	for _, a := range attributeNames {
		if a.oid.Equal(oid) {
			return a.short
		}
	}
	return oid.String()
}

// defaultTag follows RFC 5280 appendix A: country and serial number are
// PrintableString, emailAddress and domainComponent are IA5String, the rest
// UTF8String.
func defaultTag(oid asn1.ObjectIdentifier) cbasn1.Tag {
	switch {
	case oid.Equal(der.OIDCountry), oid.Equal(der.OIDSerialNumber):
		return cbasn1.PrintableString
	case oid.Equal(der.OIDEmailAddress), oid.Equal(der.OIDDomainComponent):
		return cbasn1.IA5String
	}
	return cbasn1.UTF8String
}

// NewName builds a name with one attribute per RDN, in encoding order.
func NewName(attrs ...AttributeTypeAndValue) Name {
	n := make(Name, 0, len(attrs))
	for _, a := range attrs {
		n = append(n, RelativeDistinguishedName{a})
	}
	return n
}

// CommonName builds a name holding only a common name.
func CommonName(cn string) Name {
	return NewName(AttributeTypeAndValue{Type: der.OIDCommonName, Value: cn})
}

// ParseName reads an RFC 4514 string such as "CN=host,O=Example,C=US".
// RFC 4514 lists the last RDN first, so the result is reversed into
// encoding order. "+" joins attributes of one RDN and "\" escapes the next
// character or a two-digit hex byte.
func ParseName(s string) (Name, error) {
	if strings.TrimSpace(s) == "" {
		return Name{}, nil
	}
	rdns, err := splitEscaped(s, ',')
	if err != nil {
		return nil, err
	}
	out := make(Name, 0, len(rdns))
	for i := len(rdns) - 1; i >= 0; i-- {
		parts, err := splitEscaped(rdns[i], '+')
		if err != nil {
			return nil, err
		}
		var rdn RelativeDistinguishedName
		for _, p := range parts {
			key, value, ok := cutUnescaped(p, '=')
			if !ok {
				return nil, fmt.Errorf("%w: name component %q lacks '='", encoding.ErrInvalidData, p)
			}
			oid, ok := attributeOID(strings.TrimSpace(key))
			if !ok {
				return nil, fmt.Errorf("%w: unknown name attribute %q", encoding.ErrInvalidData, key)
			}
			v, err := unescape(strings.TrimSpace(value))
			if err != nil {
				return nil, err
			}
			rdn = append(rdn, AttributeTypeAndValue{Type: oid, Value: v})
		}
		out = append(out, rdn)
	}
	return out, nil
}

// splitEscaped splits on sep, honoring backslash escapes.
func splitEscaped(s string, sep byte) ([]string, error) {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
			if i >= len(s) {
				return nil, fmt.Errorf("%w: trailing escape in %q", encoding.ErrInvalidData, s)
			}
		case sep:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:]), nil
}

func cutUnescaped(s string, sep byte) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("%w: trailing escape in %q", encoding.ErrInvalidData, s)
		}
		b.WriteByte(s[i+1])
		i++
	}
	return b.String(), nil
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c >= 'a':
		return c - 'a' + 10
	}
	return c - 'A' + 10
}

// String formats the name per RFC 4514, last RDN first.
func (n Name) String() string {
	parts := make([]string, 0, len(n))
	for i := len(n) - 1; i >= 0; i-- {
		attrs := make([]string, 0, len(n[i]))
		for _, a := range n[i] {
			attrs = append(attrs, attributeShort(a.Type)+"="+escape(a.Value))
		}
		parts = append(parts, strings.Join(attrs, "+"))
	}
	return strings.Join(parts, ",")
}

func escape(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case strings.IndexByte(`,+"\<>;=`, c) >= 0,
			c == '#' && i == 0,
			c == ' ' && (i == 0 || i == len(v)-1):
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Attribute returns the first value of the attribute type, if any.
func (n Name) Attribute(oid asn1.ObjectIdentifier) (string, bool) {
	for _, rdn := range n {
		for _, a := range rdn {
			if a.Type.Equal(oid) {
				return a.Value, true
			}
		}
	}
	return "", false
}

// CommonName returns the first common name, or "".
func (n Name) CommonName() string {
	v, _ := n.Attribute(der.OIDCommonName)
	return v
}

// Equal compares names attribute by attribute, ignoring string tags.
func (n Name) Equal(o Name) bool {
	if len(n) != len(o) {
		return false
	}
	for i := range n {
		if len(n[i]) != len(o[i]) {
			return false
		}
		for j := range n[i] {
			if !n[i][j].Type.Equal(o[i][j].Type) || n[i][j].Value != o[i][j].Value {
				return false
			}
		}
	}
	return true
}

// Item returns the DER encoding of the name as an item.
func (n Name) Item() der.Item {
	rdns := make([]der.Item, 0, len(n))
	for _, rdn := range n {
		attrs := make([]der.Item, 0, len(rdn))
		for _, a := range rdn {
			tag := a.Tag
			if tag == 0 {
				tag = defaultTag(a.Type)
			}
			attrs = append(attrs, der.Sequence(der.OID(a.Type), der.String(tag, a.Value)))
		}
		rdns = append(rdns, der.SetOf(attrs...))
	}
	return der.SequenceOf(rdns)
}

// Marshal returns the DER encoding of the name.
func (n Name) Marshal() ([]byte, error) {
	return der.Encode(n.Item())
}

// ParseNameDER decodes a DER Name.
func ParseNameDER(b []byte) (Name, error) {
	e, err := der.DecodeElement(b)
	if err != nil {
		return nil, err
	}
	return parseName(e)
}

var stringTags = []cbasn1.Tag{
	cbasn1.UTF8String, cbasn1.PrintableString, cbasn1.IA5String,
	cbasn1.T61String, cbasn1.Tag(28), // UniversalString
	cbasn1.Tag(30), // BMPString
}

func parseName(e der.Element) (Name, error) {
	if e.Tag != cbasn1.SEQUENCE {
		return nil, fmt.Errorf("%w: Name is not a SEQUENCE", encoding.ErrBadASN1)
	}
	sets, err := e.Children()
	if err != nil {
		return nil, err
	}
	out := make(Name, 0, len(sets))
	for _, set := range sets {
		if set.Tag != cbasn1.SET {
			return nil, fmt.Errorf("%w: RDN is not a SET", encoding.ErrBadASN1)
		}
		attrs, err := set.Children()
		if err != nil {
			return nil, err
		}
		if len(attrs) == 0 {
			return nil, fmt.Errorf("%w: empty RDN", encoding.ErrBadASN1)
		}
		rdn := make(RelativeDistinguishedName, 0, len(attrs))
		for _, attr := range attrs {
			parts, err := attr.Children()
			if err != nil || len(parts) != 2 {
				return nil, fmt.Errorf("%w: AttributeTypeAndValue", encoding.ErrBadASN1)
			}
			oid, err := parts[0].OID()
			if err != nil {
				return nil, err
			}
			value, err := decodeString(parts[1])
			if err != nil {
				return nil, err
			}
			rdn = append(rdn, AttributeTypeAndValue{Type: oid, Value: value, Tag: parts[1].Tag})
		}
		out = append(out, rdn)
	}
	return out, nil
}

// decodeString converts the directory string types to UTF-8.
func decodeString(e der.Element) (string, error) {
	switch e.Tag {
	case cbasn1.Tag(30): // BMPString, UTF-16BE
		if len(e.Content)%2 != 0 {
			return "", fmt.Errorf("%w: odd BMPString length", encoding.ErrBadASN1)
		}
		r := make([]rune, 0, len(e.Content)/2)
		for i := 0; i < len(e.Content); i += 2 {
			r = append(r, rune(e.Content[i])<<8|rune(e.Content[i+1]))
		}
		return string(r), nil
	case cbasn1.Tag(28): // UniversalString, UTF-32BE
		if len(e.Content)%4 != 0 {
			return "", fmt.Errorf("%w: bad UniversalString length", encoding.ErrBadASN1)
		}
		r := make([]rune, 0, len(e.Content)/4)
		for i := 0; i < len(e.Content); i += 4 {
			r = append(r, rune(e.Content[i])<<24|rune(e.Content[i+1])<<16|rune(e.Content[i+2])<<8|rune(e.Content[i+3]))
		}
		return string(r), nil
	}
	for _, t := range stringTags {
		if e.Tag == t {
			return string(e.Content), nil
		}
	}
	return "", fmt.Errorf("%w: attribute value tag %#x is not a string", encoding.ErrBadASN1, uint8(e.Tag))
}
