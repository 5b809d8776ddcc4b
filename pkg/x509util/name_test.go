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
	"crypto/x509/pkix"
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
)

func TestParseName(t *testing.T) {
	n, err := ParseName("CN=host.example.com,OU=Ops,O=Example Inc,C=US")
	require.NoError(t, err)
	require.Len(t, n, 4)

	// encoding order is reversed
	assert.True(t, n[0][0].Type.Equal(der.OIDCountry))
	assert.True(t, n[3][0].Type.Equal(der.OIDCommonName))
	assert.Equal(t, "host.example.com", n.CommonName())
	assert.Equal(t, "CN=host.example.com,OU=Ops,O=Example Inc,C=US", n.String())

	b, err := n.Marshal()
	require.NoError(t, err)
	var rdns pkix.RDNSequence
	rest, err := asn1.Unmarshal(b, &rdns)
	require.NoError(t, err)
	require.Empty(t, rest)
	var std pkix.Name
	std.FillFromRDNSequence(&rdns)
	assert.Equal(t, "host.example.com", std.CommonName)
	assert.Equal(t, []string{"Example Inc"}, std.Organization)
	assert.Equal(t, []string{"Ops"}, std.OrganizationalUnit)
	assert.Equal(t, []string{"US"}, std.Country)
}

func TestParseName_Escapes(t *testing.T) {
	n, err := ParseName(`CN=Smith\, John+UID=jsmith,O=A\+B,DC=example,DC=com`)
	require.NoError(t, err)
	require.Len(t, n, 4)
	assert.Equal(t, "com", n[0][0].Value)
	assert.Equal(t, "A+B", n[2][0].Value)
	require.Len(t, n[3], 2)
	assert.Equal(t, "Smith, John", n[3][0].Value)
	assert.True(t, n[3][1].Type.Equal(der.OIDUserID))
	assert.Equal(t, `CN=Smith\, John+UID=jsmith,O=A\+B,DC=example,DC=com`, n.String())

	hex, err := ParseName(`CN=caf\C3\A9`)
	require.NoError(t, err)
	assert.Equal(t, "café", hex.CommonName())

	oid, err := ParseName("2.5.4.3=by-oid")
	require.NoError(t, err)
	assert.Equal(t, "by-oid", oid.CommonName())

	empty, err := ParseName("  ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseName_Errors(t *testing.T) {
	for _, s := range []string{"CN", "XX=1", `CN=trailing\`} {
		_, err := ParseName(s)
		assert.ErrorIs(t, err, encoding.ErrInvalidData, s)
	}
}

func TestName_StringTags(t *testing.T) {
	n := NewName(
		AttributeTypeAndValue{Type: der.OIDCountry, Value: "DE"},
		AttributeTypeAndValue{Type: der.OIDEmailAddress, Value: "a@example.com"},
		AttributeTypeAndValue{Type: der.OIDCommonName, Value: "Jürgen"},
	)
	b, err := n.Marshal()
	require.NoError(t, err)

	parsed, err := ParseNameDER(b)
	require.NoError(t, err)
	assert.True(t, n.Equal(parsed))
	assert.Equal(t, cbasn1.PrintableString, parsed[0][0].Tag)
	assert.Equal(t, cbasn1.IA5String, parsed[1][0].Tag)
	assert.Equal(t, cbasn1.UTF8String, parsed[2][0].Tag)

	v, ok := parsed.Attribute(der.OIDEmailAddress)
	assert.True(t, ok)
	assert.Equal(t, "a@example.com", v)
}

func TestParseNameDER_Std(t *testing.T) {
	std := pkix.Name{
		Country:      []string{"US"},
		Organization: []string{"Example"},
		Locality:     []string{"Austin"},
		CommonName:   "std",
		SerialNumber: "1234",
	}
	b, err := asn1.Marshal(std.ToRDNSequence())
	require.NoError(t, err)

	n, err := ParseNameDER(b)
	require.NoError(t, err)
	assert.Equal(t, "std", n.CommonName())
	v, _ := n.Attribute(der.OIDLocality)
	assert.Equal(t, "Austin", v)
	assert.Equal(t, std.String(), n.String())
}

func TestParseNameDER_BMPString(t *testing.T) {
	// SEQUENCE { SET { SEQUENCE { CN, BMPString "Hi" } } }
	b, err := der.Encode(der.Sequence(der.SetOf(der.Sequence(
		der.OID(der.OIDCommonName),
		der.String(cbasn1.Tag(30), "\x00H\x00i"),
	))))
	require.NoError(t, err)
	n, err := ParseNameDER(b)
	require.NoError(t, err)
	assert.Equal(t, "Hi", n.CommonName())

	_, err = ParseNameDER([]byte{0x31, 0x00})
	assert.ErrorIs(t, err, encoding.ErrBadASN1)
}
