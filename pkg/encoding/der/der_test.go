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

package der

import (
	"encoding/asn1"
	"math/big"
	"testing"
	"time"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

func TestEncodeSequence_MatchesEncodingASN1(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 100)
	got, err := EncodeSequence(
		Int(0),
		Integer(n),
		OID(OIDRSAEncryption),
		Null(),
		OctetString([]byte{1, 2}),
		BitString([]byte{0xff}),
		Sequence(Int(7)),
	)
	require.NoError(t, err)

	type inner struct{ V int }
	want, err := asn1.Marshal(struct {
		A int
		B *big.Int
		C asn1.ObjectIdentifier
		D asn1.RawValue
		E []byte
		F asn1.BitString
		G inner
	}{0, n, OIDRSAEncryption, asn1.NullRawValue, []byte{1, 2}, asn1.BitString{Bytes: []byte{0xff}, BitLength: 8}, inner{7}})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeSequence(t *testing.T) {
	buf, err := EncodeSequence(Int(5), OID(OIDSHA256), OctetString([]byte("x")), Boolean(true), Explicit(0, Int(9)))
	require.NoError(t, err)

	elems, err := DecodeSequence(buf)
	require.NoError(t, err)
	require.NoError(t, Expect(elems, 5, 5))

	v, err := elems[0].Int()
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int64())

	oid, err := elems[1].OID()
	require.NoError(t, err)
	assert.True(t, oid.Equal(OIDSHA256))

	os, err := elems[2].OctetString()
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), os)

	b, err := elems[3].Bool()
	require.NoError(t, err)
	assert.True(t, b)

	assert.True(t, elems[4].IsContext(0))
	children, err := elems[4].Children()
	require.NoError(t, err)
	inner, err := children[0].Int()
	require.NoError(t, err)
	assert.Equal(t, int64(9), inner.Int64())

	_, err = elems[1].Int()
	assert.ErrorIs(t, err, encoding.ErrBadASN1)
}

func TestDecodeSequence_Rejects(t *testing.T) {
	_, err := DecodeSequence([]byte{0x02, 0x01, 0x00})
	assert.ErrorIs(t, err, encoding.ErrBadASN1)

	_, err = DecodeSequence([]byte{0x30, 0x03, 0x02, 0x01, 0x00, 0x00})
	assert.ErrorIs(t, err, encoding.ErrBadASN1, "trailing data")

	_, err = DecodeSequence([]byte{0x30, 0x05, 0x02, 0x01})
	assert.ErrorIs(t, err, encoding.ErrBadASN1)
}

func TestBytesToSequence_PEM(t *testing.T) {
	buf, err := EncodeSequence(Int(1), Int(2))
	require.NoError(t, err)
	armored, err := pem.Encode(&pem.Block{Type: "TEST", Bytes: buf}, &pem.EncodeOptions{Cipher: "AES-128-CBC", Passphrase: []byte("pw")})
	require.NoError(t, err)

	_, err = BytesToSequence(armored, nil)
	assert.ErrorIs(t, err, encoding.ErrPassphraseRequired)

	elems, err := BytesToSequence(armored, []byte("pw"))
	require.NoError(t, err)
	ints, err := Ints(elems)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ints[1].Int64())

	elems, err = BytesToSequence(buf, nil)
	require.NoError(t, err)
	assert.Len(t, elems, 2)
}

func TestSetOf_Sorted(t *testing.T) {
	a, err := Encode(SetOf(Int(300), Int(1)))
	require.NoError(t, err)
	b, err := Encode(SetOf(Int(1), Int(300)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, byte(0x31), a[0])
}

func TestTime(t *testing.T) {
	utc, err := Encode(Time(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, byte(cbasn1.UTCTime), utc[0])

	gen, err := Encode(Time(time.Date(2050, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, byte(cbasn1.GeneralizedTime), gen[0])

	seq, err := EncodeSequence(Time(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.NoError(t, err)
	elems, err := DecodeSequence(seq)
	require.NoError(t, err)
	ts, err := elems[0].Time()
	require.NoError(t, err)
	assert.Equal(t, 2030, ts.Year())
}

func TestBitStringBits(t *testing.T) {
	// KeyUsage digitalSignature|keyCertSign: 0x84 with 2 unused bits
	out, err := Encode(BitStringBits(asn1.BitString{Bytes: []byte{0x84}, BitLength: 6}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x02, 0x02, 0x84}, out)

	_, err = Encode(BitStringBits(asn1.BitString{Bytes: []byte{0x84}, BitLength: 12}))
	assert.ErrorIs(t, err, encoding.ErrBadASN1)
}

func TestOIDToBytes(t *testing.T) {
	oids := []asn1.ObjectIdentifier{
		OIDRSAEncryption, OIDECPublicKey, OIDEd25519, OIDSHA256, OIDExtSCTList,
		OIDDomainComponent, {2, 999, 3}, {1, 39},
	}
	for _, oid := range oids {
		t.Run(oid.String(), func(t *testing.T) {
			got, err := OIDToBytes(oid)
			require.NoError(t, err)
			full, err := asn1.Marshal(oid)
			require.NoError(t, err)
			assert.Equal(t, full[2:], got)

			back, err := BytesToOID(got)
			require.NoError(t, err)
			assert.True(t, back.Equal(oid))
		})
	}

	got, err := OIDToBytes(OIDRSAEncryption)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x01}, got)

	_, err = OIDToBytes(asn1.ObjectIdentifier{1})
	assert.Error(t, err)
	_, err = OIDToBytes(asn1.ObjectIdentifier{1, 40})
	assert.Error(t, err)
	_, err = BytesToOID([]byte{0x2a, 0x86})
	assert.ErrorIs(t, err, encoding.ErrBadASN1)
	_, err = BytesToOID([]byte{0x2a, 0x80, 0x01})
	assert.ErrorIs(t, err, encoding.ErrBadASN1)
}

func TestOIDNames(t *testing.T) {
	assert.Equal(t, "sha256WithRSAEncryption", OIDName(OIDSHA256WithRSA))
	assert.Equal(t, "1.2.3.4", OIDName(asn1.ObjectIdentifier{1, 2, 3, 4}))
	oid, ok := OIDByName("serverAuth")
	require.True(t, ok)
	assert.True(t, oid.Equal(OIDEKUServerAuth))

	parsed, err := ParseOID("2.5.29.17")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(OIDExtSubjectAltName))
	_, err = ParseOID("2.x")
	assert.Error(t, err)
}

func TestDecodeElement(t *testing.T) {
	b, err := Encode(Integer(big.NewInt(65537)))
	require.NoError(t, err)
	e, err := DecodeElement(b)
	require.NoError(t, err)
	n, err := e.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(65537), n.Int64())

	_, err = DecodeElement(append(b, 0x05, 0x00))
	assert.ErrorIs(t, err, encoding.ErrBadASN1)

	_, err = DecodeElement([]byte{0x02, 0x05, 0x01})
	assert.ErrorIs(t, err, encoding.ErrBadASN1)
}
