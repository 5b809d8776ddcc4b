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

package ct

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/jeremyhahn/go-keycodec/internal/testutil"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSCT() *SignedCertificateTimestamp {
	s := &SignedCertificateTimestamp{
		Version:   V1,
		Timestamp: 0x0000017f0c0d0e0f,
		Hash:      HashSHA256,
		Algorithm: SignatureECDSA,
		Signature: []byte{0x30, 0x03, 0x02, 0x01, 0x01},
	}
	for i := range s.LogID {
		s.LogID[i] = byte(i)
	}
	return s
}

func TestSCT_WireFormat(t *testing.T) {
	raw, err := sampleSCT().MarshalBinary()
	require.NoError(t, err)

	want := "00" + // version
		"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f" + // log id
		"0000017f0c0d0e0f" + // timestamp
		"0000" + // extensions
		"04" + "03" + // sha256, ecdsa
		"0005" + "3003020101"
	assert.Equal(t, want, hex.EncodeToString(raw))

	var back SignedCertificateTimestamp
	require.NoError(t, back.UnmarshalBinary(raw))
	assert.Equal(t, sampleSCT(), &back)
	assert.Equal(t, time.UnixMilli(0x17f0c0d0e0f).UTC(), back.Time())
}

func TestSCT_UnmarshalErrors(t *testing.T) {
	raw, err := sampleSCT().MarshalBinary()
	require.NoError(t, err)

	var s SignedCertificateTimestamp
	assert.ErrorIs(t, s.UnmarshalBinary(raw[:40]), ErrTruncated)
	assert.ErrorIs(t, s.UnmarshalBinary(append(raw, 0)), ErrExtraBytes)
	assert.ErrorIs(t, s.UnmarshalBinary(nil), ErrTruncated)

	v2 := append([]byte{1}, raw[1:]...)
	assert.ErrorIs(t, s.UnmarshalBinary(v2), encoding.ErrUnsupportedAlgorithm)
}

func TestList(t *testing.T) {
	a := sampleSCT()
	b := sampleSCT()
	b.Extensions = []byte{0xde, 0xad}
	b.Algorithm = SignatureRSA

	list, err := MarshalList([]*SignedCertificateTimestamp{a, b})
	require.NoError(t, err)

	rawA, _ := a.MarshalBinary()
	rawB, _ := b.MarshalBinary()
	assert.Equal(t, len(list)-2, 2+len(rawA)+2+len(rawB))
	assert.True(t, bytes.HasSuffix(list, rawB))

	got, err := ParseList(list)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0])
	assert.Equal(t, b, got[1])

	_, err = MarshalList(nil)
	assert.ErrorIs(t, err, encoding.ErrInvalidData)
	_, err = ParseList([]byte{0, 0})
	assert.ErrorIs(t, err, encoding.ErrInvalidData)
	_, err = ParseList(list[:len(list)-1])
	assert.ErrorIs(t, err, ErrTruncated)
	_, err = ParseList(append(list, 0))
	assert.ErrorIs(t, err, ErrExtraBytes)
}

func TestExtensionValue(t *testing.T) {
	v, err := MarshalExtensionValue([]*SignedCertificateTimestamp{sampleSCT()})
	require.NoError(t, err)
	assert.Equal(t, byte(0x04), v[0], "OCTET STRING")

	got, err := ParseExtensionValue(v)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sampleSCT(), got[0])

	_, err = ParseExtensionValue([]byte{0x04, 0x05, 0x00})
	assert.ErrorIs(t, err, encoding.ErrBadASN1)
}

func TestSignVerify(t *testing.T) {
	cert := []byte("certificate DER stand-in")
	for _, name := range []string{"p256", "rsa"} {
		t.Run(name, func(t *testing.T) {
			logKey := testutil.Key(t, name)
			now := time.Now().Truncate(time.Millisecond)

			sct, err := Sign(rand.Reader, logKey, now, X509Entry, cert)
			require.NoError(t, err)
			assert.True(t, now.Equal(sct.Time()))
			require.NoError(t, sct.Verify(logKey.Public(), X509Entry, cert))

			err = sct.Verify(logKey.Public(), X509Entry, []byte("other"))
			assert.ErrorIs(t, err, encoding.ErrBadSignature)

			err = sct.Verify(testutil.Key(t, "p384").Public(), X509Entry, cert)
			assert.ErrorIs(t, err, encoding.ErrBadSignature, "log ID mismatch")

			// Survives the extension encoding.
			v, err := MarshalExtensionValue([]*SignedCertificateTimestamp{sct})
			require.NoError(t, err)
			back, err := ParseExtensionValue(v)
			require.NoError(t, err)
			require.NoError(t, back[0].Verify(logKey, X509Entry, cert))
		})
	}

	_, err := Sign(rand.Reader, testutil.Key(t, "ed25519"), time.Now(), X509Entry, cert)
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)
}

func TestSignedData_Precert(t *testing.T) {
	s := sampleSCT()
	entry := append(bytes.Repeat([]byte{0xaa}, 32), []byte("tbs")...)
	data, err := s.SignedData(PrecertEntry, entry)
	require.NoError(t, err)
	// version, signature_type, timestamp, entry_type
	assert.Equal(t, "00"+"00"+"0000017f0c0d0e0f"+"0001", hex.EncodeToString(data[:12]))
	assert.Equal(t, entry[:32], data[12:44])
	assert.Equal(t, []byte{0, 0, 3, 't', 'b', 's', 0, 0}, data[44:])

	_, err = s.SignedData(PrecertEntry, entry[:31])
	assert.ErrorIs(t, err, encoding.ErrInvalidData)
	_, err = s.SignedData(LogEntryType(7), entry)
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)
}
