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

package jwa

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kerckhoffsPlaintext = "A cipher system must not be required to be secret, and it must be able to fall into the hands of the enemy without inconvenience"
	kerckhoffsAAD       = "The second principle of Auguste Kerckhoffs"
	kerckhoffsIV        = "1af38c2dc2b96ffdd86694092341bc04"
)

func sequentialKey(n int) []byte {
	k := make([]byte, n)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// RFC 7518 appendix B test cases.
func TestContentEncryption_CBCHMACVectors(t *testing.T) {
	tests := []struct {
		enc        *ContentEncryption
		ciphertext string
		tag        string
	}{
		{
			enc:        A128CBCHS256,
			ciphertext: "c80edfa32ddf39d5ef00c0b468834279a2e46a1b8049f792f76bfe54b903a9c9a94ac9b47ad2655c5f10f9aef71427e2fc6f9b3f399a221489f16362c703233609d45ac69864e3321cf82935ac4096c86e133314c54019e8ca7980dfa4b9cf1b384c486f3a54c51078158ee5d79de59fbd34d848b3d69550a67646344427ade54b8851ffb598f7f80074b9473c82e2db",
			tag:        "652c3fa36b0a7c5b3219fab3a30bc1c4",
		},
		{
			enc:        A192CBCHS384,
			ciphertext: "ea65da6b59e61edb419be62d19712ae5d303eeb50052d0dfd6697f77224c8edb000d279bdc14c1072654bd30944230c657bed4ca0c9f4a8466f22b226d1746214bf8cfc2400add9f5126e479663fc90b3bed787a2f0ffcbf3904be2a641d5c2105bfe591bae23b1d7449e532eef60a9ac8bb6c6b01d35d49787bcd57ef484927f280adc91ac0c4e79c7b11efc60054e3",
			tag:        "8490ac0e58949bfe51875d733f93ac2075168039ccc733d7",
		},
		{
			enc:        A256CBCHS512,
			ciphertext: "4affaaadb78c31c5da4b1b590d10ffbd3dd8d5d302423526912da037ecbcc7bd822c301dd67c373bccb584ad3e9279c2e6d12a1374b77f077553df829410446b36ebd97066296ae6427ea75c2e0846a11a09ccf5370dc80bfecbad28c73f09b3a3b75e662a2594410ae496b2e2e6609e31e6e02cc837f053d21f37ff4f51950bbe2638d09dd7a4930930806d0703b1f6",
			tag:        "4dd3b4c088a7f45c216839645b2012bf2e6269a8c56a816dbc1b267761955bc5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.enc.Name, func(t *testing.T) {
			key := sequentialKey(tt.enc.KeySize)
			iv := mustHex(t, kerckhoffsIV)

			ct, tag, err := tt.enc.Encrypt(key, iv, []byte(kerckhoffsPlaintext), []byte(kerckhoffsAAD))
			require.NoError(t, err)
			assert.Equal(t, tt.ciphertext, hex.EncodeToString(ct))
			assert.Equal(t, tt.tag, hex.EncodeToString(tag))

			pt, err := tt.enc.Decrypt(key, iv, ct, tag, []byte(kerckhoffsAAD))
			require.NoError(t, err)
			assert.Equal(t, kerckhoffsPlaintext, string(pt))
		})
	}
}

func TestContentEncryption_RoundTripAndTamper(t *testing.T) {
	for _, enc := range ContentEncryptions() {
		t.Run(enc.Name, func(t *testing.T) {
			cek, err := enc.GenerateCEK(rand.Reader)
			require.NoError(t, err)
			iv, err := enc.GenerateIV(rand.Reader)
			require.NoError(t, err)
			aad := []byte("eyJhbGciOiJkaXIifQ")

			ct, tag, err := enc.Encrypt(cek, iv, []byte("hello"), aad)
			require.NoError(t, err)
			assert.Len(t, tag, enc.TagSize)

			pt, err := enc.Decrypt(cek, iv, ct, tag, aad)
			require.NoError(t, err)
			assert.Equal(t, "hello", string(pt))

			bad := append([]byte(nil), tag...)
			bad[0] ^= 1
			_, err = enc.Decrypt(cek, iv, ct, bad, aad)
			assert.ErrorIs(t, err, encoding.ErrDecryptionFailed)
			assert.ErrorIs(t, err, encoding.ErrBadMAC)

			_, err = enc.Decrypt(cek, iv, ct, tag, []byte("other"))
			assert.ErrorIs(t, err, encoding.ErrBadMAC)

			_, err = enc.Decrypt(cek, iv, ct, tag[:4], aad)
			assert.ErrorIs(t, err, encoding.ErrDecryptionFailed)
		})
	}
}

func TestContentEncryption_Sizes(t *testing.T) {
	_, _, err := A128GCM.Encrypt(make([]byte, 15), make([]byte, 12), nil, nil)
	assert.ErrorIs(t, err, encoding.ErrBadKey)

	_, _, err = A128CBCHS256.Encrypt(make([]byte, 32), make([]byte, 12), nil, nil)
	assert.ErrorIs(t, err, encoding.ErrInvalidData)
}

func TestContentEncryptionByName(t *testing.T) {
	c, err := ContentEncryptionByName("A192GCM")
	require.NoError(t, err)
	assert.Same(t, A192GCM, c)

	_, err = ContentEncryptionByName("A128CTR")
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)

	def := DefaultContentEncryption()
	if HasAESHardware() {
		assert.Same(t, A256GCM, def)
	} else {
		assert.Same(t, A256CBCHS512, def)
	}
}

func TestKeyManagementByName(t *testing.T) {
	for _, k := range KeyManagements() {
		got, err := KeyManagementByName(k.Name)
		require.NoError(t, err)
		assert.Same(t, k, got)
	}

	assert.True(t, Dir.Direct())
	assert.True(t, ECDHES.Direct())
	assert.False(t, ECDHESA128KW.Direct())
	assert.False(t, RSAOAEP.Direct())
	assert.Equal(t, crypto.SHA256, RSAOAEP256.Hash)
	assert.Equal(t, 24, PBES2HS384A192KW.KeySize)

	_, err := KeyManagementByName("RSA-OAEP-1024")
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)
}

func TestSignatureByName(t *testing.T) {
	alg, err := SignatureByName("ES384")
	require.NoError(t, err)
	assert.Equal(t, "ES384", alg.JWA)

	_, err = SignatureByName("none")
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)
}

func TestHeader(t *testing.T) {
	h := Header{"alg": "PBES2-HS256+A128KW", "enc": "A128GCM", "kid": "k1", "p2c": 4096}
	h.SetBytes("p2s", []byte{1, 2, 3, 4, 5, 6, 7, 8})

	b64, err := h.Encode()
	require.NoError(t, err)

	parsed, err := ParseHeader(b64)
	require.NoError(t, err)
	assert.Equal(t, "PBES2-HS256+A128KW", parsed.Algorithm())
	assert.Equal(t, "A128GCM", parsed.Encryption())
	assert.Equal(t, "k1", parsed.KeyID())

	n, ok := parsed.Int("p2c")
	assert.True(t, ok)
	assert.Equal(t, 4096, n)
	assert.IsType(t, json.Number(""), parsed["p2c"])

	salt, err := parsed.Bytes("p2s")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, salt)

	_, err = parsed.Bytes("iv")
	assert.ErrorIs(t, err, encoding.ErrInvalidData)

	_, err = ParseHeader("bnVsbA")
	assert.ErrorIs(t, err, encoding.ErrInvalidData)
	_, err = ParseHeader("!!!")
	assert.ErrorIs(t, err, encoding.ErrInvalidData)
}

func TestMerge(t *testing.T) {
	m, err := Merge(Header{"alg": "A128KW"}, nil, Header{"enc": "A128GCM"})
	require.NoError(t, err)
	assert.Equal(t, Header{"alg": "A128KW", "enc": "A128GCM"}, m)

	_, err = Merge(Header{"alg": "A128KW"}, Header{"alg": "dir"})
	assert.ErrorIs(t, err, encoding.ErrInvalidData)

	c := m.Clone()
	c["kid"] = "x"
	assert.NotContains(t, m, "kid")
}
