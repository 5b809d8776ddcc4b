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
	"crypto/dsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/jeremyhahn/go-keycodec/internal/testutil"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	msg := []byte("sign me")
	tests := []struct {
		alg *Algorithm
		key string
	}{
		{SHA1WithRSA, "rsa"},
		{SHA224WithRSA, "rsa"},
		{SHA256WithRSA, "rsa"},
		{SHA384WithRSA, "rsa"},
		{SHA512WithRSA, "rsa"},
		{SHA256WithRSAPSS, "rsa"},
		{SHA384WithRSAPSS, "rsa"},
		{SHA512WithRSAPSS, "rsa"},
		{ECDSAWithSHA1, "p256"},
		{ECDSAWithSHA224, "p384"},
		{ECDSAWithSHA256, "p256"},
		{ECDSAWithSHA384, "p384"},
		{ECDSAWithSHA512, "p521"},
		{DSAWithSHA1, "dsa"},
		{DSAWithSHA224, "dsa"},
		{DSAWithSHA256, "dsa"},
		{PureEd25519, "ed25519"},
		{PureEd448, "ed448"},
		{EdDSA, "ed25519"},
		{EdDSA, "ed448"},
	}
	for _, tt := range tests {
		t.Run(tt.alg.Name+"/"+tt.key, func(t *testing.T) {
			k := testutil.Key(t, tt.key)
			for _, random := range []bool{true, false} {
				r := rand.Reader
				if !random {
					r = nil
				}
				sig, err := tt.alg.Sign(r, k, msg)
				require.NoError(t, err)

				require.NoError(t, tt.alg.Verify(k, msg, sig))
				require.NoError(t, tt.alg.Verify(k.Public(), msg, sig))

				err = tt.alg.Verify(k.Public(), []byte("sign you"), sig)
				assert.ErrorIs(t, err, encoding.ErrBadSignature)

				tampered := append([]byte(nil), sig...)
				tampered[len(tampered)-1] ^= 0x01
				err = tt.alg.Verify(k.Public(), msg, tampered)
				assert.ErrorIs(t, err, encoding.ErrBadSignature)
			}
		})
	}
}

func TestSign_Errors(t *testing.T) {
	msg := []byte("m")
	_, err := SHA256WithRSA.Sign(rand.Reader, testutil.Key(t, "p256"), msg)
	assert.ErrorIs(t, err, ErrKeyMismatch)

	_, err = SHA256WithRSA.Sign(rand.Reader, testutil.Key(t, "rsa").Public(), msg)
	assert.ErrorIs(t, err, ErrPrivateKeyRequired)

	_, err = PureEd25519.Sign(nil, testutil.Key(t, "ed448"), msg)
	assert.ErrorIs(t, err, ErrKeyMismatch)

	_, err = HS256.Sign(nil, testutil.Key(t, "rsa"), msg)
	assert.ErrorIs(t, err, ErrKeyMismatch)

	_, err = ECDSAWithSHA256.SignDigest(nil, testutil.Key(t, "p256"), []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidSignerOpts)

	err = ECDSAWithSHA256.Verify(testutil.Key(t, "p256"), msg, nil)
	assert.ErrorIs(t, err, encoding.ErrBadSignature)

	err = PureEd25519.Verify(testutil.Key(t, "ed25519"), msg, []byte("short"))
	assert.ErrorIs(t, err, encoding.ErrBadSignature)
}

func TestECDSA_P192(t *testing.T) {
	k, err := keys.GenerateECDSA(rand.Reader, keys.P192)
	require.NoError(t, err)
	msg := []byte("generic curve")

	alg, err := DefaultFor(k)
	require.NoError(t, err)
	assert.Equal(t, ECDSAWithSHA256, alg)

	a, err := alg.Sign(nil, k, msg)
	require.NoError(t, err)
	b, err := alg.Sign(nil, k, msg)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := alg.Sign(rand.Reader, k, msg)
	require.NoError(t, err)
	for _, sig := range [][]byte{a, c} {
		require.NoError(t, alg.Verify(k.Public(), msg, sig))
		raw, err := RawSignature(k, sig)
		require.NoError(t, err)
		assert.Len(t, raw, 48)
	}
	err = alg.Verify(k.Public(), []byte("other"), a)
	assert.ErrorIs(t, err, encoding.ErrBadSignature)
}

func TestDSA_Deterministic(t *testing.T) {
	k := testutil.Key(t, "dsa").(*keys.DSAKey)
	msg := []byte("deterministic")

	a, err := DSAWithSHA256.Sign(nil, k, msg)
	require.NoError(t, err)
	b, err := DSAWithSHA256.Sign(nil, k, msg)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := DSAWithSHA256.Sign(rand.Reader, k, msg)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	// crypto/dsa truncates the digest to the byte length of q, which
	// matches the bit truncation for a 160-bit q.
	for _, sig := range [][]byte{a, c} {
		elems, err := der.DecodeSequence(sig)
		require.NoError(t, err)
		rs, err := der.Ints(elems)
		require.NoError(t, err)
		digest := sha256.Sum256(msg)
		assert.True(t, dsa.Verify(k.PublicKey(), digest[:], rs[0], rs[1]))
	}
}

func TestDSA_VerifiesCryptoDSA(t *testing.T) {
	k := testutil.Key(t, "dsa").(*keys.DSAKey)
	digest := sha256.Sum256([]byte("from crypto/dsa"))
	r, s, err := dsa.Sign(rand.Reader, k.PrivateKey(), digest[:20])
	require.NoError(t, err)
	sig, err := der.EncodeSequence(der.Integer(r), der.Integer(s))
	require.NoError(t, err)
	require.NoError(t, DSAWithSHA256.VerifyDigest(k.Public(), digest[:], sig))
}

func TestPKCS1v15_DigestInfo(t *testing.T) {
	k := testutil.Key(t, "rsa").(*keys.RSAKey)
	msg := []byte("digest info")
	digest := sha256.Sum256(msg)

	// crypto/rsa signatures verify with the manual implementation.
	sig, err := rsa.SignPKCS1v15(rand.Reader, k.PrivateKey(), crypto.SHA256, digest[:])
	require.NoError(t, err)
	require.NoError(t, SHA256WithRSA.Verify(k.Public(), msg, sig))

	hash, got, err := RecoverDigestInfo(k.PublicKey(), sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.SHA256, hash)
	assert.Equal(t, digest[:], got)

	// The DigestInfo names the digest, so SHA-384 verification rejects it.
	d384, err := SHA384WithRSA.Digest(msg)
	require.NoError(t, err)
	err = SHA384WithRSA.VerifyDigest(k.Public(), d384, sig)
	assert.ErrorIs(t, err, encoding.ErrBadSignature)

	// Our signatures verify with crypto/rsa.
	ours, err := SHA256WithRSA.Sign(nil, k, msg)
	require.NoError(t, err)
	require.NoError(t, rsa.VerifyPKCS1v15(k.PublicKey(), crypto.SHA256, digest[:], ours))
	assert.Equal(t, sig, ours, "PKCS #1 v1.5 is deterministic")
}

// DigestInfo without NULL parameters is accepted on verify.
func TestPKCS1v15_AbsentNullParameters(t *testing.T) {
	k := testutil.Key(t, "rsa").(*keys.RSAKey)
	digest := sha256.Sum256([]byte("no null"))

	info, err := der.EncodeSequence(der.Sequence(der.OID(der.OIDSHA256)), der.OctetString(digest[:]))
	require.NoError(t, err)

	size := (k.N().BitLen() + 7) / 8
	em := make([]byte, size)
	em[1] = 0x01
	for i := 2; i < size-len(info)-1; i++ {
		em[i] = 0xff
	}
	copy(em[size-len(info):], info)
	m := new(big.Int).SetBytes(em)
	sig := new(big.Int).Exp(m, k.D(), k.N()).FillBytes(make([]byte, size))

	require.NoError(t, SHA256WithRSA.VerifyDigest(k.Public(), digest[:], sig))
}

func TestDigestInfo(t *testing.T) {
	digest := make([]byte, 32)
	b, err := DigestInfo(crypto.SHA256, digest)
	require.NoError(t, err)
	assert.Equal(t, "3031300d060960864801650304020105000420", hex.EncodeToString(b[:19]))

	h, d, err := ParseDigestInfo(b)
	require.NoError(t, err)
	assert.Equal(t, crypto.SHA256, h)
	assert.Equal(t, digest, d)
}

func TestRawSignature(t *testing.T) {
	for _, name := range []string{"p256", "p384", "p521", "dsa"} {
		t.Run(name, func(t *testing.T) {
			k := testutil.Key(t, name)
			alg, err := DefaultFor(k)
			require.NoError(t, err)
			sig, err := alg.Sign(rand.Reader, k, []byte("raw"))
			require.NoError(t, err)

			raw, err := RawSignature(k, sig)
			require.NoError(t, err)
			assert.Len(t, raw, 2*scalarSize(k))

			back, err := DERSignature(k.Public(), raw)
			require.NoError(t, err)
			assert.Equal(t, sig, back)

			_, err = DERSignature(k, raw[1:])
			assert.ErrorIs(t, err, encoding.ErrBadSignature)
		})
	}
	ed := testutil.Key(t, "ed25519")
	raw, err := RawSignature(ed, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, raw)
}

func TestHMAC(t *testing.T) {
	secret := make([]byte, 64)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	msg := []byte("mac me")

	for _, alg := range []*Algorithm{HS256, HS384, HS512} {
		t.Run(alg.Name, func(t *testing.T) {
			tag, err := alg.MAC(secret, msg)
			require.NoError(t, err)
			assert.Len(t, tag, alg.Hash.Size())
			require.NoError(t, alg.VerifyMAC(secret, msg, tag))

			tag[0] ^= 1
			assert.ErrorIs(t, alg.VerifyMAC(secret, msg, tag), encoding.ErrBadMAC)

			_, err = alg.MAC(secret[:alg.Hash.Size()-1], msg)
			assert.ErrorIs(t, err, encoding.ErrBadKey)
		})
	}
	_, err = SHA256WithRSA.MAC(secret, msg)
	assert.ErrorIs(t, err, ErrKeyMismatch)
}
