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
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/jeremyhahn/go-keycodec/internal/testutil"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_OIDBijection(t *testing.T) {
	type id struct {
		scheme Scheme
		hash   crypto.Hash
		curve  keys.EdCurve
	}
	seenID := map[id]string{}
	seenDER := map[string]string{}

	for _, a := range Algorithms() {
		if a.OID == nil {
			continue
		}
		k := id{a.Scheme, a.Hash, a.Curve}
		prev, dup := seenID[k]
		assert.False(t, dup, "%s and %s share %v", a.Name, prev, k)
		seenID[k] = a.Name

		b, err := a.AlgorithmIdentifier()
		require.NoError(t, err, a.Name)
		prev, dup = seenDER[string(b)]
		assert.False(t, dup, "%s and %s share an AlgorithmIdentifier", a.Name, prev)
		seenDER[string(b)] = a.Name

		got, err := ByAlgorithmIdentifier(b)
		require.NoError(t, err, a.Name)
		assert.Same(t, a, got)
	}
	assert.Len(t, seenID, 18)
}

func TestRegistry_NamesAreUnique(t *testing.T) {
	names := map[string]bool{}
	jwas := map[string]bool{}
	for _, a := range Algorithms() {
		assert.False(t, names[a.Name], a.Name)
		names[a.Name] = true
		if a.JWA != "" {
			assert.False(t, jwas[a.JWA], a.JWA)
			jwas[a.JWA] = true
		}
		got, err := ByName(a.Name)
		require.NoError(t, err)
		assert.Same(t, a, got)
	}
	assert.ElementsMatch(t, []string{
		"RS256", "RS384", "RS512", "PS256", "PS384", "PS512",
		"ES256", "ES384", "ES512", "EdDSA", "HS256", "HS384", "HS512",
	}, keysOf(jwas))
}

func keysOf(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestByJWA(t *testing.T) {
	a, err := ByJWA("ES384")
	require.NoError(t, err)
	assert.Same(t, ECDSAWithSHA384, a)
	assert.Same(t, keys.P384, a.JWACurve)

	a, err = ByJWA("EdDSA")
	require.NoError(t, err)
	assert.Nil(t, a.OID)

	_, err = ByJWA("ES256K")
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)
	_, err = ByJWA("none")
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)
}

func TestByOID(t *testing.T) {
	a, err := ByOID(der.OIDECDSAWithSHA256)
	require.NoError(t, err)
	assert.Same(t, ECDSAWithSHA256, a)

	_, err = ByOID(der.OIDRSASSAPSS)
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)
	_, err = ByOID(der.OIDMD5WithRSA)
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)
}

// crypto/x509 emits the same AlgorithmIdentifier bytes, including the
// RSASSA-PSS parameters.
func TestAlgorithmIdentifier_MatchesCryptoX509(t *testing.T) {
	tests := []struct {
		alg  *Algorithm
		std  x509.SignatureAlgorithm
		want string
	}{
		{SHA256WithRSA, x509.SHA256WithRSA, "300d06092a864886f70d01010b0500"},
		{SHA256WithRSAPSS, x509.SHA256WithRSAPSS, ""},
		{SHA384WithRSAPSS, x509.SHA384WithRSAPSS, ""},
		{SHA512WithRSAPSS, x509.SHA512WithRSAPSS, ""},
		{ECDSAWithSHA256, x509.ECDSAWithSHA256, "300a06082a8648ce3d040302"},
		{ECDSAWithSHA384, x509.ECDSAWithSHA384, "300a06082a8648ce3d040303"},
		{PureEd25519, x509.PureEd25519, "300506032b6570"},
	}
	for _, tt := range tests {
		t.Run(tt.alg.Name, func(t *testing.T) {
			b, err := tt.alg.AlgorithmIdentifier()
			require.NoError(t, err)
			if tt.want != "" {
				assert.Equal(t, tt.want, hex.EncodeToString(b))
			}

			keyName := map[Scheme]string{SchemePKCS1v15: "rsa", SchemePSS: "rsa", SchemeECDSA: "p256", SchemeEdDSA: "ed25519"}[tt.alg.Scheme]
			cert := stdCertificate(t, testutil.Key(t, keyName), tt.std)
			elems, err := der.DecodeSequence(cert.Raw)
			require.NoError(t, err)
			assert.Equal(t, elems[1].Raw, b, "outer signatureAlgorithm")

			got, err := ByAlgorithmIdentifier(elems[1].Raw)
			require.NoError(t, err)
			assert.Same(t, tt.alg, got)
		})
	}
}

func TestByAlgorithmIdentifier_Errors(t *testing.T) {
	pss := func(hash, mgf crypto.Hash) []byte {
		hid, err := hashIdentifier(hash)
		require.NoError(t, err)
		mid, err := hashIdentifier(mgf)
		require.NoError(t, err)
		b, err := der.EncodeSequence(der.OID(der.OIDRSASSAPSS), der.Sequence(
			der.Explicit(0, hid),
			der.Explicit(1, der.Sequence(der.OID(der.OIDMGF1), mid)),
		))
		require.NoError(t, err)
		return b
	}

	a, err := ByAlgorithmIdentifier(pss(crypto.SHA384, crypto.SHA384))
	require.NoError(t, err)
	assert.Same(t, SHA384WithRSAPSS, a)

	_, err = ByAlgorithmIdentifier(pss(crypto.SHA256, crypto.SHA1))
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)

	defaults, err := der.EncodeSequence(der.OID(der.OIDRSASSAPSS), der.Sequence())
	require.NoError(t, err)
	_, err = ByAlgorithmIdentifier(defaults)
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm, "SHA-1 PSS is not registered")

	bare, err := der.EncodeSequence(der.OID(der.OIDRSASSAPSS))
	require.NoError(t, err)
	_, err = ByAlgorithmIdentifier(bare)
	assert.ErrorIs(t, err, encoding.ErrBadASN1)

	withParams, err := der.EncodeSequence(der.OID(der.OIDECDSAWithSHA256), der.Int(1))
	require.NoError(t, err)
	_, err = ByAlgorithmIdentifier(withParams)
	assert.ErrorIs(t, err, encoding.ErrBadASN1)

	noNull, err := der.EncodeSequence(der.OID(der.OIDSHA256WithRSA))
	require.NoError(t, err)
	a, err = ByAlgorithmIdentifier(noNull)
	require.NoError(t, err, "absent NULL is tolerated")
	assert.Same(t, SHA256WithRSA, a)

	_, err = ByAlgorithmIdentifier([]byte{0x30, 0x00})
	assert.ErrorIs(t, err, encoding.ErrBadASN1)
}

func TestHashOID(t *testing.T) {
	for _, h := range []crypto.Hash{crypto.SHA1, crypto.SHA224, crypto.SHA256, crypto.SHA384, crypto.SHA512} {
		oid, err := HashOID(h)
		require.NoError(t, err)
		got, err := HashByOID(oid)
		require.NoError(t, err)
		assert.Equal(t, h, got, fmt.Sprint(h))
	}
	_, err := HashOID(crypto.RIPEMD160)
	assert.ErrorIs(t, err, ErrInvalidHashFunction)
}

func TestDefaultFor(t *testing.T) {
	tests := map[string]*Algorithm{
		"rsa":     SHA256WithRSA,
		"dsa":     DSAWithSHA256,
		"p256":    ECDSAWithSHA256,
		"p384":    ECDSAWithSHA384,
		"p521":    ECDSAWithSHA512,
		"ed25519": PureEd25519,
		"ed448":   PureEd448,
	}
	for name, want := range tests {
		got, err := DefaultFor(testutil.Key(t, name))
		require.NoError(t, err, name)
		assert.Same(t, want, got, name)
	}
	_, err := DefaultFor(testutil.Key(t, "x25519"))
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)
}
