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

package jwt

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jeremyhahn/go-keycodec/internal/testutil"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredMethods(t *testing.T) {
	for _, alg := range []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512", "EdDSA", "HS256", "HS384", "HS512"} {
		m := jwt.GetSigningMethod(alg)
		require.NotNil(t, m, alg)
		sm, ok := m.(*SigningMethod)
		require.True(t, ok, "%s should be served by the registry", alg)
		assert.Equal(t, alg, sm.Alg())
	}
	assert.Nil(t, jwt.GetSigningMethod("ES256K"))
}

func TestNewSigningMethod(t *testing.T) {
	m, err := NewSigningMethod("PS384")
	require.NoError(t, err)
	assert.Equal(t, "PS384", m.Alg())
	assert.Same(t, signing.SHA384WithRSAPSS, m.Algorithm())

	_, err = NewSigningMethod("none")
	assert.ErrorIs(t, err, ErrInvalidSignatureAlgorithm)
	_, err = NewSigningMethod("RS1")
	assert.ErrorIs(t, err, ErrInvalidSignatureAlgorithm)
}

func TestSigningMethod_AcceptsCryptoKeys(t *testing.T) {
	ec := testutil.Key(t, "p256").(*keys.ECDSAKey)
	m, err := NewSigningMethod("ES256")
	require.NoError(t, err)

	sig, err := m.Sign("header.payload", ec.PrivateKey())
	require.NoError(t, err)
	assert.Len(t, sig, 64)
	require.NoError(t, m.Verify("header.payload", sig, ec.PublicKey()))
	require.NoError(t, m.Verify("header.payload", sig, ec.Public()))

	err = m.Verify("header.payloaX", sig, ec.PublicKey())
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestSigningMethod_InvalidKey(t *testing.T) {
	es, err := NewSigningMethod("ES256")
	require.NoError(t, err)
	hs, err := NewSigningMethod("HS256")
	require.NoError(t, err)

	tests := []struct {
		name string
		m    *SigningMethod
		key  interface{}
	}{
		{"nil", es, nil},
		{"secret for ES256", es, []byte("0123456789abcdef0123456789abcdef")},
		{"string", es, "key"},
		{"asymmetric key for HS256", hs, testutil.Key(t, "p256")},
		{"string secret for HS256", hs, "0123456789abcdef0123456789abcdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.m.Sign("header.payload", tt.key)
			assert.ErrorIs(t, err, ErrInvalidKey)
			err = tt.m.Verify("header.payload", make([]byte, 64), tt.key)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestSigningMethod_Ed448(t *testing.T) {
	key := testutil.Key(t, "ed448").(*keys.EdDSAKey)
	m := jwt.GetSigningMethod("EdDSA")

	sig, err := m.Sign("header.payload", key.CryptoPrivateKey())
	require.NoError(t, err)
	assert.Len(t, sig, 114)
	require.NoError(t, m.Verify("header.payload", sig, key.CryptoPublicKey()))

	ed25519Key := testutil.Key(t, "ed25519")
	assert.Error(t, m.Verify("header.payload", sig, ed25519Key.Public()))
}

// Tokens produced by the golang-jwt built-in methods must verify through the
// registry, and the reverse.
func TestSigningMethod_InteropWithBuiltins(t *testing.T) {
	rsaKey := testutil.Key(t, "rsa").(*keys.RSAKey)
	p521 := testutil.Key(t, "p521").(*keys.ECDSAKey)
	ed := testutil.Key(t, "ed25519")

	tests := []struct {
		builtin jwt.SigningMethod
		priv    interface{}
		pub     interface{}
		key     keys.Key
	}{
		{jwt.SigningMethodRS256, rsaKey.PrivateKey(), rsaKey.PublicKey(), rsaKey},
		{jwt.SigningMethodPS512, rsaKey.PrivateKey(), rsaKey.PublicKey(), rsaKey},
		{jwt.SigningMethodES512, p521.PrivateKey(), p521.PublicKey(), p521},
		{jwt.SigningMethodEdDSA, ed.CryptoPrivateKey(), ed.CryptoPublicKey().(ed25519.PublicKey), ed},
	}
	for _, tt := range tests {
		t.Run(tt.builtin.Alg(), func(t *testing.T) {
			claims := NewClaims("interop", "sub", nil, time.Hour)

			theirs, err := jwt.NewWithClaims(tt.builtin, claims).SignedString(tt.priv)
			require.NoError(t, err)
			_, err = NewVerifier().Verify(theirs, tt.key.Public())
			require.NoError(t, err)

			ours, err := NewSigner().SignWithAlgorithm(tt.key, claims, Algorithm(tt.builtin.Alg()))
			require.NoError(t, err)
			i := strings.LastIndexByte(ours, '.')
			sig, err := base64.RawURLEncoding.DecodeString(ours[i+1:])
			require.NoError(t, err)
			require.NoError(t, tt.builtin.Verify(ours[:i], sig, tt.pub))
		})
	}
}

func TestSigningMethod_StdKeyTypes(t *testing.T) {
	rsaKey := testutil.Key(t, "rsa").(*keys.RSAKey)

	token, err := jwt.NewWithClaims(jwt.GetSigningMethod("RS384"), NewClaims("std", "sub", nil, time.Hour)).SignedString(rsaKey.PrivateKey())
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return rsaKey.PublicKey(), nil })
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
}
