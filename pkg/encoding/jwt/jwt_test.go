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
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jeremyhahn/go-keycodec/internal/testutil"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClaims() *jwt.RegisteredClaims {
	return NewClaims("test-issuer", "test-subject", []string{"test-audience"}, time.Hour)
}

func headerOf(t *testing.T, token string) map[string]interface{} {
	t.Helper()
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)
	return parsed.Header
}

func TestSign_DefaultAlgorithms(t *testing.T) {
	tests := []struct {
		fixture string
		alg     Algorithm
		sigLen  int
	}{
		{"rsa", RS256, 256},
		{"p256", ES256, 64},
		{"p384", ES384, 96},
		{"p521", ES512, 132},
		{"ed25519", EdDSA, 64},
		{"ed448", EdDSA, 114},
	}
	signer := NewSigner()
	verifier := NewVerifier()
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			key := testutil.Key(t, tt.fixture)

			token, err := signer.Sign(key, testClaims())
			require.NoError(t, err)
			assert.Equal(t, string(tt.alg), headerOf(t, token)["alg"])

			parts := strings.Split(token, ".")
			require.Len(t, parts, 3)
			sig, err := base64.RawURLEncoding.DecodeString(parts[2])
			require.NoError(t, err)
			assert.Len(t, sig, tt.sigLen)

			parsed, err := verifier.Verify(token, key.Public())
			require.NoError(t, err)
			assert.True(t, parsed.Valid)
			assert.Equal(t, string(tt.alg), parsed.Method.Alg())

			sub, err := parsed.Claims.GetSubject()
			require.NoError(t, err)
			assert.Equal(t, "test-subject", sub)
		})
	}
}

func TestSignWithAlgorithm_RSA(t *testing.T) {
	key := testutil.Key(t, "rsa")
	for _, alg := range []Algorithm{RS256, RS384, RS512, PS256, PS384, PS512} {
		t.Run(string(alg), func(t *testing.T) {
			token, err := NewSigner().SignWithAlgorithm(key, testClaims(), alg)
			require.NoError(t, err)

			parsed, err := NewVerifier().Verify(token, key.Public())
			require.NoError(t, err)
			assert.Equal(t, string(alg), parsed.Method.Alg())
		})
	}
}

func TestSignWithAlgorithm_CurveMismatch(t *testing.T) {
	_, err := NewSigner().SignWithAlgorithm(testutil.Key(t, "p256"), testClaims(), ES384)
	require.Error(t, err)
}

func TestSignWithAlgorithm_InvalidAlgorithm(t *testing.T) {
	_, err := NewSigner().SignWithAlgorithm(testutil.Key(t, "p256"), testClaims(), Algorithm("XX999"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSignatureAlgorithm)

	_, err = NewSigner().SignWithAlgorithm(testutil.Key(t, "p256"), testClaims(), Algorithm("none"))
	assert.ErrorIs(t, err, ErrInvalidSignatureAlgorithm)
}

func TestSign_UnsupportedKeyType(t *testing.T) {
	_, err := NewSigner().Sign(testutil.Key(t, "x25519"), testClaims())
	require.Error(t, err)

	_, err = NewSigner().Sign(testutil.Key(t, "p256").Public(), testClaims())
	require.Error(t, err, "public keys cannot sign")
}

func TestSign_WithKID(t *testing.T) {
	key := testutil.Key(t, "p256")
	token, err := NewSigner().SignWithKID(key, testClaims(), "test-key-id")
	require.NoError(t, err)

	kid, err := ExtractKID(token)
	require.NoError(t, err)
	assert.Equal(t, "test-key-id", kid)

	_, err = NewVerifier().Verify(token, key.Public())
	require.NoError(t, err)
}

func TestSignHMAC(t *testing.T) {
	secret := make([]byte, 64)
	_, err := rand.Read(secret)
	require.NoError(t, err)

	for _, alg := range []Algorithm{HS256, HS384, HS512} {
		t.Run(string(alg), func(t *testing.T) {
			token, err := NewSigner().SignHMAC(secret, testClaims(), alg)
			require.NoError(t, err)

			parsed, err := NewVerifier().VerifyHMAC(token, secret, nil)
			require.NoError(t, err)
			assert.Equal(t, string(alg), parsed.Method.Alg())

			wrong := append([]byte(nil), secret...)
			wrong[0] ^= 1
			_, err = NewVerifier().VerifyHMAC(token, wrong, nil)
			assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)
		})
	}
}

func TestSignHMAC_ShortSecret(t *testing.T) {
	_, err := NewSigner().SignHMAC(make([]byte, 16), testClaims(), HS256)
	require.Error(t, err)
}

func TestVerify_HMACTokenRejectsAsymmetricKey(t *testing.T) {
	secret := make([]byte, 32)
	token, err := NewSigner().SignHMAC(secret, testClaims(), HS256)
	require.NoError(t, err)

	_, err = NewVerifier().Verify(token, testutil.Key(t, "p256").Public())
	require.Error(t, err)
}

func TestVerify_ExpiredToken(t *testing.T) {
	key := testutil.Key(t, "ed25519")
	claims := &jwt.RegisteredClaims{
		Subject:   "test",
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token, err := NewSigner().Sign(key, claims)
	require.NoError(t, err)

	_, err = NewVerifier().Verify(token, key.Public())
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = NewVerifier().VerifyWithOptions(token, key.Public(), &VerifyOptions{Leeway: 2 * time.Hour})
	assert.NoError(t, err)
}

func TestVerify_InvalidSignature(t *testing.T) {
	key := testutil.Key(t, "p384")
	token, err := NewSigner().Sign(key, testClaims())
	require.NoError(t, err)

	other, err := keys.GenerateECDSA(rand.Reader, keys.P384)
	require.NoError(t, err)
	_, err = NewVerifier().Verify(token, other.Public())
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"admin"}`)) + "." + parts[2]
	_, err = NewVerifier().Verify(tampered, key.Public())
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestVerify_NilKey(t *testing.T) {
	_, err := NewVerifier().Verify("a.b.c", nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestVerify_MalformedToken(t *testing.T) {
	_, err := NewVerifier().Verify("not.a.valid.token", testutil.Key(t, "p256").Public())
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenMalformed)
}

func TestNewClaims(t *testing.T) {
	before := time.Now().Add(-time.Second)
	c := NewClaims("iss", "sub", []string{"a", "b"}, 10*time.Minute)

	_, err := uuid.Parse(c.ID)
	require.NoError(t, err, "jti must be a UUID")
	assert.Equal(t, "iss", c.Issuer)
	assert.Equal(t, "sub", c.Subject)
	assert.Equal(t, jwt.ClaimStrings{"a", "b"}, c.Audience)
	assert.True(t, c.IssuedAt.After(before))
	assert.WithinDuration(t, c.IssuedAt.Add(10*time.Minute), c.ExpiresAt.Time, time.Second)

	other := NewClaims("iss", "sub", nil, 0)
	assert.NotEqual(t, c.ID, other.ID)
	assert.Nil(t, other.ExpiresAt)
	assert.Nil(t, other.Audience)
}

func TestCustomClaims(t *testing.T) {
	type customClaims struct {
		Role string `json:"role"`
		jwt.RegisteredClaims
	}
	key := testutil.Key(t, "ed448")
	claims := customClaims{Role: "admin", RegisteredClaims: *NewClaims("iss", "sub", nil, time.Hour)}

	token, err := NewSigner().Sign(key, claims)
	require.NoError(t, err)

	parsed, err := NewVerifier().Verify(token, key.Public())
	require.NoError(t, err)
	mc, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "admin", mc["role"])
	assert.Equal(t, claims.ID, mc["jti"])
}

func TestVerifyWithOptions(t *testing.T) {
	key := testutil.Key(t, "p256")
	token, err := NewSigner().Sign(key, NewClaims("issuer-a", "subject-a", []string{"aud-1", "aud-2"}, time.Hour))
	require.NoError(t, err)
	pub := key.Public()

	tests := []struct {
		name string
		opts *VerifyOptions
		want error
	}{
		{"match all", &VerifyOptions{ExpectedIssuer: "issuer-a", ExpectedAudience: "aud-2", ExpectedSubject: "subject-a", RequireExpiry: true}, nil},
		{"wrong issuer", &VerifyOptions{ExpectedIssuer: "issuer-b"}, jwt.ErrTokenInvalidIssuer},
		{"wrong audience", &VerifyOptions{ExpectedAudience: "aud-3"}, jwt.ErrTokenInvalidAudience},
		{"wrong subject", &VerifyOptions{ExpectedSubject: "subject-b"}, jwt.ErrTokenInvalidSubject},
		{"allowed algorithm", &VerifyOptions{Algorithms: []Algorithm{ES256, EdDSA}}, nil},
		{"disallowed algorithm", &VerifyOptions{Algorithms: []Algorithm{RS256}}, jwt.ErrTokenSignatureInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVerifier().VerifyWithOptions(token, pub, tt.opts)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifyWithOptions_RequireExpiry(t *testing.T) {
	key := testutil.Key(t, "ed25519")
	token, err := NewSigner().Sign(key, NewClaims("iss", "sub", nil, 0))
	require.NoError(t, err)

	_, err = NewVerifier().Verify(token, key.Public())
	require.NoError(t, err)

	_, err = NewVerifier().VerifyWithOptions(token, key.Public(), &VerifyOptions{RequireExpiry: true})
	assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)
}

func TestExtractKID(t *testing.T) {
	key := testutil.Key(t, "ed25519")
	token, err := NewSigner().Sign(key, testClaims())
	require.NoError(t, err)

	kid, err := ExtractKID(token)
	require.NoError(t, err)
	assert.Empty(t, kid)

	_, err = ExtractKID("malformed")
	require.Error(t, err)
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want Algorithm
	}{
		{"RS256", RS256}, {"rs384", RS384}, {"Rs512", RS512},
		{"ps256", PS256}, {"PS384", PS384}, {"PS512", PS512},
		{"es256", ES256}, {"ES384", ES384}, {"ES512", ES512},
		{"EdDSA", EdDSA}, {"eddsa", EdDSA}, {"EDDSA", EdDSA},
		{"hs256", HS256}, {"HS384", HS384}, {"HS512", HS512},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "none", "RS1", "ES256K"} {
		_, err := ParseAlgorithm(bad)
		assert.True(t, errors.Is(err, ErrInvalidSignatureAlgorithm), bad)
	}
}
