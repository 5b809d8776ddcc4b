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

package jwk

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	lestrratjwk "github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 7517 Appendix A.2, first key
const rfc7517ECPrivate = `{"kty":"EC","crv":"P-256",
 "x":"MKBCTNIcKUSDii11ySs3526iDZ8AiTo7Tu6KPAqv7D4",
 "y":"4Etl6SRW2YiLUrN5vfvVHuhp7x8PxltmWWlbbM4IFyM",
 "d":"870MB6gfuTJ4HtUnUvYMyJpr5eUZNP4Bk43bVdj3eAE",
 "use":"enc","kid":"1"}`

// RFC 8037 Appendix A.1
const rfc8037Ed25519 = `{"kty":"OKP","crv":"Ed25519",
 "d":"nWGxne_9WmC6hEr0kuwsxERJxWl7MmkZcDusAxyuf2A",
 "x":"11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo"}`

func generated(t *testing.T) []keys.Key {
	t.Helper()
	rsaKey, err := keys.GenerateRSA(rand.Reader, 2048)
	require.NoError(t, err)
	out := []keys.Key{rsaKey}
	for _, c := range []*keys.Curve{keys.P256, keys.P384, keys.P521} {
		k, err := keys.GenerateECDSA(rand.Reader, c)
		require.NoError(t, err)
		out = append(out, k)
	}
	for _, c := range []keys.EdCurve{keys.Ed25519, keys.Ed448} {
		k, err := keys.GenerateEdDSA(rand.Reader, c)
		require.NoError(t, err)
		out = append(out, k)
	}
	for _, c := range []keys.XCurve{keys.X25519, keys.X448} {
		k, err := keys.GenerateXDH(rand.Reader, c)
		require.NoError(t, err)
		out = append(out, k)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	for _, k := range generated(t) {
		t.Run(k.Algorithm().String(), func(t *testing.T) {
			for _, variant := range []keys.Key{k, k.Public()} {
				j, err := FromKey(variant)
				require.NoError(t, err)
				assert.Equal(t, variant.IsPrivate(), j.IsPrivate())

				data, err := j.Marshal()
				require.NoError(t, err)
				assert.True(t, Check(data))

				parsed, err := Unmarshal(data)
				require.NoError(t, err)
				back, err := parsed.Key()
				require.NoError(t, err)
				assert.True(t, variant.Equal(back))
			}
		})
	}
}

func TestRFC7517_ECKey(t *testing.T) {
	j, err := Unmarshal([]byte(rfc7517ECPrivate))
	require.NoError(t, err)
	assert.Equal(t, "enc", j.Use)
	assert.Equal(t, "1", j.Kid)

	k, err := j.Key()
	require.NoError(t, err)
	ec := k.(*keys.ECDSAKey)
	assert.Equal(t, keys.P256, ec.Curve())

	again, err := FromKey(k)
	require.NoError(t, err)
	assert.Equal(t, j.X, again.X)
	assert.Equal(t, j.Y, again.Y)
	assert.Equal(t, j.D, again.D)
}

func TestRFC8037_Ed25519(t *testing.T) {
	j, err := Unmarshal([]byte(rfc8037Ed25519))
	require.NoError(t, err)
	k, err := j.Key()
	require.NoError(t, err)

	priv, err := j.ToPrivateKey()
	require.NoError(t, err)
	sig := ed25519.Sign(priv.(ed25519.PrivateKey), []byte("Example of Ed25519 signing"))
	pub, err := j.ToPublicKey()
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(pub.(ed25519.PublicKey), []byte("Example of Ed25519 signing"), sig))
	assert.Equal(t, keys.AlgorithmEdDSA, k.Algorithm())
}

func TestFixedWidthCoordinates(t *testing.T) {
	// find a P-521 key whose x has a leading zero byte to check padding
	for range 512 {
		k, err := keys.GenerateECDSA(rand.Reader, keys.P521)
		require.NoError(t, err)
		if k.X().BitLen() > 8*65 {
			continue
		}
		j, err := FromKey(k)
		require.NoError(t, err)
		x, err := unb64("x", j.X)
		require.NoError(t, err)
		assert.Len(t, x, 66)
		return
	}
	t.Skip("no short coordinate generated")
}

func TestUnmarshal_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
		err  error
	}{
		{"not json", `{"kty":`, encoding.ErrInvalidData},
		{"no kty", `{"n":"AQAB","e":"AQAB"}`, encoding.ErrInvalidData},
		{"unknown kty", `{"kty":"DSA","y":"AQ"}`, encoding.ErrUnsupportedAlgorithm},
		{"rsa missing e", `{"kty":"RSA","n":"AQAB"}`, encoding.ErrInvalidData},
		{"ec missing y", `{"kty":"EC","crv":"P-256","x":"AQ"}`, encoding.ErrInvalidData},
		{"okp with y", `{"kty":"OKP","crv":"Ed25519","x":"AQ","y":"AQ"}`, encoding.ErrInvalidData},
		{"oct with d", `{"kty":"oct","k":"AQ","d":"AQ"}`, encoding.ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.json))
			assert.ErrorIs(t, err, tt.err)
			assert.False(t, Check([]byte(tt.json)))
		})
	}
	assert.False(t, Check([]byte("-----BEGIN PUBLIC KEY-----")))
}

func TestKey_Rejects(t *testing.T) {
	tests := []struct {
		name string
		jwk  JWK
		err  error
	}{
		{"P-224 not registered", JWK{Kty: "EC", Crv: "P-224", X: "AA", Y: "AA"}, encoding.ErrUnsupportedAlgorithm},
		{"short x", JWK{Kty: "EC", Crv: "P-256", X: "AQ", Y: "AQ"}, encoding.ErrBadKey},
		{"unknown okp curve", JWK{Kty: "OKP", Crv: "X9", X: "AQ"}, encoding.ErrUnsupportedAlgorithm},
		{"short ed25519", JWK{Kty: "OKP", Crv: "Ed25519", X: "AQ"}, encoding.ErrBadKey},
		{"oct", JWK{Kty: "oct", K: "AQ"}, encoding.ErrUnsupportedAlgorithm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.jwk.Key()
			assert.ErrorIs(t, err, tt.err)
		})
	}

	// x not matching d
	a, _ := keys.GenerateXDH(rand.Reader, keys.X25519)
	b, _ := keys.GenerateXDH(rand.Reader, keys.X25519)
	ja, _ := FromKey(a)
	jb, _ := FromKey(b)
	ja.X = jb.X
	_, err := ja.Key()
	assert.ErrorIs(t, err, encoding.ErrBadKey)
}

func TestRSA_WithoutPrimes(t *testing.T) {
	k, err := keys.GenerateRSA(rand.Reader, 2048)
	require.NoError(t, err)
	j, err := FromKey(k)
	require.NoError(t, err)
	j.P, j.Q, j.DP, j.DQ, j.QI = "", "", "", "", ""

	back, err := j.Key()
	require.NoError(t, err)
	assert.True(t, k.Equal(back) || k.Public().Equal(back.Public()))
	assert.True(t, back.IsPrivate())
}

func TestCryptoConversions(t *testing.T) {
	rsaPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	j, err := FromPrivateKey(rsaPriv)
	require.NoError(t, err)
	got, err := j.ToPrivateKey()
	require.NoError(t, err)
	assert.True(t, rsaPriv.Equal(got))

	_, err = FromPrivateKey(&rsaPriv.PublicKey)
	assert.ErrorIs(t, err, encoding.ErrInvalidPrivateKey)

	pubJWK, err := FromPublicKey(rsaPriv)
	require.NoError(t, err)
	assert.False(t, pubJWK.IsPrivate())
	_, err = pubJWK.ToPrivateKey()
	assert.ErrorIs(t, err, encoding.ErrInvalidPrivateKey)

	x, err := ecdh.X25519().GenerateKey(rand.Reader)
	require.NoError(t, err)
	xj, err := FromPrivateKey(x)
	require.NoError(t, err)
	assert.Equal(t, "X25519", xj.Crv)
	xback, err := xj.ToPrivateKey()
	require.NoError(t, err)
	assert.True(t, x.Equal(xback.(*ecdh.PrivateKey)))

	_, edPriv, err := ed448.GenerateKey(rand.Reader)
	require.NoError(t, err)
	ej, err := FromPrivateKey(edPriv)
	require.NoError(t, err)
	d, err := unb64("d", ej.D)
	require.NoError(t, err)
	assert.Len(t, d, 57)

	_, err = FromKey(nil)
	assert.ErrorIs(t, err, encoding.ErrInvalidData)
	dh, err := keys.GenerateDH(rand.Reader, keys.Oakley768)
	require.NoError(t, err)
	_, err = FromKey(dh)
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)
}

func TestSymmetric(t *testing.T) {
	j, err := FromSymmetricKey([]byte("secret-key-material"), "HS256")
	require.NoError(t, err)
	assert.True(t, j.IsSymmetric())
	assert.True(t, j.IsPrivate())
	k, err := j.ToSymmetricKey()
	require.NoError(t, err)
	assert.Equal(t, "secret-key-material", string(k))

	_, err = FromSymmetricKey(nil, "")
	assert.ErrorIs(t, err, encoding.ErrInvalidData)
	_, err = (&JWK{Kty: "RSA"}).ToSymmetricKey()
	assert.ErrorIs(t, err, encoding.ErrInvalidData)
}

func TestPublicProjection(t *testing.T) {
	k, err := keys.GenerateRSA(rand.Reader, 2048)
	require.NoError(t, err)
	j, err := FromKey(k)
	require.NoError(t, err)
	j.KeyOps = []string{"sign", "verify"}

	pub := j.Public()
	assert.True(t, pub.IsPublic())
	assert.Empty(t, pub.P)
	assert.Equal(t, []string{"verify"}, pub.KeyOps)
	assert.NotEmpty(t, j.D, "original is untouched")
}

func TestInteropWithJWX(t *testing.T) {
	ecPriv, err := ecdsa.GenerateKey(keys.P384.Elliptic(), rand.Reader)
	require.NoError(t, err)

	theirs, err := lestrratjwk.FromRaw(ecPriv)
	require.NoError(t, err)
	data, err := json.Marshal(theirs)
	require.NoError(t, err)

	j, err := Unmarshal(data)
	require.NoError(t, err)
	k, err := j.Key()
	require.NoError(t, err)
	assert.True(t, ecPriv.Equal(k.CryptoPrivateKey()))

	ours, err := FromKey(k)
	require.NoError(t, err)
	out, err := ours.Marshal()
	require.NoError(t, err)
	parsed, err := lestrratjwk.ParseKey(out)
	require.NoError(t, err)
	var raw any
	require.NoError(t, parsed.Raw(&raw))
	assert.True(t, ecPriv.Equal(raw))
}

func TestSet(t *testing.T) {
	ks := generated(t)
	set, err := NewSet(ks...)
	require.NoError(t, err)
	require.Len(t, set.Keys, len(ks))

	data, err := set.Marshal()
	require.NoError(t, err)
	parsed, err := UnmarshalSet(data)
	require.NoError(t, err)

	resolve := parsed.Resolver()
	for i, k := range ks {
		got, err := resolve(set.Keys[i].Kid)
		require.NoError(t, err)
		assert.True(t, k.Equal(got))
	}
	_, err = resolve("missing")
	assert.ErrorIs(t, err, encoding.ErrUnrecognizedKey)
	_, err = resolve("")
	assert.ErrorIs(t, err, encoding.ErrInvalidData)

	assert.Error(t, set.Add(set.Keys[0]))

	oct, _ := FromSymmetricKey([]byte("k"), "")
	require.NoError(t, set.Add(oct))
	pub := set.Public()
	assert.Len(t, pub.Keys, len(ks))
	for _, j := range pub.Keys {
		assert.True(t, j.IsPublic())
	}

	_, err = UnmarshalSet([]byte(`{"keys":[{"kty":"RSA"}]}`))
	assert.ErrorIs(t, err, encoding.ErrInvalidData)
	_, err = UnmarshalSet([]byte(`{}`))
	assert.ErrorIs(t, err, encoding.ErrInvalidData)
}
