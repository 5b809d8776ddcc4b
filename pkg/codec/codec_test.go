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

package codec

import (
	"crypto/rand"
	"fmt"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-keycodec/internal/testutil"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, name string) keys.Key {
	return testutil.Key(t, name)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "openssh", FormatOpenSSH.Lower())
	assert.True(t, FormatPKCS8.Equals("PKCS8"))

	f, err := ParseFormat("JWK")
	require.NoError(t, err)
	assert.Equal(t, FormatJWK, f)

	_, err = ParseFormat("der")
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)

	assert.Equal(t, []Format{FormatJWK, FormatOpenSSH, FormatSSH2, FormatX509, FormatSPKI, FormatPKCS8, FormatPKCS1, FormatDNSKey}, Formats())
}

func TestRegistry(t *testing.T) {
	expected := map[Format][]keys.Algorithm{
		FormatPKCS1:   {keys.AlgorithmRSA, keys.AlgorithmDSA, keys.AlgorithmECDSA},
		FormatPKCS8:   keys.Algorithms(),
		FormatSPKI:    keys.Algorithms(),
		FormatOpenSSH: {keys.AlgorithmRSA, keys.AlgorithmDSA, keys.AlgorithmECDSA, keys.AlgorithmEdDSA},
		FormatSSH2:    {keys.AlgorithmRSA, keys.AlgorithmDSA, keys.AlgorithmECDSA, keys.AlgorithmEdDSA},
		FormatJWK:     {keys.AlgorithmRSA, keys.AlgorithmECDSA, keys.AlgorithmEdDSA, keys.AlgorithmXDH},
		FormatDNSKey:  {keys.AlgorithmRSA, keys.AlgorithmDSA, keys.AlgorithmECDSA, keys.AlgorithmEdDSA, keys.AlgorithmDH},
	}
	for f, algs := range expected {
		for _, alg := range algs {
			c, err := Lookup(f, alg)
			require.NoError(t, err, "%s/%s", f, alg)
			assert.Equal(t, f, c.Format())
			assert.Equal(t, alg, c.Algorithm())
		}
		assert.Len(t, ForFormat(f), len(algs), f.String())
	}

	_, err := Lookup(FormatPKCS1, keys.AlgorithmEdDSA)
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)

	// All is grouped in auto-parse order.
	var order []Format
	for _, c := range All() {
		if len(order) == 0 || order[len(order)-1] != c.Format() {
			order = append(order, c.Format())
		}
	}
	var want []Format
	for _, f := range Formats() {
		if len(ForFormat(f)) > 0 {
			want = append(want, f)
		}
	}
	assert.Equal(t, want, order)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		format  Format
		private []string
		public  []string
	}{
		{FormatPKCS1, []string{"rsa", "dsa", "p256", "p384", "p521"}, []string{"rsa", "dsa", "p256", "p521"}},
		{FormatPKCS8, []string{"rsa", "dsa", "p256", "p384", "p521", "ed25519", "ed448", "x25519", "x448", "dh"}, nil},
		{FormatSPKI, nil, []string{"rsa", "dsa", "p256", "p384", "p521", "ed25519", "ed448", "x25519", "x448", "dh"}},
		{FormatOpenSSH, []string{"rsa", "dsa", "p256", "p384", "p521", "ed25519", "ed448"}, []string{"rsa", "dsa", "p256", "p384", "p521", "ed25519", "ed448"}},
		{FormatSSH2, nil, []string{"rsa", "dsa", "p256", "p384", "p521", "ed25519", "ed448"}},
		{FormatJWK, []string{"rsa", "p256", "p384", "p521", "ed25519", "ed448", "x25519", "x448"}, []string{"rsa", "p256", "p521", "ed448", "x25519"}},
		{FormatDNSKey, []string{"rsa", "dsa", "p256", "p384", "ed25519", "ed448", "dh"}, []string{"rsa", "dsa", "p256", "p384", "ed25519", "ed448", "dh"}},
	}
	for _, tt := range tests {
		for _, pem := range []bool{false, true} {
			for _, name := range tt.private {
				t.Run(fmt.Sprintf("%s/%s/private/pem=%v", tt.format, name, pem), func(t *testing.T) {
					k := fixture(t, name)
					out, err := Encode(tt.format, k, &Options{PEM: pem})
					require.NoError(t, err)

					got, err := Decode(tt.format, out, nil)
					require.NoError(t, err)
					assert.True(t, got.IsPrivate())
					assert.True(t, k.Equal(got))
				})
			}
			for _, name := range tt.public {
				t.Run(fmt.Sprintf("%s/%s/public/pem=%v", tt.format, name, pem), func(t *testing.T) {
					k := fixture(t, name)
					out, err := Encode(tt.format, k, &Options{PEM: pem, Public: true})
					require.NoError(t, err)

					got, err := Decode(tt.format, out, nil)
					require.NoError(t, err)
					assert.False(t, got.IsPrivate())
					assert.True(t, k.Public().Equal(got))
				})
			}
		}
	}
}

func TestRoundTrip_P192(t *testing.T) {
	k, err := keys.GenerateECDSA(rand.Reader, keys.P192)
	require.NoError(t, err)

	tests := []struct {
		format Format
		public bool
	}{
		{FormatPKCS1, false},
		{FormatPKCS1, true},
		{FormatPKCS8, false},
		{FormatSPKI, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/public=%v", tt.format, tt.public), func(t *testing.T) {
			out, err := Encode(tt.format, k, &Options{PEM: true, Public: tt.public})
			require.NoError(t, err)

			got, err := Decode(tt.format, out, nil)
			require.NoError(t, err)
			want := keys.Key(k)
			if tt.public {
				want = k.Public()
			}
			assert.True(t, want.Equal(got))
			assert.Equal(t, keys.P192, got.(*keys.ECDSAKey).Curve())
		})
	}

	// JOSE, OpenSSH and DNSSEC assign no identifier to P-192.
	for _, f := range []Format{FormatJWK, FormatOpenSSH, FormatDNSKey} {
		_, err := Encode(f, k, nil)
		assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm, f.String())
	}
}

func TestCheck_MatchesOnlyOwnAlgorithm(t *testing.T) {
	k := fixture(t, "p256")
	for _, f := range []Format{FormatPKCS1, FormatPKCS8, FormatOpenSSH, FormatJWK, FormatDNSKey} {
		out, err := Encode(f, k, nil)
		require.NoError(t, err, f.String())
		for _, c := range ForFormat(f) {
			assert.Equal(t, c.Algorithm() == keys.AlgorithmECDSA, c.Check(out), "%s/%s", f, c.Algorithm())
		}
	}
}

func TestCheck_RejectsOtherFormats(t *testing.T) {
	k := fixture(t, "ed25519")
	jwkOut, err := Encode(FormatJWK, k, nil)
	require.NoError(t, err)
	sshOut, err := Encode(FormatOpenSSH, k, &Options{Public: true})
	require.NoError(t, err)

	for _, c := range ForFormat(FormatPKCS8) {
		assert.False(t, c.Check(jwkOut))
		assert.False(t, c.Check(sshOut))
	}
	for _, c := range ForFormat(FormatDNSKey) {
		assert.False(t, c.Check(jwkOut))
		assert.False(t, c.Check(sshOut))
	}
	for _, c := range ForFormat(FormatJWK) {
		assert.False(t, c.Check(sshOut))
	}
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(FormatPKCS1, nil, nil)
	assert.ErrorIs(t, err, encoding.ErrInvalidData)

	_, err = Encode(FormatPKCS1, fixture(t, "ed25519"), nil)
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)

	_, err = Encode(FormatPKCS8, fixture(t, "rsa").Public(), nil)
	assert.ErrorIs(t, err, encoding.ErrInvalidPrivateKey)

	c, err := Lookup(FormatSPKI, keys.AlgorithmRSA)
	require.NoError(t, err)
	_, err = c.Encode(fixture(t, "p256"), nil)
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)

	// P-521 has no DNSSEC algorithm number
	_, err = Encode(FormatDNSKey, fixture(t, "p521"), nil)
	assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(FormatPKCS1, []byte("  \n"), nil)
	assert.ErrorIs(t, err, encoding.ErrUnrecognizedKey)

	c, err := Lookup(FormatPKCS1, keys.AlgorithmRSA)
	require.NoError(t, err)
	_, err = c.Decode(nil, nil)
	assert.ErrorIs(t, err, encoding.ErrInvalidData)

	// an RSA codec handed an EC key reports a mismatch
	out, err := Encode(FormatPKCS8, fixture(t, "p256"), nil)
	require.NoError(t, err)
	c, err = Lookup(FormatPKCS8, keys.AlgorithmRSA)
	require.NoError(t, err)
	_, err = c.Decode(out, nil)
	assert.True(t, IsMismatch(err))
}

func TestPEMWidth(t *testing.T) {
	out, err := Encode(FormatPKCS8, fixture(t, "rsa"), &Options{PEM: true, Width: 64})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for _, l := range lines[1 : len(lines)-2] {
		assert.Len(t, l, 64)
	}

	out, err = Encode(FormatPKCS8, fixture(t, "rsa"), &Options{PEM: true})
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Len(t, lines[1], 70)
}
