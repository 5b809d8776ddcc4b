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

package keyparse

import (
	"bytes"
	"crypto/rand"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jeremyhahn/go-keycodec/internal/testutil"
	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/logging"
	"github.com/jeremyhahn/go-keycodec/pkg/x509util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var passphrase = []byte("934495604a1e0cfe")

func encode(t *testing.T, f codec.Format, k keys.Key, opts *codec.Options) []byte {
	t.Helper()
	out, err := codec.Encode(f, k, opts)
	require.NoError(t, err)
	return out
}

func TestParse_IdentifiesEveryFormat(t *testing.T) {
	cert, err := x509util.SelfSigned(rand.Reader, testutil.Key(t, "p256"), "CN=keyparse", 0)
	require.NoError(t, err)

	tests := []struct {
		name    string
		key     keys.Key
		input   func(t *testing.T, k keys.Key) []byte
		format  codec.Format
		private bool
	}{
		{"JWK", testutil.Key(t, "rsa"), func(t *testing.T, k keys.Key) []byte {
			return encode(t, codec.FormatJWK, k, nil)
		}, codec.FormatJWK, true},
		{"OpenSSH", testutil.Key(t, "ed25519"), func(t *testing.T, k keys.Key) []byte {
			return encode(t, codec.FormatOpenSSH, k, nil)
		}, codec.FormatOpenSSH, true},
		{"OpenSSH authorized key", testutil.Key(t, "p384"), func(t *testing.T, k keys.Key) []byte {
			return encode(t, codec.FormatOpenSSH, k, &codec.Options{Public: true, Comment: "me@host"})
		}, codec.FormatOpenSSH, false},
		{"SSH2", testutil.Key(t, "p256"), func(t *testing.T, k keys.Key) []byte {
			return encode(t, codec.FormatSSH2, k, &codec.Options{Public: true})
		}, codec.FormatSSH2, false},
		{"X509", testutil.Key(t, "p256"), func(t *testing.T, k keys.Key) []byte {
			return cert
		}, codec.FormatX509, false},
		{"SPKI DER", testutil.Key(t, "ed448"), func(t *testing.T, k keys.Key) []byte {
			return encode(t, codec.FormatSPKI, k, nil)
		}, codec.FormatSPKI, false},
		{"SPKI PEM", testutil.Key(t, "dsa"), func(t *testing.T, k keys.Key) []byte {
			return encode(t, codec.FormatSPKI, k, &codec.Options{PEM: true})
		}, codec.FormatSPKI, false},
		{"PKCS8", testutil.Key(t, "x25519"), func(t *testing.T, k keys.Key) []byte {
			return encode(t, codec.FormatPKCS8, k, &codec.Options{PEM: true})
		}, codec.FormatPKCS8, true},
		{"PKCS1", testutil.Key(t, "rsa"), func(t *testing.T, k keys.Key) []byte {
			return encode(t, codec.FormatPKCS1, k, &codec.Options{PEM: true})
		}, codec.FormatPKCS1, true},
		{"PKCS1 EC", testutil.Key(t, "p521"), func(t *testing.T, k keys.Key) []byte {
			return encode(t, codec.FormatPKCS1, k, nil)
		}, codec.FormatPKCS1, true},
		{"DNS private", testutil.Key(t, "p384"), func(t *testing.T, k keys.Key) []byte {
			return encode(t, codec.FormatDNSKey, k, nil)
		}, codec.FormatDNSKey, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input(t, tt.key)

			res, err := New(nil).Parse(in, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.format, res.Format)
			assert.Equal(t, tt.key.Algorithm(), res.Algorithm)
			assert.Equal(t, tt.private, res.Key.IsPrivate())
			assert.False(t, res.Encrypted)
			if tt.private {
				assert.True(t, tt.key.Equal(res.Key))
			} else {
				assert.True(t, tt.key.Public().Equal(res.Key))
			}

			f, alg, err := Identify(in)
			require.NoError(t, err)
			assert.Equal(t, tt.format, f)
			assert.Equal(t, tt.key.Algorithm(), alg)
		})
	}
}

func TestParse_Encrypted(t *testing.T) {
	tests := []struct {
		name      string
		format    codec.Format
		key       string
		opts      *codec.Options
		encrypted bool
	}{
		{"PKCS1 RFC 1423", codec.FormatPKCS1, "rsa", &codec.Options{Passphrase: passphrase, Cipher: "AES-128-CBC"}, true},
		{"PKCS8 legacy PEM", codec.FormatPKCS8, "p256", &codec.Options{Passphrase: passphrase, Cipher: "DES-EDE3-CBC"}, true},
		{"PKCS8 PBES2 PEM", codec.FormatPKCS8, "ed25519", &codec.Options{Passphrase: passphrase, PEM: true}, true},
		{"PKCS8 PBES2 DER", codec.FormatPKCS8, "p384", &codec.Options{Passphrase: passphrase}, true},
		{"OpenSSH bcrypt", codec.FormatOpenSSH, "ed25519", &codec.Options{Passphrase: passphrase, Rounds: 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := testutil.Key(t, tt.key)
			in := encode(t, tt.format, k, tt.opts)

			res, err := New(nil).Parse(in, passphrase)
			require.NoError(t, err)
			assert.Equal(t, tt.format, res.Format)
			assert.Equal(t, tt.encrypted, res.Encrypted)
			assert.True(t, k.Equal(res.Key))

			_, err = Parse(in, nil)
			assert.ErrorIs(t, err, encoding.ErrPassphraseRequired)

			_, err = Parse(in, []byte("wrong passphrase"))
			assert.ErrorIs(t, err, encoding.ErrBadPassphrase)
		})
	}
}

func TestParse_Unrecognized(t *testing.T) {
	for name, in := range map[string][]byte{
		"text":        []byte("hello world"),
		"random DER":  {0x30, 0x03, 0x02, 0x01, 0x05},
		"json":        []byte(`{"kty":"oct","k":"AAAA"}`),
		"unknown pem": []byte("-----BEGIN FOO-----\nAAAA\n-----END FOO-----\n"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(in, nil)
			assert.ErrorIs(t, err, encoding.ErrUnrecognizedKey)
		})
	}

	_, err := Parse(nil, nil)
	assert.ErrorIs(t, err, encoding.ErrInvalidData)

	_, _, err = Identify([]byte("hello"))
	assert.ErrorIs(t, err, encoding.ErrUnrecognizedKey)
}

func TestParse_Order(t *testing.T) {
	k := testutil.Key(t, "rsa")
	in := encode(t, codec.FormatPKCS1, k, nil)

	p := &Parser{Order: []codec.Format{codec.FormatJWK, codec.FormatSPKI}}
	_, err := p.Parse(in, nil)
	assert.ErrorIs(t, err, encoding.ErrUnrecognizedKey)

	p.Order = []codec.Format{codec.FormatPKCS1}
	res, err := p.Parse(in, nil)
	require.NoError(t, err)
	assert.Equal(t, codec.FormatPKCS1, res.Format)
}

func TestParse_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelDebug)

	in := encode(t, codec.FormatSPKI, testutil.Key(t, "ed25519"), &codec.Options{PEM: true})
	_, err := New(logger).Parse(in, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "codec tried")
	assert.Contains(t, buf.String(), "codec matched")
	assert.Contains(t, buf.String(), "format=spki")
}

func TestParse_ExternalFixtures(t *testing.T) {
	tests := []struct {
		file       string
		passphrase string
		format     codec.Format
		alg        keys.Algorithm
		private    bool
	}{
		{"../codec/testdata/rsa2048_pkcs1.pem", "", codec.FormatPKCS1, keys.AlgorithmRSA, true},
		{"../codec/testdata/rsa2048_pkcs1_pub.pem", "", codec.FormatPKCS1, keys.AlgorithmRSA, false},
		{"../codec/testdata/rsa2048_spki.pem", "", codec.FormatSPKI, keys.AlgorithmRSA, false},
		{"../codec/testdata/rsa2048_pkcs8.pem", "", codec.FormatPKCS8, keys.AlgorithmRSA, true},
		{"../codec/testdata/ed25519_encrypted.key", "934495604a1e0cfe", codec.FormatOpenSSH, keys.AlgorithmEdDSA, true},
		{"../codec/testdata/ed25519_encrypted.key.pub", "", codec.FormatOpenSSH, keys.AlgorithmEdDSA, false},
		{"../codec/testdata/p256_plain.key", "", codec.FormatOpenSSH, keys.AlgorithmECDSA, true},
		{"../x509util/testdata/p256_selfsigned.crt", "", codec.FormatX509, keys.AlgorithmECDSA, false},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.file), func(t *testing.T) {
			b, err := os.ReadFile(tt.file)
			require.NoError(t, err)
			res, err := New(nil).Parse(b, []byte(tt.passphrase))
			require.NoError(t, err)
			assert.Equal(t, tt.format, res.Format)
			assert.Equal(t, tt.alg, res.Algorithm)
			assert.Equal(t, tt.private, res.Key.IsPrivate())
		})
	}

	b, err := os.ReadFile("../codec/testdata/ed25519_encrypted.key")
	require.NoError(t, err)
	_, err = Parse(b, nil)
	assert.ErrorIs(t, err, encoding.ErrPassphraseRequired)
	_, err = Parse(b, []byte("wrong"))
	assert.ErrorIs(t, err, encoding.ErrBadPassphrase)
}
