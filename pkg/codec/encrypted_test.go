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
	"crypto/x509"
	stdpem "encoding/pem"
	"errors"
	"fmt"
	"testing"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"
)

var (
	passphrase = []byte("s3cret passphrase")
	wrongPass  = []byte("not the passphrase")
)

func TestPKCS1_Encrypted(t *testing.T) {
	for _, cipher := range []string{"DES-CBC", "DES-EDE3-CBC", "AES-128-CBC", "AES-192-CBC", "AES-256-CBC"} {
		for _, name := range []string{"rsa", "dsa", "p256"} {
			t.Run(cipher+"/"+name, func(t *testing.T) {
				k := fixture(t, name)
				out, err := Encode(FormatPKCS1, k, &Options{Passphrase: passphrase, Cipher: cipher})
				require.NoError(t, err)
				assert.True(t, pem.IsEncrypted(out))
				assert.Contains(t, string(out), "DEK-Info: "+cipher+",")

				got, err := Decode(FormatPKCS1, out, &Options{Passphrase: passphrase})
				require.NoError(t, err)
				assert.True(t, k.Equal(got))

				_, err = Decode(FormatPKCS1, out, &Options{Passphrase: wrongPass})
				assert.ErrorIs(t, err, encoding.ErrBadPassphrase)

				_, err = Decode(FormatPKCS1, out, nil)
				assert.ErrorIs(t, err, encoding.ErrPassphraseRequired)
			})
		}
	}
}

func TestPKCS1_EncryptedDefaultsToAES256(t *testing.T) {
	out, err := Encode(FormatPKCS1, fixture(t, "rsa"), &Options{Passphrase: passphrase})
	require.NoError(t, err)
	assert.Contains(t, string(out), "Proc-Type: 4,ENCRYPTED")
	assert.Contains(t, string(out), "DEK-Info: AES-256-CBC,")
}

func TestPKCS1_EncryptedInterop(t *testing.T) {
	k := fixture(t, "rsa").(*keys.RSAKey)

	//lint:ignore SA1019 legacy PEM encryption is what is being tested
	block, err := x509.EncryptPEMBlock(rand.Reader, pem.TypeRSAPrivateKey,
		x509.MarshalPKCS1PrivateKey(k.PrivateKey()), passphrase, x509.PEMCipherAES128)
	require.NoError(t, err)
	got, err := Decode(FormatPKCS1, stdpem.EncodeToMemory(block), &Options{Passphrase: passphrase})
	require.NoError(t, err)
	assert.True(t, k.Equal(got))

	ours, err := Encode(FormatPKCS1, k, &Options{Passphrase: passphrase, Cipher: "DES-EDE3-CBC"})
	require.NoError(t, err)
	theirs, _ := stdpem.Decode(ours)
	require.NotNil(t, theirs)
	//lint:ignore SA1019 legacy PEM encryption is what is being tested
	plain, err := x509.DecryptPEMBlock(theirs, passphrase)
	require.NoError(t, err)
	assert.Equal(t, x509.MarshalPKCS1PrivateKey(k.PrivateKey()), plain)
}

func TestPKCS8_Encrypted(t *testing.T) {
	for _, name := range []string{"rsa", "p384", "ed25519", "x25519"} {
		t.Run(name, func(t *testing.T) {
			k := fixture(t, name)
			for _, armored := range []bool{false, true} {
				out, err := Encode(FormatPKCS8, k, &Options{Passphrase: passphrase, PEM: armored})
				require.NoError(t, err)
				if armored {
					assert.Contains(t, string(out), "BEGIN ENCRYPTED PRIVATE KEY")
				} else {
					assert.True(t, IsEncryptedPKCS8(out))
				}

				got, err := Decode(FormatPKCS8, out, &Options{Passphrase: passphrase})
				require.NoError(t, err)
				assert.True(t, k.Equal(got))

				_, err = Decode(FormatPKCS8, out, &Options{Passphrase: wrongPass})
				assert.ErrorIs(t, err, encoding.ErrBadPassphrase)

				_, err = Decode(FormatPKCS8, out, nil)
				assert.ErrorIs(t, err, encoding.ErrPassphraseRequired)
			}
		})
	}
}

func TestPKCS8_EncryptedUnsupportedKeys(t *testing.T) {
	for _, name := range []string{"dsa", "dh", "ed448", "x448"} {
		_, err := EncryptPKCS8(fixture(t, name), passphrase)
		assert.ErrorIs(t, err, encoding.ErrUnsupportedAlgorithm, name)
	}
}

func TestPKCS8_PasswordErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"incorrect password", errors.New("pkcs8: incorrect password"), true},
		{"wrapped", fmt.Errorf("decrypt: %w", errors.New("pkcs8: incorrect password")), true},
		{"not PBES2", errors.New("pkcs8: only PBES2 supported"), false},
		{"bad envelope", errors.New("pkcs8: only PKCS #5 v2.0 supported"), false},
		{"unknown cipher", errors.New("pkcs8: unsupported cipher (OID: 1.2.3)"), false},
		{"asn1", errors.New("asn1: structure error: tags don't match"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPasswordError(tt.err))
		})
	}

	// the upstream message for a wrong password
	b, err := EncryptPKCS8(fixture(t, "p256"), passphrase)
	require.NoError(t, err)
	_, err = pkcs8.ParsePKCS8PrivateKey(b, wrongPass)
	require.Error(t, err)
	assert.Equal(t, pkcs8PasswordMessage, err.Error())

	_, err = DecryptPKCS8(b, wrongPass)
	assert.ErrorIs(t, err, encoding.ErrBadPassphrase)
	assert.NotErrorIs(t, err, encoding.ErrBadASN1)

	// a malformed envelope is not a password problem
	_, err = DecryptPKCS8([]byte{0x30, 0x03, 0x02, 0x01, 0x00}, passphrase)
	assert.ErrorIs(t, err, encoding.ErrBadASN1)
	assert.NotErrorIs(t, err, encoding.ErrBadPassphrase)
}

func TestPKCS8_LegacyPEMEncryption(t *testing.T) {
	// a Cipher selects RFC 1423 over the PBES2 envelope, which also covers DSA
	k := fixture(t, "dsa")
	out, err := Encode(FormatPKCS8, k, &Options{Passphrase: passphrase, Cipher: "AES-128-CBC"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "BEGIN PRIVATE KEY")
	assert.True(t, pem.IsEncrypted(out))

	got, err := Decode(FormatPKCS8, out, &Options{Passphrase: passphrase})
	require.NoError(t, err)
	assert.True(t, k.Equal(got))

	_, err = Decode(FormatPKCS8, out, &Options{Passphrase: wrongPass})
	assert.ErrorIs(t, err, encoding.ErrBadPassphrase)
}

func TestPrepare(t *testing.T) {
	k := fixture(t, "p256")
	out, err := Encode(FormatPKCS1, k, &Options{Passphrase: passphrase})
	require.NoError(t, err)

	plain, err := Prepare(out, passphrase)
	require.NoError(t, err)
	assert.False(t, pem.IsEncrypted(plain))
	block, err := pem.Peek(plain)
	require.NoError(t, err)
	assert.Equal(t, pem.TypeECPrivateKey, block.Type)

	unchanged, err := Prepare([]byte("not pem"), nil)
	require.NoError(t, err)
	assert.Equal(t, "not pem", string(unchanged))

	_, err = Prepare(out, wrongPass)
	assert.ErrorIs(t, err, encoding.ErrBadPassphrase)
}
