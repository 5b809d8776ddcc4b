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

package x509util

import (
	"crypto/rand"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
)

// testdata/p256_selfsigned.{crt,key} were written by OpenSSL 3.0:
//
//	openssl req -x509 -newkey ec -pkeyopt ec_paramgen_curve:P-256 -nodes \
//	    -keyout p256_selfsigned.key -out p256_selfsigned.crt -days 36500 \
//	    -subj "/CN=keycodec test root/O=keycodec" -sha256
func readOpenSSLRoot(t *testing.T) (*Certificate, keys.Key) {
	t.Helper()
	crt, err := os.ReadFile(filepath.Join("testdata", "p256_selfsigned.crt"))
	require.NoError(t, err)
	block, err := pem.Decode(crt, nil)
	require.NoError(t, err)
	require.Equal(t, pem.TypeCertificate, block.Type)
	cert, err := ParseCertificate(block.Bytes)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join("testdata", "p256_selfsigned.key"))
	require.NoError(t, err)
	k, err := codec.Decode(codec.FormatPKCS8, b, nil)
	require.NoError(t, err)
	return cert, k
}

func TestFixture_OpenSSLCertificate(t *testing.T) {
	cert, k := readOpenSSLRoot(t)

	assert.Equal(t, 3, cert.Version)
	require.NotNil(t, cert.SignatureAlgorithm)
	assert.Equal(t, signing.ECDSAWithSHA256.Name, cert.SignatureAlgorithm.Name)
	assert.True(t, cert.PublicKey.Equal(k.Public()))
	assert.Equal(t, keys.P256, cert.PublicKey.(*keys.ECDSAKey).Curve())
	assert.True(t, cert.IsCA())
	assert.Equal(t, cert.SubjectKeyID, cert.AuthorityKeyID)
	assert.True(t, cert.IsSelfSigned())
	require.NoError(t, cert.CheckSignatureFrom(cert))
	require.NoError(t, cert.Verify(nil, cert.NotBefore.Add(time.Hour)))

	std, err := x509.ParseCertificate(cert.Raw)
	require.NoError(t, err)
	assert.Equal(t, std.RawSubject, cert.RawSubject)
	assert.Equal(t, std.SerialNumber, cert.SerialNumber)
	assert.True(t, std.NotAfter.Equal(cert.NotAfter))

	keyID, err := KeyID(cert.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, std.SubjectKeyId, keyID)

	tampered := *cert
	tampered.Signature = append([]byte(nil), cert.Signature...)
	tampered.Signature[len(tampered.Signature)-1] ^= 0x01
	assert.Error(t, tampered.CheckSignature(cert.PublicKey))
}

func TestFixture_CertificateVerifiedByStdlib(t *testing.T) {
	root, k := readOpenSSLRoot(t)

	tests := []struct {
		name   string
		issue  func(t *testing.T) []byte
		parent func(t *testing.T) *x509.Certificate
	}{
		{
			name: "self-signed",
			issue: func(t *testing.T) []byte {
				b, err := SelfSigned(rand.Reader, k, "CN=keycodec self-signed", time.Hour)
				require.NoError(t, err)
				return b
			},
		},
		{
			name: "issued by the OpenSSL root",
			issue: func(t *testing.T) []byte {
				name, err := ParseName("CN=keycodec leaf")
				require.NoError(t, err)
				template := &Certificate{
					Subject:   name,
					NotBefore: time.Now().Add(-time.Minute),
					NotAfter:  time.Now().Add(time.Hour),
					DNSNames:  []string{"leaf.example.com"},
				}
				b, err := CreateCertificate(rand.Reader, template, root, k.Public(), k, nil)
				require.NoError(t, err)
				return b
			},
			parent: func(t *testing.T) *x509.Certificate {
				std, err := x509.ParseCertificate(root.Raw)
				require.NoError(t, err)
				return std
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			der := tt.issue(t)
			std, err := x509.ParseCertificate(der)
			require.NoError(t, err)
			assert.Equal(t, x509.ECDSAWithSHA256, std.SignatureAlgorithm)

			parent := std
			if tt.parent != nil {
				parent = tt.parent(t)
			}
			require.NoError(t, std.CheckSignatureFrom(parent))

			ours, err := ParseCertificate(der)
			require.NoError(t, err)
			if tt.parent != nil {
				require.NoError(t, ours.CheckSignatureFrom(root))
			} else {
				assert.True(t, ours.IsSelfSigned())
			}
		})
	}
}
