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
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keycodec/internal/testutil"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
)

func revocationTemplate() *RevocationList {
	now := time.Now().Truncate(time.Second).UTC()
	return &RevocationList{
		Number:     big.NewInt(7),
		ThisUpdate: now.Add(-time.Minute),
		NextUpdate: now.Add(7 * 24 * time.Hour),
		Revoked: []RevokedCertificate{
			{SerialNumber: big.NewInt(100), RevocationTime: now.Add(-time.Hour), Reason: ReasonKeyCompromise},
			{SerialNumber: big.NewInt(101), RevocationTime: now.Add(-2 * time.Hour)},
		},
	}
}

func TestCreateRevocationList(t *testing.T) {
	for _, name := range []string{"rsa", "dsa", "p256", "ed25519", "ed448"} {
		t.Run(name, func(t *testing.T) {
			k := testutil.Key(t, name)
			ca := selfSigned(t, k, nil)
			tmpl := revocationTemplate()

			b, err := CreateRevocationList(rand.Reader, tmpl, ca, k, nil)
			require.NoError(t, err)
			l, err := ParseRevocationList(b)
			require.NoError(t, err)

			require.NoError(t, l.CheckSignatureFrom(ca))
			assert.True(t, l.Issuer.Equal(ca.Subject))
			assert.Equal(t, int64(7), l.Number.Int64())
			assert.Equal(t, ca.SubjectKeyID, l.AuthorityKeyID)
			assert.True(t, tmpl.ThisUpdate.Equal(l.ThisUpdate))
			assert.True(t, tmpl.NextUpdate.Equal(l.NextUpdate))
			require.Len(t, l.Revoked, 2)

			rc, ok := l.IsRevoked(big.NewInt(100))
			require.True(t, ok)
			assert.Equal(t, ReasonKeyCompromise, rc.Reason)
			rc, ok = l.IsRevoked(big.NewInt(101))
			require.True(t, ok)
			assert.Equal(t, ReasonCode(0), rc.Reason)
			assert.Empty(t, rc.Extensions)
			_, ok = l.IsRevoked(big.NewInt(102))
			assert.False(t, ok)
		})
	}
}

func TestCreateRevocationList_StdInterop(t *testing.T) {
	for _, name := range stdVerifiable {
		t.Run(name, func(t *testing.T) {
			k := testutil.Key(t, name)
			ca := selfSigned(t, k, nil)
			b, err := CreateRevocationList(rand.Reader, revocationTemplate(), ca, k, nil)
			require.NoError(t, err)

			std, err := x509.ParseRevocationList(b)
			require.NoError(t, err)
			stdCA, err := x509.ParseCertificate(ca.Raw)
			require.NoError(t, err)
			require.NoError(t, std.CheckSignatureFrom(stdCA))
			assert.Equal(t, int64(7), std.Number.Int64())
			assert.Equal(t, ca.SubjectKeyID, std.AuthorityKeyId)
			require.Len(t, std.RevokedCertificateEntries, 2)
			assert.Equal(t, 1, std.RevokedCertificateEntries[0].ReasonCode)
		})
	}
}

func TestParseRevocationList_StdCreated(t *testing.T) {
	ca := testutil.GenerateTestCA(t, "rsa")
	b := ca.RevocationList(t, 12, big.NewInt(5), big.NewInt(6))

	root, err := ParseCertificate(ca.Cert.Raw)
	require.NoError(t, err)
	l, err := ParseRevocationList(b)
	require.NoError(t, err)
	require.NoError(t, l.CheckSignatureFrom(root))
	assert.Equal(t, signing.SHA256WithRSA, l.SignatureAlgorithm)
	assert.Equal(t, int64(12), l.Number.Int64())
	require.Len(t, l.Revoked, 2)
	assert.Equal(t, ReasonKeyCompromise, l.Revoked[0].Reason)
}

func TestRevocationList_Errors(t *testing.T) {
	k := testutil.Key(t, "p256")
	ca := selfSigned(t, k, nil)

	_, err := CreateRevocationList(rand.Reader, nil, ca, k, nil)
	assert.ErrorIs(t, err, ErrTemplateRequired)

	noNumber := revocationTemplate()
	noNumber.Number = nil
	_, err = CreateRevocationList(rand.Reader, noNumber, ca, k, nil)
	assert.ErrorIs(t, err, encoding.ErrInvalidData)

	_, err = CreateRevocationList(rand.Reader, revocationTemplate(), ca, testutil.Key(t, "p384"), nil)
	assert.ErrorIs(t, err, signing.ErrKeyMismatch)

	tmpl := caTemplate(t, "signer only")
	tmpl.KeyUsage = KeyUsageCertSign
	b, err := CreateCertificate(rand.Reader, tmpl, nil, k.Public(), k, nil)
	require.NoError(t, err)
	noCRLSign, err := ParseCertificate(b)
	require.NoError(t, err)
	_, err = CreateRevocationList(rand.Reader, revocationTemplate(), noCRLSign, k, nil)
	assert.ErrorIs(t, err, ErrNotCA)

	b, err = CreateRevocationList(rand.Reader, revocationTemplate(), ca, k, nil)
	require.NoError(t, err)
	l, err := ParseRevocationList(b)
	require.NoError(t, err)
	other := selfSigned(t, testutil.Key(t, "ed25519"), nil)
	assert.ErrorIs(t, l.CheckSignatureFrom(other), ErrIssuerMismatch)

	l.Signature = append([]byte(nil), l.Signature...)
	l.Signature[len(l.Signature)-1] ^= 0x01
	assert.ErrorIs(t, l.CheckSignatureFrom(ca), encoding.ErrBadSignature)
}
