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

package testutil

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// TestCA is a certificate authority issued by crypto/x509. Tests use it as
// an independent issuer to cross-check certificates, requests and CRLs
// built in-tree.
type TestCA struct {
	// Cert is the CA certificate
	Cert *x509.Certificate
	// Key is the CA private key
	Key keys.Key
	// CertPEM is the PEM-encoded CA certificate
	CertPEM []byte
}

// GenerateTestCA issues a self-signed CA for the named fixture key. The key
// must be one crypto/x509 can sign with: rsa, p256, p384, p521 or ed25519.
func GenerateTestCA(t testing.TB, keyName string) *TestCA {
	t.Helper()
	k := Key(t, keyName)
	template := &x509.Certificate{
		SerialNumber: serial(t),
		Subject: pkix.Name{
			Country:      []string{"US"},
			Organization: []string{"go-keycodec"},
			CommonName:   "Test CA " + keyName,
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, k.CryptoPublicKey(), signer(t, k))
	if err != nil {
		t.Fatalf("create CA certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse CA certificate: %v", err)
	}
	return &TestCA{
		Cert:    cert,
		Key:     k,
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
	}
}

// IssueLeaf signs a server certificate for pub with the given DNS names.
func (ca *TestCA) IssueLeaf(t testing.TB, pub keys.Key, dnsNames ...string) *x509.Certificate {
	t.Helper()
	cn := "leaf"
	if len(dnsNames) > 0 {
		cn = dnsNames[0]
	}
	template := &x509.Certificate{
		SerialNumber:          serial(t),
		Subject:               pkix.Name{CommonName: cn},
		DNSNames:              dnsNames,
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		CRLDistributionPoints: []string{"http://crl.example.com/ca.crl"},
		OCSPServer:            []string{"http://ocsp.example.com"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, ca.Cert, pub.CryptoPublicKey(), signer(t, ca.Key))
	if err != nil {
		t.Fatalf("create leaf certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse leaf certificate: %v", err)
	}
	return cert
}

// RevocationList signs a CRL revoking the given serials.
func (ca *TestCA) RevocationList(t testing.TB, number int64, serials ...*big.Int) []byte {
	t.Helper()
	entries := make([]x509.RevocationListEntry, len(serials))
	for i, s := range serials {
		entries[i] = x509.RevocationListEntry{
			SerialNumber:   s,
			RevocationTime: time.Now().Add(-time.Minute).UTC(),
			ReasonCode:     1,
		}
	}
	der, err := x509.CreateRevocationList(rand.Reader, &x509.RevocationList{
		Number:                    big.NewInt(number),
		ThisUpdate:                time.Now().Add(-time.Minute),
		NextUpdate:                time.Now().Add(time.Hour),
		RevokedCertificateEntries: entries,
	}, ca.Cert, signer(t, ca.Key))
	if err != nil {
		t.Fatalf("create CRL: %v", err)
	}
	return der
}

func signer(t testing.TB, k keys.Key) crypto.Signer {
	t.Helper()
	s, ok := k.CryptoPrivateKey().(crypto.Signer)
	if !ok {
		t.Fatalf("%s key is not a crypto.Signer", k.Algorithm())
	}
	return s
}

func serial(t testing.TB) *big.Int {
	t.Helper()
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("serial number: %v", err)
	}
	return n.Add(n, big.NewInt(1))
}
