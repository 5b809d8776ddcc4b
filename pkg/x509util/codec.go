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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
)

// The X.509 codec carries a key inside a certificate or certification
// request. Encoding needs the private key to sign; decoding yields the
// subject public key.
func init() {
	for _, alg := range []keys.Algorithm{keys.AlgorithmRSA, keys.AlgorithmDSA, keys.AlgorithmECDSA, keys.AlgorithmEdDSA} {
		codec.Register(codec.NewCodec(codec.FormatX509, alg, checkX509(alg), encodeX509, decodeX509))
	}
}

// DefaultValidity is the lifetime of certificates written by the codec.
const DefaultValidity = 365 * 24 * time.Hour

// SelfSigned builds a self-signed CA certificate for k. An empty subject
// uses "CN=<algorithm>".
func SelfSigned(random io.Reader, k keys.Key, subject string, validity time.Duration) ([]byte, error) {
	name, err := codecSubject(k, subject)
	if err != nil {
		return nil, err
	}
	if validity <= 0 {
		validity = DefaultValidity
	}
	now := time.Now().Truncate(time.Second)
	template := &Certificate{
		Subject:          name,
		NotBefore:        now.Add(-time.Minute),
		NotAfter:         now.Add(validity),
		KeyUsage:         KeyUsageDigitalSignature | KeyUsageCertSign | KeyUsageCRLSign,
		BasicConstraints: &BasicConstraints{CA: true, PathLen: -1},
	}
	return CreateCertificate(random, template, nil, k.Public(), k, nil)
}

func codecSubject(k keys.Key, subject string) (Name, error) {
	if strings.TrimSpace(subject) == "" {
		return CommonName(k.Algorithm().Lower()), nil
	}
	return ParseName(subject)
}

func encodeX509(k keys.Key, opts *codec.Options) ([]byte, error) {
	if !k.IsPrivate() {
		return nil, fmt.Errorf("%w: the X.509 codec signs with the private key", signing.ErrPrivateKeyRequired)
	}
	if opts == nil {
		opts = &codec.Options{}
	}
	var (
		body    []byte
		err     error
		pemType = pem.TypeCertificate
	)
	if opts.Request {
		pemType = pem.TypeCertificateRequest
		name, nerr := codecSubject(k, opts.Subject)
		if nerr != nil {
			return nil, nerr
		}
		body, err = CreateCertificateRequest(opts.Rand, &CertificateRequest{Subject: name}, k, nil)
	} else {
		body, err = SelfSigned(opts.Rand, k, opts.Subject, opts.Validity)
	}
	if err != nil {
		return nil, err
	}
	if !opts.PEM {
		return body, nil
	}
	return pem.Encode(&pem.Block{Type: pemType, Bytes: body}, &pem.EncodeOptions{Width: opts.Width})
}

func decodeX509(buf []byte, _ *codec.Options) (keys.Key, error) {
	body, typ, err := unarmorX509(buf)
	if err != nil {
		return nil, err
	}
	if typ == pem.TypeCertificateRequest || typ == "" && isCertificateRequest(body) {
		r, err := ParseCertificateRequest(body)
		if err != nil {
			return nil, err
		}
		return r.PublicKey, nil
	}
	c, err := ParseCertificate(body)
	if err != nil {
		return nil, err
	}
	return c.PublicKey, nil
}

// unarmorX509 returns the DER body and, for PEM input, the block type.
func unarmorX509(buf []byte) ([]byte, string, error) {
	if !pem.IsPEM(buf) {
		return buf, "", nil
	}
	block, err := pem.Decode(buf, nil)
	if err != nil {
		return nil, "", err
	}
	switch block.Type {
	case pem.TypeCertificate, pem.TypeCertificateRequest:
		return block.Bytes, block.Type, nil
	case "NEW CERTIFICATE REQUEST":
		return block.Bytes, pem.TypeCertificateRequest, nil
	}
	return nil, "", fmt.Errorf("%w: unexpected PEM type %q", encoding.ErrUnrecognizedKey, block.Type)
}

// checkX509 accepts a certificate or request whose subject key has alg.
func checkX509(alg keys.Algorithm) func([]byte) bool {
	return func(buf []byte) bool {
		body, _, err := unarmorX509(buf)
		if err != nil {
			return false
		}
		var k keys.Key
		switch {
		case isCertificate(body):
			c, err := ParseCertificate(body)
			if err != nil {
				return false
			}
			k = c.PublicKey
		case isCertificateRequest(body):
			r, err := ParseCertificateRequest(body)
			if err != nil {
				return false
			}
			k = r.PublicKey
		default:
			return false
		}
		return k.Algorithm() == alg
	}
}
