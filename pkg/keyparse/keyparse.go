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

// Package keyparse identifies and decodes keys of unknown format by trying
// every registered codec in a fixed priority order.
package keyparse

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/logging"

	// Registers the X.509 certificate codecs.
	_ "github.com/jeremyhahn/go-keycodec/pkg/x509util"
)

// Result is a successfully parsed key and the codec that produced it.
type Result struct {
	Key       keys.Key
	Format    codec.Format
	Algorithm keys.Algorithm
	// Encrypted reports RFC 1423 PEM or PKCS#8 encryption. OpenSSH keys
	// decrypt inside their codec and are not reported.
	Encrypted bool
}

// Parser tries codecs in Order. The zero value uses codec.Formats().
type Parser struct {
	// Order is the format priority; nil selects codec.Formats().
	Order []codec.Format
	// Logger receives one debug line per codec tried; nil is silent.
	Logger *logging.Logger
}

// New returns a parser with the default order.
func New(logger *logging.Logger) *Parser {
	return &Parser{Logger: logger}
}

// Parse decodes buf with the default parser.
func Parse(buf, passphrase []byte) (keys.Key, error) {
	res, err := (&Parser{}).Parse(buf, passphrase)
	if err != nil {
		return nil, err
	}
	return res.Key, nil
}

// Identify reports the format and algorithm of buf without decoding it.
// Encrypted input is identified from its armor alone.
func Identify(buf []byte) (codec.Format, keys.Algorithm, error) {
	return (&Parser{}).Identify(buf)
}

func (p *Parser) order() []codec.Format {
	if p.Order != nil {
		return p.Order
	}
	return codec.Formats()
}

// Parse returns the first successful decode of buf. RFC 1423 PEM encryption
// and encrypted PKCS#8 are removed first with passphrase. Failures that only
// mean "not this codec" are skipped; any other failure, including a missing
// or wrong passphrase, is returned at once.
func (p *Parser) Parse(buf, passphrase []byte) (*Result, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty input", encoding.ErrInvalidData)
	}
	prepared, err := codec.Prepare(buf, passphrase)
	if err != nil {
		p.Logger.Debug("pem decryption failed", "error", err)
		return nil, err
	}
	encrypted := pem.IsEncrypted(buf)

	if res, ok, err := p.encryptedPKCS8(prepared, passphrase); ok {
		return res, err
	}

	opts := &codec.Options{Passphrase: passphrase}
	for _, f := range p.order() {
		for _, c := range codec.ForFormat(f) {
			if !c.Check(prepared) {
				continue
			}
			p.Logger.Debug("codec tried", "format", f, "algorithm", c.Algorithm())
			k, err := c.Decode(prepared, opts)
			if err == nil {
				p.Logger.Debug("codec matched", "format", f, "algorithm", k.Algorithm())
				return &Result{
					Key:       k,
					Format:    f,
					Algorithm: k.Algorithm(),
					Encrypted: encrypted,
				}, nil
			}
			if !codec.IsMismatch(err) {
				return nil, fmt.Errorf("%s: %w", c, err)
			}
			p.Logger.Debug("codec rejected input", "format", f, "algorithm", c.Algorithm(), "error", err)
		}
	}
	return nil, fmt.Errorf("%w: no codec accepted the input", encoding.ErrUnrecognizedKey)
}

// Identify runs only the Check step.
func (p *Parser) Identify(buf []byte) (codec.Format, keys.Algorithm, error) {
	if b, err := unarmorEncryptedPKCS8(buf); err == nil && codec.IsEncryptedPKCS8(b) {
		return codec.FormatPKCS8, "", nil
	}
	for _, f := range p.order() {
		for _, c := range codec.ForFormat(f) {
			if c.Check(buf) {
				return f, c.Algorithm(), nil
			}
		}
	}
	return "", "", fmt.Errorf("%w: no codec accepted the input", encoding.ErrUnrecognizedKey)
}

func (p *Parser) encryptedPKCS8(buf, passphrase []byte) (*Result, bool, error) {
	b, err := unarmorEncryptedPKCS8(buf)
	if err != nil || !codec.IsEncryptedPKCS8(b) {
		return nil, false, nil
	}
	p.Logger.Debug("codec tried", "format", codec.FormatPKCS8, "encrypted", true)
	k, err := codec.DecryptPKCS8(b, passphrase)
	if err != nil {
		return nil, true, err
	}
	p.Logger.Debug("codec matched", "format", codec.FormatPKCS8, "algorithm", k.Algorithm())
	return &Result{Key: k, Format: codec.FormatPKCS8, Algorithm: k.Algorithm(), Encrypted: true}, true, nil
}

func unarmorEncryptedPKCS8(buf []byte) ([]byte, error) {
	if !pem.IsPEM(buf) {
		return buf, nil
	}
	block, err := pem.Peek(buf)
	if err != nil {
		return nil, err
	}
	if block.Type != pem.TypeEncryptedPrivateKey {
		return nil, errNotEncryptedPKCS8
	}
	return block.Bytes, nil
}

var errNotEncryptedPKCS8 = errors.New("not an encrypted PKCS#8 block")
