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

// Package codec converts keys to and from their interchange formats. Every
// (format, key algorithm) pair is a Codec exposing Check, Encode and Decode;
// the static registry lists them in a fixed order.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// ============================================================================
// Formats
// ============================================================================

// Format names a key interchange format.
type Format string

const (
	// FormatPKCS1 is RSA/DSA/EC "traditional" DER (RFC 8017, SEC 1).
	FormatPKCS1 Format = "pkcs1"
	// FormatPKCS8 is PrivateKeyInfo (RFC 5958), optionally encrypted.
	FormatPKCS8 Format = "pkcs8"
	// FormatSPKI is X.509 SubjectPublicKeyInfo (RFC 5280).
	FormatSPKI Format = "spki"
	// FormatX509 is an X.509 certificate carrying the key. Its codec lives
	// in package x509util.
	FormatX509 Format = "x509"
	// FormatOpenSSH is the openssh-key-v1 private key or authorized_keys line.
	FormatOpenSSH Format = "openssh"
	// FormatSSH2 is the RFC 4716 public key file.
	FormatSSH2 Format = "ssh2"
	// FormatJWK is a JSON Web Key.
	FormatJWK Format = "jwk"
	// FormatDNSKey is a DNSKEY record or BIND private key file.
	FormatDNSKey Format = "dnskey"
)

// String returns the string representation of the format.
func (f Format) String() string { return string(f) }

// Lower returns the lowercase format name.
func (f Format) Lower() string { return strings.ToLower(string(f)) }

// Equals reports whether f names the same format as s, ignoring case.
func (f Format) Equals(s string) bool { return strings.EqualFold(string(f), s) }

// Formats returns every format in auto-parse priority order.
func Formats() []Format {
	return []Format{FormatJWK, FormatOpenSSH, FormatSSH2, FormatX509, FormatSPKI, FormatPKCS8, FormatPKCS1, FormatDNSKey}
}

// ParseFormat returns the format named s (case-insensitive).
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if f.Equals(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: format %q", encoding.ErrUnsupportedAlgorithm, s)
}

// ============================================================================
// Options
// ============================================================================

// DefaultBcryptRounds is the OpenSSH bcrypt-pbkdf cost used by Encode.
const DefaultBcryptRounds = 16

// DefaultCipher is the RFC 1423 cipher used when a passphrase is given for
// a PEM-encrypted format without an explicit cipher.
const DefaultCipher = "AES-256-CBC"

// Options tunes Encode and Decode. A nil *Options selects defaults.
type Options struct {
	// Passphrase encrypts on Encode and decrypts on Decode.
	Passphrase []byte
	// PEM armors binary encodings. Encrypted PKCS#1 output is always PEM.
	PEM bool
	// Cipher is the RFC 1423 PEM cipher. For PKCS#8, setting Cipher selects
	// legacy PEM encryption instead of ENCRYPTED PRIVATE KEY.
	Cipher string
	// Width is the BASE64 line width for armored output; zero is 70.
	Width int
	// Comment is written into OpenSSH and SSH2 keys.
	Comment string
	// Public forces the public encoding of a private key.
	Public bool
	// Rounds is the OpenSSH bcrypt-pbkdf cost; zero is DefaultBcryptRounds.
	Rounds int
	// Rand supplies salts, IVs and check bytes; nil is crypto/rand.
	Rand io.Reader

	// DNSFlags are the DNSKEY flags; zero is 256 (zone key).
	DNSFlags uint16
	// DNSAlgorithm overrides the DNSSEC algorithm number for RSA and DSA.
	DNSAlgorithm uint8
	// DNSCreated, DNSPublish and DNSActivate are the private key file
	// timestamps; zero values use the current time.
	DNSCreated, DNSPublish, DNSActivate time.Time

	// Subject is the distinguished name of certificates written by the
	// X.509 codec, as "CN=example,O=Org". Empty uses the key algorithm.
	Subject string
	// Validity is the certificate lifetime; zero is one year.
	Validity time.Duration
	// Request makes the X.509 codec write a PKCS#10 request instead of a
	// self-signed certificate.
	Request bool
}

func (o *Options) passphrase() []byte {
	if o == nil {
		return nil
	}
	return o.Passphrase
}

func (o *Options) public() bool { return o != nil && o.Public }

func (o *Options) pem() bool { return o != nil && o.PEM }

func (o *Options) width() int {
	if o == nil || o.Width <= 0 {
		return pem.DefaultWidth
	}
	return o.Width
}

func (o *Options) comment() string {
	if o == nil {
		return ""
	}
	return o.Comment
}

func (o *Options) rounds() int {
	if o == nil || o.Rounds <= 0 {
		return DefaultBcryptRounds
	}
	return o.Rounds
}

func (o *Options) random() io.Reader {
	if o == nil {
		return nil
	}
	return o.Rand
}

// ============================================================================
// Codec
// ============================================================================

// Codec encodes and decodes one key algorithm in one format.
type Codec interface {
	// Format is the interchange format.
	Format() Format
	// Algorithm is the key algorithm handled.
	Algorithm() keys.Algorithm
	// Check reports whether buf looks like this format and algorithm. It
	// never needs a passphrase.
	Check(buf []byte) bool
	// Encode serializes k, the public form when k is public or opts.Public.
	Encode(k keys.Key, opts *Options) ([]byte, error)
	// Decode parses buf.
	Decode(buf []byte, opts *Options) (keys.Key, error)
}

type codec struct {
	format Format
	alg    keys.Algorithm
	check  func(buf []byte) bool
	encode func(k keys.Key, opts *Options) ([]byte, error)
	decode func(buf []byte, opts *Options) (keys.Key, error)
}

func (c *codec) Format() Format            { return c.format }
func (c *codec) Algorithm() keys.Algorithm { return c.alg }
func (c *codec) Check(buf []byte) bool     { return c.check(buf) }

func (c *codec) Encode(k keys.Key, opts *Options) ([]byte, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: nil key", encoding.ErrInvalidData)
	}
	if k.Algorithm() != c.alg {
		return nil, fmt.Errorf("%w: %s codec cannot encode %s keys", encoding.ErrUnsupportedAlgorithm, c, k.Algorithm())
	}
	return c.encode(k, opts)
}

func (c *codec) Decode(buf []byte, opts *Options) (keys.Key, error) {
	if len(bytes.TrimSpace(buf)) == 0 {
		return nil, fmt.Errorf("%w: empty input", encoding.ErrInvalidData)
	}
	k, err := c.decode(buf, opts)
	if err != nil {
		return nil, err
	}
	if k.Algorithm() != c.alg {
		return nil, fmt.Errorf("%w: %s codec decoded a %s key", encoding.ErrUnrecognizedKey, c, k.Algorithm())
	}
	return k, nil
}

func (c *codec) String() string { return string(c.format) + "/" + c.alg.Lower() }

// registry is populated from the per-format tables at package init.
var registry []Codec

func register(cs ...*codec) {
	for _, c := range cs {
		registry = append(registry, c)
	}
}

// NewCodec assembles a Codec from its functions. Formats implemented
// outside this package use it with Register.
func NewCodec(
	format Format,
	alg keys.Algorithm,
	check func(buf []byte) bool,
	encode func(k keys.Key, opts *Options) ([]byte, error),
	decode func(buf []byte, opts *Options) (keys.Key, error),
) Codec {
	return &codec{format: format, alg: alg, check: check, encode: encode, decode: decode}
}

// Register adds codecs to the registry. It must only be called from
// package init functions.
func Register(cs ...Codec) {
	registry = append(registry, cs...)
}

// All returns every registered codec grouped by format in Formats order.
func All() []Codec {
	out := make([]Codec, 0, len(registry))
	for _, f := range Formats() {
		out = append(out, ForFormat(f)...)
	}
	return out
}

// ForFormat returns the codecs of one format.
func ForFormat(f Format) []Codec {
	var out []Codec
	for _, c := range registry {
		if c.Format() == f {
			out = append(out, c)
		}
	}
	return out
}

// Lookup returns the codec for a format and algorithm.
func Lookup(f Format, alg keys.Algorithm) (Codec, error) {
	for _, c := range registry {
		if c.Format() == f && c.Algorithm() == alg {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s codec for %s keys", encoding.ErrUnsupportedAlgorithm, f, alg)
}

// Encode serializes k in format f.
func Encode(f Format, k keys.Key, opts *Options) ([]byte, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: nil key", encoding.ErrInvalidData)
	}
	c, err := Lookup(f, k.Algorithm())
	if err != nil {
		return nil, err
	}
	return c.Encode(k, opts)
}

// Decode parses buf as format f, trying each algorithm whose Check accepts
// the input. Encrypted PEM and encrypted PKCS#8 are decrypted first.
func Decode(f Format, buf []byte, opts *Options) (keys.Key, error) {
	buf, err := Prepare(buf, opts.passphrase())
	if err != nil {
		return nil, err
	}
	if k, ok, err := decryptPrepared(buf, opts.passphrase()); ok {
		return k, err
	}
	var firstErr error
	for _, c := range ForFormat(f) {
		if !c.Check(buf) {
			continue
		}
		k, err := c.Decode(buf, opts)
		if err == nil {
			return k, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, fmt.Errorf("%w: input is not %s", encoding.ErrUnrecognizedKey, f)
}

// Prepare removes RFC 1423 PEM encryption. Plain PEM and other input is
// returned unchanged so that codecs can still see the armor type.
func Prepare(buf, passphrase []byte) ([]byte, error) {
	if !pem.IsEncrypted(buf) {
		return buf, nil
	}
	block, err := pem.Decode(buf, passphrase)
	if err != nil {
		return nil, err
	}
	// Padding can verify by chance under a wrong passphrase.
	if _, err := der.DecodeElement(block.Bytes); err != nil {
		return nil, fmt.Errorf("%w: decrypted PEM body is not DER", encoding.ErrBadPassphrase)
	}
	return pem.Encode(&pem.Block{Type: block.Type, Headers: block.Headers, Bytes: block.Bytes}, nil)
}

// decryptPrepared handles inputs that no Check can classify without the
// passphrase: ENCRYPTED PRIVATE KEY in DER or PEM.
func decryptPrepared(buf, passphrase []byte) (keys.Key, bool, error) {
	b, err := unarmor(buf, nil, pem.TypeEncryptedPrivateKey)
	if err != nil || !IsEncryptedPKCS8(b) {
		return nil, false, nil
	}
	k, err := DecryptPKCS8(b, passphrase)
	return k, true, err
}

// ============================================================================
// Armor helpers
// ============================================================================

// unarmor returns the DER payload of buf. PEM input must carry one of
// types and is decrypted with passphrase.
func unarmor(buf, passphrase []byte, types ...string) ([]byte, error) {
	if !pem.IsPEM(buf) {
		return buf, nil
	}
	block, err := pem.Decode(buf, passphrase)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		if block.Type == t {
			return block.Bytes, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected PEM type %q", encoding.ErrUnrecognizedKey, block.Type)
}

// wrongPassphrase turns a structural failure after RFC 1423 decryption into
// ErrBadPassphrase: the padding check passed by chance but the plaintext is
// garbage.
func wrongPassphrase(buf []byte, err error) error {
	if err != nil && pem.IsEncrypted(buf) && errors.Is(err, encoding.ErrBadASN1) {
		return fmt.Errorf("%w: %v", encoding.ErrBadPassphrase, err)
	}
	return err
}

// peek returns the DER payload for Check. Encrypted PEM blocks cannot be
// inspected; ok then reports only whether the block type matches.
func peek(buf []byte, types ...string) (body []byte, encrypted, ok bool) {
	if !pem.IsPEM(buf) {
		return buf, false, true
	}
	block, err := pem.Peek(buf)
	if err != nil {
		return nil, false, false
	}
	matched := false
	for _, t := range types {
		if block.Type == t {
			matched = true
			break
		}
	}
	if !matched {
		return nil, false, false
	}
	if _, isEnc := block.Header("Proc-Type"); isEnc {
		return nil, true, true
	}
	return block.Bytes, false, true
}

// armor wraps b as PEM when requested or when a passphrase requires
// RFC 1423 encryption.
func armor(b []byte, typ string, opts *Options, allowEncryption bool) ([]byte, error) {
	pass := opts.passphrase()
	encrypt := allowEncryption && len(pass) > 0
	if !opts.pem() && !encrypt {
		return b, nil
	}
	eo := &pem.EncodeOptions{Width: opts.width(), Rand: opts.random()}
	if encrypt {
		eo.Cipher = DefaultCipher
		if opts.Cipher != "" {
			eo.Cipher = opts.Cipher
		}
		eo.Passphrase = pass
	}
	return pem.Encode(&pem.Block{Type: typ, Bytes: b}, eo)
}

// IsMismatch reports errors meaning "not this codec" rather than a failure
// on input the codec recognized.
func IsMismatch(err error) bool {
	return errors.Is(err, encoding.ErrUnrecognizedKey) || errors.Is(err, encoding.ErrBadASN1)
}
