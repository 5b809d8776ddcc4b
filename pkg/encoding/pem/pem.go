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

// Package pem reads and writes PEM armor (RFC 7468) including the RFC 1421
// header block, OpenSSL's RFC 1423 "Proc-Type: 4,ENCRYPTED" key encryption
// and the RFC 4716 "---- BEGIN SSH2 PUBLIC KEY ----" variant.
//
// Unlike encoding/pem this package can decrypt and encrypt legacy blocks with
// every cipher OpenSSL writes, and it reports malformed armor as an error
// instead of silently skipping it.
package pem

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
)

// Block types written by the codecs.
const (
	TypeRSAPrivateKey       = "RSA PRIVATE KEY"
	TypeRSAPublicKey        = "RSA PUBLIC KEY"
	TypeDSAPrivateKey       = "DSA PRIVATE KEY"
	TypeDSAPublicKey        = "DSA PUBLIC KEY"
	TypeECPrivateKey        = "EC PRIVATE KEY"
	TypeECParameters        = "EC PARAMETERS"
	TypePrivateKey          = "PRIVATE KEY"
	TypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	TypePublicKey           = "PUBLIC KEY"
	TypeCertificate         = "CERTIFICATE"
	TypeCertificateRequest  = "CERTIFICATE REQUEST"
	TypeCRL                 = "X509 CRL"
	TypeOpenSSHPrivateKey   = "OPENSSH PRIVATE KEY"
	TypeSSH2PublicKey       = "SSH2 PUBLIC KEY"
)

// DefaultWidth is the BASE64 line width used when none is configured.
const DefaultWidth = 70

const (
	headerProcType = "Proc-Type"
	headerDEKInfo  = "DEK-Info"
	procEncrypted  = "4,ENCRYPTED"
)

// Armor selects the boundary style.
type Armor int

const (
	// ArmorRFC7468 is "-----BEGIN X-----".
	ArmorRFC7468 Armor = iota
	// ArmorRFC4716 is "---- BEGIN X ----".
	ArmorRFC4716
)

// Header is a single RFC 1421 or RFC 4716 header.
type Header struct {
	Key   string
	Value string
}

// Block is a decoded PEM block.
type Block struct {
	Type    string
	Headers []Header
	Bytes   []byte
	Armor   Armor
	// Cipher names the RFC 1423 cipher the block was encrypted with. It is
	// empty for plaintext blocks.
	Cipher string
}

// Header returns the first header with the given key (case-insensitive).
func (b *Block) Header(key string) (string, bool) {
	for _, h := range b.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}

// EncodeOptions controls Encode.
type EncodeOptions struct {
	// Width is the BASE64 line width; zero selects DefaultWidth.
	Width int
	// Cipher is an RFC 1423 cipher name. Empty writes a plaintext block.
	Cipher string
	// Passphrase is required when Cipher is set.
	Passphrase []byte
	// Rand is the IV source; nil selects crypto/rand.
	Rand io.Reader
}

// IsPEM reports whether data starts with a PEM or RFC 4716 boundary.
func IsPEM(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("----"))
}

// IsEncrypted reports whether the first block carries RFC 1423 encryption
// headers. Malformed input reports false.
func IsEncrypted(data []byte) bool {
	block, _, err := parse(data)
	if err != nil {
		return false
	}
	v, ok := block.Header(headerProcType)
	return ok && v == procEncrypted
}

// Peek parses the first block without decrypting it. The body of an
// encrypted block is returned as ciphertext.
func Peek(data []byte) (*Block, error) {
	block, _, err := parse(data)
	return block, err
}

// Decode parses the first block in data. Encrypted blocks are decrypted with
// passphrase; a missing passphrase yields encoding.ErrPassphraseRequired.
func Decode(data, passphrase []byte) (*Block, error) {
	block, _, err := DecodeNext(data, passphrase)
	return block, err
}

// DecodeNext parses the first block in data and returns the remaining input.
func DecodeNext(data, passphrase []byte) (*Block, []byte, error) {
	block, rest, err := parse(data)
	if err != nil {
		return nil, nil, err
	}
	if err := decrypt(block, passphrase); err != nil {
		return nil, nil, err
	}
	return block, rest, nil
}

// DecodeAll parses every block in data.
func DecodeAll(data, passphrase []byte) ([]*Block, error) {
	var blocks []*Block
	for len(bytes.TrimSpace(data)) > 0 {
		block, rest, err := DecodeNext(data, passphrase)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
		data = rest
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no PEM block found", encoding.ErrBadPEM)
	}
	return blocks, nil
}

type boundary struct {
	begin, end string
	armor      Armor
}

var boundaries = []boundary{
	{"-----BEGIN ", "-----", ArmorRFC7468},
	{"---- BEGIN ", " ----", ArmorRFC4716},
}

func parseBoundary(line, keyword string) (string, Armor, bool) {
	for _, b := range boundaries {
		prefix := strings.Replace(b.begin, "BEGIN", keyword, 1)
		if strings.HasPrefix(line, prefix) && strings.HasSuffix(line, b.end) && len(line) >= len(prefix)+len(b.end) {
			return line[len(prefix) : len(line)-len(b.end)], b.armor, true
		}
	}
	return "", 0, false
}

func parse(data []byte) (*Block, []byte, error) {
	text := strings.TrimLeft(string(data), " \t\r\n")
	lines, offsets := splitLines(text)
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("%w: empty input", encoding.ErrBadPEM)
	}

	typ, armor, ok := parseBoundary(lines[0], "BEGIN")
	if !ok {
		return nil, nil, fmt.Errorf("%w: missing BEGIN boundary", encoding.ErrBadPEM)
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if t, a, ok := parseBoundary(lines[i], "END"); ok {
			if t != typ || a != armor {
				return nil, nil, fmt.Errorf("%w: END %q does not match BEGIN %q", encoding.ErrBadPEM, t, typ)
			}
			end = i
			break
		}
	}
	if end < 0 {
		return nil, nil, fmt.Errorf("%w: missing END boundary for %q", encoding.ErrBadPEM, typ)
	}

	body := lines[1:end]
	var headers []Header
	var err error
	if armor == ArmorRFC4716 {
		headers, body, err = parseRFC4716Headers(body)
	} else {
		headers, body, err = parseRFC1421Headers(body)
	}
	if err != nil {
		return nil, nil, err
	}

	raw, err := encoding.DecodeBase64(strings.Join(body, ""))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", encoding.ErrBadPEM, err)
	}

	rest := []byte(text[offsets[end]:])
	return &Block{Type: typ, Headers: headers, Bytes: raw, Armor: armor}, rest, nil
}

// splitLines returns trimmed lines and, for each, the offset just past its
// terminator.
func splitLines(text string) ([]string, []int) {
	var lines []string
	var offsets []int
	pos := 0
	for pos < len(text) {
		i := strings.IndexByte(text[pos:], '\n')
		next := len(text)
		line := text[pos:]
		if i >= 0 {
			line = text[pos : pos+i]
			next = pos + i + 1
		}
		lines = append(lines, strings.TrimRight(line, " \t\r"))
		offsets = append(offsets, next)
		pos = next
	}
	return lines, offsets
}

func parseRFC1421Headers(body []string) ([]Header, []string, error) {
	if len(body) == 0 || !strings.Contains(body[0], ":") {
		return nil, body, nil
	}
	var headers []Header
	i := 0
	for ; i < len(body); i++ {
		line := body[i]
		if line == "" {
			i++
			break
		}
		if (line[0] == ' ' || line[0] == '\t') && len(headers) > 0 {
			headers[len(headers)-1].Value += strings.TrimSpace(line)
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, nil, fmt.Errorf("%w: header block not terminated by a blank line", encoding.ErrBadPEM)
		}
		headers = append(headers, Header{Key: strings.TrimSpace(k), Value: strings.TrimSpace(v)})
	}

	if headers[0].Key == headerProcType && headers[0].Value == procEncrypted {
		if len(headers) < 2 || headers[1].Key != headerDEKInfo {
			return nil, nil, fmt.Errorf("%w: Proc-Type 4,ENCRYPTED without DEK-Info", encoding.ErrBadPEM)
		}
	}
	return headers, body[i:], nil
}

func parseRFC4716Headers(body []string) ([]Header, []string, error) {
	var headers []Header
	i := 0
	for i < len(body) && strings.Contains(body[i], ":") {
		line := body[i]
		i++
		for strings.HasSuffix(line, `\`) && i < len(body) {
			line = strings.TrimSuffix(line, `\`) + body[i]
			i++
		}
		k, v, _ := strings.Cut(line, ":")
		v = strings.TrimSpace(v)
		if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
			v = v[1 : len(v)-1]
		}
		headers = append(headers, Header{Key: strings.TrimSpace(k), Value: v})
	}
	return headers, body[i:], nil
}

func decrypt(block *Block, passphrase []byte) error {
	proc, ok := block.Header(headerProcType)
	if !ok || proc != procEncrypted {
		return nil
	}
	dek, _ := block.Header(headerDEKInfo)
	name, ivHex, ok := strings.Cut(dek, ",")
	if !ok {
		return fmt.Errorf("%w: malformed DEK-Info %q", encoding.ErrBadPEM, dek)
	}
	c, err := CipherByName(name)
	if err != nil {
		return err
	}
	iv, err := hex.DecodeString(strings.TrimSpace(ivHex))
	if err != nil || len(iv) != c.BlockSize {
		return fmt.Errorf("%w: malformed DEK-Info IV", encoding.ErrBadPEM)
	}
	if len(passphrase) == 0 {
		return encoding.ErrPassphraseRequired
	}
	plain, err := c.decrypt(block.Bytes, passphrase, iv)
	if err != nil {
		return err
	}
	block.Bytes = plain
	block.Cipher = c.Name
	block.Headers = withoutEncryptionHeaders(block.Headers)
	return nil
}

func withoutEncryptionHeaders(in []Header) []Header {
	var out []Header
	for _, h := range in {
		if h.Key == headerProcType || h.Key == headerDEKInfo {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Encode armors block. When opts.Cipher is set the body is encrypted and the
// Proc-Type and DEK-Info headers are prepended.
func Encode(block *Block, opts *EncodeOptions) ([]byte, error) {
	if opts == nil {
		opts = &EncodeOptions{}
	}
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}

	body := block.Bytes
	headers := withoutEncryptionHeaders(block.Headers)
	if opts.Cipher != "" {
		if block.Armor == ArmorRFC4716 {
			return nil, fmt.Errorf("%w: RFC 4716 armor cannot be encrypted", encoding.ErrUnsupportedCipher)
		}
		c, err := CipherByName(opts.Cipher)
		if err != nil {
			return nil, err
		}
		if len(opts.Passphrase) == 0 {
			return nil, encoding.ErrPassphraseRequired
		}
		r := opts.Rand
		if r == nil {
			r = rand.Reader
		}
		iv := make([]byte, c.BlockSize)
		if _, err := io.ReadFull(r, iv); err != nil {
			return nil, fmt.Errorf("pem: reading IV: %w", err)
		}
		body, err = c.encrypt(block.Bytes, opts.Passphrase, iv)
		if err != nil {
			return nil, err
		}
		headers = append([]Header{
			{Key: headerProcType, Value: procEncrypted},
			{Key: headerDEKInfo, Value: c.Name + "," + strings.ToUpper(hex.EncodeToString(iv))},
		}, headers...)
	}

	var buf bytes.Buffer
	if block.Armor == ArmorRFC4716 {
		fmt.Fprintf(&buf, "---- BEGIN %s ----\n", block.Type)
		for _, h := range headers {
			writeRFC4716Header(&buf, h)
		}
	} else {
		fmt.Fprintf(&buf, "-----BEGIN %s-----\n", block.Type)
		for _, h := range headers {
			fmt.Fprintf(&buf, "%s: %s\n", h.Key, h.Value)
		}
		if len(headers) > 0 {
			buf.WriteByte('\n')
		}
	}
	for _, line := range encoding.WrapLines(encoding.EncodeBase64(body), width) {
		if line == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if block.Armor == ArmorRFC4716 {
		fmt.Fprintf(&buf, "---- END %s ----\n", block.Type)
	} else {
		fmt.Fprintf(&buf, "-----END %s-----\n", block.Type)
	}
	return buf.Bytes(), nil
}

// RFC 4716 header lines are limited to 72 bytes and continued with '\'.
const rfc4716LineMax = 72

func writeRFC4716Header(buf *bytes.Buffer, h Header) {
	value := h.Value
	if strings.EqualFold(h.Key, "Comment") {
		value = `"` + value + `"`
	}
	line := h.Key + ": " + value
	for len(line) > rfc4716LineMax {
		buf.WriteString(line[:rfc4716LineMax-1])
		buf.WriteString("\\\n")
		line = line[rfc4716LineMax-1:]
	}
	buf.WriteString(line)
	buf.WriteByte('\n')
}
