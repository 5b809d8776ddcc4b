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

package encoding

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Charset identifies a BASE64 alphabet.
type Charset int

const (
	// CharsetStandard is RFC 4648 section 4 ("+/", padded).
	CharsetStandard Charset = iota
	// CharsetURL is RFC 4648 section 5 ("-_", unpadded).
	CharsetURL
	// CharsetBcrypt is the OpenBSD bcrypt alphabet ("./" then A-Za-z0-9, unpadded).
	CharsetBcrypt
)

const bcryptAlphabet = "./ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var bcryptEncoding = base64.NewEncoding(bcryptAlphabet).WithPadding(base64.NoPadding)

// String returns the charset name.
func (c Charset) String() string {
	switch c {
	case CharsetStandard:
		return "standard"
	case CharsetURL:
		return "url"
	case CharsetBcrypt:
		return "bcrypt"
	default:
		return "unknown"
	}
}

// EncodeBase64 encodes with the standard padded alphabet.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBase64 decodes the standard alphabet. Missing padding and embedded
// whitespace are tolerated.
func DecodeBase64(s string) ([]byte, error) {
	out, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(stripSpace(s), "="))
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrInvalidData, err)
	}
	return out, nil
}

// EncodeBase64URL encodes with the URL-safe alphabet and strips padding.
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBase64URL decodes the URL-safe alphabet with or without padding.
func DecodeBase64URL(s string) ([]byte, error) {
	out, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: base64url: %v", ErrInvalidData, err)
	}
	return out, nil
}

// EncodeBase64Bcrypt encodes with the bcrypt alphabet and strips padding.
func EncodeBase64Bcrypt(b []byte) string {
	return bcryptEncoding.EncodeToString(b)
}

// DecodeBase64Bcrypt decodes the bcrypt alphabet with or without padding.
func DecodeBase64Bcrypt(s string) ([]byte, error) {
	out, err := bcryptEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: bcrypt base64: %v", ErrInvalidData, err)
	}
	return out, nil
}

// ValidCharsets reports every BASE64 alphabet that can represent b, in
// Charset order. Padding characters are ignored at the end of the input.
func ValidCharsets(b []byte) []Charset {
	trimmed := strings.TrimRight(string(b), "=")
	if trimmed == "" {
		return nil
	}
	var out []Charset
	if allIn(trimmed, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/") {
		out = append(out, CharsetStandard)
	}
	if allIn(trimmed, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_") {
		out = append(out, CharsetURL)
	}
	if len(trimmed) == len(b) && allIn(trimmed, bcryptAlphabet) {
		out = append(out, CharsetBcrypt)
	}
	return out
}

// WrapLines splits s into lines of at most width characters.
func WrapLines(s string, width int) []string {
	if width <= 0 || len(s) <= width {
		return []string{s}
	}
	lines := make([]string, 0, len(s)/width+1)
	for len(s) > width {
		lines = append(lines, s[:width])
		s = s[width:]
	}
	if s != "" {
		lines = append(lines, s)
	}
	return lines
}

func allIn(s, alphabet string) bool {
	for _, c := range s {
		if !strings.ContainsRune(alphabet, c) {
			return false
		}
	}
	return true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
