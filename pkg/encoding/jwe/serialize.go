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

package jwe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwa"
)

type jsonRecipient struct {
	Header       json.RawMessage `json:"header,omitempty"`
	EncryptedKey string          `json:"encrypted_key,omitempty"`
}

type jsonJWE struct {
	Protected   string           `json:"protected,omitempty"`
	Unprotected json.RawMessage  `json:"unprotected,omitempty"`
	Recipients  []*jsonRecipient `json:"recipients,omitempty"`
	Header      json.RawMessage  `json:"header,omitempty"`
	// EncryptedKey is only set in the flattened form.
	EncryptedKey string `json:"encrypted_key,omitempty"`
	AAD          string `json:"aad,omitempty"`
	IV           string `json:"iv"`
	Ciphertext   string `json:"ciphertext"`
	Tag          string `json:"tag"`
}

// CompactSerialize returns the five-part compact form.
func (j *JWE) CompactSerialize() (string, error) {
	if len(j.Recipients) != 1 || len(j.Recipients[0].Header) > 0 || len(j.Unprotected) > 0 || j.AAD != nil {
		return "", ErrNotCompact
	}
	return strings.Join([]string{
		j.rawProtected,
		encoding.EncodeBase64URL(j.Recipients[0].EncryptedKey),
		encoding.EncodeBase64URL(j.IV),
		encoding.EncodeBase64URL(j.Ciphertext),
		encoding.EncodeBase64URL(j.Tag),
	}, "."), nil
}

// GeneralJSON returns the general JSON serialization.
func (j *JWE) GeneralJSON() ([]byte, error) {
	out, err := j.jsonShared()
	if err != nil {
		return nil, err
	}
	for _, ri := range j.Recipients {
		jr, err := ri.toJSON()
		if err != nil {
			return nil, err
		}
		out.Recipients = append(out.Recipients, jr)
	}
	return json.Marshal(out)
}

// FlattenedJSON returns the flattened JSON serialization. It requires
// exactly one recipient.
func (j *JWE) FlattenedJSON() ([]byte, error) {
	if len(j.Recipients) != 1 {
		return nil, fmt.Errorf("%w: flattened serialization needs one recipient, have %d", encoding.ErrInvalidData, len(j.Recipients))
	}
	out, err := j.jsonShared()
	if err != nil {
		return nil, err
	}
	jr, err := j.Recipients[0].toJSON()
	if err != nil {
		return nil, err
	}
	out.Header, out.EncryptedKey = jr.Header, jr.EncryptedKey
	return json.Marshal(out)
}

func (j *JWE) jsonShared() (*jsonJWE, error) {
	if len(j.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	out := &jsonJWE{
		Protected:  j.rawProtected,
		IV:         encoding.EncodeBase64URL(j.IV),
		Ciphertext: encoding.EncodeBase64URL(j.Ciphertext),
		Tag:        encoding.EncodeBase64URL(j.Tag),
	}
	if j.rawAAD != "" {
		out.AAD = j.rawAAD
	} else if j.AAD != nil {
		out.AAD = encoding.EncodeBase64URL(j.AAD)
	}
	if len(j.Unprotected) > 0 {
		raw, err := json.Marshal(j.Unprotected)
		if err != nil {
			return nil, fmt.Errorf("encode JWE unprotected header: %w", err)
		}
		out.Unprotected = raw
	}
	return out, nil
}

func (ri *RecipientInfo) toJSON() (*jsonRecipient, error) {
	jr := &jsonRecipient{EncryptedKey: encoding.EncodeBase64URL(ri.EncryptedKey)}
	if len(ri.Header) > 0 {
		raw, err := json.Marshal(ri.Header)
		if err != nil {
			return nil, fmt.Errorf("encode JWE recipient header: %w", err)
		}
		jr.Header = raw
	}
	return jr, nil
}

// Parse accepts the compact, general JSON or flattened JSON serialization.
func Parse(data []byte) (*JWE, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		return ParseJSON(data)
	}
	return ParseCompact(string(data))
}

// ParseCompact parses the five-part compact form.
func ParseCompact(s string) (*JWE, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: compact JWE has %d parts, want 5", encoding.ErrInvalidData, len(parts))
	}
	protected, err := jwa.ParseHeader(parts[0])
	if err != nil {
		return nil, fmt.Errorf("JWE protected header: %w", err)
	}
	var fields [4][]byte
	for i, name := range []string{"encrypted key", "iv", "ciphertext", "tag"} {
		if fields[i], err = decodeField(name, parts[i+1]); err != nil {
			return nil, err
		}
	}
	j := &JWE{
		Protected:    protected,
		Recipients:   []*RecipientInfo{{EncryptedKey: fields[0]}},
		IV:           fields[1],
		Ciphertext:   fields[2],
		Tag:          fields[3],
		rawProtected: parts[0],
	}
	if err := j.validate(); err != nil {
		return nil, err
	}
	return j, nil
}

// ParseJSON parses either JSON serialization.
func ParseJSON(data []byte) (*JWE, error) {
	var in jsonJWE
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: JWE JSON: %v", encoding.ErrInvalidData, err)
	}
	flattened := len(in.Header) > 0 || in.EncryptedKey != ""
	if flattened && in.Recipients != nil {
		return nil, fmt.Errorf("%w: JWE JSON mixes flattened and general members", encoding.ErrInvalidData)
	}
	if in.Recipients == nil {
		in.Recipients = []*jsonRecipient{{Header: in.Header, EncryptedKey: in.EncryptedKey}}
	}

	j := &JWE{rawProtected: in.Protected, rawAAD: in.AAD, Protected: jwa.Header{}}
	var err error
	if in.Protected != "" {
		if j.Protected, err = jwa.ParseHeader(in.Protected); err != nil {
			return nil, fmt.Errorf("JWE protected header: %w", err)
		}
	}
	if j.Unprotected, err = optionalHeader(in.Unprotected); err != nil {
		return nil, fmt.Errorf("JWE unprotected header: %w", err)
	}
	if in.AAD != "" {
		if j.AAD, err = encoding.DecodeBase64URL(in.AAD); err != nil {
			return nil, fmt.Errorf("JWE aad: %w", err)
		}
	}
	if j.IV, err = decodeField("iv", in.IV); err != nil {
		return nil, err
	}
	if j.Ciphertext, err = decodeField("ciphertext", in.Ciphertext); err != nil {
		return nil, err
	}
	if j.Tag, err = decodeField("tag", in.Tag); err != nil {
		return nil, err
	}
	for _, jr := range in.Recipients {
		if jr == nil {
			return nil, fmt.Errorf("%w: null JWE recipient", encoding.ErrInvalidData)
		}
		ri := &RecipientInfo{}
		if ri.Header, err = optionalHeader(jr.Header); err != nil {
			return nil, fmt.Errorf("JWE recipient header: %w", err)
		}
		if ri.EncryptedKey, err = decodeField("encrypted key", jr.EncryptedKey); err != nil {
			return nil, err
		}
		j.Recipients = append(j.Recipients, ri)
	}
	if err := j.validate(); err != nil {
		return nil, err
	}
	return j, nil
}

func decodeField(name, s string) ([]byte, error) {
	b, err := encoding.DecodeBase64URL(s)
	if err != nil {
		return nil, fmt.Errorf("JWE %s: %w", name, err)
	}
	return b, nil
}

func optionalHeader(raw json.RawMessage) (jwa.Header, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return jwa.UnmarshalHeader(raw)
}

// validate checks that every recipient has disjoint headers naming alg and enc.
func (j *JWE) validate() error {
	if len(j.Recipients) == 0 {
		return ErrNoRecipients
	}
	for i := range j.Recipients {
		h, err := j.Header(i)
		if err != nil {
			return err
		}
		if h.Algorithm() == "" || h.Encryption() == "" {
			return fmt.Errorf("%w: JWE recipient %d lacks alg or enc", encoding.ErrInvalidData, i)
		}
	}
	return nil
}
