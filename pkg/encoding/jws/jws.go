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

package jws

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwa"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
)

var (
	// ErrNoSignatures indicates a JWS without any signature.
	ErrNoSignatures = errors.New("jws: no signatures")

	// ErrNotCompact indicates a JWS that cannot use the compact serialization.
	ErrNotCompact = errors.New("jws: compact serialization requires one signature and no unprotected header")
)

// Signature is one signature over the payload.
type Signature struct {
	// Protected is the integrity-protected header.
	Protected jwa.Header
	// Header is the unprotected header; nil when absent.
	Header jwa.Header
	// Signature is the raw signature value.
	Signature []byte

	rawProtected string
}

// JWS is a signed payload with one or more signatures.
type JWS struct {
	Payload    []byte
	Signatures []*Signature

	rawPayload string
}

// Signer describes how to produce one signature.
type Signer struct {
	// Algorithm is the JWS "alg". Empty selects the default for Key.
	Algorithm string
	// Key signs with an asymmetric algorithm. It must be private.
	Key keys.Key
	// Secret is the HMAC key for HS256, HS384 and HS512.
	Secret []byte
	// Protected holds extra protected header parameters such as "kid" or "typ".
	Protected jwa.Header
	// Header holds unprotected header parameters (JSON serializations only).
	Header jwa.Header
	// Rand is the randomness source; nil means crypto/rand.
	Rand io.Reader
}

// ============================================================================
// Signing
// ============================================================================

// Sign signs payload once per signer.
func Sign(payload []byte, signers ...*Signer) (*JWS, error) {
	if len(signers) == 0 {
		return nil, ErrNoSignatures
	}
	j := &JWS{Payload: payload, rawPayload: encoding.EncodeBase64URL(payload)}
	for _, s := range signers {
		if err := j.AddSignature(s); err != nil {
			return nil, err
		}
	}
	return j, nil
}

// AddSignature signs the payload with s and appends the signature.
func (j *JWS) AddSignature(s *Signer) error {
	if s == nil {
		return signing.ErrSignerRequired
	}
	algName, err := s.algorithm()
	if err != nil {
		return err
	}
	alg, err := jwa.SignatureByName(algName)
	if err != nil {
		return err
	}

	protected := s.Protected.Clone()
	if v, ok := s.Header["alg"]; ok && v != algName {
		return fmt.Errorf("%w: unprotected alg %v does not match %s", encoding.ErrInvalidData, v, algName)
	}
	if v, ok := protected["alg"]; ok && v != algName {
		return fmt.Errorf("%w: protected alg %v does not match %s", encoding.ErrInvalidData, v, algName)
	}
	if _, ok := s.Header["alg"]; !ok {
		protected["alg"] = algName
	}
	if _, err := jwa.Merge(protected, s.Header); err != nil {
		return err
	}

	rawProtected, err := protected.Encode()
	if err != nil {
		return err
	}
	input := signingInput(rawProtected, j.payloadB64())

	sig, err := SignBytes(alg, s.Key, s.Secret, s.Rand, input)
	if err != nil {
		return fmt.Errorf("jws: sign %s: %w", algName, err)
	}

	var header jwa.Header
	if len(s.Header) > 0 {
		header = s.Header.Clone()
	}
	j.Signatures = append(j.Signatures, &Signature{
		Protected:    protected,
		Header:       header,
		Signature:    sig,
		rawProtected: rawProtected,
	})
	return nil
}

func (s *Signer) algorithm() (string, error) {
	if s.Algorithm != "" {
		return s.Algorithm, nil
	}
	if s.Key == nil {
		return "", fmt.Errorf("%w: HMAC signers must name an algorithm", signing.ErrSignerRequired)
	}
	return DefaultAlgorithm(s.Key)
}

// DefaultAlgorithm returns the JWS "alg" paired with k.
func DefaultAlgorithm(k keys.Key) (string, error) {
	if k.Algorithm() == keys.AlgorithmEdDSA {
		return signing.EdDSA.JWA, nil
	}
	alg, err := signing.DefaultFor(k)
	if err != nil {
		return "", err
	}
	if alg.JWA == "" {
		return "", fmt.Errorf("%w: no JWS algorithm for %s", encoding.ErrUnsupportedAlgorithm, alg.Name)
	}
	return alg.JWA, nil
}

// SignBytes computes the JWS signature of input: an HMAC with secret for
// HS* and a signature with k otherwise. ECDSA results are r || s.
func SignBytes(alg *signing.Algorithm, k keys.Key, secret []byte, random io.Reader, input []byte) ([]byte, error) {
	if alg.Scheme == signing.SchemeHMAC {
		return alg.MAC(secret, input)
	}
	if err := checkKey(alg, k); err != nil {
		return nil, err
	}
	if random == nil {
		random = rand.Reader
	}
	sig, err := alg.Sign(random, k, input)
	if err != nil {
		return nil, err
	}
	return signing.RawSignature(k, sig)
}

// VerifyBytes checks a JWS signature produced by SignBytes.
func VerifyBytes(alg *signing.Algorithm, k keys.Key, secret []byte, input, sig []byte) error {
	if alg.Scheme == signing.SchemeHMAC {
		if secret == nil {
			return fmt.Errorf("%w: %s needs a shared secret", signing.ErrKeyMismatch, alg.JWA)
		}
		return alg.VerifyMAC(secret, input, sig)
	}
	if k == nil {
		return signing.ErrSignerRequired
	}
	if err := checkKey(alg, k); err != nil {
		return err
	}
	der, err := signing.DERSignature(k, sig)
	if err != nil {
		return err
	}
	return alg.Verify(k, input, der)
}

func checkKey(alg *signing.Algorithm, k keys.Key) error {
	if err := alg.CheckKey(k); err != nil {
		return err
	}
	if alg.JWACurve != nil {
		if ec, ok := k.(*keys.ECDSAKey); !ok || ec.Curve() != alg.JWACurve {
			return fmt.Errorf("%w: %s requires %s", signing.ErrKeyMismatch, alg.JWA, alg.JWACurve.Name)
		}
	}
	return nil
}

// ============================================================================
// Verification
// ============================================================================

// Verify returns the first signature that validates under k.
func (j *JWS) Verify(k keys.Key) (*Signature, error) {
	return j.verify(func(*Signature) (keys.Key, []byte, error) { return k, nil, nil })
}

// VerifyHMAC returns the first HS* signature that validates under secret.
func (j *JWS) VerifyHMAC(secret []byte) (*Signature, error) {
	return j.verify(func(*Signature) (keys.Key, []byte, error) { return nil, secret, nil })
}

// VerifyWithResolver resolves the key of each signature from its "kid".
func (j *JWS) VerifyWithResolver(resolve jwk.KeyResolver) (*Signature, error) {
	return j.verify(func(s *Signature) (keys.Key, []byte, error) {
		h, err := s.MergedHeader()
		if err != nil {
			return nil, nil, err
		}
		k, err := resolve(h.KeyID())
		return k, nil, err
	})
}

func (j *JWS) verify(keyFor func(*Signature) (keys.Key, []byte, error)) (*Signature, error) {
	if len(j.Signatures) == 0 {
		return nil, ErrNoSignatures
	}
	var lastErr error
	for _, s := range j.Signatures {
		k, secret, err := keyFor(s)
		if err == nil {
			err = s.verify(j.payloadB64(), k, secret)
		}
		if err == nil {
			return s, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Signature) verify(payloadB64 string, k keys.Key, secret []byte) error {
	h, err := s.MergedHeader()
	if err != nil {
		return err
	}
	if crit, ok := h["crit"]; ok {
		return fmt.Errorf("%w: critical header parameters %v", encoding.ErrUnsupportedAlgorithm, crit)
	}
	alg, err := jwa.SignatureByName(h.Algorithm())
	if err != nil {
		return err
	}
	return VerifyBytes(alg, k, secret, signingInput(s.rawProtected, payloadB64), s.Signature)
}

// MergedHeader unions the protected and unprotected headers.
func (s *Signature) MergedHeader() (jwa.Header, error) {
	return jwa.Merge(s.Protected, s.Header)
}

// Algorithm returns the "alg" of the signature.
func (s *Signature) Algorithm() string {
	if a := s.Protected.Algorithm(); a != "" {
		return a
	}
	return s.Header.Algorithm()
}

// KeyID returns the "kid" of the signature.
func (s *Signature) KeyID() string {
	if k := s.Protected.KeyID(); k != "" {
		return k
	}
	return s.Header.KeyID()
}

// ============================================================================
// Serialization
// ============================================================================

type jsonSignature struct {
	Protected string          `json:"protected,omitempty"`
	Header    json.RawMessage `json:"header,omitempty"`
	Signature string          `json:"signature"`
}

type jsonGeneral struct {
	Payload    string           `json:"payload"`
	Signatures []*jsonSignature `json:"signatures"`
}

type jsonFlattened struct {
	Payload string `json:"payload"`
	jsonSignature
}

type jsonAny struct {
	Payload    *string          `json:"payload"`
	Signatures []*jsonSignature `json:"signatures"`
	Protected  string           `json:"protected"`
	Header     json.RawMessage  `json:"header"`
	Signature  *string          `json:"signature"`
}

// CompactSerialize returns header.payload.signature.
func (j *JWS) CompactSerialize() (string, error) {
	if len(j.Signatures) != 1 || len(j.Signatures[0].Header) > 0 {
		return "", ErrNotCompact
	}
	s := j.Signatures[0]
	return signingInputString(s.rawProtected, j.payloadB64()) + "." + encoding.EncodeBase64URL(s.Signature), nil
}

// GeneralJSON returns the general JSON serialization.
func (j *JWS) GeneralJSON() ([]byte, error) {
	if len(j.Signatures) == 0 {
		return nil, ErrNoSignatures
	}
	out := jsonGeneral{Payload: j.payloadB64()}
	for _, s := range j.Signatures {
		js, err := s.toJSON()
		if err != nil {
			return nil, err
		}
		out.Signatures = append(out.Signatures, js)
	}
	return json.Marshal(out)
}

// FlattenedJSON returns the flattened JSON serialization. It requires
// exactly one signature.
func (j *JWS) FlattenedJSON() ([]byte, error) {
	if len(j.Signatures) != 1 {
		return nil, fmt.Errorf("%w: flattened serialization needs one signature, have %d", encoding.ErrInvalidData, len(j.Signatures))
	}
	js, err := j.Signatures[0].toJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonFlattened{Payload: j.payloadB64(), jsonSignature: *js})
}

func (s *Signature) toJSON() (*jsonSignature, error) {
	js := &jsonSignature{Protected: s.rawProtected, Signature: encoding.EncodeBase64URL(s.Signature)}
	if len(s.Header) > 0 {
		raw, err := json.Marshal(s.Header)
		if err != nil {
			return nil, fmt.Errorf("encode JWS header: %w", err)
		}
		js.Header = raw
	}
	return js, nil
}

// Parse accepts the compact, general JSON or flattened JSON serialization.
func Parse(data []byte) (*JWS, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		return ParseJSON(data)
	}
	return ParseCompact(string(data))
}

// ParseCompact parses header.payload.signature.
func ParseCompact(s string) (*JWS, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: compact JWS has %d parts, want 3", encoding.ErrInvalidData, len(parts))
	}
	payload, err := encoding.DecodeBase64URL(parts[1])
	if err != nil {
		return nil, fmt.Errorf("JWS payload: %w", err)
	}
	sig, err := parseSignature(parts[0], nil, parts[2])
	if err != nil {
		return nil, err
	}
	return &JWS{Payload: payload, Signatures: []*Signature{sig}, rawPayload: parts[1]}, nil
}

// ParseJSON parses either JSON serialization.
func ParseJSON(data []byte) (*JWS, error) {
	var in jsonAny
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: JWS JSON: %v", encoding.ErrInvalidData, err)
	}
	if in.Payload == nil {
		return nil, fmt.Errorf("%w: JWS JSON has no payload", encoding.ErrInvalidData)
	}
	payload, err := encoding.DecodeBase64URL(*in.Payload)
	if err != nil {
		return nil, fmt.Errorf("JWS payload: %w", err)
	}
	j := &JWS{Payload: payload, rawPayload: *in.Payload}

	flattened := in.Signature != nil
	if flattened == (in.Signatures != nil) {
		return nil, fmt.Errorf("%w: JWS JSON needs exactly one of signature or signatures", encoding.ErrInvalidData)
	}
	if flattened {
		in.Signatures = []*jsonSignature{{Protected: in.Protected, Header: in.Header, Signature: *in.Signature}}
	}
	for _, js := range in.Signatures {
		if js == nil {
			return nil, fmt.Errorf("%w: null JWS signature", encoding.ErrInvalidData)
		}
		sig, err := parseSignature(js.Protected, js.Header, js.Signature)
		if err != nil {
			return nil, err
		}
		j.Signatures = append(j.Signatures, sig)
	}
	if len(j.Signatures) == 0 {
		return nil, ErrNoSignatures
	}
	return j, nil
}

func parseSignature(rawProtected string, rawHeader json.RawMessage, rawSig string) (*Signature, error) {
	s := &Signature{rawProtected: rawProtected, Protected: jwa.Header{}}
	if rawProtected != "" {
		h, err := jwa.ParseHeader(rawProtected)
		if err != nil {
			return nil, fmt.Errorf("JWS protected header: %w", err)
		}
		s.Protected = h
	}
	if len(rawHeader) > 0 && string(rawHeader) != "null" {
		h, err := jwa.UnmarshalHeader(rawHeader)
		if err != nil {
			return nil, fmt.Errorf("JWS header: %w", err)
		}
		s.Header = h
	}
	if _, err := s.MergedHeader(); err != nil {
		return nil, err
	}
	if s.Algorithm() == "" {
		return nil, fmt.Errorf("%w: JWS header has no alg", encoding.ErrInvalidData)
	}
	sig, err := encoding.DecodeBase64URL(rawSig)
	if err != nil {
		return nil, fmt.Errorf("JWS signature: %w", err)
	}
	s.Signature = sig
	return s, nil
}

func (j *JWS) payloadB64() string {
	if j.rawPayload != "" {
		return j.rawPayload
	}
	return encoding.EncodeBase64URL(j.Payload)
}

func signingInputString(protected, payload string) string {
	return protected + "." + payload
}

func signingInput(protected, payload string) []byte {
	return []byte(signingInputString(protected, payload))
}
