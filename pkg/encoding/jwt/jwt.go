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

package jwt

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jws"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// Algorithm represents supported JWT signing algorithms
type Algorithm string

const (
	RS256 Algorithm = "RS256" // RSASSA-PKCS1-v1_5 using SHA-256
	RS384 Algorithm = "RS384" // RSASSA-PKCS1-v1_5 using SHA-384
	RS512 Algorithm = "RS512" // RSASSA-PKCS1-v1_5 using SHA-512
	ES256 Algorithm = "ES256" // ECDSA using P-256 and SHA-256
	ES384 Algorithm = "ES384" // ECDSA using P-384 and SHA-384
	ES512 Algorithm = "ES512" // ECDSA using P-521 and SHA-512
	EdDSA Algorithm = "EdDSA" // EdDSA over Ed25519 or Ed448
	PS256 Algorithm = "PS256" // RSASSA-PSS using SHA-256
	PS384 Algorithm = "PS384" // RSASSA-PSS using SHA-384
	PS512 Algorithm = "PS512" // RSASSA-PSS using SHA-512
	HS256 Algorithm = "HS256" // HMAC using SHA-256
	HS384 Algorithm = "HS384" // HMAC using SHA-384
	HS512 Algorithm = "HS512" // HMAC using SHA-512
)

// NewClaims returns registered claims issued now, expiring after ttl,
// with a random UUID as "jti".
func NewClaims(issuer, subject string, audience []string, ttl time.Duration) *jwt.RegisteredClaims {
	now := time.Now()
	c := &jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	if len(audience) > 0 {
		c.Audience = audience
	}
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return c
}

// Signer signs JWT tokens using cryptographic keys
type Signer struct{}

// NewSigner creates a new JWT signer
func NewSigner() *Signer {
	return &Signer{}
}

// Sign creates and signs a JWT with the given private key and claims.
// The signing algorithm is automatically determined from the key type.
//
// Example:
//
//	key, _ := keys.GenerateECDSA(rand.Reader, keys.P256)
//	claims := jwt.NewClaims("keycodec", "user123", nil, time.Hour)
//	token, err := jwt.NewSigner().Sign(key, claims)
func (s *Signer) Sign(key keys.Key, claims jwt.Claims) (string, error) {
	alg, err := jws.DefaultAlgorithm(key)
	if err != nil {
		return "", err
	}
	return s.SignWithAlgorithm(key, claims, Algorithm(alg))
}

// SignWithAlgorithm creates and signs a JWT with a specific algorithm.
func (s *Signer) SignWithAlgorithm(key keys.Key, claims jwt.Claims, alg Algorithm) (string, error) {
	return s.sign(key, claims, alg, "")
}

// SignWithKID creates and signs a JWT with a Key ID in the header.
// The kid field is used to identify which key was used to sign the token.
func (s *Signer) SignWithKID(key keys.Key, claims jwt.Claims, kid string) (string, error) {
	alg, err := jws.DefaultAlgorithm(key)
	if err != nil {
		return "", err
	}
	return s.sign(key, claims, Algorithm(alg), kid)
}

// SignHMAC creates a JWT authenticated with an HS* algorithm.
func (s *Signer) SignHMAC(secret []byte, claims jwt.Claims, alg Algorithm) (string, error) {
	return s.sign(secret, claims, alg, "")
}

func (s *Signer) sign(key interface{}, claims jwt.Claims, alg Algorithm, kid string) (string, error) {
	method, err := NewSigningMethod(string(alg))
	if err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(method, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	return token.SignedString(key)
}

// Verifier verifies JWT tokens
type Verifier struct{}

// NewVerifier creates a new JWT verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyOptions contains options for JWT verification
type VerifyOptions struct {
	ExpectedIssuer   string
	ExpectedAudience string
	ExpectedSubject  string
	// RequireExpiry rejects tokens without "exp".
	RequireExpiry bool
	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration
	// Algorithms restricts the accepted "alg" values. Empty accepts any
	// algorithm the key can verify.
	Algorithms []Algorithm
}

// Verify parses and verifies a JWT token with a public key.
func (v *Verifier) Verify(tokenString string, key keys.Key) (*jwt.Token, error) {
	return v.VerifyWithOptions(tokenString, key, nil)
}

// VerifyWithOptions verifies a JWT with additional claim validation.
//
// Example:
//
//	opts := &jwt.VerifyOptions{
//	    ExpectedIssuer:   "keycodec",
//	    ExpectedAudience: "my-app",
//	}
//	token, err := verifier.VerifyWithOptions(tokenString, publicKey, opts)
func (v *Verifier) VerifyWithOptions(tokenString string, key keys.Key, opts *VerifyOptions) (*jwt.Token, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil key", ErrInvalidKey)
	}
	return v.parse(tokenString, key, opts)
}

// VerifyHMAC verifies an HS* token with a shared secret.
func (v *Verifier) VerifyHMAC(tokenString string, secret []byte, opts *VerifyOptions) (*jwt.Token, error) {
	return v.parse(tokenString, secret, opts)
}

func (v *Verifier) parse(tokenString string, key interface{}, opts *VerifyOptions) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, parserOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return token, nil
}

func parserOptions(opts *VerifyOptions) []jwt.ParserOption {
	if opts == nil {
		return nil
	}
	var out []jwt.ParserOption
	if opts.ExpectedIssuer != "" {
		out = append(out, jwt.WithIssuer(opts.ExpectedIssuer))
	}
	if opts.ExpectedAudience != "" {
		out = append(out, jwt.WithAudience(opts.ExpectedAudience))
	}
	if opts.ExpectedSubject != "" {
		out = append(out, jwt.WithSubject(opts.ExpectedSubject))
	}
	if opts.RequireExpiry {
		out = append(out, jwt.WithExpirationRequired())
	}
	if opts.Leeway > 0 {
		out = append(out, jwt.WithLeeway(opts.Leeway))
	}
	if len(opts.Algorithms) > 0 {
		names := make([]string, len(opts.Algorithms))
		for i, a := range opts.Algorithms {
			names[i] = string(a)
		}
		out = append(out, jwt.WithValidMethods(names))
	}
	return out
}

// ExtractKID extracts the Key ID (kid) from a JWT token header without verifying the signature.
// Returns an empty string if no kid is present.
func ExtractKID(tokenString string) (string, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	kid, ok := token.Header["kid"].(string)
	if !ok {
		return "", nil
	}

	return kid, nil
}

// ParseAlgorithm converts an algorithm string to an Algorithm type
func ParseAlgorithm(alg string) (Algorithm, error) {
	upper := strings.ToUpper(alg)

	// EdDSA is a special case - it should be "EdDSA" not "EDDSA"
	if upper == "EDDSA" {
		return EdDSA, nil
	}

	switch Algorithm(upper) {
	case RS256, RS384, RS512, ES256, ES384, ES512, PS256, PS384, PS512, HS256, HS384, HS512:
		return Algorithm(upper), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidSignatureAlgorithm, alg)
	}
}
