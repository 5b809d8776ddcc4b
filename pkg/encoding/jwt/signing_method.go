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
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jwa"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/jws"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
)

var (
	ErrInvalidSignatureAlgorithm = errors.New("jwt: invalid signature algorithm")
	ErrInvalidKey                = errors.New("jwt: invalid key type")
)

func init() {
	for _, alg := range signing.Algorithms() {
		if alg.JWA == "" {
			continue
		}
		method := &SigningMethod{alg: alg}
		jwt.RegisterSigningMethod(alg.JWA, func() jwt.SigningMethod { return method })
	}
}

// SigningMethod implements jwt.SigningMethod over the signature registry.
// It replaces the golang-jwt built-ins for the same "alg" names and adds
// Ed448 under EdDSA.
//
// Sign accepts a private keys.Key, a crypto.PrivateKey or, for HS*, a
// []byte secret. Verify accepts the matching public key or secret.
type SigningMethod struct {
	alg *signing.Algorithm
}

// NewSigningMethod looks up a JWS "alg" value.
func NewSigningMethod(alg string) (*SigningMethod, error) {
	a, err := jwa.SignatureByName(alg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignatureAlgorithm, err)
	}
	return &SigningMethod{alg: a}, nil
}

// Alg returns the JWT algorithm string (RS256, ES256, EdDSA, etc.)
func (sm *SigningMethod) Alg() string {
	return sm.alg.JWA
}

// Algorithm returns the registry entry behind the method.
func (sm *SigningMethod) Algorithm() *signing.Algorithm {
	return sm.alg
}

// Sign signs the signing string.
func (sm *SigningMethod) Sign(signingString string, key interface{}) ([]byte, error) {
	k, secret, err := sm.material(key)
	if err != nil {
		return nil, err
	}
	return jws.SignBytes(sm.alg, k, secret, rand.Reader, []byte(signingString))
}

// Verify verifies the signature of the signing string.
func (sm *SigningMethod) Verify(signingString string, sig []byte, key interface{}) error {
	k, secret, err := sm.material(key)
	if err != nil {
		return err
	}
	if err := jws.VerifyBytes(sm.alg, k, secret, []byte(signingString), sig); err != nil {
		return fmt.Errorf("%w: %w", jwt.ErrSignatureInvalid, err)
	}
	return nil
}

func (sm *SigningMethod) material(key interface{}) (keys.Key, []byte, error) {
	if sm.alg.Scheme == signing.SchemeHMAC {
		secret, ok := key.([]byte)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s needs a []byte secret, got %T", ErrInvalidKey, sm.alg.JWA, key)
		}
		return nil, secret, nil
	}
	switch k := key.(type) {
	case keys.Key:
		return k, nil, nil
	case []byte, nil:
		return nil, nil, fmt.Errorf("%w: %s needs an asymmetric key, got %T", ErrInvalidKey, sm.alg.JWA, key)
	}
	k, err := keys.FromCrypto(key)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return k, nil, nil
}
