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

// Package jwt provides JSON Web Token (JWT) signing and verification on top
// of golang-jwt/jwt, with signatures computed by the keycodec signature
// registry.
//
// Importing the package registers a jwt.SigningMethod for every JWS "alg"
// the registry defines. The methods accept keys.Key values as well as the
// standard library key types, and EdDSA covers both Ed25519 and Ed448.
//
// # Supported Algorithms
//
//   - RS256, RS384, RS512 (RSA with PKCS#1 v1.5)
//   - PS256, PS384, PS512 (RSA with PSS)
//   - ES256, ES384, ES512 (ECDSA)
//   - EdDSA (Ed25519, Ed448)
//   - HS256, HS384, HS512 (HMAC)
//
// # Basic Usage
//
//	key, _ := keys.GenerateEdDSA(rand.Reader, keys.Ed448)
//	claims := jwt.NewClaims("keycodec", "user123", []string{"api"}, time.Hour)
//	token, err := jwt.NewSigner().Sign(key, claims)
//
//	parsed, err := jwt.NewVerifier().VerifyWithOptions(token, key.Public(), &jwt.VerifyOptions{
//	    ExpectedIssuer:   "keycodec",
//	    ExpectedAudience: "api",
//	    RequireExpiry:    true,
//	})
//
// NewClaims fills "jti" with a random UUID.
package jwt
