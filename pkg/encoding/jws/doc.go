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

// Package jws implements JSON Web Signature (RFC 7515) in the compact,
// general JSON and flattened JSON serializations.
//
// Signatures are computed through the signature registry in pkg/signing, so
// every JWA "alg" it lists is available: RS*, PS*, ES*, EdDSA (Ed25519 and
// Ed448) and HS*. ECDSA signatures use the fixed-width r || s form.
//
// # Signing
//
//	obj, err := jws.Sign([]byte(`{"sub":"1234567890"}`), &jws.Signer{Key: p256Key})
//	compact, err := obj.CompactSerialize()
//
// An empty Signer.Algorithm picks the algorithm paired with the key:
// RS256 for RSA, ES256/ES384/ES512 by curve and EdDSA for Edwards keys.
// HMAC signers set Secret and an explicit HS* algorithm.
//
// # Verification
//
// Parse accepts any of the three serializations and exposes the signatures
// as a uniform list:
//
//	obj, err := jws.Parse(data)
//	sig, err := obj.Verify(publicKey)
//
// Verify returns the first signature that validates. VerifyWithResolver
// selects the key for each signature by its "kid" header.
//
// Parsing keeps the received base64url text of the protected header and
// payload, so re-serializing a parsed compact JWS reproduces its input.
package jws
