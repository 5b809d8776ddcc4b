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

// Package jwe implements JSON Web Encryption (RFC 7516) in the compact,
// general JSON and flattened JSON serializations.
//
// Supported Key Management Algorithms (alg):
//   - dir
//   - RSA1_5, RSA-OAEP, RSA-OAEP-256, RSA-OAEP-384, RSA-OAEP-512
//   - A128KW, A192KW, A256KW (AES Key Wrap)
//   - A128GCMKW, A192GCMKW, A256GCMKW (AES-GCM Key Wrap)
//   - PBES2-HS256+A128KW, PBES2-HS384+A192KW, PBES2-HS512+A256KW
//   - ECDH-ES, ECDH-ES+A128KW, ECDH-ES+A192KW, ECDH-ES+A256KW over P-256,
//     P-384, P-521, X25519 and X448
//
// Supported Content Encryption Algorithms (enc):
//   - A128GCM, A192GCM, A256GCM (AES-GCM)
//   - A128CBC-HS256, A192CBC-HS384, A256CBC-HS512 (AES-CBC-HMAC)
//   - "" (empty string) selects A256GCM on CPUs with AES instructions and
//     A256CBC-HS512 elsewhere
//
// # Encryption
//
//	enc := jwe.NewEncrypter("A128CBC-HS256", &jwe.Recipient{
//	    Algorithm: "ECDH-ES+A128KW",
//	    Key:       recipientPublicKey,
//	})
//	obj, err := enc.Encrypt(plaintext)
//	compact, err := obj.CompactSerialize()
//
// A single recipient without unprotected headers or additional
// authenticated data keeps every parameter in the protected header, so the
// result has a compact form. Otherwise "alg" and the per-recipient
// parameters (epk, iv, tag, p2s, p2c) go into each recipient's header and
// only the JSON serializations apply.
//
// "dir" and "ECDH-ES" make the recipient's key the CEK, so they allow one
// recipient unless Encrypter.AllowMultipleDirect is set.
//
// # Decryption
//
//	plaintext, err := jwe.Decrypt(data, privateKey)
//
// A Decrypter tries the recipients in order and returns the first that
// decrypts. Only key and decryption failures move on to the next
// recipient; when none succeeds the error wraps
// encoding.ErrDecryptionFailed. Setting Decrypter.KeyID restricts the
// attempt to recipients with that "kid".
//
// # Format
//
// JWE uses the compact serialization format (RFC 7516):
//
//	BASE64URL(Header) || '.' ||
//	BASE64URL(EncryptedKey) || '.' ||
//	BASE64URL(IV) || '.' ||
//	BASE64URL(Ciphertext) || '.' ||
//	BASE64URL(AuthTag)
//
// The additional authenticated data is ASCII(BASE64URL(Header)), followed
// by '.' and BASE64URL(aad) when the JSON "aad" member is present.
package jwe
