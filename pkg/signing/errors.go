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

package signing

import "errors"

var (
	// ErrSignerRequired indicates a nil key was provided
	ErrSignerRequired = errors.New("signing: signer is required")

	// ErrInvalidSignerOpts indicates the options do not fit the bound algorithm
	ErrInvalidSignerOpts = errors.New("signing: invalid signer options")

	// ErrInvalidHashFunction indicates an invalid or unavailable hash function
	ErrInvalidHashFunction = errors.New("signing: invalid or unavailable hash function")

	// ErrKeyMismatch indicates the key cannot be used with the algorithm
	ErrKeyMismatch = errors.New("signing: key does not match algorithm")

	// ErrPrivateKeyRequired indicates a public key was given to a signing operation
	ErrPrivateKeyRequired = errors.New("signing: private key required")
)
