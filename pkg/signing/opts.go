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

import (
	"crypto"
	"crypto/rsa"
)

// SignerOpts extends crypto.SignerOpts for Signer. It supports:
//   - Standard digest signing
//   - Message signing with the digest computed by the signer
//   - RSA PSS padding options
type SignerOpts struct {
	// Message is the raw data to sign. When set, the signer hashes it
	// itself and ignores the digest argument. EdDSA always needs it.
	Message []byte

	// Hash is the digest used for the signature.
	Hash crypto.Hash

	// PSSOptions requests RSASSA-PSS. If nil, RSA keys use PKCS #1 v1.5.
	PSSOptions *rsa.PSSOptions
}

// HashFunc returns the hash function for this signing operation.
// Implements crypto.SignerOpts.
func (opts *SignerOpts) HashFunc() crypto.Hash {
	return opts.Hash
}

// NewSignerOpts creates a new SignerOpts with the specified hash function.
func NewSignerOpts(hash crypto.Hash) *SignerOpts {
	return &SignerOpts{
		Hash: hash,
	}
}

// WithMessage sets the message and returns the opts for chaining.
func (opts *SignerOpts) WithMessage(msg []byte) *SignerOpts {
	opts.Message = msg
	return opts
}

// WithPSSOptions sets the RSA-PSS options and returns the opts for chaining.
func (opts *SignerOpts) WithPSSOptions(pss *rsa.PSSOptions) *SignerOpts {
	opts.PSSOptions = pss
	return opts
}

// IsPSS returns true if this is an RSA-PSS signing operation.
func (opts *SignerOpts) IsPSS() bool {
	return opts.PSSOptions != nil
}

// Digest returns the digest to sign. If Message is set, it is hashed with
// the configured hash function; a zero hash returns the message itself.
// Otherwise the precomputed digest is returned unchanged.
func (opts *SignerOpts) Digest(precomputed []byte) ([]byte, error) {
	if opts.Message == nil {
		return precomputed, nil
	}
	if opts.Hash == 0 {
		return opts.Message, nil
	}
	if !opts.Hash.Available() {
		return nil, ErrInvalidHashFunction
	}
	h := opts.Hash.New()
	h.Write(opts.Message)
	return h.Sum(nil), nil
}
