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
	"fmt"
	"io"

	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// Signer binds a private key to a registered algorithm and implements
// crypto.Signer, so keys from any codec can drive crypto/x509 and other
// standard-library consumers.
type Signer struct {
	key keys.Key
	alg *Algorithm
}

// NewSigner creates a signer for key. A nil alg selects DefaultFor(key).
func NewSigner(key keys.Key, alg *Algorithm) (*Signer, error) {
	if key == nil {
		return nil, ErrSignerRequired
	}
	if !key.IsPrivate() {
		return nil, ErrPrivateKeyRequired
	}
	if alg == nil {
		var err error
		if alg, err = DefaultFor(key); err != nil {
			return nil, err
		}
	}
	if err := alg.CheckKey(key); err != nil {
		return nil, err
	}
	return &Signer{key: key, alg: alg}, nil
}

// Public returns the public key corresponding to the wrapped key.
// Implements crypto.Signer.
func (s *Signer) Public() crypto.PublicKey {
	return s.key.CryptoPublicKey()
}

// Key returns the bound key.
func (s *Signer) Key() keys.Key { return s.key }

// Algorithm returns the bound algorithm.
func (s *Signer) Algorithm() *Algorithm { return s.alg }

// Sign signs the provided digest. Implements crypto.Signer.
//
// The opts parameter can be:
//   - *SignerOpts: message signing and PSS selection
//   - *rsa.PSSOptions: RSA-PSS with the given digest
//   - crypto.Hash: plain digest signing
//   - nil: the bound algorithm's digest
//
// The digest must match the bound algorithm except that an RSA signer
// accepts any registered digest, as crypto/x509 expects.
func (s *Signer) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	alg := s.alg
	hash := alg.Hash
	pss := alg.Scheme == SchemePSS

	switch o := opts.(type) {
	case *SignerOpts:
		d, err := o.Digest(digest)
		if err != nil {
			return nil, fmt.Errorf("failed to get digest: %w", err)
		}
		digest, hash, pss = d, o.Hash, pss || o.IsPSS()
	case *rsa.PSSOptions:
		hash, pss = o.Hash, true
	case nil:
	default:
		hash = opts.HashFunc()
	}

	if hash != alg.Hash || pss != (alg.Scheme == SchemePSS) {
		var err error
		if alg, err = s.variant(hash, pss); err != nil {
			return nil, err
		}
	}
	return alg.SignDigest(rand, s.key, digest)
}

// SignMessage hashes and signs msg with the bound algorithm.
func (s *Signer) SignMessage(rand io.Reader, msg []byte) ([]byte, error) {
	return s.alg.Sign(rand, s.key, msg)
}

// variant finds the registered algorithm of the same key family for a
// different digest or padding.
func (s *Signer) variant(hash crypto.Hash, pss bool) (*Algorithm, error) {
	scheme := s.alg.Scheme
	if s.key.Algorithm() == keys.AlgorithmRSA {
		scheme = SchemePKCS1v15
		if pss {
			scheme = SchemePSS
		}
	} else if pss {
		return nil, fmt.Errorf("%w: PSS with %s key", ErrInvalidSignerOpts, s.key.Algorithm())
	}
	for _, a := range registry {
		if a.Scheme == scheme && a.Hash == hash && a.CheckKey(s.key) == nil {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %v with %s", ErrInvalidSignerOpts, hash, s.alg.Name)
}

// SupportsHashAlgorithm checks if the signer's key can sign digests of hash.
func (s *Signer) SupportsHashAlgorithm(hash crypto.Hash) bool {
	if s.alg.Scheme == SchemeEdDSA {
		return hash == 0
	}
	_, err := s.variant(hash, s.alg.Scheme == SchemePSS)
	return err == nil
}
