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
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
)

// DigestInfo encodes DigestInfo{AlgorithmIdentifier(hash), digest}, the
// value RSASSA-PKCS1-v1_5 pads and signs.
func DigestInfo(hash crypto.Hash, digest []byte) ([]byte, error) {
	id, err := hashIdentifier(hash)
	if err != nil {
		return nil, err
	}
	return der.EncodeSequence(id, der.OctetString(digest))
}

// ParseDigestInfo decodes a DigestInfo. The parameters of the digest
// AlgorithmIdentifier may be NULL or absent.
func ParseDigestInfo(b []byte) (crypto.Hash, []byte, error) {
	elems, err := der.DecodeSequence(b)
	if err != nil {
		return 0, nil, err
	}
	if err := der.Expect(elems, 2, 2); err != nil {
		return 0, nil, err
	}
	hash, err := parseHashIdentifier(elems[0])
	if err != nil {
		return 0, nil, err
	}
	digest, err := elems[1].OctetString()
	if err != nil {
		return 0, nil, err
	}
	return hash, digest, nil
}

// RecoverDigestInfo applies the RSA public operation to sig, strips the
// EMSA-PKCS1-v1_5 type 1 padding and returns the digest it carries with
// the digest algorithm named inside it.
func RecoverDigestInfo(pub *rsa.PublicKey, sig []byte) (crypto.Hash, []byte, error) {
	k := (pub.N.BitLen() + 7) / 8
	if len(sig) != k {
		return 0, nil, fmt.Errorf("%w: signature is %d bytes, modulus is %d", encoding.ErrBadSignature, len(sig), k)
	}
	s := new(big.Int).SetBytes(sig)
	if s.Cmp(pub.N) >= 0 {
		return 0, nil, fmt.Errorf("%w: signature representative out of range", encoding.ErrBadSignature)
	}
	em := s.Exp(s, big.NewInt(int64(pub.E)), pub.N).FillBytes(make([]byte, k))

	// 0x00 || 0x01 || PS (>= 8 bytes of 0xff) || 0x00 || T
	if em[0] != 0 || em[1] != 1 {
		return 0, nil, fmt.Errorf("%w: bad PKCS #1 v1.5 block type", encoding.ErrBadSignature)
	}
	i := 2
	for i < len(em) && em[i] == 0xff {
		i++
	}
	if i-2 < 8 || i >= len(em) || em[i] != 0 {
		return 0, nil, fmt.Errorf("%w: bad PKCS #1 v1.5 padding", encoding.ErrBadSignature)
	}
	hash, digest, err := ParseDigestInfo(em[i+1:])
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", encoding.ErrBadSignature, err)
	}
	return hash, digest, nil
}

// verifyPKCS1v15 accepts a signature whose DigestInfo names want (or any
// digest when want is zero) and carries digest.
func verifyPKCS1v15(pub *rsa.PublicKey, want crypto.Hash, digest, sig []byte) error {
	hash, got, err := RecoverDigestInfo(pub, sig)
	if err != nil {
		return err
	}
	if want != 0 && hash != want {
		return fmt.Errorf("%w: DigestInfo names %v, expected %v", encoding.ErrBadSignature, hash, want)
	}
	if subtle.ConstantTimeCompare(got, digest) != 1 {
		return fmt.Errorf("%w: digest mismatch", encoding.ErrBadSignature)
	}
	return nil
}
