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
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// =============================================================================
// Signature Encodings
// =============================================================================

// RawSignature converts a DER SEQUENCE{r, s} signature to the fixed-width
// r || s form JWS uses (RFC 7518 section 3.4). Each half is the byte length
// of the group order. Other schemes pass through.
func RawSignature(k keys.Key, sig []byte) ([]byte, error) {
	size := scalarSize(k)
	if size == 0 {
		return sig, nil
	}
	r, s, err := parseDERSignature(sig)
	if err != nil {
		return nil, err
	}
	if r.BitLen() > size*8 || s.BitLen() > size*8 {
		return nil, fmt.Errorf("%w: signature integer exceeds %d bytes", encoding.ErrBadSignature, size)
	}
	out := make([]byte, 2*size)
	r.FillBytes(out[:size])
	s.FillBytes(out[size:])
	return out, nil
}

// DERSignature is the inverse of RawSignature.
func DERSignature(k keys.Key, raw []byte) ([]byte, error) {
	size := scalarSize(k)
	if size == 0 {
		return raw, nil
	}
	if len(raw) != 2*size {
		return nil, fmt.Errorf("%w: raw signature must be %d bytes, got %d", encoding.ErrBadSignature, 2*size, len(raw))
	}
	r := new(big.Int).SetBytes(raw[:size])
	s := new(big.Int).SetBytes(raw[size:])
	return der.EncodeSequence(der.Integer(r), der.Integer(s))
}

func scalarSize(k keys.Key) int {
	switch key := k.(type) {
	case *keys.ECDSAKey:
		return (key.Curve().Params().N.BitLen() + 7) / 8
	case *keys.DSAKey:
		return (key.Q().BitLen() + 7) / 8
	}
	return 0
}

func parseDERSignature(sig []byte) (*big.Int, *big.Int, error) {
	elems, err := der.DecodeSequence(sig)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", encoding.ErrBadSignature, err)
	}
	if len(elems) != 2 {
		return nil, nil, fmt.Errorf("%w: expected SEQUENCE{r, s}", encoding.ErrBadSignature)
	}
	ints, err := der.Ints(elems)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", encoding.ErrBadSignature, err)
	}
	return ints[0], ints[1], nil
}
