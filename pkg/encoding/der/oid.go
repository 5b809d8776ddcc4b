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

package der

import (
	"encoding/asn1"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
)

// OIDToBytes returns the content octets of an OBJECT IDENTIFIER (no tag or
// length). The first two arcs are combined as 40*a0 + a1.
func OIDToBytes(oid asn1.ObjectIdentifier) ([]byte, error) {
	if len(oid) < 2 || oid[0] > 2 || (oid[0] < 2 && oid[1] >= 40) {
		return nil, fmt.Errorf("%w: invalid object identifier %v", encoding.ErrBadASN1, oid)
	}
	for _, arc := range oid {
		if arc < 0 {
			return nil, fmt.Errorf("%w: negative arc in %v", encoding.ErrBadASN1, oid)
		}
	}
	out := appendBase128(nil, uint64(oid[0])*40+uint64(oid[1]))
	for _, arc := range oid[2:] {
		out = appendBase128(out, uint64(arc))
	}
	return out, nil
}

// BytesToOID decodes OBJECT IDENTIFIER content octets.
func BytesToOID(b []byte) (asn1.ObjectIdentifier, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty object identifier", encoding.ErrBadASN1)
	}
	var arcs []uint64
	var v uint64
	for i, c := range b {
		if v == 0 && c == 0x80 {
			return nil, fmt.Errorf("%w: non-minimal arc encoding", encoding.ErrBadASN1)
		}
		if v > (1<<57)-1 {
			return nil, fmt.Errorf("%w: arc too large", encoding.ErrOverflow)
		}
		v = v<<7 | uint64(c&0x7f)
		if c&0x80 == 0 {
			arcs = append(arcs, v)
			v = 0
		} else if i == len(b)-1 {
			return nil, fmt.Errorf("%w: truncated object identifier", encoding.ErrBadASN1)
		}
	}
	first := arcs[0]
	var oid asn1.ObjectIdentifier
	switch {
	case first < 40:
		oid = asn1.ObjectIdentifier{0, int(first)}
	case first < 80:
		oid = asn1.ObjectIdentifier{1, int(first - 40)}
	default:
		oid = asn1.ObjectIdentifier{2, int(first - 80)}
	}
	for _, arc := range arcs[1:] {
		oid = append(oid, int(arc))
	}
	return oid, nil
}

// ParseOID parses dotted-decimal notation.
func ParseOID(s string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: %q is not a dotted object identifier", encoding.ErrInvalidData, s)
	}
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad arc %q in %q", encoding.ErrInvalidData, p, s)
		}
		oid[i] = n
	}
	return oid, nil
}

func appendBase128(dst []byte, v uint64) []byte {
	var tmp [10]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7f)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
	}
	return append(dst, tmp[i:]...)
}
