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

// Package encoding provides the byte-level primitives shared by every key
// codec: an endianness-aware byte buffer, the BASE64 variants used by PEM,
// JOSE and bcrypt, and the error taxonomy returned throughout go-keycodec.
package encoding

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// ByteOrder selects how a Buffer maps to and from integers.
type ByteOrder int

const (
	// BigEndian places the most significant byte first (network order).
	BigEndian ByteOrder = iota
	// LittleEndian places the least significant byte first.
	LittleEndian
)

// String returns the string representation of the byte order.
func (o ByteOrder) String() string {
	switch o {
	case BigEndian:
		return "big"
	case LittleEndian:
		return "little"
	default:
		return "unknown"
	}
}

// Buffer is an immutable view over a byte slice with an associated byte
// order. Methods never modify the receiver; they return new buffers.
type Buffer struct {
	b     []byte
	order ByteOrder
}

// NewBuffer returns a big-endian buffer over a copy of b.
func NewBuffer(b []byte) Buffer {
	return Buffer{b: append([]byte(nil), b...), order: BigEndian}
}

// BufferFromInt returns the minimal big-endian encoding of n (at least one byte).
func BufferFromInt(n *big.Int) Buffer {
	return Buffer{b: IntToBytes(n, BigEndian), order: BigEndian}
}

// BufferFromHex decodes a hex string into a big-endian buffer.
func BufferFromHex(s string) (Buffer, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return Buffer{b: b, order: BigEndian}, nil
}

// BufferFromBits parses a string of '0' and '1' characters. The length must
// be a multiple of 8.
func BufferFromBits(s string) (Buffer, error) {
	if len(s)%8 != 0 {
		return Buffer{}, fmt.Errorf("%w: bit string length %d is not a multiple of 8", ErrInvalidData, len(s))
	}
	out := make([]byte, len(s)/8)
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			out[i/8] |= 0x80 >> (uint(i) % 8)
		default:
			return Buffer{}, fmt.Errorf("%w: invalid bit %q", ErrInvalidData, c)
		}
	}
	return Buffer{b: out, order: BigEndian}, nil
}

// Bytes returns a copy of the underlying bytes.
func (b Buffer) Bytes() []byte {
	return append([]byte(nil), b.b...)
}

// Len returns the number of bytes in the buffer.
func (b Buffer) Len() int {
	return len(b.b)
}

// Order returns the buffer's byte order.
func (b Buffer) Order() ByteOrder {
	return b.order
}

// BigEndian returns the same bytes interpreted as big-endian.
func (b Buffer) BigEndian() Buffer {
	return Buffer{b: b.b, order: BigEndian}
}

// LittleEndian returns the same bytes interpreted as little-endian.
func (b Buffer) LittleEndian() Buffer {
	return Buffer{b: b.b, order: LittleEndian}
}

// Int interprets the buffer as an unsigned integer in its byte order.
func (b Buffer) Int() *big.Int {
	return BytesToInt(b.b, b.order)
}

// Reverse returns a buffer with the bytes in reverse order. The byte order
// tag is kept.
func (b Buffer) Reverse() Buffer {
	return Buffer{b: reversed(b.b), order: b.order}
}

// Zfill pads the buffer with zero bytes to exactly n bytes. Big-endian
// buffers are padded on the left, little-endian on the right, so the integer
// value is unchanged.
func (b Buffer) Zfill(n int) (Buffer, error) {
	if len(b.b) > n {
		return Buffer{}, fmt.Errorf("%w: %d bytes do not fit in %d", ErrOverflow, len(b.b), n)
	}
	out := make([]byte, n)
	if b.order == LittleEndian {
		copy(out, b.b)
	} else {
		copy(out[n-len(b.b):], b.b)
	}
	return Buffer{b: out, order: b.order}, nil
}

// Chunk splits the buffer into successive n-byte slices. With allowPartials
// false the length must be a multiple of n.
func (b Buffer) Chunk(n int, allowPartials bool) ([][]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive", ErrInvalidData)
	}
	if !allowPartials && len(b.b)%n != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrInvalidData, len(b.b), n)
	}
	chunks := make([][]byte, 0, (len(b.b)+n-1)/n)
	for i := 0; i < len(b.b); i += n {
		end := min(i+n, len(b.b))
		chunks = append(chunks, append([]byte(nil), b.b[i:end]...))
	}
	return chunks, nil
}

// Hex returns the lower-case hex encoding.
func (b Buffer) Hex() string {
	return hex.EncodeToString(b.b)
}

// Bits returns the buffer as a string of '0'/'1' characters, MSB first.
func (b Buffer) Bits() string {
	var sb strings.Builder
	sb.Grow(len(b.b) * 8)
	for _, c := range b.b {
		fmt.Fprintf(&sb, "%08b", c)
	}
	return sb.String()
}

// IntToBytes encodes n as the minimal number of bytes (at least one) in the
// given order. n must be non-negative.
func IntToBytes(n *big.Int, order ByteOrder) []byte {
	out := n.Bytes()
	if len(out) == 0 {
		out = []byte{0}
	}
	if order == LittleEndian {
		return reversed(out)
	}
	return out
}

// IntToBytesFixed encodes n into exactly size bytes, zero padded.
func IntToBytesFixed(n *big.Int, size int, order ByteOrder) ([]byte, error) {
	if n.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative integer", ErrInvalidData)
	}
	if (n.BitLen()+7)/8 > size {
		return nil, fmt.Errorf("%w: %d-bit integer in %d bytes", ErrOverflow, n.BitLen(), size)
	}
	out := make([]byte, size)
	n.FillBytes(out)
	if order == LittleEndian {
		return reversed(out), nil
	}
	return out, nil
}

// BytesToInt decodes an unsigned integer from b in the given order.
func BytesToInt(b []byte, order ByteOrder) *big.Int {
	if order == LittleEndian {
		return new(big.Int).SetBytes(reversed(b))
	}
	return new(big.Int).SetBytes(b)
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}
