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

// Package der is a thin adapter over golang.org/x/crypto/cryptobyte for
// building and walking DER structures without declaring a Go struct for every
// ASN.1 template.
//
// Encoding composes Item values:
//
//	der.EncodeSequence(der.Int(0), der.Integer(n), der.Integer(e))
//
// Decoding returns the top-level SEQUENCE as a list of Elements that can be
// converted on demand:
//
//	elems, err := der.DecodeSequence(buf)
//	n, err := elems[1].Int()
package der

import (
	"bytes"
	"encoding/asn1"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/pem"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Item is one DER-encodable component.
type Item interface {
	build(b *cryptobyte.Builder)
}

type itemFunc func(b *cryptobyte.Builder)

func (f itemFunc) build(b *cryptobyte.Builder) { f(b) }

// Integer encodes an INTEGER.
func Integer(n *big.Int) Item {
	return itemFunc(func(b *cryptobyte.Builder) {
		if n == nil {
			b.SetError(fmt.Errorf("%w: nil INTEGER", encoding.ErrBadASN1))
			return
		}
		b.AddASN1BigInt(n)
	})
}

// Int encodes a small INTEGER.
func Int(v int64) Item {
	return itemFunc(func(b *cryptobyte.Builder) { b.AddASN1Int64(v) })
}

// OID encodes an OBJECT IDENTIFIER.
func OID(oid asn1.ObjectIdentifier) Item {
	return itemFunc(func(b *cryptobyte.Builder) { b.AddASN1ObjectIdentifier(oid) })
}

// BitString encodes a BIT STRING with no unused bits.
func BitString(data []byte) Item {
	return itemFunc(func(b *cryptobyte.Builder) { b.AddASN1BitString(data) })
}

// BitStringBits encodes a BIT STRING with an explicit bit length, as used by
// KeyUsage.
func BitStringBits(bs asn1.BitString) Item {
	return itemFunc(func(b *cryptobyte.Builder) {
		unused := len(bs.Bytes)*8 - bs.BitLength
		if unused < 0 || unused > 7 {
			b.SetError(fmt.Errorf("%w: bit length %d does not match %d bytes", encoding.ErrBadASN1, bs.BitLength, len(bs.Bytes)))
			return
		}
		b.AddASN1(cbasn1.BIT_STRING, func(b *cryptobyte.Builder) {
			b.AddUint8(uint8(unused))
			b.AddBytes(bs.Bytes)
		})
	})
}

// OctetString encodes an OCTET STRING.
func OctetString(data []byte) Item {
	return itemFunc(func(b *cryptobyte.Builder) { b.AddASN1OctetString(data) })
}

// Null encodes NULL.
func Null() Item {
	return itemFunc(func(b *cryptobyte.Builder) { b.AddASN1NULL() })
}

// Boolean encodes a BOOLEAN.
func Boolean(v bool) Item {
	return itemFunc(func(b *cryptobyte.Builder) { b.AddASN1Boolean(v) })
}

// Enumerated encodes an ENUMERATED.
func Enumerated(v int64) Item {
	return itemFunc(func(b *cryptobyte.Builder) { b.AddASN1Enum(v) })
}

// Time encodes t as UTCTime for years 1950-2049 and GeneralizedTime otherwise
// (RFC 5280 section 4.1.2.5).
func Time(t time.Time) Item {
	return itemFunc(func(b *cryptobyte.Builder) {
		t = t.UTC()
		if t.Year() >= 1950 && t.Year() < 2050 {
			b.AddASN1UTCTime(t)
			return
		}
		b.AddASN1GeneralizedTime(t)
	})
}

// GeneralizedTime encodes a GeneralizedTime.
func GeneralizedTime(t time.Time) Item {
	return itemFunc(func(b *cryptobyte.Builder) { b.AddASN1GeneralizedTime(t.UTC()) })
}

// String encodes s under the given string tag (UTF8String, PrintableString,
// IA5String, ...).
func String(tag cbasn1.Tag, s string) Item {
	return itemFunc(func(b *cryptobyte.Builder) {
		b.AddASN1(tag, func(b *cryptobyte.Builder) { b.AddBytes([]byte(s)) })
	})
}

// Sequence encodes a SEQUENCE of the given items in order.
func Sequence(items ...Item) Item {
	return Constructed(cbasn1.SEQUENCE, items...)
}

// SequenceOf encodes a SEQUENCE OF homogeneous items.
func SequenceOf(items []Item) Item {
	return Constructed(cbasn1.SEQUENCE, items...)
}

// SetOf encodes a SET OF with elements sorted by their encoding as DER requires.
func SetOf(items ...Item) Item {
	return itemFunc(func(b *cryptobyte.Builder) {
		encoded := make([][]byte, 0, len(items))
		for _, it := range items {
			enc, err := Encode(it)
			if err != nil {
				b.SetError(err)
				return
			}
			encoded = append(encoded, enc)
		}
		slices.SortFunc(encoded, bytes.Compare)
		b.AddASN1(cbasn1.SET, func(b *cryptobyte.Builder) {
			for _, enc := range encoded {
				b.AddBytes(enc)
			}
		})
	})
}

// Constructed encodes items inside an arbitrary constructed tag.
func Constructed(tag cbasn1.Tag, items ...Item) Item {
	return itemFunc(func(b *cryptobyte.Builder) {
		b.AddASN1(tag, func(b *cryptobyte.Builder) {
			for _, it := range items {
				it.build(b)
			}
		})
	})
}

// Explicit wraps item in a context-specific constructed [n] tag.
func Explicit(n uint8, item Item) Item {
	return Constructed(cbasn1.Tag(n).ContextSpecific().Constructed(), item)
}

// Implicit re-tags a primitive value with context-specific [n]. The content
// bytes are written verbatim.
func Implicit(n uint8, content []byte) Item {
	return itemFunc(func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.Tag(n).ContextSpecific(), func(b *cryptobyte.Builder) { b.AddBytes(content) })
	})
}

// ImplicitConstructed re-tags a constructed value with context-specific [n].
func ImplicitConstructed(n uint8, items ...Item) Item {
	return Constructed(cbasn1.Tag(n).ContextSpecific().Constructed(), items...)
}

// Raw inserts an already DER-encoded element.
func Raw(der []byte) Item {
	return itemFunc(func(b *cryptobyte.Builder) { b.AddBytes(der) })
}

// Optional returns item when present is true and an empty item otherwise.
func Optional(present bool, item Item) Item {
	if !present {
		return itemFunc(func(*cryptobyte.Builder) {})
	}
	return item
}

// Encode returns the DER encoding of a single item.
func Encode(item Item) ([]byte, error) {
	var b cryptobyte.Builder
	item.build(&b)
	out, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", encoding.ErrBadASN1, err)
	}
	return out, nil
}

// EncodeSequence emits a SEQUENCE of the provided components in order.
func EncodeSequence(items ...Item) ([]byte, error) {
	return Encode(Sequence(items...))
}

// Element is one decoded TLV.
type Element struct {
	Tag     cbasn1.Tag
	Content []byte
	// Raw is the full encoding including tag and length.
	Raw []byte
}

// DecodeSequence decodes a single top-level SEQUENCE and returns its
// components. Trailing data is rejected.
func DecodeSequence(der []byte) ([]Element, error) {
	input := cryptobyte.String(der)
	var inner cryptobyte.String
	if !input.ReadASN1(&inner, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, fmt.Errorf("%w: expected a single SEQUENCE", encoding.ErrBadASN1)
	}
	return readElements(inner)
}

// DecodeElement decodes exactly one top-level element of any type.
func DecodeElement(der []byte) (Element, error) {
	elems, err := readElements(cryptobyte.String(der))
	if err != nil {
		return Element{}, err
	}
	if len(elems) != 1 {
		return Element{}, fmt.Errorf("%w: expected one element, got %d", encoding.ErrBadASN1, len(elems))
	}
	return elems[0], nil
}

// BytesToSequence accepts DER or PEM. PEM input (anything beginning with
// "----") is decoded first, using passphrase if the block is encrypted.
func BytesToSequence(buf, passphrase []byte) ([]Element, error) {
	if bytes.HasPrefix(bytes.TrimSpace(buf), []byte("----")) {
		block, err := pem.Decode(buf, passphrase)
		if err != nil {
			return nil, err
		}
		buf = block.Bytes
	}
	return DecodeSequence(buf)
}

func readElements(s cryptobyte.String) ([]Element, error) {
	var out []Element
	for !s.Empty() {
		var full cryptobyte.String
		var tag cbasn1.Tag
		if !s.ReadAnyASN1Element(&full, &tag) {
			return nil, fmt.Errorf("%w: truncated element", encoding.ErrBadASN1)
		}
		content := cryptobyte.String(full)
		var body cryptobyte.String
		if !content.ReadAnyASN1(&body, &tag) {
			return nil, fmt.Errorf("%w: bad element header", encoding.ErrBadASN1)
		}
		out = append(out, Element{Tag: tag, Content: body, Raw: full})
	}
	return out, nil
}

// Int decodes an INTEGER element.
func (e Element) Int() (*big.Int, error) {
	s := cryptobyte.String(e.Raw)
	n := new(big.Int)
	if e.Tag != cbasn1.INTEGER || !s.ReadASN1Integer(n) {
		return nil, fmt.Errorf("%w: expected INTEGER, got tag %#x", encoding.ErrBadASN1, uint8(e.Tag))
	}
	return n, nil
}

// OID decodes an OBJECT IDENTIFIER element.
func (e Element) OID() (asn1.ObjectIdentifier, error) {
	s := cryptobyte.String(e.Raw)
	var oid asn1.ObjectIdentifier
	if e.Tag != cbasn1.OBJECT_IDENTIFIER || !s.ReadASN1ObjectIdentifier(&oid) {
		return nil, fmt.Errorf("%w: expected OBJECT IDENTIFIER", encoding.ErrBadASN1)
	}
	return oid, nil
}

// OctetString returns the content of an OCTET STRING element.
func (e Element) OctetString() ([]byte, error) {
	if e.Tag != cbasn1.OCTET_STRING {
		return nil, fmt.Errorf("%w: expected OCTET STRING", encoding.ErrBadASN1)
	}
	return e.Content, nil
}

// BitString decodes a BIT STRING element.
func (e Element) BitString() (asn1.BitString, error) {
	s := cryptobyte.String(e.Raw)
	var bs asn1.BitString
	if e.Tag != cbasn1.BIT_STRING || !s.ReadASN1BitString(&bs) {
		return asn1.BitString{}, fmt.Errorf("%w: expected BIT STRING", encoding.ErrBadASN1)
	}
	return bs, nil
}

// BitStringBytes decodes a BIT STRING element that must be byte aligned.
func (e Element) BitStringBytes() ([]byte, error) {
	bs, err := e.BitString()
	if err != nil {
		return nil, err
	}
	if bs.BitLength%8 != 0 {
		return nil, fmt.Errorf("%w: BIT STRING is not byte aligned", encoding.ErrBadASN1)
	}
	return bs.Bytes, nil
}

// Bool decodes a BOOLEAN element.
func (e Element) Bool() (bool, error) {
	s := cryptobyte.String(e.Raw)
	var v bool
	if e.Tag != cbasn1.BOOLEAN || !s.ReadASN1Boolean(&v) {
		return false, fmt.Errorf("%w: expected BOOLEAN", encoding.ErrBadASN1)
	}
	return v, nil
}

// Time decodes a UTCTime or GeneralizedTime element.
func (e Element) Time() (time.Time, error) {
	s := cryptobyte.String(e.Raw)
	var t time.Time
	switch e.Tag {
	case cbasn1.UTCTime:
		if s.ReadASN1UTCTime(&t) {
			return t, nil
		}
	case cbasn1.GeneralizedTime:
		if s.ReadASN1GeneralizedTime(&t) {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: expected UTCTime or GeneralizedTime", encoding.ErrBadASN1)
}

// Children decodes the components of a constructed element.
func (e Element) Children() ([]Element, error) {
	if e.Tag&0x20 == 0 {
		return nil, fmt.Errorf("%w: element with tag %#x is not constructed", encoding.ErrBadASN1, uint8(e.Tag))
	}
	return readElements(cryptobyte.String(e.Content))
}

// IsContext reports whether the element carries context-specific tag [n].
func (e Element) IsContext(n uint8) bool {
	return e.Tag == cbasn1.Tag(n).ContextSpecific() || e.Tag == cbasn1.Tag(n).ContextSpecific().Constructed()
}

// Expect checks the component count of a decoded sequence.
func Expect(elems []Element, min, max int) error {
	if len(elems) < min || len(elems) > max {
		return fmt.Errorf("%w: expected %d..%d components, got %d", encoding.ErrBadASN1, min, max, len(elems))
	}
	return nil
}

// Ints decodes every element as an INTEGER.
func Ints(elems []Element) ([]*big.Int, error) {
	out := make([]*big.Int, len(elems))
	for i, e := range elems {
		n, err := e.Int()
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}
