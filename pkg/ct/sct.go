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

// Package ct reads and writes RFC 6962 Signed Certificate Timestamps and
// the SCT list carried in the X.509 extension 1.3.6.1.4.1.11129.2.4.2.
package ct

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/cryptobyte"

	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
)

var (
	// ErrTruncated is returned when the input ends inside a structure.
	ErrTruncated = errors.New("ct: truncated")

	// ErrExtraBytes is returned when bytes follow a complete structure.
	ErrExtraBytes = errors.New("ct: unexpected trailing data")
)

// Version is the SCT version. Only V1 exists.
type Version uint8

// V1 is the RFC 6962 SCT version.
const V1 Version = 0

// HashAlgorithm is the TLS HashAlgorithm registry value (RFC 5246 section 7.4.1.4.1).
type HashAlgorithm uint8

// SignatureAlgorithm is the TLS SignatureAlgorithm registry value.
type SignatureAlgorithm uint8

// Values logs use in practice.
const (
	HashSHA256 HashAlgorithm = 4

	SignatureRSA   SignatureAlgorithm = 1
	SignatureECDSA SignatureAlgorithm = 3
)

// LogEntryType distinguishes final certificates from precertificates in
// the signed data.
type LogEntryType uint16

const (
	// X509Entry covers a final certificate.
	X509Entry LogEntryType = 0
	// PrecertEntry covers a precertificate TBSCertificate.
	PrecertEntry LogEntryType = 1
)

// =============================================================================
// SignedCertificateTimestamp
// =============================================================================

// SignedCertificateTimestamp is one SCT (RFC 6962 section 3.2).
type SignedCertificateTimestamp struct {
	Version    Version
	LogID      [32]byte
	Timestamp  uint64 // milliseconds since the Unix epoch
	Extensions []byte
	Hash       HashAlgorithm
	Algorithm  SignatureAlgorithm
	Signature  []byte
}

// Time returns the timestamp as a time.Time in UTC.
func (s *SignedCertificateTimestamp) Time() time.Time {
	return time.UnixMilli(int64(s.Timestamp)).UTC()
}

// MarshalBinary encodes the SCT in TLS presentation form.
func (s *SignedCertificateTimestamp) MarshalBinary() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint8(uint8(s.Version))
	b.AddBytes(s.LogID[:])
	b.AddUint64(s.Timestamp)
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { // CtExtensions
		b.AddBytes(s.Extensions)
	})
	b.AddUint8(uint8(s.Hash))
	b.AddUint8(uint8(s.Algorithm))
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(s.Signature)
	})
	return b.Bytes()
}

// UnmarshalBinary decodes one SCT. Versions other than V1 are rejected
// since their layout is unknown.
func (s *SignedCertificateTimestamp) UnmarshalBinary(data []byte) error {
	var (
		version    uint8
		logID      []byte
		extensions cryptobyte.String
		hash, alg  uint8
		signature  cryptobyte.String
	)
	str := cryptobyte.String(data)
	if !str.ReadUint8(&version) {
		return ErrTruncated
	}
	if Version(version) != V1 {
		return fmt.Errorf("%w: SCT version %d", encoding.ErrUnsupportedAlgorithm, version)
	}
	if !str.ReadBytes(&logID, 32) ||
		!str.ReadUint64(&s.Timestamp) ||
		!str.ReadUint16LengthPrefixed(&extensions) ||
		!str.ReadUint8(&hash) ||
		!str.ReadUint8(&alg) ||
		!str.ReadUint16LengthPrefixed(&signature) {
		return ErrTruncated
	}
	if !str.Empty() {
		return ErrExtraBytes
	}
	s.Version = V1
	copy(s.LogID[:], logID)
	s.Extensions = append([]byte(nil), extensions...)
	s.Hash = HashAlgorithm(hash)
	s.Algorithm = SignatureAlgorithm(alg)
	s.Signature = append([]byte(nil), signature...)
	return nil
}

// =============================================================================
// SCT Lists
// =============================================================================

// MarshalList encodes SignedCertificateTimestampList (RFC 6962 section
// 3.3): a 16-bit length-prefixed list of 16-bit length-prefixed SCTs.
func MarshalList(scts []*SignedCertificateTimestamp) ([]byte, error) {
	if len(scts) == 0 {
		return nil, fmt.Errorf("%w: SCT list must not be empty", encoding.ErrInvalidData)
	}
	var b cryptobyte.Builder
	var err error
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, s := range scts {
			var raw []byte
			if raw, err = s.MarshalBinary(); err != nil {
				return
			}
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddBytes(raw)
			})
		}
	})
	if err != nil {
		return nil, err
	}
	return b.Bytes()
}

// ParseList decodes a SignedCertificateTimestampList.
func ParseList(data []byte) ([]*SignedCertificateTimestamp, error) {
	var list cryptobyte.String
	s := cryptobyte.String(data)
	if !s.ReadUint16LengthPrefixed(&list) {
		return nil, ErrTruncated
	}
	if !s.Empty() {
		return nil, ErrExtraBytes
	}
	var out []*SignedCertificateTimestamp
	for !list.Empty() {
		var raw cryptobyte.String
		if !list.ReadUint16LengthPrefixed(&raw) {
			return nil, ErrTruncated
		}
		sct := new(SignedCertificateTimestamp)
		if err := sct.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("SCT %d: %w", len(out), err)
		}
		out = append(out, sct)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty SCT list", encoding.ErrInvalidData)
	}
	return out, nil
}

// MarshalExtensionValue wraps the list in the OCTET STRING that forms the
// X.509 extension value.
func MarshalExtensionValue(scts []*SignedCertificateTimestamp) ([]byte, error) {
	list, err := MarshalList(scts)
	if err != nil {
		return nil, err
	}
	return der.Encode(der.OctetString(list))
}

// ParseExtensionValue is the inverse of MarshalExtensionValue.
func ParseExtensionValue(value []byte) ([]*SignedCertificateTimestamp, error) {
	e, err := der.DecodeElement(value)
	if err != nil {
		return nil, err
	}
	list, err := e.OctetString()
	if err != nil {
		return nil, err
	}
	return ParseList(list)
}

// =============================================================================
// Signatures
// =============================================================================

// LogID returns SHA-256 over the log key's SubjectPublicKeyInfo.
func LogID(logKey keys.Key) ([32]byte, error) {
	spki, err := codec.MarshalSPKI(logKey.Public())
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(spki), nil
}

// SignedData is the digitally-signed input of RFC 6962 section 3.2. For
// X509Entry, entry is the certificate DER. For PrecertEntry it is the
// 32-byte issuer key hash followed by the TBSCertificate DER.
func (s *SignedCertificateTimestamp) SignedData(typ LogEntryType, entry []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint8(uint8(s.Version))
	b.AddUint8(0) // signature_type = certificate_timestamp
	b.AddUint64(s.Timestamp)
	b.AddUint16(uint16(typ))
	switch typ {
	case X509Entry:
		b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(entry)
		})
	case PrecertEntry:
		if len(entry) < 32 {
			return nil, fmt.Errorf("%w: precert entry lacks issuer key hash", encoding.ErrInvalidData)
		}
		b.AddBytes(entry[:32])
		b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(entry[32:])
		})
	default:
		return nil, fmt.Errorf("%w: log entry type %d", encoding.ErrUnsupportedAlgorithm, typ)
	}
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(s.Extensions)
	})
	return b.Bytes()
}

// algorithm maps the TLS (hash, signature) pair onto the registry.
func (s *SignedCertificateTimestamp) algorithm() (*signing.Algorithm, error) {
	if s.Hash != HashSHA256 {
		return nil, fmt.Errorf("%w: SCT hash algorithm %d", encoding.ErrUnsupportedAlgorithm, s.Hash)
	}
	switch s.Algorithm {
	case SignatureRSA:
		return signing.SHA256WithRSA, nil
	case SignatureECDSA:
		return signing.ECDSAWithSHA256, nil
	}
	return nil, fmt.Errorf("%w: SCT signature algorithm %d", encoding.ErrUnsupportedAlgorithm, s.Algorithm)
}

// Sign creates a V1 SCT for entry with the log's key. Logs sign with
// ECDSA P-256 or RSA, both over SHA-256.
func Sign(random io.Reader, logKey keys.Key, timestamp time.Time, typ LogEntryType, entry []byte) (*SignedCertificateTimestamp, error) {
	id, err := LogID(logKey)
	if err != nil {
		return nil, err
	}
	s := &SignedCertificateTimestamp{Version: V1, LogID: id, Timestamp: uint64(timestamp.UnixMilli()), Hash: HashSHA256}
	switch logKey.Algorithm() {
	case keys.AlgorithmECDSA:
		s.Algorithm = SignatureECDSA
	case keys.AlgorithmRSA:
		s.Algorithm = SignatureRSA
	default:
		return nil, fmt.Errorf("%w: %s log keys", encoding.ErrUnsupportedAlgorithm, logKey.Algorithm())
	}
	alg, err := s.algorithm()
	if err != nil {
		return nil, err
	}
	data, err := s.SignedData(typ, entry)
	if err != nil {
		return nil, err
	}
	if s.Signature, err = alg.Sign(random, logKey, data); err != nil {
		return nil, err
	}
	return s, nil
}

// Verify checks the SCT signature over entry against the log's public key
// and that the LogID names that key.
func (s *SignedCertificateTimestamp) Verify(logKey keys.Key, typ LogEntryType, entry []byte) error {
	id, err := LogID(logKey)
	if err != nil {
		return err
	}
	if id != s.LogID {
		return fmt.Errorf("%w: SCT log ID does not match key", encoding.ErrBadSignature)
	}
	alg, err := s.algorithm()
	if err != nil {
		return err
	}
	data, err := s.SignedData(typ, entry)
	if err != nil {
		return err
	}
	return alg.Verify(logKey, data, s.Signature)
}
