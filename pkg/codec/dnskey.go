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

package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

const (
	// DNSProtocol is the only valid DNSKEY protocol value (RFC 4034 section 2.1.2).
	DNSProtocol = 3

	// DefaultDNSFlags marks a zone key.
	DefaultDNSFlags = dns.ZONE

	// dnsKeyWordWidth is the base64 word length of the presentation form,
	// as in the RFC 4034, 6605 and 8080 examples.
	dnsKeyWordWidth = 44

	dnsPrivateFormat = "v1.3"
	dnsTimeLayout    = "20060102150405"
)

// dnsAlgorithms maps DNSSEC algorithm numbers to key algorithms.
var dnsAlgorithms = map[uint8]keys.Algorithm{
	dns.RSAMD5:           keys.AlgorithmRSA,
	dns.DH:               keys.AlgorithmDH,
	dns.DSA:              keys.AlgorithmDSA,
	dns.RSASHA1:          keys.AlgorithmRSA,
	dns.DSANSEC3SHA1:     keys.AlgorithmDSA,
	dns.RSASHA1NSEC3SHA1: keys.AlgorithmRSA,
	dns.RSASHA256:        keys.AlgorithmRSA,
	dns.RSASHA512:        keys.AlgorithmRSA,
	dns.ECDSAP256SHA256:  keys.AlgorithmECDSA,
	dns.ECDSAP384SHA384:  keys.AlgorithmECDSA,
	dns.ED25519:          keys.AlgorithmEdDSA,
	dns.ED448:            keys.AlgorithmEdDSA,
}

// DNSAlgorithmName returns the mnemonic of a DNSSEC algorithm number.
func DNSAlgorithmName(alg uint8) string {
	if name, ok := dns.AlgorithmToString[alg]; ok {
		return name
	}
	return strconv.Itoa(int(alg))
}

// dnsAlgorithmFor picks the algorithm number for k. override applies when it
// names an algorithm of the same key type.
func dnsAlgorithmFor(k keys.Key, override uint8) (uint8, error) {
	if override != 0 {
		if a, ok := dnsAlgorithms[override]; ok && a == k.Algorithm() {
			if key, isEC := k.(*keys.ECDSAKey); !isEC || key.Curve().DNSAlgorithm == override {
				return override, nil
			}
		}
		return 0, fmt.Errorf("%w: DNSSEC algorithm %s for %s key", encoding.ErrUnsupportedAlgorithm, DNSAlgorithmName(override), k.Algorithm())
	}
	switch key := k.(type) {
	case *keys.RSAKey:
		return dns.RSASHA256, nil
	case *keys.DSAKey:
		return dns.DSA, nil
	case *keys.DHKey:
		return dns.DH, nil
	case *keys.ECDSAKey:
		if key.Curve().DNSAlgorithm == 0 {
			return 0, fmt.Errorf("%w: no DNSSEC algorithm for curve %s", encoding.ErrUnsupportedAlgorithm, key.Curve())
		}
		return key.Curve().DNSAlgorithm, nil
	case *keys.EdDSAKey:
		if key.Curve() == keys.Ed448 {
			return dns.ED448, nil
		}
		return dns.ED25519, nil
	}
	return 0, fmt.Errorf("%w: no DNSSEC algorithm for %s keys", encoding.ErrUnsupportedAlgorithm, k.Algorithm())
}

// ============================================================================
// Public key blobs
// ============================================================================

// MarshalDNSKeyBlob returns the DNSKEY public key field of k.
func MarshalDNSKeyBlob(k keys.Key) ([]byte, error) {
	switch key := k.(type) {
	case *keys.RSAKey:
		// RFC 3110 section 2
		e := key.E().Bytes()
		var out []byte
		if len(e) < 256 {
			out = append(out, byte(len(e)))
		} else {
			out = append(out, 0, byte(len(e)>>8), byte(len(e)))
		}
		out = append(out, e...)
		return append(out, key.N().Bytes()...), nil
	case *keys.ECDSAKey:
		// RFC 6605 section 4
		return key.Point()[1:], nil
	case *keys.EdDSAKey:
		// RFC 8080 section 3
		return key.PublicBytes(), nil
	case *keys.DSAKey:
		return dsaDNSBlob(key)
	case *keys.DHKey:
		return dhDNSBlob(key)
	}
	return nil, fmt.Errorf("%w: no DNSKEY encoding for %s keys", encoding.ErrUnsupportedAlgorithm, k.Algorithm())
}

// dsaDNSWidth returns T and checks that the key fits RFC 2536: a 160-bit q
// and a p of 64+8T bytes.
func dsaDNSWidth(p, q *big.Int) (int, error) {
	size := (p.BitLen() + 7) / 8
	if q.BitLen() > 160 || size < 64 || size > 128 || size%8 != 0 {
		return 0, fmt.Errorf("%w: DNSKEY DSA needs a 160-bit q and a 512 to 1024-bit p", encoding.ErrUnsupportedAlgorithm)
	}
	return (size - 64) / 8, nil
}

// RFC 2536 section 2: T, Q, P, G, Y.
func dsaDNSBlob(k *keys.DSAKey) ([]byte, error) {
	t, err := dsaDNSWidth(k.P(), k.Q())
	if err != nil {
		return nil, err
	}
	width := 64 + 8*t
	out := []byte{byte(t)}
	for _, f := range []struct {
		n    *big.Int
		size int
	}{{k.Q(), 20}, {k.P(), width}, {k.G(), width}, {k.Y(), width}} {
		b, err := encoding.IntToBytesFixed(f.n, f.size, encoding.BigEndian)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func parseDSADNSBlob(blob []byte) (keys.Key, error) {
	if len(blob) < 1 || blob[0] > 8 {
		return nil, fmt.Errorf("%w: DNSKEY DSA T parameter", encoding.ErrInvalidData)
	}
	width := 64 + 8*int(blob[0])
	if len(blob) != 1+20+3*width {
		return nil, fmt.Errorf("%w: DNSKEY DSA key is %d bytes", encoding.ErrInvalidData, len(blob))
	}
	b := blob[1:]
	q := new(big.Int).SetBytes(b[:20])
	p := new(big.Int).SetBytes(b[20 : 20+width])
	g := new(big.Int).SetBytes(b[20+width : 20+2*width])
	y := new(big.Int).SetBytes(b[20+2*width:])
	return keys.NewDSAPublicKey(p, q, g, y)
}

// RFC 2539 section 2: each field has a 16-bit length. A prime of length 1 or
// 2 is a well-known group index and the generator is then empty.
func dhDNSBlob(k *keys.DHKey) ([]byte, error) {
	var b []byte
	field := func(v []byte) {
		b = binary.BigEndian.AppendUint16(b, uint16(len(v)))
		b = append(b, v...)
	}
	if g := k.Group(); g != nil && g.DNSIndex != 0 {
		field([]byte{byte(g.DNSIndex)})
		field(nil)
	} else {
		field(k.P().Bytes())
		field(k.G().Bytes())
	}
	field(k.Y().Bytes())
	return b, nil
}

func parseDHDNSBlob(blob []byte) (keys.Key, error) {
	var fields [3][]byte
	rest := blob
	for i := range fields {
		if len(rest) < 2 {
			return nil, fmt.Errorf("%w: truncated DNSKEY DH key", encoding.ErrInvalidData)
		}
		n := int(binary.BigEndian.Uint16(rest))
		if len(rest) < 2+n {
			return nil, fmt.Errorf("%w: truncated DNSKEY DH key", encoding.ErrInvalidData)
		}
		fields[i] = rest[2 : 2+n]
		rest = rest[2+n:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing data after DNSKEY DH key", encoding.ErrInvalidData)
	}
	p := new(big.Int).SetBytes(fields[0])
	g := new(big.Int).SetBytes(fields[1])
	if len(fields[0]) <= 2 {
		group, err := keys.DHGroupByDNSIndex(int(p.Int64()))
		if err != nil {
			return nil, err
		}
		if len(fields[1]) != 0 {
			return nil, fmt.Errorf("%w: well-known DH prime with a generator", encoding.ErrInvalidData)
		}
		p, g = group.P, group.G
	}
	return keys.NewDHPublicKey(p, g, new(big.Int).SetBytes(fields[2]))
}

// ParseDNSKeyBlob decodes a DNSKEY public key field for algorithm alg.
func ParseDNSKeyBlob(alg uint8, blob []byte) (keys.Key, error) {
	kind, ok := dnsAlgorithms[alg]
	if !ok {
		return nil, fmt.Errorf("%w: DNSSEC algorithm %d", encoding.ErrUnsupportedAlgorithm, alg)
	}
	switch kind {
	case keys.AlgorithmRSA:
		if len(blob) < 3 {
			return nil, fmt.Errorf("%w: truncated DNSKEY RSA key", encoding.ErrInvalidData)
		}
		elen, off := int(blob[0]), 1
		if elen == 0 {
			elen, off = int(binary.BigEndian.Uint16(blob[1:3])), 3
		}
		if len(blob) <= off+elen {
			return nil, fmt.Errorf("%w: truncated DNSKEY RSA key", encoding.ErrInvalidData)
		}
		e := new(big.Int).SetBytes(blob[off : off+elen])
		n := new(big.Int).SetBytes(blob[off+elen:])
		return keys.NewRSAPublicKey(n, e)
	case keys.AlgorithmECDSA:
		curve, err := keys.CurveByDNSAlgorithm(alg)
		if err != nil {
			return nil, err
		}
		if len(blob) != 2*curve.ByteSize() {
			return nil, fmt.Errorf("%w: DNSKEY %s key is %d bytes", encoding.ErrBadKey, curve, len(blob))
		}
		return keys.NewECDSAPublicKey(curve, append([]byte{4}, blob...))
	case keys.AlgorithmEdDSA:
		if alg == dns.ED448 {
			return keys.NewEdDSAPublicKey(keys.Ed448, blob)
		}
		return keys.NewEdDSAPublicKey(keys.Ed25519, blob)
	case keys.AlgorithmDSA:
		return parseDSADNSBlob(blob)
	default:
		return parseDHDNSBlob(blob)
	}
}

// ============================================================================
// Public records
// ============================================================================

// DNSKey is a decoded DNSKEY record.
type DNSKey struct {
	Flags     uint16
	Protocol  uint8
	Algorithm uint8
	Key       keys.Key
}

// NewDNSKey describes k with the given flags and algorithm; zero values
// select DefaultDNSFlags and the key's default algorithm.
func NewDNSKey(k keys.Key, flags uint16, alg uint8) (*DNSKey, error) {
	alg, err := dnsAlgorithmFor(k, alg)
	if err != nil {
		return nil, err
	}
	if flags == 0 {
		flags = DefaultDNSFlags
	}
	return &DNSKey{Flags: flags, Protocol: DNSProtocol, Algorithm: alg, Key: k.Public()}, nil
}

// RR returns the record as a miekg/dns DNSKEY owned by name.
func (r *DNSKey) RR(name string) (*dns.DNSKEY, error) {
	blob, err := MarshalDNSKeyBlob(r.Key)
	if err != nil {
		return nil, err
	}
	return &dns.DNSKEY{
		Hdr:       dns.RR_Header{Name: dns.Fqdn(name), Rrtype: dns.TypeDNSKEY, Class: dns.ClassINET},
		Flags:     r.Flags,
		Protocol:  r.Protocol,
		Algorithm: r.Algorithm,
		PublicKey: encoding.EncodeBase64(blob),
	}, nil
}

// KeyTag returns the RFC 4034 appendix B key tag.
func (r *DNSKey) KeyTag() (uint16, error) {
	rr, err := r.RR(".")
	if err != nil {
		return 0, err
	}
	return rr.KeyTag(), nil
}

// MarshalText returns "<flags> <protocol> <algorithm> <base64 key>" with
// the key split into space-separated words.
func (r *DNSKey) MarshalText() ([]byte, error) {
	blob, err := MarshalDNSKeyBlob(r.Key)
	if err != nil {
		return nil, err
	}
	words := encoding.WrapLines(encoding.EncodeBase64(blob), dnsKeyWordWidth)
	return fmt.Appendf(nil, "%d %d %d %s\n", r.Flags, r.Protocol, r.Algorithm, strings.Join(words, " ")), nil
}

// ParseDNSKey decodes the RDATA form "<flags> 3 <alg> <base64...>" or a full
// zone-file DNSKEY record. Comment lines starting with ';' are skipped.
func ParseDNSKey(buf []byte) (*DNSKey, error) {
	line, ok := dnsRecordLine(buf)
	if !ok {
		return nil, fmt.Errorf("%w: not a DNSKEY record", encoding.ErrUnrecognizedKey)
	}
	fields := strings.Fields(line)
	if _, err := strconv.ParseUint(fields[0], 10, 16); err != nil {
		rr, err := dns.NewRR(line)
		if err != nil {
			return nil, fmt.Errorf("%w: DNSKEY record: %v", encoding.ErrInvalidData, err)
		}
		dk, isKey := rr.(*dns.DNSKEY)
		if !isKey {
			return nil, fmt.Errorf("%w: %s record is not a DNSKEY", encoding.ErrUnrecognizedKey, dns.TypeToString[rr.Header().Rrtype])
		}
		fields = []string{
			strconv.Itoa(int(dk.Flags)), strconv.Itoa(int(dk.Protocol)),
			strconv.Itoa(int(dk.Algorithm)), dk.PublicKey,
		}
	}
	if len(fields) < 4 {
		return nil, fmt.Errorf("%w: DNSKEY record needs four fields", encoding.ErrInvalidData)
	}
	flags, err1 := strconv.ParseUint(fields[0], 10, 16)
	proto, err2 := strconv.ParseUint(fields[1], 10, 8)
	alg, err3 := strconv.ParseUint(fields[2], 10, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, fmt.Errorf("%w: DNSKEY flags, protocol or algorithm", encoding.ErrInvalidData)
	}
	if proto != DNSProtocol {
		return nil, fmt.Errorf("%w: DNSKEY protocol %d", encoding.ErrInvalidData, proto)
	}
	blob, err := encoding.DecodeBase64(strings.Join(fields[3:], ""))
	if err != nil {
		return nil, err
	}
	k, err := ParseDNSKeyBlob(uint8(alg), blob)
	if err != nil {
		return nil, err
	}
	return &DNSKey{Flags: uint16(flags), Protocol: uint8(proto), Algorithm: uint8(alg), Key: k}, nil
}

// dnsRecordLine returns the first line that is neither blank nor a comment,
// with parenthesized continuations joined.
func dnsRecordLine(buf []byte) (string, bool) {
	var parts []string
	open := false
	sc := bufio.NewScanner(bytes.NewReader(buf))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		open = open || strings.Contains(line, "(")
		parts = append(parts, strings.NewReplacer("(", " ", ")", " ").Replace(line))
		if !open || strings.Contains(line, ")") {
			break
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// dnsPublicAlgorithm classifies a public record without decoding the key.
func dnsPublicAlgorithm(buf []byte) (keys.Algorithm, bool) {
	if bytes.HasPrefix(bytes.TrimSpace(buf), []byte("{")) || bytes.HasPrefix(bytes.TrimSpace(buf), []byte("-")) {
		return "", false
	}
	line, ok := dnsRecordLine(buf)
	if !ok {
		return "", false
	}
	fields := strings.Fields(line)
	for i := 0; i+3 < len(fields); i++ {
		if i > 0 && !strings.EqualFold(fields[i-1], "DNSKEY") && !strings.EqualFold(fields[i-1], "KEY") {
			continue
		}
		if _, err := strconv.ParseUint(fields[i], 10, 16); err != nil {
			continue
		}
		if fields[i+1] != strconv.Itoa(DNSProtocol) {
			continue
		}
		alg, err := strconv.ParseUint(fields[i+2], 10, 8)
		if err != nil {
			continue
		}
		kind, ok := dnsAlgorithms[uint8(alg)]
		return kind, ok
	}
	return "", false
}

// ============================================================================
// Private key files
// ============================================================================

type dnsField struct {
	name string
	n    *big.Int
	// size is the fixed width; zero writes the minimal encoding.
	size int
}

// MarshalDNSPrivateKey returns the BIND private key file for k.
func MarshalDNSPrivateKey(k keys.Key, opts *Options) ([]byte, error) {
	if !k.IsPrivate() {
		return nil, fmt.Errorf("%w: DNS private key file requires a private key", encoding.ErrInvalidPrivateKey)
	}
	var override uint8
	if opts != nil {
		override = opts.DNSAlgorithm
	}
	alg, err := dnsAlgorithmFor(k, override)
	if err != nil {
		return nil, err
	}

	var fields []dnsField
	var raw [][2]string
	switch key := k.(type) {
	case *keys.RSAKey:
		fields = []dnsField{
			{"Modulus", key.N(), 0},
			{"PublicExponent", key.E(), 0},
			{"PrivateExponent", key.D(), 0},
			{"Prime1", key.P(), 0},
			{"Prime2", key.Q(), 0},
			{"Exponent1", key.DP(), 0},
			{"Exponent2", key.DQ(), 0},
			{"Coefficient", key.QInv(), 0},
		}
	case *keys.ECDSAKey:
		fields = []dnsField{{"PrivateKey", key.D(), key.Curve().ByteSize()}}
	case *keys.EdDSAKey:
		raw = [][2]string{{"PrivateKey", encoding.EncodeBase64(key.Seed())}}
	case *keys.DSAKey:
		t, err := dsaDNSWidth(key.P(), key.Q())
		if err != nil {
			return nil, err
		}
		width := 64 + 8*t
		fields = []dnsField{
			{"Prime(p)", key.P(), width},
			{"Subprime(q)", key.Q(), 20},
			{"Base(g)", key.G(), width},
			{"Private_value(x)", key.X(), 20},
			{"Public_value(y)", key.Y(), width},
		}
	case *keys.DHKey:
		fields = []dnsField{
			{"Prime(p)", key.P(), 0},
			{"Generator(g)", key.G(), 0},
			{"Private_value(x)", key.X(), 0},
			{"Public_value(y)", key.Y(), 0},
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Private-key-format: %s\n", dnsPrivateFormat)
	fmt.Fprintf(&b, "Algorithm: %d (%s)\n", alg, DNSAlgorithmName(alg))
	for _, f := range fields {
		v := f.n.Bytes()
		if f.size > 0 {
			if v, err = encoding.IntToBytesFixed(f.n, f.size, encoding.BigEndian); err != nil {
				return nil, err
			}
		}
		fmt.Fprintf(&b, "%s: %s\n", f.name, encoding.EncodeBase64(v))
	}
	for _, kv := range raw {
		fmt.Fprintf(&b, "%s: %s\n", kv[0], kv[1])
	}
	now := time.Now().UTC()
	for _, ts := range []struct {
		name string
		t    time.Time
	}{{"Created", dnsTime(opts, func(o *Options) time.Time { return o.DNSCreated }, now)},
		{"Publish", dnsTime(opts, func(o *Options) time.Time { return o.DNSPublish }, now)},
		{"Activate", dnsTime(opts, func(o *Options) time.Time { return o.DNSActivate }, now)}} {
		fmt.Fprintf(&b, "%s: %s\n", ts.name, ts.t.UTC().Format(dnsTimeLayout))
	}
	return []byte(b.String()), nil
}

func dnsTime(opts *Options, get func(*Options) time.Time, def time.Time) time.Time {
	if opts == nil || get(opts).IsZero() {
		return def
	}
	return get(opts)
}

// DNSPrivateKey is a decoded BIND private key file.
type DNSPrivateKey struct {
	Algorithm uint8
	Key       keys.Key
	Created   time.Time
	Publish   time.Time
	Activate  time.Time
}

// ParseDNSPrivateKey decodes a BIND private key file. Versions v1.x are
// accepted; unknown fields are ignored.
func ParseDNSPrivateKey(buf []byte) (*DNSPrivateKey, error) {
	m := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(buf))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: DNS private key line %q", encoding.ErrInvalidData, line)
		}
		m[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if !strings.HasPrefix(m["Private-key-format"], "v1.") {
		return nil, fmt.Errorf("%w: DNS private key format %q", encoding.ErrUnrecognizedKey, m["Private-key-format"])
	}
	algField := strings.Fields(m["Algorithm"])
	if len(algField) == 0 {
		return nil, fmt.Errorf("%w: missing DNS private key algorithm", encoding.ErrInvalidData)
	}
	num, err := strconv.ParseUint(algField[0], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: DNS private key algorithm %q", encoding.ErrInvalidData, algField[0])
	}
	alg := uint8(num)
	kind, ok := dnsAlgorithms[alg]
	if !ok {
		return nil, fmt.Errorf("%w: DNSSEC algorithm %d", encoding.ErrUnsupportedAlgorithm, alg)
	}

	ints := func(names ...string) ([]*big.Int, error) {
		out := make([]*big.Int, len(names))
		for i, name := range names {
			v, ok := m[name]
			if !ok {
				return nil, fmt.Errorf("%w: DNS private key lacks %s", encoding.ErrInvalidData, name)
			}
			b, err := encoding.DecodeBase64(v)
			if err != nil {
				return nil, err
			}
			out[i] = new(big.Int).SetBytes(b)
		}
		return out, nil
	}

	var k keys.Key
	switch kind {
	case keys.AlgorithmRSA:
		v, err := ints("Modulus", "PublicExponent", "PrivateExponent", "Prime1", "Prime2", "Exponent1", "Exponent2", "Coefficient")
		if err != nil {
			return nil, err
		}
		k, err = keys.NewRSAPrivateKeyCRT(v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7])
		if err != nil {
			return nil, err
		}
	case keys.AlgorithmECDSA:
		curve, err := keys.CurveByDNSAlgorithm(alg)
		if err != nil {
			return nil, err
		}
		v, err := ints("PrivateKey")
		if err != nil {
			return nil, err
		}
		if k, err = keys.NewECDSAPrivateKey(curve, v[0]); err != nil {
			return nil, err
		}
	case keys.AlgorithmEdDSA:
		seed, err := encoding.DecodeBase64(m["PrivateKey"])
		if err != nil {
			return nil, err
		}
		curve := keys.Ed25519
		if alg == dns.ED448 {
			curve = keys.Ed448
		}
		if k, err = keys.NewEdDSAPrivateKey(curve, seed); err != nil {
			return nil, err
		}
	case keys.AlgorithmDSA:
		v, err := ints("Prime(p)", "Subprime(q)", "Base(g)", "Public_value(y)", "Private_value(x)")
		if err != nil {
			return nil, err
		}
		if k, err = keys.NewDSAPrivateKeyWithY(v[0], v[1], v[2], v[3], v[4]); err != nil {
			return nil, err
		}
	case keys.AlgorithmDH:
		v, err := ints("Prime(p)", "Generator(g)", "Public_value(y)", "Private_value(x)")
		if err != nil {
			return nil, err
		}
		if k, err = keys.NewDHPrivateKeyWithY(v[0], v[1], v[2], v[3]); err != nil {
			return nil, err
		}
	}

	out := &DNSPrivateKey{Algorithm: alg, Key: k}
	for name, dst := range map[string]*time.Time{"Created": &out.Created, "Publish": &out.Publish, "Activate": &out.Activate} {
		v, ok := m[name]
		if !ok {
			continue
		}
		t, err := time.Parse(dnsTimeLayout, v)
		if err != nil {
			return nil, fmt.Errorf("%w: DNS private key %s time %q", encoding.ErrInvalidData, name, v)
		}
		*dst = t
	}
	return out, nil
}

func dnsPrivateAlgorithm(buf []byte) (keys.Algorithm, bool) {
	text := bytes.TrimSpace(buf)
	if !bytes.HasPrefix(text, []byte("Private-key-format:")) {
		return "", false
	}
	_, after, ok := bytes.Cut(text, []byte("\nAlgorithm:"))
	if !ok {
		return "", false
	}
	fields := strings.Fields(string(after))
	if len(fields) == 0 {
		return "", false
	}
	num, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil {
		return "", false
	}
	kind, ok := dnsAlgorithms[uint8(num)]
	return kind, ok
}

// ============================================================================
// Codecs
// ============================================================================

func dnsCodec(alg keys.Algorithm) *codec {
	return &codec{
		format: FormatDNSKey,
		alg:    alg,
		check: func(buf []byte) bool {
			a, ok := dnsPrivateAlgorithm(buf)
			if !ok {
				a, ok = dnsPublicAlgorithm(buf)
			}
			return ok && a == alg
		},
		encode: func(k keys.Key, opts *Options) ([]byte, error) {
			if k.IsPrivate() && !opts.public() {
				return MarshalDNSPrivateKey(k, opts)
			}
			var flags uint16
			var override uint8
			if opts != nil {
				flags, override = opts.DNSFlags, opts.DNSAlgorithm
			}
			r, err := NewDNSKey(k, flags, override)
			if err != nil {
				return nil, err
			}
			return r.MarshalText()
		},
		decode: func(buf []byte, _ *Options) (keys.Key, error) {
			if _, ok := dnsPrivateAlgorithm(buf); ok {
				priv, err := ParseDNSPrivateKey(buf)
				if err != nil {
					return nil, err
				}
				return priv.Key, nil
			}
			r, err := ParseDNSKey(buf)
			if err != nil {
				return nil, err
			}
			return r.Key, nil
		},
	}
}

func init() {
	register(
		dnsCodec(keys.AlgorithmRSA),
		dnsCodec(keys.AlgorithmDSA),
		dnsCodec(keys.AlgorithmECDSA),
		dnsCodec(keys.AlgorithmEdDSA),
		dnsCodec(keys.AlgorithmDH),
	)
}
