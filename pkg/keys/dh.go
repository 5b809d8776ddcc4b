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

package keys

import (
	"crypto"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
)

// DHGroup is a finite-field Diffie-Hellman group.
type DHGroup struct {
	Name string
	P    *big.Int
	G    *big.Int
	// DNSIndex is the RFC 2539 well-known prime index, zero if none.
	DNSIndex int
}

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(strings.Join(strings.Fields(s), ""), 16)
	if !ok {
		panic("keys: bad group constant")
	}
	return n
}

// Well-known MODP groups from RFC 2409 and RFC 3526.
var (
	Oakley768 = &DHGroup{Name: "oakley-1", G: big.NewInt(2), DNSIndex: 1, P: mustHex(`
		FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
		29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
		EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
		E485B576 625E7EC6 F44C42E9 A63A3620 FFFFFFFF FFFFFFFF`)}

	Oakley1024 = &DHGroup{Name: "oakley-2", G: big.NewInt(2), DNSIndex: 2, P: mustHex(`
		FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
		29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
		EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
		E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
		EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE65381
		FFFFFFFF FFFFFFFF`)}

	MODP2048 = &DHGroup{Name: "modp-2048", G: big.NewInt(2), P: mustHex(`
		FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
		29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
		EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
		E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
		EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE45B3D
		C2007CB8 A163BF05 98DA4836 1C55D39A 69163FA8 FD24CF5F
		83655D23 DCA3AD96 1C62F356 208552BB 9ED52907 7096966D
		670C354E 4ABC9804 F1746C08 CA18217C 32905E46 2E36CE3B
		E39E772C 180E8603 9B2783A2 EC07A28F B5C55DF0 6F4C52C9
		DE2BCBF6 95581718 3995497C EA956AE5 15D22618 98FA0510
		15728E5A 8AACAA68 FFFFFFFF FFFFFFFF`)}
)

var dhGroups = []*DHGroup{Oakley768, Oakley1024, MODP2048}

// DHGroupByDNSIndex returns the RFC 2539 well-known group.
func DHGroupByDNSIndex(i int) (*DHGroup, error) {
	for _, g := range dhGroups {
		if g.DNSIndex == i {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: DH well-known prime %d", encoding.ErrUnsupportedAlgorithm, i)
}

// DHGroupByName returns a group by name.
func DHGroupByName(name string) (*DHGroup, error) {
	for _, g := range dhGroups {
		if strings.EqualFold(g.Name, name) {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: DH group %q", encoding.ErrUnsupportedAlgorithm, name)
}

// DHKey is a finite-field Diffie-Hellman key {p, g, x, y = g^x mod p}.
type DHKey struct {
	p, g, x, y *big.Int
}

// NewDHPublicKey builds a public key. y must lie in (1, p-1).
func NewDHPublicKey(p, g, y *big.Int) (*DHKey, error) {
	if p == nil || g == nil || y == nil || p.Sign() <= 0 || p.Bit(0) == 0 {
		return nil, fmt.Errorf("%w: DH modulus must be a positive odd integer", encoding.ErrBadKey)
	}
	pm1 := new(big.Int).Sub(p, bigOne)
	if g.Cmp(bigOne) <= 0 || g.Cmp(pm1) >= 0 {
		return nil, fmt.Errorf("%w: DH generator out of range", encoding.ErrBadKey)
	}
	if y.Cmp(bigOne) <= 0 || y.Cmp(pm1) >= 0 {
		return nil, fmt.Errorf("%w: DH public value out of range", encoding.ErrBadKey)
	}
	return &DHKey{p: new(big.Int).Set(p), g: new(big.Int).Set(g), y: new(big.Int).Set(y)}, nil
}

// NewDHPrivateKey builds a private key and derives y = g^x mod p.
func NewDHPrivateKey(p, g, x *big.Int) (*DHKey, error) {
	if x == nil || p == nil || g == nil || x.Sign() <= 0 || x.Cmp(p) >= 0 {
		return nil, fmt.Errorf("%w: DH private value out of range", encoding.ErrBadKey)
	}
	k, err := NewDHPublicKey(p, g, new(big.Int).Exp(g, x, p))
	if err != nil {
		return nil, err
	}
	k.x = new(big.Int).Set(x)
	return k, nil
}

// NewDHPrivateKeyWithY is NewDHPrivateKey for encodings that also carry y.
func NewDHPrivateKeyWithY(p, g, y, x *big.Int) (*DHKey, error) {
	k, err := NewDHPrivateKey(p, g, x)
	if err != nil {
		return nil, err
	}
	if y == nil || y.Cmp(k.y) != 0 {
		return nil, fmt.Errorf("%w: DH public value is not g^x mod p", encoding.ErrBadKey)
	}
	return k, nil
}

// GenerateDH creates a key in group with a private value of at most 512 bits.
func GenerateDH(random io.Reader, group *DHGroup) (*DHKey, error) {
	if random == nil {
		random = rand.Reader
	}
	xBits := min(group.P.BitLen()-1, 512)
	limit := new(big.Int).Lsh(bigOne, uint(xBits))
	for {
		x, err := rand.Int(random, limit)
		if err != nil {
			return nil, fmt.Errorf("generate DH key: %w", err)
		}
		if x.Cmp(bigOne) > 0 {
			return NewDHPrivateKey(group.P, group.G, x)
		}
	}
}

// Shared computes peer.y^x mod p.
func (k *DHKey) Shared(peer *DHKey) ([]byte, error) {
	if k.x == nil {
		return nil, fmt.Errorf("%w: DH agreement needs a private key", encoding.ErrInvalidPrivateKey)
	}
	if peer.p.Cmp(k.p) != 0 || peer.g.Cmp(k.g) != 0 {
		return nil, fmt.Errorf("%w: DH keys are in different groups", encoding.ErrBadKey)
	}
	z := new(big.Int).Exp(peer.y, k.x, k.p)
	out := make([]byte, (k.p.BitLen()+7)/8)
	z.FillBytes(out)
	return out, nil
}

// Algorithm implements Key.
func (k *DHKey) Algorithm() Algorithm { return AlgorithmDH }

// IsPrivate implements Key.
func (k *DHKey) IsPrivate() bool { return k.x != nil }

// Bits implements Key.
func (k *DHKey) Bits() int { return k.p.BitLen() }

// Public implements Key.
func (k *DHKey) Public() Key {
	if k.x == nil {
		return k
	}
	return &DHKey{p: k.p, g: k.g, y: k.y}
}

// Equal implements Key.
func (k *DHKey) Equal(other Key) bool {
	o, ok := other.(*DHKey)
	if !ok || k.IsPrivate() != o.IsPrivate() {
		return false
	}
	if k.p.Cmp(o.p) != 0 || k.g.Cmp(o.g) != 0 || k.y.Cmp(o.y) != 0 {
		return false
	}
	return k.x == nil || k.x.Cmp(o.x) == 0
}

// CryptoPublicKey implements Key. The standard library has no finite-field
// DH type, so the public projection itself is returned.
func (k *DHKey) CryptoPublicKey() crypto.PublicKey { return k.Public() }

// CryptoPrivateKey implements Key.
func (k *DHKey) CryptoPrivateKey() crypto.PrivateKey {
	if k.x == nil {
		return nil
	}
	return k
}

// P returns the prime modulus.
func (k *DHKey) P() *big.Int { return k.p }

// G returns the generator.
func (k *DHKey) G() *big.Int { return k.g }

// Y returns the public value.
func (k *DHKey) Y() *big.Int { return k.y }

// X returns the private value, or nil for public keys.
func (k *DHKey) X() *big.Int { return k.x }

// Group returns the well-known group this key belongs to, or nil.
func (k *DHKey) Group() *DHGroup {
	for _, g := range dhGroups {
		if g.P.Cmp(k.p) == 0 && g.G.Cmp(k.g) == 0 {
			return g
		}
	}
	return nil
}
