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

// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"crypto/dsa"
	"crypto/rand"
	"fmt"
	"sync"
	"testing"

	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// KeyNames lists every fixture in generation order.
var KeyNames = []string{"rsa", "dsa", "p256", "p384", "p521", "ed25519", "ed448", "x25519", "x448", "dh"}

// fixtures are generated once per test binary; DSA parameter generation is slow.
var fixtures = sync.OnceValues(func() (map[string]keys.Key, error) {
	out := make(map[string]keys.Key, len(KeyNames))
	for _, name := range KeyNames {
		k, err := generate(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = k
	}
	return out, nil
})

func generate(name string) (keys.Key, error) {
	switch name {
	case "rsa":
		return keys.GenerateRSA(rand.Reader, 2048)
	case "dsa":
		return keys.GenerateDSAWithSizes(rand.Reader, dsa.L1024N160)
	case "p256":
		return keys.GenerateECDSA(rand.Reader, keys.P256)
	case "p384":
		return keys.GenerateECDSA(rand.Reader, keys.P384)
	case "p521":
		return keys.GenerateECDSA(rand.Reader, keys.P521)
	case "ed25519":
		return keys.GenerateEdDSA(rand.Reader, keys.Ed25519)
	case "ed448":
		return keys.GenerateEdDSA(rand.Reader, keys.Ed448)
	case "x25519":
		return keys.GenerateXDH(rand.Reader, keys.X25519)
	case "x448":
		return keys.GenerateXDH(rand.Reader, keys.X448)
	case "dh":
		return keys.GenerateDH(rand.Reader, keys.Oakley1024)
	}
	return nil, fmt.Errorf("unknown fixture %q", name)
}

// Key returns the named private key fixture.
func Key(t testing.TB, name string) keys.Key {
	t.Helper()
	all, err := fixtures()
	if err != nil {
		t.Fatalf("generate fixtures: %v", err)
	}
	k, ok := all[name]
	if !ok {
		t.Fatalf("unknown fixture %q", name)
	}
	return k
}
