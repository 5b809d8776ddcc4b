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

package jwk

import (
	"encoding/json"
	"fmt"

	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
)

// Set is a JWK Set (RFC 7517 section 5).
type Set struct {
	Keys []*JWK `json:"keys"`
}

// KeyResolver returns the key for a key ID. JWS and JWE callers use it to
// select a verification or decryption key from a header's kid.
type KeyResolver func(kid string) (keys.Key, error)

// NewSet builds a set from keys, assigning each JWK its SHA-256 thumbprint
// as kid when kid is empty.
func NewSet(ks ...keys.Key) (*Set, error) {
	set := &Set{}
	for _, k := range ks {
		j, err := FromKey(k)
		if err != nil {
			return nil, err
		}
		if err := set.Add(j); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Add appends a JWK, defaulting its kid to the SHA-256 thumbprint.
// Duplicate kids are rejected.
func (s *Set) Add(j *JWK) error {
	if j.Kid == "" {
		tp, err := j.ThumbprintSHA256()
		if err != nil {
			return err
		}
		j.Kid = tp
	}
	if s.Lookup(j.Kid) != nil {
		return fmt.Errorf("%w: duplicate kid %q", encoding.ErrInvalidData, j.Kid)
	}
	s.Keys = append(s.Keys, j)
	return nil
}

// Lookup returns the JWK with kid, or nil.
func (s *Set) Lookup(kid string) *JWK {
	for _, j := range s.Keys {
		if j.Kid == kid {
			return j
		}
	}
	return nil
}

// Public returns a copy of the set with private members removed and
// symmetric keys dropped.
func (s *Set) Public() *Set {
	out := &Set{Keys: make([]*JWK, 0, len(s.Keys))}
	for _, j := range s.Keys {
		if j.IsSymmetric() {
			continue
		}
		out.Keys = append(out.Keys, j.Public())
	}
	return out
}

// Resolver returns a KeyResolver over the set's asymmetric keys.
func (s *Set) Resolver() KeyResolver {
	return func(kid string) (keys.Key, error) {
		if kid == "" {
			return nil, fmt.Errorf("%w: key ID cannot be empty", encoding.ErrInvalidData)
		}
		j := s.Lookup(kid)
		if j == nil {
			return nil, fmt.Errorf("%w: no key with kid %q", encoding.ErrUnrecognizedKey, kid)
		}
		return j.Key()
	}
}

// Marshal serializes the set to JSON.
func (s *Set) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSet parses a JWK Set. Every member is validated.
func UnmarshalSet(data []byte) (*Set, error) {
	var raw struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: JWK Set JSON: %v", encoding.ErrInvalidData, err)
	}
	if raw.Keys == nil {
		return nil, fmt.Errorf("%w: JWK Set without keys", encoding.ErrInvalidData)
	}
	set := &Set{Keys: make([]*JWK, 0, len(raw.Keys))}
	for i, m := range raw.Keys {
		j, err := Unmarshal(m)
		if err != nil {
			return nil, fmt.Errorf("JWK Set member %d: %w", i, err)
		}
		set.Keys = append(set.Keys, j)
	}
	return set, nil
}
