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

package x509util

import (
	"crypto/rand"
	"crypto/sha1"
	"fmt"
	"io"
	"math/big"

	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-keycodec/pkg/codec"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding"
	"github.com/jeremyhahn/go-keycodec/pkg/encoding/der"
	"github.com/jeremyhahn/go-keycodec/pkg/keys"
	"github.com/jeremyhahn/go-keycodec/pkg/signing"
)

// Certificates, requests and CRLs share one outer shape:
//
//	SEQUENCE { tbs, AlgorithmIdentifier, BIT STRING signature }

// resolveAlgorithm picks the signing algorithm for k, checking an explicit
// choice against the key.
func resolveAlgorithm(alg *signing.Algorithm, k keys.Key) (*signing.Algorithm, error) {
	if k == nil {
		return nil, signing.ErrSignerRequired
	}
	if !k.IsPrivate() {
		return nil, signing.ErrPrivateKeyRequired
	}
	if alg == nil {
		return signing.DefaultFor(k)
	}
	if err := alg.CheckKey(k); err != nil {
		return nil, err
	}
	return alg, nil
}

// signAndAssemble signs the DER encoding of tbs and emits the outer SEQUENCE.
func signAndAssemble(random io.Reader, tbs []byte, algID der.Item, alg *signing.Algorithm, k keys.Key) ([]byte, error) {
	sig, err := alg.Sign(random, k, tbs)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return der.EncodeSequence(der.Raw(tbs), algID, der.BitString(sig))
}

type signedObject struct {
	tbs       der.Element
	rawAlgID  []byte
	signature []byte
}

func parseSigned(b []byte, what string) (signedObject, error) {
	elems, err := der.DecodeSequence(b)
	if err != nil {
		return signedObject{}, fmt.Errorf("%s: %w", what, err)
	}
	if err := der.Expect(elems, 3, 3); err != nil {
		return signedObject{}, fmt.Errorf("%s: %w", what, err)
	}
	if elems[0].Tag != cbasn1.SEQUENCE || elems[1].Tag != cbasn1.SEQUENCE {
		return signedObject{}, fmt.Errorf("%w: %s is malformed", encoding.ErrBadASN1, what)
	}
	sig, err := elems[2].BitStringBytes()
	if err != nil {
		return signedObject{}, fmt.Errorf("%s signature: %w", what, err)
	}
	return signedObject{tbs: elems[0], rawAlgID: elems[1].Raw, signature: sig}, nil
}

// checkSignature looks the algorithm up from its encoded identifier and
// verifies sig over the preserved TBS bytes.
func checkSignature(rawAlgID, tbs, sig []byte, pub keys.Key) error {
	if pub == nil {
		return fmt.Errorf("%w: no public key", encoding.ErrInvalidPublicKey)
	}
	alg, err := signing.ByAlgorithmIdentifier(rawAlgID)
	if err != nil {
		return err
	}
	return alg.Verify(pub.Public(), tbs, sig)
}

// lookupAlgorithm resolves an identifier for display, tolerating unknown ones.
func lookupAlgorithm(rawAlgID []byte) *signing.Algorithm {
	alg, err := signing.ByAlgorithmIdentifier(rawAlgID)
	if err != nil {
		return nil
	}
	return alg
}

// parsePublicKey decodes a SubjectPublicKeyInfo element.
func parsePublicKey(e der.Element) (keys.Key, error) {
	return codec.ParseSPKI(e.Raw)
}

// KeyID is the RFC 5280 section 4.2.1.2 method (1) key identifier: the
// SHA-1 of the subjectPublicKey BIT STRING value.
func KeyID(k keys.Key) ([]byte, error) {
	spki, err := codec.MarshalSPKI(k.Public())
	if err != nil {
		return nil, err
	}
	elems, err := der.DecodeSequence(spki)
	if err != nil {
		return nil, err
	}
	bits, err := elems[1].BitStringBytes()
	if err != nil {
		return nil, err
	}
	sum := sha1.Sum(bits)
	return sum[:], nil
}

// randomSerial returns a positive 128-bit serial number.
func randomSerial(random io.Reader) (*big.Int, error) {
	if random == nil {
		random = rand.Reader
	}
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	for {
		n, err := rand.Int(random, limit)
		if err != nil {
			return nil, fmt.Errorf("serial number: %w", err)
		}
		if n.Sign() > 0 {
			return n, nil
		}
	}
}
