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

package cli

import (
	"fmt"
	"regexp"
	"strings"
)

// keyIDPattern matches key IDs we are willing to write into headers:
// base64url thumbprints, UUIDs and dotted names.
var keyIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-\.:]+$`)

// validateKeyID checks a --kid value. Empty means no kid.
func validateKeyID(kid string) error {
	if kid == "" {
		return nil
	}

	// Check length before the pattern
	if len(kid) > 255 {
		return fmt.Errorf("key ID too long (max 255 characters)")
	}

	for _, r := range kid {
		if r < 32 || r == 127 {
			return fmt.Errorf("key ID contains control characters")
		}
	}

	if !keyIDPattern.MatchString(kid) {
		return fmt.Errorf("key ID contains invalid characters (allowed: a-z, A-Z, 0-9, -, _, ., :)")
	}
	return nil
}

// sanitizeForLog strips control characters from header values taken from
// untrusted input before they reach the logger.
func sanitizeForLog(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	if len(s) > 256 {
		s = s[:256] + "...[truncated]"
	}
	return s
}
