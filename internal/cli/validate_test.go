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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateKeyID(t *testing.T) {
	tests := []struct {
		kid   string
		valid bool
	}{
		{"", true},
		{"key-1", true},
		{"NzbLsXh8uDCcd-6MNwXF4W_7noWXFZAfHkxZsRGC9Xs", true},
		{"urn:example:key.2", true},
		{"has space", false},
		{"line\nbreak", false},
		{"quote\"", false},
		{"../etc/passwd", false},
		{strings.Repeat("a", 256), false},
	}
	for _, tt := range tests {
		err := validateKeyID(tt.kid)
		if tt.valid {
			assert.NoError(t, err, tt.kid)
		} else {
			assert.Error(t, err, tt.kid)
		}
	}
}

func TestSanitizeForLog(t *testing.T) {
	assert.Equal(t, "abcforged=1", sanitizeForLog("abc\nforged=1"))
	assert.Equal(t, "tab", sanitizeForLog("t\tab"))

	long := sanitizeForLog(strings.Repeat("x", 300))
	assert.True(t, strings.HasSuffix(long, "...[truncated]"))
	assert.Len(t, long, 256+len("...[truncated]"))
}
