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

import "errors"

var (
	// ErrIssuerMismatch indicates the issuer name does not match the parent subject
	ErrIssuerMismatch = errors.New("x509util: issuer does not match parent subject")

	// ErrNotCA indicates the parent certificate may not issue certificates
	ErrNotCA = errors.New("x509util: parent is not a CA")

	// ErrTemplateRequired indicates a nil template
	ErrTemplateRequired = errors.New("x509util: template is required")
)
