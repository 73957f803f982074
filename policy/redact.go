// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import "regexp"

var (
	emailPattern      = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phonePattern      = regexp.MustCompile(`\+?\d{1,3}[\s.\-]?\(?\d{2,4}\)?[\s.\-]?\d{3,4}[\s.\-]?\d{3,4}`)
	nationalIDPattern = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
)

// Redact scrubs email-like, phone-like, and national-id-like tokens from
// text before it is written to an audit payload. It never touches the live
// request; callers pass a copy intended only for the audit log.
func Redact(text string) string {
	text = emailPattern.ReplaceAllString(text, "[REDACTED_EMAIL]")
	text = nationalIDPattern.ReplaceAllString(text, "[REDACTED_ID]")
	text = phonePattern.ReplaceAllString(text, "[REDACTED_PHONE]")
	return text
}
