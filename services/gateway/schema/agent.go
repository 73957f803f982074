// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import "time"

// Agent is a tenant-scoped autonomous caller registered to submit
// verification requests under its own identity, distinct from the
// human operator that owns the tenant's API key.
type Agent struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}

// AgentActivity records one verification an Agent submitted, appended
// alongside the normal audit chain entry so an agent's activity can be
// listed without walking the full tenant audit log.
type AgentActivity struct {
	ID          uint64
	AgentID     string
	TenantID    string
	Kind        Kind
	Verdict     Verdict
	Fingerprint string
	Timestamp   time.Time
}
