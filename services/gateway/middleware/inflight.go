// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InFlightLimit is a buffered-channel semaphore bounding how many
// requests may be inside the handler chain at once, independent of the
// per-tenant rate buckets RateLimitMiddleware enforces. It protects the
// process's own sandbox/provider-call capacity rather than a tenant's
// quota, so it runs ahead of authentication and applies to every
// caller equally.
func InFlightLimit(max int) gin.HandlerFunc {
	slots := make(chan struct{}, max)
	return func(c *gin.Context) {
		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "server at capacity, retry shortly",
			})
		}
	}
}
