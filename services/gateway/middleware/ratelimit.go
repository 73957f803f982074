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
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qwed-gateway/qwed/ratelimit"
)

// RateLimitMiddleware enforces the dual token-bucket check for the
// resolved tenant's key fingerprint. Must run after AuthMiddleware. On
// exhaustion it responds 429 with Retry-After set to the stricter bucket's
// wait time.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := GetTenant(c)
		key := "anonymous"
		if t != nil {
			key = t.KeyFingerprint
		}

		res := limiter.Allow(key)
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds()+1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limited",
				"bucket":      res.Bucket,
				"retry_after": res.RetryAfter.Seconds(),
			})
			return
		}
		c.Next()
	}
}
