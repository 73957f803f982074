// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides the gateway's Gin HTTP middleware: tenant
// authentication and RBAC enforcement.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
	"github.com/qwed-gateway/qwed/tenant"
)

const tenantContextKey = "qwed_tenant"

// SetTenant stores the resolved tenant in the Gin context.
func SetTenant(c *gin.Context, t *schema.TenantContext) {
	c.Set(tenantContextKey, t)
}

// GetTenant retrieves the resolved tenant set by AuthMiddleware. Returns nil
// if the request reached the handler without authenticating, which should
// never happen on a route behind AuthMiddleware.
func GetTenant(c *gin.Context) *schema.TenantContext {
	v, ok := c.Get(tenantContextKey)
	if !ok {
		return nil
	}
	t, ok := v.(*schema.TenantContext)
	if !ok {
		return nil
	}
	return t
}

// AuthMiddleware extracts a bearer API key, resolves it to a TenantContext
// via resolver, and stores the result in the Gin context for downstream
// handlers. A missing or unresolvable key aborts the request with 401.
func AuthMiddleware(resolver *tenant.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractBearerToken(c)

		t, err := resolver.Resolve(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, tenant.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			if errors.Is(err, tenant.ErrSuspended) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "organization suspended"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}

		SetTenant(c, t)
		c.Next()
	}
}

// RequirePermission aborts with 403 unless the resolved tenant holds perm.
// Must run after AuthMiddleware.
func RequirePermission(perm schema.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := GetTenant(c)
		if !t.HasPermission(perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied", "required": perm})
			return
		}
		c.Next()
	}
}

// extractBearerToken parses "Authorization: Bearer <token>", case
// insensitive on the scheme per RFC 7235. Returns "" if absent or malformed.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
