// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes registers the gateway's HTTP surface onto a gin.Engine.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/qwed-gateway/qwed/ratelimit"
	"github.com/qwed-gateway/qwed/services/gateway/handlers"
	"github.com/qwed-gateway/qwed/services/gateway/middleware"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
	"github.com/qwed-gateway/qwed/store"
	"github.com/qwed-gateway/qwed/tenant"
)

// Config names every dependency SetupRoutes needs to wire the full
// endpoint table.
type Config struct {
	Resolver    *tenant.Resolver
	Limiter     *ratelimit.Limiter
	InFlightCap int
	Handlers    *handlers.Handlers
	Admin       *handlers.Admin
	Agents      *store.AgentRepository
}

// SetupRoutes registers every endpoint in the gateway's external
// interface table: public health, then every authenticated route
// behind InFlightLimit -> AuthMiddleware -> RateLimitMiddleware.
func SetupRoutes(router *gin.Engine, cfg Config) {
	router.GET("/health", handlers.Health)

	authenticated := router.Group("/")
	if cfg.InFlightCap > 0 {
		authenticated.Use(middleware.InFlightLimit(cfg.InFlightCap))
	}
	authenticated.Use(middleware.AuthMiddleware(cfg.Resolver))
	authenticated.Use(middleware.RateLimitMiddleware(cfg.Limiter))

	verify := authenticated.Group("/verify")
	verify.Use(middleware.RequirePermission(schema.PermVerify))
	{
		verify.POST("/natural_language", cfg.Handlers.VerifyNaturalLanguage)
		verify.POST("/logic", cfg.Handlers.VerifyLogic)
		verify.POST("/stats", cfg.Handlers.VerifyStats)
		verify.POST("/fact", cfg.Handlers.VerifyFact)
		verify.POST("/code", cfg.Handlers.VerifyCode)
		verify.POST("/sql", cfg.Handlers.VerifySQL)
		verify.POST("/image", cfg.Handlers.VerifyImage)
		verify.POST("/reasoning", cfg.Handlers.VerifyReasoning)
		verify.POST("/consensus", cfg.Handlers.VerifyConsensus)
	}

	agents := authenticated.Group("/agents")
	{
		agents.POST("/register", middleware.RequirePermission(schema.PermManageAgent), cfg.Admin.RegisterAgent)
		agents.POST("/:id/verify", middleware.RequirePermission(schema.PermVerify), cfg.Handlers.AgentVerify(cfg.Agents))
	}

	authenticated.GET("/history", middleware.RequirePermission(schema.PermViewHistory), cfg.Admin.History)
	authenticated.GET("/metrics", middleware.RequirePermission(schema.PermAdmin), handlers.GlobalMetrics())
	authenticated.GET("/metrics/:org_id", middleware.RequirePermission(schema.PermViewMetrics), cfg.Admin.TenantMetrics)
	authenticated.GET("/attestation/keys", cfg.Handlers.AttestationKeys)
	authenticated.GET("/audit/verify", middleware.RequirePermission(schema.PermAdmin), cfg.Admin.VerifyChain)
}
