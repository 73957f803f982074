// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the gateway's configuration from environment
// variables and watches the policy pattern directory for hot reload.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full set of environment-driven gateway settings. Names
// follow the environment keys documented for the gateway: ACTIVE_PROVIDER,
// MAX_INPUT_LENGTH, SANDBOX_*, AUDIT_SECRET_KEY, RATE_LIMIT_*,
// CACHE_TTL_SECONDS.
type Config struct {
	Port int

	PersistencePath  string // BadgerDB directory (PERSISTENCE_PATH)
	PolicyPatternDir string // YAML pattern files, hot-reloaded via fsnotify

	LogLevel string
	LogDir   string

	MaxInputLength int

	AuditSecretKey string

	RateLimitPerKey int
	RateLimitGlobal int

	SandboxMemoryLimitMB int
	SandboxCPULimit      int
	SandboxTimeout       time.Duration

	CacheTTL      time.Duration
	CacheCapacity int

	ActiveProvider     string // primary | secondary | auto
	ProviderTimeout    time.Duration
	ReflectionMaxTries int

	PrimaryEndpoint string
	PrimaryKey      string
	PrimaryModel    string

	SecondaryEndpoint string
	SecondaryKey      string
	SecondaryModel    string

	WeaviateURL string

	GCSBucket string

	AdminBootstrapKey string

	InMemory               bool   // GATEWAY_IN_MEMORY: ephemeral store, for tests and demos
	InFlightCap            int    // GATEWAY_IN_FLIGHT_CAP
	SandboxInterpreterPath string // SANDBOX_INTERPRETER_PATH
	AttestationKeyID       string // ATTESTATION_KEY_ID
	AttestationPrivateKey  string // ATTESTATION_PRIVATE_KEY: hex-encoded Ed25519 seed
}

// Load builds a Config from the process environment, applying the same
// defaults a bare-metal deployment would need to boot without a .env file.
func Load() Config {
	return Config{
		Port: getEnvInt("GATEWAY_PORT", 8080),

		PersistencePath:  getEnvString("PERSISTENCE_PATH", "./data/qwed.db"),
		PolicyPatternDir: getEnvString("POLICY_PATTERN_DIR", "./policy/patterns"),

		LogLevel: getEnvString("LOG_LEVEL", "info"),
		LogDir:   os.Getenv("LOG_DIR"),

		MaxInputLength: getEnvInt("MAX_INPUT_LENGTH", 2000),

		AuditSecretKey: os.Getenv("AUDIT_SECRET_KEY"),

		RateLimitPerKey: getEnvInt("RATE_LIMIT_PER_KEY", 100),
		RateLimitGlobal: getEnvInt("RATE_LIMIT_GLOBAL", 1000),

		SandboxMemoryLimitMB: getEnvInt("SANDBOX_MEMORY_LIMIT", 256),
		SandboxCPULimit:      getEnvInt("SANDBOX_CPU_LIMIT", 5),
		SandboxTimeout:       getEnvDuration("SANDBOX_TIMEOUT", 10*time.Second),

		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
		CacheCapacity: getEnvInt("CACHE_CAPACITY", 10000),

		ActiveProvider:     getEnvString("ACTIVE_PROVIDER", "primary"),
		ProviderTimeout:    getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),
		ReflectionMaxTries: getEnvInt("REFLECTION_MAX_TRIES", 3),

		PrimaryEndpoint: os.Getenv("PRIMARY_ENDPOINT"),
		PrimaryKey:      os.Getenv("PRIMARY_KEY"),
		PrimaryModel:    getEnvString("PRIMARY_MODEL", "gpt-4o-mini"),

		SecondaryEndpoint: os.Getenv("SECONDARY_ENDPOINT"),
		SecondaryKey:      os.Getenv("SECONDARY_KEY"),
		SecondaryModel:    os.Getenv("SECONDARY_MODEL"),

		WeaviateURL: os.Getenv("WEAVIATE_SERVICE_URL"),

		GCSBucket: os.Getenv("AUDIT_COLD_STORAGE_BUCKET"),

		AdminBootstrapKey: os.Getenv("ADMIN_BOOTSTRAP_KEY"),

		InMemory:               getEnvBool("GATEWAY_IN_MEMORY", false),
		InFlightCap:            getEnvInt("GATEWAY_IN_FLIGHT_CAP", 256),
		SandboxInterpreterPath: getEnvString("SANDBOX_INTERPRETER_PATH", "/usr/bin/python3"),
		AttestationKeyID:       getEnvString("ATTESTATION_KEY_ID", "gateway-1"),
		AttestationPrivateKey:  os.Getenv("ATTESTATION_PRIVATE_KEY"),
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
	}
	return defaultValue
}
