// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command gateway starts the qwed verification gateway HTTP server.
//
// # Environment Variables
//
// See pkg/config.Load for the full list; the most commonly set are
// GATEWAY_PORT, PERSISTENCE_PATH, POLICY_PATTERN_DIR, AUDIT_SECRET_KEY,
// PRIMARY_KEY/PRIMARY_MODEL, and WEAVIATE_SERVICE_URL.
//
// # Usage
//
//	go build -o gateway ./cmd/gateway
//	./gateway
package main

import (
	"os"

	"github.com/qwed-gateway/qwed/gateway"
	"github.com/qwed-gateway/qwed/pkg/config"
	"github.com/qwed-gateway/qwed/pkg/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Config{Level: logging.ParseLevel(cfg.LogLevel), Service: "gateway", LogDir: cfg.LogDir})

	logger.Info("starting gateway",
		"port", cfg.Port,
		"persistence_path", cfg.PersistencePath,
		"weaviate_url", cfg.WeaviateURL,
	)

	svc, err := gateway.New(cfg)
	if err != nil {
		logger.Error("failed to create gateway", "error", err)
		os.Exit(1)
	}

	if err := svc.Run(); err != nil {
		logger.Error("gateway error", "error", err)
		os.Exit(1)
	}
}
