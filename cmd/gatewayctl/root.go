// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qwed-gateway/qwed/store"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "gatewayctl",
	Short: "Operate a qwed verification gateway's tenant store and audit chain",
	Long: `gatewayctl manages the BadgerDB-backed state a running gateway
process reads and writes: tenant provisioning and revocation, agent
registration, and audit chain integrity verification.

It opens the same database file the gateway server uses, so run it
against a stopped gateway or a replica, not against the live data
directory of a gateway that is currently accepting traffic.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", os.Getenv("GATEWAY_DB_PATH"), "path to the gateway's BadgerDB data directory")

	rootCmd.AddCommand(tenantCmd)
	tenantCmd.AddCommand(tenantProvisionCmd)
	tenantCmd.AddCommand(tenantRevokeCmd)

	rootCmd.AddCommand(agentCmd)
	agentCmd.AddCommand(agentRegisterCmd)
	agentCmd.AddCommand(agentActivityCmd)

	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
}

// openStore opens the configured BadgerDB data directory, exiting the
// process with a clear message when --db was not supplied.
func openStore() *store.DB {
	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "gatewayctl: --db or GATEWAY_DB_PATH is required")
		os.Exit(1)
	}
	cfg := store.DefaultConfig()
	cfg.Path = dbPath
	db, err := store.OpenDB(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gatewayctl: open store at %s: %v\n", dbPath, err)
		os.Exit(1)
	}
	return db
}
