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

	"github.com/qwed-gateway/qwed/audit"
	"github.com/qwed-gateway/qwed/store"
)

var auditSecretEnvVar string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the append-only verification audit chain",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Walk the audit chain and report the first broken hash link, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := audit.SecretFromEnv(auditSecretEnvVar)
		if err != nil {
			return fmt.Errorf("load audit secret from %s: %w", auditSecretEnvVar, err)
		}

		db := openStore()
		defer db.Close()
		chain := audit.NewChain(store.NewAuditRepository(db), secret)

		broken, err := chain.Verify(cmd.Context())
		if err != nil {
			return fmt.Errorf("verify chain: %w", err)
		}
		if broken != nil {
			fmt.Fprintf(os.Stderr, "chain broken at entry %d: %s\n", broken.EntryID, broken.Reason)
			os.Exit(1)
		}
		fmt.Println("chain intact")
		return nil
	},
}

func init() {
	auditVerifyCmd.Flags().StringVar(&auditSecretEnvVar, "secret-env", "AUDIT_SECRET_KEY", "environment variable holding the audit chain's HMAC secret")
}
