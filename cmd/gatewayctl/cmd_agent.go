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
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
	"github.com/qwed-gateway/qwed/store"
)

var (
	agentOrgID string
	agentName  string
	agentID    string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Register autonomous agents and inspect their verification history",
}

var agentRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new agent under a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		if agentOrgID == "" || agentName == "" {
			return fmt.Errorf("--org-id and --name are required")
		}
		id, err := randomAgentID()
		if err != nil {
			return fmt.Errorf("allocate agent id: %w", err)
		}

		db := openStore()
		defer db.Close()
		repo := store.NewAgentRepository(db)
		agent := &schema.Agent{ID: id, TenantID: agentOrgID, Name: agentName, CreatedAt: time.Now().UTC()}
		if err := repo.Register(cmd.Context(), agent); err != nil {
			return fmt.Errorf("register agent: %w", err)
		}
		fmt.Printf("agent_id=%s org_id=%s name=%s\n", agent.ID, agent.TenantID, agent.Name)
		return nil
	},
}

var agentActivityCmd = &cobra.Command{
	Use:   "activity",
	Short: "List recorded verification activity for an agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		if agentID == "" {
			return fmt.Errorf("--id is required")
		}
		db := openStore()
		defer db.Close()
		repo := store.NewAgentRepository(db)

		activity, err := repo.ListActivityForAgent(cmd.Context(), agentID)
		if err != nil {
			return fmt.Errorf("list activity: %w", err)
		}
		for _, a := range activity {
			fmt.Printf("%d\t%s\t%s\t%s\t%s\n", a.ID, a.Timestamp.Format(time.RFC3339), a.Kind, a.Verdict, a.Fingerprint)
		}
		return nil
	},
}

func init() {
	agentRegisterCmd.Flags().StringVar(&agentOrgID, "org-id", "", "owning tenant organization ID")
	agentRegisterCmd.Flags().StringVar(&agentName, "name", "", "agent display name")

	agentActivityCmd.Flags().StringVar(&agentID, "id", "", "agent ID")
}

func randomAgentID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
