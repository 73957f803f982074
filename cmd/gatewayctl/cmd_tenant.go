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
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
	"github.com/qwed-gateway/qwed/store"
	"github.com/qwed-gateway/qwed/tenant"
)

var (
	tenantOrgID       string
	tenantOrgName     string
	tenantTier        string
	tenantRole        string
	tenantDailyQuota  int
	tenantMinuteQuota int
	tenantFingerprint string
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Provision and revoke tenant API keys",
}

var tenantProvisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Generate a new API key for a tenant and write it to the store",
	Long: `Generates a fresh random API key, records its fingerprint and
quota alongside the tenant's org ID, and prints the raw key exactly
once. The gateway only ever sees the fingerprint again: store the
printed key somewhere safe, it cannot be recovered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tenantOrgID == "" {
			return fmt.Errorf("--org-id is required")
		}
		role := schema.Role(tenantRole)
		tc := &schema.TenantContext{
			OrgID:       tenantOrgID,
			OrgName:     tenantOrgName,
			Tier:        schema.Tier(tenantTier),
			Role:        role,
			Permissions: permissionsForRole(role),
			DailyQuota:  tenantDailyQuota,
			MinuteQuota: tenantMinuteQuota,
		}

		rawKey, err := generateAPIKey()
		if err != nil {
			return fmt.Errorf("generate api key: %w", err)
		}
		tc.KeyFingerprint = tenant.Fingerprint(rawKey)

		db := openStore()
		defer db.Close()
		repo := store.NewTenantRepository(db)
		if err := repo.Provision(cmd.Context(), tc.KeyFingerprint, tc); err != nil {
			return fmt.Errorf("provision tenant: %w", err)
		}

		fmt.Printf("org_id=%s role=%s tier=%s\n", tc.OrgID, tc.Role, tc.Tier)
		fmt.Printf("api_key=%s\n", rawKey)
		fmt.Println("store this key now, it will not be shown again")
		return nil
	},
}

var tenantRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a tenant's API key by its fingerprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tenantFingerprint == "" {
			return fmt.Errorf("--fingerprint is required")
		}
		db := openStore()
		defer db.Close()
		repo := store.NewTenantRepository(db)
		if err := repo.Revoke(cmd.Context(), tenantFingerprint); err != nil {
			return fmt.Errorf("revoke tenant: %w", err)
		}
		fmt.Printf("revoked fingerprint=%s\n", tenantFingerprint)
		return nil
	},
}

func init() {
	tenantProvisionCmd.Flags().StringVar(&tenantOrgID, "org-id", "", "tenant organization ID")
	tenantProvisionCmd.Flags().StringVar(&tenantOrgName, "org-name", "", "tenant organization display name")
	tenantProvisionCmd.Flags().StringVar(&tenantTier, "tier", string(schema.TierFree), "subscription tier: free, standard, enterprise")
	tenantProvisionCmd.Flags().StringVar(&tenantRole, "role", string(schema.RoleUser), "role: viewer, user, admin")
	tenantProvisionCmd.Flags().IntVar(&tenantDailyQuota, "daily-quota", 1000, "max verifications per day")
	tenantProvisionCmd.Flags().IntVar(&tenantMinuteQuota, "minute-quota", 60, "max verifications per minute")

	tenantRevokeCmd.Flags().StringVar(&tenantFingerprint, "fingerprint", "", "key fingerprint to revoke")
}

// permissionsForRole mirrors the grants middleware.RequirePermission
// checks against: viewers may only read history, users may also verify,
// view metrics and manage agents, and admins additionally hold PermAdmin.
func permissionsForRole(role schema.Role) map[schema.Permission]bool {
	perms := map[schema.Permission]bool{
		schema.PermViewHistory: true,
	}
	switch role {
	case schema.RoleAdmin:
		perms[schema.PermVerify] = true
		perms[schema.PermViewMetrics] = true
		perms[schema.PermManageAgent] = true
		perms[schema.PermAdmin] = true
	case schema.RoleUser:
		perms[schema.PermVerify] = true
		perms[schema.PermViewMetrics] = true
		perms[schema.PermManageAgent] = true
	}
	return perms
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
