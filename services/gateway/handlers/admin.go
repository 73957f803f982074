// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qwed-gateway/qwed/audit"
	"github.com/qwed-gateway/qwed/services/gateway/middleware"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
	"github.com/qwed-gateway/qwed/store"
)

// Admin holds the dependencies the control/observability endpoints
// need beyond Handlers' verification-path dependencies.
type Admin struct {
	Chain   *audit.Chain
	Agents  *store.AgentRepository
	Metrics *Handlers
}

// NewAdmin builds an Admin.
func NewAdmin(chain *audit.Chain, agents *store.AgentRepository, h *Handlers) *Admin {
	return &Admin{Chain: chain, Agents: agents, Metrics: h}
}

// Health handles GET /health, the one endpoint that needs no API key.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AttestationKeys handles GET /attestation/keys, publishing the
// signer's public key as a JWK set so callers can verify attestation
// tokens offline.
func (h *Handlers) AttestationKeys(c *gin.Context) {
	if h.Signer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attestation signing is not configured"})
		return
	}
	c.JSON(http.StatusOK, h.Signer.JWKS())
}

// historyEntry is the subset of an AuditEntry exposed to a tenant's own
// history listing; PreviousHash/EntryHash/HMAC stay internal since they
// only matter to audit.Chain.Verify.
type historyEntry struct {
	ID          uint64         `json:"id"`
	Kind        schema.Kind    `json:"kind"`
	Fingerprint string         `json:"fingerprint"`
	Verdict     schema.Verdict `json:"verdict"`
	LatencyMS   int64          `json:"latency_ms"`
	Timestamp   time.Time      `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// History handles GET /history: a tenant-scoped listing of the audit
// chain by default, or, when the request carries an Upgrade:
// websocket header, a live feed of that tenant's new entries as they
// commit — recovered from the original implementation's observability
// dashboard stream, exposed here as a raw WS feed since the gateway
// has no dashboard of its own.
func (a *Admin) History(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	tenantID := ""
	if tenant != nil {
		tenantID = tenant.OrgID
	}

	if websocket.IsWebSocketUpgrade(c.Request) {
		a.historyStream(c, tenantID)
		return
	}

	var entries []historyEntry
	err := a.Chain.Backend().Walk(c.Request.Context(), func(e schema.AuditEntry) error {
		if e.TenantID == tenantID {
			entries = append(entries, toHistoryEntry(e))
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read audit log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func toHistoryEntry(e schema.AuditEntry) historyEntry {
	return historyEntry{
		ID:          e.ID,
		Kind:        e.Kind,
		Fingerprint: e.Fingerprint,
		Verdict:     e.Verdict,
		LatencyMS:   e.LatencyMS,
		Timestamp:   e.Timestamp,
	}
}

// historyStream upgrades the connection and polls the chain tail for
// new entries belonging to tenantID, pushing each as it appears. A
// small poll interval stands in for a pub/sub feed since the audit
// chain's Backend interface has no native subscription mechanism.
func (a *Admin) historyStream(c *gin.Context, tenantID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	var lastSeen uint64
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tail, ok, err := a.Chain.Backend().Tail(ctx)
			if err != nil || !ok || tail.ID <= lastSeen {
				continue
			}
			var fresh []historyEntry
			_ = a.Chain.Backend().Walk(ctx, func(e schema.AuditEntry) error {
				if e.ID > lastSeen && e.TenantID == tenantID {
					fresh = append(fresh, toHistoryEntry(e))
				}
				return nil
			})
			lastSeen = tail.ID
			for _, entry := range fresh {
				if err := conn.WriteJSON(entry); err != nil {
					return
				}
			}
		}
	}
}

// VerifyChain handles the admin-only chain-integrity check backing
// cmd/gatewayctl's own verify subcommand, exposed over HTTP for
// operators without CLI access.
func (a *Admin) VerifyChain(c *gin.Context) {
	broken, err := a.Chain.Verify(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if broken != nil {
		c.JSON(http.StatusOK, gin.H{"intact": false, "broken_at": broken.EntryID, "reason": broken.Reason})
		return
	}
	c.JSON(http.StatusOK, gin.H{"intact": true})
}

// GlobalMetrics handles GET /metrics, the Prometheus exposition
// endpoint, restricted to admin callers by routes' RequirePermission.
func GlobalMetrics() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) { h.ServeHTTP(c.Writer, c.Request) }
}

// tenantMetrics is the per-tenant counter summary GET /metrics/{org_id}
// returns, derived from a walk of that tenant's audit entries rather
// than a dedicated aggregation table.
type tenantMetrics struct {
	OrgID         string                 `json:"org_id"`
	TotalRequests int                    `json:"total_requests"`
	ByVerdict     map[schema.Verdict]int `json:"by_verdict"`
}

// TenantMetrics handles GET /metrics/{org_id}.
func (a *Admin) TenantMetrics(c *gin.Context) {
	orgID := c.Param("org_id")
	metrics := tenantMetrics{OrgID: orgID, ByVerdict: make(map[schema.Verdict]int)}

	err := a.Chain.Backend().Walk(c.Request.Context(), func(e schema.AuditEntry) error {
		if e.TenantID == orgID {
			metrics.TotalRequests++
			metrics.ByVerdict[e.Verdict]++
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read audit log"})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// registerAgentBody is the POST /agents/register request body.
type registerAgentBody struct {
	Name string `json:"name"`
}

// RegisterAgent handles POST /agents/register.
func (a *Admin) RegisterAgent(c *gin.Context) {
	var body registerAgentBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	tenant := middleware.GetTenant(c)

	id, err := randomAgentID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to allocate agent id"})
		return
	}
	agent := &schema.Agent{ID: id, TenantID: tenant.OrgID, Name: body.Name, CreatedAt: time.Now().UTC()}
	if err := a.Agents.Register(c.Request.Context(), agent); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register agent"})
		return
	}
	c.JSON(http.StatusCreated, agent)
}

func randomAgentID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// AgentVerify handles POST /agents/{id}/verify: runs the normal
// verification pipeline on behalf of a registered agent, rejecting
// agents that belong to a different tenant, and appends a
// store.AgentActivity row alongside the usual audit entry.
func (h *Handlers) AgentVerify(agents *store.AgentRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := middleware.GetTenant(c)
		agentID := c.Param("id")

		agent, ok, err := agents.Get(c.Request.Context(), agentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up agent"})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
			return
		}
		if tenant == nil || agent.TenantID != tenant.OrgID {
			c.JSON(http.StatusForbidden, gin.H{"error": "agent belongs to another tenant"})
			return
		}

		var body verifyRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		kind := schema.Kind(c.Query("kind"))
		if kind == "" {
			kind = schema.KindNaturalLanguage
		}
		req := newRequest(c, kind, body.Query, body.Provider, body.Payload)

		result, entry, err := h.Pipeline.Run(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if entry != nil {
			_ = agents.RecordActivity(c.Request.Context(), &schema.AgentActivity{
				AgentID:     agent.ID,
				TenantID:    agent.TenantID,
				Kind:        req.Kind,
				Verdict:     result.Verdict,
				Fingerprint: entry.Fingerprint,
				Timestamp:   entry.Timestamp,
			})
		}
		c.JSON(http.StatusOK, h.buildEnvelope(result, entry))
	}
}
