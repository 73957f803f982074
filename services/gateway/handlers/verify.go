// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers holds the gateway's Gin HTTP handlers: one per
// verification kind plus the history, metrics, health, attestation-key,
// and agent-lifecycle endpoints, each a thin adapter over
// pipeline.Pipeline.Run.
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qwed-gateway/qwed/attestation"
	"github.com/qwed-gateway/qwed/frames"
	"github.com/qwed-gateway/qwed/services/gateway/apierr"
	"github.com/qwed-gateway/qwed/services/gateway/middleware"
	"github.com/qwed-gateway/qwed/services/gateway/observability"
	"github.com/qwed-gateway/qwed/services/gateway/pipeline"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// Handlers holds every dependency the HTTP layer calls into, beyond
// what middleware already resolved onto the Gin context.
type Handlers struct {
	Pipeline   *pipeline.Pipeline
	Signer     *attestation.Signer
	Metrics    *observability.Metrics
	frameStore *frames.Store
}

// New builds a Handlers.
func New(p *pipeline.Pipeline, signer *attestation.Signer, metrics *observability.Metrics, frameStore *frames.Store) *Handlers {
	return &Handlers{Pipeline: p, Signer: signer, Metrics: metrics, frameStore: frameStore}
}

// verifyRequestBody is the wire shape of a POST /verify/* body. Fields
// not relevant to the addressed kind are ignored, matching how
// translate.Translate reads only the field its kind needs.
type verifyRequestBody struct {
	Query         string          `json:"query"`
	Claim         string          `json:"claim"`
	Context       string          `json:"context"`
	Code          string          `json:"code"`
	Language      string          `json:"language"`
	SQLQuery      string          `json:"sql_query"`
	Schema        json.RawMessage `json:"schema"`
	Dialect       string          `json:"dialect"`
	ImageBase64   string          `json:"image_base64"`
	Mode          string          `json:"mode"`
	MinConfidence float64         `json:"min_confidence"`
	Payload       json.RawMessage `json:"payload"`
	Provider      string          `json:"provider"`
}

// envelope is the canonical response shape for every verification
// endpoint, per the gateway's external interface contract.
type envelope struct {
	Status       schema.Verdict `json:"status"`
	FinalAnswer  any            `json:"final_answer,omitempty"`
	Verification any            `json:"verification,omitempty"`
	Translation  any            `json:"translation,omitempty"`
	ProviderUsed string         `json:"provider_used,omitempty"`
	LatencyMS    int64          `json:"latency_ms"`
	Attestation  string         `json:"attestation,omitempty"`
	Cached       bool           `json:"cached,omitempty"`
}

// buildEnvelope converts a VerificationResult into the wire envelope,
// signing an attestation token when Handlers has a Signer and the
// underlying audit entry is known.
func (h *Handlers) buildEnvelope(result schema.VerificationResult, entry *schema.AuditEntry) envelope {
	env := envelope{
		Status:       result.Verdict,
		FinalAnswer:  result.FinalAnswer,
		Verification: result.Payload,
		ProviderUsed: result.ProviderUsed,
		LatencyMS:    result.LatencyMS,
		Cached:       result.Cached,
	}
	if result.Correction != nil {
		env.Verification = result.Correction
	}
	if h.Signer != nil && entry != nil {
		token, err := h.Signer.Sign(attestation.Claims{
			TenantID:    entry.TenantID,
			Fingerprint: entry.Fingerprint,
			Verdict:     string(entry.Verdict),
			Engine:      string(entry.Kind),
			EntryHash:   entry.EntryHash,
		})
		if err == nil {
			env.Attestation = token
		}
	}
	return env
}

// runAndRespond is the common tail of every verify handler: run req
// through the pipeline, record metrics, and write the response
// envelope or the mapped error status.
func (h *Handlers) runAndRespond(c *gin.Context, req *schema.VerificationRequest) {
	result, entry, err := h.Pipeline.Run(c.Request.Context(), req)
	if err != nil {
		status := apierr.HTTPStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordRequest(string(req.Kind), string(result.Verdict), float64(result.LatencyMS)/1000.0)
	}

	status := http.StatusOK
	if result.Verdict == schema.VerdictBlocked {
		status = http.StatusBadRequest
	}
	c.JSON(status, h.buildEnvelope(result, entry))
}

// newRequest builds the base VerificationRequest shared by every kind,
// pulling the tenant AuthMiddleware already resolved.
func newRequest(c *gin.Context, kind schema.Kind, query, provider string, payload json.RawMessage) *schema.VerificationRequest {
	return &schema.VerificationRequest{
		Tenant:            middleware.GetTenant(c),
		Kind:              kind,
		Query:             query,
		Payload:           payload,
		PreferredProvider: provider,
	}
}

// VerifyNaturalLanguage handles POST /verify/natural_language.
func (h *Handlers) VerifyNaturalLanguage(c *gin.Context) {
	var body verifyRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.runAndRespond(c, newRequest(c, schema.KindNaturalLanguage, body.Query, body.Provider, nil))
}

// VerifyLogic handles POST /verify/logic.
func (h *Handlers) VerifyLogic(c *gin.Context) {
	var body verifyRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.runAndRespond(c, newRequest(c, schema.KindLogic, body.Query, body.Provider, nil))
}

// statsMultipartPayload is what translate.Translate's statsPayload
// decodes; built here from the multipart form rather than JSON since
// stats requests upload a CSV file.
type statsMultipartPayload struct {
	FrameRef string   `json:"frame_ref"`
	Columns  []string `json:"columns"`
}

// VerifyStats handles POST /verify/stats. Per §6 this is a multipart
// request: the `file` part is the CSV to register as a frame, `query`
// names the claim, and `frame_ref` (form field) is the name under
// which the uploaded frame becomes addressable for this request.
func (h *Handlers) VerifyStats(c *gin.Context) {
	query := c.PostForm("query")
	provider := c.PostForm("provider")
	frameRef := c.PostForm("frame_ref")
	if frameRef == "" {
		frameRef = "upload"
	}

	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		data := make([]byte, 0, 4096)
		buf := make([]byte, 4096)
		for {
			n, readErr := file.Read(buf)
			if n > 0 {
				data = append(data, buf[:n]...)
			}
			if readErr != nil {
				break
			}
		}
		if h.frameStore != nil {
			tenant := middleware.GetTenant(c)
			if tenant != nil {
				h.frameStore.Put(tenant.OrgID, frameRef, data)
			}
		}
	}

	payload, _ := json.Marshal(statsMultipartPayload{FrameRef: frameRef})
	h.runAndRespond(c, newRequest(c, schema.KindStats, query, provider, payload))
}

// VerifyFact handles POST /verify/fact.
func (h *Handlers) VerifyFact(c *gin.Context) {
	var body verifyRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	payload, _ := json.Marshal(struct {
		ContextText string `json:"context_text"`
	}{ContextText: body.Context})
	h.runAndRespond(c, newRequest(c, schema.KindFact, body.Claim, body.Provider, payload))
}

// VerifyCode handles POST /verify/code.
func (h *Handlers) VerifyCode(c *gin.Context) {
	var body verifyRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	payload, _ := json.Marshal(struct {
		Code     string `json:"code"`
		Language string `json:"language"`
	}{Code: body.Code, Language: body.Language})
	h.runAndRespond(c, newRequest(c, schema.KindCode, "", body.Provider, payload))
}

// VerifySQL handles POST /verify/sql.
func (h *Handlers) VerifySQL(c *gin.Context) {
	var body verifyRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var tables map[string][]string
	_ = json.Unmarshal(body.Schema, &tables)
	payload, _ := json.Marshal(struct {
		Query  string `json:"query"`
		Schema struct {
			Tables map[string][]string `json:"tables"`
		} `json:"schema"`
		Dialect string `json:"dialect"`
	}{
		Query: body.SQLQuery,
		Schema: struct {
			Tables map[string][]string `json:"tables"`
		}{Tables: tables},
		Dialect: body.Dialect,
	})
	h.runAndRespond(c, newRequest(c, schema.KindSQL, "", body.Provider, payload))
}

// VerifyImage handles POST /verify/image.
func (h *Handlers) VerifyImage(c *gin.Context) {
	var body verifyRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	imageBytes, err := base64.StdEncoding.DecodeString(body.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_base64 is not valid base64"})
		return
	}
	payload, _ := json.Marshal(struct {
		ImageBytes []byte `json:"imagebytes"`
		Claim      string `json:"claim"`
	}{ImageBytes: imageBytes, Claim: body.Claim})
	h.runAndRespond(c, newRequest(c, schema.KindImage, "", body.Provider, payload))
}

// VerifyReasoning handles POST /verify/reasoning.
func (h *Handlers) VerifyReasoning(c *gin.Context) {
	var body verifyRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.runAndRespond(c, newRequest(c, schema.KindReasoning, "", body.Provider, body.Payload))
}

// VerifyConsensus handles POST /verify/consensus.
func (h *Handlers) VerifyConsensus(c *gin.Context) {
	var body verifyRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req := newRequest(c, schema.KindConsensus, body.Query, body.Provider, body.Payload)
	req.ConsensusMode = schema.ConsensusMode(body.Mode)
	h.runAndRespond(c, req)
}
