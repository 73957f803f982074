// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package openai implements providers.Provider against the OpenAI chat
// completion API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaigo "github.com/sashabaranov/go-openai"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// Client adapts the OpenAI chat completion API to providers.Provider.
type Client struct {
	client *openaigo.Client
	model  string
	name   string
}

// New builds a Client. apiKey must be non-empty; callers resolve it from
// PRIMARY_KEY/SECONDARY_KEY per the gateway's provider-prefixed
// environment convention.
func New(name, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key not configured for provider %q", name)
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{client: openaigo.NewClient(apiKey), model: model, name: name}, nil
}

func (c *Client) Name() string { return c.name }

// translationResponse is the structured JSON shape every translation
// prompt asks the model to emit; each capability method unmarshals into
// the subset of fields it needs.
type translationResponse struct {
	Expression    string   `json:"expression"`
	ClaimedResult *float64 `json:"claimed_result"`
	Reasoning     string   `json:"reasoning"`
	DSL           string   `json:"dsl"`
	Code          string   `json:"code"`
	Verdict       string   `json:"verdict"`
}

func (c *Client) complete(ctx context.Context, systemPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: c.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: "You respond only with a single JSON object, no prose."},
			{Role: openaigo.ChatMessageRoleUser, Content: systemPrompt},
		},
		ResponseFormat: &openaigo.ChatCompletionResponseFormat{Type: openaigo.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) TranslateMath(ctx context.Context, query string) (*schema.MathTask, error) {
	prompt, err := mathPromptTemplate.Format(map[string]any{"query": query})
	if err != nil {
		return nil, fmt.Errorf("openai: format math prompt: %w", err)
	}
	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var parsed translationResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("openai: math response was not valid JSON: %w", err)
	}
	task := &schema.MathTask{Expression: parsed.Expression, Reasoning: parsed.Reasoning}
	if parsed.ClaimedResult != nil {
		task.ClaimedResult = *parsed.ClaimedResult
		task.HasClaimed = true
	}
	return task, nil
}

func (c *Client) TranslateLogicDSL(ctx context.Context, query string) (*schema.LogicTask, error) {
	prompt, err := logicPromptTemplate.Format(map[string]any{"query": query})
	if err != nil {
		return nil, fmt.Errorf("openai: format logic prompt: %w", err)
	}
	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var parsed translationResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("openai: logic response was not valid JSON: %w", err)
	}
	return &schema.LogicTask{DSL: parsed.DSL}, nil
}

func (c *Client) GenerateStatsCode(ctx context.Context, query string, columns []string) (*schema.StatsTask, error) {
	prompt, err := statsPromptTemplate.Format(map[string]any{"query": query, "columns": strings.Join(columns, ", ")})
	if err != nil {
		return nil, fmt.Errorf("openai: format stats prompt: %w", err)
	}
	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var parsed translationResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("openai: stats response was not valid JSON: %w", err)
	}
	return &schema.StatsTask{Code: parsed.Code, FrameRef: "df", Columns: columns}, nil
}

func (c *Client) VerifyFact(ctx context.Context, claim, contextText string) (*schema.FactTask, error) {
	prompt, err := factPromptTemplate.Format(map[string]any{"claim": claim, "context": contextText})
	if err != nil {
		return nil, fmt.Errorf("openai: format fact prompt: %w", err)
	}
	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var parsed translationResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("openai: fact response was not valid JSON: %w", err)
	}
	return &schema.FactTask{Claim: claim, ContextText: contextText, Verdict: parsed.Verdict}, nil
}
