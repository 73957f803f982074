// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	openaigo "github.com/sashabaranov/go-openai"

	"github.com/qwed-gateway/qwed/engines/imageengine"
)

// visionResponse is the structured judgment a multimodal completion is
// asked to emit, mirroring translationResponse's single-JSON-object
// contract.
type visionResponse struct {
	Label     string `json:"label"`
	Rationale string `json:"rationale"`
}

// VerifyImage implements imageengine.MultimodalVerifier by sending the
// image inline as a base64 data URL alongside the claim, asking the
// model to judge support/refute/not-enough-info the same way
// VerifyFact judges a text claim against retrieved spans.
func (c *Client) VerifyImage(ctx context.Context, imageBytes []byte, claim string) (imageengine.Label, string, error) {
	dataURL := fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(imageBytes))

	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: c.model,
		Messages: []openaigo.ChatCompletionMessage{
			{
				Role: openaigo.ChatMessageRoleSystem,
				Content: `Judge whether the image supports, refutes, or gives not enough
information about the claim. Respond only with a single JSON object
{"label": "supported"|"refuted"|"not_enough_info", "rationale": "..."}.`,
			},
			{
				Role: openaigo.ChatMessageRoleUser,
				MultiContent: []openaigo.ChatMessagePart{
					{Type: openaigo.ChatMessagePartTypeText, Text: claim},
					{Type: openaigo.ChatMessagePartTypeImageURL, ImageURL: &openaigo.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
		ResponseFormat: &openaigo.ChatCompletionResponseFormat{Type: openaigo.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", "", fmt.Errorf("openai: vision completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("openai: no choices returned")
	}

	var parsed visionResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return "", "", fmt.Errorf("openai: vision response was not valid JSON: %w", err)
	}

	switch parsed.Label {
	case "supported":
		return imageengine.LabelSupported, parsed.Rationale, nil
	case "refuted":
		return imageengine.LabelRefuted, parsed.Rationale, nil
	default:
		return imageengine.LabelNotEnoughInfo, parsed.Rationale, nil
	}
}
