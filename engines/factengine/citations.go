// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package factengine

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// ContextCorpusClassName is the Weaviate class holding ingested reference
// documents the fact engine retrieves citation spans from.
const ContextCorpusClassName = "ContextCorpus"

// CitationSpan is one retrieved passage grounding a fact-check claim.
type CitationSpan struct {
	DocumentID string
	Text       string
	Certainty  float64
}

// CitationRetriever resolves candidate citation spans for a claim.
type CitationRetriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]CitationSpan, error)
}

// WeaviateCitationRetriever retrieves candidate spans from a Weaviate
// ContextCorpus class via nearText semantic search, grounded on
// services/trace/memory/retriever.go's GraphQL().Get().WithNearText
// shape (the same dependency, repointed from code-memory recall to
// fact-check citation retrieval).
type WeaviateCitationRetriever struct {
	client *weaviate.Client
}

// NewWeaviateCitationRetriever builds a retriever bound to client.
func NewWeaviateCitationRetriever(client *weaviate.Client) *WeaviateCitationRetriever {
	return &WeaviateCitationRetriever{client: client}
}

func (r *WeaviateCitationRetriever) Retrieve(ctx context.Context, query string, limit int) ([]CitationSpan, error) {
	if limit <= 0 {
		limit = 5
	}
	nearText := r.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "documentId"},
		{Name: "text"},
		{Name: "_additional { certainty }"},
	}

	result, err := r.client.GraphQL().Get().
		WithClassName(ContextCorpusClassName).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("factengine: citation search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("factengine: citation search error: %s", result.Errors[0].Message)
	}

	return parseCitationSpans(result)
}

func parseCitationSpans(result *models.GraphQLResponse) ([]CitationSpan, error) {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	objects, ok := data[ContextCorpusClassName].([]interface{})
	if !ok {
		return nil, nil
	}

	spans := make([]CitationSpan, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		span := CitationSpan{
			DocumentID: getString(m, "documentId"),
			Text:       getString(m, "text"),
		}
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				span.Certainty = certainty
			}
		}
		spans = append(spans, span)
	}
	return spans, nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
