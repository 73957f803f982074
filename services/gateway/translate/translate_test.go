// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package translate_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/providers"
	"github.com/qwed-gateway/qwed/providers/mock"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
	"github.com/qwed-gateway/qwed/services/gateway/translate"
)

func newTestRouter(t *testing.T) *providers.Router {
	t.Helper()
	router := providers.NewRouter("mock", 0)
	router.Register(mock.New("mock"))
	return router
}

func TestTranslateNaturalLanguageCallsMathProvider(t *testing.T) {
	tr := translate.New(newTestRouter(t), 0)
	task, err := tr.Translate(context.Background(), &schema.VerificationRequest{
		Kind:  schema.KindNaturalLanguage,
		Query: "what is 2 + 2",
	}, "")
	require.NoError(t, err)
	require.NotNil(t, task.Math)
}

func TestTranslateCodeDecodesPayloadDirectly(t *testing.T) {
	tr := translate.New(newTestRouter(t), 0)
	payload, err := json.Marshal(schema.CodeTask{Code: "print(1)", Language: "python"})
	require.NoError(t, err)

	task, err := tr.Translate(context.Background(), &schema.VerificationRequest{
		Kind:    schema.KindCode,
		Payload: payload,
	}, "")
	require.NoError(t, err)
	require.NotNil(t, task.Code)
	require.Equal(t, "python", task.Code.Language)
}

func TestTranslateRejectsUnsupportedKind(t *testing.T) {
	tr := translate.New(newTestRouter(t), 0)
	_, err := tr.Translate(context.Background(), &schema.VerificationRequest{Kind: schema.Kind("bogus")}, "")
	require.Error(t, err)
}
