// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package codeengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/engines/codeengine"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

func verify(t *testing.T, code, language string) schema.VerificationResult {
	e := codeengine.New()
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Code: &schema.CodeTask{Code: code, Language: language},
	})
	require.NoError(t, err)
	return result
}

func TestEngineBlocksEvalCall(t *testing.T) {
	result := verify(t, `
def run(user_input):
    return eval(user_input)
`, "python")
	require.Equal(t, schema.VerdictUnsafe, result.Verdict)
}

func TestEngineBlocksWeakCryptoCall(t *testing.T) {
	result := verify(t, `
import hashlib
def run(data):
    return hashlib.md5(data).hexdigest()
`, "python")
	require.Equal(t, schema.VerdictUnsafe, result.Verdict)
}

func TestEngineVerifiesCleanCode(t *testing.T) {
	result := verify(t, `
def add(a, b):
    return a + b
`, "python")
	require.Equal(t, schema.VerdictVerified, result.Verdict)
}

func TestEngineBlocksSubprocessImport(t *testing.T) {
	result := verify(t, `
import subprocess
def run(cmd):
    return subprocess.call(cmd)
`, "python")
	require.Equal(t, schema.VerdictUnsafe, result.Verdict)
}

func TestEngineFlagsDangerousAttributeAccess(t *testing.T) {
	result := verify(t, `
def escape(obj):
    return obj.__class__.__base__.__subclasses__()
`, "python")
	require.Equal(t, schema.VerdictUnsafe, result.Verdict)
}

func TestEngineRejectsUnsupportedLanguage(t *testing.T) {
	result := verify(t, "1 + 1", "ruby")
	require.Equal(t, schema.VerdictError, result.Verdict)
}
