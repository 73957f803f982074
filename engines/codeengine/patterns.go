// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package codeengine

// Severity is the danger level of a code-security finding, matching the
// four levels in the spec's code security rules exactly.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityInfo     Severity = "info"
)

// Pattern is a dangerous-function or dangerous-attribute rule the AST
// scanner matches against call and attribute-access nodes.
type Pattern struct {
	Name       string
	FuncNames  []string
	Severity   Severity
	Message    string
	Suggestion string
}

// criticalFunctions are call targets that can execute arbitrary code or
// deserialize untrusted data, transplanted from original_source's
// CRITICAL_FUNCTIONS set.
var criticalFunctions = Pattern{
	Name:       "critical_function",
	FuncNames:  []string{"eval", "exec", "compile", "__import__", "pickle.loads", "pickle.load", "yaml.unsafe_load", "getattr"},
	Severity:   SeverityCritical,
	Message:    "call to a function that can execute arbitrary code or deserialize untrusted data",
	Suggestion: "avoid eval/exec/pickle.load(s)/yaml.unsafe_load; use json or a safe deserializer",
}

// dangerousShellFunctions spawn an external process or shell, a
// CRITICAL-severity upgrade from original_source's WARNING_FUNCTIONS set
// (os.system, os.popen, subprocess.call/Popen/run): a shell spawn given
// unsanitized input is exploitable on its own, not merely
// context-dependent.
var dangerousShellFunctions = Pattern{
	Name:       "dangerous_shell_function",
	FuncNames:  []string{"os.system", "os.popen", "subprocess.call", "subprocess.Popen", "subprocess.run"},
	Severity:   SeverityCritical,
	Message:    "Use of dangerous function",
	Suggestion: "avoid shelling out with unsanitized input; use an argv-list exec with no shell interpolation",
}

// weakCryptoFunctions are broken hashing primitives, transplanted from
// original_source's WEAK_CRYPTO_FUNCTIONS set.
var weakCryptoFunctions = Pattern{
	Name:       "weak_crypto",
	FuncNames:  []string{"hashlib.md5", "hashlib.sha1", "md5.New", "sha1.New"},
	Severity:   SeverityHigh,
	Message:    "use of a cryptographically broken hash function",
	Suggestion: "use SHA-256 or a password hash (bcrypt, argon2) for credentials",
}

// dangerousModules, transplanted from original_source's
// DANGEROUS_MODULES set.
var dangerousModules = map[string]Severity{
	"pickle": SeverityCritical, "marshal": SeverityCritical,
	"os": SeverityHigh, "subprocess": SeverityHigh, "shutil": SeverityHigh,
	"socket": SeverityHigh, "urllib": SeverityHigh, "requests": SeverityHigh,
	"telnetlib": SeverityHigh, "ftplib": SeverityHigh,
	"importlib": SeverityMedium, "imp": SeverityMedium,
}

// dangerousAttributes, transplanted from original_source's
// DANGEROUS_ATTRIBUTES set — reflection escapes into interpreter
// internals.
var dangerousAttributes = map[string]bool{
	"__class__": true, "__base__": true, "__subclasses__": true,
	"__globals__": true, "__builtins__": true, "__import__": true,
	"__code__": true, "__dict__": true,
}

// passwordIndicators flags identifiers that suggest a credential is
// being assigned a literal value, transplanted from original_source's
// PASSWORD_INDICATORS set.
var passwordIndicators = []string{
	"password", "passwd", "pwd", "credential", "cred", "secret", "token", "apikey", "api_key",
}

// dynamicImportFuncs are call targets that load a module named by a
// non-literal expression — a spec.md §4.8 item not present in
// original_source's static CRITICAL_FUNCTIONS set.
var dynamicImportFuncs = map[string]bool{
	"__import__": true, "importlib.import_module": true,
}

// reflectionDispatchFuncs dispatch a method by a runtime-computed name
// rather than a literal — another §4.8 supplement.
var reflectionDispatchFuncs = map[string]bool{
	"getattr": true, "setattr": true, "reflect.ValueOf": true,
}
