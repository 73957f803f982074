// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

const maxQueryLength = 2000

// Decision is the outcome of running a query through the admission gate.
type Decision struct {
	Allowed bool
	Layer   schema.AdmissionLayer
	Reason  string
}

// SimilarityChecker computes a cosine-distance-style similarity score
// between a query and the canonical system prompt. Implementations may
// call out to Weaviate; a nil checker disables layer 4 entirely.
type SimilarityChecker interface {
	Similarity(query string) (float64, error)
}

// Engine runs the seven-layer admission gate in order and stops at the
// first block, mirroring a first-match-wins classification scan.
type Engine struct {
	jailbreak    *PatternSet
	lexicon      *PatternSet
	similarity   SimilarityChecker
	simThreshold float64
}

// NewEngine builds an Engine from the two on-disk-or-embedded pattern sets.
// similarity may be nil, disabling layer 4.
func NewEngine(patternDir string, similarity SimilarityChecker, simThreshold float64) (*Engine, error) {
	jb, err := LoadPatternSet(patternDir, "jailbreak.yaml")
	if err != nil {
		return nil, fmt.Errorf("load jailbreak patterns: %w", err)
	}
	lex, err := LoadPatternSet(patternDir, "lexicon.yaml")
	if err != nil {
		return nil, fmt.Errorf("load lexicon patterns: %w", err)
	}
	return &Engine{jailbreak: jb, lexicon: lex, similarity: similarity, simThreshold: simThreshold}, nil
}

// Reload replaces the engine's compiled pattern sets in place, called by the
// fsnotify watcher after a debounced write to the pattern directory.
func (e *Engine) Reload(patternDir string) error {
	jb, err := LoadPatternSet(patternDir, "jailbreak.yaml")
	if err != nil {
		return err
	}
	lex, err := LoadPatternSet(patternDir, "lexicon.yaml")
	if err != nil {
		return err
	}
	e.jailbreak = jb
	e.lexicon = lex
	return nil
}

// Admit runs query through all seven layers in spec order, returning the
// first block encountered or an allow decision. No engine is invoked on a
// blocked request; callers must check Allowed before dispatching.
func (e *Engine) Admit(query string) Decision {
	if n := utf8.RuneCountInString(query); n > maxQueryLength {
		return blocked(schema.LayerLength, fmt.Sprintf("length %d exceeds cap %d", n, maxQueryLength))
	}

	if c, p, ok := e.jailbreak.Match(query); ok {
		return blocked(schema.LayerHeuristic, fmt.Sprintf("%s: %s (%s)", c.Name, p.Description, p.ID))
	}

	if reason, ok := e.scanBase64(query); ok {
		return blocked(schema.LayerBase64, reason)
	}

	if e.similarity != nil {
		if score, err := e.similarity.Similarity(query); err == nil && score >= e.simThreshold {
			return blocked(schema.LayerSemantic, fmt.Sprintf("similarity %.3f >= threshold %.3f", score, e.simThreshold))
		}
	}

	if c, p, ok := e.lexicon.Match(query); ok {
		return blocked(schema.LayerLexicon, fmt.Sprintf("%s: %s (%s)", c.Name, p.Description, p.ID))
	}

	if scripts, ok := mixedScripts(query); ok {
		return blocked(schema.LayerMixedScript, fmt.Sprintf("mixed scripts detected: %v", scripts))
	}

	if n := countInvisible(query); n > 0 {
		return blocked(schema.LayerInvisible, fmt.Sprintf("%d invisible/zero-width characters present", n))
	}

	return Decision{Allowed: true}
}

func blocked(layer schema.AdmissionLayer, reason string) Decision {
	return Decision{Allowed: false, Layer: layer, Reason: reason}
}

// scanBase64 looks for base64-shaped tokens in text and, if any decode
// cleanly, re-runs the decoded form through the jailbreak and lexicon
// pattern sets so an attacker can't smuggle a blocked phrase past layers
// 2 and 5 by encoding it.
func (e *Engine) scanBase64(text string) (string, bool) {
	for _, token := range strings.Fields(text) {
		token = strings.Trim(token, `.,;:!?"'()[]{}`)
		if len(token) < 16 || len(token)%4 != 0 {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(token)
		if err != nil {
			continue
		}
		if !isMostlyPrintable(decoded) {
			continue
		}
		decodedStr := string(decoded)
		if c, p, ok := e.jailbreak.Match(decodedStr); ok {
			return fmt.Sprintf("base64-decoded token matches %s (%s)", c.Name, p.ID), true
		}
		if c, p, ok := e.lexicon.Match(decodedStr); ok {
			return fmt.Sprintf("base64-decoded token matches %s (%s)", c.Name, p.ID), true
		}
	}
	return "", false
}

func isMostlyPrintable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	printable := 0
	for _, r := range string(b) {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return float64(printable)/float64(len([]rune(string(b)))) > 0.9
}

// mixedScripts reports whether text mixes two or more incompatible scripts
// (excluding Common and Latin-adjacent punctuation), a common obfuscation
// technique for smuggling homoglyph payloads past keyword filters.
func mixedScripts(text string) ([]string, bool) {
	found := map[string]bool{}
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsNumber(r) {
			continue
		}
		for name, table := range scriptsOfInterest {
			if unicode.Is(table, r) {
				found[name] = true
			}
		}
	}
	if len(found) < 2 {
		return nil, false
	}
	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	return names, true
}

var scriptsOfInterest = map[string]*unicode.RangeTable{
	"Latin":    unicode.Latin,
	"Cyrillic": unicode.Cyrillic,
	"Greek":    unicode.Greek,
	"Han":      unicode.Han,
	"Arabic":   unicode.Arabic,
	"Hebrew":   unicode.Hebrew,
}

// invisibleRunes lists zero-width and other invisible-formatting code
// points commonly used to smuggle payloads past keyword filters: zero
// width space/non-joiner/joiner, word joiner, byte order mark, soft hyphen.
var invisibleRunes = map[rune]bool{
	'\u200b': true, // zero width space
	'\u200c': true, // zero width non-joiner
	'\u200d': true, // zero width joiner
	'\u2060': true, // word joiner
	'\ufeff': true, // byte order mark
	'\u00ad': true, // soft hyphen
}

// countInvisible counts zero-width and other invisible-formatting runes.
func countInvisible(text string) int {
	n := 0
	for _, r := range text {
		if invisibleRunes[r] {
			n++
		}
	}
	return n
}
