// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy implements the gateway's seven-layer admission gate and
// the PII redactor applied to audit payloads.
package policy

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed patterns/jailbreak.yaml patterns/lexicon.yaml
var embeddedPatterns embed.FS

// ConfidenceLevel is the pattern author's confidence that a match is a true
// positive.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

func (c *ConfidenceLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	incoming := ConfidenceLevel(s)
	switch incoming {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		*c = incoming
		return nil
	default:
		return fmt.Errorf("invalid value for confidence: %q", incoming)
	}
}

// PatternFile is the on-disk/embedded YAML shape for one classification set.
type PatternFile struct {
	Classifications []Classification `yaml:"classifications"`
}

// Classification groups related patterns under a priority.
type Classification struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Priority    int       `yaml:"priority"`
	Patterns    []Pattern `yaml:"patterns"`
}

// Pattern is a single compiled regex classification rule.
type Pattern struct {
	ID          string          `yaml:"id"`
	Description string          `yaml:"description"`
	Regex       string          `yaml:"regex"`
	Confidence  ConfidenceLevel `yaml:"confidence"`
	compiled    *regexp.Regexp
}

func (p *PatternFile) compile() error {
	for i := range p.Classifications {
		for j := range p.Classifications[i].Patterns {
			pat := &p.Classifications[i].Patterns[j]
			re, err := regexp.Compile(pat.Regex)
			if err != nil {
				return fmt.Errorf("compile regex %q (pattern %s): %w", pat.Regex, pat.ID, err)
			}
			pat.compiled = re
		}
	}
	return nil
}

func (p *PatternFile) sortByPriority() {
	sort.Slice(p.Classifications, func(i, j int) bool {
		return p.Classifications[i].Priority > p.Classifications[j].Priority
	})
}

// PatternSet is a compiled, priority-sorted set of classifications used by
// one policy layer.
type PatternSet struct {
	Classifications []Classification
}

// Match returns the first classification whose pattern matches text, and the
// specific pattern that matched. ok is false when nothing matches.
func (s *PatternSet) Match(text string) (classification Classification, pattern Pattern, ok bool) {
	for _, c := range s.Classifications {
		for _, p := range c.Patterns {
			if p.compiled != nil && p.compiled.MatchString(text) {
				return c, p, true
			}
		}
	}
	return Classification{}, Pattern{}, false
}

// loadEmbeddedPatternSet loads and compiles one of the two embedded
// baseline pattern files, used when no on-disk override directory is
// configured or a file is missing from it.
func loadEmbeddedPatternSet(name string) (*PatternSet, error) {
	raw, err := embeddedPatterns.ReadFile("patterns/" + name)
	if err != nil {
		return nil, fmt.Errorf("read embedded pattern file %s: %w", name, err)
	}
	return parsePatternSet(raw)
}

// LoadPatternSet loads name (e.g. "jailbreak.yaml") from dir if present,
// falling back to the compiled-in embedded baseline. This lets an operator
// override or extend the shipped lexicon without a rebuild, while the
// binary still boots correctly with no configured pattern directory.
func LoadPatternSet(dir, name string) (*PatternSet, error) {
	if dir != "" {
		path := filepath.Join(dir, name)
		if raw, err := os.ReadFile(path); err == nil {
			return parsePatternSet(raw)
		}
	}
	return loadEmbeddedPatternSet(name)
}

func parsePatternSet(raw []byte) (*PatternSet, error) {
	var file PatternFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("unmarshal pattern file: %w", err)
	}
	if err := file.compile(); err != nil {
		return nil, err
	}
	file.sortByPriority()
	return &PatternSet{Classifications: file.Classifications}, nil
}
