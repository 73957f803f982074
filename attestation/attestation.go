// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package attestation signs a compact claim set over a verification
// outcome so a caller (or a downstream agent) can prove, without
// calling back into the gateway, which tenant, fingerprint, and
// verdict an audit entry actually recorded.
package attestation

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
)

// Claims is the compact claim set signed into every attestation token.
type Claims struct {
	TenantID    string `json:"tenant_id"`
	Fingerprint string `json:"fingerprint"`
	Verdict     string `json:"verdict"`
	Engine      string `json:"engine"`
	EntryHash   string `json:"entry_hash"`
	IssuedAt    int64  `json:"issued_at"`
}

// Signer holds the Ed25519 key pair used to sign and publish
// attestation tokens for one gateway process.
type Signer struct {
	keyID      string
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// NewSigner generates a fresh Ed25519 key pair, used when
// ATTESTATION_PRIVATE_KEY is unset: attestations remain internally
// consistent for the process lifetime even though the key does not
// survive a restart.
func NewSigner(keyID string) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("attestation: generate key: %w", err)
	}
	return &Signer{keyID: keyID, privateKey: priv, publicKey: pub}, nil
}

// NewSignerFromSeed rebuilds a Signer from a 32-byte Ed25519 seed,
// used when ATTESTATION_PRIVATE_KEY is configured so every replica in
// a deployment issues tokens verifiable by the same published key.
func NewSignerFromSeed(keyID string, seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("attestation: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{keyID: keyID, privateKey: priv, publicKey: priv.Public().(ed25519.PublicKey)}, nil
}

// Sign issues a compact JWS over claims, setting IssuedAt to now.
func (s *Signer) Sign(claims Claims) (string, error) {
	claims.IssuedAt = time.Now().UTC().Unix()
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("attestation: encode claims: %w", err)
	}

	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.EdDSA,
		Key:       s.privateKey,
	}, &jose.SignerOptions{ExtraHeaders: map[jose.HeaderKey]any{"kid": s.keyID}})
	if err != nil {
		return "", fmt.Errorf("attestation: build signer: %w", err)
	}

	obj, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("attestation: sign: %w", err)
	}
	return obj.CompactSerialize()
}

// JWKS publishes the signer's public key as a JWK set, served at
// /attestation/keys so callers can verify tokens offline.
func (s *Signer) JWKS() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       s.publicKey,
				KeyID:     s.keyID,
				Algorithm: string(jose.EdDSA),
				Use:       "sig",
			},
		},
	}
}

// Verify checks token's signature against the signer's own public key
// and returns its claims. Exposed mainly for tests; real verifiers use
// the published JWKS instead of trusting an in-process Signer.
func (s *Signer) Verify(token string) (Claims, error) {
	obj, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{jose.EdDSA})
	if err != nil {
		return Claims{}, fmt.Errorf("attestation: parse token: %w", err)
	}
	payload, err := obj.Verify(s.publicKey)
	if err != nil {
		return Claims{}, fmt.Errorf("attestation: verify signature: %w", err)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("attestation: decode claims: %w", err)
	}
	return claims, nil
}
