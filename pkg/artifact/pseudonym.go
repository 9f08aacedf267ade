// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package artifact

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const (
	pseudonymLen = 32
	inputHashLen = 12
)

// Pseudonymizer derives stable, non-reversible user pseudonyms and input
// hashes. The same user id with the same key always yields the same
// pseudonym, so artifacts of one user stay linkable without storing who
// the user is.
type Pseudonymizer struct {
	key     []byte
	enabled bool
}

func NewPseudonymizer(secret string, enabled bool) *Pseudonymizer {
	return &Pseudonymizer{key: []byte(secret), enabled: enabled}
}

// Pseudonym returns the keyed pseudonym for a user id. With
// pseudonymization disabled the id passes through unchanged.
func (p *Pseudonymizer) Pseudonym(userID string) string {
	if !p.enabled || userID == "" {
		return userID
	}
	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))[:pseudonymLen]
}

// InputHash is a short content fingerprint of one input text, used to
// reference inputs without retaining them.
func InputHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:inputHashLen]
}

// InputHashes fingerprints the non-empty inputs in order.
func InputHashes(texts ...string) []string {
	var out []string
	for _, t := range texts {
		if t != "" {
			out = append(out, InputHash(t))
		}
	}
	return out
}
