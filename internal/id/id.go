// Package id generates identifiers for pool entries, tokens, event streams
// and blend runs.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes used across the bot.
const (
	PrefixPoolEntry = "pool"
	PrefixToken     = "token"
	PrefixStream    = "sse"
)

// alphabet avoids '-' and '_' so IDs are easy to copy out of chat messages.
const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	size     = 12
)

// Generate creates a prefixed NanoID, e.g. "pool-V1StGXR8Z5jd".
// Returns an error if the system has insufficient entropy.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewRunID returns a fresh identifier for one blend cycle.
func NewRunID() string {
	return uuid.NewString()
}
