package task

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// KindEmbedding is the idempotency kind recorded by embed_note.
const KindEmbedding = "embedding"

// ContentHash returns the hex BLAKE2b-256 digest of text.
func ContentHash(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Guard skips remote calls whose input has not changed since the last
// successful enrichment.
type Guard struct {
	hashes HashStore
}

// NewGuard creates a Guard reading hashes from hashes.
func NewGuard(hashes HashStore) *Guard {
	return &Guard{hashes: hashes}
}

// ShouldSkip hashes text and compares it with the hash stored for
// (resourceID, kind). It returns the fresh hash so the caller can record it
// once the enrichment result is persisted.
func (g *Guard) ShouldSkip(
	ctx context.Context,
	resourceID uuid.UUID,
	kind string,
	text string,
) (bool, string, error) {
	hash := ContentHash(text)
	stored, err := g.hashes.ContentHash(ctx, resourceID, kind)
	if err != nil {
		return false, hash, fmt.Errorf("failed to read %s hash: %w", kind, err)
	}
	return stored != "" && stored == hash, hash, nil
}
