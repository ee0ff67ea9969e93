// Package versioning fingerprints chunk files so unchanged inputs are never
// re-embedded and any change in strategy or text is detected.
package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// fingerprintDomain versions the digest layout itself.
const fingerprintDomain = "filings-qa/chunkfile/v1\n"

const (
	strategySeparator = "\x1e"
	chunkSeparator    = "\x1f"
)

// ComputeFingerprint digests the canonical strategy followed by every chunk
// text in sequence order. Each text is length-prefixed and terminated so
// that "ab"+"c" and "abc" never collide.
func ComputeFingerprint(strategy domain.ChunkStrategy, chunks []domain.Chunk) string {
	h := sha256.New()
	h.Write([]byte(fingerprintDomain))
	h.Write([]byte(strategy.Canonical()))
	h.Write([]byte(strategySeparator))
	for i := range chunks {
		h.Write([]byte(strconv.Itoa(len(chunks[i].Text))))
		h.Write([]byte{':'})
		h.Write([]byte(chunks[i].Text))
		h.Write([]byte(chunkSeparator))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NeedsReprocessing returns true when no prior chunk file exists or its
// stored fingerprint differs from the fresh one.
func NeedsReprocessing(existing *domain.ChunkFile, fingerprint string) bool {
	return existing == nil || existing.ContentHash != fingerprint
}

// Verify recomputes a chunk file's fingerprint and reports a mismatch.
func Verify(cf *domain.ChunkFile) error {
	if cf == nil {
		return fmt.Errorf("%w: nil chunk file", domain.ErrInvalidInput)
	}
	got := ComputeFingerprint(cf.Strategy, cf.Chunks)
	if got != cf.ContentHash {
		return fmt.Errorf("%w: chunk file %s hash %s does not match content (%s)",
			domain.ErrInvalidInput, cf.DocID, short(cf.ContentHash), short(got))
	}
	return nil
}

// layoutDomain versions the layout digest.
const layoutDomain = "filings-qa/layout/v1\n"

// ComputeLayout digests where each chunk sits: its offsets and its span
// markers. Two files with the same content hash can differ here when only
// a page or section marker moved.
func ComputeLayout(cf *domain.ChunkFile) string {
	h := sha256.New()
	h.Write([]byte(layoutDomain))
	for i := range cf.Chunks {
		c := &cf.Chunks[i]
		fmt.Fprintf(h, "%d:%d|%s:%s|%s:%s%s", c.Offset.Start, c.Offset.End,
			c.Span.Start.Kind, c.Span.Start.Label, c.Span.End.Kind, c.Span.End.Label, chunkSeparator)
	}
	h.Write([]byte(strategySeparator))
	for _, r := range cf.Dropped {
		fmt.Fprintf(h, "%d:%d%s", r.Start, r.End, chunkSeparator)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// LayoutChanged reports whether fresh has the same content as existing
// but places it differently.
func LayoutChanged(existing, fresh *domain.ChunkFile) bool {
	if existing == nil || fresh == nil || existing.ContentHash != fresh.ContentHash {
		return false
	}
	return ComputeLayout(existing) != ComputeLayout(fresh)
}

// Short abbreviates a fingerprint for display.
func Short(hash string) string {
	return short(hash)
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
