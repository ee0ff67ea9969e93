// Package chunking splits extracted text into citation-traceable chunks.
//
// Each strategy is a pure SplitFunc registered under a domain.StrategyKind.
// A SplitFunc only decides where chunks start and end; the Chunker turns
// those ranges into domain.Chunk values with spans, ids and token counts,
// and fingerprints the result.
//
// Three strategies are registered by default:
//
//   - sequential: a fixed window advanced by chunk_size - overlap units
//   - sentence: whole sentences packed greedily up to chunk_size
//   - section: like sentence, but bounded by headings and prefixed with them
//
// All strategies are deterministic: identical text and parameters always
// produce identical boundaries.
package chunking
