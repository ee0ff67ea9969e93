// Package driven declares what the core needs from the outside world.
//
// Inputs come through ManifestLoader and the Normaliser and
// DocumentConverter pair. Chunker and ChunkFileStore produce and persist
// chunk files. EmbeddingService and VectorStore build and query the index,
// and LLMService with PromptStore turn retrieved chunks into answers.
// ConfigStore and AIConfigValidator back the settings commands.
//
// Adapters under internal/adapters/driven implement these interfaces. The
// package itself imports nothing but domain.
package driven
