package domain

import "fmt"

// Stage selects which part of the pipeline a run executes.
type Stage string

// Available pipeline stages.
const (
	// StageChunk runs extract, chunk and fingerprint, then persists the ChunkFile.
	StageChunk Stage = "chunk"

	// StageEmbed embeds the stored ChunkFile when it is stale in the vector store.
	StageEmbed Stage = "embed"

	// StageRetrieve answers questions against the existing index.
	StageRetrieve Stage = "retrieve"

	// StageFull runs chunk then embed.
	StageFull Stage = "full"
)

// IsValid returns true if the stage is recognised.
func (s Stage) IsValid() bool {
	switch s {
	case StageChunk, StageEmbed, StageRetrieve, StageFull:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// Includes reports whether running s also runs the other stage.
func (s Stage) Includes(other Stage) bool {
	if s == other {
		return true
	}
	return s == StageFull && (other == StageChunk || other == StageEmbed)
}

// ParseStage converts a string to a Stage.
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !stage.IsValid() {
		return "", fmt.Errorf("%w: unknown stage %q", ErrConfiguration, s)
	}
	return stage, nil
}
