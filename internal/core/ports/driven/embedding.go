package driven

import "context"

// EmbeddingService maps text to vectors. The corpus and every query must
// go through the same model, since vectors from different models are not
// comparable; the model name and dimensions are therefore stored with the
// index and checked on each run.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every returned vector.
	Dimensions() int

	ModelName() string

	// Ping checks the provider answers without embedding anything.
	Ping(ctx context.Context) error

	Close() error
}
