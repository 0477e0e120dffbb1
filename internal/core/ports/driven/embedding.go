package driven

import "context"

// ImageEmbedder generates feature vectors from encoded images.
//
// Implementations include:
//   - histogram: local colour histogram, no model required
//   - inference: a remote model server over HTTP
type ImageEmbedder interface {
	// Embed returns the feature vector for one encoded image (PNG, JPEG, ...).
	// Every call against the same embedder returns vectors of the same length.
	Embed(ctx context.Context, image []byte) ([]float32, error)

	// ModelName returns the name of the model producing the vectors.
	ModelName() string

	// Ping validates the embedder is usable.
	// This is used at startup to fail early on a misconfigured model server.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
