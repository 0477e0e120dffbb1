// Package ai provides factory functions for creating image embedder adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/lookalike/internal/adapters/driven/embedding/histogram"
	"github.com/custodia-labs/lookalike/internal/adapters/driven/embedding/inference"
	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for embedder connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbedder creates the embedder selected by settings.
func CreateEmbedder(settings *domain.EmbeddingSettings) (driven.ImageEmbedder, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no embedding settings", domain.ErrEmbeddingUnavailable)
	}

	switch settings.Provider {
	case domain.EmbeddingProviderHistogram:
		embedder, err := histogram.NewEmbedder(settings.Bins)
		if err != nil {
			return nil, err
		}
		return embedder, nil

	case domain.EmbeddingProviderInference:
		embedder, err := inference.NewEmbedder(inference.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			RequestsPerSecond: settings.RequestsPerSecond,
			Burst:             settings.Burst,
		})
		if err != nil {
			return nil, err
		}
		return embedder, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// ValidateEmbedder pings the embedder, bounded by pingTimeout.
func ValidateEmbedder(ctx context.Context, embedder driven.ImageEmbedder) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := embedder.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingUnavailable, embedder.ModelName(), err)
	}
	return nil
}

// CreateAndValidateEmbedder creates an embedder and validates connectivity.
// The embedder is closed if validation fails.
func CreateAndValidateEmbedder(ctx context.Context, settings *domain.EmbeddingSettings) (driven.ImageEmbedder, error) {
	embedder, err := CreateEmbedder(settings)
	if err != nil {
		return nil, err
	}
	if err := ValidateEmbedder(ctx, embedder); err != nil {
		_ = embedder.Close()
		return nil, err
	}
	return embedder, nil
}
