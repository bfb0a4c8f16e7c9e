package embed

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ProviderType represents an embedding provider.
type ProviderType string

// ProviderStatic uses hash-based embeddings. It has no external
// dependency, no network call, and no model to download, which makes it
// the only embedding provider Cerberus ships.
const ProviderStatic ProviderType = "static"

// NewEmbedder creates an embedder for provider. model is accepted for
// forward compatibility with a future model-selecting provider; the
// static provider ignores it.
//
// The CERBERUS_EMBEDDER environment variable overrides provider when set.
// Query embedding caching is enabled by default (saves 50-200ms per
// repeated query); set CERBERUS_EMBED_CACHE=false to disable it.
func NewEmbedder(ctx context.Context, provider ProviderType, model string) (Embedder, error) {
	if envProvider := os.Getenv("CERBERUS_EMBEDDER"); envProvider != "" {
		provider = ParseProvider(envProvider)
	}

	var embedder Embedder
	switch provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder768()
	default:
		embedder = NewStaticEmbedder768()
	}

	if !isCacheDisabled() {
		embedder = NewCachedEmbedderWithDefaults(embedder)
	}

	return embedder, nil
}

// isCacheDisabled checks if embedding cache is disabled via environment.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("CERBERUS_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

// NewDefaultEmbedder creates the default embedder (static, 768 dimensions).
func NewDefaultEmbedder(ctx context.Context) (Embedder, error) {
	return NewEmbedder(ctx, ProviderStatic, "")
}

// ParseProvider converts a string to ProviderType. Anything unrecognized,
// including the empty string, resolves to the static provider.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "static", "":
		return ProviderStatic
	default:
		return ProviderStatic
	}
}

// String returns the string representation of ProviderType.
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names.
func ValidProviders() []string {
	return []string{string(ProviderStatic)}
}

// IsValidProvider checks if a provider name is valid.
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// EmbedderInfo contains information about an embedder.
type EmbedderInfo struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo returns information about an embedder.
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	return EmbedderInfo{
		Provider:   ProviderStatic,
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}
}

// MustNewEmbedder creates an embedder and panics on failure.
// Use only in tests or initialization code where failure is fatal.
func MustNewEmbedder(ctx context.Context, provider ProviderType, model string) Embedder {
	embedder, err := NewEmbedder(ctx, provider, model)
	if err != nil {
		panic(fmt.Sprintf("failed to create embedder: %v", err))
	}
	return embedder
}
