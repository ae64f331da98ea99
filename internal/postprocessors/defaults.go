package postprocessors

import (
	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/postprocessors/chunker"
	"github.com/custodia-labs/nephra/internal/postprocessors/contentid"
	"github.com/custodia-labs/nephra/internal/postprocessors/minlength"
)

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("minlength", buildMinLength)
	r.Register("contentid", func(map[string]any) (driven.PostProcessor, error) {
		return contentid.New(), nil
	})
}

// NewDefaultPipeline builds chunker -> minlength [-> contentid] from settings.
// contentid is appended only when dedupe is enabled.
func NewDefaultPipeline(cfg domain.ChunkingSettings, dedupe bool) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	size, overlap := cfg.Mode.Preset()
	if cfg.ChunkSize > 0 {
		size = cfg.ChunkSize
	}
	if cfg.Overlap > 0 {
		overlap = cfg.Overlap
	}

	steps := []Step{
		{Name: "chunker", Config: map[string]any{"chunk_size": size, "overlap": overlap}},
		{Name: "minlength", Config: map[string]any{"min_length": cfg.MinLength}},
	}
	if dedupe {
		steps = append(steps, Step{Name: "contentid"})
	}
	return r.Pipeline(steps...)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 1000)
//   - overlap (int): Overlapping characters between chunks (default: 150)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
	}

	return chunker.New(opts...), nil
}

// buildMinLength creates the short-chunk filter.
//   - min_length (int): trimmed length at or below which chunks are dropped (default: 10)
func buildMinLength(cfg map[string]any) (driven.PostProcessor, error) {
	min := minlength.DefaultMinLength
	if v := getIntFromConfig(cfg, "min_length"); v > 0 {
		min = v
	}
	return minlength.New(min), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
