package postprocessors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/postprocessors/chunker"
	"github.com/custodia-labs/nephra/internal/postprocessors/contentid"
)

// registryMockProcessor is a simple mock for testing registry functionality.
type registryMockProcessor struct {
	name string
}

func (m *registryMockProcessor) Name() string { return m.name }
func (m *registryMockProcessor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	return chunks, nil
}

func TestRegistry_Build(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(cfg map[string]any) (driven.PostProcessor, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &registryMockProcessor{name: name}, nil
	})

	proc, err := r.Build("test", map[string]any{"name": "custom"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if proc.Name() != "custom" {
		t.Errorf("expected name 'custom', got %q", proc.Name())
	}

	if _, err := r.Build("unknown", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown processor, got %v", err)
	}
}

func TestRegistry_Pipeline(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	p, err := r.Pipeline(Step{Name: "chunker"}, Step{Name: "contentid"})
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	if got := p.Len(); got != 2 {
		t.Errorf("expected 2 processors, got %d", got)
	}

	if _, err := r.Pipeline(Step{Name: "chunker"}, Step{Name: "ocr"}); err == nil || !strings.Contains(err.Error(), "build ocr") {
		t.Errorf("expected build ocr error, got %v", err)
	}
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	if got := strings.Join(r.Names(), ","); got != "chunker,contentid,minlength" {
		t.Errorf("unexpected default processors %q", got)
	}
}

func TestBuildChunker_WithConfig(t *testing.T) {
	proc, err := buildChunker(map[string]any{"chunk_size": int64(500), "overlap": float64(100)})
	if err != nil {
		t.Fatalf("Build chunker failed: %v", err)
	}
	c := proc.(*chunker.Processor)
	if c.ChunkSize() != 500 || c.Overlap() != 100 {
		t.Errorf("expected 500/100, got %d/%d", c.ChunkSize(), c.Overlap())
	}

	proc, err = buildChunker(nil)
	if err != nil {
		t.Fatalf("Build chunker with nil config failed: %v", err)
	}
	if proc.(*chunker.Processor).ChunkSize() != chunker.DefaultChunkSize {
		t.Error("expected default chunk size for nil config")
	}
}

func TestNewDefaultPipeline(t *testing.T) {
	tests := []struct {
		name  string
		cfg   domain.ChunkingSettings
		dedup bool
		want  string
		size  int
	}{
		{"standard", domain.ChunkingSettings{Mode: domain.ChunkingStandard, MinLength: 10}, false, "chunker,minlength", 1000},
		{"precise", domain.ChunkingSettings{Mode: domain.ChunkingPrecise}, false, "chunker,minlength", 500},
		{"explicit size wins", domain.ChunkingSettings{Mode: domain.ChunkingPrecise, ChunkSize: 800, Overlap: 80}, false, "chunker,minlength", 800},
		{"dedupe appends contentid", domain.ChunkingSettings{Mode: domain.ChunkingStandard}, true, "chunker,minlength,contentid", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewDefaultPipeline(tt.cfg, tt.dedup)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strings.Join(p.Names(), ","); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if got := p.processors[0].(*chunker.Processor).ChunkSize(); got != tt.size {
				t.Errorf("expected chunk size %d, got %d", tt.size, got)
			}
		})
	}
}

func TestNewDefaultPipeline_EndToEnd(t *testing.T) {
	p, err := NewDefaultPipeline(domain.ChunkingSettings{Mode: domain.ChunkingPrecise, MinLength: 10}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := &domain.Document{
		ID:          "d1",
		Source:      "ckd.txt",
		ContentType: domain.ContentPlainText,
		Content:     "Kidneys filter blood. High potassium is dangerous for CKD patients.\n\nok\n\n",
	}
	chunks, err := p.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected the short fragment to be dropped, got %d chunks", len(chunks))
	}
	want := contentid.ID("ckd.txt", 0, chunks[0].Content)
	if chunks[0].ID != want {
		t.Errorf("expected content-derived ID %s, got %s", want, chunks[0].ID)
	}
}

func TestGetIntFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      map[string]any
		key      string
		expected int
	}{
		{"int value", map[string]any{"size": 100}, "size", 100},
		{"int64 value", map[string]any{"size": int64(200)}, "size", 200},
		{"float64 value", map[string]any{"size": float64(300)}, "size", 300},
		{"string value", map[string]any{"size": "400"}, "size", 0},
		{"missing key", map[string]any{"other": 100}, "size", 0},
		{"nil config", nil, "size", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := getIntFromConfig(tt.cfg, tt.key); result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}
