// Package pdf extracts text from PDF documents with poppler's pdftotext.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrPDFToolNotFound is returned when pdftotext is not on PATH.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

// PageBreak separates pages in pdftotext output.
const PageBreak = "\f"

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

// DefaultRunner runs commands with os/exec.
var DefaultRunner CommandRunner = execRunner{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// Normaliser handles PDF documents.
type Normaliser struct {
	runner CommandRunner
}

// New creates a PDF normaliser that shells out to pdftotext.
func New() *Normaliser {
	return &Normaliser{runner: DefaultRunner}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// ContentType returns the content type of produced documents.
func (n *Normaliser) ContentType() domain.ContentType {
	return domain.ContentPDF
}

// Normalise extracts all text from a PDF.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := ExtractText(ctx, n.runner, raw.Content)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(strings.ReplaceAll(text, PageBreak, "\n\n"))

	meta := maps.Clone(raw.Metadata)
	if meta == nil {
		meta = make(map[string]any, 2)
	}
	meta["title"] = extractTitle(content, raw.URI)
	meta["pages"] = strings.Count(strings.TrimRight(text, PageBreak), PageBreak) + 1

	return &driven.NormaliseResult{
		Document: domain.Document{
			ID:          uuid.New().String(),
			Source:      raw.URI,
			ContentType: domain.ContentPDF,
			Content:     content,
			Metadata:    meta,
			CreatedAt:   time.Now(),
		},
	}, nil
}

// ExtractText runs pdftotext over content and returns the raw output,
// pages separated by PageBreak.
func ExtractText(ctx context.Context, runner CommandRunner, content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("pdftotext failed: %w", domain.ErrInvalidInput)
	}

	tmp, err := os.CreateTemp("", "nephra-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	out, err := runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(out), nil
}

// extractTitle returns the first short non-empty line, or the filename.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) < 200 && !strings.ContainsRune(line, 0) {
			return line
		}
	}

	filename := filepath.Base(uri)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}

// CheckAvailable returns ErrPDFToolNotFound when pdftotext is missing.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform install hints for pdftotext.
func InstallInstructions() string {
	return `pdftotext is required to ingest PDF files. Install poppler:

  macOS:          brew install poppler
  Debian/Ubuntu:  apt install poppler-utils
  Fedora:         dnf install poppler-utils`
}
