package pdfsections

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Write stores sections as <outDir>/<base>.json. When the encoded output is
// larger than opts.MaxFileBytes it is written as <base>_part1.json,
// <base>_part2.json, ... instead. It returns the written paths.
func Write(sections []Section, outDir, base string, opts Options) ([]string, error) {
	opts = opts.withDefaults()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))

	data, err := encode(sections)
	if err != nil {
		return nil, err
	}
	if len(data) <= opts.MaxFileBytes {
		path := filepath.Join(outDir, base+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		return []string{path}, nil
	}

	var paths []string
	for i, part := range partition(sections, opts.MaxFileBytes) {
		data, err := encode(part)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s_part%d.json", base, i+1))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// partition groups sections so each group's records sum to at most maxBytes.
// A single oversized record gets a group of its own.
func partition(sections []Section, maxBytes int) [][]Section {
	var (
		parts   [][]Section
		current []Section
		size    int
	)
	for _, s := range sections {
		n := recordSize(s)
		if size+n > maxBytes && len(current) > 0 {
			parts = append(parts, current)
			current = nil
			size = 0
		}
		current = append(current, s)
		size += n
	}
	if len(current) > 0 {
		parts = append(parts, current)
	}
	return parts
}

func recordSize(s Section) int {
	data, err := json.Marshal(s)
	if err != nil {
		return 0
	}
	return len(data)
}

func encode(sections []Section) ([]byte, error) {
	if sections == nil {
		sections = []Section{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sections); err != nil {
		return nil, fmt.Errorf("encode sections: %w", err)
	}
	return buf.Bytes(), nil
}
