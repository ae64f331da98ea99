package pdfsections

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	out []byte
	err error
}

func (f fakeRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return f.out, f.err
}

var filler = strings.Repeat("Serum creatinine rise defines the stage. ", 3)

func TestIsHeader(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"ACUTE KIDNEY INJURY", true},
		{"AKI 2", false},
		{"Chapter 2 Definition", true},
		{"SECTION 4: Dialysis", true},
		{"3.1 Fluid management", true},
		{"3. Fluid", true},
		{"KDIGO Clinical Practice Guideline", true},
		{"KDIGO " + strings.Repeat("x", 150), false},
		{"Patients should limit potassium.", false},
		{"12345 67890", false},
		{strings.Repeat("A", 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.line[:min(len(tt.line), 24)], func(t *testing.T) {
			assert.Equal(t, tt.want, IsHeader(tt.line))
		})
	}
}

func TestExtract_GroupsUnderHeaders(t *testing.T) {
	pages := []string{
		"Intro text that says very little but is long enough to keep around here.\nCHAPTER 1 DEFINITIONS\n" + filler,
		"more about staging\n2.1 Fluids\n" + filler + "\nshort\n",
	}

	got := Extract(pages, "kdigo-aki.pdf", Options{})

	require.Len(t, got, 3)
	assert.Equal(t, Section{Section: "Content", Content: "Intro text that says very little but is long enough to keep around here.", Page: 1, Source: "kdigo-aki.pdf"}, got[0])
	assert.Equal(t, "CHAPTER 1 DEFINITIONS", got[1].Section)
	assert.Equal(t, 1, got[1].Page)
	assert.Contains(t, got[1].Content, "more about staging")
	assert.Equal(t, "2.1 Fluids", got[2].Section)
	assert.Equal(t, 2, got[2].Page)
	assert.True(t, strings.HasSuffix(got[2].Content, "short"))
}

func TestExtract_DropsShortSections(t *testing.T) {
	got := Extract([]string{"SODIUM LIMITS\ntoo short\nPOTASSIUM LIMITS\n" + filler}, "diet.pdf", Options{})

	require.Len(t, got, 1)
	assert.Equal(t, "POTASSIUM LIMITS", got[0].Section)
}

func TestExtract_SplitsLongSections(t *testing.T) {
	long := strings.Repeat("Dialysis removes waste from blood. ", 20)

	got := Extract([]string{"HEMODIALYSIS\n" + long}, "hd.pdf", Options{MaxLength: 200})

	require.Greater(t, len(got), 1)
	for i, s := range got {
		assert.Equal(t, "HEMODIALYSIS (Part "+string(rune('1'+i))+")", s.Section)
		assert.LessOrEqual(t, len(s.Content), 200)
		assert.True(t, strings.HasSuffix(s.Content, "."))
	}
}

func TestSplitLongText(t *testing.T) {
	got := SplitLongText("One. Two! Three? Four.", 10)
	assert.Equal(t, []string{"One. Two!", "Three?", "Four."}, got)

	whole := strings.Repeat("x", 50)
	assert.Equal(t, []string{whole}, SplitLongText(whole, 10))
}

func TestProcess(t *testing.T) {
	out := "CHAPTER 1 SCOPE\n" + filler + "\fCHAPTER 2 STAGING\n" + filler + "\f"
	p := New(fakeRunner{out: []byte(out)}, Options{})

	got, err := p.Process(context.Background(), []byte("%PDF-1.7"), "guide.pdf")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[1].Page)
	assert.Equal(t, "guide.pdf", got[1].Source)
}

func TestProcess_RunnerError(t *testing.T) {
	p := New(fakeRunner{err: errors.New("boom")}, Options{})

	_, err := p.Process(context.Background(), []byte("%PDF"), "guide.pdf")

	assert.ErrorContains(t, err, "extract guide.pdf")
}

func TestWrite_SingleFile(t *testing.T) {
	dir := t.TempDir()
	sections := []Section{{Section: "A & B", Content: filler, Page: 1, Source: "x.pdf"}}

	paths, err := Write(sections, dir, "x.pdf", Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "x.json")}, paths)
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"section": "A & B"`)

	var back []Section
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, sections, back)
}

func TestWrite_SplitsLargeOutput(t *testing.T) {
	dir := t.TempDir()
	var sections []Section
	for i := 0; i < 6; i++ {
		sections = append(sections, Section{Section: "S", Content: strings.Repeat("y", 100), Page: i + 1, Source: "big.pdf"})
	}

	paths, err := Write(sections, dir, "big", Options{MaxFileBytes: 300})

	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "big_part1.json"), paths[0])
	assert.NoFileExists(t, filepath.Join(dir, "big.json"))

	total := 0
	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		var part []Section
		require.NoError(t, json.Unmarshal(data, &part))
		total += len(part)
	}
	assert.Equal(t, 6, total)
}
