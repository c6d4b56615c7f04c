package curriculum_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/tsea/internal/curriculum"
)

const sampleYAML = `
tracks:
  - id: beginner
    name: "Foundations"
  - id: advanced
    name: "Advanced Strategies"
modules:
  - id: candles
    track_id: beginner
    title: "Reading Candlesticks"
    lessons:
      - id: anatomy
        title: "Candle anatomy"
        content: "Open, high, low, close."
      - id: patterns
        title: "Basic patterns"
        content: "Doji, hammer, engulfing."
    quiz:
      questions:
        - id: q1
          prompt: "What does a doji signal?"
          options: ["Indecision", "Strong trend"]
          correct_answer_index: 0
          explanation: "Open and close are nearly equal."
  - id: options
    track_id: advanced
    title: "Options Greeks"
    lessons:
      - id: delta
        title: "Delta"
        content: "Sensitivity to the underlying."
    quiz:
      questions: []
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "curriculum.yaml", sampleYAML)

	c, err := curriculum.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(c.Tracks()) != 2 {
		t.Errorf("Tracks() = %d, want 2", len(c.Tracks()))
	}
	mods := c.Modules()
	if len(mods) != 2 || mods[0].ID != "candles" || mods[1].ID != "options" {
		t.Errorf("Modules() order = %+v, want candles then options", mods)
	}

	m, ok := c.Module("candles")
	if !ok {
		t.Fatal("Module(candles) not found")
	}
	if len(m.Lessons) != 2 || m.Lessons[0].ID != "anatomy" {
		t.Errorf("lessons = %+v, want anatomy first", m.Lessons)
	}
	if _, ok := c.Module("missing"); ok {
		t.Error("Module(missing) should not be found")
	}
}

func TestLoad_DirectoryMergesInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "01-tracks.yaml", `
tracks:
  - id: beginner
    name: Foundations
`)
	writeFile(t, dir, "02-modules.json", `{
  "modules": [
    {"id": "m1", "track_id": "beginner", "lessons": [{"id": "l1"}], "quiz": {"questions": []}}
  ]
}`)
	writeFile(t, dir, "README.md", "ignored")

	c, err := curriculum.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.ModulesForTrack("beginner"); len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("ModulesForTrack(beginner) = %+v, want [m1]", got)
	}
}

func TestLoad_MissingPath(t *testing.T) {
	if _, err := curriculum.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() should fail for a missing path")
	}
}

func TestParse_InvariantViolations(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "unknown track",
			doc: `
tracks: [{id: beginner, name: B}]
modules: [{id: m1, track_id: ghost}]
`,
			wantErr: "unknown track",
		},
		{
			name: "duplicate lesson",
			doc: `
tracks: [{id: beginner, name: B}]
modules:
  - id: m1
    track_id: beginner
    lessons: [{id: l1}, {id: l1}]
`,
			wantErr: "duplicate lesson",
		},
		{
			name: "duplicate question",
			doc: `
tracks: [{id: beginner, name: B}]
modules:
  - id: m1
    track_id: beginner
    quiz:
      questions: [{id: q, correct_answer_index: 0}, {id: q, correct_answer_index: 0}]
`,
			wantErr: "duplicate question",
		},
		{
			name: "answer index out of range",
			doc: `
tracks: [{id: beginner, name: B}]
modules:
  - id: m1
    track_id: beginner
    quiz:
      questions: [{id: q, options: [a, b], correct_answer_index: 2}]
`,
			wantErr: "out of range",
		},
		{
			name: "duplicate module",
			doc: `
tracks: [{id: beginner, name: B}]
modules: [{id: m1, track_id: beginner}, {id: m1, track_id: beginner}]
`,
			wantErr: "duplicate module",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := curriculum.Parse([]byte(tt.doc), curriculum.FormatYAML)
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_SchemaViolation(t *testing.T) {
	_, err := curriculum.Parse([]byte(`{"tracks": [{"name": "no id"}]}`), curriculum.FormatJSON)
	if err == nil {
		t.Fatal("Parse() should fail schema validation")
	}
	var schemaErr *curriculum.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error = %T, want *SchemaError", err)
	}
	if len(schemaErr.Violations) == 0 {
		t.Error("SchemaError has no violations")
	}
}

func TestParse_InvalidIndexType(t *testing.T) {
	doc := `{
  "tracks": [{"id": "beginner", "name": "B"}],
  "modules": [{"id": "m1", "track_id": "beginner",
    "quiz": {"questions": [{"id": "q1", "correct_answer_index": "zero"}]}}]
}`
	if _, err := curriculum.Parse([]byte(doc), curriculum.FormatJSON); err == nil {
		t.Fatal("Parse() should reject a non-integer answer index")
	}
}

func TestModule_Navigation(t *testing.T) {
	c, err := curriculum.Parse([]byte(sampleYAML), curriculum.FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	m, _ := c.Module("candles")

	if _, ok := m.PrevLesson("anatomy"); ok {
		t.Error("PrevLesson(anatomy) should be none for the first lesson")
	}
	next, ok := m.NextLesson("anatomy")
	if !ok || next.ID != "patterns" {
		t.Errorf("NextLesson(anatomy) = %q, %v; want patterns", next.ID, ok)
	}
	prev, ok := m.PrevLesson("patterns")
	if !ok || prev.ID != "anatomy" {
		t.Errorf("PrevLesson(patterns) = %q, %v; want anatomy", prev.ID, ok)
	}
	if _, ok := m.NextLesson("patterns"); ok {
		t.Error("NextLesson(patterns) should be none for the last lesson")
	}
	if _, ok := m.Lesson("ghost"); ok {
		t.Error("Lesson(ghost) should not be found")
	}
	if q, ok := m.Quiz.Question("q1"); !ok || q.Explanation == "" {
		t.Errorf("Question(q1) = %+v, %v", q, ok)
	}
}

func TestNew_RejectsBadModuleIDs(t *testing.T) {
	tracks := []curriculum.Track{{ID: "beginner", Name: "B"}}
	tests := []struct {
		name    string
		id      string
		wantErr string
	}{
		{"empty", "", "empty id"},
		{"slash", "options/greeks", "must not contain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := curriculum.New(tracks, []curriculum.Module{{ID: tt.id, TrackID: "beginner"}})
			if err == nil {
				t.Fatal("New() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_ModuleIDWithSlash(t *testing.T) {
	doc := `{"tracks": [{"id": "beginner", "name": "B"}],
  "modules": [{"id": "options/greeks", "track_id": "beginner"}]}`
	_, err := curriculum.Parse([]byte(doc), curriculum.FormatJSON)
	var schemaErr *curriculum.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Parse() error = %v, want *SchemaError", err)
	}
}
