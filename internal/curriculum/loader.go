// Package curriculum loads the static track/module/lesson/quiz graph.
package curriculum

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a curriculum document.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// ReservedQuizID is the item id progress tracking uses for a module's quiz;
// lessons may not use it.
const ReservedQuizID = "quiz"

// Curriculum is the immutable curriculum graph. It is built once at startup
// and only read afterwards, so it is safe for concurrent use.
type Curriculum struct {
	tracks      []Track
	modules     []Module
	trackIndex  map[string]int
	moduleIndex map[string]int
}

// Load reads a curriculum file, or every curriculum file under a directory in
// lexical path order. Tracks and modules keep their declaration order.
func Load(path string) (*Curriculum, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat curriculum: %w", err)
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := formatFor(p); ok {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk curriculum dir: %w", err)
		}
	} else {
		files = []string{path}
	}

	var merged document
	for _, f := range files {
		format, ok := formatFor(f)
		if !ok {
			return nil, fmt.Errorf("unsupported curriculum file: %s", f)
		}
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		doc, err := decode(data, format)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		merged.Tracks = append(merged.Tracks, doc.Tracks...)
		merged.Modules = append(merged.Modules, doc.Modules...)
	}

	c, err := build(merged)
	if err != nil {
		return nil, err
	}

	slog.Info("curriculum loaded",
		"files", len(files),
		"tracks", len(c.tracks),
		"modules", len(c.modules),
	)
	return c, nil
}

// Parse decodes and validates a single curriculum document.
func Parse(data []byte, format Format) (*Curriculum, error) {
	doc, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	return build(doc)
}

// New builds a curriculum from already-decoded values.
func New(tracks []Track, modules []Module) (*Curriculum, error) {
	return build(document{Tracks: tracks, Modules: modules})
}

func decode(data []byte, format Format) (document, error) {
	var raw any
	var doc document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return document{}, fmt.Errorf("decode json: %w", err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return document{}, fmt.Errorf("decode json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return document{}, fmt.Errorf("decode yaml: %w", err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return document{}, fmt.Errorf("decode yaml: %w", err)
		}
	}

	if err := validateSchema(raw); err != nil {
		return document{}, err
	}
	return doc, nil
}

func build(doc document) (*Curriculum, error) {
	c := &Curriculum{
		tracks:      doc.Tracks,
		modules:     doc.Modules,
		trackIndex:  make(map[string]int, len(doc.Tracks)),
		moduleIndex: make(map[string]int, len(doc.Modules)),
	}
	for i, t := range c.tracks {
		c.trackIndex[t.ID] = i
	}
	for i, m := range c.modules {
		c.moduleIndex[m.ID] = i
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the referential and uniqueness invariants of the graph.
func (c *Curriculum) Validate() error {
	var errs []error

	seenTracks := make(map[string]bool, len(c.tracks))
	for _, t := range c.tracks {
		if t.ID == "" {
			errs = append(errs, errors.New("track with empty id"))
			continue
		}
		if seenTracks[t.ID] {
			errs = append(errs, fmt.Errorf("duplicate track id %q", t.ID))
		}
		seenTracks[t.ID] = true
	}

	seenModules := make(map[string]bool, len(c.modules))
	for _, m := range c.modules {
		if m.ID == "" {
			errs = append(errs, errors.New("module with empty id"))
			continue
		}
		if strings.Contains(m.ID, "/") {
			errs = append(errs, fmt.Errorf("module id %q must not contain '/'", m.ID))
		}
		if seenModules[m.ID] {
			errs = append(errs, fmt.Errorf("duplicate module id %q", m.ID))
		}
		seenModules[m.ID] = true

		if !seenTracks[m.TrackID] {
			errs = append(errs, fmt.Errorf("module %q references unknown track %q", m.ID, m.TrackID))
		}

		lessons := make(map[string]bool, len(m.Lessons))
		for _, l := range m.Lessons {
			if l.ID == "" {
				errs = append(errs, fmt.Errorf("module %q: lesson with empty id", m.ID))
				continue
			}
			if l.ID == ReservedQuizID {
				errs = append(errs, fmt.Errorf("module %q: lesson id %q is reserved", m.ID, l.ID))
			}
			if lessons[l.ID] {
				errs = append(errs, fmt.Errorf("module %q: duplicate lesson id %q", m.ID, l.ID))
			}
			lessons[l.ID] = true
		}

		questions := make(map[string]bool, len(m.Quiz.Questions))
		for _, q := range m.Quiz.Questions {
			if questions[q.ID] {
				errs = append(errs, fmt.Errorf("module %q: duplicate question id %q", m.ID, q.ID))
			}
			questions[q.ID] = true
			if q.CorrectAnswerIndex < 0 || (len(q.Options) > 0 && q.CorrectAnswerIndex >= len(q.Options)) {
				errs = append(errs, fmt.Errorf("module %q: question %q correct_answer_index %d out of range",
					m.ID, q.ID, q.CorrectAnswerIndex))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid curriculum: %w", errors.Join(errs...))
	}
	return nil
}

// Tracks returns all tracks in declaration order.
func (c *Curriculum) Tracks() []Track {
	return append([]Track(nil), c.tracks...)
}

// Modules returns all modules in declaration order.
func (c *Curriculum) Modules() []Module {
	return append([]Module(nil), c.modules...)
}

// Track returns a track by ID.
func (c *Curriculum) Track(id string) (Track, bool) {
	i, ok := c.trackIndex[id]
	if !ok {
		return Track{}, false
	}
	return c.tracks[i], true
}

// Module returns a module by ID.
func (c *Curriculum) Module(id string) (Module, bool) {
	i, ok := c.moduleIndex[id]
	if !ok {
		return Module{}, false
	}
	return c.modules[i], true
}

// ModulesForTrack returns the modules of a track in declaration order.
func (c *Curriculum) ModulesForTrack(trackID string) []Module {
	var out []Module
	for _, m := range c.modules {
		if m.TrackID == trackID {
			out = append(out, m)
		}
	}
	return out
}

func formatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	}
	return 0, false
}
