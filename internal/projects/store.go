// Package projects stores users' strategy projects in a single JSON file.
package projects

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/p-n-ai/tsea/internal/ai"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrInvalidProject  = errors.New("invalid project")
)

// Project is a named workspace a user chats about with one persona.
type Project struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Persona     ai.Persona `json:"persona,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Input holds the user-editable fields of a project.
type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Persona     string `json:"persona"`
}

func (in Input) validate() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, fmt.Errorf("%w: name is required", ErrInvalidProject)
	}
	if in.Persona != "" {
		p, ok := ai.ParsePersona(in.Persona)
		if !ok {
			return in, fmt.Errorf("%w: unknown persona %q", ErrInvalidProject, in.Persona)
		}
		in.Persona = string(p)
	}
	return in, nil
}

type document struct {
	Projects []Project `json:"projects"`
}

// FileStore keeps every project in memory and rewrites the file on each
// change.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	projects []Project
	now      func() time.Time
}

// Open loads path, creating an empty store when the file does not exist.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path, now: time.Now}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read projects: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse projects %s: %w", path, err)
	}
	s.projects = doc.Projects
	return s, nil
}

// List returns the projects of owner, most recently updated first.
func (s *FileStore) List(ownerID string) []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Project{}
	for _, p := range s.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b Project) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out
}

// Get returns one project of owner.
func (s *FileStore) Get(ownerID, id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(ownerID, id)
	if i < 0 {
		return Project{}, ErrProjectNotFound
	}
	return s.projects[i], nil
}

// Create adds a project for owner.
func (s *FileStore) Create(ownerID string, in Input) (Project, error) {
	in, err := in.validate()
	if err != nil {
		return Project{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	p := Project{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        in.Name,
		Description: in.Description,
		Persona:     ai.Persona(in.Persona),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	next := append(slices.Clone(s.projects), p)
	if err := s.write(next); err != nil {
		return Project{}, err
	}
	s.projects = next
	return p, nil
}

// Update replaces the editable fields of a project.
func (s *FileStore) Update(ownerID, id string, in Input) (Project, error) {
	in, err := in.validate()
	if err != nil {
		return Project{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(ownerID, id)
	if i < 0 {
		return Project{}, ErrProjectNotFound
	}
	next := slices.Clone(s.projects)
	p := next[i]
	p.Name = in.Name
	p.Description = in.Description
	p.Persona = ai.Persona(in.Persona)
	p.UpdatedAt = s.now().UTC()
	next[i] = p

	if err := s.write(next); err != nil {
		return Project{}, err
	}
	s.projects = next
	return p, nil
}

// Delete removes a project.
func (s *FileStore) Delete(ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(ownerID, id)
	if i < 0 {
		return ErrProjectNotFound
	}
	next := slices.Delete(slices.Clone(s.projects), i, i+1)
	if err := s.write(next); err != nil {
		return err
	}
	s.projects = next
	return nil
}

// index finds a project. Callers hold mu.
func (s *FileStore) index(ownerID, id string) int {
	return slices.IndexFunc(s.projects, func(p Project) bool {
		return p.ID == id && p.OwnerID == ownerID
	})
}

// write replaces the file via a temp file and rename. Callers hold mu.
func (s *FileStore) write(projects []Project) error {
	data, err := json.MarshalIndent(document{Projects: projects}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal projects: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create projects dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".projects-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write projects: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync projects: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close projects: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace projects: %w", err)
	}
	return nil
}
