// Package templates loads and renders the prompt and message templates
// bundled with the engine. Templates ship as embedded assets; deployments
// can override any of them by dropping a file with the same relative path
// into the configured override directory.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

//go:embed assets/**/*.tmpl
var embeddedFS embed.FS

// Template is one parsed template, addressed by its ID.
type Template struct {
	ID      string
	Content string

	parsed *template.Template
}

// Render executes the template with the provided data.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.parsed.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", t.ID, err)
	}

	return buf.String(), nil
}

// Registry resolves templates by ID. An ID is the asset path without the
// .tmpl extension, e.g. "research/agentic_system".
type Registry struct {
	templates map[string]*Template
	mu        sync.RWMutex
}

// NewRegistry loads the embedded defaults, then overlays any .tmpl files
// found under overrideDir. Overrides win by ID. An empty or missing
// directory means embedded templates only.
func NewRegistry(overrideDir string) (*Registry, error) {
	r := &Registry{templates: map[string]*Template{}}

	embedded, err := fs.Sub(embeddedFS, "assets")
	if err != nil {
		return nil, fmt.Errorf("prepare embedded templates: %w", err)
	}
	if err := r.loadAll(embedded); err != nil {
		return nil, err
	}

	if overrideDir != "" {
		if info, err := os.Stat(overrideDir); err == nil && info.IsDir() {
			if err := r.loadAll(os.DirFS(overrideDir)); err != nil {
				return nil, err
			}
		}
	}

	return r, nil
}

// NewRegistryFromFS loads every .tmpl file under the given filesystem.
func NewRegistryFromFS(fsys fs.FS) (*Registry, error) {
	r := &Registry{templates: map[string]*Template{}}
	if err := r.loadAll(fsys); err != nil {
		return nil, err
	}

	return r, nil
}

// Get returns the lazily initialized registry of embedded templates.
func Get() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = NewRegistry("")
	})

	if defaultErr != nil {
		panic(defaultErr)
	}

	return defaultRegistry
}

// GetTemplate retrieves a template by its ID.
func (r *Registry) GetTemplate(id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tmpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", id)
	}

	return tmpl, nil
}

// Render executes a template by ID using the provided data.
func (r *Registry) Render(id string, data any) (string, error) {
	tmpl, err := r.GetTemplate(id)
	if err != nil {
		return "", err
	}

	return tmpl.Render(data)
}

// Pair renders the "<id>_system" and "<id>_user" templates with the same
// data. This is the convention for LLM prompt pairs: every prompt asset
// ships as two templates sharing one variable set.
func (r *Registry) Pair(id string, data any) (system, user string, err error) {
	system, err = r.Render(id+"_system", data)
	if err != nil {
		return "", "", err
	}

	user, err = r.Render(id+"_user", data)
	if err != nil {
		return "", "", err
	}

	return system, user, nil
}

// List returns all known template IDs.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}

	return ids
}

func (r *Registry) loadAll(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".tmpl" {
			return nil
		}

		return r.loadTemplate(fsys, path)
	})
}

func (r *Registry) loadTemplate(fsys fs.FS, path string) error {
	id := pathToID(path)

	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read template %s: %w", id, err)
	}

	parsed, err := template.New(id).Funcs(helperFuncs()).Parse(string(content))
	if err != nil {
		return fmt.Errorf("parse template %s: %w", id, err)
	}

	r.mu.Lock()
	r.templates[id] = &Template{
		ID:      id,
		Content: string(content),
		parsed:  parsed,
	}
	r.mu.Unlock()

	return nil
}

func pathToID(rel string) string {
	normalized := strings.TrimPrefix(filepath.ToSlash(rel), "/")
	return strings.TrimSuffix(normalized, filepath.Ext(normalized))
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)
