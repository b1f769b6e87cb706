// Package registry resolves model types to the place their weights come from:
// a local directory under the models dir when present, otherwise a remote
// repository id the diffusion worker can fetch.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fitroom/internal/common/fsutil"
)

// Source describes where a model type's weights are materialized from.
type Source struct {
	ModelType string `json:"model_type"`
	// Ref is a local absolute path when Local is true, else a remote repo id.
	Ref   string `json:"ref"`
	Local bool   `json:"local"`
}

// DefaultRemotes maps the supported model types to their upstream repos.
func DefaultRemotes() map[string]string {
	return map[string]string{
		"idm-vton":   "yisol/IDM-VTON",
		"sd-inpaint": "runwayml/stable-diffusion-inpainting",
	}
}

// Catalog resolves model types against a models directory.
type Catalog struct {
	dir     string
	remotes map[string]string
}

// NewCatalog builds a catalog rooted at modelsDir. The directory does not have
// to exist; every type then resolves to its remote.
func NewCatalog(modelsDir string, remotes map[string]string) (*Catalog, error) {
	dir := ""
	if modelsDir != "" {
		base, err := fsutil.ExpandHome(modelsDir)
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(base)
		if err != nil {
			return nil, fmt.Errorf("abs path: %w", err)
		}
		dir = abs
	}
	if remotes == nil {
		remotes = DefaultRemotes()
	}
	cp := make(map[string]string, len(remotes))
	for k, v := range remotes {
		cp[k] = v
	}
	return &Catalog{dir: dir, remotes: cp}, nil
}

// Dir returns the absolute models directory ("" when unset).
func (c *Catalog) Dir() string { return c.dir }

// Resolve returns the source for modelType. Unknown types without a local
// directory report ok=false.
func (c *Catalog) Resolve(modelType string) (Source, bool) {
	if c.dir != "" {
		p := filepath.Join(c.dir, modelType)
		if fsutil.IsDir(p) {
			return Source{ModelType: modelType, Ref: p, Local: true}, true
		}
	}
	if remote, ok := c.remotes[modelType]; ok {
		return Source{ModelType: modelType, Ref: remote}, true
	}
	return Source{ModelType: modelType}, false
}

// List returns the resolved source of every known model type, sorted by type.
func (c *Catalog) List() []Source {
	types := make(map[string]struct{}, len(c.remotes))
	for t := range c.remotes {
		types[t] = struct{}{}
	}
	if local, err := LoadDir(c.dir); err == nil {
		for _, s := range local {
			types[s.ModelType] = struct{}{}
		}
	}
	out := make([]Source, 0, len(types))
	for t := range types {
		s, _ := c.Resolve(t)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelType < out[j].ModelType })
	return out
}

// LoadDir scans dir for model directories (one subdirectory per model type,
// e.g. <dir>/idm-vton as written by a worker's save_pretrained).
func LoadDir(dir string) ([]Source, error) {
	if dir == "" {
		return nil, nil
	}
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []Source
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		out = append(out, Source{ModelType: e.Name(), Ref: filepath.Join(abs, e.Name()), Local: true})
	}
	return out, nil
}
