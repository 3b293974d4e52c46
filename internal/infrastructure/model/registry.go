// Package model loads the model catalog and resolves model selectors to
// classifiers.
package model

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/core/ports"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/model/centroid"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/model/linear"
)

const (
	KindLinear   = "linear"
	KindCentroid = "centroid"
	KindOllama   = "ollama"
)

type catalogFile struct {
	Models []catalogEntry `yaml:"models"`
}

type catalogEntry struct {
	Name   string              `yaml:"name"`
	Kind   string              `yaml:"kind"`
	Path   string              `yaml:"path"`
	Scopes []domain.ModelScope `yaml:"scopes"`
}

// Dependencies are shared by the loaded models.
type Dependencies struct {
	Indexer linear.Indexer
	Ollama  *ollama.Client
}

type entry struct {
	info       domain.ModelInfo
	scopes     []domain.ModelScope
	classifier ports.Classifier
}

// Registry holds loaded models in catalog order.
type Registry struct {
	entries []entry
}

func LoadCatalog(path string, deps Dependencies) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model catalog: %w", err)
	}
	defer f.Close()

	var catalog catalogFile
	if err := yaml.NewDecoder(f).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("decode model catalog: %w", err)
	}
	if len(catalog.Models) == 0 {
		return nil, errors.New("model catalog is empty")
	}

	baseDir := filepath.Dir(path)
	reg := &Registry{}
	for _, e := range catalog.Models {
		classifier, hasConfidence, err := loadEntry(baseDir, e, deps)
		if err != nil {
			return nil, fmt.Errorf("load model %q: %w", e.Name, err)
		}
		if err := reg.Register(domain.ModelInfo{Name: e.Name, Kind: e.Kind, HasConfidence: hasConfidence}, classifier, e.Scopes...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func loadEntry(baseDir string, e catalogEntry, deps Dependencies) (ports.Classifier, bool, error) {
	switch e.Kind {
	case KindLinear:
		m, err := openArtifact(baseDir, e.Path, func(r io.Reader) (*linear.Model, error) {
			return linear.Load(r, deps.Indexer)
		})
		return m, true, err
	case KindCentroid:
		m, err := openArtifact(baseDir, e.Path, func(r io.Reader) (*centroid.Model, error) {
			return centroid.Load(r, deps.Indexer)
		})
		return m, false, err
	case KindOllama:
		if deps.Ollama == nil {
			return nil, false, errors.New("ollama client is not configured")
		}
		return ollama.NewClassifier(deps.Ollama), true, nil
	default:
		return nil, false, fmt.Errorf("unknown model kind %q", e.Kind)
	}
}

func openArtifact[T any](baseDir, path string, load func(io.Reader) (T, error)) (T, error) {
	var zero T
	if strings.TrimSpace(path) == "" {
		return zero, errors.New("artifact path is required")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	return load(f)
}

// Register adds a model. Without scopes the model serves every scope.
func (r *Registry) Register(info domain.ModelInfo, classifier ports.Classifier, scopes ...domain.ModelScope) error {
	if strings.TrimSpace(info.Name) == "" {
		return errors.New("model name is required")
	}
	for _, e := range r.entries {
		if e.info.Name == info.Name {
			return fmt.Errorf("duplicate model name %q", info.Name)
		}
	}
	if len(scopes) == 0 {
		scopes = []domain.ModelScope{domain.ModelScopeDocument, domain.ModelScopeArchive}
	}
	r.entries = append(r.entries, entry{info: info, scopes: scopes, classifier: classifier})
	return nil
}

// Resolve returns the named model and its catalog entry. An empty name
// selects the first model of the scope.
func (r *Registry) Resolve(name string, scope domain.ModelScope) (ports.Classifier, domain.ModelInfo, error) {
	name = strings.TrimSpace(name)
	for _, e := range r.entries {
		if !slices.Contains(e.scopes, scope) {
			continue
		}
		if name == "" || e.info.Name == name {
			return e.classifier, e.info, nil
		}
	}
	if name == "" {
		return nil, domain.ModelInfo{}, domain.WrapError(domain.ErrInvalidInput, "resolve model", fmt.Errorf("no %s models configured", scope))
	}
	return nil, domain.ModelInfo{}, domain.WrapError(domain.ErrInvalidInput, "resolve model", fmt.Errorf("unknown %s model %q", scope, name))
}

func (r *Registry) Models(scope domain.ModelScope) []domain.ModelInfo {
	out := make([]domain.ModelInfo, 0, len(r.entries))
	for _, e := range r.entries {
		if slices.Contains(e.scopes, scope) {
			out = append(out, e.info)
		}
	}
	return out
}

// DefaultName returns the model used when the operator selects none.
func (r *Registry) DefaultName(scope domain.ModelScope) string {
	models := r.Models(scope)
	if len(models) == 0 {
		return ""
	}
	return models[0].Name
}
