package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/willibrandon/gowiz/observability"
	"github.com/willibrandon/gowiz/version"
)

// MaxDefinitionFileSize is the maximum size of a definition file (1MB).
const MaxDefinitionFileSize = 1024 * 1024

// maxConcurrentReads limits concurrent definition file reads.
const maxConcurrentReads = 8

// definitionDocument is the on-disk form of a definition.
// JSON documents decode through the same structure.
type definitionDocument struct {
	Identifier   string            `yaml:"identifier"`
	Namespace    string            `yaml:"namespace,omitempty"`
	Version      string            `yaml:"version,omitempty"`
	Description  string            `yaml:"description,omitempty"`
	Requirements []string          `yaml:"requirements,omitempty"`
	Conditions   []string          `yaml:"conditions,omitempty"`
	Variants     []variantDocument `yaml:"variants,omitempty"`
}

type variantDocument struct {
	Identifier   string   `yaml:"identifier"`
	Requirements []string `yaml:"requirements,omitempty"`
}

// ParseDefinition decodes a YAML or JSON definition document.
func ParseDefinition(data []byte) (*Definition, error) {
	var doc definitionDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}

	if doc.Identifier == "" {
		return nil, fmt.Errorf("definition is missing an identifier")
	}

	def := &Definition{
		Identifier:  doc.Identifier,
		Namespace:   doc.Namespace,
		Description: doc.Description,
	}

	if doc.Version != "" {
		v, err := version.Parse(doc.Version)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", doc.Identifier, ErrInvalidVersion, err)
		}
		def.Version = v
	}

	var err error
	if def.Requirements, err = ParseRequirements(doc.Requirements); err != nil {
		return nil, fmt.Errorf("%s: requirements: %w", doc.Identifier, err)
	}
	if def.Conditions, err = ParseRequirements(doc.Conditions); err != nil {
		return nil, fmt.Errorf("%s: conditions: %w", doc.Identifier, err)
	}

	seen := make(map[string]bool, len(doc.Variants))
	for _, vd := range doc.Variants {
		if vd.Identifier == "" {
			return nil, fmt.Errorf("%s: variant is missing an identifier", doc.Identifier)
		}
		if seen[vd.Identifier] {
			return nil, fmt.Errorf("%s: duplicated variant %q", doc.Identifier, vd.Identifier)
		}
		seen[vd.Identifier] = true

		reqs, err := ParseRequirements(vd.Requirements)
		if err != nil {
			return nil, fmt.Errorf("%s[%s]: requirements: %w", doc.Identifier, vd.Identifier, err)
		}
		def.Variants = append(def.Variants, Variant{Identifier: vd.Identifier, Requirements: reqs})
	}

	return def, nil
}

// LoadDefinitions reads every definition file found under the given paths.
//
// Paths may be files or directories; directories are walked recursively for
// *.yaml, *.yml and *.json files. Files are decoded concurrently and the
// result is ordered by file path.
func LoadDefinitions(ctx context.Context, paths ...string) (defs []*Definition, err error) {
	ctx, span := observability.StartDefinitionLoadSpan(ctx, len(paths))
	defer func() {
		observability.SetAttributes(ctx, observability.AttrDefinitionCount.Int(len(defs)))
		observability.EndSpanWithError(span, err)
	}()

	files, err := discoverDefinitionFiles(paths)
	if err != nil {
		return nil, err
	}

	loaded := make([]*Definition, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			def, err := readDefinitionFile(file)
			if err != nil {
				return err
			}
			loaded[i] = def
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return loaded, nil
}

// LoadRepository loads definitions from paths into a new Repository.
func LoadRepository(ctx context.Context, paths ...string) (*Repository, error) {
	defs, err := LoadDefinitions(ctx, paths...)
	if err != nil {
		return nil, err
	}
	return NewRepository(defs...)
}

func readDefinitionFile(path string) (*Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat definition: %w", err)
	}
	if info.Size() > MaxDefinitionFileSize {
		return nil, fmt.Errorf("definition %s exceeds %d bytes", path, MaxDefinitionFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	def.Path = path
	return def, nil
}

func discoverDefinitionFiles(paths []string) ([]string, error) {
	var files []string

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("definition path: %w", err)
		}

		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isDefinitionFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
