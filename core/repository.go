package core

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// NamespaceCounter counts how many placed packages used each namespace.
// It is read by Extract to guess the default namespace of a bare name.
type NamespaceCounter map[string]int

// Repository holds package definitions and serves requirements.
//
// It is safe for concurrent use; definitions are normally all added before
// the first Extract call.
type Repository struct {
	mu sync.RWMutex

	// name -> namespace -> definitions sorted by descending version
	definitions map[string]map[string][]*Definition
	keys        map[string]bool
}

// NewRepository creates a repository holding the given definitions.
func NewRepository(defs ...*Definition) (*Repository, error) {
	r := &Repository{
		definitions: make(map[string]map[string][]*Definition),
		keys:        make(map[string]bool),
	}
	if err := r.Add(defs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Add registers definitions. Adding two definitions with the same
// qualified identifier and version returns ErrDuplicateDefinition.
func (r *Repository) Add(defs ...*Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, def := range defs {
		if def.Identifier == "" {
			return fmt.Errorf("definition without identifier (%s)", def.Path)
		}

		key := def.Key()
		if r.keys[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateDefinition, key)
		}
		r.keys[key] = true

		byNamespace, ok := r.definitions[def.Identifier]
		if !ok {
			byNamespace = make(map[string][]*Definition)
			r.definitions[def.Identifier] = byNamespace
		}

		versions := append(byNamespace[def.Namespace], def)
		sort.SliceStable(versions, func(i, j int) bool {
			return versions[i].Version.GreaterThan(versions[j].Version)
		})
		byNamespace[def.Namespace] = versions
	}

	return nil
}

// Len returns the number of registered definitions.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// Definitions returns every definition ordered by qualified identifier and
// descending version.
func (r *Repository) Definitions() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Definition, 0, len(r.keys))
	for _, byNamespace := range r.definitions {
		for _, defs := range byNamespace {
			all = append(all, defs...)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if a, b := all[i].QualifiedIdentifier(), all[j].QualifiedIdentifier(); a != b {
			return a < b
		}
		return all[i].Version.GreaterThan(all[j].Version)
	})
	return all
}

// Extract returns the best matching packages for a requirement.
//
// The highest version contained in the requirement specifier is selected.
// When the definition declares variants and the requirement names none,
// one package per variant is returned in declaration order.
//
// Errors are *RequestError values wrapping ErrRequestNotFound or
// ErrNamespaceAmbiguous.
func (r *Repository) Extract(req Requirement, counter NamespaceCounter) ([]*Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byNamespace, ok := r.definitions[req.Name]
	if !ok {
		return nil, newRequestError(req, ErrRequestNotFound, "no definition named %q", req.Name)
	}

	namespace, err := r.guessNamespace(req, byNamespace, counter)
	if err != nil {
		return nil, err
	}

	defs, ok := byNamespace[namespace]
	if !ok {
		return nil, newRequestError(req, ErrRequestNotFound,
			"no definition named %q", qualify(namespace, req.Name))
	}

	var def *Definition
	variantIndex := -1
	for _, candidate := range defs {
		if !req.Specifier.Contains(candidate.Version) {
			continue
		}
		if req.Variant != "" {
			variantIndex = slices.IndexFunc(candidate.Variants, func(v Variant) bool {
				return v.Identifier == req.Variant
			})
			if variantIndex < 0 {
				continue
			}
		}
		def = candidate
		break
	}

	if def == nil {
		if req.Variant != "" {
			return nil, newRequestError(req, ErrRequestNotFound,
				"no version of %q provides variant %q", qualify(namespace, req.Name), req.Variant)
		}
		return nil, newRequestError(req, ErrRequestNotFound,
			"no version of %q matches %q", qualify(namespace, req.Name), req.Specifier.String())
	}

	if variantIndex >= 0 {
		return []*Package{NewPackage(def, variantIndex)}, nil
	}

	if len(def.Variants) == 0 {
		return []*Package{NewPackage(def, -1)}, nil
	}

	packages := make([]*Package, len(def.Variants))
	for i := range def.Variants {
		packages[i] = NewPackage(def, i)
	}
	return packages, nil
}

// guessNamespace picks the namespace serving a requirement.
//
// A bare name matching several namespaces prefers the namespace used most
// by packages already placed, then a namespace identical to the name.
func (r *Repository) guessNamespace(
	req Requirement,
	byNamespace map[string][]*Definition,
	counter NamespaceCounter,
) (string, error) {
	switch {
	case req.NoNamespace:
		return "", nil
	case req.Namespace != "":
		return req.Namespace, nil
	}

	namespaces := make([]string, 0, len(byNamespace))
	for ns := range byNamespace {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	if len(namespaces) == 1 {
		return namespaces[0], nil
	}

	best, bestCount, tie := "", 0, false
	for _, ns := range namespaces {
		count := counter[ns]
		if ns == "" || count == 0 {
			continue
		}
		switch {
		case count > bestCount:
			best, bestCount, tie = ns, count, false
		case count == bestCount:
			tie = true
		}
	}
	if best != "" && !tie {
		return best, nil
	}

	if slices.Contains(namespaces, req.Name) {
		return req.Name, nil
	}

	labels := make([]string, len(namespaces))
	for i, ns := range namespaces {
		if ns == "" {
			ns = NamespaceSeparator + req.Name
		} else {
			ns = qualify(ns, req.Name)
		}
		labels[i] = ns
	}
	return "", newRequestError(req, ErrNamespaceAmbiguous,
		"cannot guess default namespace, candidates are %s", strings.Join(labels, ", "))
}
