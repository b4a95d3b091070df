package resolver

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/willibrandon/gowiz/core"
	"github.com/willibrandon/gowiz/observability"
)

// CachedCatalogue memoizes catalogue extractions for every graph branch of
// a resolution. Errors are cached as well.
type CachedCatalogue struct {
	catalogue Catalogue

	mu    sync.RWMutex
	cache map[string]cachedExtraction
}

type cachedExtraction struct {
	packages []*core.Package
	err      error
}

// NewCachedCatalogue wraps a catalogue with an in-memory cache.
func NewCachedCatalogue(catalogue Catalogue) *CachedCatalogue {
	return &CachedCatalogue{
		catalogue: catalogue,
		cache:     make(map[string]cachedExtraction),
	}
}

// Extract implements Catalogue.
func (c *CachedCatalogue) Extract(req core.Requirement, counter core.NamespaceCounter) ([]*core.Package, error) {
	key := cacheKey(req, counter)

	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()

	if ok {
		observability.CatalogueCacheHitsTotal.WithLabelValues("hit").Inc()
		return entry.packages, entry.err
	}

	observability.CatalogueCacheHitsTotal.WithLabelValues("miss").Inc()
	packages, err := c.catalogue.Extract(req, counter)

	c.mu.Lock()
	c.cache[key] = cachedExtraction{packages: packages, err: err}
	c.mu.Unlock()

	return packages, err
}

// Len returns the number of cached extractions.
func (c *CachedCatalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// cacheKey combines the requirement with the namespace counter it was
// extracted under. Only bare names depend on the counter.
func cacheKey(req core.Requirement, counter core.NamespaceCounter) string {
	key := req.String()
	if req.Namespace != "" || req.NoNamespace || len(counter) == 0 {
		return key
	}

	namespaces := make([]string, 0, len(counter))
	for ns := range counter {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	var b strings.Builder
	b.WriteString(key)
	for _, ns := range namespaces {
		b.WriteString("|" + ns + "=" + strconv.Itoa(counter[ns]))
	}
	return b.String()
}
