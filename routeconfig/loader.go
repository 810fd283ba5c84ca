// Package routeconfig reads route definition files.
//
// A routes file is a YAML mapping from route key to definition:
//
//	token:
//	  route: /api/tokens
//	  methods: [post]
//	  action: auth.new_token
//	  middlewares: [ratelimit]
//
// Declaration order is preserved. Parsed records are cached in the
// apicore.BucketConfiguration bucket until the caches are cleared.
package routeconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sagarc03/apicore"
)

// DefaultFile is the routes file read when no name is configured.
const DefaultFile = "routes.yaml"

// Loader reads routes files relative to a base directory.
type Loader struct {
	dir   string
	store apicore.CacheStore
}

// NewLoader returns a loader rooted at dir. store may be nil to disable caching.
func NewLoader(dir string, store apicore.CacheStore) *Loader {
	return &Loader{dir: dir, store: store}
}

// Path resolves name against the loader directory.
func (l *Loader) Path(name string) string {
	if name == "" {
		name = DefaultFile
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(l.dir, name)
}

// Load returns the raw route records of the named file in declaration order.
func (l *Loader) Load(ctx context.Context, name string) ([]apicore.RawRoute, error) {
	path := l.Path(name)

	if routes, ok := l.cached(ctx, path); ok {
		return routes, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}

	routes, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse routes file %s: %w", path, err)
	}

	l.remember(ctx, path, routes)

	return routes, nil
}

func (l *Loader) cached(ctx context.Context, path string) ([]apicore.RawRoute, bool) {
	if l.store == nil {
		return nil, false
	}

	data, err := l.store.Get(ctx, apicore.BucketConfiguration, path)
	if err != nil {
		if !errors.Is(err, apicore.ErrCacheMiss) {
			slog.Warn("routes cache read failed", "path", path, "error", err)
		}
		return nil, false
	}

	var routes []apicore.RawRoute
	if err := json.Unmarshal(data, &routes); err != nil {
		slog.Warn("routes cache entry is corrupt", "path", path, "error", err)
		return nil, false
	}

	slog.Debug("routes loaded from cache", "path", path, "count", len(routes))
	return routes, true
}

func (l *Loader) remember(ctx context.Context, path string, routes []apicore.RawRoute) {
	if l.store == nil {
		return
	}

	data, err := json.Marshal(routes)
	if err != nil {
		slog.Warn("routes cache encode failed", "path", path, "error", err)
		return
	}

	if err := l.store.Set(ctx, apicore.BucketConfiguration, path, data, 0); err != nil {
		slog.Warn("routes cache write failed", "path", path, "error", err)
	}
}

// Parse decodes a routes document. An empty document yields no routes.
func Parse(data []byte) ([]apicore.RawRoute, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", apicore.ErrInvalidInput, err)
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: routes document must be a mapping of route keys, line %d", apicore.ErrInvalidInput, root.Line)
	}

	routes := make([]apicore.RawRoute, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]

		var route apicore.RawRoute
		if err := valueNode.Decode(&route); err != nil {
			return nil, fmt.Errorf("%w: route %q: %w", apicore.ErrInvalidInput, keyNode.Value, err)
		}
		route.Key = keyNode.Value

		routes = append(routes, route)
	}

	return routes, nil
}
