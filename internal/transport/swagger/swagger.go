package swagger

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Document is a parsed and validated OpenAPI 3 description served as raw YAML.
type Document struct {
	raw  []byte
	spec *openapi3.T
}

// Load reads and validates the OpenAPI document at path.
func Load(ctx context.Context, path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read openapi document: %w", err)
	}
	return Parse(ctx, raw)
}

func Parse(ctx context.Context, raw []byte) (*Document, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if err := spec.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return &Document{raw: raw, spec: spec}, nil
}

func (d *Document) Spec() *openapi3.T {
	return d.spec
}

// Documents reports whether method and a chi route pattern such as /api/v1/users/{id} are described.
func (d *Document) Documents(method, pattern string) bool {
	for _, server := range d.serverPrefixes() {
		if len(pattern) < len(server) || pattern[:len(server)] != server {
			continue
		}
		item := d.spec.Paths.Find(pattern[len(server):])
		if item != nil && item.GetOperation(method) != nil {
			return true
		}
	}
	return false
}

func (d *Document) serverPrefixes() []string {
	prefixes := []string{""}
	for _, s := range d.spec.Servers {
		if path, err := s.BasePath(); err == nil && path != "/" {
			prefixes = append(prefixes, path)
		}
	}
	return prefixes
}

func (d *Document) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(d.raw)
}

// Handler serves Swagger UI pointed at specURL.
func Handler(specURL string) http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL(specURL),
	)
}
