package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// DefaultResourceQuery lists the resource names declared by a catalog.
const DefaultResourceQuery = `.services[]?.resources[]?.name`

// Catalog is a loaded data-object catalog. Raw is kept verbatim.
type Catalog struct {
	URI       string
	Raw       json.RawMessage
	Resources []string
}

// CatalogLoader turns a fetched catalog body into a Catalog. An error
// rejects the catalog.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, uri string, body []byte) (*Catalog, error)
}

// CatalogLoaderFunc adapts a function to CatalogLoader.
type CatalogLoaderFunc func(ctx context.Context, uri string, body []byte) (*Catalog, error)

func (f CatalogLoaderFunc) LoadCatalog(ctx context.Context, uri string, body []byte) (*Catalog, error) {
	return f(ctx, uri, body)
}

// JSONCatalogLoader keeps the raw JSON and collects resource names with a
// jq query.
type JSONCatalogLoader struct {
	code *gojq.Code
}

// NewJSONCatalogLoader returns a loader using DefaultResourceQuery.
func NewJSONCatalogLoader() *JSONCatalogLoader {
	l, err := NewJSONCatalogLoaderWithQuery(DefaultResourceQuery)
	if err != nil {
		panic(err)
	}
	return l
}

// NewJSONCatalogLoaderWithQuery returns a loader that runs query over each
// catalog to find its resource names.
func NewJSONCatalogLoaderWithQuery(query string) (*JSONCatalogLoader, error) {
	q, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression '%s': %w", query, err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return &JSONCatalogLoader{code: code}, nil
}

func (l *JSONCatalogLoader) LoadCatalog(ctx context.Context, uri string, body []byte) (*Catalog, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("catalog %s is not valid JSON: %w", uri, err)
	}

	var resources []string
	iter := l.code.RunWithContext(ctx, v)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := out.(error); isErr {
			return nil, fmt.Errorf("catalog %s: %w", uri, err)
		}
		if name, ok := out.(string); ok && name != "" {
			resources = append(resources, name)
		}
	}

	return &Catalog{URI: uri, Raw: json.RawMessage(body), Resources: resources}, nil
}
