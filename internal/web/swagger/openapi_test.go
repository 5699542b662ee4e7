// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package swagger

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOpenAPISpec(t *testing.T) {
	if len(openapiYAML) == 0 {
		t.Fatal("OpenAPI spec is empty")
	}

	var spec map[string]any
	if err := yaml.Unmarshal(openapiYAML, &spec); err != nil {
		t.Fatalf("Failed to parse OpenAPI spec: %v", err)
	}

	if spec["openapi"] == nil {
		t.Error("Missing 'openapi' field")
	}

	if spec["info"] == nil {
		t.Error("Missing 'info' field")
	}

	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		t.Fatal("'paths' is not a map")
	}

	totalEndpoints := 0
	for _, pathItem := range paths {
		if methods, ok := pathItem.(map[string]any); ok {
			for method := range methods {
				if method == "get" || method == "post" || method == "put" || method == "delete" || method == "patch" {
					totalEndpoints++
				}
			}
		}
	}

	t.Logf("OpenAPI spec documents %d endpoints", totalEndpoints)

	components, ok := spec["components"].(map[string]any)
	if !ok {
		t.Fatal("Missing or invalid 'components' section")
	}

	schemas, ok := components["schemas"].(map[string]any)
	if !ok {
		t.Fatal("Missing or invalid 'schemas' section")
	}

	requiredSchemas := []string{
		"Error",
		"CleanResponse",
		"CleanErrorResponse",
		"ConnectionStatus",
		"CleanStatus",
		"DeletedPage",
		"Stats",
		"Version",
	}

	for _, schema := range requiredSchemas {
		if schemas[schema] == nil {
			t.Errorf("Missing schema: %s", schema)
		}
	}
}

// Every $ref must point at a schema that exists.
func TestOpenAPIRefsResolve(t *testing.T) {
	var spec map[string]any
	require.NoError(t, yaml.Unmarshal(openapiYAML, &spec))

	schemas := spec["components"].(map[string]any)["schemas"].(map[string]any)

	var walk func(v any)
	walk = func(v any) {
		switch node := v.(type) {
		case map[string]any:
			for k, child := range node {
				if k == "$ref" {
					ref, _ := child.(string)
					const prefix = "#/components/schemas/"
					require.True(t, strings.HasPrefix(ref, prefix), "unexpected ref %q", ref)
					assert.Contains(t, schemas, strings.TrimPrefix(ref, prefix), "dangling ref %q", ref)
					continue
				}
				walk(child)
			}
		case []any:
			for _, child := range node {
				walk(child)
			}
		}
	}
	walk(spec["paths"])
	walk(schemas)
}

func TestServeOpenAPISpec(t *testing.T) {
	rec := httptest.NewRecorder()
	ServeOpenAPISpec(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.yaml", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Equal(t, openapiYAML, rec.Body.Bytes())
}
