// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package swagger serves the embedded OpenAPI document.
package swagger

import (
	_ "embed"
	"errors"
	"net/http"
)

//go:embed openapi.yaml
var openapiYAML []byte

// GetOpenAPISpec returns the raw OpenAPI document.
func GetOpenAPISpec() ([]byte, error) {
	if len(openapiYAML) == 0 {
		return nil, errors.New("openapi spec not embedded")
	}
	return openapiYAML, nil
}

// ServeOpenAPISpec writes the document as YAML.
func ServeOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	spec, err := GetOpenAPISpec()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(spec)
}
