//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// areaStats counts the lines of one package area.
type areaStats struct {
	Prod  int `json:"prod"`
	Test  int `json:"test"`
	Files int `json:"files"`
}

// Stats prints production and test line counts per package area, plus the
// word count of the Markdown docs, as one JSON line.
func Stats() error {
	fsys := os.DirFS(".")
	sources, err := doublestar.Glob(fsys, "{cmd,internal,pkg,tests}/**/*.go")
	if err != nil {
		return err
	}

	areas := map[string]*areaStats{}
	var total areaStats
	for _, name := range sources {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		lines := bytes.Count(data, []byte("\n"))
		a := areas[area(name)]
		if a == nil {
			a = &areaStats{}
			areas[area(name)] = a
		}
		a.Files++
		total.Files++
		if strings.HasSuffix(name, "_test.go") {
			a.Test += lines
			total.Test += lines
		} else {
			a.Prod += lines
			total.Prod += lines
		}
	}

	docs, err := doublestar.Glob(fsys, "*.md")
	if err != nil {
		return err
	}
	words := 0
	for _, name := range docs {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		words += len(strings.Fields(string(data)))
	}

	line, err := json.Marshal(map[string]any{
		"areas":  areas,
		"total":  total,
		"doc_wc": words,
	})
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}

// area names the top two path segments of a source file, e.g. "pkg/tree".
// Nested packages count towards their parent.
func area(name string) string {
	parts := strings.SplitN(path.Dir(name), "/", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, "/")
}
