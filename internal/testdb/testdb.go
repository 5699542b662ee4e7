// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package testdb hands out migrated SQLite databases to tests. Each key is
// migrated once into a template file; tests receive a private copy of it.
package testdb

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/autobrr/cleango/internal/database"
)

type template struct {
	once sync.Once
	path string
	err  error
}

var (
	mu        sync.Mutex
	templates = map[string]*template{}

	unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// Open returns a database cloned from the template for key. It is closed
// when the test ends.
func Open(t *testing.T, key string) *database.DB {
	t.Helper()

	db, err := database.New(PathFromTemplate(t, key, "cleango.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// PathFromTemplate returns a fresh database file path inside t.TempDir()
// holding a copy of the migrated template for key.
func PathFromTemplate(t *testing.T, key, filename string) string {
	t.Helper()

	tpl := lookup(key)
	tpl.once.Do(func() {
		tpl.path, tpl.err = buildTemplate(key)
	})
	require.NoError(t, tpl.err, "prepare test DB template %q", key)

	dst := filepath.Join(t.TempDir(), filename)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		err := copyIfExists(tpl.path+suffix, dst+suffix)
		require.NoError(t, err, "clone test DB template %q", key)
	}

	return dst
}

func lookup(key string) *template {
	mu.Lock()
	defer mu.Unlock()

	tpl, ok := templates[key]
	if !ok {
		tpl = &template{}
		templates[key] = tpl
	}
	return tpl
}

func buildTemplate(key string) (string, error) {
	name := unsafeKeyChars.ReplaceAllString(key, "-")
	if name == "" {
		name = "testdb"
	}

	dir, err := os.MkdirTemp("", fmt.Sprintf("cleango-%s-template-", name))
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, "template.db")
	db, err := database.New(path)
	if err != nil {
		return "", err
	}

	return path, db.Close()
}

func copyIfExists(src, dst string) error {
	in, err := os.Open(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
