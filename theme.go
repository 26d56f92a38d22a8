package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const defaultTheme = "dark"

var validThemes = map[string]bool{
	"dark":  true,
	"light": true,
}

// themeStore is the single persisted UI preference. It is read once at
// startup; Set writes through on a best-effort basis.
type themeStore struct {
	mu    sync.RWMutex
	path  string
	theme string
}

// loadThemeStore reads the preference from path, falling back to def when the
// file is missing or holds an unknown value.
func loadThemeStore(path, def string) *themeStore {
	ts := &themeStore{path: path, theme: def}
	if path == "" {
		return ts
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: cannot read theme preference: %v", err)
		}
		return ts
	}
	if t := strings.TrimSpace(string(data)); validThemes[t] {
		ts.theme = t
	}
	return ts
}

// Get returns the current theme.
func (ts *themeStore) Get() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.theme
}

// Set changes the theme. A failed write is logged and otherwise ignored so a
// broken state directory never blocks rendering.
func (ts *themeStore) Set(theme string) error {
	if !validThemes[theme] {
		return fmt.Errorf("unknown theme %q", theme)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.setLocked(theme)
	return nil
}

// Toggle flips between dark and light and returns the new theme.
func (ts *themeStore) Toggle() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	next := "light"
	if ts.theme == "light" {
		next = "dark"
	}
	ts.setLocked(next)
	return next
}

// setLocked updates memory and the file together; ts.mu must be held.
func (ts *themeStore) setLocked(theme string) {
	ts.theme = theme
	if ts.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(ts.path), 0755); err != nil {
		log.Printf("Warning: cannot persist theme preference: %v", err)
		return
	}
	if err := atomicWriteFile(ts.path, theme+"\n"); err != nil {
		log.Printf("Warning: cannot persist theme preference: %v", err)
	}
}

func atomicWriteFile(path, content string) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".uiview-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
