// Package scriptsource materializes a script's source text as an addressable
// file for the runner.
//
// Two authoring modes with identical execution semantics:
//   - inline: the script lives as a string in the test itself and is written
//     to a scratch file after indentation normalization
//   - fixture: the script is a pre-existing file under a fixed fixture
//     directory and is returned without modification
package scriptsource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// NotFoundError is returned when a named fixture script does not exist.
type NotFoundError struct {
	Name string
	Path string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("fixture script %q not found at %s", e.Name, e.Path)
}

// IsNotFound returns true if the error is a missing-fixture error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Provider resolves script names to filesystem paths.
type Provider struct {
	// ScratchDir receives inline scripts. Typically a per-test temporary
	// directory discarded at teardown, which also removes the scratch files.
	ScratchDir string

	// FixtureDir is the fixed directory fixture scripts resolve against.
	FixtureDir string
}

// NewProvider creates a provider with the given scratch and fixture directories.
func NewProvider(scratchDir, fixtureDir string) *Provider {
	return &Provider{ScratchDir: scratchDir, FixtureDir: fixtureDir}
}

// FromString normalizes the common leading whitespace of text, writes the
// result to a fresh scratch file named name, and returns the absolute path.
//
// Filesystem errors (unwritable scratch directory) propagate: they are setup
// errors, fatal to the current test, never downgraded to data.
func (p *Provider) FromString(name, text string) (string, error) {
	path := filepath.Join(p.ScratchDir, name)
	aligned := Dedent(text)
	if err := os.WriteFile(path, []byte(aligned), 0o644); err != nil {
		return "", fmt.Errorf("write inline script %q: %w", name, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve inline script path %q: %w", name, err)
	}
	return abs, nil
}

// FromFixture resolves name against the fixture directory and returns the
// path without modification. Fails with a NotFoundError if the fixture does
// not exist; performs no writes.
func (p *Provider) FromFixture(name string) (string, error) {
	path := filepath.Join(p.FixtureDir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Name: name, Path: path}
		}
		return "", fmt.Errorf("stat fixture script %q: %w", name, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve fixture script path %q: %w", name, err)
	}
	return abs, nil
}
