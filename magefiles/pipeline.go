//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Pipeline groups targets that drive the built CLI.
type Pipeline mg.Namespace

// Run runs the full pipeline with the local config, resuming from the checkpoint.
func (Pipeline) Run() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "run")
}

// Fresh reruns the full pipeline without resuming.
func (Pipeline) Fresh() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "run", "--no-resume")
}

// Validate checks the generated files and deletes broken ones.
func (Pipeline) Validate() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "validate", "--fix")
}

// Export writes the dataset as JSON and per-category files.
func (Pipeline) Export() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "export", "--by-category")
}
