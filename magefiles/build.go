//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the manifest tool into bin/.
func (Build) Tool() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/manifestc", "./cmd/manifestc"), withStream())
	return err
}

// Builds the testbed binary into bin/.
func (Build) Testbed() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/testbed", "."), withStream())
	return err
}

// Regenerates the testbed manifest and data file from their TOML description.
func (Build) Assets() error {
	_, err := executeCmd("go", withArgs("run", "./cmd/manifestc", "pack",
		"-in", "testbed/assets/text_resource.toml",
		"-out", "testbed/assets/text_resource.mri"), withStream())
	return err
}

type Test mg.Namespace

// Runs the unit tests.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the unit tests with the race detector.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}
