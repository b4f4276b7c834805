//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Checks the testbed manifest and runs the testbed.
func (Run) Testbed() error {
	mg.Deps(Build.Assets)
	if _, err := executeCmd("go", withArgs("run", "./cmd/manifestc", "validate", "testbed/assets/text_resource.mri"), withStream()); err != nil {
		return err
	}
	fmt.Println("Run testbed...")
	if _, err := executeCmd("go", withArgs("run", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}
