//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "bin/orgoals"

// Default target when running `mage` with no arguments.
var Default = Build

// Build compiles the orgoals binary, stamping the version from $VERSION.
func Build() error {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	ldflags := fmt.Sprintf("-s -w -X github.com/seuros/orgoals/internal/cli.Version=%s", version)
	return sh.RunV("go", "build", "-trimpath", "-ldflags", ldflags, "-o", binary, "./cmd/orgoals")
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// TestPostgres runs the suite including the PostgreSQL integration tests.
// It expects ORGOALS_TEST_POSTGRES to point at a server pgtestdb can use.
func TestPostgres() error {
	if os.Getenv("ORGOALS_TEST_POSTGRES") == "" {
		return fmt.Errorf("ORGOALS_TEST_POSTGRES is not set")
	}
	return sh.RunV("go", "test", "-race", "./internal/database/...")
}

// Lint runs go vet.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// CI runs lint and tests in order.
func CI() {
	mg.SerialDeps(Lint, Test)
}

// Clean removes build output.
func Clean() error {
	return sh.Rm("bin")
}
