// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the muster
// CLIs. It centralizes the one legitimate raw-stderr pattern: fatal
// error reporting from main() before or after the structured logger
// is available.
package process

import (
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors returned by run().
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
