// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
)

// Fatal reports err and exits. Errors carrying an ExitCode() method
// (cli.ExitError) exit with that code silently: the command has
// already written its own output.
func Fatal(err error) {
	if coder, ok := err.(interface{ ExitCode() int }); ok {
		os.Exit(coder.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
