// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError makes a binary exit with Code without printing anything
// further. Commands return it after writing their own output, for
// results like "some targets failed" that are not unexpected errors.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode is the hook process.Fatal looks for.
func (e *ExitError) ExitCode() int {
	return e.Code
}
