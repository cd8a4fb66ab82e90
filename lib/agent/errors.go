// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"errors"
	"fmt"
)

// ErrSizeExceeded is wrapped when an encoded payload or one of its
// fields exceeds the transport budget.
var ErrSizeExceeded = errors.New("transport size budget exceeded")

// Packaging stages reported in PackagingError.Stage.
const (
	StageOptions      = "options"
	StageHostUnit     = "host unit"
	StageExport       = "export"
	StageDependencies = "dependencies"
	StageSerialize    = "serialize"
	StageSize         = "size"
)

// PackagingError reports a payload that could not be built.
type PackagingError struct {
	Stage string
	Err   error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging agent payload (%s): %v", e.Stage, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

func sizeError(what string, size, budget int) error {
	return &PackagingError{
		Stage: StageSize,
		Err:   fmt.Errorf("serialized %s is too large [%d] (max %d): %w", what, size, budget, ErrSizeExceeded),
	}
}
