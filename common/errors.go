// Package common keeps definitions shared by all stages of the build pipeline.
package common

import "errors"

// Error kinds. Every failure returned by the pipeline wraps exactly one of
// them, so callers can classify it with errors.Is.
var (
	// ErrConfiguration - manifest is missing, malformed or has no designated key.
	ErrConfiguration = errors.New("configuration error")
	// ErrData - entry source is missing, malformed or has no designated key.
	ErrData = errors.New("data error")
	// ErrTemplate - template is missing, cannot be parsed or fails to execute.
	ErrTemplate = errors.New("template error")
	// ErrCompile - external typesetting tool failed.
	ErrCompile = errors.New("compile error")
)
