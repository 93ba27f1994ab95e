// Package apperr defines the sentinel errors shared by the mutation
// engine and the API layer.
package apperr

import "errors"

var (
	// ErrNotFound: the source path does not reference an existing document or folder.
	ErrNotFound = errors.New("not found")
	// ErrConflict: the destination path is already occupied.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists: creation target already present.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidTarget: request rejected by classifier precedence rules
	// or the tag validation grammar.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrPartialFailure: a multi-document operation in which some units
	// failed. Per-document details travel alongside the error value.
	ErrPartialFailure = errors.New("partial failure")
)
