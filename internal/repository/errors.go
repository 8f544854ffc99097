// Package repository defines error types that are reused across the
// data access layer. These sentinel values allow higher layers such
// as services and handlers to distinguish between different failure
// scenarios without inspecting driver error strings themselves.
package repository

import "errors"

// ErrEmailExists is returned when an insert or update violates the
// unique index on users.email. The index is the actual guard against
// concurrent check-then-create races; callers treat this error as the
// authoritative "email taken" signal.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no row. Handlers
// should translate this into a 401/404 depending on context without
// revealing whether the email exists.
var ErrNotFound = errors.New("not found")
