// Package repository implements data access on top of database/sql.  The
// sentinel values defined here let handlers and services distinguish failure
// scenarios without inspecting driver errors: ErrForbidden maps to HTTP 403,
// the *NotFound values to 404, and ErrEmailExists to 409.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// record owned by someone else, such as cancelling another user's request.
var ErrForbidden = errors.New("forbidden")

// ErrLabNotFound is returned when a referenced lab does not exist.
var ErrLabNotFound = errors.New("lab not found")

// ErrResourceNotFound is returned when a referenced resource does not exist.
var ErrResourceNotFound = errors.New("resource not found")

// ErrRequestNotFound is returned when a reservation request does not exist.
var ErrRequestNotFound = errors.New("request not found")

// ErrDepartmentNotFound is returned when a lab references a school
// department that does not exist.
var ErrDepartmentNotFound = errors.New("department not found")

// ErrEmailExists is returned by user creation when the normalized email is
// already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when a referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")
