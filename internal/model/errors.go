package model

import "errors"

var (
	// ErrInvalidArgument is returned when a request is missing fields or carries malformed ones.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSessionNotReady is returned when a command targets a session that is absent or not Ready.
	ErrSessionNotReady = errors.New("session not ready")

	// ErrUnauthorized is returned when a user is not authorized.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when access to a resource is forbidden.
	ErrForbidden = errors.New("forbidden")

	// ErrMediaFetch is returned when a remote media URL could not be fetched.
	ErrMediaFetch = errors.New("media fetch failed")

	// ErrDispatch is returned when the protocol client rejected or failed a command.
	ErrDispatch = errors.New("dispatch failed")

	// ErrUserExists is returned when creating a user whose name is taken.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
)
