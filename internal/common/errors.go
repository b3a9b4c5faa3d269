// Package common defines shared constants and sentinel errors used across
// client layers of backpack. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Cache-level errors.
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheKey is returned when an encrypted cache is opened with the
	// wrong passphrase.
	ErrCacheKey = errors.New("wrong cache passphrase")

	// Store-level errors.
	ErrorNotFound = errors.New("not found")

	// Session errors.
	ErrReauthorize      = errors.New("reauthorization required")
	ErrAuthStateInvalid = errors.New("login state mismatch")
	ErrNotLoggedIn      = errors.New("not logged in")

	// Orchestration errors.
	ErrOfflineDeclined  = errors.New("offline mode declined")
	ErrSyncInterrupted  = errors.New("connection lost during sync, try again later")
	ErrAttachmentTooBig = errors.New("attachment exceeds size limit")
	ErrOnlineOnly       = errors.New("you must be online to do this")
	ErrInvalidInput     = errors.New("invalid input")
)
