package service

import (
	"errors"

	"legalcheck-backend/repository"
)

// Errors
var (
	// ErrIndexUninitialized is the only pipeline error surfaced to callers.
	ErrIndexUninitialized = repository.ErrIndexUninitialized

	ErrEmptyQuery       = errors.New("query must not be empty")
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionForbidden = errors.New("session belongs to another user")
	ErrClaimNotFound    = errors.New("claim check not found")
	ErrLockTimeout      = errors.New("timed out waiting for session lock")
)

var (
	ErrRevisionNotFound = errors.New("statute revision not found")
	ErrNoCandidates     = errors.New("no explanation candidate for revision")

	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrStorageDisabled    = errors.New("attachment storage is not configured")
)
