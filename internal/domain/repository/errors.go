package repository

import "errors"

var (
	// ErrIdempotencyConflict means an idempotency key was reused with a
	// different request fingerprint.
	ErrIdempotencyConflict = errors.New("idempotency key reused with different payload")

	// ErrUnauthorizedWebhook means signature or secret verification failed, or
	// the webhook timestamp fell outside the tolerance window.
	ErrUnauthorizedWebhook = errors.New("webhook verification failed")

	// ErrInvalidWebhookPayload means the webhook body could not be parsed; the
	// request is rejected before any state change.
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")

	// ErrProviderNotConfigured means no enabled connection exists for the
	// requested calendar provider.
	ErrProviderNotConfigured = errors.New("calendar provider is not configured")

	// ErrUnknownJobType means a job names a type with no registered handler.
	ErrUnknownJobType = errors.New("unsupported job type")

	// ErrInvalidArgument means a request value failed domain validation.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidCursor     = errors.New("invalid cursor")
)
