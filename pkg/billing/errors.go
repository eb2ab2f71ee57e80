package billing

import "errors"

var (
	// ErrInvalidEventPayload marks an event that can never be processed
	// successfully: malformed identifiers, unknown plans, missing fields.
	// The processor acknowledges such events so the provider stops
	// redelivering them.
	ErrInvalidEventPayload = errors.New("invalid webhook event payload")

	// ErrUnknownTenant means the event references a tenant this system has
	// no record of. Fatal for the same reason as an invalid payload.
	ErrUnknownTenant = errors.New("unknown tenant referenced by webhook event")

	// ErrLockUnavailable means the tenant-scoped lock could not be acquired;
	// the delivery should be retried later.
	ErrLockUnavailable = errors.New("tenant lock unavailable")

	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
	ErrMissingWebhookSecret      = errors.New("webhook secret is required")
)
