package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes or realtime error
// events without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// Call signaling.
	ErrUnknownSession    = errors.New("unknown session")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidTarget     = errors.New("invalid target")

	// Realtime gateway.
	ErrUnbound     = errors.New("connection not bound to a user")
	ErrRateLimited = errors.New("rate limited")

	// Verification codes.
	ErrWrongCode       = errors.New("wrong code")
	ErrExpired         = errors.New("code expired")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrNotifierFailure = errors.New("notifier failure")
)

// errorCodes is ordered: the first sentinel matched wins.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrUnknownSession, "unknown_session"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrInvalidTarget, "invalid_target"},
	{ErrUnbound, "unbound"},
	{ErrRateLimited, "rate_limited"},
	{ErrWrongCode, "wrong_code"},
	{ErrExpired, "expired"},
	{ErrTooManyAttempts, "too_many_attempts"},
	{ErrNotifierFailure, "notifier_failure"},
	{ErrNotFound, "not_found"},
	{ErrConflict, "conflict"},
	{ErrUnauthorized, "unauthorized"},
	{ErrForbidden, "forbidden"},
	{ErrBadRequest, "bad_request"},
}

// ErrorCode returns the stable snake_case code for err, or "internal" when err
// wraps none of the domain sentinels.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}
