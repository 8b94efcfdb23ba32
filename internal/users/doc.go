// Package users implements account registration, confirmation,
// authentication and password reset on top of the cached user repository.
//
// Registration is a multi-step workflow:
//
//	START -> IDENTITY_PROVIDER_CREATED -> PASSWORD_ENCRYPTED -> PERSISTED -> DONE
//
// with FAILED reachable from any step before DONE. On failure the cached
// "user:<username>" entry is always evicted and, when enabled, the identity
// provider account is deleted if it had been created. Compensation is best
// effort: its own failures are logged and never returned.
package users
