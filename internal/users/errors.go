package users

import (
	goerrors "github.com/goliatone/go-errors"
)

// Workflow errors. Callers receive one of these instead of the underlying
// cause, which is logged.
var (
	ErrRegistrationFailed      = workflowError("user registration failed", goerrors.CategoryExternal, "REGISTRATION_FAILED")
	ErrConfirmationFailed      = workflowError("registration confirmation failed", goerrors.CategoryExternal, "CONFIRMATION_FAILED")
	ErrAuthenticationFailed    = workflowError("authentication failed", goerrors.CategoryAuth, "AUTHENTICATION_FAILED")
	ErrPasswordResetInitFailed = workflowError("password reset initiation failed", goerrors.CategoryExternal, "PASSWORD_RESET_INIT_FAILED")
	ErrPasswordResetFailed     = workflowError("password reset failed", goerrors.CategoryExternal, "PASSWORD_RESET_FAILED")
	ErrUserNotFound            = workflowError("user not found", goerrors.CategoryNotFound, "USER_NOT_FOUND")
)

func workflowError(message string, category goerrors.Category, code string) *goerrors.Error {
	return goerrors.New(message, category).WithTextCode(code)
}

func invalidInput(err error, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, message).
		WithTextCode("VALIDATION_FAILED")
}
