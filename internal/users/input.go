package users

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// RegisterInput is the payload of a registration request.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the registration payload before any side effect.
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(1, 128)),
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Password, validation.Required),
	)
}

// ConfirmInput is the payload of a registration confirmation.
type ConfirmInput struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

// Validate checks the confirmation payload before any side effect.
func (in ConfirmInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required),
		validation.Field(&in.Code, validation.Required),
	)
}

// LoginInput is the payload of an authentication request.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the login payload before any side effect.
func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// ForgotPasswordInput starts a password reset.
type ForgotPasswordInput struct {
	Username string `json:"username"`
}

// Validate checks the reset request before any side effect.
func (in ForgotPasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required),
	)
}

// ResetPasswordInput completes a password reset with the emailed code.
type ResetPasswordInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Validate checks the reset completion payload before any side effect.
func (in ResetPasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required),
		validation.Field(&in.Password, validation.Required),
		validation.Field(&in.Code, validation.Required),
	)
}

// Session is returned by a successful authentication.
type Session struct {
	Tokens Tokens `json:"tokens"`
	User   User   `json:"user"`
}
