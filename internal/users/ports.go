package users

import "context"

// Tokens are the credentials issued by the identity provider on a
// successful authentication.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int32  `json:"expires_in"`
}

// IdentityProvider is the managed identity service. Every method returns an
// error on failure and has no partial-success outcome.
type IdentityProvider interface {
	Authenticate(ctx context.Context, username, password string) (Tokens, error)
	RegisterUser(ctx context.Context, username, password, email string) error
	ConfirmRegistration(ctx context.Context, username, code string) error
	InitiatePasswordReset(ctx context.Context, username string) error
	CompletePasswordReset(ctx context.Context, username, password, code string) error
	// DeleteUser removes an account; used to roll back a failed registration.
	DeleteUser(ctx context.Context, username string) error
}

// Encrypter encrypts plaintext under keyID and returns base64 ciphertext.
type Encrypter interface {
	Encrypt(ctx context.Context, plaintext, keyID string) (string, error)
}
