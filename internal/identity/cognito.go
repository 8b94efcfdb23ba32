package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/goliatone/go-commerce-backend/internal/users"
	goerrors "github.com/goliatone/go-errors"
)

// CognitoAPI is the subset of the Cognito user pool client the provider uses.
type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	ForgotPassword(ctx context.Context, params *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, params *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
	AdminDeleteUser(ctx context.Context, params *cip.AdminDeleteUserInput, optFns ...func(*cip.Options)) (*cip.AdminDeleteUserOutput, error)
}

// Config identifies the user pool and app client.
type Config struct {
	UserPoolID string
	ClientID   string
	// ClientSecret is set for app clients with a secret; every request then
	// carries a SECRET_HASH.
	ClientSecret string
}

// Provider implements users.IdentityProvider on a Cognito user pool.
type Provider struct {
	client CognitoAPI
	cfg    Config
}

var _ users.IdentityProvider = (*Provider)(nil)

// New creates a Provider over client.
func New(client CognitoAPI, cfg Config) *Provider {
	return &Provider{client: client, cfg: cfg}
}

// NewFromConfig creates a Provider from an AWS config.
func NewFromConfig(awsCfg aws.Config, cfg Config) *Provider {
	return New(cip.NewFromConfig(awsCfg), cfg)
}

// Authenticate runs the USER_PASSWORD_AUTH flow and returns the issued tokens.
func (p *Provider) Authenticate(ctx context.Context, username, password string) (users.Tokens, error) {
	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	if hash := p.secretHash(username); hash != nil {
		params["SECRET_HASH"] = *hash
	}

	out, err := p.client.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(p.cfg.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return users.Tokens{}, goerrors.Wrap(err, goerrors.CategoryAuth, "cognito: initiate auth")
	}
	if out.AuthenticationResult == nil {
		// MFA and NEW_PASSWORD_REQUIRED challenges are not supported
		return users.Tokens{}, goerrors.New("cognito: unsupported auth challenge "+string(out.ChallengeName), goerrors.CategoryAuth)
	}

	res := out.AuthenticationResult
	return users.Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		TokenType:    aws.ToString(res.TokenType),
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

// RegisterUser signs up username with email as a user attribute.
func (p *Provider) RegisterUser(ctx context.Context, username, password, email string) error {
	_, err := p.client.SignUp(ctx, &cip.SignUpInput{
		ClientId:   aws.String(p.cfg.ClientID),
		Username:   aws.String(username),
		Password:   aws.String(password),
		SecretHash: p.secretHash(username),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "cognito: sign up")
	}
	return nil
}

// ConfirmRegistration confirms a sign-up with the emailed code.
func (p *Provider) ConfirmRegistration(ctx context.Context, username, code string) error {
	_, err := p.client.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(p.cfg.ClientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		SecretHash:       p.secretHash(username),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "cognito: confirm sign up")
	}
	return nil
}

// InitiatePasswordReset sends a reset code to the user.
func (p *Provider) InitiatePasswordReset(ctx context.Context, username string) error {
	_, err := p.client.ForgotPassword(ctx, &cip.ForgotPasswordInput{
		ClientId:   aws.String(p.cfg.ClientID),
		Username:   aws.String(username),
		SecretHash: p.secretHash(username),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "cognito: forgot password")
	}
	return nil
}

// CompletePasswordReset sets password once code is verified.
func (p *Provider) CompletePasswordReset(ctx context.Context, username, password, code string) error {
	_, err := p.client.ConfirmForgotPassword(ctx, &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(p.cfg.ClientID),
		Username:         aws.String(username),
		Password:         aws.String(password),
		ConfirmationCode: aws.String(code),
		SecretHash:       p.secretHash(username),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "cognito: confirm forgot password")
	}
	return nil
}

// DeleteUser removes the account with admin credentials.
func (p *Provider) DeleteUser(ctx context.Context, username string) error {
	_, err := p.client.AdminDeleteUser(ctx, &cip.AdminDeleteUserInput{
		UserPoolId: aws.String(p.cfg.UserPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "cognito: admin delete user")
	}
	return nil
}

// secretHash returns nil when the app client has no secret.
func (p *Provider) secretHash(username string) *string {
	if p.cfg.ClientSecret == "" {
		return nil
	}
	return aws.String(SecretHash(username, p.cfg.ClientID, p.cfg.ClientSecret))
}

// SecretHash computes Base64(HMAC_SHA256(secret, username + clientID)).
func SecretHash(username, clientID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
