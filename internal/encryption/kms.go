package encryption

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/goliatone/go-commerce-backend/internal/users"
	goerrors "github.com/goliatone/go-errors"
)

// ErrNoCiphertext is returned when KMS answers without a ciphertext blob.
var ErrNoCiphertext = goerrors.New("kms: response carried no ciphertext", goerrors.CategoryExternal).
	WithTextCode("KMS_NO_CIPHERTEXT")

// KMSAPI is the subset of the KMS client used by Encrypter.
type KMSAPI interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
}

// Encrypter encrypts secrets with a KMS key.
type Encrypter struct {
	client KMSAPI
}

var _ users.Encrypter = (*Encrypter)(nil)

// New creates an Encrypter over client.
func New(client KMSAPI) *Encrypter {
	return &Encrypter{client: client}
}

// NewFromConfig creates an Encrypter with a KMS client built from cfg.
func NewFromConfig(cfg aws.Config) *Encrypter {
	return New(kms.NewFromConfig(cfg))
}

// Encrypt returns the base64 encoded ciphertext of plaintext under keyID.
func (e *Encrypter) Encrypt(ctx context.Context, plaintext, keyID string) (string, error) {
	out, err := e.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(keyID),
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryExternal, "kms: encrypt")
	}
	if len(out.CiphertextBlob) == 0 {
		return "", ErrNoCiphertext
	}
	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}
