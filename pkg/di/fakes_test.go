package di

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// fakeCognito is an in-memory user pool.
type fakeCognito struct {
	mu        sync.Mutex
	passwords map[string]string
	confirmed map[string]bool
	deleted   []string
	signUpErr error
}

func newFakeCognito() *fakeCognito {
	return &fakeCognito{passwords: map[string]string{}, confirmed: map[string]bool{}}
}

func (f *fakeCognito) InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := in.AuthParameters["USERNAME"]
	if pw, ok := f.passwords[user]; !ok || pw != in.AuthParameters["PASSWORD"] {
		return nil, &ciptypes.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}
	}
	return &cip.InitiateAuthOutput{AuthenticationResult: &ciptypes.AuthenticationResultType{
		AccessToken: aws.String("access-" + user),
		IdToken:     aws.String("id-" + user),
		TokenType:   aws.String("Bearer"),
		ExpiresIn:   3600,
	}}, nil
}

func (f *fakeCognito) SignUp(ctx context.Context, in *cip.SignUpInput, _ ...func(*cip.Options)) (*cip.SignUpOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	user := aws.ToString(in.Username)
	if _, ok := f.passwords[user]; ok {
		return nil, &ciptypes.UsernameExistsException{Message: aws.String("User already exists")}
	}
	f.passwords[user] = aws.ToString(in.Password)
	return &cip.SignUpOutput{}, nil
}

func (f *fakeCognito) ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, _ ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if aws.ToString(in.ConfirmationCode) != "123456" {
		return nil, &ciptypes.CodeMismatchException{Message: aws.String("Invalid code")}
	}
	f.confirmed[aws.ToString(in.Username)] = true
	return &cip.ConfirmSignUpOutput{}, nil
}

func (f *fakeCognito) ForgotPassword(ctx context.Context, in *cip.ForgotPasswordInput, _ ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error) {
	return &cip.ForgotPasswordOutput{}, nil
}

func (f *fakeCognito) ConfirmForgotPassword(ctx context.Context, in *cip.ConfirmForgotPasswordInput, _ ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if aws.ToString(in.ConfirmationCode) != "654321" {
		return nil, &ciptypes.CodeMismatchException{Message: aws.String("Invalid code")}
	}
	f.passwords[aws.ToString(in.Username)] = aws.ToString(in.Password)
	return &cip.ConfirmForgotPasswordOutput{}, nil
}

func (f *fakeCognito) AdminDeleteUser(ctx context.Context, in *cip.AdminDeleteUserInput, _ ...func(*cip.Options)) (*cip.AdminDeleteUserOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := aws.ToString(in.Username)
	delete(f.passwords, user)
	f.deleted = append(f.deleted, user)
	return &cip.AdminDeleteUserOutput{}, nil
}

type fakeKMS struct {
	err error
}

func (f *fakeKMS) Encrypt(ctx context.Context, in *kms.EncryptInput, _ ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &kms.EncryptOutput{CiphertextBlob: append([]byte("kms:"), in.Plaintext...)}, nil
}

type fakeSSM struct {
	mu     sync.Mutex
	values map[string]string
	reads  []string
}

func (f *fakeSSM) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.Name)
	f.reads = append(f.reads, name)
	v, ok := f.values[name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Name: in.Name, Value: aws.String(v)}}, nil
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	if aws.ToString(in.Bucket) == "" {
		return nil, errors.New("bucket required")
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

type fakeAWS struct {
	cognito *fakeCognito
	kms     *fakeKMS
	ssm     *fakeSSM
	s3      *fakeS3
}

func newFakeAWS(params map[string]string) *fakeAWS {
	return &fakeAWS{
		cognito: newFakeCognito(),
		kms:     &fakeKMS{},
		ssm:     &fakeSSM{values: params},
		s3:      &fakeS3{},
	}
}

func (f *fakeAWS) clients() Clients {
	return Clients{Cognito: f.cognito, KMS: f.kms, SSM: f.ssm, S3: f.s3}
}
