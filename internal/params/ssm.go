package params

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	goerrors "github.com/goliatone/go-errors"
	"github.com/viccon/sturdyc"
)

// ErrParameterNotFound is returned when a parameter does not exist or has no value.
var ErrParameterNotFound = goerrors.New("parameter not found", goerrors.CategoryNotFound).
	WithTextCode("PARAMETER_NOT_FOUND")

// SSMAPI is the subset of the SSM client used by Store.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config sizes the process-local parameter cache.
type Config struct {
	Capacity int
	TTL      time.Duration
}

// DefaultConfig returns the cache sizing used when Config fields are zero.
func DefaultConfig() Config {
	return Config{Capacity: 256, TTL: 15 * time.Minute}
}

// Store reads SecureString and String parameters, caching values for the
// life of the process (bounded by TTL).
type Store struct {
	client SSMAPI
	cache  *sturdyc.Client[string]
}

// New creates a Store over client.
func New(client SSMAPI, cfg Config) *Store {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &Store{
		client: client,
		cache:  sturdyc.New[string](cfg.Capacity, 1, cfg.TTL, 10),
	}
}

// NewFromConfig creates a Store with an SSM client built from awsCfg.
func NewFromConfig(awsCfg aws.Config, cfg Config) *Store {
	return New(ssm.NewFromConfig(awsCfg), cfg)
}

// GetParameter returns the decrypted value of name.
func (s *Store) GetParameter(ctx context.Context, name string) (string, error) {
	return s.cache.GetOrFetch(ctx, name, func(ctx context.Context) (string, error) {
		return s.fetch(ctx, name)
	})
}

func (s *Store) fetch(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var missing *types.ParameterNotFound
		if errors.As(err, &missing) {
			return "", fmt.Errorf("ssm %s: %w", name, ErrParameterNotFound)
		}
		return "", goerrors.Wrap(err, goerrors.CategoryExternal, "ssm: get parameter "+name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm %s: no value: %w", name, ErrParameterNotFound)
	}
	return aws.ToString(out.Parameter.Value), nil
}
