package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/xhit/go-str2duration/v2"
)

// Snapshot modes for USER_CACHE_SNAPSHOT.
const (
	SnapshotInput     = "input"
	SnapshotPersisted = "persisted"
)

// Config is the process configuration read from the environment. Secrets
// can be given either directly or as the name of an SSM parameter
// (the *Param fields), which is resolved at start-up.
type Config struct {
	LogLevel  string
	LogFormat string

	AWSRegion string

	CognitoUserPoolID        string
	CognitoClientID          string
	CognitoClientSecret      string
	CognitoClientSecretParam string
	IdentityRollback         bool

	KMSKeyID string

	UploadBucket  string
	UploadMaxSize int

	DBDriver       string
	DBDSN          string
	DBDSNParam     string
	DBMaxOpenConns int

	CacheBackend       string
	CachePrefix        string
	RedisAddr          string
	RedisUsername      string
	RedisPassword      string
	RedisPasswordParam string
	RedisDB            int
	RedisTLS           bool
	CacheQueryTimeout  time.Duration

	UserCacheTTL      time.Duration
	UserCacheSnapshot string

	ParamCacheTTL time.Duration
}

// Default returns the configuration used for unset variables.
func Default() Config {
	return Config{
		LogLevel:          "info",
		LogFormat:         "json",
		AWSRegion:         "us-east-1",
		IdentityRollback:  true,
		UploadMaxSize:     6 << 20,
		DBDriver:          "postgres",
		DBMaxOpenConns:    5,
		CacheBackend:      "redis",
		RedisAddr:         "localhost:6379",
		CacheQueryTimeout: 5 * time.Second,
		UserCacheTTL:      time.Hour,
		UserCacheSnapshot: SnapshotInput,
		ParamCacheTTL:     15 * time.Minute,
	}
}

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return FromEnv(os.LookupEnv)
}

// FromEnv reads the configuration through lookup and validates it.
func FromEnv(lookup LookupFunc) (Config, error) {
	cfg := Default()
	r := reader{lookup: lookup}

	r.str("LOG_LEVEL", &cfg.LogLevel)
	r.str("LOG_FORMAT", &cfg.LogFormat)
	r.str("AWS_REGION", &cfg.AWSRegion)

	r.str("COGNITO_USER_POOL_ID", &cfg.CognitoUserPoolID)
	r.str("COGNITO_CLIENT_ID", &cfg.CognitoClientID)
	r.str("COGNITO_CLIENT_SECRET", &cfg.CognitoClientSecret)
	r.str("COGNITO_CLIENT_SECRET_PARAM", &cfg.CognitoClientSecretParam)
	r.boolean("IDENTITY_ROLLBACK", &cfg.IdentityRollback)

	r.str("KMS_KEY_ID", &cfg.KMSKeyID)

	r.str("UPLOAD_BUCKET", &cfg.UploadBucket)
	r.integer("UPLOAD_MAX_SIZE", &cfg.UploadMaxSize)

	r.str("DB_DRIVER", &cfg.DBDriver)
	r.str("DB_DSN", &cfg.DBDSN)
	r.str("DB_DSN_PARAM", &cfg.DBDSNParam)
	r.integer("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns)

	r.str("CACHE_BACKEND", &cfg.CacheBackend)
	r.str("CACHE_PREFIX", &cfg.CachePrefix)
	r.str("REDIS_ADDR", &cfg.RedisAddr)
	r.str("REDIS_USERNAME", &cfg.RedisUsername)
	r.str("REDIS_PASSWORD", &cfg.RedisPassword)
	r.str("REDIS_PASSWORD_PARAM", &cfg.RedisPasswordParam)
	r.integer("REDIS_DB", &cfg.RedisDB)
	r.boolean("REDIS_TLS", &cfg.RedisTLS)
	r.duration("CACHE_QUERY_TIMEOUT", &cfg.CacheQueryTimeout)

	r.duration("USER_CACHE_TTL", &cfg.UserCacheTTL)
	r.str("USER_CACHE_SNAPSHOT", &cfg.UserCacheSnapshot)
	r.duration("PARAM_CACHE_TTL", &cfg.ParamCacheTTL)

	if r.err != nil {
		return Config{}, r.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required settings and value ranges.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("json", "console")),
		validation.Field(&c.AWSRegion, validation.Required),
		validation.Field(&c.CognitoUserPoolID, validation.Required),
		validation.Field(&c.CognitoClientID, validation.Required),
		validation.Field(&c.KMSKeyID, validation.Required),
		validation.Field(&c.UploadBucket, validation.Required),
		validation.Field(&c.UploadMaxSize, validation.Min(1)),
		validation.Field(&c.DBDriver, validation.Required, validation.In("postgres", "sqlite3")),
		validation.Field(&c.DBDSN, validation.When(c.DBDSNParam == "", validation.Required.Error("DB_DSN or DB_DSN_PARAM is required"))),
		validation.Field(&c.DBMaxOpenConns, validation.Min(0)),
		validation.Field(&c.CacheBackend, validation.Required, validation.In("redis", "memory")),
		validation.Field(&c.RedisAddr, validation.When(c.CacheBackend == "redis", validation.Required, is.DialString)),
		validation.Field(&c.RedisDB, validation.Min(0)),
		validation.Field(&c.CacheQueryTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.UserCacheTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.UserCacheSnapshot, validation.In(SnapshotInput, SnapshotPersisted)),
		validation.Field(&c.ParamCacheTTL, validation.Min(time.Duration(0))),
	)
}

type reader struct {
	lookup LookupFunc
	err    error
}

func (r *reader) get(key string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *reader) integer(key string, dst *int) {
	if v, ok := r.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.err = fmt.Errorf("config: %s: %w", key, err)
			return
		}
		*dst = n
	}
}

func (r *reader) boolean(key string, dst *bool) {
	if v, ok := r.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.err = fmt.Errorf("config: %s: %w", key, err)
			return
		}
		*dst = b
	}
}

// duration accepts Go durations and day/week units such as "1d" or "2w".
func (r *reader) duration(key string, dst *time.Duration) {
	if v, ok := r.get(key); ok {
		d, err := str2duration.ParseDuration(v)
		if err != nil {
			r.err = fmt.Errorf("config: %s: %w", key, err)
			return
		}
		*dst = d
	}
}
