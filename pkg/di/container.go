package di

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/goliatone/go-commerce-backend/cache"
	"github.com/goliatone/go-commerce-backend/internal/blob"
	"github.com/goliatone/go-commerce-backend/internal/encryption"
	"github.com/goliatone/go-commerce-backend/internal/handlers"
	"github.com/goliatone/go-commerce-backend/internal/identity"
	"github.com/goliatone/go-commerce-backend/internal/logging"
	"github.com/goliatone/go-commerce-backend/internal/params"
	"github.com/goliatone/go-commerce-backend/internal/storage"
	"github.com/goliatone/go-commerce-backend/internal/uploads"
	"github.com/goliatone/go-commerce-backend/internal/users"
	"github.com/goliatone/go-commerce-backend/pkg/config"
	"github.com/goliatone/go-commerce-backend/repositorycache"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Clients are the AWS service clients used by the adapters. Nil clients are
// created from the default AWS configuration.
type Clients struct {
	Cognito identity.CognitoAPI
	KMS     encryption.KMSAPI
	SSM     params.SSMAPI
	S3      blob.S3API
}

func (c Clients) complete() bool {
	return c.Cognito != nil && c.KMS != nil && c.SSM != nil && c.S3 != nil
}

// Option customizes a Container.
type Option func(*Container)

// WithClients injects AWS clients, typically fakes in tests.
func WithClients(clients Clients) Option {
	return func(c *Container) { c.clients = clients }
}

// WithLogger replaces the logger built from configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

// WithDB injects an open database. The container does not close it.
func WithDB(db *bun.DB) Option {
	return func(c *Container) { c.db = db }
}

// WithCache injects an open cache connection. The container does not close it.
func WithCache(conn cache.Conn) Option {
	return func(c *Container) { c.cache = conn }
}

// secrets are the resolved values of the secret settings.
type secrets struct {
	dbDSN         string
	redisPassword string
	clientSecret  string
}

// Container owns the process-wide resources and the services built on them.
// Start-up runs in a fixed order: configuration, parameter resolution,
// cache connection, database connection, then services and handler.
type Container struct {
	cfg     config.Config
	logger  *zap.Logger
	clients Clients

	params  *params.Store
	secrets secrets
	cache   cache.Conn
	db      *bun.DB
	keys    cache.KeySerializer

	userRepo *users.Repository
	users    *users.Service
	uploads  *uploads.Service
	handler  *handlers.Handler

	ownsCache bool
	ownsDB    bool
}

// NewContainer runs the start-up sequence for cfg. On error every resource
// opened so far is closed.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	c := &Container{cfg: cfg, keys: cache.NewDefaultKeySerializer()}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
		if err != nil {
			return nil, fmt.Errorf("di: logger: %w", err)
		}
		c.logger = logger
	}

	if err := c.loadClients(ctx); err != nil {
		return nil, err
	}
	c.params = params.New(c.clients.SSM, params.Config{TTL: cfg.ParamCacheTTL})

	if err := c.resolveSecrets(ctx); err != nil {
		return nil, err
	}

	if err := c.connect(ctx); err != nil {
		c.Close()
		return nil, err
	}

	c.build()
	c.logger.Info("container ready",
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("db_driver", cfg.DBDriver))
	return c, nil
}

// LoadContainer reads configuration from the environment and builds a Container.
func LoadContainer(ctx context.Context, opts ...Option) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewContainer(ctx, cfg, opts...)
}

func (c *Container) loadClients(ctx context.Context) error {
	if c.clients.complete() {
		return nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("di: aws config: %w", err)
	}
	if c.clients.Cognito == nil {
		c.clients.Cognito = cognitoidentityprovider.NewFromConfig(awsCfg)
	}
	if c.clients.KMS == nil {
		c.clients.KMS = kms.NewFromConfig(awsCfg)
	}
	if c.clients.SSM == nil {
		c.clients.SSM = ssm.NewFromConfig(awsCfg)
	}
	if c.clients.S3 == nil {
		c.clients.S3 = s3.NewFromConfig(awsCfg)
	}
	return nil
}

func (c *Container) resolveSecrets(ctx context.Context) error {
	var err error
	if c.cache == nil {
		if c.secrets.redisPassword, err = c.secret(ctx, c.cfg.RedisPassword, c.cfg.RedisPasswordParam); err != nil {
			return err
		}
	}
	if c.db == nil {
		if c.secrets.dbDSN, err = c.secret(ctx, c.cfg.DBDSN, c.cfg.DBDSNParam); err != nil {
			return err
		}
	}
	c.secrets.clientSecret, err = c.secret(ctx, c.cfg.CognitoClientSecret, c.cfg.CognitoClientSecretParam)
	return err
}

func (c *Container) connect(ctx context.Context) error {
	if c.cache == nil {
		conn, err := cache.Open(ctx, c.cacheConfig(c.secrets.redisPassword))
		if err != nil {
			return fmt.Errorf("di: cache: %w", err)
		}
		c.cache = conn
		c.ownsCache = true
	}

	if c.db == nil {
		db, err := storage.Open(ctx, storage.Config{
			Driver:       c.cfg.DBDriver,
			DSN:          c.secrets.dbDSN,
			MaxOpenConns: c.cfg.DBMaxOpenConns,
		})
		if err != nil {
			return fmt.Errorf("di: database: %w", err)
		}
		c.db = db
		c.ownsDB = true
	}

	if err := storage.CreateTables(ctx, c.db, (*users.User)(nil)); err != nil {
		return fmt.Errorf("di: schema: %w", err)
	}
	return nil
}

// secret returns value, or resolves param through the parameter store when
// value is empty.
func (c *Container) secret(ctx context.Context, value, param string) (string, error) {
	if value != "" || param == "" {
		return value, nil
	}
	v, err := c.params.GetParameter(ctx, param)
	if err != nil {
		return "", fmt.Errorf("di: resolve %s: %w", param, err)
	}
	return v, nil
}

func (c *Container) cacheConfig(password string) cache.Config {
	cc := cache.DefaultConfig()
	cc.Backend = c.cfg.CacheBackend
	cc.Addr = c.cfg.RedisAddr
	cc.Username = c.cfg.RedisUsername
	cc.Password = password
	cc.DB = c.cfg.RedisDB
	cc.TLS = c.cfg.RedisTLS
	cc.Prefix = c.cfg.CachePrefix
	if c.cfg.CacheQueryTimeout > 0 {
		cc.QueryTimeout = c.cfg.CacheQueryTimeout
	}
	return cc
}

func (c *Container) build() {
	repoOpts := []repositorycache.Option{}
	if c.cfg.UserCacheSnapshot == config.SnapshotPersisted {
		repoOpts = append(repoOpts, repositorycache.WithCreateSnapshot(repositorycache.SnapshotPersisted))
	}
	c.userRepo = &users.Repository{Repository: NewRepository[users.User](c, repoOpts...)}

	c.users = users.NewService(
		c.userRepo,
		identity.New(c.clients.Cognito, identity.Config{
			UserPoolID:   c.cfg.CognitoUserPoolID,
			ClientID:     c.cfg.CognitoClientID,
			ClientSecret: c.secrets.clientSecret,
		}),
		encryption.New(c.clients.KMS),
		c.cache,
		users.Config{
			KMSKeyID:         c.cfg.KMSKeyID,
			UserCacheTTL:     c.cfg.UserCacheTTL,
			RollbackIdentity: c.cfg.IdentityRollback,
		},
		users.WithLogger(c.logger.Named("users")),
		users.WithKeySerializer(c.keys),
	)

	c.uploads = uploads.NewService(
		blob.New(c.clients.S3),
		uploads.Config{Bucket: c.cfg.UploadBucket, MaxSize: c.cfg.UploadMaxSize},
		c.logger.Named("uploads"),
	)

	c.handler = handlers.New(c.users, c.uploads, c.logger.Named("http"))
}

// Close releases the connections the container opened.
func (c *Container) Close() error {
	var errs []error
	if c.ownsCache && c.cache != nil {
		errs = append(errs, c.cache.Close())
	}
	if c.ownsDB && c.db != nil {
		errs = append(errs, c.db.Close())
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	return errors.Join(errs...)
}

// Config returns the configuration the container was built with.
func (c *Container) Config() config.Config { return c.cfg }

// Logger returns the process logger.
func (c *Container) Logger() *zap.Logger { return c.logger }

// Cache returns the shared cache connection.
func (c *Container) Cache() cache.Conn { return c.cache }

// DB returns the shared database handle.
func (c *Container) DB() *bun.DB { return c.db }

// KeySerializer returns the key serializer shared by all services.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keys }

// Params returns the parameter store.
func (c *Container) Params() *params.Store { return c.params }

// UserRepository returns the cached user repository.
func (c *Container) UserRepository() *users.Repository { return c.userRepo }

// Users returns the user workflow service.
func (c *Container) Users() *users.Service { return c.users }

// Uploads returns the upload service.
func (c *Container) Uploads() *uploads.Service { return c.uploads }

// Handler returns the API Gateway handler.
func (c *Container) Handler() *handlers.Handler { return c.handler }

// NewRepository creates a cached repository for T on the container's
// database and cache connection.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewRepository[Order](container)
func NewRepository[T any](c *Container, opts ...repositorycache.Option) *repositorycache.Repository[T] {
	opts = append([]repositorycache.Option{
		repositorycache.WithLogger(c.logger.Named("repository")),
	}, opts...)
	return repositorycache.New[T](storage.NewStore[T](c.db), c.cache, opts...)
}
