package users

import (
	"context"
	"time"

	"github.com/goliatone/go-commerce-backend/cache"
	"github.com/goliatone/go-commerce-backend/service"
	"go.uber.org/zap"
)

// DefaultUserCacheTTL is how long a resolved user stays cached under
// "user:<username>".
const DefaultUserCacheTTL = time.Hour

const userNamespace = "user"

// Config holds the settings of the user workflows.
type Config struct {
	// KMSKeyID is the key passwords are encrypted under.
	KMSKeyID string
	// UserCacheTTL is the expiration of "user:<username>" entries.
	UserCacheTTL time.Duration
	// RollbackIdentity deletes the identity provider account when a
	// registration fails after the account was created.
	RollbackIdentity bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeySerializer overrides how user cache keys are built.
func WithKeySerializer(keys cache.KeySerializer) Option {
	return func(s *Service) {
		if keys != nil {
			s.keys = keys
		}
	}
}

// Service orchestrates the user workflows across the identity provider,
// the encrypter and the user repository. Each workflow returns one of the
// package's workflow errors and logs the cause.
type Service struct {
	*service.Service[User]

	repo      *Repository
	identity  IdentityProvider
	encrypter Encrypter
	cache     cache.Store
	keys      cache.KeySerializer
	logger    *zap.Logger
	cfg       Config
}

// NewService wires a user Service. c must be the cache the repository was
// built with.
func NewService(repo *Repository, identity IdentityProvider, encrypter Encrypter, c cache.Store, cfg Config, opts ...Option) *Service {
	if cfg.UserCacheTTL <= 0 {
		cfg.UserCacheTTL = DefaultUserCacheTTL
	}
	s := &Service{
		repo:      repo,
		identity:  identity,
		encrypter: encrypter,
		cache:     c,
		keys:      cache.NewDefaultKeySerializer(),
		logger:    zap.NewNop(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Service = service.New[User](repo, s.logger)
	return s
}

// UserKey returns the cache key holding the user with username.
func (s *Service) UserKey(username string) string {
	return s.keys.SerializeKey(userNamespace, username)
}

func (s *Service) userModel(username string) *cache.Model {
	return cache.NewModel(s.UserKey(username), s.cfg.UserCacheTTL)
}

// Register creates the identity provider account, encrypts the password and
// persists the user. On failure the committed steps are compensated and
// ErrRegistrationFailed is returned.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	if err := in.Validate(); err != nil {
		return User{}, invalidInput(err, "invalid registration request")
	}

	log := s.logger.With(zap.String("workflow", "register"), zap.String("username", in.Username))
	wf := newWorkflow(log)

	if err := s.identity.RegisterUser(ctx, in.Username, in.Password, in.Email); err != nil {
		return User{}, s.failRegistration(ctx, wf, in.Username, "identity provider registration failed", err)
	}
	wf.advance(StateIdentityProviderCreated)

	encrypted, err := s.encrypter.Encrypt(ctx, in.Password, s.cfg.KMSKeyID)
	if err != nil {
		return User{}, s.failRegistration(ctx, wf, in.Username, "password encryption failed", err)
	}
	wf.advance(StatePasswordEncrypted)

	res := s.Create(ctx, User{
		Username: in.Username,
		Email:    in.Email,
		Password: encrypted,
	}, s.userModel(in.Username))
	if res.Persisted {
		wf.userID = res.Value.ID
		wf.advance(StatePersisted)
	}
	if !res.OK() {
		return User{}, s.failRegistration(ctx, wf, in.Username, "persisting user failed", res.Err)
	}

	wf.advance(StateDone)
	log.Info("user registered", zap.Int64("id", res.Value.ID))
	return res.Value, nil
}

func (s *Service) failRegistration(ctx context.Context, wf *workflow, username, msg string, cause error) error {
	failedAt := wf.state
	wf.advance(StateFailed)
	wf.logger.Error(msg, zap.String("failed_at", failedAt.String()), zap.Error(cause))

	key := s.UserKey(username)
	if err := s.cache.Delete(ctx, key); err != nil {
		wf.logger.Error("compensation: cache eviction failed", zap.String("key", key), zap.Error(err))
	}

	if wf.rowPersisted {
		if res := s.repo.DeleteEntity(ctx, wf.userID, nil); !res.OK() {
			wf.logger.Error("compensation: user row delete failed", zap.Int64("id", wf.userID), zap.Error(res.Err))
		} else {
			wf.logger.Warn("compensation: user row deleted", zap.Int64("id", wf.userID))
		}
	}

	if wf.identityCreated && s.cfg.RollbackIdentity {
		if err := s.identity.DeleteUser(ctx, username); err != nil {
			wf.logger.Error("compensation: identity provider rollback failed", zap.Error(err))
		} else {
			wf.logger.Warn("compensation: identity provider account deleted")
		}
	}

	return ErrRegistrationFailed
}

// ConfirmRegistration confirms a pending account with the emailed code.
func (s *Service) ConfirmRegistration(ctx context.Context, in ConfirmInput) error {
	if err := in.Validate(); err != nil {
		return invalidInput(err, "invalid confirmation request")
	}
	if err := s.identity.ConfirmRegistration(ctx, in.Username, in.Code); err != nil {
		s.logger.Error("confirm registration failed", zap.String("username", in.Username), zap.Error(err))
		return ErrConfirmationFailed
	}
	s.logger.Info("registration confirmed", zap.String("username", in.Username))
	return nil
}

// Authenticate exchanges credentials for tokens and resolves the user,
// from the cache when present. Valid credentials for a user that cannot be
// resolved still fail with ErrAuthenticationFailed.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (Session, error) {
	if err := in.Validate(); err != nil {
		return Session{}, invalidInput(err, "invalid login request")
	}

	log := s.logger.With(zap.String("workflow", "authenticate"), zap.String("username", in.Username))

	tokens, err := s.identity.Authenticate(ctx, in.Username, in.Password)
	if err != nil {
		log.Error("identity provider authentication failed", zap.Error(err))
		return Session{}, ErrAuthenticationFailed
	}

	res := s.repo.FindByUsername(ctx, in.Username, s.userModel(in.Username))
	if !res.OK() {
		log.Error("credentials accepted but user unresolvable",
			zap.Stringer("status", res.Status), zap.Error(res.Err))
		return Session{}, ErrAuthenticationFailed
	}

	log.Info("user authenticated", zap.Bool("cached", res.Cached))
	return Session{Tokens: tokens, User: res.Value}, nil
}

// InitiatePasswordReset asks the identity provider to send a reset code.
func (s *Service) InitiatePasswordReset(ctx context.Context, in ForgotPasswordInput) error {
	if err := in.Validate(); err != nil {
		return invalidInput(err, "invalid password reset request")
	}
	if err := s.identity.InitiatePasswordReset(ctx, in.Username); err != nil {
		s.logger.Error("initiate password reset failed", zap.String("username", in.Username), zap.Error(err))
		return ErrPasswordResetInitFailed
	}
	s.logger.Info("password reset initiated", zap.String("username", in.Username))
	return nil
}

// CompletePasswordReset confirms the reset with the identity provider and
// stores the re-encrypted password, refreshing the cached user.
func (s *Service) CompletePasswordReset(ctx context.Context, in ResetPasswordInput) error {
	if err := in.Validate(); err != nil {
		return invalidInput(err, "invalid password reset request")
	}

	log := s.logger.With(zap.String("workflow", "complete_password_reset"), zap.String("username", in.Username))

	if err := s.identity.CompletePasswordReset(ctx, in.Username, in.Password, in.Code); err != nil {
		log.Error("identity provider password reset failed", zap.Error(err))
		return ErrPasswordResetFailed
	}

	encrypted, err := s.encrypter.Encrypt(ctx, in.Password, s.cfg.KMSKeyID)
	if err != nil {
		log.Error("password encryption failed", zap.Error(err))
		return ErrPasswordResetFailed
	}

	found := s.repo.FindByUsername(ctx, in.Username, nil)
	switch {
	case found.NotFound():
		log.Error("user not found after password reset confirmation")
		return ErrUserNotFound
	case !found.OK():
		log.Error("user lookup failed", zap.Error(found.Err))
		return ErrPasswordResetFailed
	}

	res := s.Update(ctx, found.Value.ID, map[string]any{"password": encrypted}, s.userModel(in.Username))
	if !res.OK() {
		log.Error("persisting new password failed", zap.Stringer("status", res.Status), zap.Error(res.Err))
		return ErrPasswordResetFailed
	}

	log.Info("password reset completed")
	return nil
}
