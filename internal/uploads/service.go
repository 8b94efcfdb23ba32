package uploads

import (
	"context"
	"path"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxSize bounds an upload to what fits an API Gateway payload.
const DefaultMaxSize = 6 << 20

// ErrUploadFailed is returned when the object store rejects an upload.
var ErrUploadFailed = goerrors.New("file upload failed", goerrors.CategoryExternal).
	WithTextCode("UPLOAD_FAILED")

// BlobStore writes objects.
type BlobStore interface {
	Put(ctx context.Context, bucket, key, contentType string, body []byte) error
}

// Input is a file to upload on behalf of Owner.
type Input struct {
	Owner       string `json:"owner"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Object describes a stored upload.
type Object struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	Size        int    `json:"size"`
	ContentType string `json:"content_type"`
}

// Config configures the upload target.
type Config struct {
	Bucket  string
	MaxSize int
}

// ownerPattern matches the identifiers accepted as the owner key segment.
var ownerPattern = regexp.MustCompile(`^[A-Za-z0-9._@+-]+$`)

// Service validates uploads and writes them to the configured bucket.
type Service struct {
	store  BlobStore
	cfg    Config
	logger *zap.Logger
	newID  func() string
}

// NewService creates a Service writing through store. A non-positive
// cfg.MaxSize falls back to DefaultMaxSize.
func NewService(store BlobStore, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logger,
		newID:  func() string { return uuid.NewString() },
	}
}

func (s *Service) validate(in Input) error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Owner, validation.Required, validation.Match(ownerPattern), validation.By(plainName)),
		validation.Field(&in.Filename, validation.Required, validation.By(plainName)),
		validation.Field(&in.Content, validation.Required, validation.Length(1, s.cfg.MaxSize)),
	)
}

func plainName(value any) error {
	name, _ := value.(string)
	if name != path.Base(name) || name == "." || name == ".." || strings.ContainsRune(name, '\\') {
		return validation.NewError("validation_path_segment", "must be a single path segment")
	}
	return nil
}

// Upload stores in.Content under uploads/<owner>/<uuid>/<filename>.
func (s *Service) Upload(ctx context.Context, in Input) (Object, error) {
	if err := s.validate(in); err != nil {
		return Object{}, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid upload request").
			WithTextCode("VALIDATION_FAILED")
	}
	if in.ContentType == "" {
		in.ContentType = "application/octet-stream"
	}

	obj := Object{
		Bucket:      s.cfg.Bucket,
		Key:         path.Join("uploads", in.Owner, s.newID(), in.Filename),
		Size:        len(in.Content),
		ContentType: in.ContentType,
	}

	if err := s.store.Put(ctx, obj.Bucket, obj.Key, obj.ContentType, in.Content); err != nil {
		s.logger.Error("upload failed", zap.String("key", obj.Key), zap.Error(err))
		return Object{}, ErrUploadFailed
	}

	s.logger.Info("file uploaded", zap.String("key", obj.Key), zap.Int("size", obj.Size))
	return obj, nil
}
