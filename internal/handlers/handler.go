package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goliatone/go-commerce-backend/internal/uploads"
	"github.com/goliatone/go-commerce-backend/internal/users"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserWorkflows is the user domain service.
type UserWorkflows interface {
	Register(ctx context.Context, in users.RegisterInput) (users.User, error)
	ConfirmRegistration(ctx context.Context, in users.ConfirmInput) error
	Authenticate(ctx context.Context, in users.LoginInput) (users.Session, error)
	InitiatePasswordReset(ctx context.Context, in users.ForgotPasswordInput) error
	CompletePasswordReset(ctx context.Context, in users.ResetPasswordInput) error
}

// Uploader stores uploaded files.
type Uploader interface {
	Upload(ctx context.Context, in uploads.Input) (uploads.Object, error)
}

// Envelope is the body of every response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

type route func(ctx context.Context, body []byte) (int, string, any, error)

// Handler serves API Gateway proxy requests.
type Handler struct {
	users   UserWorkflows
	uploads Uploader
	logger  *zap.Logger
	routes  map[string]route
}

// New creates a Handler routing to u and up.
func New(u UserWorkflows, up Uploader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{users: u, uploads: up, logger: logger}
	h.routes = map[string]route{
		"POST /auth/register":        h.register,
		"POST /auth/confirm":         h.confirm,
		"POST /auth/login":           h.login,
		"POST /auth/password/forgot": h.forgotPassword,
		"POST /auth/password/reset":  h.resetPassword,
		"POST /uploads":              h.upload,
	}
	return h
}

// Handle dispatches req to its route. Failures are reported in the
// response; the returned error is always nil.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	key := strings.ToUpper(req.HTTPMethod) + " " + strings.TrimSuffix(req.Path, "/")
	log := h.logger.With(zap.String("request_id", requestID), zap.String("route", key))

	fn, ok := h.routes[key]
	if !ok {
		log.Warn("route not found")
		return respond(requestID, Envelope{
			StatusCode: http.StatusNotFound,
			Message:    "route not found",
			Error:      "ROUTE_NOT_FOUND",
		}), nil
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return respond(requestID, failure(log, badInput(err))), nil
		}
		body = decoded
	}

	status, msg, data, err := fn(ctx, body)
	if err != nil {
		return respond(requestID, failure(log, err)), nil
	}

	log.Info("request handled", zap.Int("status", status))
	return respond(requestID, Envelope{StatusCode: status, Message: msg, Data: data}), nil
}

func (h *Handler) register(ctx context.Context, body []byte) (int, string, any, error) {
	var in users.RegisterInput
	if err := decode(body, &in); err != nil {
		return 0, "", nil, err
	}
	user, err := h.users.Register(ctx, in)
	if err != nil {
		return 0, "", nil, err
	}
	return http.StatusCreated, "user registered", user, nil
}

func (h *Handler) confirm(ctx context.Context, body []byte) (int, string, any, error) {
	var in users.ConfirmInput
	if err := decode(body, &in); err != nil {
		return 0, "", nil, err
	}
	if err := h.users.ConfirmRegistration(ctx, in); err != nil {
		return 0, "", nil, err
	}
	return http.StatusOK, "registration confirmed", nil, nil
}

func (h *Handler) login(ctx context.Context, body []byte) (int, string, any, error) {
	var in users.LoginInput
	if err := decode(body, &in); err != nil {
		return 0, "", nil, err
	}
	session, err := h.users.Authenticate(ctx, in)
	if err != nil {
		return 0, "", nil, err
	}
	return http.StatusOK, "authenticated", session, nil
}

func (h *Handler) forgotPassword(ctx context.Context, body []byte) (int, string, any, error) {
	var in users.ForgotPasswordInput
	if err := decode(body, &in); err != nil {
		return 0, "", nil, err
	}
	if err := h.users.InitiatePasswordReset(ctx, in); err != nil {
		return 0, "", nil, err
	}
	return http.StatusOK, "password reset code sent", nil, nil
}

func (h *Handler) resetPassword(ctx context.Context, body []byte) (int, string, any, error) {
	var in users.ResetPasswordInput
	if err := decode(body, &in); err != nil {
		return 0, "", nil, err
	}
	if err := h.users.CompletePasswordReset(ctx, in); err != nil {
		return 0, "", nil, err
	}
	return http.StatusOK, "password reset", nil, nil
}

func (h *Handler) upload(ctx context.Context, body []byte) (int, string, any, error) {
	var in uploads.Input
	if err := decode(body, &in); err != nil {
		return 0, "", nil, err
	}
	obj, err := h.uploads.Upload(ctx, in)
	if err != nil {
		return 0, "", nil, err
	}
	return http.StatusCreated, "file uploaded", obj, nil
}

func decode(body []byte, dst any) error {
	if len(body) == 0 {
		return badInput(errors.New("empty body"))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return badInput(err)
	}
	return nil
}

func badInput(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed request body").
		WithTextCode("BAD_REQUEST")
}

// StatusCode maps an error category to an HTTP status: 400 for invalid
// input, 404 for missing resources and 500 for everything else.
func StatusCode(err error) int {
	var gerr *goerrors.Error
	if !errors.As(err, &gerr) {
		return http.StatusInternalServerError
	}
	switch gerr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func failure(log *zap.Logger, err error) Envelope {
	status := StatusCode(err)
	env := Envelope{StatusCode: status, Message: "internal error", Error: "INTERNAL_ERROR"}

	var gerr *goerrors.Error
	if errors.As(err, &gerr) {
		env.Message = gerr.Message
		if gerr.TextCode != "" {
			env.Error = gerr.TextCode
		}
		if status == http.StatusBadRequest && gerr.Source != nil {
			env.Data = gerr.Source.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Warn("request rejected", zap.Int("status", status), zap.Error(err))
	}
	return env
}

func respond(requestID string, env Envelope) events.APIGatewayProxyResponse {
	body, err := json.Marshal(env)
	if err != nil {
		env = Envelope{StatusCode: http.StatusInternalServerError, Message: "internal error", Error: "INTERNAL_ERROR"}
		body, _ = json.Marshal(env)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: env.StatusCode,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-Request-Id": requestID,
		},
		Body: string(body),
	}
}
