package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	apperrors "github.com/hostelhub/portal/internal/errors"
	"github.com/hostelhub/portal/internal/observability/metrics"
	"github.com/hostelhub/portal/internal/ports"
)

// Messages shown to users by the login and registration pages.
const (
	MsgUnexpected         = "An unexpected error occurred. Please try again."
	MsgInvalidCredentials = "Invalid login credentials"
	MsgTooManyAttempts    = "Too many sign-in attempts. Please try again later."
	msgProfileSaveFailed  = "Failed to save user profile: "
)

// AuthRecorder receives one metric per sign-in or sign-up attempt.
type AuthRecorder interface {
	RecordAuth(in metrics.AuthMetric)
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Accounts ports.Accounts
	Profiles ports.ProfileStore
	// Throttle is optional; nil disables sign-in throttling.
	Throttle ports.LoginThrottle
	Recorder AuthRecorder
	Logger   *slog.Logger
}

// AuthService orchestrates the password sign-in, registration and sign-out flows.
type AuthService struct {
	accounts ports.Accounts
	profiles ports.ProfileStore
	throttle ports.LoginThrottle
	recorder AuthRecorder
	logger   *slog.Logger
	validate *validator.Validate
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		accounts: opts.Accounts,
		profiles: opts.Profiles,
		throttle: opts.Throttle,
		recorder: opts.Recorder,
		logger:   logger.With("component", "auth_service"),
		validate: newFormValidator(),
	}
}

// SignInInput is the login form.
type SignInInput struct {
	Email    string `form:"email"    validate:"required,email,max=254"`
	Password string `form:"password" validate:"required,max=72"`
}

// SignIn verifies the credentials with the identity provider and returns the new session.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*domainauth.Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	key := throttleKey(in.Email)
	if s.throttle != nil {
		if err := s.throttle.Allow(ctx, key); err != nil {
			if errors.Is(err, ports.ErrTooManyAttempts) {
				s.record("signin", metrics.ResultThrottled, nil)
				return nil, apperrors.Wrap(err, apperrors.ErrCodeRateLimited, MsgTooManyAttempts)
			}
			s.logger.WarnContext(ctx, "login throttle unavailable", "error", err)
		}
	}

	sess, err := s.accounts.SignInWithPassword(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidCredentials) {
			s.recordFailure(ctx, key)
			s.record("signin", metrics.ResultRejected, err)
			return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized,
				apperrors.UserMessage(err, MsgInvalidCredentials))
		}
		s.record("signin", metrics.ResultError, err)
		return nil, passThroughOr(err, MsgUnexpected)
	}

	if s.throttle != nil {
		if resetErr := s.throttle.Reset(ctx, key); resetErr != nil {
			s.logger.WarnContext(ctx, "reset login throttle", "error", resetErr)
		}
	}
	s.record("signin", metrics.ResultSuccess, nil)
	return &sess, nil
}

// SignUpInput is the registration form. Everything after ConfirmPassword is optional.
type SignUpInput struct {
	FullName        string `form:"full_name"        validate:"required,max=120"`
	Email           string `form:"email"            validate:"required,email,max=254"`
	Password        string `form:"password"         validate:"required,min=6,max=72"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`

	School          string `form:"school"           validate:"omitempty,max=120"`
	PhoneNumber     string `form:"phone_number"     validate:"omitempty,max=32"`
	HomeCounty      string `form:"home_county"      validate:"omitempty,max=64"`
	Age             *int   `form:"age"              validate:"omitempty,min=1,max=120"`
	Gender          string `form:"gender"           validate:"omitempty,max=32"`
	ParentName      string `form:"parent_name"      validate:"omitempty,max=120"`
	ParentContact   string `form:"parent_contact"   validate:"omitempty,max=64"`
	GuardianName    string `form:"guardian_name"    validate:"omitempty,max=120"`
	GuardianContact string `form:"guardian_contact" validate:"omitempty,max=64"`
}

// SignUp creates the account and then the student profile row keyed by the new identity ID.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (domainauth.Identity, error) {
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validateInput(in); err != nil {
		return domainauth.Identity{}, err
	}

	identity, err := s.accounts.SignUp(ctx, ports.SignUpInput{
		Email:    in.Email,
		Password: in.Password,
		FullName: in.FullName,
	})
	if err != nil {
		s.record("signup", metrics.ResultError, err)
		return domainauth.Identity{}, passThroughOr(err, MsgUnexpected)
	}
	if identity.IsZero() {
		s.record("signup", metrics.ResultError, nil)
		return domainauth.Identity{}, apperrors.New(apperrors.ErrCodeUpstream, MsgUnexpected)
	}

	profile := domainauth.Profile{
		ID:              identity.ID,
		Email:           in.Email,
		FullName:        in.FullName,
		Role:            domainauth.RoleStudent,
		School:          strings.TrimSpace(in.School),
		PhoneNumber:     strings.TrimSpace(in.PhoneNumber),
		HomeCounty:      strings.TrimSpace(in.HomeCounty),
		Age:             ageValue(in.Age),
		Gender:          strings.TrimSpace(in.Gender),
		ParentName:      strings.TrimSpace(in.ParentName),
		ParentContact:   strings.TrimSpace(in.ParentContact),
		GuardianName:    strings.TrimSpace(in.GuardianName),
		GuardianContact: strings.TrimSpace(in.GuardianContact),
	}
	if err := s.profiles.InsertProfile(ctx, profile); err != nil {
		s.logger.ErrorContext(ctx, "insert profile after signup", "user_id", identity.ID, "error", err)
		s.record("signup", metrics.ResultError, err)
		code := apperrors.GetCode(err)
		if code == "" {
			code = apperrors.ErrCodeInternal
		}
		return domainauth.Identity{}, apperrors.Wrap(err, code,
			msgProfileSaveFailed+apperrors.UserMessage(err, err.Error()))
	}

	s.record("signup", metrics.ResultSuccess, nil)
	return identity, nil
}

// SignOut revokes the session at the provider. An empty token is a no-op.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if err := s.accounts.SignOut(ctx, accessToken); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Profile returns the users row for identityID.
func (s *AuthService) Profile(ctx context.Context, identityID string) (domainauth.Profile, error) {
	if identityID == "" {
		return domainauth.Profile{}, errors.New("identity ID is required")
	}
	p, err := s.profiles.GetProfile(ctx, identityID)
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Fail(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "record failed login", "error", err)
	}
}

func (s *AuthService) record(flow, result string, err error) {
	if s.recorder != nil {
		s.recorder.RecordAuth(metrics.AuthMetric{Flow: flow, Result: result, Err: err})
	}
}

func (s *AuthService) validateInput(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid input.")
	}
	first := verrs[0]
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeValidation,
		Message: fieldMessage(first),
		Field:   first.Field(),
		Cause:   err,
	}
}

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

var fieldLabels = map[string]string{
	"full_name":        "Full name",
	"email":            "Email",
	"password":         "Password",
	"confirm_password": "Password confirmation",
	"phone_number":     "Phone number",
	"home_county":      "Home county",
	"parent_name":      "Parent name",
	"parent_contact":   "Parent contact",
	"guardian_name":    "Guardian name",
	"guardian_contact": "Guardian contact",
}

func fieldMessage(e validator.FieldError) string {
	label, ok := fieldLabels[e.Field()]
	if !ok {
		label = strings.ToUpper(e.Field()[:1]) + e.Field()[1:]
	}
	switch e.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "Please enter a valid email address."
	case "eqfield":
		return "Passwords do not match."
	case "min":
		if e.Kind() == reflect.Int {
			return fmt.Sprintf("%s must be at least %s.", label, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters.", label, e.Param())
	case "max":
		if e.Kind() == reflect.Int {
			return fmt.Sprintf("%s must be at most %s.", label, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters.", label, e.Param())
	default:
		return label + " is invalid."
	}
}

// ageValue maps an absent age to the zero value Profile uses for "not given".
func ageValue(age *int) int {
	if age == nil {
		return 0
	}
	return *age
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func throttleKey(email string) string {
	return "login:" + email
}

// passThroughOr keeps provider AppErrors (their messages are user-facing) and wraps anything else.
func passThroughOr(err error, fallback string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrCodeUpstream, fallback)
}
