package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/hostelhub/portal/config"
	"github.com/hostelhub/portal/internal/adapters/devauth"
	"github.com/hostelhub/portal/internal/adapters/jwks"
	redisadapter "github.com/hostelhub/portal/internal/adapters/redis"
	"github.com/hostelhub/portal/internal/adapters/supabase"
	"github.com/hostelhub/portal/internal/data"
	"github.com/hostelhub/portal/internal/ports"
)

// IdentityDeps contains what the identity stack may be wired to.
type IdentityDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB               // required when PROFILE_STORE=postgres
	RedisClient redis.UniversalClient // optional; enables login throttling
	HTTPClient  *http.Client          // optional; used for Supabase calls
	Logger      *slog.Logger
}

// IdentityStack is the set of ports backing the gate and the auth flows.
type IdentityStack struct {
	Accounts ports.Accounts
	Tokens   ports.TokenResolver
	Profiles ports.ProfileStore
	Throttle ports.LoginThrottle // nil when throttling is disabled
}

// BuildIdentity wires the adapters selected by AUTH_MODE, SUPABASE_TOKEN_VERIFY and PROFILE_STORE.
func BuildIdentity(ctx context.Context, deps IdentityDeps) (IdentityStack, error) {
	if deps.Config == nil {
		return IdentityStack{}, errors.New("identity config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		stack IdentityStack
		err   error
	)
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		stack, err = buildDevIdentity(cfg.Auth.DevAuth)
	case config.AuthModeSupabase:
		stack, err = buildSupabaseIdentity(ctx, deps)
	default:
		err = fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
	if err != nil {
		return IdentityStack{}, err
	}

	if cfg.Auth.Throttle.Enabled && deps.RedisClient != nil {
		stack.Throttle = redisadapter.NewLoginThrottle(deps.RedisClient, redisadapter.ThrottleOptions{
			MaxAttempts: cfg.Auth.Throttle.MaxAttempts,
			Window:      cfg.Auth.Throttle.Window,
		})
	} else if cfg.Auth.Throttle.Enabled {
		logger.WarnContext(ctx, "login throttling disabled: redis client not configured")
	}

	logger.InfoContext(ctx, "identity stack ready",
		"mode", cfg.Auth.Mode,
		"token_verify", cfg.Supabase.TokenVerify,
		"profile_store", cfg.Auth.ProfileStore,
		"throttle", stack.Throttle != nil,
	)
	return stack, nil
}

func buildDevIdentity(cfg config.DevAuthConfig) (IdentityStack, error) {
	dir, err := devauth.NewDirectory(devauth.Config{
		Users:           cfg.Users,
		SessionDuration: cfg.SessionDuration,
	})
	if err != nil {
		return IdentityStack{}, fmt.Errorf("dev auth: %w", err)
	}
	return IdentityStack{Accounts: dir, Tokens: dir, Profiles: dir}, nil
}

func buildSupabaseIdentity(ctx context.Context, deps IdentityDeps) (IdentityStack, error) {
	cfg := deps.Config
	client, err := supabase.NewClient(supabase.Config{
		URL:        cfg.Supabase.URL,
		AnonKey:    cfg.Supabase.AnonKey,
		ServiceKey: cfg.Supabase.ServiceKey,
		Timeout:    cfg.Supabase.Timeout,
		MaxRetries: cfg.Supabase.MaxRetries,
		HTTPClient: deps.HTTPClient,
		Logger:     deps.Logger,
	})
	if err != nil {
		return IdentityStack{}, fmt.Errorf("supabase client: %w", err)
	}
	authClient := supabase.NewAuthClient(client)
	stack := IdentityStack{Accounts: authClient, Tokens: authClient}

	if cfg.Supabase.TokenVerify == config.TokenVerifyJWKS {
		resolver, err := jwks.NewResolver(ctx, jwks.Config{
			URL:        cfg.Supabase.URL,
			Audience:   cfg.Supabase.JWTAudience,
			HTTPClient: deps.HTTPClient,
		})
		if err != nil {
			return IdentityStack{}, fmt.Errorf("jwks resolver: %w", err)
		}
		stack.Tokens = resolver
	}

	switch cfg.Auth.ProfileStore {
	case config.ProfileStorePostgres:
		if deps.DB == nil {
			return IdentityStack{}, errors.New("PROFILE_STORE=postgres requires a database connection")
		}
		stack.Profiles = data.NewProfileRepo(deps.DB)
	default:
		stack.Profiles = supabase.NewProfileTable(client)
	}
	return stack, nil
}
