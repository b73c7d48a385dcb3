package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ninjaauth "github.com/devsnb/ninja-authentication"
)

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// Store resolves the user id from metadata into a User.
	Store ninjaauth.UserStore

	// RequireAuth when true rejects requests without a resolvable user.
	// When false, requests proceed and ninjaauth.UserFromContext reports
	// no user.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Only used when RequireAuth is true.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool

	Logger *slog.Logger
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig(store ninjaauth.UserStore) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Store:         store,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(store ninjaauth.UserStore, publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig(store)
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig(store ninjaauth.UserStore) *InterceptorConfig {
	config := DefaultInterceptorConfig(store)
	config.RequireAuth = false
	return config
}

func (c *InterceptorConfig) ensureDefaults() {
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// authenticate binds the metadata user to ctx. An id that does not resolve
// is treated as anonymous.
func (c *InterceptorConfig) authenticate(ctx context.Context, fullMethod string) (context.Context, error) {
	var user *ninjaauth.User
	if id := UserIDFromContextWithConfig(ctx, c.Config); id != "" {
		found, err := c.Store.FindByID(ctx, id)
		switch {
		case errors.Is(err, ninjaauth.ErrUserNotFound):
			c.Logger.WarnContext(ctx, "unknown user id in metadata, treating as anonymous", "user_id", id, "method", fullMethod)
		case err != nil:
			c.Logger.ErrorContext(ctx, "user store lookup failed", "method", fullMethod, "error", err)
			return nil, status.Error(codes.Unavailable, "service temporarily unavailable")
		default:
			user = found
		}
	}

	if user == nil {
		if c.RequireAuth && !c.PublicMethods[fullMethod] {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return ctx, nil
	}
	return ninjaauth.WithUser(ctx, user), nil
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that resolves the
// metadata user and enforces RequireAuth.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config.ensureDefaults()

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := config.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns a gRPC stream interceptor that resolves the
// metadata user and enforces RequireAuth.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config.ensureDefaults()

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := config.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &authStream{ServerStream: ss, ctx: ctx})
	}
}

type authStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authStream) Context() context.Context {
	return s.ctx
}
