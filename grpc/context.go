// Package grpc carries the authenticated user from the HTTP session layer
// to gRPC services via metadata, and resolves it back into a User on the
// server side.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"

	ninjaauth "github.com/devsnb/ninja-authentication"
)

// DefaultMetadataKeyUserID is the default gRPC metadata key for the authenticated user ID
const DefaultMetadataKeyUserID = "x-user-id"

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeyUserID is the gRPC metadata key for the authenticated user ID.
	// Defaults to "x-user-id".
	MetadataKeyUserID string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{MetadataKeyUserID: DefaultMetadataKeyUserID}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
}

// UserIDFromContext extracts the user ID from the incoming metadata.
// Returns empty string if none was sent. The id is not verified; use
// ninjaauth.UserFromContext inside handlers behind the interceptors.
func UserIDFromContext(ctx context.Context) string {
	return UserIDFromContextWithConfig(ctx, nil)
}

// UserIDFromContextWithConfig extracts the user ID using the specified config.
func UserIDFromContextWithConfig(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.MetadataKeyUserID); len(values) > 0 {
		return values[0]
	}
	return ""
}

// UserIDToOutgoingContext adds the user ID to outgoing gRPC context metadata.
func UserIDToOutgoingContext(ctx context.Context, userID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyUserID, userID)
}

// ForwardSessionUser copies the user bound by the HTTP middleware into the
// outgoing metadata. Anonymous requests are forwarded without a user id.
func ForwardSessionUser(ctx context.Context) context.Context {
	user, ok := ninjaauth.UserFromContext(ctx)
	if !ok {
		return ctx
	}
	return UserIDToOutgoingContext(ctx, user.ID)
}
