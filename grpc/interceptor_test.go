package grpc

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	ninjaauth "github.com/devsnb/ninja-authentication"
)

func newStoreWithUser(t *testing.T) (*ninjaauth.MemoryUserStore, *ninjaauth.User) {
	t.Helper()
	store := ninjaauth.NewMemoryUserStore()
	user, err := store.Create(context.Background(), ninjaauth.NewUser{Email: "a@x.com", PasswordHash: "d"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return store, user
}

func incoming(userID string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(DefaultMetadataKeyUserID, userID))
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected grpc status error, got %v", err)
	}
	if st.Code() != want {
		t.Errorf("expected %v, got %v", want, st.Code())
	}
}

type failingStore struct{ ninjaauth.UserStore }

func (failingStore) FindByID(ctx context.Context, id string) (*ninjaauth.User, error) {
	return nil, errors.New("connection refused")
}

func TestNewPublicMethodsConfig(t *testing.T) {
	config := NewPublicMethodsConfig(nil, "/pkg.Svc/Method1", "/pkg.Svc/Method2")
	if !config.RequireAuth {
		t.Error("expected RequireAuth to be true")
	}
	if !config.PublicMethods["/pkg.Svc/Method1"] || !config.PublicMethods["/pkg.Svc/Method2"] {
		t.Error("expected Method1 and Method2 to be public")
	}
	if config.PublicMethods["/pkg.Svc/Method3"] {
		t.Error("expected Method3 to not be public")
	}
	if OptionalAuthConfig(nil).RequireAuth {
		t.Error("expected RequireAuth to be false")
	}
}

func TestUnaryAuthInterceptor_RequireAuth_NoUser(t *testing.T) {
	store, _ := newStoreWithUser(t)
	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(store))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		t.Error("handler should not be called")
		return nil, nil
	})
	assertCode(t, err, codes.Unauthenticated)
}

func TestUnaryAuthInterceptor_RequireAuth_WithUser(t *testing.T) {
	store, user := newStoreWithUser(t)
	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(store))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	var bound *ninjaauth.User
	_, err := interceptor(incoming(user.ID), nil, info, func(ctx context.Context, req any) (any, error) {
		bound, _ = ninjaauth.UserFromContext(ctx)
		return "result", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bound == nil || bound.ID != user.ID {
		t.Fatalf("expected user %s bound to context, got %+v", user.ID, bound)
	}
}

func TestUnaryAuthInterceptor_UnknownUserIsAnonymous(t *testing.T) {
	store, _ := newStoreWithUser(t)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := UnaryAuthInterceptor(DefaultInterceptorConfig(store))(incoming("deleted-user"), nil, info,
		func(ctx context.Context, req any) (any, error) {
			t.Error("handler should not be called")
			return nil, nil
		})
	assertCode(t, err, codes.Unauthenticated)

	called := false
	_, err = UnaryAuthInterceptor(OptionalAuthConfig(store))(incoming("deleted-user"), nil, info,
		func(ctx context.Context, req any) (any, error) {
			called = true
			if _, ok := ninjaauth.UserFromContext(ctx); ok {
				t.Error("unknown user must not be bound")
			}
			return nil, nil
		})
	if err != nil || !called {
		t.Fatalf("optional auth should pass through, err=%v called=%v", err, called)
	}
}

func TestUnaryAuthInterceptor_StoreFailure(t *testing.T) {
	interceptor := UnaryAuthInterceptor(OptionalAuthConfig(failingStore{}))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(incoming("u-1"), nil, info, func(ctx context.Context, req any) (any, error) {
		t.Error("handler should not be called")
		return nil, nil
	})
	assertCode(t, err, codes.Unavailable)
}

func TestUnaryAuthInterceptor_PublicMethod(t *testing.T) {
	store, _ := newStoreWithUser(t)
	interceptor := UnaryAuthInterceptor(NewPublicMethodsConfig(store, "/pkg.Svc/PublicMethod"))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/PublicMethod"}

	handlerCalled := false
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "result", nil
	})
	if err != nil {
		t.Fatalf("unexpected error for public method: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called for public method")
	}
}

// mockServerStream implements grpc.ServerStream for testing
type mockServerStream struct {
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context     { return m.ctx }
func (m *mockServerStream) SetHeader(metadata.MD) error  { return nil }
func (m *mockServerStream) SendHeader(metadata.MD) error { return nil }
func (m *mockServerStream) SetTrailer(metadata.MD)       {}
func (m *mockServerStream) SendMsg(any) error            { return nil }
func (m *mockServerStream) RecvMsg(any) error            { return nil }

func TestStreamAuthInterceptor_RequireAuth_NoUser(t *testing.T) {
	store, _ := newStoreWithUser(t)
	interceptor := StreamAuthInterceptor(DefaultInterceptorConfig(store))
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/StreamMethod"}

	err := interceptor(nil, &mockServerStream{ctx: context.Background()}, info, func(srv any, ss grpc.ServerStream) error {
		t.Error("handler should not be called")
		return nil
	})
	assertCode(t, err, codes.Unauthenticated)
}

func TestStreamAuthInterceptor_RequireAuth_WithUser(t *testing.T) {
	store, user := newStoreWithUser(t)
	interceptor := StreamAuthInterceptor(DefaultInterceptorConfig(store))
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/StreamMethod"}

	var bound *ninjaauth.User
	err := interceptor(nil, &mockServerStream{ctx: incoming(user.ID)}, info, func(srv any, ss grpc.ServerStream) error {
		bound, _ = ninjaauth.UserFromContext(ss.Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bound == nil || bound.ID != user.ID {
		t.Fatalf("expected user bound to stream context, got %+v", bound)
	}
}
