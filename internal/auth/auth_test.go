package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pompomputin/wwebjs-webui-docker/internal/db"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/repository"
)

const testSecret = "test-secret-0123456789"

func setupTestService(t *testing.T) (*Service, func()) {
	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	svc := NewService(repository.NewUserRepository(database), testSecret, time.Hour)
	return svc, func() { database.Close() }
}

func TestService_Login(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "op", "password1", model.RoleOperator); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		tok, user, err := svc.Login(ctx, "op", "password1")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if user.Role != model.RoleOperator {
			t.Errorf("Expected operator, got %s", user.Role)
		}
		id, err := svc.Verify(tok)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if id.Username != "op" || id.Role != model.RoleOperator {
			t.Errorf("Unexpected identity: %+v", id)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, _, err := svc.Login(ctx, "op", "nope-nope"); !errors.Is(err, model.ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, _, err := svc.Login(ctx, "ghost", "password1"); !errors.Is(err, model.ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		if _, _, err := svc.Login(ctx, "", ""); !errors.Is(err, model.ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestService_Verify(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	user := &model.User{Username: "v", Role: model.RoleViewer}

	t.Run("expired token", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		svc.now = func() time.Time { return past }
		tok, err := svc.Issue(user)
		svc.now = time.Now
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if _, err := svc.Verify(tok); !errors.Is(err, model.ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized for expired token, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewService(nil, "another-secret-abcdef", time.Hour)
		tok, _ := other.Issue(user)
		if _, err := svc.Verify(tok); !errors.Is(err, model.ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized for foreign token, got %v", err)
		}
	})

	t.Run("none algorithm rejected", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			Role: model.RoleOperator,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "x",
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("Failed to sign: %v", err)
		}
		if _, err := svc.Verify(signed); !errors.Is(err, model.ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized for alg none, got %v", err)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		if _, err := svc.Verify(""); !errors.Is(err, model.ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestService_EnsureUser(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	if err := svc.EnsureUser(ctx, "admin", "first-pass", model.RoleOperator); err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	if err := svc.EnsureUser(ctx, "admin", "second-pass", model.RoleOperator); err != nil {
		t.Fatalf("EnsureUser on existing user failed: %v", err)
	}
	if _, _, err := svc.Login(ctx, "admin", "second-pass"); err != nil {
		t.Errorf("Expected rotated password to work, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "admin", "first-pass"); err == nil {
		t.Error("Expected old password to be rejected")
	}

	if _, err := svc.CreateUser(ctx, "x", "short", model.RoleViewer); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for short password, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, "x", "long-enough", model.Role("root")); !errors.Is(err, model.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for bad role, got %v", err)
	}
}
