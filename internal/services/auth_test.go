package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/ctxutil"
	"github.com/sarrietav-dev/ai-backlog/internal/repos"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

func newAuthService(t *testing.T) AuthService {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger(t)
	return NewAuthService(
		db, log,
		repos.NewUserRepo(db, log),
		repos.NewUserTokenRepo(db, log),
		"test-secret",
		time.Hour,
		24*time.Hour,
	)
}

func TestAuthRegisterLoginFlow(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user := &types.User{
		Email:    "Alex@Example.com",
		Password: "correct horse battery",
	}
	created, err := svc.RegisterUser(ctx, user)
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if created.Email != "alex@example.com" {
		t.Fatalf("email not normalized: %q", created.Email)
	}
	if created.Password == "correct horse battery" {
		t.Fatal("password stored in plaintext")
	}

	if _, err := svc.RegisterUser(ctx, &types.User{Email: "alex@example.com", Password: "another pass"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email: want ErrEmailTaken got %v", err)
	}

	access, refresh, err := svc.LoginUser(ctx, "alex@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("empty tokens")
	}

	if _, _, err := svc.LoginUser(ctx, "alex@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password: want ErrInvalidCredentials got %v", err)
	}
	if _, _, err := svc.LoginUser(ctx, "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: want ErrInvalidCredentials got %v", err)
	}
}

func TestAuthSetContextFromToken(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	created, err := svc.RegisterUser(ctx, &types.User{Email: "a@b.com", Password: "long enough pw"})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	access, _, err := svc.LoginUser(ctx, "a@b.com", "long enough pw")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	authed, err := svc.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(authed)
	if rd == nil || rd.UserID != created.ID {
		t.Fatalf("request data: %+v", rd)
	}

	if _, err := svc.SetContextFromToken(ctx, "garbage.token.here"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token: want ErrInvalidToken got %v", err)
	}
}

func TestAuthRefreshRotatesAndLogoutRevokes(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, &types.User{Email: "r@b.com", Password: "long enough pw"}); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	access, refresh, err := svc.LoginUser(ctx, "r@b.com", "long enough pw")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	authed := ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: access, RefreshToken: refresh})
	newAccess, newRefresh, err := svc.RefreshUser(authed)
	if err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if newRefresh == refresh {
		t.Fatal("refresh token not rotated")
	}

	// The old refresh token is dead after rotation.
	if _, _, err := svc.RefreshUser(authed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("stale refresh: want ErrInvalidToken got %v", err)
	}

	authed2 := ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: newAccess, RefreshToken: newRefresh})
	if err := svc.LogoutUser(authed2); err != nil {
		t.Fatalf("LogoutUser: %v", err)
	}
	if _, err := svc.SetContextFromToken(ctx, newAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token after logout: want ErrInvalidToken got %v", err)
	}
}
