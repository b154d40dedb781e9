package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tallyhours/tally/internal/auth"
	"github.com/tallyhours/tally/internal/metrics"
	"github.com/tallyhours/tally/internal/model"
	"github.com/tallyhours/tally/internal/testutil/memstore"
)

type fakeRevoker struct {
	revoked map[string]time.Time
	err     error
}

func (f *fakeRevoker) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.revoked[tokenID] = expiresAt
	return nil
}

func newAccountEnv(t *testing.T) (*AccountService, *auth.TokenManager, *fakeRevoker, *metrics.InMemoryRecorder) {
	t.Helper()
	tokens := auth.NewTokenManager("0123456789abcdef0123456789abcdef", "tally-test", time.Hour)
	revoker := &fakeRevoker{revoked: map[string]time.Time{}}
	recorder := metrics.NewInMemory()
	return NewAccountService(memstore.New(), tokens, revoker, recorder), tokens, revoker, recorder
}

func TestAccountService_Register(t *testing.T) {
	svc, _, _, _ := newAccountEnv(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: " Ada ", Email: " Ada@Example.COM ", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Role != model.RoleUser {
		t.Errorf("Role = %s, want USER", user.Role)
	}
	if user.Email != "ada@example.com" || user.Name != "Ada" {
		t.Errorf("normalized = %q/%q", user.Email, user.Name)
	}
	if user.PasswordHash == "correct horse" || user.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}

	if _, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "another one"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate Register() error = %v, want ErrEmailTaken", err)
	}
}

func TestAccountService_RegisterValidation(t *testing.T) {
	svc, _, _, _ := newAccountEnv(t)

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@example.com", Password: "longenough"}},
		{"missing email", RegisterInput{Name: "A", Password: "longenough"}},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "longenough"}},
		{"display-name email", RegisterInput{Name: "A", Email: "A <a@example.com>", Password: "longenough"}},
		{"short password", RegisterInput{Name: "A", Email: "a@example.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.input); !errors.Is(err, ErrValidation) {
				t.Fatalf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestAccountService_CreateAdmin(t *testing.T) {
	svc := NewAccountService(memstore.New(), nil, nil, nil)

	admin, err := svc.CreateUser(context.Background(), RegisterInput{Name: "Root", Email: "root@example.com", Password: "supersecret"}, model.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if !admin.IsAdmin() {
		t.Errorf("Role = %s, want ADMIN", admin.Role)
	}

	if _, err := svc.CreateUser(context.Background(), RegisterInput{Name: "X", Email: "x@example.com", Password: "supersecret"}, model.Role("OWNER")); !errors.Is(err, ErrValidation) {
		t.Fatalf("CreateUser() with bad role error = %v, want ErrValidation", err)
	}
}

func TestAccountService_LoginLogout(t *testing.T) {
	svc, tokens, revoker, recorder := newAccountEnv(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := svc.Login(ctx, "ada@example.com", "wrong horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login() wrong password error = %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login() unknown email error = %v", err)
	}

	result, err := svc.Login(ctx, " ADA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.User.ID != user.ID || result.Token == "" {
		t.Fatalf("Login() = %+v", result)
	}

	identity, err := tokens.Parse(result.Token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if identity.UserID != user.ID || identity.Role != model.RoleUser {
		t.Errorf("identity = %+v", identity)
	}

	me, err := svc.Me(ctx, identity)
	if err != nil || me.ID != user.ID {
		t.Fatalf("Me() = %v, %v", me, err)
	}

	if err := svc.Logout(ctx, identity); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, ok := revoker.revoked[identity.TokenID]; !ok {
		t.Error("Logout() should revoke the token id")
	}

	snap := recorder.Snapshot()
	if snap.LoginSuccesses != 1 || snap.LoginFailures != 2 {
		t.Errorf("logins = %d ok / %d failed, want 1/2", snap.LoginSuccesses, snap.LoginFailures)
	}
}

func TestAccountService_MeUnknownUser(t *testing.T) {
	svc, _, _, _ := newAccountEnv(t)

	if _, err := svc.Me(context.Background(), &model.AuthContext{UserID: "gone"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Me() error = %v, want ErrUserNotFound", err)
	}
}
