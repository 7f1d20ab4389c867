package possecure

import (
	"context"
	"errors"
	"testing"
)

func TestCreateUserDuplicateUsername(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	createOperator(t, engine, "alice", "orange-register-42", "cashier")

	_, err := engine.CreateUser(context.Background(), CreateUserInput{
		Username: "  ALICE ",
		Role:     "manager",
		Secret:   "another-secret-99",
	})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestCreateUserUnknownRole(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())

	_, err := engine.CreateUser(context.Background(), CreateUserInput{
		Username: "alice",
		Role:     "warlord",
		Secret:   "orange-register-42",
	})
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestCreateUserSanitizedResult(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	user := createOperator(t, engine, "alice", "orange-register-42", "cashier")

	if user.SecretHash != "" || user.SecretSalt != "" {
		t.Fatal("expected sanitized user from CreateUser")
	}
	if user.ID == "" {
		t.Fatal("expected generated user ID")
	}
	if !user.Active {
		t.Fatal("expected new user active")
	}
}

func TestDeactivateEvictsSession(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	createOperator(t, engine, "alice", "orange-register-42", "cashier")
	ctx := context.Background()

	if _, err := engine.Login(ctx, "alice", "orange-register-42"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.DeactivateUser(ctx, "alice"); err != nil {
		t.Fatalf("DeactivateUser failed: %v", err)
	}
	if got := engine.State(); got != StateLoggedOut {
		t.Fatalf("expected deactivation to end the session, got %v", got)
	}
}

func TestDeactivateUnknownUser(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())

	if _, err := engine.DeactivateUser(context.Background(), "ghost"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestChangeSecret(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	createOperator(t, engine, "alice", "orange-register-42", "cashier")
	ctx := context.Background()

	if err := engine.ChangeSecret(ctx, "alice", "wrong", "blue-register-77"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if err := engine.ChangeSecret(ctx, "alice", "orange-register-42", "orange-register-42"); err == nil {
		t.Fatal("expected reused secret rejected")
	}
	if err := engine.ChangeSecret(ctx, "alice", "orange-register-42", "blue-register-77"); err != nil {
		t.Fatalf("ChangeSecret failed: %v", err)
	}

	if _, err := engine.Login(ctx, "alice", "orange-register-42"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected old secret rejected, got %v", err)
	}
	if _, err := engine.Login(ctx, "alice", "blue-register-77"); err != nil {
		t.Fatalf("expected new secret accepted, got %v", err)
	}
}

func TestUsersListSanitizedAndSorted(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	createOperator(t, engine, "zoe", "secret-zoe-00001", "viewer")
	createOperator(t, engine, "alice", "secret-alice-001", "cashier")

	users, err := engine.Users(context.Background())
	if err != nil {
		t.Fatalf("Users failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Username != "alice" || users[1].Username != "zoe" {
		t.Fatalf("expected username ordering, got %s %s", users[0].Username, users[1].Username)
	}
	for _, u := range users {
		if u.SecretHash != "" || u.SecretSalt != "" {
			t.Fatalf("expected sanitized listing for %s", u.Username)
		}
	}
}
