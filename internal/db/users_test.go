package db

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// InitTest открывает чистую базу в памяти для одного теста
func InitTest(t *testing.T) *Store {
	t.Helper()
	PasswordCost = bcrypt.MinCost

	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestCreateUser проверяет создание нового пользователя
func TestCreateUser(t *testing.T) {
	store := InitTest(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "testuser_create", "testpassword", 100)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	// Проверяем, что пользователь создан с правильными параметрами
	if user.ID <= 0 {
		t.Errorf("Expected user ID > 0, got %d", user.ID)
	}
	if user.Username != "testuser_create" {
		t.Errorf("Expected username 'testuser_create', got '%s'", user.Username)
	}
	if user.PasswordHash == "" || user.PasswordHash == "testpassword" {
		t.Errorf("Expected hashed password, got '%s'", user.PasswordHash)
	}
	if user.Balance != 100 {
		t.Errorf("Expected balance 100, got %d", user.Balance)
	}
	if user.Status != StatusActive {
		t.Errorf("Expected status active, got %s", user.Status)
	}

	// Проверяем, что не можем создать пользователя с тем же именем
	_, err = store.CreateUser(ctx, "testuser_create", "other", 100)
	if !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("Expected ErrUserAlreadyExists when creating duplicate user, got %v", err)
	}

	_, err = store.CreateUser(ctx, "negative", "pw", -1)
	if !errors.Is(err, ErrInvalidBalance) {
		t.Errorf("Expected ErrInvalidBalance for negative balance, got %v", err)
	}
}

// TestGetUser проверяет получение пользователя по ID и по имени
func TestGetUser(t *testing.T) {
	store := InitTest(t)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, "testuser_get", "testpassword", 42)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	byID, err := store.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get user by ID: %v", err)
	}
	byName, err := store.GetUserByUsername(ctx, "testuser_get")
	if err != nil {
		t.Fatalf("Failed to get user by username: %v", err)
	}

	for _, u := range []*User{byID, byName} {
		if u.ID != created.ID || u.Username != created.Username || u.Balance != 42 {
			t.Errorf("Retrieved user %+v does not match created %+v", u, created)
		}
		diff := u.CreatedAt.Sub(created.CreatedAt).Seconds()
		if diff < -1 || diff > 1 {
			t.Errorf("Expected similar creation times, got diff of %f seconds", diff)
		}
	}

	// Тестируем получение несуществующего пользователя
	if _, err = store.GetUserByID(ctx, 999999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
	if _, err = store.GetUserByUsername(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

// TestAuthenticateUser проверяет аутентификацию пользователя
func TestAuthenticateUser(t *testing.T) {
	store := InitTest(t)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, "testuser_auth", "testpassword", 100)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	user, err := store.AuthenticateUser(ctx, "testuser_auth", "testpassword")
	if err != nil {
		t.Fatalf("Failed to authenticate user with correct credentials: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("Expected user ID %d, got %d", created.ID, user.ID)
	}

	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"wrong password", "testuser_auth", "wrong_password", ErrInvalidCredentials},
		{"unknown user", "nonexistent_user", "testpassword", ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.AuthenticateUser(ctx, tt.username, tt.password)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	// Отключенный пользователь не может войти
	if err := store.SetUserStatus(ctx, created.ID, StatusInactive); err != nil {
		t.Fatalf("Failed to deactivate user: %v", err)
	}
	if _, err := store.AuthenticateUser(ctx, "testuser_auth", "testpassword"); !errors.Is(err, ErrUserInactive) {
		t.Errorf("Expected ErrUserInactive, got %v", err)
	}
}

// TestSetBalanceAndStatus проверяет административные изменения пользователя
func TestSetBalanceAndStatus(t *testing.T) {
	store := InitTest(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "admin_target", "pw", 10)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	if err := store.SetBalance(ctx, user.ID, 500); err != nil {
		t.Fatalf("SetBalance() error = %v", err)
	}
	balance, err := store.GetBalance(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if balance != 500 {
		t.Errorf("Expected balance 500, got %d", balance)
	}
	if _, err := store.GetBalance(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	if err := store.SetBalance(ctx, user.ID, -1); !errors.Is(err, ErrInvalidBalance) {
		t.Errorf("Expected ErrInvalidBalance, got %v", err)
	}
	if err := store.SetBalance(ctx, 999, 1); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
	if err := store.SetUserStatus(ctx, user.ID, "banned"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
}
