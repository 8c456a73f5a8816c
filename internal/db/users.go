package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// Ошибки
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
	ErrInvalidBalance     = errors.New("balance must not be negative")
	ErrInvalidStatus      = errors.New("invalid user status")
)

// PasswordCost - стоимость bcrypt; тесты понижают ее до bcrypt.MinCost
var PasswordCost = bcrypt.DefaultCost

const userColumns = "id, username, password_hash, balance, status, created_at"

// CreateUser создает нового пользователя в базе данных
func (s *Store) CreateUser(ctx context.Context, username, password string, balance int64) (*User, error) {
	if balance < 0 {
		return nil, ErrInvalidBalance
	}

	// Проверяем, что пользователь уже существует
	var count int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserAlreadyExists
	}

	// Хешируем пароль
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return nil, err
	}

	createdAt := time.Now().UTC()
	result, err := s.conn.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, balance, status, created_at) VALUES (?, ?, ?, ?, ?)",
		username, string(passwordHash), balance, StatusActive, formatTimestamp(createdAt),
	)
	if err != nil {
		// Гонка двух регистраций с одним именем ловится ограничением UNIQUE
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           id,
		Username:     username,
		PasswordHash: string(passwordHash),
		Balance:      balance,
		Status:       StatusActive,
		CreatedAt:    createdAt,
	}, nil
}

// GetUserByID получает пользователя по ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByUsername получает пользователя по имени
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	var createdAtStr string

	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Balance, &user.Status, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// Если не удалось разобрать дату, устанавливаем текущее время
	user.CreatedAt, err = parseTimestamp(createdAtStr)
	if err != nil {
		user.CreatedAt = time.Now()
	}

	return &user, nil
}

// AuthenticateUser проверяет, действительны ли предоставленные учетные данные
func (s *Store) AuthenticateUser(ctx context.Context, username, password string) (*User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	// Сравниваем хешированный пароль с предоставленным паролем
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.Active() {
		return nil, ErrUserInactive
	}

	return user, nil
}

// GetBalance возвращает текущий баланс пользователя
func (s *Store) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := s.conn.QueryRowContext(ctx, "SELECT balance FROM users WHERE id = ?", userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return balance, err
}

// SetBalance устанавливает баланс напрямую (административное пополнение)
func (s *Store) SetBalance(ctx context.Context, userID, balance int64) error {
	if balance < 0 {
		return ErrInvalidBalance
	}
	res, err := s.conn.ExecContext(ctx, "UPDATE users SET balance = ? WHERE id = ?", balance, userID)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrUserNotFound)
}

// SetUserStatus включает или отключает пользователя
func (s *Store) SetUserStatus(ctx context.Context, userID int64, status string) error {
	if status != StatusActive && status != StatusInactive {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	res, err := s.conn.ExecContext(ctx, "UPDATE users SET status = ? WHERE id = ?", status, userID)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrUserNotFound)
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
