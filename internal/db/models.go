package db

import (
	"time"

	"arithmetic-calculator/internal/evaluator"
)

// Статусы пользователя
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User представляет пользователя и его баланс
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Не включается в JSON сериализацию
	Balance      int64     `json:"balance"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) Active() bool {
	return u.Status == StatusActive
}

// Operation - строка каталога: вид операции и ее текущая стоимость
type Operation struct {
	ID   int64          `json:"operation_id"`
	Kind evaluator.Kind `json:"type"`
	Cost int64          `json:"cost"`
}

// Record - запись журнала выполненной операции
type Record struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	OperationID int64          `json:"operation_id"`
	Kind        evaluator.Kind `json:"operation"`
	Amount      int64          `json:"amount"`
	UserBalance int64          `json:"user_balance"`
	Expression  string         `json:"operation_text"`
	Response    string         `json:"operation_response"`
	CreatedAt   time.Time      `json:"date"`
	Deleted     bool           `json:"-"`
}

// Settlement описывает атомарную единицу: новая запись плюс списание баланса
type Settlement struct {
	UserID          int64
	OperationID     int64
	Kind            evaluator.Kind
	Cost            int64
	ExpectedBalance int64
	Expression      string
	Response        string
}

// Page - параметры постраничной выборки
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

func (p Page) normalize() (Page, error) {
	if p.Limit < 0 || p.Offset < 0 {
		return Page{}, ErrInvalidPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p, nil
}
