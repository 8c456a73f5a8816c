package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"arithmetic-calculator/internal/evaluator"
)

var (
	ErrOperationNotFound = errors.New("operation not found")
	ErrInvalidCost       = errors.New("cost must be positive")
)

// GetOperation возвращает строку каталога для вида операции
func (s *Store) GetOperation(ctx context.Context, kind evaluator.Kind) (*Operation, error) {
	var op Operation
	var kindStr string

	err := s.conn.QueryRowContext(ctx,
		"SELECT id, type, cost FROM operations WHERE type = ?",
		string(kind),
	).Scan(&op.ID, &kindStr, &op.Cost)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, kind)
		}
		return nil, err
	}

	op.Kind = evaluator.Kind(kindStr)
	return &op, nil
}

// ListOperations возвращает весь каталог стоимостей
func (s *Store) ListOperations(ctx context.Context) ([]*Operation, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT id, type, cost FROM operations ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var operations []*Operation
	for rows.Next() {
		var op Operation
		var kindStr string
		if err := rows.Scan(&op.ID, &kindStr, &op.Cost); err != nil {
			return nil, err
		}
		op.Kind = evaluator.Kind(kindStr)
		operations = append(operations, &op)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return operations, nil
}

// SetOperationCost меняет стоимость для будущих записей; старые записи не трогаются
func (s *Store) SetOperationCost(ctx context.Context, kind evaluator.Kind, cost int64) error {
	if cost <= 0 {
		return ErrInvalidCost
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", ErrOperationNotFound, kind)
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO operations (type, cost) VALUES (?, ?)
		 ON CONFLICT(type) DO UPDATE SET cost = excluded.cost`,
		string(kind), cost,
	)
	return err
}
