package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"arithmetic-calculator/internal/evaluator"
)

var (
	ErrInvalidPage     = errors.New("limit and offset must not be negative")
	ErrBalanceConflict = errors.New("balance changed concurrently")
	ErrNegativeBalance = errors.New("settlement would make balance negative")
)

const recordColumns = `r.id, r.user_id, r.operation_id, o.type, r.amount, r.user_balance,
	r.expression_text, r.operation_response, r.created_at, r.deleted`

// execer - общий интерфейс *sql.DB и *sql.Tx для вставки записи
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecord(ctx context.Context, ex execer, rec *Record) error {
	res, err := ex.ExecContext(ctx,
		`INSERT INTO records
		(operation_id, user_id, amount, user_balance, expression_text, operation_response, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.OperationID, rec.UserID, rec.Amount, rec.UserBalance,
		rec.Expression, rec.Response, formatTimestamp(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	rec.ID, err = res.LastInsertId()
	return err
}

// AppendRecord добавляет неудаленную запись в журнал без изменения баланса
func (s *Store) AppendRecord(ctx context.Context, rec *Record) (*Record, error) {
	out := *rec
	out.Deleted = false
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	if err := insertRecord(ctx, s.conn, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SettleTx вставляет запись и списывает баланс в одной транзакции.
// Баланс обновляется только если он все еще равен ExpectedBalance.
func (s *Store) SettleTx(ctx context.Context, st Settlement) (*Record, error) {
	newBalance := st.ExpectedBalance - st.Cost
	if newBalance < 0 {
		return nil, ErrNegativeBalance
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // после Commit ничего не делает

	rec := &Record{
		UserID:      st.UserID,
		OperationID: st.OperationID,
		Kind:        st.Kind,
		Amount:      st.Cost,
		UserBalance: newBalance,
		Expression:  st.Expression,
		Response:    st.Response,
		CreatedAt:   time.Now().UTC(),
	}
	if err = insertRecord(ctx, tx, rec); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET balance = ? WHERE id = ? AND balance = ?",
		newBalance, st.UserID, st.ExpectedBalance,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	if err = expectOneRow(res, ErrBalanceConflict); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	return rec, nil
}

// ListRecords возвращает неудаленные записи пользователя в порядке вставки
// и общее количество таких записей
func (s *Store) ListRecords(ctx context.Context, userID int64, page Page) ([]*Record, int, error) {
	page, err := page.normalize()
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE user_id = ? AND deleted = 0",
		userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+recordColumns+`
		FROM records r JOIN operations o ON o.id = r.operation_id
		WHERE r.user_id = ? AND r.deleted = 0
		ORDER BY r.id
		LIMIT ? OFFSET ?`,
		userID, page.Limit, page.Offset,
	)
	if err != nil {
		return nil, 0, err
	}

	records, err := scanRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SearchRecords ищет подстроку в тексте выражения среди неудаленных записей
// пользователя. Сравнение LIKE в SQLite нечувствительно к регистру ASCII.
func (s *Store) SearchRecords(ctx context.Context, userID int64, term string, page Page) ([]*Record, error) {
	page, err := page.normalize()
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+recordColumns+`
		FROM records r JOIN operations o ON o.id = r.operation_id
		WHERE r.user_id = ? AND r.deleted = 0 AND r.expression_text LIKE ? ESCAPE '\'
		ORDER BY r.id
		LIMIT ? OFFSET ?`,
		userID, "%"+escapeLike(term)+"%", page.Limit, page.Offset,
	)
	if err != nil {
		return nil, err
	}

	return scanRecords(rows)
}

// SoftDeleteRecord помечает запись удаленной. Повторное удаление, чужая
// или несуществующая запись - не ошибка.
func (s *Store) SoftDeleteRecord(ctx context.Context, userID, recordID int64) error {
	_, err := s.conn.ExecContext(ctx,
		"UPDATE records SET deleted = 1 WHERE id = ? AND user_id = ? AND deleted = 0",
		recordID, userID,
	)
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

func scanRecords(rows *sql.Rows) ([]*Record, error) {
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		var rec Record
		var kindStr, createdAtStr string

		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.OperationID, &kindStr, &rec.Amount, &rec.UserBalance,
			&rec.Expression, &rec.Response, &createdAtStr, &rec.Deleted,
		)
		if err != nil {
			return nil, err
		}

		rec.Kind = evaluator.Kind(kindStr)
		rec.CreatedAt, err = parseTimestamp(createdAtStr)
		if err != nil {
			return nil, err
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
