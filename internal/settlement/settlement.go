package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/evaluator"
	"arithmetic-calculator/internal/logger"
	"arithmetic-calculator/internal/metrics"
	"arithmetic-calculator/internal/random"
	"arithmetic-calculator/internal/userlock"

	"go.uber.org/zap"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// Ledger читает текущий баланс пользователя
type Ledger interface {
	GetUserByID(ctx context.Context, id int64) (*db.User, error)
}

// Catalog отдает текущую стоимость вида операции
type Catalog interface {
	GetOperation(ctx context.Context, kind evaluator.Kind) (*db.Operation, error)
}

// RecordLog атомарно пишет запись и списывает баланс
type RecordLog interface {
	SettleTx(ctx context.Context, st db.Settlement) (*db.Record, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, kind evaluator.Kind, a, b *int64) (evaluator.Result, error)
}

// Request - запрос пользователя на выполнение операции
type Request struct {
	UserID int64
	Kind   evaluator.Kind
	First  *int64
	Second *int64
}

// Outcome - результат успешного списания
type Outcome struct {
	Result     string `json:"result"`
	Expression string `json:"operation_text"`
	Amount     int64  `json:"amount"`
	Balance    int64  `json:"user_balance"`
	RecordID   int64  `json:"record_id"`
}

type Settler struct {
	locks     *userlock.Table
	ledger    Ledger
	catalog   Catalog
	records   RecordLog
	evaluator Evaluator
}

func New(locks *userlock.Table, ledger Ledger, catalog Catalog, records RecordLog, ev Evaluator) *Settler {
	return &Settler{
		locks:     locks,
		ledger:    ledger,
		catalog:   catalog,
		records:   records,
		evaluator: ev,
	}
}

// Settle выполняет операцию и списывает ее стоимость с баланса.
// Для одного пользователя вызовы строго упорядочены блокировкой; при любой
// ошибке до записи ни баланс, ни журнал не меняются.
func (s *Settler) Settle(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	out, err := s.settle(ctx, req)
	metrics.RecordSettlement(req.Kind.String(), outcomeLabel(err), time.Since(start))

	if err != nil {
		logger.LogINFO("settlement rejected",
			zap.Int64("user_id", req.UserID),
			zap.String("kind", req.Kind.String()),
			zap.Error(err))
		return nil, err
	}

	logger.LogINFO("settlement completed",
		zap.Int64("user_id", req.UserID),
		zap.String("kind", req.Kind.String()),
		zap.Int64("record_id", out.RecordID),
		zap.Int64("balance", out.Balance))
	return out, nil
}

func (s *Settler) settle(ctx context.Context, req Request) (*Outcome, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown operation type %q", evaluator.ErrInvalidOperands, req.Kind)
	}

	// Шаг 1: блокировка пользователя охватывает чтение и запись баланса
	lock, err := s.locks.Acquire(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	// Шаг 2: текущий баланс и стоимость
	user, err := s.ledger.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, db.ErrUserInactive
	}

	op, err := s.catalog.GetOperation(ctx, req.Kind)
	if err != nil {
		return nil, err
	}

	// Шаг 3: проверка средств
	if user.Balance < op.Cost {
		return nil, fmt.Errorf("%w: balance %d, cost %d", ErrInsufficientBalance, user.Balance, op.Cost)
	}

	// Шаг 4: вычисление (для randomString - сетевой вызов)
	res, err := s.evaluator.Evaluate(ctx, req.Kind, req.First, req.Second)
	if err != nil {
		return nil, err
	}

	// Шаг 5: запись и списание одной транзакцией
	rec, err := s.records.SettleTx(ctx, db.Settlement{
		UserID:          user.ID,
		OperationID:     op.ID,
		Kind:            op.Kind,
		Cost:            op.Cost,
		ExpectedBalance: user.Balance,
		Expression:      res.Expression,
		Response:        res.Value,
	})
	if err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}

	return &Outcome{
		Result:     res.Value,
		Expression: res.Expression,
		Amount:     rec.Amount,
		Balance:    rec.UserBalance,
		RecordID:   rec.ID,
	}, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, evaluator.ErrInvalidOperands):
		return "invalid_operands"
	case errors.Is(err, evaluator.ErrArithmeticDomain):
		return "domain_error"
	case errors.Is(err, random.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, db.ErrUserNotFound), errors.Is(err, db.ErrUserInactive):
		return "user_rejected"
	default:
		return "error"
	}
}
