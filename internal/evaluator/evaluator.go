package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Errors
var (
	ErrInvalidOperands  = errors.New("invalid operands")
	ErrArithmeticDomain = errors.New("arithmetic domain error")
)

// RandomSource поставляет случайные строки для операции randomString
type RandomSource interface {
	RandomString(ctx context.Context) (string, error)
}

// Result - текст результата и каноническая запись выражения
type Result struct {
	Value      string
	Expression string
}

type Evaluator struct {
	Random RandomSource
}

func New(random RandomSource) *Evaluator {
	return &Evaluator{Random: random}
}

// Evaluate вычисляет операцию. Операнды проверяются здесь же,
// независимо от валидации запроса выше по стеку.
func (e *Evaluator) Evaluate(ctx context.Context, kind Kind, a, b *int64) (Result, error) {
	if err := checkOperands(kind, a, b); err != nil {
		return Result{}, err
	}

	switch kind {
	case Addition:
		sum, ok := addInt64(*a, *b)
		if !ok {
			return Result{}, overflow(kind)
		}
		return binary(sum, *a, "+", *b), nil
	case Subtraction:
		diff, ok := subInt64(*a, *b)
		if !ok {
			return Result{}, overflow(kind)
		}
		return binary(diff, *a, "-", *b), nil
	case Multiplication:
		prod, ok := mulInt64(*a, *b)
		if !ok {
			return Result{}, overflow(kind)
		}
		return binary(prod, *a, "*", *b), nil
	case Division:
		if *b == 0 {
			return Result{}, fmt.Errorf("%w: division by zero", ErrArithmeticDomain)
		}
		return Result{
			Value:      FormatFloat(quotient(*a, *b)),
			Expression: fmt.Sprintf("%d/%d", *a, *b),
		}, nil
	case SquareRoot:
		if *a < 0 {
			return Result{}, fmt.Errorf("%w: square root of a negative number", ErrArithmeticDomain)
		}
		return Result{
			Value:      FormatFloat(math.Sqrt(float64(*a))),
			Expression: fmt.Sprintf("sqrt(%d)", *a),
		}, nil
	case RandomString:
		if e.Random == nil {
			return Result{}, errors.New("random source is not configured")
		}
		s, err := e.Random.RandomString(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: s, Expression: "random"}, nil
	}

	return Result{}, fmt.Errorf("%w: unknown operation type %q", ErrInvalidOperands, kind)
}

func checkOperands(kind Kind, a, b *int64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown operation type %q", ErrInvalidOperands, kind)
	}

	switch kind.arity() {
	case 2:
		if a == nil || b == nil {
			return fmt.Errorf("%w: for operation type '%s', both first_term and second_term are required", ErrInvalidOperands, kind)
		}
	case 1:
		if a == nil {
			return fmt.Errorf("%w: for operation type '%s', first_term is required", ErrInvalidOperands, kind)
		}
		if b != nil {
			return fmt.Errorf("%w: for operation type '%s', second_term should not be provided", ErrInvalidOperands, kind)
		}
	case 0:
		if a != nil || b != nil {
			return fmt.Errorf("%w: for operation type '%s', no terms are required", ErrInvalidOperands, kind)
		}
	}
	return nil
}

func binary(result, a int64, op string, b int64) Result {
	return Result{
		Value:      strconv.FormatInt(result, 10),
		Expression: fmt.Sprintf("%d%s%d", a, op, b),
	}
}

func overflow(kind Kind) error {
	return fmt.Errorf("%w: integer overflow in %s", ErrArithmeticDomain, kind)
}

func addInt64(a, b int64) (int64, bool) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, false
	}
	return c, true
}

func subInt64(a, b int64) (int64, bool) {
	c := a - b
	if (c < a) != (b > 0) {
		return 0, false
	}
	return c, true
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return c, true
}

// FormatFloat печатает число с плавающей точкой так, чтобы всегда была видна
// десятичная точка ("2.0", "0.5"); очень большие и очень малые значения
// печатаются в экспоненциальной форме ("1e+16", "1e-05").
func FormatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// quotient округляет точное частное a/b до float64 один раз
func quotient(a, b int64) float64 {
	if a == 0 {
		if b < 0 {
			return math.Copysign(0, -1)
		}
		return 0
	}
	q, _ := new(big.Rat).SetFrac64(a, b).Float64()
	return q
}
