package evaluator

import "fmt"

// Kind - вид операции, как он передается по сети и хранится в каталоге
type Kind string

const (
	Addition       Kind = "addition"
	Subtraction    Kind = "subtraction"
	Multiplication Kind = "multiplication"
	Division       Kind = "division"
	SquareRoot     Kind = "squareRoot"
	RandomString   Kind = "randomString"
)

var kinds = []Kind{Addition, Subtraction, Multiplication, Division, SquareRoot, RandomString}

// Kinds возвращает все виды операций в порядке каталога
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

func (k Kind) Valid() bool {
	switch k {
	case Addition, Subtraction, Multiplication, Division, SquareRoot, RandomString:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind разбирает название вида операции
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown operation type %q", ErrInvalidOperands, s)
	}
	return k, nil
}

// arity - сколько операндов требует вид операции
func (k Kind) arity() int {
	switch k {
	case Addition, Subtraction, Multiplication, Division:
		return 2
	case SquareRoot:
		return 1
	default:
		return 0
	}
}
